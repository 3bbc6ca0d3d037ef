package transform

import "math"

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0             // semi-major axis, m
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ObserverPosition is a ground station. The ECEF coordinates and the
// latitude/longitude trig are computed once at construction; pass searches
// evaluate look angles against the same observer thousands of times.
type ObserverPosition struct {
	LatRad, LonRad, AltM float64 // geodetic (radians, meters above ellipsoid)
	ECEFx, ECEFy, ECEFz  float64 // meters

	sinLat, cosLat float64
	sinLon, cosLon float64
}

// LookAngles is the topocentric direction and distance to a satellite.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// NewObserverPosition builds an observer from geodetic coordinates
// (degrees, degrees, meters above the WGS-84 ellipsoid).
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	obs := ObserverPosition{
		LatRad: latDeg * math.Pi / 180.0,
		LonRad: lonDeg * math.Pi / 180.0,
		AltM:   altM,
	}
	obs.sinLat, obs.cosLat = math.Sincos(obs.LatRad)
	obs.sinLon, obs.cosLon = math.Sincos(obs.LonRad)

	// Prime-vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*obs.sinLat*obs.sinLat)

	obs.ECEFx = (n + altM) * obs.cosLat * obs.cosLon
	obs.ECEFy = (n + altM) * obs.cosLat * obs.sinLon
	obs.ECEFz = (n*(1-wgs84E2) + altM) * obs.sinLat
	return obs
}

// GeodeticPoint is a geodetic position (degrees, degrees, meters).
type GeodeticPoint struct {
	LatDeg, LonDeg, AltM float64
}

// ECEFToGeodetic converts an ECEF position (meters) to geodetic coordinates.
// Fixed-point iteration on the latitude; five rounds is ample for anything
// between the surface and GEO.
func ECEFToGeodetic(x, y, z float64) GeodeticPoint {
	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)

	lat := math.Atan2(z, p*(1-wgs84E2))
	var n float64
	for i := 0; i < 5; i++ {
		s := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*s*s)
		lat = math.Atan2(z+wgs84E2*n*s, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		// Polar limit: derive altitude from the z component.
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltM:   alt,
	}
}

// ECEFToLookAngles computes azimuth, elevation, and slant range from the
// observer to a satellite position in ECEF meters, via the SEZ
// (South-East-Zenith) topocentric frame.
func ECEFToLookAngles(obs ObserverPosition, satX, satY, satZ float64) LookAngles {
	rx := satX - obs.ECEFx
	ry := satY - obs.ECEFy
	rz := satZ - obs.ECEFz

	south := obs.sinLat*obs.cosLon*rx + obs.sinLat*obs.sinLon*ry - obs.cosLat*rz
	east := -obs.sinLon*rx + obs.cosLon*ry
	zenith := obs.cosLat*obs.cosLon*rx + obs.cosLat*obs.sinLon*ry + obs.sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	el := math.Asin(zenith / rng)

	// North is the -S axis, so azimuth (clockwise from North) is
	// atan2(E, -S), wrapped to [0, 2π).
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rng / 1000.0,
	}
}
