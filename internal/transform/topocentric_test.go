package transform

import (
	"math"
	"testing"
)

func ecefMag(obs ObserverPosition) float64 {
	return math.Sqrt(obs.ECEFx*obs.ECEFx + obs.ECEFy*obs.ECEFy + obs.ECEFz*obs.ECEFz)
}

func TestNewObserverPosition_ECEFMagnitude(t *testing.T) {
	// Sea-level observer on the equator sits at the WGS-84 equatorial
	// radius (6378137 m) from the geocenter.
	obs := NewObserverPosition(0, 0, 0)
	if mag := ecefMag(obs); math.Abs(mag-6378137.0) > 1.0 {
		t.Errorf("equatorial observer ECEF magnitude = %.1f m, want ~6378137 m", mag)
	}

	// At the pole the distance is the polar radius instead.
	obs2 := NewObserverPosition(90, 0, 0)
	if mag2 := ecefMag(obs2); math.Abs(mag2-6356752.3) > 1.0 {
		t.Errorf("polar observer ECEF magnitude = %.1f m, want ~6356752 m", mag2)
	}
}

func TestNewObserverPosition_Altitude(t *testing.T) {
	obs0 := NewObserverPosition(0, 0, 0)
	obs100 := NewObserverPosition(0, 0, 100)

	// Altitude is along the surface normal, which on the equator is
	// purely radial.
	diff := ecefMag(obs100) - ecefMag(obs0)
	if math.Abs(diff-100.0) > 0.01 {
		t.Errorf("altitude difference = %.3f m, want 100 m", diff)
	}
}

func TestECEFToGeodetic_Roundtrip(t *testing.T) {
	lat, lon, alt := 40.7128, -74.006, 250.0
	obs := NewObserverPosition(lat, lon, alt)
	geo := ECEFToGeodetic(obs.ECEFx, obs.ECEFy, obs.ECEFz)

	if math.Abs(geo.LatDeg-lat) > 1e-6 {
		t.Errorf("roundtrip latitude = %.8f, want %.8f", geo.LatDeg, lat)
	}
	if math.Abs(geo.LonDeg-lon) > 1e-6 {
		t.Errorf("roundtrip longitude = %.8f, want %.8f", geo.LonDeg, lon)
	}
	if math.Abs(geo.AltM-alt) > 0.1 {
		t.Errorf("roundtrip altitude = %.3f m, want %.1f m", geo.AltM, alt)
	}
}

func TestECEFToLookAngles_DirectlyOverhead(t *testing.T) {
	// Observer at equator/prime meridian with a satellite straight up:
	// +x is the local zenith there.
	obs := NewObserverPosition(0, 0, 0)

	satAlt := 400000.0
	la := ECEFToLookAngles(obs, obs.ECEFx+satAlt, obs.ECEFy, obs.ECEFz)

	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400.0) > 1.0 {
		t.Errorf("overhead range = %.2f km, want ~400", la.RangeKm)
	}
}

func TestECEFToLookAngles_HorizonElevation(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	// A satellite 20 degrees downrange at 400 km altitude sits near the
	// horizon for this observer.
	sat := NewObserverPosition(0, 20, 400000)
	la := ECEFToLookAngles(obs, sat.ECEFx, sat.ECEFy, sat.ECEFz)

	if la.ElevationDeg < -5 || la.ElevationDeg > 45 {
		t.Errorf("near-horizon elevation = %.2f deg, expected between -5 and 45", la.ElevationDeg)
	}
}

func TestECEFToLookAngles_AzimuthDirections(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	// North: azimuth near 0/360.
	satN := NewObserverPosition(10, 0, 400000)
	laN := ECEFToLookAngles(obs, satN.ECEFx, satN.ECEFy, satN.ECEFz)
	if laN.AzimuthDeg > 30 && laN.AzimuthDeg < 330 {
		t.Errorf("northward azimuth = %.2f deg, want near 0/360", laN.AzimuthDeg)
	}

	// East: azimuth near 90.
	satE := NewObserverPosition(0, 10, 400000)
	laE := ECEFToLookAngles(obs, satE.ECEFx, satE.ECEFy, satE.ECEFz)
	if math.Abs(laE.AzimuthDeg-90.0) > 30 {
		t.Errorf("eastward azimuth = %.2f deg, want near 90", laE.AzimuthDeg)
	}

	// South: azimuth near 180.
	satS := NewObserverPosition(-10, 0, 400000)
	laS := ECEFToLookAngles(obs, satS.ECEFx, satS.ECEFy, satS.ECEFz)
	if math.Abs(laS.AzimuthDeg-180.0) > 30 {
		t.Errorf("southward azimuth = %.2f deg, want near 180", laS.AzimuthDeg)
	}
}

func TestECEFToLookAngles_RangePositive(t *testing.T) {
	obs := NewObserverPosition(40.7128, -74.006, 10)
	la := ECEFToLookAngles(obs, 6778000.0, 0, 0)
	if la.RangeKm <= 0 {
		t.Errorf("range should be positive, got %.2f km", la.RangeKm)
	}
}
