package propagation

import "math"

// WGS-72 gravity model constants, the set the NORAD element sets are fitted
// against. Units are Earth radii, radians and minutes unless noted.
const (
	twoPi   = 2 * math.Pi
	deg2rad = math.Pi / 180.0

	xkmper = 6378.135 // Earth equatorial radius, km
	ae     = 1.0      // distance units per Earth radius
	xmnpda = 1440.0   // minutes per day
	secday = 86400.0

	xke = 7.43669161e-2 // sqrt(GM), (Earth radii)^1.5 per minute
	ck2 = 5.413080e-4   // 0.5 * J2 * ae^2
	ck4 = 6.2098875e-7  // -0.375 * J4 * ae^4
	xj3 = -2.53881e-6   // J3 zonal harmonic

	qoms2t = 1.88027916e-9 // (q0 - s)^4, (Earth radii)^4
	sconst = 1.01222928    // s density parameter, Earth radii
	rho    = 1.5696615e-1  // reference density for the B drag term

	tothrd = 2.0 / 3.0

	// a3ovk2 = -J3 / CK2 * ae^3, used by the long-period terms.
	a3ovk2 = -xj3 / ck2 * ae * ae * ae

	// eccFloor is applied after drag so near-circular orbits never feed a
	// negative or zero eccentricity into the long-period terms.
	eccFloor = 1.0e-6

	// aFloor is the smallest physically meaningful scaled semi-major axis;
	// anything below it is inside the drag regime the models cannot follow.
	aFloor = 0.95

	// Perigee-height thresholds (km) controlling the altered density
	// constants and the truncated drag polynomial.
	perigeeSimple = 220.0
	perigeeAlt    = 156.0
	perigeeSevere = 98.0

	// DeepSpaceThreshold is the orbital period, in minutes, at and above
	// which an element set is handed to the deep-space models.
	DeepSpaceThreshold = 225.0
)

// mod2pi reduces an angle to [0, 2*pi).
func mod2pi(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	return x
}
