package propagation

// Elements is a parsed NORAD element record in the internal units every
// model consumes: angles in radians, mean motion in radians per minute as
// encoded (Kozai convention), derivatives pre-divided by 2 and 6 the way the
// element sets carry them. The zero value is not usable; records come from
// the tle package or from tests.
//
// An Elements value is never mutated by the models, so one record may back
// any number of concurrently initialized propagators.
type Elements struct {
	CatalogNumber int

	// Epoch as a Julian date, and the same instant expressed as days since
	// 1950 Jan 0.0 UTC, which the deep-space initialization works in.
	EpochJulian float64
	EpochDS50   float64

	NDot  float64 // first derivative of mean motion / 2, rad/min^2
	NDDot float64 // second derivative of mean motion / 6, rad/min^3
	Bstar float64 // drag term, inverse Earth radii

	Inclination  float64 // rad
	NodeRA       float64 // right ascension of ascending node, rad
	Eccentricity float64
	ArgPerigee   float64 // rad
	MeanAnomaly  float64 // rad
	MeanMotion   float64 // rad/min, Kozai mean motion as encoded
}

// StateVector is an inertial (TEME of epoch) position/velocity pair.
type StateVector struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}
