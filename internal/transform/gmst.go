package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a UTC time to Julian Date.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// IAU-82 GMST polynomial coefficients (Vallado Eq 3-47), in seconds of
// time per power of T, T in Julian centuries from J2000.0. The linear
// term folds in 876600 hours of rotation.
const (
	gmstC0 = 67310.54841
	gmstC1 = 876600.0*3600.0 + 8640184.812866
	gmstC2 = 0.093104
	gmstC3 = -6.2e-6
)

// GMST returns Greenwich Mean Sidereal Time in radians for a UTC time,
// per the IAU-82 model. UT1-UTC is ignored, costing well under an
// arcsecond of rotation.
func GMST(t time.Time) float64 {
	tc := (JulianDate(t) - j2000) / 36525.0

	sec := gmstC0 + tc*(gmstC1+tc*(gmstC2+tc*gmstC3))
	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec * (2.0 * math.Pi / 86400.0)
}
