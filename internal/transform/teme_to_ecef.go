// Package transform rotates satellite states between reference frames.
//
// Propagation yields TEME-of-epoch (True Equator Mean Equinox) vectors;
// everything ground-relative — look angles, subsatellite points, the
// streamed keyframes — wants ECEF. The rotation here is GMST-only
// (TEME → PEF treated as ECEF), dropping polar motion and the equation
// of the equinoxes; the resulting error stays under ~50 m, fine for
// tracking and visualization.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"

	"github.com/star/satkit/internal/propagation"
)

const kmToM = 1000.0

// PositionTEME is a satellite state in the TEME frame, km and km/s.
type PositionTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// FromState relabels a propagation state vector as TEME input. The models
// already produce TEME of epoch, so no rotation is involved.
func FromState(sv propagation.StateVector) PositionTEME {
	return PositionTEME{
		X: sv.X, Y: sv.Y, Z: sv.Z,
		VX: sv.VX, VY: sv.VY, VZ: sv.VZ,
	}
}

// PositionECEF is a satellite state in the ECEF frame, meters and m/s.
type PositionECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// TEMEToECEF rotates a TEME state into ECEF at the given UTC time.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates a TEME state into ECEF using a precomputed
// GMST angle in radians. Batch callers propagating a whole fleet to one
// timestamp compute GMST once and reuse it here.
//
//	r_ecef = R3(θ) r_teme
//	v_ecef = R3(θ) v_teme − ω × r_ecef
//
// with R3 a rotation about the pole by θ and ω Earth's angular velocity.
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	sinG, cosG := math.Sincos(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := teme.Y*cosG - teme.X*sinG
	z := teme.Z

	// ω × r_ecef = (−ω y, ω x, 0), subtracted from the rotated velocity.
	vx := teme.VX*cosG + teme.VY*sinG + OmegaEarth*y
	vy := teme.VY*cosG - teme.VX*sinG - OmegaEarth*x
	vz := teme.VZ

	return PositionECEF{
		X:  x * kmToM,
		Y:  y * kmToM,
		Z:  z * kmToM,
		VX: vx * kmToM,
		VY: vy * kmToM,
		VZ: vz * kmToM,
	}
}

// Sanity bounds for an Earth-orbiting satellite: just under the lowest
// survivable perigee up to comfortably past GEO.
const (
	minOrbitRadiusM = 6200.0 * kmToM
	maxOrbitRadiusM = 50000.0 * kmToM
)

// ValidateECEF reports whether a position is finite and within plausible
// orbital radius. Propagation blowups (decayed satellites, diverged
// Kepler iterations) show up here as NaN or absurd magnitudes.
func ValidateECEF(pos PositionECEF) bool {
	mag2 := pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z
	if math.IsNaN(mag2) || math.IsInf(mag2, 0) {
		return false
	}
	mag := math.Sqrt(mag2)
	return mag >= minOrbitRadiusM && mag <= maxOrbitRadiusM
}
