package propagation

import (
	"fmt"
	"math"
)

// SGP is the original simplified general perturbations model. It has no
// drag coefficient family of its own: orbit contraction comes straight from
// the published first and second mean motion derivatives, and eccentricity
// follows by holding the perigee height fixed.
type SGP struct {
	el  Elements
	rec recovered
	q0  float64 // epoch perigee distance, Earth radii
}

// NewSGP initializes the model from one element record.
func NewSGP(el Elements) *SGP {
	s := &SGP{el: el, rec: recoverElements(el)}
	s.q0 = s.rec.aodp * (1.0 - el.Eccentricity)
	return s
}

// Name reports which model this propagator runs.
func (s *SGP) Name() Model { return ModelSGP }

// Period returns the orbital period from the recovered mean motion, minutes.
func (s *SGP) Period() float64 { return twoPi / s.rec.xnodp }

// Propagate evaluates the model tsince minutes after epoch.
func (s *SGP) Propagate(tsince float64) (StateVector, error) {
	el := &s.el
	r := &s.rec

	// Mean motion under the published derivatives, then the semi-major
	// axis that motion implies.
	xnc := el.MeanMotion + (2.0*el.NDot+3.0*el.NDDot*tsince)*tsince
	a := r.aodp * math.Pow(el.MeanMotion/xnc, tothrd)

	// Contraction at constant perigee distance.
	e := eccFloor
	if a > s.q0 {
		e = 1.0 - s.q0/a
	}
	if err := checkDecay(e, a); err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	e = clampEcc(e)

	xnodes := el.NodeRA + r.xnodot*tsince
	omgas := el.ArgPerigee + r.omgdot*tsince
	xlo := el.MeanAnomaly + el.ArgPerigee + el.NodeRA
	xls := mod2pi(xlo + (el.MeanMotion+r.omgdot+r.xnodot+
		(el.NDot+el.NDDot*tsince)*tsince)*tsince)

	xn := xke / math.Pow(a, 1.5)
	axn, ayn, xlt := longPeriod(a, e, omgas, xls, r.xlcof, r.aycof)
	sv, err := finishState(a, xn, axn, ayn, xlt, xnodes, el.Inclination,
		r.cosio, r.sinio, r.x3thm1, r.x1mth2, r.x7thm1)
	if err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	return sv, nil
}
