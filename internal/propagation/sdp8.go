package propagation

import (
	"fmt"
	"math"
)

// SDP8 couples the SGP8 rate-based drag formulation to the deep-space
// corrections. Only the first-order rates survive: mean motion decays
// linearly and eccentricity takes the low-order edot term.
type SDP8 struct {
	el   Elements
	rec  recovered
	ds   *deepSpace
	xndt float64
	edot float64
}

// NewSDP8 initializes the model from one element record.
func NewSDP8(el Elements) *SDP8 {
	rec := recoverElements(el)
	dg := newDrag8(el, rec)
	return &SDP8{
		el:   el,
		rec:  rec,
		ds:   newDeepSpace(el, rec),
		xndt: dg.xndt,
		edot: -tothrd * dg.xndtn * (1.0 - el.Eccentricity),
	}
}

// Name reports which model this propagator runs.
func (s *SDP8) Name() Model { return ModelSDP8 }

// Period returns the orbital period from the recovered mean motion, minutes.
func (s *SDP8) Period() float64 { return twoPi / s.rec.xnodp }

// Resonant reports whether the orbit sits in a geopotential resonance band,
// and if so whether it is the synchronous one.
func (s *SDP8) Resonant() (resonant, synchronous bool) {
	return s.ds.resonant, s.ds.synchronous
}

// Propagate evaluates the model tsince minutes after epoch.
func (s *SDP8) Propagate(tsince float64) (StateVector, error) {
	el := &s.el
	r := &s.rec

	st := dsState{t: tsince, xn: r.xnodp}
	st.xll = el.MeanAnomaly + r.xmdot*tsince
	st.omgadf = el.ArgPerigee + r.omgdot*tsince
	st.xnode = el.NodeRA + r.xnodot*tsince

	s.ds.secular(*el, &st)

	tsq := tsince * tsince
	xn := st.xn + s.xndt*tsince
	a := math.Pow(xke/xn, tothrd)
	st.em += s.edot * tsince
	if err := checkDecay(st.em, a); err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}

	// Quadratic mean anomaly correction from the decaying mean motion.
	st.xll += 0.5 * s.xndt * tsq

	s.ds.periodic(&st)
	st.em = clampEcc(st.em)

	xl := st.xll + st.omgadf + st.xnode

	axn, ayn, xlt := longPeriod(a, st.em, st.omgadf, xl, r.xlcof, r.aycof)
	sv, err := finishState(a, xn, axn, ayn, xlt, st.xnode, st.xinc,
		r.cosio, r.sinio, r.x3thm1, r.x1mth2, r.x7thm1)
	if err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	return sv, nil
}
