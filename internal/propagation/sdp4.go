package propagation

import (
	"fmt"
	"math"
)

// SDP4 extends the SGP4 gravitational core with lunisolar secular drift,
// long-period lunisolar periodics and geopotential resonance for orbits with
// periods of 225 minutes and up. The drag polynomial is cut to first order;
// deep-space orbits see too little atmosphere for the higher terms.
type SDP4 struct {
	el  Elements
	rec recovered
	ds  *deepSpace

	c1, c4        float64
	t2cof, xnodcf float64
}

// NewSDP4 initializes the model from one element record.
func NewSDP4(el Elements) *SDP4 {
	s := &SDP4{el: el, rec: recoverElements(el)}
	r := &s.rec

	s4, qoms24 := alteredDensity(r.perigeeKm)
	tsi := 1.0 / (r.aodp - s4)
	eta := r.aodp * el.Eccentricity * tsi
	etasq := eta * eta
	eeta := el.Eccentricity * eta
	psisq := math.Abs(1.0 - etasq)
	coef := qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)

	c2 := coef1 * r.xnodp *
		(r.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
			0.75*ck2*tsi/psisq*r.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	s.c1 = el.Bstar * c2
	s.c4 = 2.0 * r.xnodp * coef1 * r.aodp * r.betao2 *
		(eta*(2.0+0.5*etasq) + el.Eccentricity*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(r.aodp*psisq)*
				(-3.0*r.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*r.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*
						math.Cos(2.0*el.ArgPerigee)))
	s.xnodcf = 3.5 * r.betao2 * r.xhdot1 * s.c1
	s.t2cof = 1.5 * s.c1

	s.ds = newDeepSpace(el, *r)
	return s
}

// Name reports which model this propagator runs.
func (s *SDP4) Name() Model { return ModelSDP4 }

// Period returns the orbital period from the recovered mean motion, minutes.
func (s *SDP4) Period() float64 { return twoPi / s.rec.xnodp }

// Resonant reports whether the orbit sits in a geopotential resonance band,
// and if so whether it is the synchronous one.
func (s *SDP4) Resonant() (resonant, synchronous bool) {
	return s.ds.resonant, s.ds.synchronous
}

// Propagate evaluates the model tsince minutes after epoch.
func (s *SDP4) Propagate(tsince float64) (StateVector, error) {
	el := &s.el
	r := &s.rec

	xmdf := el.MeanAnomaly + r.xmdot*tsince
	tsq := tsince * tsince

	st := dsState{t: tsince, xn: r.xnodp}
	st.xll = xmdf + r.xnodp*s.t2cof*tsq
	st.omgadf = el.ArgPerigee + r.omgdot*tsince
	st.xnode = el.NodeRA + r.xnodot*tsince + s.xnodcf*tsq
	tempa := 1.0 - s.c1*tsince
	tempe := el.Bstar * s.c4 * tsince

	s.ds.secular(*el, &st)

	a := math.Pow(xke/st.xn, tothrd) * tempa * tempa
	st.em -= tempe
	if err := checkDecay(st.em, a); err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}

	s.ds.periodic(&st)
	st.em = clampEcc(st.em)

	xl := st.xll + st.omgadf + st.xnode
	xn := xke / math.Pow(a, 1.5)

	axn, ayn, xlt := longPeriod(a, st.em, st.omgadf, xl, r.xlcof, r.aycof)
	sv, err := finishState(a, xn, axn, ayn, xlt, st.xnode, st.xinc,
		r.cosio, r.sinio, r.x3thm1, r.x1mth2, r.x7thm1)
	if err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	return sv, nil
}
