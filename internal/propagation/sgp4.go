package propagation

import (
	"fmt"
	"math"
)

// alteredDensity returns the density fit constants for a perigee height.
// Below 156 km the constants are moved down with the perigee, with a hard
// stop at the 98 km severe branch.
func alteredDensity(perigeeKm float64) (s4, qoms24 float64) {
	s4 = sconst
	qoms24 = qoms2t
	if perigeeKm < perigeeAlt {
		s4 = perigeeKm - 78.0
		if perigeeKm <= perigeeSevere {
			s4 = 20.0
		}
		qoms24 = math.Pow((120.0-s4)*ae/xkmper, 4)
		s4 = s4/xkmper + ae
	}
	return s4, qoms24
}

// SGP4 is the near-Earth model for element sets with periods under 225
// minutes. Initialization recovers the mean elements and precomputes the
// drag coefficient family; Propagate is then read-only and safe to call
// from any number of goroutines.
type SGP4 struct {
	el  Elements
	rec recovered

	// simple drops the higher-order drag terms for perigees under 220 km,
	// where the full polynomial overfits.
	simple bool

	eta          float64
	c1, c4, c5   float64
	d2, d3, d4   float64
	t2cof, t3cof float64
	t4cof, t5cof float64
	omgcof       float64
	xmcof        float64
	xnodcf       float64
	delmo, sinmo float64
}

// NewSGP4 initializes the model from one element record.
func NewSGP4(el Elements) *SGP4 {
	s := &SGP4{el: el, rec: recoverElements(el)}
	r := &s.rec

	s.simple = r.perigeeKm < perigeeSimple
	s4, qoms24 := alteredDensity(r.perigeeKm)

	tsi := 1.0 / (r.aodp - s4)
	s.eta = r.aodp * el.Eccentricity * tsi
	etasq := s.eta * s.eta
	eeta := el.Eccentricity * s.eta
	psisq := math.Abs(1.0 - etasq)
	coef := qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)

	c2 := coef1 * r.xnodp *
		(r.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
			0.75*ck2*tsi/psisq*r.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	s.c1 = el.Bstar * c2
	s.c4 = 2.0 * r.xnodp * coef1 * r.aodp * r.betao2 *
		(s.eta*(2.0+0.5*etasq) + el.Eccentricity*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(r.aodp*psisq)*
				(-3.0*r.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*r.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*
						math.Cos(2.0*el.ArgPerigee)))
	s.c5 = 2.0 * coef1 * r.aodp * r.betao2 *
		(1.0 + 2.75*(etasq+eeta) + eeta*etasq)

	// The c3 family divides by eccentricity; near-circular orbits skip it.
	if el.Eccentricity > 1.0e-4 {
		c3 := coef * tsi * a3ovk2 * r.xnodp * ae * r.sinio /
			el.Eccentricity
		s.omgcof = el.Bstar * c3 * math.Cos(el.ArgPerigee)
		s.xmcof = -tothrd * coef * el.Bstar * ae / eeta
	}

	s.xnodcf = 3.5 * r.betao2 * r.xhdot1 * s.c1
	s.t2cof = 1.5 * s.c1
	s.delmo = math.Pow(1.0+s.eta*math.Cos(el.MeanAnomaly), 3)
	s.sinmo = math.Sin(el.MeanAnomaly)

	if !s.simple {
		c1sq := s.c1 * s.c1
		s.d2 = 4.0 * r.aodp * tsi * c1sq
		temp := s.d2 * tsi * s.c1 / 3.0
		s.d3 = (17.0*r.aodp + s4) * temp
		s.d4 = 0.5 * temp * r.aodp * tsi * (221.0*r.aodp + 31.0*s4) * s.c1
		s.t3cof = s.d2 + 2.0*c1sq
		s.t4cof = 0.25 * (3.0*s.d3 + s.c1*(12.0*s.d2+10.0*c1sq))
		s.t5cof = 0.2 * (3.0*s.d4 + 12.0*s.c1*s.d3 + 6.0*s.d2*s.d2 +
			15.0*c1sq*(2.0*s.d2+c1sq))
	}
	return s
}

// Name reports which model this propagator runs.
func (s *SGP4) Name() Model { return ModelSGP4 }

// Period returns the orbital period from the recovered mean motion, minutes.
func (s *SGP4) Period() float64 { return twoPi / s.rec.xnodp }

// Propagate evaluates the model tsince minutes after epoch.
func (s *SGP4) Propagate(tsince float64) (StateVector, error) {
	el := &s.el
	r := &s.rec

	// Secular gravity and drag.
	xmdf := el.MeanAnomaly + r.xmdot*tsince
	omgadf := el.ArgPerigee + r.omgdot*tsince
	xnoddf := el.NodeRA + r.xnodot*tsince
	omega := omgadf
	xmp := xmdf
	tsq := tsince * tsince
	xnode := xnoddf + s.xnodcf*tsq
	tempa := 1.0 - s.c1*tsince
	tempe := el.Bstar * s.c4 * tsince
	templ := s.t2cof * tsq

	if !s.simple {
		delomg := s.omgcof * tsince
		delm := s.xmcof *
			(math.Pow(1.0+s.eta*math.Cos(xmdf), 3) - s.delmo)
		temp := delomg + delm
		xmp = xmdf + temp
		omega = omgadf - temp
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa -= s.d2*tsq + s.d3*tcube + s.d4*tfour
		tempe += el.Bstar * s.c5 * (math.Sin(xmp) - s.sinmo)
		templ += s.t3cof*tcube + s.t4cof*tfour + tsince*tfour*s.t5cof
	}

	a := r.aodp * tempa * tempa
	e := el.Eccentricity - tempe
	if err := checkDecay(e, a); err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	e = clampEcc(e)

	xl := xmp + omega + xnode + r.xnodp*templ
	xn := xke / math.Pow(a, 1.5)

	axn, ayn, xlt := longPeriod(a, e, omega, xl, r.xlcof, r.aycof)
	sv, err := finishState(a, xn, axn, ayn, xlt, xnode, el.Inclination,
		r.cosio, r.sinio, r.x3thm1, r.x1mth2, r.x7thm1)
	if err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	return sv, nil
}
