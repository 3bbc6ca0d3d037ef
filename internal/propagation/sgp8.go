package propagation

import (
	"fmt"
	"math"
)

// drag8 is the SGP8-family drag formulation: the power-density law evaluated
// as explicit rates of mean motion and eccentricity instead of the SGP4
// coefficient polynomial.
type drag8 struct {
	xndt  float64 // dn/dt at epoch, rad/min^2
	xndtn float64 // xndt / n
	edot  float64 // de/dt at epoch, 1/min
	xnddt float64 // d2n/dt2 at epoch, rad/min^3
	eddot float64 // d2e/dt2 at epoch, 1/min^2

	// truncated selects the linear/quadratic branch for orbits whose
	// relative decay rate is too small for the derivative chain to matter.
	truncated bool
}

// newDrag8 evaluates the density law and its first logarithmic derivatives
// at epoch. The second derivatives use the leading log-derivative terms of
// the c0/c1 chain, which dominate for every orbit the truncation test lets
// through.
func newDrag8(el Elements, r recovered) drag8 {
	var d drag8

	b := 2.0 * el.Bstar / rho
	po := r.aodp * r.betao2
	sing := math.Sin(el.ArgPerigee)
	cosg := math.Cos(el.ArgPerigee)
	tsi := 1.0 / (po - sconst)
	eta := el.Eccentricity * sconst * tsi
	eta2 := eta * eta
	psim2 := math.Abs(1.0 / (1.0 - eta2))
	alpha2 := 1.0 + r.eosq
	eeta := el.Eccentricity * eta
	cos2g := 2.0*cosg*cosg - 1.0

	d5 := tsi * psim2
	d1 := d5 / po
	d2 := 12.0 + eta2*(36.0+4.5*eta2)
	d3 := eta2 * (15.0 + 2.5*eta2)
	d4 := eta * (5.0 + 3.75*eta2)
	b1 := ck2 * r.x3thm1
	b2 := -ck2 * r.x1mth2
	b3 := a3ovk2 * r.sinio

	c0 := 0.5 * b * rho * qoms2t * r.xnodp * r.aodp *
		math.Pow(tsi, 4) * math.Pow(psim2, 3.5) / math.Sqrt(alpha2)
	c1 := 1.5 * r.xnodp * alpha2 * alpha2 * c0
	c4 := d1 * d3 * b2
	c5 := d5 * d4 * b3
	d.xndt = c1 * (2.0 + eta2*(3.0+34.0*r.eosq) +
		5.0*eeta*(4.0+eta2) + 8.5*r.eosq +
		d1*d2*b1 + c4*cos2g + c5*sing)
	d.xndtn = d.xndt / r.xnodp

	d.truncated = math.Abs(d.xndtn)*xmnpda < 2.16e-3
	if d.truncated {
		d.edot = -tothrd * d.xndtn * (1.0 - el.Eccentricity)
		return d
	}

	d6 := eta * (30.0 + 22.5*eta2)
	d7 := eta * (5.0 + 12.5*eta2)
	d8 := 1.0 + eta2*(6.75+eta2)
	c8 := d1 * d7 * b2
	c9 := d5 * d8 * b3
	d.edot = -c0 * (eta*(4.0+eta2+r.eosq*(15.5+7.0*eta2)) +
		el.Eccentricity*(5.0+15.0*eta2) +
		d1*d6*b1 + c8*cos2g + c9*sing)

	d20 := 0.5 * tothrd * d.xndtn
	aldtal := el.Eccentricity * d.edot / alpha2
	tsdtts := 2.0 * r.aodp * tsi * (d20*r.betao2 + el.Eccentricity*d.edot)
	etdt := (d.edot + el.Eccentricity*tsdtts) * tsi * sconst
	psdtps := -eta * etdt * psim2
	c0dtc0 := d20 + 4.0*tsdtts - aldtal - 7.0*psdtps
	c1dtc1 := d.xndtn + 4.0*aldtal + c0dtc0
	d.xnddt = c1dtc1 * d.xndt
	d.eddot = c0dtc0 * d.edot
	return d
}

// SGP8 is the near-Earth model that integrates drag as explicit element
// rates rather than the SGP4 polynomial. Same gravitational field, same
// evaluation tail, different drag bookkeeping.
type SGP8 struct {
	el   Elements
	rec  recovered
	drag drag8
}

// NewSGP8 initializes the model from one element record.
func NewSGP8(el Elements) *SGP8 {
	rec := recoverElements(el)
	return &SGP8{el: el, rec: rec, drag: newDrag8(el, rec)}
}

// Name reports which model this propagator runs.
func (s *SGP8) Name() Model { return ModelSGP8 }

// Period returns the orbital period from the recovered mean motion, minutes.
func (s *SGP8) Period() float64 { return twoPi / s.rec.xnodp }

// Propagate evaluates the model tsince minutes after epoch.
func (s *SGP8) Propagate(tsince float64) (StateVector, error) {
	el := &s.el
	r := &s.rec
	dg := &s.drag

	tsq := tsince * tsince
	xn := r.xnodp + dg.xndt*tsince + 0.5*dg.xnddt*tsq
	e := el.Eccentricity + dg.edot*tsince + 0.5*dg.eddot*tsq
	a := math.Pow(xke/xn, tothrd)
	if err := checkDecay(e, a); err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	e = clampEcc(e)

	// Mean anomaly carries the integral of the mean motion rates.
	xmam := el.MeanAnomaly + r.xmdot*tsince +
		0.5*dg.xndt*tsq + dg.xnddt*tsq*tsince/6.0
	omgas := el.ArgPerigee + r.omgdot*tsince
	xnodes := el.NodeRA + r.xnodot*tsince
	xl := mod2pi(xmam) + omgas + xnodes

	axn, ayn, xlt := longPeriod(a, e, omgas, xl, r.xlcof, r.aycof)
	sv, err := finishState(a, xn, axn, ayn, xlt, xnodes, el.Inclination,
		r.cosio, r.sinio, r.x3thm1, r.x1mth2, r.x7thm1)
	if err != nil {
		return StateVector{}, fmt.Errorf("catalog %d at %.1f min: %w",
			el.CatalogNumber, tsince, err)
	}
	return sv, nil
}
