package propagation

import "math"

// keplerTol is the Newton step magnitude at which the solver stops.
const keplerTol = 1.0e-12

// solveKepler solves Kepler's equation for the eccentric longitude given the
// mean longitude capu and the orientation-split eccentricity components
// (axn = e*cos(omega), ayn = e*sin(omega), plus any long-period additions).
// Newton-Raphson seeded with capu, each step clamped to 0.95 rad so a
// near-parabolic denominator cannot throw the iterate across the orbit. The
// solver never fails: after ten iterations the current iterate is accepted.
//
// Returns the eccentric longitude and its trig values together with the
// combined terms ecose and esine the short-period stage needs.
func solveKepler(capu, axn, ayn float64) (epw, sinepw, cosepw, ecose, esine float64) {
	epw = capu
	for i := 0; i < 10; i++ {
		sinepw = math.Sin(epw)
		cosepw = math.Cos(epw)
		ecose = axn*cosepw + ayn*sinepw
		esine = axn*sinepw - ayn*cosepw
		step := (capu - epw + esine) / (1.0 - ecose)
		if math.Abs(step) < keplerTol {
			return
		}
		if step > 0.95 {
			step = 0.95
		} else if step < -0.95 {
			step = -0.95
		}
		epw += step
	}
	sinepw = math.Sin(epw)
	cosepw = math.Cos(epw)
	ecose = axn*cosepw + ayn*sinepw
	esine = axn*sinepw - ayn*cosepw
	return
}

// recovered carries the un-Kozai'd mean elements and every epoch-constant
// quantity derived from them that more than one model needs: inclination
// trig, the J2-J4 secular rates, and the long-period coefficients.
type recovered struct {
	xnodp float64 // recovered (Brouwer) mean motion, rad/min
	aodp  float64 // recovered semi-major axis, Earth radii

	cosio, sinio   float64
	theta2, theta4 float64
	x3thm1         float64 // 3*cos^2(i) - 1
	x1mth2         float64 // 1 - cos^2(i)
	x7thm1         float64 // 7*cos^2(i) - 1

	eosq   float64 // e0^2
	betao2 float64 // 1 - e0^2
	betao  float64 // sqrt(1 - e0^2)

	xmdot  float64 // secular rate of mean anomaly, rad/min
	omgdot float64 // secular rate of argument of perigee, rad/min
	xnodot float64 // secular rate of right ascension of node, rad/min
	xhdot1 float64 // first-order part of xnodot, kept for the drag node term

	xlcof float64 // long-period coefficient for the L correction
	aycof float64 // long-period coefficient for the ayn correction

	perigeeKm float64 // perigee height above the ellipsoid, km
}

// recoverElements converts the encoded Kozai mean motion to the Brouwer
// mean motion and semi-major axis and precomputes the shared epoch
// constants. Every model starts from this.
func recoverElements(el Elements) recovered {
	var r recovered

	r.cosio = math.Cos(el.Inclination)
	r.sinio = math.Sin(el.Inclination)
	r.theta2 = r.cosio * r.cosio
	r.theta4 = r.theta2 * r.theta2
	r.x3thm1 = 3.0*r.theta2 - 1.0
	r.x1mth2 = 1.0 - r.theta2
	r.x7thm1 = 7.0*r.theta2 - 1.0

	r.eosq = el.Eccentricity * el.Eccentricity
	r.betao2 = 1.0 - r.eosq
	r.betao = math.Sqrt(r.betao2)

	a1 := math.Pow(xke/el.MeanMotion, tothrd)
	del1 := 1.5 * ck2 * r.x3thm1 / (a1 * a1 * r.betao * r.betao2)
	ao := a1 * (1.0 - del1*(0.5*tothrd+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * ck2 * r.x3thm1 / (ao * ao * r.betao * r.betao2)
	r.xnodp = el.MeanMotion / (1.0 + delo)
	r.aodp = ao / (1.0 - delo)

	pinvsq := 1.0 / (r.aodp * r.aodp * r.betao2 * r.betao2)
	temp1 := 3.0 * ck2 * pinvsq * r.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * r.xnodp

	r.xmdot = r.xnodp + 0.5*temp1*r.betao*r.x3thm1 +
		0.0625*temp2*r.betao*(13.0-78.0*r.theta2+137.0*r.theta4)
	x1m5th := 1.0 - 5.0*r.theta2
	r.omgdot = -0.5*temp1*x1m5th +
		0.0625*temp2*(7.0-114.0*r.theta2+395.0*r.theta4) +
		temp3*(3.0-36.0*r.theta2+49.0*r.theta4)
	r.xhdot1 = -temp1 * r.cosio
	r.xnodot = r.xhdot1 + (0.5*temp2*(4.0-19.0*r.theta2)+
		2.0*temp3*(3.0-7.0*r.theta2))*r.cosio

	r.xlcof = 0.125 * a3ovk2 * r.sinio * (3.0 + 5.0*r.cosio) / (1.0 + r.cosio)
	r.aycof = 0.25 * a3ovk2 * r.sinio

	r.perigeeKm = (r.aodp*(1.0-el.Eccentricity) - ae) * xkmper

	return r
}

// checkDecay applies the shared decay test after the secular/drag update:
// an eccentricity outside [-1e-3, 1) or a semi-major axis under the physical
// floor means the element set has been pushed past where the theory holds.
func checkDecay(e, a float64) error {
	if e >= 1.0 || e < -1.0e-3 || a < aFloor {
		return ErrDecayed
	}
	return nil
}

// clampEcc applies the shared post-drag eccentricity floor and near-parabolic
// cap so the long-period terms always see a usable value.
func clampEcc(e float64) float64 {
	if e < eccFloor {
		return eccFloor
	}
	if e > 1.0-eccFloor {
		return 1.0 - eccFloor
	}
	return e
}

// longPeriod applies the J3 long-period corrections, splitting the
// eccentricity along the perigee direction and shifting the mean longitude.
func longPeriod(a, e, omega, xl float64, xlcof, aycof float64) (axn, ayn, xlt float64) {
	axn = e * math.Cos(omega)
	temp := 1.0 / (a * (1.0 - e*e))
	xlt = xl + temp*xlcof*axn
	ayn = e*math.Sin(omega) + temp*aycof
	return
}

// finishState runs the stage every model ends with: solve Kepler for the
// eccentric longitude, apply the J2 short-period corrections, rotate the
// osculating elements into inertial axes and scale to km and km/s.
//
// The cosio/sinio/x3thm1/x1mth2/x7thm1 arguments are epoch values for every
// caller. The deep-space models perturb xinc, which feeds the short-period
// inclination terms directly, but keep the epoch trig for the J2
// coefficients; Spacetrack Report #3 evaluates them the same way.
func finishState(a, xn, axn, ayn, xlt, xnode, xinc float64,
	cosio, sinio, x3thm1, x1mth2, x7thm1 float64) (StateVector, error) {

	capu := mod2pi(xlt - xnode)
	_, sinepw, cosepw, ecose, esine := solveKepler(capu, axn, ayn)

	elsq := axn*axn + ayn*ayn
	pl := a * (1.0 - elsq)
	if pl < 0 {
		return StateVector{}, ErrNegativeSemiLatusRectum
	}

	r := a * (1.0 - ecose)
	invR := 1.0 / r
	rdot := xke * math.Sqrt(a) * esine * invR
	rfdot := xke * math.Sqrt(pl) * invR

	betal := math.Sqrt(1.0 - elsq)
	temp3 := 1.0 / (1.0 + betal)
	aOverR := a * invR
	cosu := aOverR * (cosepw - axn + ayn*esine*temp3)
	sinu := aOverR * (sinepw - ayn - axn*esine*temp3)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0

	invPl := 1.0 / pl
	temp1 := ck2 * invPl
	temp2 := temp1 * invPl

	rk := r*(1.0-1.5*temp2*betal*x3thm1) + 0.5*temp1*x1mth2*cos2u
	uk := u - 0.25*temp2*x7thm1*sin2u
	xnodek := xnode + 1.5*temp2*cosio*sin2u
	xinck := xinc + 1.5*temp2*cosio*sinio*cos2u
	rdotk := rdot - xn*temp1*x1mth2*sin2u
	rfdotk := rfdot + xn*temp1*(x1mth2*cos2u+1.5*x3thm1)

	sinuk := math.Sin(uk)
	cosuk := math.Cos(uk)
	sinik := math.Sin(xinck)
	cosik := math.Cos(xinck)
	sinnok := math.Sin(xnodek)
	cosnok := math.Cos(xnodek)

	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	ux := xmx*sinuk + cosnok*cosuk
	uy := xmy*sinuk + sinnok*cosuk
	uz := sinik * sinuk
	vx := xmx*cosuk - cosnok*sinuk
	vy := xmy*cosuk - sinnok*sinuk
	vz := sinik * cosuk

	vs := xkmper / 60.0
	return StateVector{
		X:  rk * ux * xkmper,
		Y:  rk * uy * xkmper,
		Z:  rk * uz * xkmper,
		VX: (rdotk*ux + rfdotk*vx) * vs,
		VY: (rdotk*uy + rfdotk*vy) * vs,
		VZ: (rdotk*uz + rfdotk*vz) * vs,
	}, nil
}
