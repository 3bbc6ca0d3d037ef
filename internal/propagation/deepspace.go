package propagation

import "math"

// Lunisolar and geopotential resonance constants. The z* values are the
// obliquity-fixed solar orientation; the lunar orientation is rebuilt from
// the epoch because the lunar node regresses with an 18.6 year period.
const (
	zns  = 1.19459e-5
	c1ss = 2.9864797e-6
	zes  = 1.675e-2
	znl  = 1.5835218e-4
	c1l  = 4.7968065e-7
	zel  = 5.490e-2

	zcosgs = 1.945905e-1
	zsings = -9.8088458e-1
	zcosis = 9.1744867e-1
	zsinis = 3.9785416e-1

	root22 = 1.7891679e-6
	root32 = 3.7393792e-7
	root44 = 7.3636953e-9
	root52 = 1.1428639e-7
	root54 = 2.1765803e-9

	q22 = 1.7891679e-6
	q31 = 2.1460748e-6
	q33 = 2.2123015e-7

	g22 = 5.7686396
	g32 = 9.5240898e-1
	g44 = 1.8014998
	g52 = 1.0508330
	g54 = 4.4108898

	// thdt is the Earth rotation rate in rad/min.
	thdt = 4.3752691e-3
)

// dsState is the working element set a deep-space evaluation threads through
// the secular and periodic stages. It is rebuilt per call, so the model
// structs stay immutable.
type dsState struct {
	t      float64 // minutes since epoch
	em     float64 // perturbed eccentricity
	xinc   float64 // perturbed inclination, rad
	omgadf float64 // perturbed argument of perigee, rad
	xnode  float64 // perturbed node, rad
	xll    float64 // perturbed mean longitude term, rad
	xn     float64 // perturbed mean motion, rad/min
}

// lunisolarAmps holds the output of one third-body pass: the secular rate
// contributions and the long-period amplitude set for that body.
type lunisolarAmps struct {
	se, si, sl, sgh, sh                            float64
	e2, e3, i2, i3, l2, l3, l4, gh2, gh3, gh4, h2, h3 float64
}

// deepSpace carries every epoch constant the deep-space secular and periodic
// corrections need. Built once per element record; read-only afterwards.
type deepSpace struct {
	thgr   float64 // GMST at epoch, rad
	xnq    float64 // recovered mean motion
	xqncl  float64 // epoch inclination
	omegaq float64 // epoch argument of perigee
	zmol   float64 // lunar mean anomaly at epoch
	zmos   float64 // solar mean anomaly at epoch

	// Combined lunisolar secular rates.
	sse, ssi, ssl, ssg, ssh float64

	// Solar and lunar long-period amplitude sets.
	sol, lun lunisolarAmps

	// Resonance classification and the epoch integrator seed. The seed is
	// fixed at construction; the secular step expands about it.
	resonant    bool
	synchronous bool
	xlamo       float64
	xfact       float64
	xli         float64
	xni         float64
	atime       float64

	// Synchronous resonance coefficients.
	del1, del2, del3     float64
	fasx2, fasx4, fasx6  float64

	// Half-day resonance coefficients.
	d2201, d2211, d3210, d3222, d4410 float64
	d4422, d5220, d5232, d5421, d5433 float64

	sinio, cosio, omgdot float64
}

// thetaG returns the Greenwich Mean Sidereal Time, in radians, for an epoch
// expressed as days since 1950 Jan 0.0 UTC. 1992 Astronomical Almanac, B6.
func thetaG(ds50 float64) float64 {
	return mod2pi(6.3003880987*ds50 + 1.72944494)
}

// newDeepSpace computes the lunisolar secular rates, long-period amplitude
// sets and resonance coefficients for one element record.
func newDeepSpace(el Elements, r recovered) *deepSpace {
	d := &deepSpace{
		thgr:   thetaG(el.EpochDS50),
		xnq:    r.xnodp,
		xqncl:  el.Inclination,
		omegaq: el.ArgPerigee,
		sinio:  r.sinio,
		cosio:  r.cosio,
		omgdot: r.omgdot,
	}

	eq := el.Eccentricity
	aqnv := 1.0 / r.aodp
	sinq := math.Sin(el.NodeRA)
	cosq := math.Cos(el.NodeRA)

	// Lunar orientation at epoch, from days since 1900 Jan 0.5.
	day := el.EpochDS50 + 18261.5
	xnodce := 4.5236020 - 9.2422029e-4*day
	stem := math.Sin(xnodce)
	ctem := math.Cos(xnodce)
	zcosil := 0.91375164 - 0.03568096*ctem
	zsinil := math.Sqrt(1.0 - zcosil*zcosil)
	zsinhl := 0.089683511 * stem / zsinil
	zcoshl := math.Sqrt(1.0 - zsinhl*zsinhl)
	c := 4.7199672 + 0.22997150*day
	gam := 5.8351514 + 0.0019443680*day
	d.zmol = mod2pi(c - gam)
	zx := 0.39785416 * stem / zsinil
	zy := zcoshl*ctem + 0.91744867*zsinhl*stem
	zx = gam + math.Atan2(zx, zy) - xnodce
	zcosgl := math.Cos(zx)
	zsingl := math.Sin(zx)
	d.zmos = mod2pi(6.2565837 + 0.017201977*day)

	xnoi := 1.0 / d.xnq
	d.sol = lunisolarPass(zcosgs, zsings, zcosis, zsinis, cosq, sinq,
		c1ss, zns, zes, eq, el, r, xnoi)
	d.lun = lunisolarPass(zcosgl, zsingl, zcosil, zsinil,
		zcoshl*cosq+zsinhl*sinq, sinq*zcoshl-cosq*zsinhl,
		c1l, znl, zel, eq, el, r, xnoi)

	d.sse = d.sol.se + d.lun.se
	d.ssi = d.sol.si + d.lun.si
	d.ssl = d.sol.sl + d.lun.sl
	d.ssh = (d.sol.sh + d.lun.sh) / r.sinio
	d.ssg = d.sol.sgh + d.lun.sgh - r.cosio*d.ssh

	// Geopotential resonance classification.
	switch {
	case d.xnq > 0.0034906585 && d.xnq < 0.0052359877:
		d.initSynchronous(el, r, aqnv)
	case d.xnq >= 0.00826 && d.xnq <= 0.00924 && eq >= 0.5:
		d.initHalfDay(el, r, eq, aqnv)
	default:
		return d
	}

	d.xfact = d.xfact - d.xnq
	d.xli = d.xlamo
	d.xni = d.xnq
	d.atime = 0
	return d
}

// initSynchronous sets up the 1-day (geostationary band) resonance terms.
func (d *deepSpace) initSynchronous(el Elements, r recovered, aqnv float64) {
	d.resonant = true
	d.synchronous = true

	g200 := 1.0 + r.eosq*(-2.5+0.8125*r.eosq)
	g310 := 1.0 + 2.0*r.eosq
	g300 := 1.0 + r.eosq*(-6.0+6.60937*r.eosq)
	f220 := 0.75 * (1.0 + r.cosio) * (1.0 + r.cosio)
	f311 := 0.9375*r.sinio*r.sinio*(1.0+3.0*r.cosio) - 0.75*(1.0+r.cosio)
	f330 := 1.0 + r.cosio
	f330 = 1.875 * f330 * f330 * f330

	del1 := 3.0 * d.xnq * d.xnq * aqnv * aqnv
	d.del2 = 2.0 * del1 * f220 * g200 * q22
	d.del3 = 3.0 * del1 * f330 * g300 * q33 * aqnv
	d.del1 = del1 * f311 * g310 * q31 * aqnv
	d.fasx2 = 0.13130908
	d.fasx4 = 2.8843198
	d.fasx6 = 0.37448087

	d.xlamo = el.MeanAnomaly + el.NodeRA + el.ArgPerigee - d.thgr
	xpidot := r.omgdot + r.xnodot
	d.xfact = r.xmdot + xpidot - thdt + d.ssl + d.ssg + d.ssh
}

// initHalfDay sets up the 12-hour (Molniya band) resonance terms.
func (d *deepSpace) initHalfDay(el Elements, r recovered, eq, aqnv float64) {
	d.resonant = true

	eosq := r.eosq
	eoc := eq * eosq

	g201 := -0.306 - (eq-0.64)*0.440
	var g211, g310, g322, g410, g422, g520 float64
	if eq <= 0.65 {
		g211 = 3.616 - 13.247*eq + 16.290*eosq
		g310 = -19.302 + 117.390*eq - 228.419*eosq + 156.591*eoc
		g322 = -18.9068 + 109.7927*eq - 214.6334*eosq + 146.5816*eoc
		g410 = -41.122 + 242.694*eq - 471.094*eosq + 313.953*eoc
		g422 = -146.407 + 841.880*eq - 1629.014*eosq + 1083.435*eoc
		g520 = -532.114 + 3017.977*eq - 5740.0*eosq + 3708.276*eoc
	} else {
		g211 = -72.099 + 331.819*eq - 508.738*eosq + 266.724*eoc
		g310 = -346.844 + 1582.851*eq - 2415.925*eosq + 1246.113*eoc
		g322 = -342.585 + 1554.908*eq - 2366.899*eosq + 1215.972*eoc
		g410 = -1052.797 + 4758.686*eq - 7193.992*eosq + 3651.957*eoc
		g422 = -3581.69 + 16178.11*eq - 24462.77*eosq + 12422.52*eoc
		if eq <= 0.715 {
			g520 = 1464.74 - 4664.75*eq + 3763.64*eosq
		} else {
			g520 = -5149.66 + 29936.92*eq - 54087.36*eosq + 31324.56*eoc
		}
	}

	var g533, g521, g532 float64
	if eq < 0.7 {
		g533 = -919.2277 + 4988.61*eq - 9064.77*eosq + 5542.21*eoc
		g521 = -822.71072 + 4568.6173*eq - 8491.4146*eosq + 5337.524*eoc
		g532 = -853.666 + 4690.25*eq - 8624.77*eosq + 5341.4*eoc
	} else {
		g533 = -37995.78 + 161616.52*eq - 229838.2*eosq + 109377.94*eoc
		g521 = -51752.104 + 218913.95*eq - 309468.16*eosq + 146349.42*eoc
		g532 = -40023.88 + 170470.89*eq - 242699.48*eosq + 115605.82*eoc
	}

	sini2 := r.sinio * r.sinio
	f220 := 0.75 * (1.0 + 2.0*r.cosio + r.theta2)
	f221 := 1.5 * sini2
	f321 := 1.875 * r.sinio * (1.0 - 2.0*r.cosio - 3.0*r.theta2)
	f322 := -1.875 * r.sinio * (1.0 + 2.0*r.cosio - 3.0*r.theta2)
	f441 := 35.0 * sini2 * f220
	f442 := 39.3750 * sini2 * sini2
	f522 := 9.84375 * r.sinio * (sini2*(1.0-2.0*r.cosio-5.0*r.theta2) +
		0.33333333*(-2.0+4.0*r.cosio+6.0*r.theta2))
	f523 := r.sinio * (4.92187512*sini2*(-2.0-4.0*r.cosio+10.0*r.theta2) +
		6.56250012*(1.0+2.0*r.cosio-3.0*r.theta2))
	f542 := 29.53125 * r.sinio * (2.0 - 8.0*r.cosio +
		r.theta2*(-12.0+8.0*r.cosio+10.0*r.theta2))
	f543 := 29.53125 * r.sinio * (-2.0 - 8.0*r.cosio +
		r.theta2*(12.0+8.0*r.cosio-10.0*r.theta2))

	xno2 := d.xnq * d.xnq
	ainv2 := aqnv * aqnv
	temp1 := 3.0 * xno2 * ainv2
	temp := temp1 * root22
	d.d2201 = temp * f220 * g201
	d.d2211 = temp * f221 * g211
	temp1 *= aqnv
	temp = temp1 * root32
	d.d3210 = temp * f321 * g310
	d.d3222 = temp * f322 * g322
	temp1 *= aqnv
	temp = 2.0 * temp1 * root44
	d.d4410 = temp * f441 * g410
	d.d4422 = temp * f442 * g422
	temp1 *= aqnv
	temp = temp1 * root52
	d.d5220 = temp * f522 * g520
	d.d5232 = temp * f523 * g532
	temp = 2.0 * temp1 * root54
	d.d5421 = temp * f542 * g521
	d.d5433 = temp * f543 * g533

	d.xlamo = el.MeanAnomaly + 2.0*el.NodeRA - 2.0*d.thgr
	d.xfact = r.xmdot + 2.0*r.xnodot - 2.0*thdt + d.ssl + 2.0*d.ssh
}

// lunisolarPass runs the third-body perturbation algebra for one body given
// its orientation relative to the orbit plane, returning that body's secular
// rate contributions and long-period amplitudes.
func lunisolarPass(zcosg, zsing, zcosi, zsini, zcosh, zsinh float64,
	cc, zn, ze, eq float64, el Elements, r recovered, xnoi float64) lunisolarAmps {

	sing := math.Sin(el.ArgPerigee)
	cosg := math.Cos(el.ArgPerigee)

	a1 := zcosg*zcosh + zsing*zcosi*zsinh
	a3 := -zsing*zcosh + zcosg*zcosi*zsinh
	a7 := -zcosg*zsinh + zsing*zcosi*zcosh
	a8 := zsing * zsini
	a9 := zsing*zsinh + zcosg*zcosi*zcosh
	a10 := zcosg * zsini
	a2 := r.cosio*a7 + r.sinio*a8
	a4 := r.cosio*a9 + r.sinio*a10
	a5 := -r.sinio*a7 + r.cosio*a8
	a6 := -r.sinio*a9 + r.cosio*a10

	x1 := a1*cosg + a2*sing
	x2 := a3*cosg + a4*sing
	x3 := -a1*sing + a2*cosg
	x4 := -a3*sing + a4*cosg
	x5 := a5 * sing
	x6 := a6 * sing
	x7 := a5 * cosg
	x8 := a6 * cosg

	z31 := 12.0*x1*x1 - 3.0*x3*x3
	z32 := 24.0*x1*x2 - 6.0*x3*x4
	z33 := 12.0*x2*x2 - 3.0*x4*x4
	z1 := 3.0*(a1*a1+a2*a2) + z31*r.eosq
	z2 := 6.0*(a1*a3+a2*a4) + z32*r.eosq
	z3 := 3.0*(a3*a3+a4*a4) + z33*r.eosq
	z11 := -6.0*a1*a5 + r.eosq*(-24.0*x1*x7-6.0*x3*x5)
	z12 := -6.0*(a1*a6+a3*a5) +
		r.eosq*(-24.0*(x2*x7+x1*x8)-6.0*(x3*x6+x4*x5))
	z13 := -6.0*a3*a6 + r.eosq*(-24.0*x2*x8-6.0*x4*x6)
	z21 := 6.0*a2*a5 + r.eosq*(24.0*x1*x5-6.0*x3*x7)
	z22 := 6.0*(a4*a5+a2*a6) +
		r.eosq*(24.0*(x2*x5+x1*x6)-6.0*(x4*x7+x3*x8))
	z23 := 6.0*a4*a6 + r.eosq*(24.0*x2*x6-6.0*x4*x8)
	z1 = z1 + z1 + r.betao2*z31
	z2 = z2 + z2 + r.betao2*z32
	z3 = z3 + z3 + r.betao2*z33

	s3 := cc * xnoi
	s2 := -0.5 * s3 / r.betao
	s4 := s3 * r.betao
	s1 := -15.0 * eq * s4
	s5 := x1*x3 + x2*x4
	s6 := x2*x3 + x1*x4
	s7 := x2*x4 - x1*x3

	var out lunisolarAmps
	out.se = s1 * zn * s5
	out.si = s2 * zn * (z11 + z13)
	out.sl = -zn * s3 * (z1 + z3 - 14.0 - 6.0*r.eosq)
	out.sgh = s4 * zn * (z31 + z33 - 6.0)
	out.sh = -zn * s2 * (z21 + z23)
	// Near-equatorial orbits take no node correction from this body.
	if el.Inclination < 5.2359877e-2 {
		out.sh = 0
	}

	out.e2 = 2.0 * s1 * s6
	out.e3 = 2.0 * s1 * s7
	out.i2 = 2.0 * s2 * z12
	out.i3 = 2.0 * s2 * (z13 - z11)
	out.l2 = -2.0 * s3 * z2
	out.l3 = -2.0 * s3 * (z3 - z1)
	out.l4 = -2.0 * s3 * (-21.0 - 9.0*r.eosq) * ze
	out.gh2 = 2.0 * s4 * z32
	out.gh3 = 2.0 * s4 * (z33 - z31)
	out.gh4 = -18.0 * s4 * ze
	out.h2 = -2.0 * s2 * z22
	out.h3 = -2.0 * s2 * (z23 - z21)
	return out
}

// resonanceRates evaluates the resonance acceleration terms at a given mean
// longitude and reference time. The second derivative is scaled by the
// longitude rate to convert from per-longitude to per-minute.
func (d *deepSpace) resonanceRates(xli, atime float64) (xndot, xnddt float64) {
	if d.synchronous {
		xndot = d.del1*math.Sin(xli-d.fasx2) +
			d.del2*math.Sin(2.0*(xli-d.fasx4)) +
			d.del3*math.Sin(3.0*(xli-d.fasx6))
		xnddt = d.del1*math.Cos(xli-d.fasx2) +
			2.0*d.del2*math.Cos(2.0*(xli-d.fasx4)) +
			3.0*d.del3*math.Cos(3.0*(xli-d.fasx6))
	} else {
		xomi := d.omegaq + d.omgdot*atime
		x2omi := xomi + xomi
		x2li := xli + xli
		xndot = d.d2201*math.Sin(x2omi+xli-g22) +
			d.d2211*math.Sin(xli-g22) +
			d.d3210*math.Sin(xomi+xli-g32) +
			d.d3222*math.Sin(-xomi+xli-g32) +
			d.d4410*math.Sin(x2omi+x2li-g44) +
			d.d4422*math.Sin(x2li-g44) +
			d.d5220*math.Sin(xomi+xli-g52) +
			d.d5232*math.Sin(-xomi+xli-g52) +
			d.d5421*math.Sin(xomi+x2li-g54) +
			d.d5433*math.Sin(-xomi+x2li-g54)
		xnddt = d.d2201*math.Cos(x2omi+xli-g22) +
			d.d2211*math.Cos(xli-g22) +
			d.d3210*math.Cos(xomi+xli-g32) +
			d.d3222*math.Cos(-xomi+xli-g32) +
			d.d5220*math.Cos(xomi+xli-g52) +
			d.d5232*math.Cos(-xomi+xli-g52) +
			2.0*(d.d4410*math.Cos(x2omi+x2li-g44)+
				d.d4422*math.Cos(x2li-g44)+
				d.d5421*math.Cos(xomi+x2li-g54)+
				d.d5433*math.Cos(-xomi+x2li-g54))
	}
	xldot := d.xni + d.xfact
	xnddt *= xldot
	return xndot, xnddt
}

// secular applies the lunisolar secular drift and, for resonant orbits, a
// one-step series expansion of the resonance equations about the epoch seed.
// The expansion replaces the classic 720-minute restartable integrator; the
// seed (xlamo/xfact/xli/xni/atime) is kept so the step is anchored exactly
// where the integrator would start.
func (d *deepSpace) secular(el Elements, st *dsState) {
	t := st.t
	st.xll += d.ssl * t
	st.omgadf += d.ssg * t
	st.xnode += d.ssh * t
	st.em = el.Eccentricity + d.sse*t
	st.xinc = el.Inclination + d.ssi*t

	if st.xinc < 0 {
		st.xinc = -st.xinc
		st.xnode += math.Pi
		st.omgadf -= math.Pi
	}

	if !d.resonant {
		return
	}

	xndot, xnddt := d.resonanceRates(d.xli, d.atime)
	xldot := d.xni + d.xfact
	st.xn = d.xni + xndot*t + 0.5*xnddt*t*t
	xl := d.xli + xldot*t + 0.5*xndot*t*t

	temp := -st.xnode + d.thgr + t*thdt
	if d.synchronous {
		st.xll = xl - st.omgadf + temp
	} else {
		st.xll = xl + temp + temp
	}
	st.xll = mod2pi(st.xll)
}

// periodic applies the solar and lunar long-period corrections. Both bodies
// are re-evaluated at every call; the correction is a pure function of t.
func (d *deepSpace) periodic(st *dsState) {
	t := st.t
	sinis := math.Sin(st.xinc)
	cosis := math.Cos(st.xinc)

	// Solar phase.
	zm := d.zmos + zns*t
	zf := zm + 2.0*zes*math.Sin(zm)
	sinzf := math.Sin(zf)
	f2 := 0.5*sinzf*sinzf - 0.25
	f3 := -0.5 * sinzf * math.Cos(zf)
	ses := d.sol.e2*f2 + d.sol.e3*f3
	sis := d.sol.i2*f2 + d.sol.i3*f3
	sls := d.sol.l2*f2 + d.sol.l3*f3 + d.sol.l4*sinzf
	sghs := d.sol.gh2*f2 + d.sol.gh3*f3 + d.sol.gh4*sinzf
	shs := d.sol.h2*f2 + d.sol.h3*f3

	// Lunar phase.
	zm = d.zmol + znl*t
	zf = zm + 2.0*zel*math.Sin(zm)
	sinzf = math.Sin(zf)
	f2 = 0.5*sinzf*sinzf - 0.25
	f3 = -0.5 * sinzf * math.Cos(zf)
	sel := d.lun.e2*f2 + d.lun.e3*f3
	sil := d.lun.i2*f2 + d.lun.i3*f3
	sll := d.lun.l2*f2 + d.lun.l3*f3 + d.lun.l4*sinzf
	sghl := d.lun.gh2*f2 + d.lun.gh3*f3 + d.lun.gh4*sinzf
	shl := d.lun.h2*f2 + d.lun.h3*f3

	pe := ses + sel
	pinc := sis + sil
	pl := sls + sll
	pgh := sghs + sghl
	ph := shs + shl

	st.xinc += pinc
	st.em += pe
	if st.xinc < 0 {
		st.xinc = -st.xinc
		st.xnode += math.Pi
		st.omgadf -= math.Pi
	}

	if d.xqncl >= 0.2 {
		// Apply directly.
		ph /= d.sinio
		pgh -= d.cosio * ph
		st.omgadf += pgh
		st.xnode += ph
		st.xll += pl
		return
	}

	// Lyddane form for low inclination, where the node correction alone
	// is singular.
	sinok := math.Sin(st.xnode)
	cosok := math.Cos(st.xnode)
	alfdp := sinis*sinok + ph*cosok + pinc*cosis*sinok
	betdp := sinis*cosok - ph*sinok + pinc*cosis*cosok
	st.xnode = mod2pi(st.xnode)
	xls := st.xll + st.omgadf + cosis*st.xnode +
		pl + pgh - pinc*st.xnode*sinis
	xnoh := st.xnode
	st.xnode = math.Atan2(alfdp, betdp)
	if math.Abs(xnoh-st.xnode) > math.Pi {
		if st.xnode < xnoh {
			st.xnode += twoPi
		} else {
			st.xnode -= twoPi
		}
	}
	st.xll += pl
	st.omgadf = xls - st.xll - math.Cos(st.xinc)*st.xnode
}
