package propagation

import (
	"fmt"
	"math"
)

// Model names one of the five propagation theories.
type Model string

const (
	ModelSGP  Model = "SGP"
	ModelSGP4 Model = "SGP4"
	ModelSGP8 Model = "SGP8"
	ModelSDP4 Model = "SDP4"
	ModelSDP8 Model = "SDP8"
)

// Propagator is an initialized model bound to one element record. All
// implementations are immutable after construction, so a single value can
// serve concurrent Propagate calls.
type Propagator interface {
	// Propagate returns the inertial state tsince minutes after epoch.
	// Negative tsince propagates backwards.
	Propagate(tsince float64) (StateVector, error)

	// Name identifies the theory behind this propagator.
	Name() Model

	// Period returns the orbital period implied by the recovered mean
	// motion, in minutes.
	Period() float64
}

// Period returns the orbital period, in minutes, implied by the recovered
// mean motion of an element record. This is the quantity the dispatcher
// tests against DeepSpaceThreshold.
func Period(el Elements) float64 {
	return twoPi / recoverElements(el).xnodp
}

// New selects the conventional model for an element record: SGP4 below the
// deep-space period threshold, SDP4 at and above it.
func New(el Elements) Propagator {
	if Period(el) >= DeepSpaceThreshold {
		return NewSDP4(el)
	}
	return NewSGP4(el)
}

// NewModel initializes an explicitly chosen model. Any record may be run
// through any model; the choice is the caller's.
func NewModel(el Elements, m Model) (Propagator, error) {
	switch m {
	case ModelSGP:
		return NewSGP(el), nil
	case ModelSGP4:
		return NewSGP4(el), nil
	case ModelSGP8:
		return NewSGP8(el), nil
	case ModelSDP4:
		return NewSDP4(el), nil
	case ModelSDP8:
		return NewSDP8(el), nil
	default:
		return nil, fmt.Errorf("unknown propagation model %q", string(m))
	}
}

// Result is one propagation outcome with the context a caller needs to
// interpret it.
type Result struct {
	State   StateVector
	Minutes float64 // offset from epoch the state was evaluated at
	Model   Model   // model that produced it
}

// Propagate initializes the conventional model for the record and evaluates
// it once. For repeated evaluation of the same record, initialize via New
// and reuse the Propagator.
func Propagate(el Elements, minutes float64) (Result, error) {
	p := New(el)
	sv, err := p.Propagate(minutes)
	if err != nil {
		return Result{}, err
	}
	return Result{State: sv, Minutes: minutes, Model: p.Name()}, nil
}

// PropagateModel is Propagate with an explicit model choice.
func PropagateModel(el Elements, m Model, minutes float64) (Result, error) {
	p, err := NewModel(el, m)
	if err != nil {
		return Result{}, err
	}
	sv, err := p.Propagate(minutes)
	if err != nil {
		return Result{}, err
	}
	return Result{State: sv, Minutes: minutes, Model: m}, nil
}

// Speed returns the velocity magnitude of a state, km/s.
func (sv StateVector) Speed() float64 {
	return math.Sqrt(sv.VX*sv.VX + sv.VY*sv.VY + sv.VZ*sv.VZ)
}

// Radius returns the geocentric distance of a state, km.
func (sv StateVector) Radius() float64 {
	return math.Sqrt(sv.X*sv.X + sv.Y*sv.Y + sv.Z*sv.Z)
}
