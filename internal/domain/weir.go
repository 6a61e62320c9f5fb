package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Physical and sampling constants for the rating equation.
const (
	// Gravity is the standard gravitational acceleration in m/s².
	Gravity = 9.81

	// DefaultSampleCount is the number of heads a rating curve is evaluated at.
	DefaultSampleCount = 300

	// DefaultMinHead is the lower sampling bound in meters. Discharge at H = 0
	// is zero and carries no information, so curves start just above it.
	DefaultMinHead = 0.01
)

// ErrInvalidParameter indicates an input outside the evaluator's domain
// (non-finite, non-positive, or an inconsistent sampling window).
var ErrInvalidParameter = errors.New("invalid parameter")

// Params holds the three weir parameters of one evaluation. Immutable per
// call; the board owns the current set.
type Params struct {
	Cd         float64 `json:"cd"`           // discharge coefficient, dimensionless
	CrestWidth float64 `json:"crest_width"`  // b, meters
	MaxHead    float64 `json:"max_head"`     // upper sampling bound, meters
}

// DefaultParams returns the parameter set the board starts from.
func DefaultParams() Params {
	return Params{Cd: 0.6, CrestWidth: 2.0, MaxHead: 1.0}
}

// Validate rejects non-finite or non-positive parameters.
func (p Params) Validate() error {
	if !isFinite(p.Cd) || p.Cd <= 0 {
		return fmt.Errorf("%w: cd must be a positive finite number, got %g", ErrInvalidParameter, p.Cd)
	}
	if !isFinite(p.CrestWidth) || p.CrestWidth <= 0 {
		return fmt.Errorf("%w: crest_width must be a positive finite number, got %g", ErrInvalidParameter, p.CrestWidth)
	}
	if !isFinite(p.MaxHead) || p.MaxHead <= 0 {
		return fmt.Errorf("%w: max_head must be a positive finite number, got %g", ErrInvalidParameter, p.MaxHead)
	}
	return nil
}

// Patch is a partial parameter update. Nil fields leave the current value
// untouched.
type Patch struct {
	Cd         *float64 `json:"cd,omitempty"`
	CrestWidth *float64 `json:"crest_width,omitempty"`
	MaxHead    *float64 `json:"max_head,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Cd == nil && p.CrestWidth == nil && p.MaxHead == nil
}

// ApplyTo overlays the patch onto base and returns the result.
func (p Patch) ApplyTo(base Params) Params {
	if p.Cd != nil {
		base.Cd = *p.Cd
	}
	if p.CrestWidth != nil {
		base.CrestWidth = *p.CrestWidth
	}
	if p.MaxHead != nil {
		base.MaxHead = *p.MaxHead
	}
	return base
}

// Validate rejects non-finite patch values. Range checks are the board's job.
func (p Patch) Validate() error {
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"cd", p.Cd},
		{"crest_width", p.CrestWidth},
		{"max_head", p.MaxHead},
	} {
		if f.value != nil && !isFinite(*f.value) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidParameter, f.name, *f.value)
		}
	}
	return nil
}

// Sampling describes how a rating curve is discretized.
type Sampling struct {
	Count   int     `json:"count"`    // number of samples, ≥ 2
	MinHead float64 `json:"min_head"` // lower head bound, meters, > 0
}

// DefaultSampling returns the reference sampling policy.
func DefaultSampling() Sampling {
	return Sampling{Count: DefaultSampleCount, MinHead: DefaultMinHead}
}

// Sample is one (head, discharge) point on a rating curve.
type Sample struct {
	Head      float64 `json:"head"`      // meters
	Discharge float64 `json:"discharge"` // m³/s
}

// Curve is an ordered sequence of samples with strictly increasing, strictly
// positive heads. Produced fresh by each evaluation and never mutated after.
type Curve []Sample

// Peak returns the sample with the largest discharge. Q is strictly
// increasing in H, so this is always the last sample of a valid curve.
func (c Curve) Peak() Sample {
	if len(c) == 0 {
		return Sample{}
	}
	return c[len(c)-1]
}

// Heads returns the head coordinates of the curve.
func (c Curve) Heads() []float64 {
	hs := make([]float64, len(c))
	for i, s := range c {
		hs[i] = s.Head
	}
	return hs
}

// Discharges returns the discharge coordinates of the curve.
func (c Curve) Discharges() []float64 {
	qs := make([]float64, len(c))
	for i, s := range c {
		qs[i] = s.Discharge
	}
	return qs
}

// ControlRange is the recognized range and UI step of one input control.
type ControlRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

func (r ControlRange) clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

// Bounds holds the recognized control ranges of the three parameters. They
// are configuration for input widgets, not evaluator invariants.
type Bounds struct {
	Cd         ControlRange `json:"cd"`
	CrestWidth ControlRange `json:"crest_width"`
	MaxHead    ControlRange `json:"max_head"`
}

// DefaultBounds returns the conventional slider ranges for a broad crest.
func DefaultBounds() Bounds {
	return Bounds{
		Cd:         ControlRange{Min: 0.4, Max: 0.7, Step: 0.01},
		CrestWidth: ControlRange{Min: 0.1, Max: 5.0, Step: 0.1},
		MaxHead:    ControlRange{Min: 0.1, Max: 2.0, Step: 0.05},
	}
}

// Clamp forces p inside the bounds, returning the adjusted parameters and the
// names of the fields that moved.
func (b Bounds) Clamp(p Params) (Params, []string) {
	var clamped []string
	if v := b.Cd.clamp(p.Cd); v != p.Cd {
		p.Cd = v
		clamped = append(clamped, "cd")
	}
	if v := b.CrestWidth.clamp(p.CrestWidth); v != p.CrestWidth {
		p.CrestWidth = v
		clamped = append(clamped, "crest_width")
	}
	if v := b.MaxHead.clamp(p.MaxHead); v != p.MaxHead {
		p.MaxHead = v
		clamped = append(clamped, "max_head")
	}
	return p, clamped
}

// Evaluation is one complete rating computation: the inputs, the resulting
// curve, and identifying metadata.
type Evaluation struct {
	ID          string    `json:"id"`
	Params      Params    `json:"params"`
	Sampling    Sampling  `json:"sampling"`
	Curve       Curve     `json:"curve"`
	Peak        Sample    `json:"peak"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Title renders the plot title carrying the current crest width and
// coefficient, e.g. "Broad-crested weir rating curve (b = 2.00 m, Cd = 0.50)".
func (e Evaluation) Title() string {
	return fmt.Sprintf("Broad-crested weir rating curve (b = %.2f m, Cd = %.2f)",
		e.Params.CrestWidth, e.Params.Cd)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
