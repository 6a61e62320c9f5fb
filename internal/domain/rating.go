package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Discharge evaluates the broad-crested weir equation at a single head:
//
//	Q = Cd · b · H · sqrt(2 · g · H)
//
// Pure and unguarded; callers are expected to pass positive finite inputs.
func Discharge(cd, crestWidth, head float64) float64 {
	return cd * crestWidth * head * math.Sqrt(2*Gravity*head)
}

// Rate evaluates the rating curve for p over s.Count evenly spaced heads from
// s.MinHead to p.MaxHead inclusive.
func Rate(p Params, s Sampling) (Curve, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.Count < 2 {
		return nil, fmt.Errorf("%w: sample count must be at least 2, got %d", ErrInvalidParameter, s.Count)
	}
	if !isFinite(s.MinHead) || s.MinHead <= 0 {
		return nil, fmt.Errorf("%w: min_head must be a positive finite number, got %g", ErrInvalidParameter, s.MinHead)
	}
	if p.MaxHead <= s.MinHead {
		return nil, fmt.Errorf("%w: max_head %g must exceed min_head %g", ErrInvalidParameter, p.MaxHead, s.MinHead)
	}

	step := (p.MaxHead - s.MinHead) / float64(s.Count-1)
	curve := make(Curve, s.Count)
	for i := range curve {
		h := s.MinHead + float64(i)*step
		if i == s.Count-1 {
			// Land the final sample exactly on the bound despite float drift.
			h = p.MaxHead
		}
		curve[i] = Sample{Head: h, Discharge: Discharge(p.Cd, p.CrestWidth, h)}
	}
	return curve, nil
}

// NewEvaluation rates p over s and packages the result with its deterministic
// ID, peak sample, and evaluation timestamp.
func NewEvaluation(p Params, s Sampling) (Evaluation, error) {
	curve, err := Rate(p, s)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		ID:          evaluationID(p, s),
		Params:      p,
		Sampling:    s,
		Curve:       curve,
		Peak:        curve.Peak(),
		EvaluatedAt: clock.Now().UTC(),
	}, nil
}

// evaluationID produces a deterministic ID from the numeric inputs. The same
// inputs always hash to the same ID, so replayed evaluations deduplicate
// downstream and rendered artifacts can be cached by ID alone.
func evaluationID(p Params, s Sampling) string {
	input := fmt.Sprintf("%g|%g|%g|%d|%g", p.Cd, p.CrestWidth, p.MaxHead, s.Count, s.MinHead)
	hash := sha256.Sum256([]byte(input))
	return "weir-" + hex.EncodeToString(hash[:8])
}
