// Package domain models broad-crested weir flow and its rating curve.
//
// # Rating Equation
//
// Discharge over a broad-crested weir is computed from the standard empirical
// equation:
//
//	Q = Cd · b · H · sqrt(2 · g · H)    [m³/s]
//
// where Cd is the dimensionless discharge coefficient, b the crest width in
// meters, H the upstream head above the crest in meters, and g = 9.81 m/s².
// Algebraically Q grows as H^1.5 and is exactly linear in both Cd and b. The
// equation is closed-form; no iteration or numerical integration is involved.
//
// # Sampling Policy
//
// A rating curve is the equation evaluated over evenly spaced heads from a
// small positive lower bound to the configured maximum head, both inclusive.
// The lower bound exists because H = 0 is a degenerate sample (discharge is
// zero there and the point carries no information); it has no hydraulic
// significance and is therefore configurable ([Sampling.MinHead], default
// 0.01 m). The default resolution is 300 samples, which draws as a smooth
// line at any reasonable plot size. Heads in a produced [Curve] are strictly
// increasing and strictly positive, and the first and last samples land
// exactly on the bounds.
//
// # Control Ranges
//
// Laboratory sliders operate within conventional ranges for this weir type:
//
//	Cd       0.40 – 0.70   step 0.01   (empirical range for broad crests)
//	b        0.10 – 5.00 m step 0.10
//	H_max    0.10 – 2.00 m step 0.05
//
// These are configuration for input controls, not invariants of the
// evaluator: [Discharge] and [Rate] accept any positive finite inputs. The
// board layer clamps incoming parameters to [Bounds]; the step values are
// advisory hints for UI widgets and are never snapped to server-side.
//
// # ID Generation
//
// Evaluation IDs are deterministic SHA-256 hashes of the numeric inputs
// (Cd|b|H_max|count|min_head). Identical inputs always produce the same ID,
// which lets downstream consumers deduplicate replayed evaluations and lets
// the render cache key on the ID alone. See [NewEvaluation].
package domain
