// Package board holds the shared weir parameters and re-evaluates the rating
// curve synchronously on every accepted change, fanning the fresh evaluation
// out to the history recorder, the telemetry publisher, and all subscribers.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/observability"
)

// Recorder persists evaluation summaries. Failures are logged, never fatal.
type Recorder interface {
	SaveEvaluation(ctx context.Context, eval domain.Evaluation) error
}

// Publisher pushes evaluations to an external telemetry sink. Failures are
// logged, never fatal.
type Publisher interface {
	PublishEvaluation(ctx context.Context, eval domain.Evaluation) error
}

// ApplyResult reports the outcome of a parameter update.
type ApplyResult struct {
	Evaluation domain.Evaluation
	Clamped    []string // parameter names forced back inside their control range
	Changed    bool     // false when the patch left the parameters as they were
}

// Board is the single shared parameter set and its latest evaluation.
// All methods are safe for concurrent use.
type Board struct {
	recorder  Recorder
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.RWMutex
	params   domain.Params
	bounds   domain.Bounds
	sampling domain.Sampling
	current  domain.Evaluation
	subs     map[int]chan domain.Evaluation
	nextSub  int

	ready atomic.Bool
}

// New creates a Board and runs the initial evaluation. Construction fails if
// the starting parameters cannot be evaluated. Recorder and publisher may be
// nil to disable the corresponding sink.
func New(initial domain.Params, bounds domain.Bounds, sampling domain.Sampling, recorder Recorder, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) (*Board, error) {
	clamped, names := bounds.Clamp(initial)
	if len(names) > 0 {
		logger.Warn("initial parameters clamped to bounds", "params", names)
	}

	eval, err := domain.NewEvaluation(clamped, sampling)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation: %w", err)
	}

	b := &Board{
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		params:    clamped,
		bounds:    bounds,
		sampling:  sampling,
		current:   eval,
		subs:      make(map[int]chan domain.Evaluation),
	}

	b.metrics.EvaluationsTotal.Inc()
	b.observeState(eval)
	b.ready.Store(true)
	b.metrics.BoardReady.Set(1)
	logger.Info("board ready",
		"cd", clamped.Cd,
		"crest_width", clamped.CrestWidth,
		"max_head", clamped.MaxHead,
		"samples", sampling.Count,
	)
	return b, nil
}

// Apply overlays the patch on the current parameters, clamps the result to
// the bounds, and re-evaluates if anything actually changed. Exactly one
// evaluation and fan-out happen per accepted change; an update that leaves
// the parameters as they were is a no-op.
func (b *Board) Apply(ctx context.Context, patch domain.Patch) (ApplyResult, error) {
	if err := patch.Validate(); err != nil {
		return ApplyResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next, clampedNames := b.bounds.Clamp(patch.ApplyTo(b.params))
	for _, name := range clampedNames {
		b.metrics.ClampedParams.WithLabelValues(name).Inc()
	}

	if next == b.params {
		return ApplyResult{Evaluation: b.current, Clamped: clampedNames, Changed: false}, nil
	}

	start := time.Now()
	eval, err := domain.NewEvaluation(next, b.sampling)
	if err != nil {
		return ApplyResult{}, err
	}

	b.params = next
	b.current = eval
	b.metrics.EvaluationsTotal.Inc()
	b.observeState(eval)

	b.fanOut(ctx, eval)
	b.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	b.logger.Info("parameters applied",
		"evaluation_id", eval.ID,
		"cd", next.Cd,
		"crest_width", next.CrestWidth,
		"max_head", next.MaxHead,
		"peak_discharge", eval.Peak.Discharge,
		"clamped", clampedNames,
	)
	return ApplyResult{Evaluation: eval, Clamped: clampedNames, Changed: true}, nil
}

// fanOut pushes an evaluation to the recorder, the publisher, and every
// subscriber. Both sinks are best-effort; a slow subscriber drops the update
// rather than blocking the board. Caller holds b.mu.
func (b *Board) fanOut(ctx context.Context, eval domain.Evaluation) {
	if b.recorder != nil {
		if err := b.recorder.SaveEvaluation(ctx, eval); err != nil {
			b.logger.Warn("record evaluation failed", "evaluation_id", eval.ID, "error", err)
			b.metrics.RecordErrors.Inc()
		}
	}
	if b.publisher != nil {
		if err := b.publisher.PublishEvaluation(ctx, eval); err != nil {
			b.logger.Warn("publish evaluation failed", "evaluation_id", eval.ID, "error", err)
			b.metrics.PublishErrors.Inc()
		}
	}
	for _, ch := range b.subs {
		select {
		case ch <- eval:
		default:
			b.metrics.DroppedUpdates.Inc()
		}
	}
}

// Subscribe attaches a listener. The current evaluation is delivered
// immediately; later evaluations follow as parameters change. The returned
// cancel function detaches the listener and closes the channel.
func (b *Board) Subscribe(buffer int) (<-chan domain.Evaluation, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Evaluation, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	ch <- b.current // buffered, fresh channel: never blocks
	b.mu.Unlock()

	b.metrics.Subscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
			b.metrics.Subscribers.Dec()
		})
	}
	return ch, cancel
}

// Current returns the latest evaluation.
func (b *Board) Current() domain.Evaluation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Params returns the current parameter set.
func (b *Board) Params() domain.Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params
}

// Bounds returns the recognized control ranges.
func (b *Board) Bounds() domain.Bounds {
	return b.bounds
}

// Sampling returns the sampling policy.
func (b *Board) Sampling() domain.Sampling {
	return b.sampling
}

// CheckReadiness returns nil once the initial evaluation has run.
func (b *Board) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("board has not produced an evaluation yet")
	}
	return nil
}

func (b *Board) observeState(eval domain.Evaluation) {
	b.metrics.CurrentParams.WithLabelValues("cd").Set(eval.Params.Cd)
	b.metrics.CurrentParams.WithLabelValues("crest_width").Set(eval.Params.CrestWidth)
	b.metrics.CurrentParams.WithLabelValues("max_head").Set(eval.Params.MaxHead)
	b.metrics.PeakDischarge.Set(eval.Peak.Discharge)
}
