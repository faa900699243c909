package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPanic wraps a panic recovered while reviewing one entity.
var ErrPanic = errors.New("review panicked")

var tracer = otel.Tracer("kestrel-review")

// Definition wires the vertical-specific parts of an agent.
type Definition[E, B, R any] struct {
	// Vertical names the review type in logs, spans and cache keys.
	Vertical string

	Backend Backend[E, B]

	// Prompt builds the text handed to the backend. Optional.
	Prompt func(E) string

	// Finalize turns a backend result into the persisted result shape.
	Finalize func(e E, out B, at time.Time) R

	// ID extracts the entity identifier used to match requested ids.
	ID func(E) string

	// Validate rejects entities missing required fields. Optional.
	Validate func(E) error
}

// Options control batch behavior.
type Options struct {
	// Delay is inserted between sequential batch items. Cosmetic only.
	Delay time.Duration

	// Workers > 1 reviews batch items in parallel. Result order still
	// follows the requested ids.
	Workers int

	// Clock supplies the processed-at timestamp. Defaults to time.Now.
	Clock func() time.Time

	Logger *slog.Logger
}

// Agent orchestrates review of one vertical.
type Agent[E, B, R any] struct {
	def    Definition[E, B, R]
	opts   Options
	logger *slog.Logger
}

// NewAgent creates an agent. Backend, Finalize and ID are required.
func NewAgent[E, B, R any](def Definition[E, B, R], opts Options) *Agent[E, B, R] {
	if def.Backend == nil || def.Finalize == nil || def.ID == nil {
		panic("review: agent definition requires Backend, Finalize and ID")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent[E, B, R]{def: def, opts: opts, logger: logger}
}

// Vertical returns the configured vertical name.
func (a *Agent[E, B, R]) Vertical() string {
	return a.def.Vertical
}

// ReviewOne reviews a single entity. Validation failures are returned as
// *domain.ValidationError; a panic is returned wrapping ErrPanic.
func (a *Agent[E, B, R]) ReviewOne(ctx context.Context, e E) (result R, err error) {
	id := a.def.ID(e)
	ctx, span := tracer.Start(ctx, "review."+a.def.Vertical,
		trace.WithAttributes(
			attribute.String("review.vertical", a.def.Vertical),
			attribute.String("review.entity_id", id),
		),
	)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if a.def.Validate != nil {
		if err := a.def.Validate(e); err != nil {
			return result, err
		}
	}

	var prompt string
	if a.def.Prompt != nil {
		prompt = a.def.Prompt(e)
	}

	out, err := a.def.Backend.Evaluate(ctx, prompt, e)
	if err != nil {
		return result, fmt.Errorf("backend evaluate %s: %w", id, err)
	}

	return a.def.Finalize(e, out, a.opts.Clock()), nil
}

// ReviewBatch reviews the entities whose ids are listed, or every entity
// when ids is empty. Each requested id yields exactly one outcome, in
// request order. A failing entity never aborts the rest of the batch.
func (a *Agent[E, B, R]) ReviewBatch(ctx context.Context, entities []E, ids []string) []Outcome[R] {
	start := time.Now()

	index := make(map[string]int, len(entities))
	for i, e := range entities {
		if _, dup := index[a.def.ID(e)]; !dup {
			index[a.def.ID(e)] = i
		}
	}
	if len(ids) == 0 {
		ids = make([]string, len(entities))
		for i, e := range entities {
			ids[i] = a.def.ID(e)
		}
	}

	outcomes := make([]Outcome[R], len(ids))
	if a.opts.Workers > 1 {
		a.reviewParallel(ctx, entities, index, ids, outcomes)
	} else {
		a.reviewSequential(ctx, entities, index, ids, outcomes)
	}

	tally := Tally(outcomes)
	a.logger.Info("batch reviewed",
		"vertical", a.def.Vertical,
		"requested", len(ids),
		"reviewed", tally[OutcomeReviewed],
		"not_found", tally[OutcomeNotFound],
		"failed", tally[OutcomeFailed],
		"skipped", tally[OutcomeSkipped],
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcomes
}

func (a *Agent[E, B, R]) reviewSequential(ctx context.Context, entities []E, index map[string]int, ids []string, outcomes []Outcome[R]) {
	processed := 0
	for i, id := range ids {
		pos, ok := index[id]
		if !ok {
			outcomes[i] = Outcome[R]{ID: id, Status: OutcomeNotFound}
			continue
		}

		if processed > 0 && a.opts.Delay > 0 {
			if err := sleep(ctx, a.opts.Delay); err != nil {
				skipRemaining(ids[i:], outcomes[i:], index, err)
				return
			}
		}
		if err := ctx.Err(); err != nil {
			skipRemaining(ids[i:], outcomes[i:], index, err)
			return
		}

		outcomes[i] = a.reviewEntity(ctx, id, entities[pos])
		processed++
	}
}

func (a *Agent[E, B, R]) reviewParallel(ctx context.Context, entities []E, index map[string]int, ids []string, outcomes []Outcome[R]) {
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, a.opts.Workers)

	for i, id := range ids {
		pos, ok := index[id]
		if !ok {
			outcomes[i] = Outcome[R]{ID: id, Status: OutcomeNotFound}
			continue
		}

		wg.Add(1)
		go func(idx int, id string, e E) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if err := ctx.Err(); err != nil {
				outcomes[idx] = Outcome[R]{ID: id, Status: OutcomeSkipped, Errors: fieldErrors(err)}
				return
			}
			outcomes[idx] = a.reviewEntity(ctx, id, e)
		}(i, id, entities[pos])
	}

	wg.Wait()
}

func (a *Agent[E, B, R]) reviewEntity(ctx context.Context, id string, e E) Outcome[R] {
	start := time.Now()
	result, err := a.ReviewOne(ctx, e)
	if err != nil {
		a.logger.Warn("entity review failed",
			"vertical", a.def.Vertical,
			"id", id,
			"error", err,
		)
		return Outcome[R]{ID: id, Status: OutcomeFailed, Errors: fieldErrors(err)}
	}

	a.logger.Debug("entity reviewed",
		"vertical", a.def.Vertical,
		"id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Outcome[R]{ID: id, Status: OutcomeReviewed, Result: &result}
}

func skipRemaining[R any](ids []string, outcomes []Outcome[R], index map[string]int, err error) {
	for i, id := range ids {
		if _, ok := index[id]; !ok {
			outcomes[i] = Outcome[R]{ID: id, Status: OutcomeNotFound}
			continue
		}
		outcomes[i] = Outcome[R]{ID: id, Status: OutcomeSkipped, Errors: fieldErrors(err)}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
