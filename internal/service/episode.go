package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/kestrel/internal/review"
)

// episodeReviewer serves the verticals whose stored entity is also the
// reviewed result: DRG, medical necessity and readmission.
type episodeReviewer[E, B any] struct {
	agent   *review.Agent[E, B, E]
	rules   []review.RuleInfo
	version string
	id      func(E) string
	load    func(context.Context) ([]E, error)
	save    func(context.Context, []E) error
	logger  *slog.Logger
}

func (v *episodeReviewer[E, B]) Vertical() string         { return v.agent.Vertical() }
func (v *episodeReviewer[E, B]) Rules() []review.RuleInfo { return v.rules }
func (v *episodeReviewer[E, B]) RuleVersion() string      { return v.version }

func (v *episodeReviewer[E, B]) List(ctx context.Context) (any, error) {
	return v.load(ctx)
}

// Review reviews the selected entities, writes results back by id and
// rewrites the collection. Nothing is written when no entity was reviewed.
func (v *episodeReviewer[E, B]) Review(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	items, err := v.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v.Vertical(), err)
	}

	outcomes := v.agent.ReviewBatch(ctx, items, req.IDs)

	index := make(map[string]int, len(items))
	for i, e := range items {
		if _, ok := index[v.id(e)]; !ok {
			index[v.id(e)] = i
		}
	}
	changed := 0
	for _, o := range outcomes {
		if o.Status != review.OutcomeReviewed || o.Result == nil {
			continue
		}
		if i, ok := index[o.ID]; ok {
			items[i] = *o.Result
			changed++
		}
	}

	if changed > 0 {
		// A cancelled run still persists what finished.
		if err := v.save(context.WithoutCancel(ctx), items); err != nil {
			return nil, fmt.Errorf("save %s: %w", v.Vertical(), err)
		}
	}
	v.logger.Info("collection updated", "vertical", v.Vertical(), "updated", changed, "total", len(items))

	rp := newReport(v.Vertical(), v.version)
	rp.Outcomes = erase(outcomes)
	return rp.finish(start), nil
}

// Evaluate reviews every inline entity.
func (v *episodeReviewer[E, B]) Evaluate(ctx context.Context, payload []byte) (*Report, error) {
	start := time.Now()
	items, err := decode[E](payload)
	if err != nil {
		return nil, err
	}
	rp := newReport(v.Vertical(), v.version)
	rp.Outcomes = erase(v.agent.ReviewBatch(ctx, items, nil))
	return rp.finish(start), nil
}
