package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/outlier"
	"github.com/opensource-finance/kestrel/internal/review"
)

// outlierReviewer reviews claims by provider. Outcomes are reported per
// claim; the provider reviews ride along on the report.
type outlierReviewer struct {
	agent   *outlier.Agent
	rules   []review.RuleInfo
	version string
	repo    domain.Repository
	logger  *slog.Logger
}

func (v *outlierReviewer) Vertical() string         { return outlier.Vertical }
func (v *outlierReviewer) Rules() []review.RuleInfo { return v.rules }
func (v *outlierReviewer) RuleVersion() string      { return v.version }

func (v *outlierReviewer) List(ctx context.Context) (any, error) {
	return v.repo.LoadClaims(ctx)
}

// Review decides the selected claims against the whole stored population.
// Only Pending claims are reviewed unless req.Force is set.
func (v *outlierReviewer) Review(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	claims, err := v.repo.LoadClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}

	selected, gated := selectClaims(claims, req)
	rp, decided := v.run(ctx, claims, selected)
	rp.Outcomes = append(rp.Outcomes, gated...)
	rp.Outcomes = order(rp.Outcomes, req.IDs)

	if len(decided) > 0 {
		for i := range claims {
			if c, ok := decided[claims[i].ID]; ok {
				claims[i] = c
			}
		}
		if err := v.repo.SaveClaims(context.WithoutCancel(ctx), claims); err != nil {
			return nil, fmt.Errorf("save claims: %w", err)
		}
	}
	v.logger.Info("collection updated", "vertical", outlier.Vertical, "updated", len(decided), "total", len(claims))
	return rp.finish(start), nil
}

// Evaluate treats the inline claims as the whole population and decides
// every one of them regardless of status.
func (v *outlierReviewer) Evaluate(ctx context.Context, payload []byte) (*Report, error) {
	start := time.Now()
	claims, err := decode[domain.Claim](payload)
	if err != nil {
		return nil, err
	}
	rp, _ := v.run(ctx, claims, claims)
	return rp.finish(start), nil
}

// run reviews selected grouped by provider and fans provider outcomes out
// to per-claim outcomes.
func (v *outlierReviewer) run(ctx context.Context, population, selected []domain.Claim) (*Report, map[string]domain.Claim) {
	rp := newReport(outlier.Vertical, v.version)
	decided := make(map[string]domain.Claim)

	targets := outlier.Targets(population, selected)
	outcomes := v.agent.ReviewBatch(ctx, targets, nil)
	for i, o := range outcomes {
		if o.Status == review.OutcomeReviewed && o.Result != nil {
			rp.Providers = append(rp.Providers, *o.Result)
			for _, c := range o.Result.Claims {
				decided[c.ID] = c
				var res any = c
				rp.Outcomes = append(rp.Outcomes, review.Outcome[any]{ID: c.ID, Status: review.OutcomeReviewed, Result: &res})
			}
			continue
		}
		for _, c := range targets[i].Claims {
			rp.Outcomes = append(rp.Outcomes, review.Outcome[any]{ID: c.ID, Status: o.Status, Errors: o.Errors})
		}
	}
	return rp, decided
}

// selectClaims returns the claims to review and outcomes for requested ids
// that are missing or gated by status.
func selectClaims(claims []domain.Claim, req Request) ([]domain.Claim, []review.Outcome[any]) {
	var selected []domain.Claim
	if len(req.IDs) == 0 {
		for _, c := range claims {
			if req.Force || c.Reviewable() {
				selected = append(selected, c)
			}
		}
		return selected, nil
	}

	byID := make(map[string]domain.Claim, len(claims))
	for _, c := range claims {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}
	var gated []review.Outcome[any]
	seen := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		switch {
		case !ok:
			gated = append(gated, review.Outcome[any]{ID: id, Status: review.OutcomeNotFound})
		case !req.Force && !c.Reviewable():
			gated = append(gated, review.Outcome[any]{ID: id, Status: review.OutcomeSkipped, Errors: []domain.FieldError{{
				Field:   "status",
				Message: fmt.Sprintf("claim is %s; use force to review again", c.Status),
			}}})
		default:
			selected = append(selected, c)
		}
	}
	return selected, gated
}

// order sorts outcomes into requested id order. Unrequested runs keep
// provider order.
func order(outcomes []review.Outcome[any], ids []string) []review.Outcome[any] {
	if len(ids) == 0 {
		return outcomes
	}
	byID := make(map[string]review.Outcome[any], len(outcomes))
	for _, o := range outcomes {
		byID[o.ID] = o
	}
	out := make([]review.Outcome[any], 0, len(outcomes))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, o)
			delete(byID, id)
		}
	}
	return out
}
