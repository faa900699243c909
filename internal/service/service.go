// Package service runs review batches against the stored collections.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/celrules"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/drg"
	"github.com/opensource-finance/kestrel/internal/necessity"
	"github.com/opensource-finance/kestrel/internal/outlier"
	"github.com/opensource-finance/kestrel/internal/readmission"
	"github.com/opensource-finance/kestrel/internal/review"
)

// Errors returned by the registry and reviewers.
var (
	ErrUnknownVertical = errors.New("unknown vertical")
	ErrBadPayload      = errors.New("bad payload")
)

// Request selects what a review run covers.
type Request struct {
	// IDs to review; empty means the whole collection.
	IDs []string `json:"ids"`

	// Force re-reviews outlier claims that are no longer Pending.
	Force bool `json:"force"`
}

// Report is the result of one review run.
type Report struct {
	ID          string                       `json:"id"`
	Vertical    string                       `json:"vertical"`
	RuleVersion string                       `json:"ruleVersion"`
	Tally       map[review.OutcomeStatus]int `json:"tally"`
	Outcomes    []review.Outcome[any]        `json:"outcomes"`
	Providers   []domain.ProviderReview      `json:"providers,omitempty"`
	DurationMs  int64                        `json:"durationMs"`
}

// Reviewer reviews one vertical.
type Reviewer interface {
	Vertical() string
	Rules() []review.RuleInfo
	RuleVersion() string

	// List returns the stored collection.
	List(ctx context.Context) (any, error)

	// Review reviews stored entities and persists the results.
	Review(ctx context.Context, req Request) (*Report, error)

	// Evaluate reviews a JSON array of inline entities without persisting.
	Evaluate(ctx context.Context, payload []byte) (*Report, error)
}

// Setup carries everything the reviewers are built from.
type Setup struct {
	Repository domain.Repository

	// Cache memoizes backend results when non-nil.
	Cache    domain.Cache
	CacheTTL time.Duration

	Review    domain.ReviewConfig
	Reference *drg.Reference
	Points    domain.SeverityPoints
	Custom    []celrules.Definition
	Logger    *slog.Logger
}

// Registry holds one reviewer per vertical.
type Registry struct {
	reviewers map[string]Reviewer
	order     []string
}

// New builds the four reviewers. Invalid custom rules fail construction.
func New(s Setup) (*Registry, error) {
	if s.Repository == nil {
		return nil, errors.New("service: repository is required")
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if err := checkVerticals(s.Custom); err != nil {
		return nil, err
	}
	if s.Reference == nil {
		s.Reference = drg.DefaultReference()
	}
	fp := fingerprint(s.Reference, s.Points, s.Custom, s.Review.Strict)
	opts := review.Options{Delay: s.Review.BatchDelay, Workers: s.Review.Workers, Logger: s.Logger}

	r := &Registry{reviewers: make(map[string]Reviewer)}

	claimRules, err := celrules.Build(outlier.Vertical, "provider", s.Custom, domain.OutlierCategories,
		func(sub outlier.Subject) (map[string]any, error) { return sub.Facts(), nil })
	if err != nil {
		return nil, err
	}
	ob := outlier.NewRuleBackend(outlier.Options{Points: s.Points, Strict: s.Review.Strict, Extra: claimRules})
	r.add(&outlierReviewer{
		agent:   outlier.NewAgent(withCache[outlier.Target, outlier.Assessment](ob, s, outlier.Vertical, ob.RuleSet().Version()+fp), opts),
		rules:   ob.RuleSet().Describe(),
		version: ob.RuleSet().Version(),
		repo:    s.Repository,
		logger:  s.Logger,
	})

	drgRules, err := celrules.Build(drg.Vertical, "claim", s.Custom, domain.DRGCategories, celrules.Facts[domain.DRGClaim])
	if err != nil {
		return nil, err
	}
	db := drg.NewRuleBackend(drg.Options{Reference: s.Reference, Points: s.Points, Strict: s.Review.Strict, Extra: drgRules})
	r.add(&episodeReviewer[domain.DRGClaim, drg.Result]{
		agent:   drg.NewAgent(withCache[domain.DRGClaim, drg.Result](db, s, drg.Vertical, db.RuleSet().Version()+fp), opts),
		rules:   db.RuleSet().Describe(),
		version: db.RuleSet().Version(),
		id:      func(c domain.DRGClaim) string { return c.ID },
		load:    s.Repository.LoadDRGClaims,
		save:    s.Repository.SaveDRGClaims,
		logger:  s.Logger,
	})

	mnRules, err := celrules.Build(necessity.Vertical, "claim", s.Custom, domain.NecessityCategories, celrules.Facts[domain.MedNecessityClaim])
	if err != nil {
		return nil, err
	}
	nb := necessity.NewRuleBackend(necessity.Options{Points: s.Points, Strict: s.Review.Strict, Extra: mnRules})
	r.add(&episodeReviewer[domain.MedNecessityClaim, necessity.Result]{
		agent:   necessity.NewAgent(withCache[domain.MedNecessityClaim, necessity.Result](nb, s, necessity.Vertical, nb.RuleSet().Version()+fp), opts),
		rules:   nb.RuleSet().Describe(),
		version: nb.RuleSet().Version(),
		id:      func(c domain.MedNecessityClaim) string { return c.ID },
		load:    s.Repository.LoadMedNecessityClaims,
		save:    s.Repository.SaveMedNecessityClaims,
		logger:  s.Logger,
	})

	raRules, err := celrules.Build(readmission.Vertical, "pair", s.Custom, domain.ReadmissionCategories, celrules.Facts[domain.ReadmissionPair])
	if err != nil {
		return nil, err
	}
	rb := readmission.NewRuleBackend(readmission.Options{Points: s.Points, Strict: s.Review.Strict, Extra: raRules})
	r.add(&episodeReviewer[domain.ReadmissionPair, readmission.Result]{
		agent:   readmission.NewAgent(withCache[domain.ReadmissionPair, readmission.Result](rb, s, readmission.Vertical, rb.RuleSet().Version()+fp), opts),
		rules:   rb.RuleSet().Describe(),
		version: rb.RuleSet().Version(),
		id:      func(p domain.ReadmissionPair) string { return p.ID },
		load:    s.Repository.LoadReadmissionPairs,
		save:    s.Repository.SaveReadmissionPairs,
		logger:  s.Logger,
	})

	return r, nil
}

func (r *Registry) add(rv Reviewer) {
	r.reviewers[rv.Vertical()] = rv
	r.order = append(r.order, rv.Vertical())
}

// Get returns the reviewer for vertical.
func (r *Registry) Get(vertical string) (Reviewer, error) {
	rv, ok := r.reviewers[vertical]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVertical, vertical)
	}
	return rv, nil
}

// Verticals lists the vertical names in registration order.
func (r *Registry) Verticals() []string {
	return append([]string(nil), r.order...)
}

// checkVerticals rejects custom rules addressed to no known vertical.
func checkVerticals(defs []celrules.Definition) error {
	for _, d := range defs {
		switch d.Vertical {
		case outlier.Vertical, drg.Vertical, necessity.Vertical, readmission.Vertical:
		default:
			return fmt.Errorf("%w: rule %s: %w %q", celrules.ErrInvalidRule, d.ID, ErrUnknownVertical, d.Vertical)
		}
	}
	return nil
}

func withCache[In, Out any](b review.Backend[In, Out], s Setup, vertical, version string) review.Backend[In, Out] {
	if s.Cache == nil {
		return b
	}
	return review.NewCached(b, s.Cache, vertical, version, s.CacheTTL)
}

// fingerprint hashes the configuration that changes backend output without
// changing the rule catalog.
func fingerprint(v ...any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "-" + hex.EncodeToString(sum[:4])
}

func newReport(vertical, version string) *Report {
	return &Report{ID: uuid.NewString(), Vertical: vertical, RuleVersion: version}
}

func (rp *Report) finish(start time.Time) *Report {
	rp.Tally = review.Tally(rp.Outcomes)
	rp.DurationMs = time.Since(start).Milliseconds()
	return rp
}

// erase converts typed outcomes for the vertical-agnostic report.
func erase[R any](in []review.Outcome[R]) []review.Outcome[any] {
	out := make([]review.Outcome[any], len(in))
	for i, o := range in {
		out[i] = review.Outcome[any]{ID: o.ID, Status: o.Status, Errors: o.Errors}
		if o.Result != nil {
			var v any = *o.Result
			out[i].Result = &v
		}
	}
	return out
}

func decode[E any](payload []byte) ([]E, error) {
	var items []E
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %v", ErrBadPayload, err)
	}
	return items, nil
}
