package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
)

type widgetResult struct {
	ID         string
	Findings   int
	Prompt     string
	ReviewedAt time.Time
}

func widgetAgent(t *testing.T, backend Backend[widget, Evaluation[testCategory]], opts Options) *Agent[widget, Evaluation[testCategory], widgetResult] {
	t.Helper()
	return NewAgent(Definition[widget, Evaluation[testCategory], widgetResult]{
		Vertical: "widgets",
		Backend:  backend,
		Prompt:   func(w widget) string { return "review " + w.ID },
		Finalize: func(w widget, ev Evaluation[testCategory], at time.Time) widgetResult {
			return widgetResult{ID: w.ID, Findings: len(ev.Findings), ReviewedAt: at}
		},
		ID: func(w widget) string { return w.ID },
		Validate: func(w widget) error {
			if w.Size < 0 {
				return &domain.ValidationError{EntityID: w.ID, Fields: []domain.FieldError{{Field: "size", Message: "must not be negative"}}}
			}
			return nil
		},
	}, opts)
}

func ruleBackend() Backend[widget, Evaluation[testCategory]] {
	set := NewRuleSet(sizeRule("A", 10, domain.SeverityHigh))
	return BackendFunc[widget, Evaluation[testCategory]](func(_ context.Context, _ string, w widget) (Evaluation[testCategory], error) {
		if w.Label == "panic" {
			panic("backend exploded")
		}
		return set.Evaluate(w), nil
	})
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestReviewOne(t *testing.T) {
	var gotPrompt string
	backend := BackendFunc[widget, Evaluation[testCategory]](func(_ context.Context, prompt string, w widget) (Evaluation[testCategory], error) {
		gotPrompt = prompt
		return Evaluation[testCategory]{}, nil
	})
	agent := widgetAgent(t, backend, Options{Clock: fixedClock})

	res, err := agent.ReviewOne(context.Background(), widget{ID: "w1"})
	require.NoError(t, err)
	assert.Equal(t, "review w1", gotPrompt)
	assert.Equal(t, fixedClock(), res.ReviewedAt)
	assert.Equal(t, "widgets", agent.Vertical())

	_, err = agent.ReviewOne(context.Background(), widget{ID: "bad", Size: -1})
	assert.True(t, errors.Is(err, domain.ErrInvalidEntity))
}

func TestReviewBatch(t *testing.T) {
	entities := []widget{
		{ID: "w1", Size: 20},
		{ID: "w2", Size: 1},
		{ID: "w3", Size: -5},
		{ID: "w4", Size: 3, Label: "panic"},
	}

	for _, workers := range []int{1, 4} {
		agent := widgetAgent(t, ruleBackend(), Options{Workers: workers, Clock: fixedClock})

		outcomes := agent.ReviewBatch(context.Background(), entities, []string{"w1", "missing", "w3", "w4", "w2"})
		require.Len(t, outcomes, 5)

		assert.Equal(t, OutcomeReviewed, outcomes[0].Status)
		require.NotNil(t, outcomes[0].Result)
		assert.Equal(t, 1, outcomes[0].Result.Findings)

		assert.Equal(t, "missing", outcomes[1].ID)
		assert.Equal(t, OutcomeNotFound, outcomes[1].Status)

		assert.Equal(t, OutcomeFailed, outcomes[2].Status)
		require.Len(t, outcomes[2].Errors, 1)
		assert.Equal(t, "size", outcomes[2].Errors[0].Field)

		assert.Equal(t, OutcomeFailed, outcomes[3].Status)
		assert.Contains(t, outcomes[3].Errors[0].Message, "backend exploded")

		assert.Equal(t, "w2", outcomes[4].ID)
		assert.Equal(t, OutcomeReviewed, outcomes[4].Status)
		assert.Equal(t, 0, outcomes[4].Result.Findings)
	}
}

func TestReviewBatchAllWhenNoIDs(t *testing.T) {
	agent := widgetAgent(t, ruleBackend(), Options{})
	outcomes := agent.ReviewBatch(context.Background(), []widget{{ID: "a"}, {ID: "b"}}, nil)
	require.Len(t, outcomes, 2)
	assert.Equal(t, []widgetResult{{ID: "a", ReviewedAt: outcomes[0].Result.ReviewedAt}, {ID: "b", ReviewedAt: outcomes[1].Result.ReviewedAt}}, Reviewed(outcomes))
}

func TestReviewBatchCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	calls := 0
	backend := BackendFunc[widget, Evaluation[testCategory]](func(_ context.Context, _ string, _ widget) (Evaluation[testCategory], error) {
		mu.Lock()
		calls++
		mu.Unlock()
		cancel()
		return Evaluation[testCategory]{}, nil
	})
	agent := widgetAgent(t, backend, Options{Delay: time.Hour})

	outcomes := agent.ReviewBatch(ctx, []widget{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)
	require.Len(t, outcomes, 3)
	assert.Equal(t, OutcomeReviewed, outcomes[0].Status)
	assert.Equal(t, OutcomeSkipped, outcomes[1].Status)
	assert.Equal(t, OutcomeSkipped, outcomes[2].Status)
	assert.Equal(t, 1, calls)

	tally := Tally(outcomes)
	assert.Equal(t, 2, tally[OutcomeSkipped])
}
