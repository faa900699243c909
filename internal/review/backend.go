package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Backend evaluates one entity. The rule-based implementations ignore
// prompt; it exists for a generative backend to consume.
type Backend[In, Out any] interface {
	Evaluate(ctx context.Context, prompt string, in In) (Out, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc[In, Out any] func(ctx context.Context, prompt string, in In) (Out, error)

// Evaluate implements Backend.
func (f BackendFunc[In, Out]) Evaluate(ctx context.Context, prompt string, in In) (Out, error) {
	return f(ctx, prompt, in)
}

// Cached memoizes a deterministic backend in a domain.Cache.
// Cache failures fall through to the wrapped backend.
type Cached[In, Out any] struct {
	next   Backend[In, Out]
	cache  domain.Cache
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next. version should change whenever the rule catalog
// behind next changes.
func NewCached[In, Out any](next Backend[In, Out], cache domain.Cache, vertical, version string, ttl time.Duration) *Cached[In, Out] {
	return &Cached[In, Out]{
		next:   next,
		cache:  cache,
		prefix: "kestrel:review:" + vertical + ":" + version + ":",
		ttl:    ttl,
		logger: slog.Default(),
	}
}

// Evaluate implements Backend.
func (c *Cached[In, Out]) Evaluate(ctx context.Context, prompt string, in In) (Out, error) {
	key, err := c.key(in)
	if err != nil {
		return c.next.Evaluate(ctx, prompt, in)
	}

	if data, err := c.cache.Get(ctx, key); err == nil && data != nil {
		var out Out
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	} else if err != nil {
		c.logger.Warn("result cache get failed", "key", key, "error", err)
	}

	out, err := c.next.Evaluate(ctx, prompt, in)
	if err != nil {
		return out, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("result cache set failed", "key", key, "error", err)
		}
	}
	return out, nil
}

func (c *Cached[In, Out]) key(in In) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("fingerprint input: %w", err)
	}
	sum := sha256.Sum256(data)
	return c.prefix + hex.EncodeToString(sum[:]), nil
}
