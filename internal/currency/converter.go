// Package currency converts amounts between supported currencies using a
// live rate source, a TTL cache and a static fallback table.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"expensetool/internal/cache"
	"expensetool/internal/core"
	applog "expensetool/internal/log"
	"expensetool/internal/vocab"
)

const (
	DefaultTTL      = 24 * time.Hour
	DefaultCapacity = 256
)

// RateSource returns the rates of every known currency relative to base.
type RateSource interface {
	Rates(ctx context.Context, base string) (map[string]float64, error)
}

// RateSourceFunc adapts a function to RateSource.
type RateSourceFunc func(ctx context.Context, base string) (map[string]float64, error)

func (f RateSourceFunc) Rates(ctx context.Context, base string) (map[string]float64, error) {
	return f(ctx, base)
}

// CacheStats reports converter cache usage.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Fetches   int64
	Fallbacks int64
}

// Converter resolves exchange rates. It is safe for concurrent use.
type Converter struct {
	source   RateSource
	base     string
	ttl      time.Duration
	capacity int
	clock    cache.Clock
	logger   *slog.Logger

	rates *cache.LRUCache[float64]
	group singleflight.Group

	fetches   atomic.Int64
	fallbacks atomic.Int64
}

// Option configures a Converter.
type Option func(*Converter)

// WithClock replaces time.Now for cache expiry.
func WithClock(clock cache.Clock) Option {
	return func(c *Converter) { c.clock = clock }
}

// WithTTL sets how long a fetched rate is reused.
func WithTTL(ttl time.Duration) Option {
	return func(c *Converter) { c.ttl = ttl }
}

// WithCapacity bounds the number of cached currency pairs.
func WithCapacity(n int) Option {
	return func(c *Converter) { c.capacity = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

func WithBase(code string) Option {
	return func(c *Converter) { c.base = code }
}

// New returns a Converter backed by source. A nil source always falls back
// to the static table.
func New(source RateSource, opts ...Option) *Converter {
	c := &Converter{
		source:   source,
		base:     vocab.BaseCurrency,
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(applog.FieldComponent, applog.ComponentCurrency)
	c.rates = cache.NewLRUCache[float64](c.capacity, c.ttl, c.clock)
	return c
}

// Base returns the currency amounts are stored in.
func (c *Converter) Base() string { return c.base }

// GetRate returns how many units of to one unit of from buys. It never
// fails: when the source is unavailable the static table is used.
func (c *Converter) GetRate(ctx context.Context, from, to string) float64 {
	if from == to {
		return 1.0
	}
	k := key(from, to)
	if rate, ok := c.rates.Get(k); ok {
		return rate
	}

	// Concurrent misses on the same pair share one fetch. The fetch outlives
	// the caller that started it; the source's own timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(k, func() (any, error) {
		if rate, ok := c.rates.Get(k); ok {
			return rate, nil
		}
		rate, err := c.fetch(fetchCtx, from, to)
		if err != nil {
			c.fallbacks.Add(1)
			fb := FallbackRate(from, to, c.base)
			c.logger.WarnContext(ctx, "Exchange rate lookup failed, using fallback rate",
				"from", from, "to", to, "rate", fb, "error", err)
			return fb, nil
		}
		c.rates.Set(k, rate)
		return rate, nil
	})
	return v.(float64)
}

func (c *Converter) fetch(ctx context.Context, from, to string) (float64, error) {
	if c.source == nil {
		return 0, fmt.Errorf("no rate source configured")
	}
	c.fetches.Add(1)
	rates, err := c.source.Rates(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := rates[to]
	if !ok {
		return 0, fmt.Errorf("rate %s missing from %s table", to, from)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive rate %v for %s", rate, key(from, to))
	}
	return rate, nil
}

// ConvertToBase converts amount from the given currency into the base
// currency, returning the rounded amount and the rate used.
func (c *Converter) ConvertToBase(ctx context.Context, amount float64, from string) (float64, float64) {
	if from == c.base {
		return amount, 1.0
	}
	rate := c.GetRate(ctx, from, c.base)
	return core.MulRound2(amount, rate), rate
}

// ConvertFromBase converts a base-currency amount into to, rounded to two
// decimals.
func (c *Converter) ConvertFromBase(ctx context.Context, amount float64, to string) float64 {
	if to == c.base {
		return amount
	}
	return core.MulRound2(amount, c.GetRate(ctx, c.base, to))
}

// Stats reports cache and fetch counters.
func (c *Converter) Stats() CacheStats {
	s := c.rates.Stats()
	return CacheStats{
		Entries:   s.Entries,
		Hits:      s.Hits,
		Misses:    s.Misses,
		Fetches:   c.fetches.Load(),
		Fallbacks: c.fallbacks.Load(),
	}
}

// Clear drops every cached rate.
func (c *Converter) Clear() {
	c.rates.Purge()
}

func key(from, to string) string { return from + ":" + to }
