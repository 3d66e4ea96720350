package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathan/quote-repost/internal/types"
)

const keywordsKey = "trend_keywords"

// KeywordLoader is the uncached trend keyword lookup
type KeywordLoader interface {
	TrendKeywords(ctx context.Context) ([]string, error)
}

// StyleLoader is the uncached per-author style lookup
type StyleLoader interface {
	Style(ctx context.Context, author string) (types.StyleGuidelines, error)
}

// Keywords caches a trend keyword source. Callers get their own copy.
type Keywords struct {
	next  KeywordLoader
	cache *Cache[[]string]
}

// NewKeywords wraps next with a cache of the given TTL
func NewKeywords(next KeywordLoader, ttl time.Duration, hooks Hooks) *Keywords {
	return &Keywords{next: next, cache: New[[]string](Options{TTL: ttl, MaxEntries: 1}, hooks)}
}

// TrendKeywords returns the cached keywords, loading them when expired
func (k *Keywords) TrendKeywords(ctx context.Context) ([]string, error) {
	keywords, err := k.cache.Get(ctx, keywordsKey, func(ctx context.Context, _ string) ([]string, error) {
		return k.next.TrendKeywords(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), keywords...), nil
}

// Styles caches per-author styles. Callers get a deep copy.
type Styles struct {
	next  StyleLoader
	cache *Cache[types.StyleGuidelines]
}

// NewStyles wraps next with a cache holding up to maxAuthors entries
func NewStyles(next StyleLoader, ttl time.Duration, maxAuthors int, hooks Hooks) *Styles {
	return &Styles{next: next, cache: New[types.StyleGuidelines](Options{TTL: ttl, MaxEntries: maxAuthors}, hooks)}
}

// Style returns the cached style for author, loading it when expired
func (s *Styles) Style(ctx context.Context, author string) (types.StyleGuidelines, error) {
	style, err := s.cache.Get(ctx, author, func(ctx context.Context, author string) (types.StyleGuidelines, error) {
		return s.next.Style(ctx, author)
	})
	if err != nil {
		return types.StyleGuidelines{}, err
	}
	return style.Clone(), nil
}

// PrometheusHooks counts cache events on a counter labelled by cache name and result
func PrometheusHooks(counter *prometheus.CounterVec, name string) Hooks {
	if counter == nil {
		return Hooks{}
	}
	return Hooks{
		OnHit:   func(string) { counter.WithLabelValues(name, "hit").Inc() },
		OnMiss:  func(string) { counter.WithLabelValues(name, "miss").Inc() },
		OnError: func(string) { counter.WithLabelValues(name, "error").Inc() },
	}
}

// NewLookupCounter registers the counter used by PrometheusHooks
func NewLookupCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_repost_cache_lookups_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})
	if reg != nil {
		reg.MustRegister(counter)
	}
	return counter
}
