package dashboard

import (
	"log/slog"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/insight"
)

// Builder memoises Build by table id and filter. Cached views are shared
// between requests and must not be modified.
type Builder struct {
	opts   insight.Options
	cache  *otter.Cache[string, *View]
	logger *slog.Logger
}

// NewBuilder creates a Builder holding at most size views for ttl each. A
// size of 0 disables caching.
func NewBuilder(opts insight.Options, size int, ttl time.Duration, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{opts: opts, logger: logger}
	if size > 0 {
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		b.cache = otter.Must(&otter.Options[string, *View]{
			MaximumSize:      size,
			ExpiryCalculator: otter.ExpiryWriting[string, *View](ttl),
		})
	}
	return b
}

// Build returns the view of t for f, from cache when possible.
func (b *Builder) Build(t *dataset.Table, f Filter) *View {
	if b.cache == nil || t == nil {
		return Build(t, f, b.opts)
	}
	key := cacheKey(t.ID, f)
	if v, ok := b.cache.GetIfPresent(key); ok {
		b.logger.Debug("view cache hit", "key", key)
		return v
	}
	v := Build(t, f, b.opts)
	b.cache.Set(key, v)
	return v
}

// Forget drops every cached view.
func (b *Builder) Forget() {
	if b.cache != nil {
		b.cache.InvalidateAll()
	}
}

// Size returns the approximate number of cached views.
func (b *Builder) Size() int {
	if b.cache == nil {
		return 0
	}
	return b.cache.EstimatedSize()
}

func cacheKey(tableID string, f Filter) string {
	var sb strings.Builder
	sb.WriteString(tableID)
	sb.WriteByte('|')
	sb.WriteString(f.Month)
	sb.WriteByte('|')
	if f.Metrics == nil {
		sb.WriteByte('*')
	}
	for i, m := range f.Metrics {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(m.Column())
	}
	return sb.String()
}
