package titles

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Dev-Ruco/pressflow/internal/logging"
	"github.com/Dev-Ruco/pressflow/internal/metrics"
	"github.com/Dev-Ruco/pressflow/pkg/ports"
)

// DefaultTitles is the last-resort fallback when neither the endpoint
// nor the cache has anything to offer.
var DefaultTitles = []string{
	"Título em preparação",
	"Análise do material enviado",
	"Resumo dos acontecimentos",
	"O essencial da história",
	"Primeiras conclusões",
}

// PollConfig bounds the adaptive polling cadence.
type PollConfig struct {
	// Initial cadence while no titles have ever been obtained.
	Initial time.Duration
	// Steady cadence once titles exist.
	Steady time.Duration
	// Errored cadence after a failed attempt.
	Errored time.Duration
	// MinInterval floors the gap between any two fetches, forced or
	// periodic, to prevent request storms.
	MinInterval time.Duration
	// CacheTTL bounds fallback cache entries.
	CacheTTL time.Duration
}

// DefaultPollConfig mirrors the product's observed cadence.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Initial:     5 * time.Second,
		Steady:      30 * time.Second,
		Errored:     10 * time.Second,
		MinInterval: 5 * time.Second,
		CacheTTL:    time.Hour,
	}
}

// Poller periodically fetches AI-suggested titles and pushes changed
// results to the session. A new fetch aborts any still in flight. On
// failure it falls back to the cache, then to DefaultTitles; every
// fallback path still fires the callback so the workflow proceeds
// uniformly regardless of source.
type Poller struct {
	client *Client
	cache  ports.TitleCache
	cfg    PollConfig
	logger *slog.Logger

	// onTitles receives each changed title set.
	onTitles func([]string)

	mu             sync.Mutex
	articleID      string
	last           []string
	everSucceeded  bool
	lastErrored    bool
	lastFetch      time.Time
	cancelInFlight context.CancelFunc
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithCache sets the fallback title cache.
func WithCache(cache ports.TitleCache) PollerOption {
	return func(p *Poller) { p.cache = cache }
}

// WithPollConfig overrides the cadence.
func WithPollConfig(cfg PollConfig) PollerOption {
	return func(p *Poller) { p.cfg = cfg }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// NewPoller creates a poller delivering results to onTitles.
func NewPoller(client *Client, onTitles func([]string), opts ...PollerOption) *Poller {
	p := &Poller{
		client:   client,
		cfg:      DefaultPollConfig(),
		logger:   logging.NewNop(),
		onTitles: onTitles,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetArticleID attaches the persisted article ID to future fetches.
func (p *Poller) SetArticleID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.articleID = id
}

// Titles returns the last known title set.
func (p *Poller) Titles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.last)
}

// Start polls until the context is cancelled. The returned function
// stops the loop and aborts any fetch in flight.
func (p *Poller) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			p.Poll(ctx)

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval()):
			}
		}
	}()

	return func() {
		cancel()
		p.abortInFlight()
		<-done
	}
}

// Poll performs one fetch cycle, respecting the minimum interval floor.
// It is safe to call concurrently with the periodic loop (a forced
// refresh from the API); redundant calls inside the floor are dropped.
func (p *Poller) Poll(ctx context.Context) {
	p.mu.Lock()
	if time.Since(p.lastFetch) < p.cfg.MinInterval && !p.lastFetch.IsZero() {
		p.mu.Unlock()
		return
	}
	p.lastFetch = time.Now()
	articleID := p.articleID

	// Supersede any fetch still in flight.
	if p.cancelInFlight != nil {
		p.cancelInFlight()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancelInFlight = cancel
	p.mu.Unlock()
	defer cancel()

	resp, err := p.client.Fetch(fetchCtx, articleID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("title fetch failed", "err", err)
		metrics.TitlePolls.WithLabelValues("error").Inc()
		p.mu.Lock()
		p.lastErrored = true
		p.mu.Unlock()
		p.fallback(ctx, articleID)
		return
	}

	metrics.TitlePolls.WithLabelValues("ok").Inc()
	p.mu.Lock()
	p.lastErrored = false
	p.everSucceeded = p.everSucceeded || len(resp.Titulos) > 0
	p.mu.Unlock()

	if len(resp.Titulos) == 0 {
		return
	}
	if p.cache != nil {
		if err := p.cache.Put(ctx, articleID, resp.Titulos, p.cfg.CacheTTL); err != nil {
			p.logger.Warn("title cache write failed", "err", err)
		}
	}
	p.deliver(resp.Titulos)
}

// fallback tries the cache, then the hardcoded defaults.
func (p *Poller) fallback(ctx context.Context, articleID string) {
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, articleID)
		if err != nil {
			p.logger.Warn("title cache read failed", "err", err)
		} else if ok && len(cached) > 0 {
			metrics.TitlePolls.WithLabelValues("fallback_cache").Inc()
			p.deliver(cached)
			return
		}
	}
	metrics.TitlePolls.WithLabelValues("fallback_default").Inc()
	p.deliver(slices.Clone(DefaultTitles))
}

// deliver propagates titles upward only when they differ by value from
// the set already held, so unchanged polling responses do not re-fire
// the callback or re-trigger auto-advance.
func (p *Poller) deliver(titles []string) {
	p.mu.Lock()
	if slices.Equal(p.last, titles) {
		p.mu.Unlock()
		return
	}
	p.last = slices.Clone(titles)
	p.mu.Unlock()

	if p.onTitles != nil {
		p.onTitles(titles)
	}
}

// interval picks the next wait: errored > steady > initial, in that
// precedence order.
func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.lastErrored:
		return p.cfg.Errored
	case p.everSucceeded:
		return p.cfg.Steady
	default:
		return p.cfg.Initial
	}
}

func (p *Poller) abortInFlight() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelInFlight != nil {
		p.cancelInFlight()
	}
}
