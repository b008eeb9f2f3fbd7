// Package worker processes JSON payloads through language model
// providers using category prompt templates.
//
// A Worker binds a provider name from a Registry to a generation
// profile and a concurrency limit. Single payloads go through Process
// and its category shortcuts; slices go through Batch, which fans out
// under a semaphore.
package worker

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/platenhq/platen/anthropic"
	"github.com/platenhq/platen/gemini"
	"github.com/platenhq/platen/limiter"
	"github.com/platenhq/platen/openai"
	"github.com/platenhq/platen/provider"
)

// Defaults applied by New. The generation profile is tighter than the
// provider-level defaults: batch processing wants short, mostly
// deterministic responses.
const (
	DefaultProviderName  = "openai"
	DefaultMaxConcurrent = 3
	DefaultTemperature   = 0.3
	DefaultMaxTokens     = 1000
)

// Worker runs payloads through one registered provider. Construct
// with New; the zero value is not usable.
type Worker struct {
	registry      *provider.Registry
	providerName  string
	cfg           provider.Config
	maxConcurrent int
	timeout       time.Duration
	limiter       *rate.Limiter
	log           *slog.Logger
}

// Option adjusts a Worker under construction.
type Option func(*Worker)

// WithProvider selects the registry entry to process with. The name
// is resolved on each call, so a provider registered later under the
// same name takes effect without rebuilding the worker.
func WithProvider(name string) Option {
	return func(w *Worker) {
		w.providerName = name
	}
}

// WithConfig replaces the worker's generation profile.
func WithConfig(cfg provider.Config) Option {
	return func(w *Worker) {
		w.cfg = cfg
	}
}

// WithMaxConcurrent bounds how many payloads a Batch call processes
// at once. Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(w *Worker) {
		if n >= 1 {
			w.maxConcurrent = n
		}
	}
}

// WithRequestTimeout caps the duration of each provider call. Zero
// means no per-request deadline beyond the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.timeout = d
	}
}

// WithRateLimit gates provider calls to rps requests per second with
// the given burst. The bucket is shared across Process and Batch.
func WithRateLimit(rps float64, burst int) Option {
	return func(w *Worker) {
		w.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for per-item failures and batch
// progress. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(w *Worker) {
		w.log = log
	}
}

// New builds a Worker reading providers from registry.
func New(registry *provider.Registry, opts ...Option) *Worker {
	w := &Worker{
		registry:     registry,
		providerName: DefaultProviderName,
		cfg: provider.MustConfig("",
			provider.WithTemperature(DefaultTemperature),
			provider.WithMaxTokens(DefaultMaxTokens),
		),
		maxConcurrent: DefaultMaxConcurrent,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// DefaultRegistry returns a registry with the built-in backends
// registered under their canonical names. Credentials are checked on
// first use, not here.
func DefaultRegistry() *provider.Registry {
	r := provider.NewRegistry()
	r.Register("openai", openai.Entry())
	r.Register("anthropic", anthropic.Entry())
	r.Register("gemini", gemini.Entry())
	return r
}

// resolve returns the configured provider, wrapped with the rate
// limiter when one is set. Resolution errors are configuration
// problems and surface as Go errors, never as failed Results.
func (w *Worker) resolve() (provider.Provider, error) {
	p, err := w.registry.Get(w.providerName)
	if err != nil {
		return nil, err
	}
	if w.limiter != nil {
		return limiter.New(w.limiter, p), nil
	}
	return p, nil
}
