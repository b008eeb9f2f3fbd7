// Package limiter wraps a provider with token-bucket request gating.
package limiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/platenhq/platen/provider"
)

// Provider delegates to an inner provider after waiting for a rate
// token. A nil limiter disables gating.
type Provider struct {
	limiter *rate.Limiter
	inner   provider.Provider
}

// New wraps p so every Complete call first waits on l. Several
// wrapped providers may share one limiter.
func New(l *rate.Limiter, p provider.Provider) *Provider {
	return &Provider{
		limiter: l,
		inner:   p,
	}
}

func (p *Provider) Name() string {
	return p.inner.Name()
}

func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &provider.BackendError{Provider: p.inner.Name(), Err: err}
		}
	}

	return p.inner.Complete(ctx, req)
}
