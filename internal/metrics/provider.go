package metrics

import (
	"context"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/provider"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// instrumentedProvider counts every candle and quote request against the
// wrapped provider's name.
type instrumentedProvider struct {
	next provider.Provider
	rec  *Recorder
}

// InstrumentProvider wraps a provider so its requests show up in
// provider_requests_total. A nil recorder returns the provider as-is.
func InstrumentProvider(p provider.Provider, rec *Recorder) provider.Provider {
	if rec == nil {
		return p
	}
	return &instrumentedProvider{next: p, rec: rec}
}

func (p *instrumentedProvider) Name() string { return p.next.Name() }

func (p *instrumentedProvider) GetCandles(ctx context.Context, code string, freq model.Frequency, count int) ([]model.Candle, error) {
	candles, err := p.next.GetCandles(ctx, code, freq, count)
	p.rec.RecordProviderRequest(p.next.Name(), Status(err))
	return candles, err
}

func (p *instrumentedProvider) GetQuote(ctx context.Context, code string) (*model.Quote, error) {
	quote, err := p.next.GetQuote(ctx, code)
	p.rec.RecordProviderRequest(p.next.Name(), Status(err))
	return quote, err
}

func (p *instrumentedProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

func (p *instrumentedProvider) RateLimit() int { return p.next.RateLimit() }
