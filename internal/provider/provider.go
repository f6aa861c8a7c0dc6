// Package provider fetches A-share candles and realtime quotes from the
// free Tencent and Sina market-data endpoints. Providers share a common
// interface so the fallback chain and the caching layer can stack on any
// of them.
package provider

import (
	"context"
	"errors"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// DefaultCount is the candle count used when the caller passes none.
const DefaultCount = 120

// MaxCount caps a single kline request.
const MaxCount = 1000

// ErrNoData is wrapped into a ProviderError when an endpoint answers
// without usable rows.
var ErrNoData = errors.New("no data available")

// Provider is a source of candles and quotes.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// GetCandles fetches up to count bars for the stock at the given
	// frequency, oldest first, forward-adjusted where the source
	// supports it.
	GetCandles(ctx context.Context, code string, freq model.Frequency, count int) ([]model.Candle, error)

	// GetQuote fetches a realtime snapshot.
	GetQuote(ctx context.Context, code string) (*model.Quote, error)

	// IsAvailable probes the provider with a lightweight request.
	IsAvailable(ctx context.Context) bool

	// RateLimit returns the request budget per minute.
	RateLimit() int
}

// ProviderError carries the failing provider's name and whether the
// fallback chain may retry the same request elsewhere.
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Fallback tries providers in order until one succeeds.
type Fallback struct {
	providers []Provider
}

// NewFallback builds a fallback chain. Order matters: the first
// provider is always tried first.
func NewFallback(providers ...Provider) *Fallback {
	return &Fallback{providers: providers}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) GetCandles(ctx context.Context, code string, freq model.Frequency, count int) ([]model.Candle, error) {
	var lastErr error
	for _, p := range f.providers {
		candles, err := p.GetCandles(ctx, code, freq, count)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = &ProviderError{Provider: f.Name(), Err: ErrNoData, Retryable: false}
	}
	return nil, lastErr
}

func (f *Fallback) GetQuote(ctx context.Context, code string) (*model.Quote, error) {
	var lastErr error
	for _, p := range f.providers {
		quote, err := p.GetQuote(ctx, code)
		if err == nil {
			return quote, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = &ProviderError{Provider: f.Name(), Err: ErrNoData, Retryable: false}
	}
	return nil, lastErr
}

func (f *Fallback) IsAvailable(ctx context.Context) bool {
	for _, p := range f.providers {
		if p.IsAvailable(ctx) {
			return true
		}
	}
	return false
}

// RateLimit returns the highest budget in the chain.
func (f *Fallback) RateLimit() int {
	max := 0
	for _, p := range f.providers {
		if p.RateLimit() > max {
			max = p.RateLimit()
		}
	}
	return max
}

// Providers exposes the underlying chain, first-tried first.
func (f *Fallback) Providers() []Provider { return f.providers }

// clampCount applies the default and the per-request cap.
func clampCount(count int) int {
	if count <= 0 {
		return DefaultCount
	}
	if count > MaxCount {
		return MaxCount
	}
	return count
}
