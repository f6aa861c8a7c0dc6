package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/cache"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

const quoteTTL = 15 * time.Second

// Caching wraps a Provider with a cache.Store so repeated analyses of
// the same stock within one run (scanner workers, web jobs, the daemon)
// hit the network once. Candle entries live for the configured TTL,
// weekly and monthly series six times longer, quotes a few seconds.
type Caching struct {
	inner     Provider
	store     cache.Store
	candleTTL time.Duration
}

// NewCaching creates the caching wrapper.
func NewCaching(inner Provider, store cache.Store, candleTTL time.Duration) *Caching {
	if candleTTL <= 0 {
		candleTTL = 5 * time.Minute
	}
	return &Caching{inner: inner, store: store, candleTTL: candleTTL}
}

func (p *Caching) Name() string { return p.inner.Name() }

func (p *Caching) IsAvailable(ctx context.Context) bool { return p.inner.IsAvailable(ctx) }

func (p *Caching) RateLimit() int { return p.inner.RateLimit() }

func (p *Caching) GetCandles(ctx context.Context, code string, freq model.Frequency, count int) ([]model.Candle, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	count = clampCount(count)

	key := fmt.Sprintf("candles:%s:%s:%d", code, freq, count)
	var cached []model.Candle
	if err := p.store.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}

	candles, err := p.inner.GetCandles(ctx, code, freq, count)
	if err != nil {
		return nil, err
	}

	ttl := p.candleTTL
	if freq == model.Weekly || freq == model.Monthly {
		ttl *= 6
	}
	// Cache write failures only cost us a refetch.
	_ = p.store.Set(ctx, key, candles, ttl)
	return candles, nil
}

func (p *Caching) GetQuote(ctx context.Context, code string) (*model.Quote, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	key := "quote:" + code
	var cached model.Quote
	if err := p.store.Get(ctx, key, &cached); err == nil && cached.Code != "" {
		return &cached, nil
	}

	quote, err := p.inner.GetQuote(ctx, code)
	if err != nil {
		return nil, err
	}
	_ = p.store.Set(ctx, key, quote, quoteTTL)
	return quote, nil
}
