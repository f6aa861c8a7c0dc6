// Package analyzer orchestrates the per-stock pipeline: resolve the
// query to a stock, fetch candles, compute the indicator table, evaluate
// signals into a score, derive helper stats, and optionally attach news
// headlines and the AI narrative. Failures inside one stock never affect
// the others in a run.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/indicator"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/llm"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/metrics"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/news"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/provider"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/search"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/signal"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/strategy"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// Options tune one analyzer instance.
type Options struct {
	Frequency   model.Frequency
	CandleCount int
	WithLLM     bool // narrative on/off regardless of key presence
	WithNews    bool
}

// DefaultOptions returns the daily 120-candle setup.
func DefaultOptions() Options {
	return Options{
		Frequency:   model.Daily,
		CandleCount: 120,
		WithLLM:     true,
		WithNews:    true,
	}
}

// Deps are the analyzer's collaborators. Provider, Searcher and
// Evaluator are required; News, LLM and Metrics are optional and
// analysis degrades gracefully without them.
type Deps struct {
	Provider  provider.Provider
	Searcher  *search.Searcher
	Evaluator *signal.Evaluator
	News      *news.Client
	LLM       *llm.Client
	Metrics   *metrics.Recorder
}

// Analyzer runs the per-stock pipeline.
type Analyzer struct {
	deps Deps
	opts Options
	log  zerolog.Logger
}

// New creates an analyzer. It returns an error when a required
// dependency is missing.
func New(deps Deps, opts Options, log zerolog.Logger) (*Analyzer, error) {
	if deps.Provider == nil {
		return nil, errors.New("analyzer: provider is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("analyzer: searcher is required")
	}
	if deps.Evaluator == nil {
		return nil, errors.New("analyzer: evaluator is required")
	}
	if opts.Frequency == "" {
		opts.Frequency = model.Daily
	}
	if opts.CandleCount <= 0 {
		opts.CandleCount = 120
	}
	return &Analyzer{deps: deps, opts: opts, log: log}, nil
}

// AnalyzeStock resolves the query and runs the full pipeline. On
// failure the returned result is still populated with the stock
// identity and the reason, alongside the error.
func (a *Analyzer) AnalyzeStock(ctx context.Context, query string) (*Result, error) {
	started := time.Now()

	res := &Result{
		Stock:       model.Stock{Code: query},
		Frequency:   a.opts.Frequency,
		GeneratedAt: started,
	}
	fail := func(err error) (*Result, error) {
		res.Failed = true
		res.Error = err.Error()
		res.Duration = time.Since(started)
		a.deps.Metrics.RecordAnalysis("error", res.Duration)
		a.log.Error().Err(err).Str("query", query).Msg("analysis failed")
		return res, err
	}

	stock, err := a.deps.Searcher.Resolve(ctx, query)
	if err != nil {
		return fail(fmt.Errorf("resolve %q: %w", query, err))
	}
	res.Stock = *stock
	log := a.log.With().Str("code", stock.Code).Str("name", stock.Name).Logger()

	candles, err := a.deps.Provider.GetCandles(ctx, stock.Code, a.opts.Frequency, a.opts.CandleCount)
	if err != nil {
		return fail(fmt.Errorf("fetch candles: %w", err))
	}
	res.Candles = candles
	log.Debug().Int("candles", len(candles)).Str("freq", string(a.opts.Frequency)).Msg("candles fetched")

	table, err := indicator.Compute(candles)
	if err != nil {
		return fail(fmt.Errorf("compute indicators: %w", err))
	}
	res.Rows = table.Rows()

	score, err := a.deps.Evaluator.Evaluate(res.Rows)
	if err != nil {
		return fail(fmt.Errorf("evaluate signals: %w", err))
	}
	res.Score = score
	res.Stats = computeStats(candles)
	log.Info().Int("score", score.Score).Str("label", score.Label).
		Int("signals", len(score.Signals)).Msg("signals evaluated")

	// Everything below is best-effort: a dead quote source, news page
	// or LLM downgrades the report, it does not fail the stock.
	if quote, err := a.deps.Provider.GetQuote(ctx, stock.Code); err == nil {
		res.Quote = quote
	} else {
		res.warn(log, "quote unavailable", err)
	}

	if a.opts.WithNews && a.deps.News != nil && stock.Name != "" {
		if items, err := a.deps.News.Fetch(ctx, stock.Name); err == nil {
			res.News = items
		} else {
			res.warn(log, "news unavailable", err)
		}
	}

	if a.opts.WithLLM && a.deps.LLM != nil && a.deps.LLM.Enabled() {
		narrative, err := a.deps.LLM.Analyze(ctx, llm.Request{
			Stock:   *stock,
			Candles: candles,
			Rows:    res.Rows,
			News:    res.News,
		})
		a.deps.Metrics.RecordLLMRequest(metrics.Status(err))
		if err != nil {
			res.warn(log, "narrative unavailable", err)
		} else {
			res.Narrative = narrative
			log.Info().Float64("sentiment", narrative.Sentiment).Msg("narrative generated")
		}
	}

	sentiment, hasSentiment := res.Sentiment()
	res.Vote = strategy.Combine(strategy.Input{
		Stock:        *stock,
		Candles:      candles,
		Rows:         res.Rows,
		Score:        score,
		Sentiment:    sentiment,
		HasSentiment: hasSentiment,
	})

	res.Duration = time.Since(started)
	a.deps.Metrics.RecordAnalysis("ok", res.Duration)
	return res, nil
}

// warn records a degradation on the result and in the log.
func (r *Result) warn(log zerolog.Logger, what string, err error) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", what, err))
	log.Warn().Err(err).Msg(what)
}
