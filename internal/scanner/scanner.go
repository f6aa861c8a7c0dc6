// Package scanner fans a multi-stock run out over a worker pool and
// reduces the results into a market summary.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// ProgressCallback is called after each stock finishes.
type ProgressCallback func(done, total int)

// Scanner runs the analyzer across many stocks in parallel.
type Scanner struct {
	analyzer     *analyzer.Analyzer
	workers      int
	timeout      time.Duration
	progressFunc ProgressCallback
	log          zerolog.Logger
}

// New creates a scanner. Workers below 1 become 1; a zero timeout
// disables the run deadline.
func New(a *analyzer.Analyzer, workers int, timeout time.Duration, log zerolog.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		analyzer: a,
		workers:  workers,
		timeout:  timeout,
		log:      log,
	}
}

// SetProgressCallback sets the progress callback function. The callback
// must be safe for concurrent use; it runs on worker goroutines.
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Run analyzes every query and returns the results in input order plus
// the market summary. Per-stock failures are carried inside the results;
// the error reports only run-level interruption (context cancellation).
func (s *Scanner) Run(ctx context.Context, queries []string) ([]*analyzer.Result, analyzer.MarketSummary, error) {
	started := time.Now()
	results := make([]*analyzer.Result, len(queries))
	if len(queries) == 0 {
		return results, analyzer.Summarize(results), nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type job struct {
		idx   int
		query string
	}
	jobs := make(chan job, len(queries))
	for i, q := range queries {
		jobs <- job{idx: i, query: q}
	}
	close(jobs)

	var done int64
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(queries) {
		workers = len(queries)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				// AnalyzeStock never returns a nil result; errors are
				// already folded into it.
				results[j.idx], _ = s.analyzer.AnalyzeStock(ctx, j.query)

				count := atomic.AddInt64(&done, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(queries))
				}
			}
		}()
	}
	wg.Wait()

	// Slots skipped after cancellation still need a result so the
	// report can show every requested stock.
	for i, r := range results {
		if r == nil {
			results[i] = &analyzer.Result{
				Stock:  model.Stock{Code: queries[i]},
				Failed: true,
				Error:  "run interrupted: " + ctx.Err().Error(),
			}
		}
	}

	summary := analyzer.Summarize(results)
	s.log.Info().
		Int("total", summary.Total).
		Int("failed", summary.Failed).
		Float64("avg_score", summary.AverageScore).
		Dur("elapsed", time.Since(started)).
		Msg("run finished")

	return results, summary, ctx.Err()
}
