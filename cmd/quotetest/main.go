// Command quotetest is a smoke test for the live quote providers: it
// pulls candles and a quote for one code from Tencent and Sina directly,
// bypassing cache and fallback, so each source can be checked alone.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/provider"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

func main() {
	code := flag.String("code", "600036", "stock code to probe")
	count := flag.Int("count", 10, "candles to fetch")
	flag.Parse()

	providers := []provider.Provider{
		provider.NewTencent(),
		provider.NewSina(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, p := range providers {
		fmt.Printf("=== %s ===\n", p.Name())

		start := time.Now()
		candles, err := p.GetCandles(ctx, *code, model.Daily, *count)
		if err != nil {
			fmt.Printf("  candles: ERROR %v\n", err)
		} else {
			fmt.Printf("  candles: %d in %s\n", len(candles), time.Since(start).Round(time.Millisecond))
			if len(candles) > 0 {
				last := candles[len(candles)-1]
				fmt.Printf("  last: %s O=%.2f H=%.2f L=%.2f C=%.2f V=%.0f\n",
					last.Time.Format("2006-01-02"), last.Open, last.High, last.Low, last.Close, last.Volume)
			}
		}

		start = time.Now()
		quote, err := p.GetQuote(ctx, *code)
		if err != nil {
			fmt.Printf("  quote: ERROR %v\n", err)
		} else {
			fmt.Printf("  quote: %s %.2f (%+.2f%%) in %s\n",
				quote.Name, quote.Price, quote.ChangePct(), time.Since(start).Round(time.Millisecond))
		}
		fmt.Println()
	}
}
