package analyzer

import (
	"math"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/llm"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/news"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/signal"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/strategy"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// Result is the full per-stock analysis output. A failed result still
// carries the stock identity and the failure reason so multi-stock runs
// can report it instead of dropping it.
type Result struct {
	Stock     model.Stock     `json:"stock"`
	Frequency model.Frequency `json:"frequency"`

	Quote     *model.Quote       `json:"quote,omitempty"`
	Score     signal.ScoreResult `json:"score"`
	Stats     Stats              `json:"stats"`
	Narrative *llm.Narrative     `json:"narrative,omitempty"`
	News      []news.Item        `json:"news,omitempty"`
	Vote      strategy.Vote      `json:"vote"`

	// Candles and Rows feed charts and templates; they are too heavy
	// for API payloads.
	Candles []model.Candle       `json:"-"`
	Rows    []model.IndicatorRow `json:"-"`

	Failed   bool     `json:"failed,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`
}

// LatestClose returns the newest close, preferring the live quote.
func (r *Result) LatestClose() float64 {
	if r.Quote != nil && r.Quote.Price > 0 {
		return r.Quote.Price
	}
	if len(r.Candles) > 0 {
		return r.Candles[len(r.Candles)-1].Close
	}
	return 0
}

// ChangePct returns the day change percentage, preferring the live quote.
func (r *Result) ChangePct() float64 {
	if r.Quote != nil {
		return r.Quote.ChangePct()
	}
	if len(r.Candles) >= 2 {
		prev := r.Candles[len(r.Candles)-2].Close
		if prev != 0 {
			return (r.Candles[len(r.Candles)-1].Close - prev) / prev * 100
		}
	}
	return 0
}

// Sentiment returns the narrative score and whether one exists.
func (r *Result) Sentiment() (float64, bool) {
	if r.Narrative == nil {
		return 0, false
	}
	return r.Narrative.Sentiment, true
}

// Extreme names the stock at one end of a run.
type Extreme struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// MarketSummary aggregates one run across stocks.
type MarketSummary struct {
	Total        int      `json:"total"`
	Failed       int      `json:"failed"`
	BullishCount int      `json:"bullish"` // score >= 4
	BearishCount int      `json:"bearish"` // score <= 2
	NeutralCount int      `json:"neutral"`
	BullishShare float64  `json:"bullish_share"` // % of succeeded stocks
	AverageScore float64  `json:"average_score"`
	Strongest    *Extreme `json:"strongest,omitempty"`
	Weakest      *Extreme `json:"weakest,omitempty"`
	Mood         string   `json:"mood"` // 偏多 / 中性 / 偏空
}

// Summarize reduces a run to its market-wide figures. Failed results
// count toward Total/Failed only.
func Summarize(results []*Result) MarketSummary {
	s := MarketSummary{Total: len(results), Mood: "中性"}

	var scoreSum int
	var succeeded int
	for _, r := range results {
		if r == nil || r.Failed {
			s.Failed++
			continue
		}
		succeeded++
		scoreSum += r.Score.Score

		switch {
		case r.Score.Score >= 4:
			s.BullishCount++
		case r.Score.Score <= 2:
			s.BearishCount++
		default:
			s.NeutralCount++
		}

		if s.Strongest == nil || r.Score.Score > s.Strongest.Score {
			s.Strongest = &Extreme{Code: r.Stock.Code, Name: r.Stock.Name, Score: r.Score.Score}
		}
		if s.Weakest == nil || r.Score.Score < s.Weakest.Score {
			s.Weakest = &Extreme{Code: r.Stock.Code, Name: r.Stock.Name, Score: r.Score.Score}
		}
	}

	if succeeded == 0 {
		return s
	}
	s.AverageScore = math.Round(float64(scoreSum)/float64(succeeded)*100) / 100
	s.BullishShare = math.Round(float64(s.BullishCount)/float64(succeeded)*10000) / 100

	switch {
	case s.BullishShare >= 60:
		s.Mood = "偏多"
	case s.BullishShare <= 20 && s.BearishCount > s.BullishCount:
		s.Mood = "偏空"
	}
	return s
}
