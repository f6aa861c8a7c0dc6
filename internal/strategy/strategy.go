// Package strategy holds the per-stock advisors behind the report's
// 策略建议 block. Each strategy looks at the computed analysis state
// (candles, indicator rows, score, narrative sentiment) and votes
// buy/sell/hold with a confidence; Combine merges the votes.
package strategy

import (
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/signal"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// Action is a strategy's recommendation for a stock.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// Label returns the Chinese display form used in reports.
func (a Action) Label() string {
	switch a {
	case Buy:
		return "买入"
	case Sell:
		return "卖出"
	default:
		return "观望"
	}
}

// Input is the evaluated state strategies vote on. Candles and Rows are
// oldest-first; Sentiment is the narrative score in [-1, 1], valid only
// when HasSentiment is set.
type Input struct {
	Stock        model.Stock
	Candles      []model.Candle
	Rows         []model.IndicatorRow
	Score        signal.ScoreResult
	Sentiment    float64
	HasSentiment bool
}

// latest returns the newest indicator row.
func (in Input) latest() (model.IndicatorRow, bool) {
	if len(in.Rows) == 0 {
		return model.IndicatorRow{}, false
	}
	return in.Rows[len(in.Rows)-1], true
}

// Suggestion is one strategy's view of a stock.
type Suggestion struct {
	Strategy   string  `json:"strategy"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"` // 0-100
	Reason     string  `json:"reason"`
}

// Strategy votes on a single stock's computed state. Evaluate returns an
// error when the input lacks what the strategy needs; Combine skips such
// strategies instead of failing the stock.
type Strategy interface {
	Name() string
	Description() string
	Evaluate(in Input) (*Suggestion, error)
}
