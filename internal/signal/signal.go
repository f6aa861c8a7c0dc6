// Package signal turns a computed indicator table into trading signals and a
// bounded 1-5 sentiment score. Evaluation looks only at the last two rows of
// the table: the current period, and the previous one for crossover detection.
package signal

// Polarity classifies a fired signal for scoring
type Polarity string

const (
	Bullish Polarity = "bullish"
	Bearish Polarity = "bearish"
)

// Signal is one fired rule's human-readable observation
type Signal struct {
	Rule     string   `json:"rule"` // registry name, e.g. macd_golden_cross
	Text     string   `json:"text"` // 描述，如 "MACD金叉形成，可能上涨"
	Polarity Polarity `json:"polarity"`
}

// Score labels, densest at the bullish end (see Aggregate)
const (
	LabelStrongBullish   = "强烈看涨"
	LabelBullish         = "看涨"
	LabelSlightlyBullish = "偏多"
	LabelNeutral         = "中性"
	LabelBearish         = "看跌"
)

// ScoreResult is the outcome of one evaluation
type ScoreResult struct {
	Score   int      `json:"score"` // 1-5
	Label   string   `json:"label"`
	Signals []Signal `json:"signals"`
}

// Counts returns how many bullish and bearish signals fired.
func (r ScoreResult) Counts() (bullish, bearish int) {
	for _, s := range r.Signals {
		if s.Polarity == Bullish {
			bullish++
		} else {
			bearish++
		}
	}
	return bullish, bearish
}

// Texts returns the signal descriptions in evaluation order.
func (r ScoreResult) Texts() []string {
	out := make([]string, len(r.Signals))
	for i, s := range r.Signals {
		out[i] = s.Text
	}
	return out
}
