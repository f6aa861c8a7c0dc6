package strategy

import (
	"fmt"
	"math"
)

// TrendConfig holds configuration for the trend strategy.
type TrendConfig struct {
	Fast int // fast MA period (default 5)
	Slow int // slow MA period (default 20)

	// FlatBandPct is the |spread| below which the averages count as
	// entangled and the strategy holds (percent of the slow MA).
	FlatBandPct float64
}

// DefaultTrendConfig returns default configuration.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Fast:        5,
		Slow:        20,
		FlatBandPct: 0.3,
	}
}

// TrendStrategy votes with the moving-average state: fast above slow is
// bullish, below is bearish, entangled is hold. A fresh crossover on the
// latest bar raises the confidence.
type TrendStrategy struct {
	config TrendConfig
}

// NewTrendStrategy creates a new trend strategy.
func NewTrendStrategy(cfg TrendConfig) *TrendStrategy {
	return &TrendStrategy{config: cfg}
}

// Name returns the strategy name.
func (s *TrendStrategy) Name() string {
	return "trend"
}

// Description returns the strategy description.
func (s *TrendStrategy) Description() string {
	return fmt.Sprintf("均线趋势 - MA%d与MA%d的相对位置与交叉", s.config.Fast, s.config.Slow)
}

// Evaluate votes on the moving-average spread of the latest row.
func (s *TrendStrategy) Evaluate(in Input) (*Suggestion, error) {
	row, ok := in.latest()
	if !ok {
		return nil, fmt.Errorf("trend: no indicator rows")
	}

	fastName := fmt.Sprintf("MA%d", s.config.Fast)
	slowName := fmt.Sprintf("MA%d", s.config.Slow)
	fast, okF := row.Get(fastName)
	slow, okS := row.Get(slowName)
	if !okF || !okS || slow == 0 {
		return nil, fmt.Errorf("trend: %s/%s not computed", fastName, slowName)
	}

	spread := (fast - slow) / slow * 100
	crossed := s.freshCross(in, fastName, slowName)

	if math.Abs(spread) < s.config.FlatBandPct {
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Hold,
			Confidence: 40,
			Reason:     fmt.Sprintf("%s与%s粘合（偏离%.2f%%），方向未明", fastName, slowName, spread),
		}, nil
	}

	confidence := 50 + math.Min(math.Abs(spread)*8, 35)
	if crossed {
		confidence = math.Min(confidence+10, 95)
	}

	if spread > 0 {
		reason := fmt.Sprintf("%s位于%s上方%.2f%%，多头排列", fastName, slowName, spread)
		if crossed {
			reason = fmt.Sprintf("%s上穿%s形成金叉，%s", fastName, slowName, reason)
		}
		return &Suggestion{Strategy: s.Name(), Action: Buy, Confidence: confidence, Reason: reason}, nil
	}

	reason := fmt.Sprintf("%s位于%s下方%.2f%%，空头排列", fastName, slowName, -spread)
	if crossed {
		reason = fmt.Sprintf("%s下穿%s形成死叉，%s", fastName, slowName, reason)
	}
	return &Suggestion{Strategy: s.Name(), Action: Sell, Confidence: confidence, Reason: reason}, nil
}

// freshCross reports whether the fast/slow relation flipped on the
// latest bar.
func (s *TrendStrategy) freshCross(in Input, fastName, slowName string) bool {
	if len(in.Rows) < 2 {
		return false
	}
	cur, prev := in.Rows[len(in.Rows)-1], in.Rows[len(in.Rows)-2]
	cf, ok1 := cur.Get(fastName)
	cs, ok2 := cur.Get(slowName)
	pf, ok3 := prev.Get(fastName)
	ps, ok4 := prev.Get(slowName)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return (cf > cs) != (pf > ps)
}
