package strategy

import (
	"fmt"
)

// BreakoutConfig holds configuration for the breakout strategy.
type BreakoutConfig struct {
	Window         int     // lookback for the prior high/low (default 20 bars)
	VolumeMultiple float64 // volume vs window average that counts as 放量 (default 1.5x)
}

// DefaultBreakoutConfig returns default configuration.
func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		Window:         20,
		VolumeMultiple: 1.5,
	}
}

// BreakoutStrategy votes on range breaks: a close above the prior
// 20-bar high is a buy, below the prior low a sell, anything between a
// hold annotated with the position inside the range. Volume above the
// window average strengthens a break.
type BreakoutStrategy struct {
	config BreakoutConfig
}

// NewBreakoutStrategy creates a new breakout strategy.
func NewBreakoutStrategy(cfg BreakoutConfig) *BreakoutStrategy {
	return &BreakoutStrategy{config: cfg}
}

// Name returns the strategy name.
func (s *BreakoutStrategy) Name() string {
	return "breakout"
}

// Description returns the strategy description.
func (s *BreakoutStrategy) Description() string {
	return fmt.Sprintf("区间突破 - 收盘价相对前%d日高低点的位置", s.config.Window)
}

// Evaluate compares the latest close against the prior window extremes.
func (s *BreakoutStrategy) Evaluate(in Input) (*Suggestion, error) {
	need := s.config.Window + 1
	if len(in.Candles) < need {
		return nil, fmt.Errorf("breakout: need %d candles, got %d", need, len(in.Candles))
	}

	today := in.Candles[len(in.Candles)-1]
	window := in.Candles[len(in.Candles)-need : len(in.Candles)-1]

	high, low := window[0].High, window[0].Low
	var volSum float64
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		volSum += c.Volume
	}
	avgVol := volSum / float64(len(window))

	heavyVolume := avgVol > 0 && today.Volume >= avgVol*s.config.VolumeMultiple
	volumeNote := ""
	if heavyVolume {
		volumeNote = fmt.Sprintf("，放量%.1f倍", today.Volume/avgVol)
	}

	switch {
	case today.Close > high:
		confidence := 65.0
		if heavyVolume {
			confidence = 80
		}
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Buy,
			Confidence: confidence,
			Reason:     fmt.Sprintf("收盘%.2f突破前%d日高点%.2f%s", today.Close, s.config.Window, high, volumeNote),
		}, nil
	case today.Close < low:
		confidence := 65.0
		if heavyVolume {
			confidence = 80
		}
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Sell,
			Confidence: confidence,
			Reason:     fmt.Sprintf("收盘%.2f跌破前%d日低点%.2f%s", today.Close, s.config.Window, low, volumeNote),
		}, nil
	default:
		position := 50.0
		if high > low {
			position = (today.Close - low) / (high - low) * 100
		}
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Hold,
			Confidence: 40,
			Reason:     fmt.Sprintf("收盘%.2f处于前%d日区间%.0f%%分位，未见突破", today.Close, s.config.Window, position),
		}, nil
	}
}
