package analyzer

import (
	"math"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// Stats are the quick derived figures shown beside the score: trend
// state, volume behaviour, recent support/resistance and momentum.
type Stats struct {
	Trend         string  `json:"trend"`          // uptrend / downtrend / sideways
	TrendStrength float64 `json:"trend_strength"` // 0-100
	PriceVsMA5    float64 `json:"price_vs_ma5"`   // %
	PriceVsMA20   float64 `json:"price_vs_ma20"`  // %

	VolumeRatio  float64 `json:"volume_ratio"`  // today vs 20-day average
	VolumeSignal string  `json:"volume_signal"` // low / normal / high

	Support    float64 `json:"support"`    // lowest low of the last 20 bars
	Resistance float64 `json:"resistance"` // highest high of the last 20 bars

	Momentum       float64 `json:"momentum"`        // 10-bar rate of change %
	MomentumSignal string  `json:"momentum_signal"` // rising / flat / falling
}

const (
	statsMAWindow     = 20
	statsVolumeWindow = 20
	statsRangeWindow  = 20
	statsROCWindow    = 10
)

// computeStats derives the helper figures from the candle series alone.
// Windows that the series cannot fill leave their fields zeroed.
func computeStats(candles []model.Candle) Stats {
	var s Stats
	if len(candles) == 0 {
		return s
	}

	if len(candles) >= 5 {
		s.PriceVsMA5 = priceVsMA(candles, 5)
	}
	if len(candles) >= statsMAWindow {
		s.PriceVsMA20 = priceVsMA(candles, statsMAWindow)
	}
	s.Trend = trendSignal(s.PriceVsMA5, s.PriceVsMA20)
	s.TrendStrength = trendStrength(s.PriceVsMA5, s.PriceVsMA20)

	if len(candles) >= statsVolumeWindow {
		s.VolumeRatio = volumeRatio(candles, statsVolumeWindow)
		s.VolumeSignal = volumeSignal(s.VolumeRatio)
	}

	s.Support, s.Resistance = recentRange(candles, statsRangeWindow)

	if len(candles) > statsROCWindow {
		s.Momentum = rateOfChange(candles, statsROCWindow)
		s.MomentumSignal = momentumSignal(s.Momentum)
	}

	return s
}

// priceVsMA calculates price position vs moving average, in percent.
func priceVsMA(candles []model.Candle, period int) float64 {
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	ma := sum / float64(period)
	if ma == 0 {
		return 0
	}
	current := candles[len(candles)-1].Close
	return math.Round((current-ma)/ma*10000) / 100
}

// trendSignal determines trend based on MA positions.
func trendSignal(priceVsMA5, priceVsMA20 float64) string {
	if priceVsMA5 > 1 && priceVsMA20 > 1 {
		return "uptrend"
	} else if priceVsMA5 < -1 && priceVsMA20 < -1 {
		return "downtrend"
	}
	return "sideways"
}

// trendStrength scales the average MA distance to 0-100.
func trendStrength(priceVsMA5, priceVsMA20 float64) float64 {
	avg := (math.Abs(priceVsMA5) + math.Abs(priceVsMA20)) / 2
	return math.Round(math.Min(avg*10, 100)*100) / 100
}

// volumeRatio calculates today's volume vs the prior window average.
func volumeRatio(candles []model.Candle, period int) float64 {
	var sum float64
	for i := len(candles) - period; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	avg := sum / float64(period-1)
	if avg == 0 {
		return 1.0
	}
	today := candles[len(candles)-1].Volume
	return math.Round(today/avg*100) / 100
}

// volumeSignal interprets the volume ratio.
func volumeSignal(ratio float64) string {
	if ratio < 0.7 {
		return "low"
	} else if ratio > 1.5 {
		return "high"
	}
	return "normal"
}

// recentRange returns the lowest low and highest high of the last
// window bars (or the whole series when shorter).
func recentRange(candles []model.Candle, window int) (support, resistance float64) {
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	support, resistance = candles[start].Low, candles[start].High
	for _, c := range candles[start:] {
		if c.Low < support {
			support = c.Low
		}
		if c.High > resistance {
			resistance = c.High
		}
	}
	return support, resistance
}

// rateOfChange is the close change over the window, in percent.
func rateOfChange(candles []model.Candle, window int) float64 {
	base := candles[len(candles)-1-window].Close
	if base == 0 {
		return 0
	}
	current := candles[len(candles)-1].Close
	return math.Round((current-base)/base*10000) / 100
}

// momentumSignal interprets the rate of change.
func momentumSignal(roc float64) string {
	if roc > 1 {
		return "rising"
	} else if roc < -1 {
		return "falling"
	}
	return "flat"
}
