package strategy

import (
	"fmt"
	"math"
)

// SentimentConfig holds configuration for the sentiment strategy.
type SentimentConfig struct {
	BuyThreshold  float64 // narrative score at or above this is a buy (default 0.3)
	SellThreshold float64 // narrative score at or below this is a sell (default -0.3)
}

// DefaultSentimentConfig returns default configuration.
func DefaultSentimentConfig() SentimentConfig {
	return SentimentConfig{
		BuyThreshold:  0.3,
		SellThreshold: -0.3,
	}
}

// SentimentStrategy votes with the AI narrative's sentiment score.
// Without a narrative it abstains.
type SentimentStrategy struct {
	config SentimentConfig
}

// NewSentimentStrategy creates a new sentiment strategy.
func NewSentimentStrategy(cfg SentimentConfig) *SentimentStrategy {
	return &SentimentStrategy{config: cfg}
}

// Name returns the strategy name.
func (s *SentimentStrategy) Name() string {
	return "sentiment"
}

// Description returns the strategy description.
func (s *SentimentStrategy) Description() string {
	return "AI情绪 - 根据AI分析的情感分数投票"
}

// Evaluate maps the sentiment score onto an action.
func (s *SentimentStrategy) Evaluate(in Input) (*Suggestion, error) {
	if !in.HasSentiment {
		return nil, fmt.Errorf("sentiment: no narrative score available")
	}

	score := in.Sentiment
	switch {
	case score >= s.config.BuyThreshold:
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Buy,
			Confidence: 50 + math.Min(score, 1)*50,
			Reason:     fmt.Sprintf("AI情感分数%.2f，情绪偏多", score),
		}, nil
	case score <= s.config.SellThreshold:
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Sell,
			Confidence: 50 + math.Min(-score, 1)*50,
			Reason:     fmt.Sprintf("AI情感分数%.2f，情绪偏空", score),
		}, nil
	default:
		return &Suggestion{
			Strategy:   s.Name(),
			Action:     Hold,
			Confidence: 50,
			Reason:     fmt.Sprintf("AI情感分数%.2f，情绪中性", score),
		}, nil
	}
}
