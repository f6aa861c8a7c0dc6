package signal

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// Config holds the rule thresholds, fixed at evaluator construction.
type Config struct {
	RSIOverbought float64 `yaml:"rsi_overbought" default:"70"`
	RSIOversold   float64 `yaml:"rsi_oversold" default:"30"`
	MAFast        int     `yaml:"ma_fast" default:"5"`
	MASlow        int     `yaml:"ma_slow" default:"20"`
	// Enabled rule families. Empty means the default set (crossover and
	// threshold); the trend family is opt-in because its state reads overlap
	// the crossovers that created them.
	EnableRuleFamily []string `yaml:"enable_rule_family"`
}

// DefaultConfig returns the stock thresholds: RSI 70/30 and the MA5/MA20 pair.
func DefaultConfig() Config {
	return Config{
		RSIOverbought: 70,
		RSIOversold:   30,
		MAFast:        5,
		MASlow:        20,
	}
}

func (c Config) familyEnabled(f Family) bool {
	if len(c.EnableRuleFamily) == 0 {
		return f == FamilyCrossover || f == FamilyThreshold
	}
	for _, name := range c.EnableRuleFamily {
		if Family(name) == f {
			return true
		}
	}
	return false
}

// ErrNoRows is returned when Evaluate is called with an empty table.
var ErrNoRows = errors.New("signal: no indicator rows supplied")

// MalformedRowError reports a row the evaluator refuses to score. It is the
// only way Evaluate fails on non-empty input; callers should surface the
// affected stock as "analysis unavailable" rather than treating it as neutral.
type MalformedRowError struct {
	Timestamp time.Time
	Reason    string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("signal: malformed indicator row at %s: %s",
		e.Timestamp.Format("2006-01-02"), e.Reason)
}

// Evaluator runs the registered rule battery over an indicator table. It owns
// no mutable state: every Evaluate call is a pure function of its input rows
// and the thresholds captured at construction.
type Evaluator struct {
	cfg   Config
	rules []Rule
}

// New builds an evaluator over the registered rule battery.
func New(cfg Config) *Evaluator {
	if cfg.MAFast <= 0 {
		cfg.MAFast = 5
	}
	if cfg.MASlow <= 0 {
		cfg.MASlow = 20
	}
	if cfg.RSIOverbought == 0 {
		cfg.RSIOverbought = 70
	}
	if cfg.RSIOversold == 0 {
		cfg.RSIOversold = 30
	}
	return &Evaluator{cfg: cfg, rules: Rules()}
}

// Evaluate scores the table's newest period. rows must be ordered by
// timestamp ascending; only the last two rows are consulted. With a single
// row, crossover rules never fire but threshold rules still evaluate. A
// malformed consumed row (close missing, non-finite or <= 0) fails the whole
// evaluation with *MalformedRowError.
func (ev *Evaluator) Evaluate(rows []model.IndicatorRow) (ScoreResult, error) {
	if len(rows) == 0 {
		return ScoreResult{}, ErrNoRows
	}

	cur := rows[len(rows)-1]
	var prev *model.IndicatorRow
	if len(rows) > 1 {
		prev = &rows[len(rows)-2]
	}

	if err := validateRow(cur); err != nil {
		return ScoreResult{}, err
	}
	if prev != nil {
		if err := validateRow(*prev); err != nil {
			return ScoreResult{}, err
		}
	}

	e := &Eval{cur: cur, prev: prev, cfg: ev.cfg}
	signals := make([]Signal, 0, 8)
	for _, r := range ev.rules {
		if !ev.cfg.familyEnabled(r.Family) {
			continue
		}
		if r.Fires(e) {
			signals = append(signals, Signal{Rule: r.Name, Text: r.Text, Polarity: r.Polarity})
		}
	}

	return Aggregate(signals), nil
}

func validateRow(r model.IndicatorRow) error {
	if math.IsNaN(r.Close) || math.IsInf(r.Close, 0) {
		return &MalformedRowError{Timestamp: r.Timestamp, Reason: "close is not a finite number"}
	}
	if r.Close <= 0 {
		return &MalformedRowError{Timestamp: r.Timestamp, Reason: fmt.Sprintf("close must be positive, got %g", r.Close)}
	}
	return nil
}
