package signal

import (
	"fmt"
	"sync"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// Family groups rules that share a precondition. Crossover rules need the
// previous row; threshold and trend rules read only the current one.
type Family string

const (
	FamilyCrossover Family = "crossover"
	FamilyThreshold Family = "threshold"
	FamilyTrend     Family = "trend"
)

// Rule is one registered (predicate, polarity, message) entry. Fires must
// return false whenever a field it needs is absent; absence is never an error.
type Rule struct {
	Name     string
	Family   Family
	Polarity Polarity
	Text     string
	Fires    func(e *Eval) bool
}

// 规则注册表，评估顺序即注册顺序

var (
	registry     []Rule
	registryLock sync.RWMutex
)

// Register appends a rule to the battery. Rule names must be unique; adding a
// rule never touches the aggregation logic.
func Register(r Rule) {
	registryLock.Lock()
	defer registryLock.Unlock()
	for _, existing := range registry {
		if existing.Name == r.Name {
			panic(fmt.Sprintf("signal: duplicate rule %q", r.Name))
		}
	}
	registry = append(registry, r)
}

// Rules returns a snapshot of the registered battery in evaluation order.
func Rules() []Rule {
	registryLock.RLock()
	defer registryLock.RUnlock()
	out := make([]Rule, len(registry))
	copy(out, registry)
	return out
}

// Eval carries the row pair and thresholds a predicate may consult.
type Eval struct {
	cur  model.IndicatorRow
	prev *model.IndicatorRow
	cfg  Config
}

// Cur returns the named field of the current row.
func (e *Eval) Cur(name string) (float64, bool) {
	return e.cur.Get(name)
}

// crossUp reports a golden cross of fast over slow between the previous and
// current row: previous difference <= 0 and current difference > 0. A pair
// stuck at exactly zero fires nothing.
func (e *Eval) crossUp(fast, slow string) bool {
	cf, cs, pf, ps, ok := e.pair(fast, slow)
	if !ok {
		return false
	}
	return pf-ps <= 0 && cf-cs > 0
}

// crossDown is the opposite sign flip: previous difference >= 0, current < 0.
func (e *Eval) crossDown(fast, slow string) bool {
	cf, cs, pf, ps, ok := e.pair(fast, slow)
	if !ok {
		return false
	}
	return pf-ps >= 0 && cf-cs < 0
}

func (e *Eval) pair(fast, slow string) (cf, cs, pf, ps float64, ok bool) {
	if e.prev == nil {
		return 0, 0, 0, 0, false
	}
	cf, ok1 := e.cur.Get(fast)
	cs, ok2 := e.cur.Get(slow)
	pf, ok3 := e.prev.Get(fast)
	ps, ok4 := e.prev.Get(slow)
	return cf, cs, pf, ps, ok1 && ok2 && ok3 && ok4
}

func (e *Eval) above(name string, limit float64) bool {
	v, ok := e.cur.Get(name)
	return ok && v > limit
}

func (e *Eval) below(name string, limit float64) bool {
	v, ok := e.cur.Get(name)
	return ok && v < limit
}

// maFast / maSlow resolve the configured moving-average pair to column names.
func (e *Eval) maFast() string { return fmt.Sprintf("MA%d", e.cfg.MAFast) }
func (e *Eval) maSlow() string { return fmt.Sprintf("MA%d", e.cfg.MASlow) }

// KDJ and VR zone boundaries follow the conventional Chinese charting reads.
const (
	jOverbought = 100.0
	jOversold   = 0.0
	kdZoneHigh  = 80.0
	kdZoneLow   = 20.0
	vrActive    = 160.0
	vrQuiet     = 40.0
)

func init() {
	// Crossover family. The MACD pair is DIF over DEA; the histogram is just
	// the scaled difference, so the sign test is identical either way.
	Register(Rule{
		Name: "macd_golden_cross", Family: FamilyCrossover, Polarity: Bullish,
		Text:  "MACD金叉形成，可能上涨",
		Fires: func(e *Eval) bool { return e.crossUp(model.FieldDIF, model.FieldDEA) },
	})
	Register(Rule{
		Name: "macd_death_cross", Family: FamilyCrossover, Polarity: Bearish,
		Text:  "MACD死叉形成，可能下跌",
		Fires: func(e *Eval) bool { return e.crossDown(model.FieldDIF, model.FieldDEA) },
	})
	Register(Rule{
		Name: "ma_golden_cross", Family: FamilyCrossover, Polarity: Bullish,
		Text:  "均线金叉，短期均线上穿长期均线",
		Fires: func(e *Eval) bool { return e.crossUp(e.maFast(), e.maSlow()) },
	})
	Register(Rule{
		Name: "ma_death_cross", Family: FamilyCrossover, Polarity: Bearish,
		Text:  "均线死叉，短期均线下穿长期均线",
		Fires: func(e *Eval) bool { return e.crossDown(e.maFast(), e.maSlow()) },
	})
	Register(Rule{
		Name: "kdj_golden_cross", Family: FamilyCrossover, Polarity: Bullish,
		Text:  "KDJ金叉，K线上穿D线",
		Fires: func(e *Eval) bool { return e.crossUp(model.FieldK, model.FieldD) },
	})
	Register(Rule{
		Name: "kdj_death_cross", Family: FamilyCrossover, Polarity: Bearish,
		Text:  "KDJ死叉，K线下穿D线",
		Fires: func(e *Eval) bool { return e.crossDown(model.FieldK, model.FieldD) },
	})
	Register(Rule{
		Name: "dmi_golden_cross", Family: FamilyCrossover, Polarity: Bullish,
		Text:  "DMI金叉，上升趋势形成",
		Fires: func(e *Eval) bool { return e.crossUp(model.FieldPDI, model.FieldMDI) },
	})
	Register(Rule{
		Name: "dmi_death_cross", Family: FamilyCrossover, Polarity: Bearish,
		Text:  "DMI死叉，下降趋势形成",
		Fires: func(e *Eval) bool { return e.crossDown(model.FieldPDI, model.FieldMDI) },
	})
	Register(Rule{
		Name: "roc_cross_up", Family: FamilyCrossover, Polarity: Bullish,
		Text:  "ROC上穿均线，上升动能增强",
		Fires: func(e *Eval) bool { return e.crossUp(model.FieldROC, model.FieldMAROC) },
	})
	Register(Rule{
		Name: "roc_cross_down", Family: FamilyCrossover, Polarity: Bearish,
		Text:  "ROC下穿均线，上升动能减弱",
		Fires: func(e *Eval) bool { return e.crossDown(model.FieldROC, model.FieldMAROC) },
	})

	// Threshold family, current row only.
	Register(Rule{
		Name: "rsi_overbought", Family: FamilyThreshold, Polarity: Bearish,
		Text:  "RSI超买，注意回调",
		Fires: func(e *Eval) bool { return e.above(model.FieldRSI, e.cfg.RSIOverbought) },
	})
	Register(Rule{
		Name: "rsi_oversold", Family: FamilyThreshold, Polarity: Bullish,
		Text:  "RSI超卖，可能反弹",
		Fires: func(e *Eval) bool { return e.below(model.FieldRSI, e.cfg.RSIOversold) },
	})
	Register(Rule{
		Name: "boll_break_upper", Family: FamilyThreshold, Polarity: Bearish,
		Text: "股价突破布林上轨，超买状态",
		Fires: func(e *Eval) bool {
			up, ok := e.cur.Get(model.FieldBollUp)
			return ok && e.cur.Close > up
		},
	})
	Register(Rule{
		Name: "boll_break_lower", Family: FamilyThreshold, Polarity: Bullish,
		Text: "股价跌破布林下轨，超卖状态",
		Fires: func(e *Eval) bool {
			low, ok := e.cur.Get(model.FieldBollLow)
			return ok && e.cur.Close < low
		},
	})
	Register(Rule{
		Name: "kdj_j_overbought", Family: FamilyThreshold, Polarity: Bearish,
		Text: "KDJ J值超买，注意回调",
		Fires: func(e *Eval) bool {
			j, ok := e.cur.Get(model.FieldJ)
			return ok && j >= jOverbought
		},
	})
	Register(Rule{
		Name: "kdj_j_oversold", Family: FamilyThreshold, Polarity: Bullish,
		Text: "KDJ J值超卖，可能反弹",
		Fires: func(e *Eval) bool {
			j, ok := e.cur.Get(model.FieldJ)
			return ok && j <= jOversold
		},
	})
	Register(Rule{
		Name: "kdj_zone_overbought", Family: FamilyThreshold, Polarity: Bearish,
		Text: "KDJ超买，注意回调",
		Fires: func(e *Eval) bool {
			return e.above(model.FieldK, kdZoneHigh) && e.above(model.FieldD, kdZoneHigh)
		},
	})
	Register(Rule{
		Name: "kdj_zone_oversold", Family: FamilyThreshold, Polarity: Bullish,
		Text: "KDJ超卖，可能反弹",
		Fires: func(e *Eval) bool {
			return e.below(model.FieldK, kdZoneLow) && e.below(model.FieldD, kdZoneLow)
		},
	})
	Register(Rule{
		Name: "vr_active", Family: FamilyThreshold, Polarity: Bullish,
		Text:  "VR大于160，市场活跃买盘占优",
		Fires: func(e *Eval) bool { return e.above(model.FieldVR, vrActive) },
	})
	Register(Rule{
		Name: "vr_quiet", Family: FamilyThreshold, Polarity: Bearish,
		Text:  "VR小于40，市场低迷卖盘占优",
		Fires: func(e *Eval) bool { return e.below(model.FieldVR, vrQuiet) },
	})

	// Trend family: state reads, not transitions. Off by default so a golden
	// cross is not double counted by the arrangement it just created.
	Register(Rule{
		Name: "price_above_ma", Family: FamilyTrend, Polarity: Bullish,
		Text: "股价站上长期均线，趋势偏多",
		Fires: func(e *Eval) bool {
			ma, ok := e.cur.Get(e.maSlow())
			return ok && e.cur.Close > ma
		},
	})
	Register(Rule{
		Name: "price_below_ma", Family: FamilyTrend, Polarity: Bearish,
		Text: "股价跌破长期均线，趋势偏空",
		Fires: func(e *Eval) bool {
			ma, ok := e.cur.Get(e.maSlow())
			return ok && e.cur.Close < ma
		},
	})
	Register(Rule{
		Name: "ma_bull_arrangement", Family: FamilyTrend, Polarity: Bullish,
		Text: "短期均线位于长期均线上方，多头格局",
		Fires: func(e *Eval) bool {
			f, ok1 := e.cur.Get(e.maFast())
			s, ok2 := e.cur.Get(e.maSlow())
			return ok1 && ok2 && f > s
		},
	})
	Register(Rule{
		Name: "ma_bear_arrangement", Family: FamilyTrend, Polarity: Bearish,
		Text: "短期均线位于长期均线下方，空头格局",
		Fires: func(e *Eval) bool {
			f, ok1 := e.cur.Get(e.maFast())
			s, ok2 := e.cur.Get(e.maSlow())
			return ok1 && ok2 && f < s
		},
	})
}
