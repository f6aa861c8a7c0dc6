package signal

// Aggregate reduces a signal sequence to a score and label by counting
// polarities. The mapping is intentionally asymmetric: 5 requires every fired
// signal to be bullish, while 1 covers any net-bearish outcome including a
// unanimous one. Only counts matter, so the result is independent of signal
// order.
//
//	b > 0 && s == 0      -> 5 强烈看涨
//	b - s > 0            -> 4 看涨
//	b == s, both nonzero -> 3 偏多
//	no signals at all    -> 2 中性
//	b - s < 0            -> 1 看跌
func Aggregate(signals []Signal) ScoreResult {
	var b, s int
	for _, sig := range signals {
		if sig.Polarity == Bullish {
			b++
		} else {
			s++
		}
	}

	var score int
	var label string
	switch {
	case b > 0 && s == 0:
		score, label = 5, LabelStrongBullish
	case b-s > 0:
		score, label = 4, LabelBullish
	case b == 0 && s == 0:
		score, label = 2, LabelNeutral
	case b == s:
		score, label = 3, LabelSlightlyBullish
	default:
		score, label = 1, LabelBearish
	}

	return ScoreResult{Score: score, Label: label, Signals: signals}
}
