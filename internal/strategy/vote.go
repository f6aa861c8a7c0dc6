package strategy

// Vote is the combined view of every strategy that could evaluate the
// stock.
type Vote struct {
	Action      Action       `json:"action"`
	Confidence  float64      `json:"confidence"` // mean of the winning side, 0-100
	Suggestions []Suggestion `json:"suggestions"`
}

// Combine runs the given strategies and merges their suggestions by
// majority. Strategies that error (insufficient data, no narrative) are
// skipped. Ties resolve to hold; no usable suggestion at all yields a
// zero-confidence hold.
func Combine(in Input, strategies ...Strategy) Vote {
	if len(strategies) == 0 {
		strategies = All()
	}

	suggestions := make([]Suggestion, 0, len(strategies))
	for _, s := range strategies {
		sug, err := s.Evaluate(in)
		if err != nil || sug == nil {
			continue
		}
		suggestions = append(suggestions, *sug)
	}
	if len(suggestions) == 0 {
		return Vote{Action: Hold, Suggestions: suggestions}
	}

	counts := make(map[Action]int)
	for _, s := range suggestions {
		counts[s.Action]++
	}

	winner := Hold
	best := 0
	tied := false
	for _, action := range []Action{Buy, Sell, Hold} {
		switch {
		case counts[action] > best:
			winner, best, tied = action, counts[action], false
		case counts[action] == best && counts[action] > 0 && action != winner:
			tied = true
		}
	}
	if tied {
		return Vote{Action: Hold, Confidence: 50, Suggestions: suggestions}
	}

	var sum float64
	var n int
	for _, s := range suggestions {
		if s.Action == winner {
			sum += s.Confidence
			n++
		}
	}
	confidence := 0.0
	if n > 0 {
		confidence = sum / float64(n)
	}
	return Vote{Action: winner, Confidence: confidence, Suggestions: suggestions}
}
