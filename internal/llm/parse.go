package llm

import (
	"regexp"
	"strconv"
	"strings"
)

// Narrative is the model response split into report sections.
type Narrative struct {
	Technical string  `json:"technical"` // 技术分析
	Trend     string  `json:"trend"`     // 走势分析
	Advice    string  `json:"advice"`    // 投资建议
	Risk      string  `json:"risk"`      // 风险提示
	Summary   string  `json:"summary"`   // 总结
	Sentiment float64 `json:"sentiment"` // [-1, 1], 0 when the model omitted it
	Raw       string  `json:"-"`
}

// Section pairs a heading with its body for ordered rendering.
type Section struct {
	Title string
	Body  string
}

// Sections returns the non-empty sections in report order.
func (n *Narrative) Sections() []Section {
	all := []Section{
		{"技术分析", n.Technical},
		{"走势分析", n.Trend},
		{"投资建议", n.Advice},
		{"风险提示", n.Risk},
		{"总结", n.Summary},
	}
	out := make([]Section, 0, len(all))
	for _, s := range all {
		if s.Body != "" {
			out = append(out, s)
		}
	}
	return out
}

var sentimentRe = regexp.MustCompile(`情感分数[:：]\s*([-+]?\d*\.?\d+)`)

// parseNarrative splits the response on the fixed section headings and
// pulls out the sentiment score. Unrecognized leading text is dropped;
// the verbatim response stays in Raw.
func parseNarrative(text string) *Narrative {
	n := &Narrative{Raw: text}

	headings := map[string]*string{
		"技术分析": &n.Technical,
		"走势分析": &n.Trend,
		"投资建议": &n.Advice,
		"风险提示": &n.Risk,
		"总结":   &n.Summary,
	}

	var current *string
	var buf []string
	flush := func() {
		if current != nil && len(buf) > 0 {
			*current = strings.Join(buf, "\n")
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		head := headerText(line)
		if strings.HasPrefix(head, "情感分数") {
			continue // captured from the full text below
		}
		if strings.HasPrefix(head, "总体总结") {
			flush()
			current = &n.Summary
			if rest := afterColon(head); rest != "" {
				buf = append(buf, rest)
			}
			continue
		}
		if dst, ok := headings[head]; ok {
			flush()
			current = dst
			continue
		}
		if current != nil {
			buf = append(buf, line)
		}
	}
	flush()

	if m := sentimentRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			n.Sentiment = clampSentiment(v)
		}
	}
	return n
}

// headerText strips the markdown decorations models add despite the
// plain-text instruction in the prompt.
func headerText(line string) string {
	s := strings.TrimLeft(line, "# ")
	return strings.TrimSpace(strings.Trim(s, "*"))
}

// afterColon returns the text following the first full- or half-width
// colon, or "" when there is none.
func afterColon(s string) string {
	if i := strings.Index(s, "："); i >= 0 {
		return strings.TrimSpace(s[i+len("："):])
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return ""
}

func clampSentiment(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
