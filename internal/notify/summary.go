package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
)

const maxSignalsPerStock = 3

// Summarize builds the push message for one finished run: a per-stock
// line with price, change, score and the leading signals, then the
// market-wide figures. Failed stocks show their reason instead of a
// crafted neutral line.
func Summarize(results []*analyzer.Result, summary analyzer.MarketSummary, at time.Time) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "分析时间: %s\n\n", at.Format("2006-01-02 15:04"))

	for _, r := range results {
		if r == nil {
			continue
		}
		name := r.Stock.Name
		if name == "" {
			name = r.Stock.Code
		}
		if r.Failed {
			fmt.Fprintf(&b, "【%s】分析不可用: %s\n\n", name, r.Error)
			continue
		}

		fmt.Fprintf(&b, "【%s】%s", name, r.Stock.Code)
		if close := r.LatestClose(); close > 0 {
			fmt.Fprintf(&b, "  %.2f (%+.2f%%)", close, r.ChangePct())
		}
		fmt.Fprintf(&b, "\n评分: %d/5 %s", r.Score.Score, r.Score.Label)
		fmt.Fprintf(&b, "  建议: %s\n", r.Vote.Action.Label())

		for i, text := range r.Score.Texts() {
			if i >= maxSignalsPerStock {
				fmt.Fprintf(&b, "- ... 共%d条信号\n", len(r.Score.Signals))
				break
			}
			fmt.Fprintf(&b, "- %s\n", text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "市场概览: 共%d只", summary.Total)
	if summary.Failed > 0 {
		fmt.Fprintf(&b, " (失败%d)", summary.Failed)
	}
	fmt.Fprintf(&b, ", 看多%d / 中性%d / 看空%d, 均分%.1f, %s",
		summary.BullishCount, summary.NeutralCount, summary.BearishCount,
		summary.AverageScore, summary.Mood)

	return Message{
		Title: fmt.Sprintf("A股技术分析报告 %s (%s)", at.Format("01-02"), summary.Mood),
		Text:  b.String(),
	}
}
