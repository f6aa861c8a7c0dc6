// Package report renders a finished analysis run into a standalone HTML
// document with ECharts candlestick and indicator charts, and keeps a
// JSON-indexed history of saved reports on disk.
package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

//go:embed template.html
var pageTemplate string

// Report is one run's renderable content.
type Report struct {
	ID          string                 `json:"id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Results     []*analyzer.Result     `json:"results"`
	Summary     analyzer.MarketSummary `json:"summary"`
}

// NewReport stamps a run with its identity. Timestamps are Beijing time,
// matching the market the report is about.
func NewReport(results []*analyzer.Result, summary analyzer.MarketSummary) *Report {
	return &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().In(beijing()),
		Results:     results,
		Summary:     summary,
	}
}

func beijing() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// Renderer turns reports into HTML.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded page template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"pct": func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
		"f2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"mod": func(a, b int) int { return a % b },
	}).Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// stockView is the per-stock template payload: the analysis result plus
// the pre-rendered chart fragments and the indicator snapshot rows.
type stockView struct {
	*analyzer.Result
	Charts   []template.HTML
	Snapshot []snapshotItem
}

type snapshotItem struct {
	Name  string
	Value string
}

type pageView struct {
	*Report
	Stocks []stockView
}

// Render writes the full HTML document for rep.
func (r *Renderer) Render(w io.Writer, rep *Report) error {
	view := pageView{Report: rep, Stocks: make([]stockView, 0, len(rep.Results))}
	for _, res := range rep.Results {
		if res == nil {
			continue
		}
		sv := stockView{Result: res}
		if !res.Failed {
			sv.Charts = stockCharts(res)
			sv.Snapshot = snapshot(res.Rows)
		}
		view.Stocks = append(view.Stocks, sv)
	}
	if err := r.tmpl.Execute(w, view); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

// snapshot picks the headline indicator values from the newest row.
func snapshot(rows []model.IndicatorRow) []snapshotItem {
	if len(rows) == 0 {
		return nil
	}
	last := rows[len(rows)-1]

	fields := []struct{ label, field string }{
		{"MA5", "MA5"},
		{"MA20", "MA20"},
		{"DIF", model.FieldDIF},
		{"DEA", model.FieldDEA},
		{"MACD", model.FieldMACD},
		{"RSI", model.FieldRSI},
		{"K", model.FieldK},
		{"D", model.FieldD},
		{"J", model.FieldJ},
		{"BOLL上轨", model.FieldBollUp},
		{"BOLL中轨", model.FieldBollMid},
		{"BOLL下轨", model.FieldBollLow},
		{"VR", model.FieldVR},
		{"CCI", model.FieldCCI},
	}

	items := make([]snapshotItem, 0, len(fields))
	for _, f := range fields {
		if v, ok := last.Get(f.field); ok {
			items = append(items, snapshotItem{Name: f.label, Value: fmt.Sprintf("%.2f", v)})
		}
	}
	return items
}
