package report

import (
	"html/template"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

const (
	chartWidth  = "100%"
	chartHeight = "360px"
)

// stockCharts renders the candlestick and indicator charts for one stock
// as embeddable HTML fragments: price+MA, MACD, RSI, KDJ. Charts whose
// columns never warmed up are simply omitted.
func stockCharts(res *analyzer.Result) []template.HTML {
	if len(res.Candles) == 0 {
		return nil
	}

	dates := make([]string, len(res.Candles))
	for i, c := range res.Candles {
		dates[i] = c.Time.Format("2006-01-02")
	}

	fragments := make([]template.HTML, 0, 4)
	fragments = append(fragments, priceChart(res, dates))
	if frag := macdChart(res.Rows, dates); frag != "" {
		fragments = append(fragments, frag)
	}
	if frag := lineChart("RSI", dates, res.Rows, []string{model.FieldRSI}); frag != "" {
		fragments = append(fragments, frag)
	}
	if frag := lineChart("KDJ", dates, res.Rows,
		[]string{model.FieldK, model.FieldD, model.FieldJ}); frag != "" {
		fragments = append(fragments, frag)
	}
	return fragments
}

// priceChart draws the kline with MA5/MA20 overlays.
func priceChart(res *analyzer.Result, dates []string) template.HTML {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: res.Stock.Name + " 日K"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)

	klineData := make([]opts.KlineData, len(res.Candles))
	for i, c := range res.Candles {
		klineData[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	kline.SetXAxis(dates).AddSeries("K线", klineData)

	for _, name := range []string{"MA5", "MA20"} {
		data, any := columnData(res.Rows, name)
		if !any {
			continue
		}
		ma := charts.NewLine()
		ma.SetXAxis(dates).AddSeries(name, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		kline.Overlap(ma)
	}

	return snippet(kline)
}

// macdChart draws the DIF/DEA lines over the histogram bars.
func macdChart(rows []model.IndicatorRow, dates []string) template.HTML {
	dif, anyDIF := columnData(rows, model.FieldDIF)
	dea, anyDEA := columnData(rows, model.FieldDEA)
	if !anyDIF || !anyDEA {
		return ""
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "MACD"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(dates).
		AddSeries("DIF", dif).
		AddSeries("DEA", dea)

	hist := make([]opts.BarData, len(rows))
	for i, row := range rows {
		if v, ok := row.Get(model.FieldMACD); ok {
			hist[i] = opts.BarData{Value: v}
		} else {
			hist[i] = opts.BarData{Value: "-"}
		}
	}
	bar := charts.NewBar()
	bar.SetXAxis(dates).AddSeries("MACD", hist)
	line.Overlap(bar)

	return snippet(line)
}

// lineChart draws one or more indicator columns on a shared axis.
func lineChart(title string, dates []string, rows []model.IndicatorRow, fields []string) template.HTML {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(dates)

	plotted := false
	for _, f := range fields {
		data, any := columnData(rows, f)
		if !any {
			continue
		}
		line.AddSeries(f, data)
		plotted = true
	}
	if !plotted {
		return ""
	}
	return snippet(line)
}

// columnData extracts one indicator column as line data, mapping absent
// values to the ECharts gap marker. any reports whether the column ever
// held a value.
func columnData(rows []model.IndicatorRow, field string) ([]opts.LineData, bool) {
	data := make([]opts.LineData, len(rows))
	any := false
	for i, row := range rows {
		v, ok := row.Get(field)
		if !ok || math.IsNaN(v) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: math.Round(v*100) / 100}
		any = true
	}
	return data, any
}

// snippetRenderer is the subset of go-echarts charts the report embeds.
type snippetRenderer interface {
	RenderSnippet() render.ChartSnippet
}

// snippet renders a chart as an element+script fragment for embedding
// into the report template, which loads the ECharts runtime once.
func snippet(chart snippetRenderer) template.HTML {
	s := chart.RenderSnippet()
	return template.HTML(s.Element + "\n" + s.Script)
}
