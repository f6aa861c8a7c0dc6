package llm

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/news"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

func TestSampleIndexes(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{10, 10},
		{60, 60},
		{61, 61},  // one early bar, kept
		{70, 65},  // 10 early bars thinned to 5
		{100, 80}, // 40 early bars thinned to 20
	}
	for _, tt := range tests {
		got := sampleIndexes(tt.n)
		if len(got) != tt.want {
			t.Errorf("sampleIndexes(%d): expected %d indexes, got %d", tt.n, tt.want, len(got))
			continue
		}
		if tt.n > 0 {
			if got[0] != 0 {
				t.Errorf("sampleIndexes(%d): expected first index 0, got %d", tt.n, got[0])
			}
			if got[len(got)-1] != tt.n-1 {
				t.Errorf("sampleIndexes(%d): expected last index %d, got %d", tt.n, tt.n-1, got[len(got)-1])
			}
		}
	}
}

func TestThousands(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4521, "-4,521"},
	}
	for _, tt := range tests {
		if got := thousands(tt.in); got != tt.want {
			t.Errorf("thousands(%d): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestFormatPayloadSampling(t *testing.T) {
	candles := promptCandles(70)
	rows := promptRows(candles)

	payload, err := formatPayload(candles, rows)
	if err != nil {
		t.Fatalf("formatPayload failed: %v", err)
	}

	var decoded struct {
		History    map[string]json.RawMessage `json:"历史数据"`
		Indicators map[string]json.RawMessage `json:"技术指标"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}

	if len(decoded.History) != 65 {
		t.Errorf("Expected 65 sampled days, got %d", len(decoded.History))
	}
	if len(decoded.Indicators) != 65 {
		t.Errorf("Expected indicators for every sampled day, got %d", len(decoded.Indicators))
	}

	first := candles[0].Time.Format("2006-01-02")
	second := candles[1].Time.Format("2006-01-02")
	last := candles[69].Time.Format("2006-01-02")
	if _, ok := decoded.History[first]; !ok {
		t.Errorf("Expected first day %s in payload", first)
	}
	if _, ok := decoded.History[second]; ok {
		t.Errorf("Expected second day %s thinned out of payload", second)
	}
	if _, ok := decoded.History[last]; !ok {
		t.Errorf("Expected last day %s in payload", last)
	}
}

func TestFormatPayloadMissingValues(t *testing.T) {
	candles := promptCandles(3)
	rows := promptRows(candles)
	delete(rows[2].Values, model.FieldRSI)

	payload, err := formatPayload(candles, rows)
	if err != nil {
		t.Fatalf("formatPayload failed: %v", err)
	}
	if !strings.Contains(payload, `"RSI": "nan"`) {
		t.Error("Expected missing RSI to render as nan")
	}
	if !strings.Contains(payload, `"KDJ-K"`) {
		t.Error("Expected KDJ columns under their chart names")
	}
}

func TestFormatPayloadEmpty(t *testing.T) {
	if _, err := formatPayload(nil, nil); err == nil {
		t.Error("Expected error for empty candles")
	}
}

func TestTrendSummary(t *testing.T) {
	candles := promptCandles(25)
	for i := range candles {
		candles[i].Close = 10
		candles[i].Volume = 1000
	}
	candles[24].Close = 11 // latest
	candles[23].Close = 10 // 1 day back
	candles[19].Close = 8  // 5 trading days back
	candles[4].Close = 5.5 // 20 trading days back
	candles[10].High = 99
	candles[3].Low = 1

	trend := trendSummary(candles)

	if trend.DayChange != "10.00%" {
		t.Errorf("Expected day change 10.00%%, got %s", trend.DayChange)
	}
	if trend.WeekChange != "37.50%" {
		t.Errorf("Expected week change 37.50%%, got %s", trend.WeekChange)
	}
	if trend.MonthChange != "100.00%" {
		t.Errorf("Expected month change 100.00%%, got %s", trend.MonthChange)
	}
	if trend.LatestClose != "11.00" {
		t.Errorf("Expected latest close 11.00, got %s", trend.LatestClose)
	}
	if trend.High != "99.00" {
		t.Errorf("Expected high 99.00, got %s", trend.High)
	}
	if trend.Low != "1.00" {
		t.Errorf("Expected low 1.00, got %s", trend.Low)
	}
	if trend.AvgVolume != "1,000" {
		t.Errorf("Expected avg volume 1,000, got %s", trend.AvgVolume)
	}
}

func TestBuildUserMessage(t *testing.T) {
	stock := model.Stock{Code: "sh600036", Name: "招商银行"}
	items := []news.Item{
		{Title: "招商银行发布半年报", Time: "2025-08-20 09:15:00", Source: "新浪财经"},
		{Title: "银行板块走强", Time: "2025-08-21 10:00:00", Source: "证券时报"},
	}

	msg := buildUserMessage(stock, "{}", items)

	if !strings.Contains(msg, "请分析股票 招商银行（sh600036）") {
		t.Errorf("Expected stock identity in message, got %q", msg[:80])
	}
	if !strings.Contains(msg, "1. [2025-08-20 09:15:00] 招商银行发布半年报") {
		t.Error("Expected numbered news line in message")
	}
	if !strings.Contains(msg, "2. [2025-08-21 10:00:00] 银行板块走强") {
		t.Error("Expected second news line in message")
	}

	plain := buildUserMessage(stock, "{}", nil)
	if strings.Contains(plain, "最新相关新闻") {
		t.Error("Expected no news block without headlines")
	}
}

func promptCandles(n int) []model.Candle {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		price := 10 + float64(i)*0.05
		out[i] = model.Candle{
			Time:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price + 0.2,
			Low:    price - 0.2,
			Close:  price + 0.1,
			Volume: 150000,
		}
	}
	return out
}

func promptRows(candles []model.Candle) []model.IndicatorRow {
	rows := make([]model.IndicatorRow, len(candles))
	for i, c := range candles {
		rows[i] = model.IndicatorRow{
			Timestamp: c.Time,
			Close:     c.Close,
			Volume:    c.Volume,
			Values: map[string]float64{
				model.FieldRSI:  55,
				model.FieldK:    60,
				model.FieldD:    50,
				model.FieldJ:    80,
				model.FieldMACD: 0.12,
				model.FieldDIF:  0.3,
				model.FieldDEA:  0.24,
				"MA5":           c.Close,
				"MA20":          c.Close - 0.5,
			},
		}
	}
	return rows
}
