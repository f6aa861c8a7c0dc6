package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

const tencentKlineFixture = `{
  "code": 0,
  "msg": "",
  "data": {
    "sh600036": {
      "qfqday": [
        ["2025-06-02", "34.20", "34.80", "35.00", "34.00", "123456.00"],
        ["2025-06-03", "34.80", "35.10", "35.40", "34.60", "98765.00"],
        ["2025-06-04", "35.10", "34.90", "35.30", "34.70", "87654.00"]
      ],
      "qt": {"market": ["closed"]},
      "version": "15"
    }
  }
}`

func TestTencentGetCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("param"); got != "sh600036,day,,,120,qfq" {
			t.Errorf("Expected kline param for sh600036, got %q", got)
		}
		w.Write([]byte(tencentKlineFixture))
	}))
	defer srv.Close()

	p := NewTencent()
	p.klineURL = srv.URL

	candles, err := p.GetCandles(context.Background(), "600036", model.Daily, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("Expected 3 candles, got %d", len(candles))
	}

	first := candles[0]
	if first.Time.Format("2006-01-02") != "2025-06-02" {
		t.Errorf("Expected oldest candle first, got %s", first.Time.Format("2006-01-02"))
	}
	// Row layout is date, open, close, high, low, volume.
	if first.Open != 34.20 || first.Close != 34.80 || first.High != 35.00 || first.Low != 34.00 {
		t.Errorf("Expected OHLC 34.20/35.00/34.00/34.80, got %+v", first)
	}
	if first.Volume != 123456 {
		t.Errorf("Expected volume 123456, got %f", first.Volume)
	}
}

func TestTencentGetCandlesTrimsToCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tencentKlineFixture))
	}))
	defer srv.Close()

	p := NewTencent()
	p.klineURL = srv.URL

	candles, err := p.GetCandles(context.Background(), "sh600036", model.Daily, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if candles[1].Time.Format("2006-01-02") != "2025-06-04" {
		t.Errorf("Expected the newest candles kept, got %s", candles[1].Time.Format("2006-01-02"))
	}
}

func TestTencentGetCandlesNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"msg":"","data":{}}`))
	}))
	defer srv.Close()

	p := NewTencent()
	p.klineURL = srv.URL

	_, err := p.GetCandles(context.Background(), "sh600036", model.Daily, 10)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if pe.Retryable {
		t.Error("Expected empty payload to be non-retryable")
	}
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData in chain, got %v", err)
	}
}

func TestTencentRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewTencent()
	p.klineURL = srv.URL

	_, err := p.GetCandles(context.Background(), "sh600036", model.Daily, 10)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if !pe.Retryable {
		t.Error("Expected 429 to be retryable")
	}
	if p.limiter.Penalty() == 0 {
		t.Error("Expected the limiter to record the throttle")
	}
}

func TestTencentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewTencent()
	p.klineURL = srv.URL

	_, err := p.GetCandles(context.Background(), "sh600036", model.Daily, 10)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if !pe.Retryable {
		t.Error("Expected 5xx to be retryable")
	}
}

func TestTencentGetQuote(t *testing.T) {
	// 46 tilde fields, the shape qt.gtimg.cn actually returns.
	fields := make([]string, 46)
	for i := range fields {
		fields[i] = "0"
	}
	fields[1] = "招商银行"
	fields[2] = "600036"
	fields[3] = "35.20"
	fields[4] = "34.80"
	fields[5] = "34.90"
	fields[6] = "234567"
	fields[30] = "20250620150003"
	fields[33] = "35.40"
	fields[34] = "34.60"
	fields[37] = "82345.50"
	payload := `v_sh600036="` + joinTilde(fields) + `";`

	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(payload))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gbk)
	}))
	defer srv.Close()

	p := NewTencent()
	p.quoteURL = srv.URL + "/q="

	quote, err := p.GetQuote(context.Background(), "600036")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if quote.Name != "招商银行" {
		t.Errorf("Expected GBK-decoded name, got %q", quote.Name)
	}
	if quote.Code != "sh600036" {
		t.Errorf("Expected canonical code, got %s", quote.Code)
	}
	if quote.Price != 35.20 || quote.PrevClose != 34.80 {
		t.Errorf("Expected price 35.20 prev 34.80, got %f/%f", quote.Price, quote.PrevClose)
	}
	if quote.High != 35.40 || quote.Low != 34.60 {
		t.Errorf("Expected high/low 35.40/34.60, got %f/%f", quote.High, quote.Low)
	}
	if quote.Time.Format("2006-01-02 15:04:05") != "2025-06-20 15:00:03" {
		t.Errorf("Expected quote time parsed, got %v", quote.Time)
	}
	if got := quote.ChangePct(); got < 1.14 || got > 1.16 {
		t.Errorf("Expected change pct near 1.15, got %f", got)
	}
}

func TestTencentUnsupportedFrequency(t *testing.T) {
	p := NewTencent()
	if _, err := p.GetCandles(context.Background(), "sh600036", model.Frequency("5m"), 10); err == nil {
		t.Error("Expected error for unsupported frequency")
	}
}

// joinTilde joins quote fields the way qt.gtimg.cn separates them.
func joinTilde(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "~"
		}
		out += f
	}
	return out
}
