package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/ratelimit"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

const (
	tencentKlineURL = "https://web.ifzq.gtimg.cn/appstock/app/fqkline/get"
	tencentQuoteURL = "https://qt.gtimg.cn/q="

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	maxBodySize = 8 << 20
)

// cst is the exchange timezone all bar timestamps are anchored to.
var cst = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}()

// Tencent serves forward-adjusted klines from web.ifzq.gtimg.cn and
// realtime quotes from qt.gtimg.cn. No API key required.
type Tencent struct {
	client   *http.Client
	limiter  *ratelimit.Limiter
	klineURL string
	quoteURL string
}

// NewTencent creates the Tencent provider.
func NewTencent() *Tencent {
	return &Tencent{
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  ratelimit.New("tencent", 120),
		klineURL: tencentKlineURL,
		quoteURL: tencentQuoteURL,
	}
}

func (p *Tencent) Name() string { return "tencent" }

func (p *Tencent) RateLimit() int { return 120 }

// IsAvailable probes the quote endpoint with the Shanghai index.
func (p *Tencent) IsAvailable(ctx context.Context) bool {
	_, err := p.GetQuote(ctx, "sh000001")
	return err == nil
}

type tencentKlineResponse struct {
	Code int                                   `json:"code"`
	Msg  string                                `json:"msg"`
	Data map[string]map[string]json.RawMessage `json:"data"`
}

func (p *Tencent) GetCandles(ctx context.Context, code string, freq model.Frequency, count int) ([]model.Candle, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	count = clampCount(count)

	word, keys, err := tencentFreq(freq)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?param=%s,%s,,,%d,qfq", p.klineURL, code, word, count)
	body, err := fetch(ctx, p.client, p.limiter, p.Name(), url, "")
	if err != nil {
		return nil, err
	}

	var decoded tencentKlineResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("decode kline: %w", err), Retryable: false}
	}
	if decoded.Code != 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("api code %d: %s", decoded.Code, decoded.Msg), Retryable: false}
	}

	payload, ok := decoded.Data[code]
	if !ok {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	var raw [][]interface{}
	for _, key := range keys {
		msg, ok := payload[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, &raw); err != nil {
			return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("decode %s rows: %w", key, err), Retryable: false}
		}
		break
	}
	if len(raw) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, row := range raw {
		// row layout: date, open, close, high, low, volume, ...
		if len(row) < 6 {
			continue
		}
		date, ok := row[0].(string)
		if !ok {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", date, cst)
		if err != nil {
			continue
		}
		open, ok1 := asFloat(row[1])
		closeP, ok2 := asFloat(row[2])
		high, ok3 := asFloat(row[3])
		low, ok4 := asFloat(row[4])
		volume, ok5 := asFloat(row[5])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		candles = append(candles, model.Candle{
			Time: t, Open: open, High: high, Low: low, Close: closeP, Volume: volume,
		})
	}
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}

// GetQuote parses the tilde-separated qt.gtimg.cn snapshot. The body is
// GBK encoded.
func (p *Tencent) GetQuote(ctx context.Context, code string) (*model.Quote, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	body, err := fetch(ctx, p.client, p.limiter, p.Name(), p.quoteURL+code, "")
	if err != nil {
		return nil, err
	}
	text := string(decodeGBK(body))

	start := strings.IndexByte(text, '"')
	end := strings.LastIndexByte(text, '"')
	if start < 0 || end <= start {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}
	fields := strings.Split(text[start+1:end], "~")
	if len(fields) < 38 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("short quote payload (%d fields)", len(fields)), Retryable: false}
	}

	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("parse price: %w", err), Retryable: false}
	}

	quote := &model.Quote{
		Code:      code,
		Name:      fields[1],
		Price:     price,
		PrevClose: parseFloatDefault(fields[4]),
		Open:      parseFloatDefault(fields[5]),
		Volume:    parseFloatDefault(fields[6]),
		High:      parseFloatDefault(fields[33]),
		Low:       parseFloatDefault(fields[34]),
		Turnover:  parseFloatDefault(fields[37]),
	}
	if t, err := time.ParseInLocation("20060102150405", fields[30], cst); err == nil {
		quote.Time = t
	} else {
		quote.Time = time.Now().In(cst)
	}
	return quote, nil
}

// tencentFreq maps a frequency to the kline request word and the
// response keys to try, adjusted series first.
func tencentFreq(freq model.Frequency) (string, []string, error) {
	switch freq {
	case model.Daily, "":
		return "day", []string{"qfqday", "day"}, nil
	case model.Weekly:
		return "week", []string{"qfqweek", "week"}, nil
	case model.Monthly:
		return "month", []string{"qfqmonth", "month"}, nil
	}
	return "", nil, fmt.Errorf("unsupported frequency %q", freq)
}

// fetch performs a rate-limited GET and maps HTTP failures onto
// ProviderError retryability: network errors, 429 and 5xx are worth
// trying on another provider.
func fetch(ctx context.Context, client *http.Client, limiter *ratelimit.Limiter, name, url, referer string) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: name, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		limiter.Throttled()
		return nil, &ProviderError{Provider: name, Err: fmt.Errorf("rate limited (status 429)"), Retryable: true}
	case resp.StatusCode >= 500:
		return nil, &ProviderError{Provider: name, Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: true}
	case resp.StatusCode != http.StatusOK:
		return nil, &ProviderError{Provider: name, Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}
	limiter.Succeeded()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &ProviderError{Provider: name, Err: err, Retryable: true}
	}
	return body, nil
}

// decodeGBK converts a GBK payload to UTF-8, returning the input
// unchanged when decoding fails.
func decodeGBK(b []byte) []byte {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return b
	}
	return out
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func parseFloatDefault(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
