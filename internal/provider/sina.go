package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/ratelimit"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

const (
	sinaKlineURL   = "https://quotes.sina.cn/cn/api/jsonp_v2.php"
	sinaQuoteURL   = "https://hq.sinajs.cn/list="
	sinaRefererURL = "https://finance.sina.com.cn"
)

// Sina serves klines from the CN_MarketDataService JSONP endpoint and
// realtime quotes from hq.sinajs.cn. Quote requests must carry a Sina
// referer or the endpoint answers 456.
type Sina struct {
	client   *http.Client
	limiter  *ratelimit.Limiter
	klineURL string
	quoteURL string
}

// NewSina creates the Sina provider.
func NewSina() *Sina {
	return &Sina{
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  ratelimit.New("sina", 60),
		klineURL: sinaKlineURL,
		quoteURL: sinaQuoteURL,
	}
}

func (p *Sina) Name() string { return "sina" }

func (p *Sina) RateLimit() int { return 60 }

// IsAvailable probes the quote endpoint with the Shanghai index.
func (p *Sina) IsAvailable(ctx context.Context) bool {
	_, err := p.GetQuote(ctx, "sh000001")
	return err == nil
}

type sinaBar struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (p *Sina) GetCandles(ctx context.Context, code string, freq model.Frequency, count int) ([]model.Candle, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	count = clampCount(count)

	scale, err := sinaScale(freq)
	if err != nil {
		return nil, err
	}

	ts := time.Now().Unix()
	url := fmt.Sprintf("%s/var%%20_%s_%d_%d=/CN_MarketDataService.getKLineData?symbol=%s&scale=%d&ma=no&datalen=%d",
		p.klineURL, code, scale, ts, code, scale, count)

	body, err := fetch(ctx, p.client, p.limiter, p.Name(), url, sinaRefererURL)
	if err != nil {
		return nil, err
	}

	// JSONP wrapper: var _sh600036_240_...=([...]);
	text := string(body)
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	var bars []sinaBar
	if err := json.Unmarshal([]byte(text[start:end+1]), &bars); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("decode kline: %w", err), Retryable: false}
	}
	if len(bars) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	candles := make([]model.Candle, 0, len(bars))
	for _, b := range bars {
		t, err := time.ParseInLocation("2006-01-02", b.Day, cst)
		if err != nil {
			continue
		}
		open := parseFloatDefault(b.Open)
		closeP := parseFloatDefault(b.Close)
		if closeP == 0 {
			continue
		}
		candles = append(candles, model.Candle{
			Time:   t,
			Open:   open,
			High:   parseFloatDefault(b.High),
			Low:    parseFloatDefault(b.Low),
			Close:  closeP,
			Volume: parseFloatDefault(b.Volume),
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

// GetQuote parses the comma-separated hq.sinajs.cn snapshot. The body
// is GBK encoded; volume arrives in shares and turnover in yuan, both
// normalized here to the units the Tencent provider reports (手, 万元).
func (p *Sina) GetQuote(ctx context.Context, code string) (*model.Quote, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	body, err := fetch(ctx, p.client, p.limiter, p.Name(), p.quoteURL+code, sinaRefererURL)
	if err != nil {
		return nil, err
	}
	text := string(decodeGBK(body))

	start := strings.IndexByte(text, '"')
	end := strings.LastIndexByte(text, '"')
	if start < 0 || end <= start {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}
	fields := strings.Split(text[start+1:end], ",")
	if len(fields) < 32 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("short quote payload (%d fields)", len(fields)), Retryable: false}
	}

	price := parseFloatDefault(fields[3])
	if price == 0 && parseFloatDefault(fields[2]) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	quote := &model.Quote{
		Code:      code,
		Name:      fields[0],
		Open:      parseFloatDefault(fields[1]),
		PrevClose: parseFloatDefault(fields[2]),
		Price:     price,
		High:      parseFloatDefault(fields[4]),
		Low:       parseFloatDefault(fields[5]),
		Volume:    parseFloatDefault(fields[8]) / 100,   // 股 -> 手
		Turnover:  parseFloatDefault(fields[9]) / 10000, // 元 -> 万元
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", fields[30]+" "+fields[31], cst); err == nil {
		quote.Time = t
	} else {
		quote.Time = time.Now().In(cst)
	}
	return quote, nil
}

// sinaScale maps a frequency onto the kline scale parameter (minutes).
func sinaScale(freq model.Frequency) (int, error) {
	switch freq {
	case model.Daily, "":
		return 240, nil
	case model.Weekly:
		return 1200, nil
	case model.Monthly:
		return 7200, nil
	}
	return 0, fmt.Errorf("unsupported frequency %q", freq)
}
