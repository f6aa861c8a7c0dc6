package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

func TestAnalyzeDisabled(t *testing.T) {
	c := New(Options{})

	_, err := c.Analyze(context.Background(), Request{Candles: promptCandles(5)})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Decode request failed: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionJSON(t, sampleResponse))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "test-key", BaseURL: srv.URL})
	req := analyzeRequest()

	n, err := c.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if captured.Model != "deepseek-chat" {
		t.Errorf("Expected default model deepseek-chat, got %q", captured.Model)
	}
	if captured.Temperature != 1.0 {
		t.Errorf("Expected temperature 1.0, got %v", captured.Temperature)
	}
	if captured.Stream {
		t.Error("Expected stream false")
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || !strings.Contains(captured.Messages[0].Content, "情感分数") {
		t.Error("Expected system prompt with sentiment instruction")
	}
	if !strings.Contains(captured.Messages[1].Content, "招商银行") {
		t.Error("Expected stock name in user message")
	}
	if !strings.Contains(captured.Messages[1].Content, "历史数据") {
		t.Error("Expected data payload in user message")
	}

	if n.Sentiment != 0.6 {
		t.Errorf("Expected sentiment 0.6, got %v", n.Sentiment)
	}
	if n.Summary == "" {
		t.Error("Expected parsed summary")
	}
}

func TestAnalyzeRetriesOnRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(completionJSON(t, sampleResponse))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, MaxRetries: 3})
	c.retryWait = time.Millisecond

	if _, err := c.Analyze(context.Background(), analyzeRequest()); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestAnalyzeBusyAfterRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2})
	c.retryWait = time.Millisecond

	_, err := c.Analyze(context.Background(), analyzeRequest())
	var busy *APIBusyError
	if !errors.As(err, &busy) {
		t.Fatalf("Expected APIBusyError, got %v", err)
	}
	if busy.Status != http.StatusServiceUnavailable || busy.Attempts != 2 {
		t.Errorf("Expected status 503 after 2 attempts, got %+v", busy)
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls)
	}
}

func TestAnalyzeEmptyChoicesTreatedAsBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2})
	c.retryWait = time.Millisecond

	_, err := c.Analyze(context.Background(), analyzeRequest())
	var busy *APIBusyError
	if !errors.As(err, &busy) {
		t.Fatalf("Expected APIBusyError for empty choices, got %v", err)
	}
	if busy.Status != http.StatusOK {
		t.Errorf("Expected last status 200, got %d", busy.Status)
	}
}

func TestAnalyzeClientErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL})

	_, err := c.Analyze(context.Background(), analyzeRequest())
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	var busy *APIBusyError
	if errors.As(err, &busy) {
		t.Error("Expected a terminal error, not APIBusyError")
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}

func TestAnalyzeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"insufficient balance","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL})

	_, err := c.Analyze(context.Background(), analyzeRequest())
	if err == nil || !strings.Contains(err.Error(), "insufficient balance") {
		t.Errorf("Expected api error message, got %v", err)
	}
}

func TestAnalyzeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, MaxRetries: 5})
	c.retryWait = time.Minute // retry sleep should be cut short by ctx

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, analyzeRequest())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline error, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Options{APIKey: "k"})

	if c.opts.BaseURL != "https://api.deepseek.com" {
		t.Errorf("Expected deepseek base url, got %q", c.opts.BaseURL)
	}
	if c.opts.Model != "deepseek-chat" {
		t.Errorf("Expected deepseek-chat, got %q", c.opts.Model)
	}
	if c.opts.Temperature != 1.0 {
		t.Errorf("Expected temperature 1.0, got %v", c.opts.Temperature)
	}
	if c.opts.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", c.opts.MaxRetries)
	}
	if !c.Enabled() {
		t.Error("Expected client with key to be enabled")
	}
	if New(Options{BaseURL: "http://x/"}).opts.BaseURL != "http://x" {
		t.Error("Expected trailing slash trimmed from base url")
	}
}

func analyzeRequest() Request {
	candles := promptCandles(30)
	return Request{
		Stock:   model.Stock{Code: "sh600036", Name: "招商银行"},
		Candles: candles,
		Rows:    promptRows(candles),
	}
}

func completionJSON(t *testing.T, content string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	if err != nil {
		t.Fatalf("Marshal completion failed: %v", err)
	}
	return b
}
