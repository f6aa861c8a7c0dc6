// Package llm produces the AI narrative for a stock. It speaks the
// OpenAI-compatible chat-completions protocol (DeepSeek by default),
// builds the Chinese analyst prompt from candles, indicator rows and
// news headlines, and parses the response back into report sections
// plus a sentiment score.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/news"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

const (
	defaultBaseURL     = "https://api.deepseek.com"
	defaultModel       = "deepseek-chat"
	defaultTemperature = 1.0
	defaultTimeout     = 2 * time.Minute
	defaultMaxRetries  = 3

	maxBodySize = 4 << 20
)

// ErrDisabled is returned by Analyze when no API key is configured.
// Callers treat it as "skip the narrative", not as a failure.
var ErrDisabled = errors.New("llm: no api key configured")

// APIBusyError reports a request that kept failing with a retryable
// status (or empty completions) until the attempts ran out.
type APIBusyError struct {
	Status   int
	Attempts int
}

func (e *APIBusyError) Error() string {
	return fmt.Sprintf("llm: api busy after %d attempts (last status %d)", e.Attempts, e.Status)
}

// Options configure the client. Zero fields fall back to the DeepSeek
// defaults.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	opts      Options
	client    *http.Client
	retryWait time.Duration
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return &Client{
		opts:      opts,
		client:    &http.Client{Timeout: opts.Timeout},
		retryWait: time.Second,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.opts.APIKey != "" }

// Request carries everything the narrative prompt needs. News is
// optional; Rows may cover fewer dates than Candles.
type Request struct {
	Stock   model.Stock
	Candles []model.Candle
	Rows    []model.IndicatorRow
	News    []news.Item
}

// Analyze asks the model for the full per-stock narrative.
func (c *Client) Analyze(ctx context.Context, req Request) (*Narrative, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	payload, err := formatPayload(req.Candles, req.Rows)
	if err != nil {
		return nil, err
	}
	text, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserMessage(req.Stock, payload, req.News)},
	})
	if err != nil {
		return nil, err
	}
	return parseNarrative(text), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete posts the messages and returns the first choice's content.
// Rate limits, server errors and empty completions are retried with a
// doubling backoff; other failures return immediately.
func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.opts.BaseURL + "/chat/completions"
	var lastStatus int
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryWait<<(attempt-1)); err != nil {
				return "", err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("llm: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastStatus = 0
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()
		if readErr != nil {
			lastStatus = resp.StatusCode
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastStatus = resp.StatusCode
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, excerpt(respBody))
		}

		var decoded chatResponse
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return "", fmt.Errorf("llm: decode response: %w", err)
		}
		if decoded.Error != nil {
			return "", fmt.Errorf("llm: api error: %s", decoded.Error.Message)
		}
		if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
			// 200 with nothing useful happens when the upstream is
			// overloaded; treat it like a busy signal.
			lastStatus = resp.StatusCode
			continue
		}
		return decoded.Choices[0].Message.Content, nil
	}
	return "", &APIBusyError{Status: lastStatus, Attempts: c.opts.MaxRetries}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = strings.ToValidUTF8(s[:200], "") + "..."
	}
	return s
}
