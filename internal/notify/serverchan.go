package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const serverChanBase = "https://sctapi.ftqq.com"

// ServerChan pushes through the sctapi.ftqq.com wechat relay.
type ServerChan struct {
	key     string
	baseURL string
	client  *http.Client
}

// NewServerChan creates a ServerChan channel for the given SendKey.
func NewServerChan(key string) *ServerChan {
	return &ServerChan{
		key:     key,
		baseURL: serverChanBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *ServerChan) Name() string { return "serverchan" }

// Send posts the form payload; ServerChan renders the body as markdown.
func (s *ServerChan) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("title", msg.Title)
	form.Set("desp", msg.Text)

	endpoint := fmt.Sprintf("%s/%s.send", s.baseURL, s.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("serverchan: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("serverchan: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("serverchan: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("serverchan: read response: %w", err)
	}
	var out struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("serverchan: decode response: %w", err)
	}
	if out.Code != 0 {
		return fmt.Errorf("serverchan: push rejected: code=%d message=%q", out.Code, out.Message)
	}
	return nil
}
