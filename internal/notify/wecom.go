package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Wecom pushes through an enterprise-wechat group robot webhook.
type Wecom struct {
	webhook string
	client  *http.Client
}

// NewWecom creates a WeCom channel for the given robot webhook URL.
func NewWecom(webhook string) *Wecom {
	return &Wecom{
		webhook: webhook,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Wecom) Name() string { return "wecom" }

// Send posts a text message to the group robot. WeCom caps text content
// at 2048 bytes; longer bodies are truncated rather than rejected.
func (w *Wecom) Send(ctx context.Context, msg Message) error {
	content := msg.Title + "\n\n" + msg.Text
	if len(content) > 2048 {
		content = content[:2045] + "..."
	}

	payload, err := json.Marshal(map[string]interface{}{
		"msgtype": "text",
		"text":    map[string]string{"content": content},
	})
	if err != nil {
		return fmt.Errorf("wecom: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("wecom: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wecom: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wecom: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("wecom: read response: %w", err)
	}
	var out struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("wecom: decode response: %w", err)
	}
	if out.ErrCode != 0 {
		return fmt.Errorf("wecom: push rejected: errcode=%d errmsg=%q", out.ErrCode, out.ErrMsg)
	}
	return nil
}
