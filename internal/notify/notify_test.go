package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/signal"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/strategy"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

func TestServerChanSend(t *testing.T) {
	var gotPath, gotTitle, gotDesp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Expected form body, got error %v", err)
		}
		gotTitle = r.PostForm.Get("title")
		gotDesp = r.PostForm.Get("desp")
		w.Write([]byte(`{"code":0,"message":""}`))
	}))
	defer srv.Close()

	sc := NewServerChan("SCTKEY")
	sc.baseURL = srv.URL

	err := sc.Send(context.Background(), Message{Title: "报告", Text: "正文"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotPath != "/SCTKEY.send" {
		t.Errorf("Expected path /SCTKEY.send, got %s", gotPath)
	}
	if gotTitle != "报告" || gotDesp != "正文" {
		t.Errorf("Expected title/desp to round-trip, got %q / %q", gotTitle, gotDesp)
	}
}

func TestServerChanRejectsNonZeroCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":40001,"message":"bad key"}`))
	}))
	defer srv.Close()

	sc := NewServerChan("k")
	sc.baseURL = srv.URL

	err := sc.Send(context.Background(), Message{Title: "t"})
	if err == nil {
		t.Fatal("Expected error on code != 0, got nil")
	}
	if !strings.Contains(err.Error(), "40001") {
		t.Errorf("Expected the rejection code in the error, got %v", err)
	}
}

func TestWecomSend(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	wc := NewWecom(srv.URL)
	err := wc.Send(context.Background(), Message{Title: "标题", Text: "内容"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(gotBody, `"msgtype":"text"`) {
		t.Errorf("Expected a text message payload, got %s", gotBody)
	}
	if !strings.Contains(gotBody, "标题") || !strings.Contains(gotBody, "内容") {
		t.Errorf("Expected title and body in content, got %s", gotBody)
	}
}

func TestWecomRejectsErrcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook"}`))
	}))
	defer srv.Close()

	wc := NewWecom(srv.URL)
	if err := wc.Send(context.Background(), Message{Title: "t"}); err == nil {
		t.Fatal("Expected error on errcode != 0, got nil")
	}
}

type fakeNotifier struct {
	name  string
	err   error
	calls int
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(ctx context.Context, msg Message) error {
	f.calls++
	return f.err
}

func TestDispatcherContinuesPastFailures(t *testing.T) {
	bad := &fakeNotifier{name: "bad", err: errors.New("boom")}
	good := &fakeNotifier{name: "good"}

	d := NewDispatcher([]Notifier{bad, good}, nil, zerolog.Nop())
	err := d.Dispatch(context.Background(), Message{Title: "t"})
	if err == nil {
		t.Fatal("Expected the failing channel's error to surface, got nil")
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Errorf("Expected both channels attempted, got bad=%d good=%d", bad.calls, good.calls)
	}
}

func TestDispatcherEmptyIsNoop(t *testing.T) {
	var d *Dispatcher
	if d.Enabled() {
		t.Error("Expected nil dispatcher to be disabled")
	}
	if err := d.Dispatch(context.Background(), Message{}); err != nil {
		t.Errorf("Expected nil dispatch to be a no-op, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	results := []*analyzer.Result{
		{
			Stock: model.Stock{Code: "sh600036", Name: "招商银行"},
			Quote: &model.Quote{Price: 35.10, PrevClose: 34.80},
			Score: signal.ScoreResult{
				Score: 5, Label: signal.LabelStrongBullish,
				Signals: []signal.Signal{
					{Text: "MACD金叉形成，可能上涨", Polarity: signal.Bullish},
				},
			},
			Vote: strategy.Vote{Action: strategy.Buy},
		},
		{
			Stock:  model.Stock{Code: "sz000001"},
			Failed: true,
			Error:  "fetch candles: timeout",
		},
	}
	summary := analyzer.Summarize(results)

	msg := Summarize(results, summary, time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC))
	if !strings.Contains(msg.Text, "招商银行") {
		t.Errorf("Expected stock name in body, got %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "评分: 5/5") {
		t.Errorf("Expected score line, got %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "MACD金叉") {
		t.Errorf("Expected top signal in body, got %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "分析不可用") {
		t.Errorf("Expected the failed stock marked unavailable, got %s", msg.Text)
	}
	if !strings.Contains(msg.Title, "03-02") {
		t.Errorf("Expected the date in the title, got %s", msg.Title)
	}
}
