package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
)

func newTestWriter(t *testing.T, keep int) *Writer {
	t.Helper()
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Expected renderer to build, got %v", err)
	}
	w, err := NewWriter(t.TempDir(), keep, renderer)
	if err != nil {
		t.Fatalf("Expected writer to open, got %v", err)
	}
	return w
}

func TestWriterSaveAndLoad(t *testing.T) {
	w := newTestWriter(t, 10)

	rep := NewReport(testResults(), analyzer.Summarize(testResults()))
	entry, err := w.Save(rep)
	if err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}
	if !strings.HasPrefix(entry.File, "report_") || !strings.HasSuffix(entry.File, ".html") {
		t.Errorf("Expected report_*.html file name, got %s", entry.File)
	}
	if len(entry.Stocks) != 2 {
		t.Errorf("Expected both stocks indexed, got %v", entry.Stocks)
	}

	data, got, err := w.Load(rep.ID)
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if got.ID != rep.ID {
		t.Errorf("Expected entry ID %s, got %s", rep.ID, got.ID)
	}
	if !strings.Contains(string(data), "招商银行") {
		t.Error("Expected the saved HTML to contain the stock name")
	}

	if _, _, err := w.Load("nonexistent"); err == nil {
		t.Error("Expected unknown run ID to error")
	}
}

func TestWriterHistoryNewestFirst(t *testing.T) {
	w := newTestWriter(t, 10)

	for i := 0; i < 3; i++ {
		rep := NewReport(testResults(), analyzer.Summarize(testResults()))
		rep.GeneratedAt = time.Date(2026, 3, 2+i, 17, 0, 0, 0, time.UTC)
		if _, err := w.Save(rep); err != nil {
			t.Fatalf("Expected save %d to succeed, got %v", i, err)
		}
	}

	hist := w.History()
	if len(hist) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(hist))
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].GeneratedAt.After(hist[i-1].GeneratedAt) {
			t.Error("Expected history newest first")
		}
	}
}

func TestWriterPrunesOldRuns(t *testing.T) {
	w := newTestWriter(t, 2)

	var files []string
	for i := 0; i < 4; i++ {
		rep := NewReport(testResults(), analyzer.Summarize(testResults()))
		rep.GeneratedAt = time.Date(2026, 3, 2, 17, i, 0, 0, time.UTC)
		entry, err := w.Save(rep)
		if err != nil {
			t.Fatalf("Expected save %d to succeed, got %v", i, err)
		}
		files = append(files, filepath.Join(w.dir, entry.File))
	}

	if got := len(w.History()); got != 2 {
		t.Fatalf("Expected 2 retained runs, got %d", got)
	}
	for _, f := range files[:2] {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("Expected pruned file %s to be deleted", filepath.Base(f))
		}
	}
	for _, f := range files[2:] {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("Expected retained file %s to exist, got %v", filepath.Base(f), err)
		}
	}
}

func TestWriterReloadsIndex(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Expected renderer to build, got %v", err)
	}
	dir := t.TempDir()

	w1, err := NewWriter(dir, 10, renderer)
	if err != nil {
		t.Fatalf("Expected writer to open, got %v", err)
	}
	rep := NewReport(testResults(), analyzer.Summarize(testResults()))
	if _, err := w1.Save(rep); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	w2, err := NewWriter(dir, 10, renderer)
	if err != nil {
		t.Fatalf("Expected reopen to succeed, got %v", err)
	}
	if _, _, err := w2.Load(rep.ID); err != nil {
		t.Errorf("Expected the reopened writer to find the run, got %v", err)
	}
}
