package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Entry is one saved report in the history index.
type Entry struct {
	ID           string    `json:"id"`
	File         string    `json:"file"` // file name inside the output dir
	GeneratedAt  time.Time `json:"generated_at"`
	Stocks       []string  `json:"stocks"`
	Failed       int       `json:"failed"`
	AverageScore float64   `json:"average_score"`
	Mood         string    `json:"mood"`
}

// Writer persists rendered reports under one directory and maintains
// index.json alongside them. Runs beyond the keep limit are pruned
// oldest first, index entry and HTML file together.
type Writer struct {
	mu       sync.Mutex
	dir      string
	keep     int
	renderer *Renderer
	entries  map[string]Entry // by report ID
}

// NewWriter opens (or creates) the output directory and loads the
// existing index. keep caps the number of retained runs.
func NewWriter(dir string, keep int, renderer *Renderer) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}
	if keep < 1 {
		keep = 1
	}

	w := &Writer{
		dir:      dir,
		keep:     keep,
		renderer: renderer,
		entries:  make(map[string]Entry),
	}
	if err := w.loadIndex(); err != nil && !os.IsNotExist(err) {
		// A corrupt index is rebuilt from scratch; saved HTML files
		// without an entry just age out of the directory.
		w.entries = make(map[string]Entry)
	}
	return w, nil
}

// Save renders rep to disk and records it in the index. The file name
// carries the Beijing timestamp plus a short run ID.
func (w *Writer) Save(rep *Report) (Entry, error) {
	name := fmt.Sprintf("report_%s_%s.html",
		rep.GeneratedAt.Format("20060102_150405"), shortID(rep.ID))

	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return Entry{}, fmt.Errorf("report: create %s: %w", name, err)
	}
	if err := w.renderer.Render(f, rep); err != nil {
		f.Close()
		return Entry{}, err
	}
	if err := f.Close(); err != nil {
		return Entry{}, fmt.Errorf("report: close %s: %w", name, err)
	}

	entry := Entry{
		ID:           rep.ID,
		File:         name,
		GeneratedAt:  rep.GeneratedAt,
		Failed:       rep.Summary.Failed,
		AverageScore: rep.Summary.AverageScore,
		Mood:         rep.Summary.Mood,
	}
	for _, r := range rep.Results {
		if r != nil {
			entry.Stocks = append(entry.Stocks, r.Stock.Code)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[rep.ID] = entry
	w.prune()
	if err := w.persistIndex(); err != nil {
		return entry, err
	}
	return entry, nil
}

// History returns the saved runs, newest first.
func (w *Writer) History() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Entry, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out
}

// Load returns the rendered HTML of one saved run by ID.
func (w *Writer) Load(id string) ([]byte, Entry, error) {
	w.mu.Lock()
	entry, ok := w.entries[id]
	w.mu.Unlock()
	if !ok {
		return nil, Entry{}, fmt.Errorf("report: run %s not found", id)
	}

	data, err := os.ReadFile(filepath.Join(w.dir, entry.File))
	if err != nil {
		return nil, entry, fmt.Errorf("report: read %s: %w", entry.File, err)
	}
	return data, entry, nil
}

// prune drops the oldest runs over the keep limit. Caller holds the lock.
func (w *Writer) prune() {
	if len(w.entries) <= w.keep {
		return
	}
	all := make([]Entry, 0, len(w.entries))
	for _, e := range w.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].GeneratedAt.Before(all[j].GeneratedAt)
	})
	for _, e := range all[:len(all)-w.keep] {
		delete(w.entries, e.ID)
		os.Remove(filepath.Join(w.dir, e.File))
	}
}

func (w *Writer) indexPath() string {
	return filepath.Join(w.dir, "index.json")
}

func (w *Writer) loadIndex() error {
	data, err := os.ReadFile(w.indexPath())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &w.entries)
}

// persistIndex writes the index atomically so a crash mid-write never
// leaves a half-written file behind.
func (w *Writer) persistIndex() error {
	data, err := json.MarshalIndent(w.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal index: %w", err)
	}
	tmp := w.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("report: write index: %w", err)
	}
	if err := os.Rename(tmp, w.indexPath()); err != nil {
		return fmt.Errorf("report: replace index: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
