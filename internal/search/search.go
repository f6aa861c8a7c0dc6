// Package search resolves free-form user input (a name, a bare code, a
// prefixed code, a category word) into canonical stock codes. Lookup is
// tiered: exact code, exact name, fuzzy name, fuzzy code, category,
// then code-format validation with an optional live-quote confirmation
// for codes the dictionary does not know.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/provider"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// ErrNotFound is returned by Resolve when no tier produces a match.
var ErrNotFound = errors.New("no matching stock")

// Match classifies which tier produced a result.
type Match string

const (
	MatchExactCode Match = "exact_code"
	MatchExactName Match = "exact_name"
	MatchFuzzyName Match = "fuzzy_name"
	MatchFuzzyCode Match = "fuzzy_code"
	MatchCategory  Match = "category"
	MatchCodeOnly  Match = "code_validation"
)

// Result is one search hit, strongest first in a result list.
type Result struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Market   string `json:"market"`
	Category string `json:"category,omitempty"`
	Score    int    `json:"score"`
	Match    Match  `json:"match"`
	Unknown  bool   `json:"unknown,omitempty"`
}

const (
	cacheTTL          = time.Hour
	defaultMaxResults = 10
)

type cachedSearch struct {
	at      time.Time
	results []Result
}

// Searcher answers queries from the embedded dictionary. The quote
// provider is optional; when present, Resolve uses it to confirm codes
// the dictionary does not carry.
type Searcher struct {
	quotes provider.Provider

	mu    sync.RWMutex
	cache map[string]cachedSearch
}

// NewSearcher creates a searcher. quotes may be nil.
func NewSearcher(quotes provider.Provider) *Searcher {
	return &Searcher{
		quotes: quotes,
		cache:  make(map[string]cachedSearch),
	}
}

// Search runs the tiered lookup and returns up to max results, best
// first. It never touches the network; unknown-but-valid codes come
// back as placeholder entries with Unknown set.
func (s *Searcher) Search(query string, max int) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if max <= 0 {
		max = defaultMaxResults
	}

	key := fmt.Sprintf("%s|%d", query, max)
	s.mu.RLock()
	if hit, ok := s.cache[key]; ok && time.Since(hit.at) < cacheTTL {
		s.mu.RUnlock()
		return hit.results
	}
	s.mu.RUnlock()

	q := strings.ToLower(query)
	canonical, codeErr := provider.NormalizeCode(query)

	var results []Result

	// Tier 1: exact code, accepting any spelling NormalizeCode does.
	if codeErr == nil {
		for _, e := range baseStocks {
			if canonical == e.Code {
				results = append(results, hit(e, 100, MatchExactCode))
			}
		}
	}

	// Tier 2: exact name.
	if len(results) == 0 {
		for _, e := range baseStocks {
			if q == strings.ToLower(e.Name) {
				results = append(results, hit(e, 95, MatchExactName))
			}
		}
	}

	// Tier 3: name contains.
	if len(results) == 0 {
		for _, e := range baseStocks {
			name := strings.ToLower(e.Name)
			if strings.Contains(name, q) {
				results = append(results, hit(e, fuzzyScore(name, q), MatchFuzzyName))
			}
		}
	}

	// Tier 4: code contains.
	if len(results) == 0 {
		for _, e := range baseStocks {
			if strings.Contains(e.Code, q) {
				results = append(results, hit(e, fuzzyScore(e.Code, q)-10, MatchFuzzyCode))
			}
		}
	}

	// Tier 5: category listing.
	if len(results) == 0 {
		for _, e := range baseStocks {
			cat := strings.ToLower(e.Category)
			if cat != "" && strings.Contains(cat, q) {
				results = append(results, hit(e, fuzzyScore(cat, q)-20, MatchCategory))
			}
		}
	}

	// Tier 6: the query is a well-formed code we simply do not know.
	if len(results) == 0 && codeErr == nil {
		results = append(results, Result{
			Name:     fmt.Sprintf("未知股票 (%s)", canonical),
			Code:     canonical,
			Market:   marketOf(canonical),
			Category: "未知",
			Score:    50,
			Match:    MatchCodeOnly,
			Unknown:  true,
		})
	}

	results = dedupe(results)
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return utf8.RuneCountInString(results[i].Name) < utf8.RuneCountInString(results[j].Name)
	})
	if len(results) > max {
		results = results[:max]
	}

	s.mu.Lock()
	s.cache[key] = cachedSearch{at: time.Now(), results: results}
	s.mu.Unlock()
	return results
}

// Resolve turns a query into a single stock. Dictionary hits answer
// directly; a well-formed unknown code is confirmed against a live
// quote when a provider is wired, so the caller gets the real name.
func (s *Searcher) Resolve(ctx context.Context, query string) (*model.Stock, error) {
	results := s.Search(query, 1)
	if len(results) == 0 {
		return nil, fmt.Errorf("%q: %w", query, ErrNotFound)
	}

	top := results[0]
	stock := &model.Stock{
		Code:     top.Code,
		Name:     top.Name,
		Exchange: provider.Exchange(top.Code),
		Category: top.Category,
	}
	if !top.Unknown {
		return stock, nil
	}
	if s.quotes == nil {
		return stock, nil
	}

	quote, err := s.quotes.GetQuote(ctx, top.Code)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", query, ErrNotFound)
	}
	if quote.Name != "" {
		stock.Name = quote.Name
	}
	return stock, nil
}

// Info looks a canonical code up in the dictionary.
func (s *Searcher) Info(code string) (*model.Stock, bool) {
	canonical, err := provider.NormalizeCode(code)
	if err != nil {
		return nil, false
	}
	for _, e := range baseStocks {
		if e.Code == canonical {
			return &model.Stock{
				Code:     e.Code,
				Name:     e.Name,
				Exchange: provider.Exchange(e.Code),
				Category: e.Category,
			}, true
		}
	}
	return nil, false
}

// Suggest returns up to eight keyword completions for a partial query,
// stock names first, then categories.
func (s *Searcher) Suggest(partial string) []string {
	partial = strings.ToLower(strings.TrimSpace(partial))
	if partial == "" {
		return nil
	}

	var out []string
	for _, e := range baseStocks {
		if len(out) >= 5 {
			break
		}
		if strings.Contains(strings.ToLower(e.Name), partial) {
			out = append(out, e.Name)
		}
	}

	seen := make(map[string]bool, len(out))
	for _, name := range out {
		seen[name] = true
	}
	for _, e := range baseStocks {
		if len(out) >= 8 {
			break
		}
		cat := e.Category
		if cat == "" || seen[cat] {
			continue
		}
		if strings.Contains(strings.ToLower(cat), partial) {
			out = append(out, cat)
			seen[cat] = true
		}
	}
	return out
}

func hit(e Entry, score int, match Match) Result {
	return Result{
		Name:     e.Name,
		Code:     e.Code,
		Market:   e.Market,
		Category: e.Category,
		Score:    score,
		Match:    match,
	}
}

// fuzzyScore grades a containment match: earlier and longer matches
// rank higher, capped below the exact-name score.
func fuzzyScore(text, query string) int {
	idx := strings.Index(text, query)
	if idx < 0 {
		return 0
	}
	score := 80
	runesBefore := utf8.RuneCountInString(text[:idx])
	switch {
	case runesBefore == 0:
		score += 10
	case runesBefore < utf8.RuneCountInString(text)/2:
		score += 5
	}
	bonus := utf8.RuneCountInString(query) * 2
	if bonus > 10 {
		bonus = 10
	}
	score += bonus
	if score > 95 {
		score = 95
	}
	return score
}

func dedupe(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		out = append(out, r)
	}
	return out
}
