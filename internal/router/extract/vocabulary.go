package extract

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"banking-router/internal/common/logger"
	"banking-router/internal/common/metrics"
)

// Source supplies the organization and category vocabulary, normally the
// product store.
type Source interface {
	DistinctOrganizations(ctx context.Context) ([]string, error)
	DistinctCategories(ctx context.Context) ([]string, error)
}

// Vocabulary is one immutable snapshot of known organizations and
// categories, with category matchers prebuilt at snapshot time.
type Vocabulary struct {
	Organizations []string
	Categories    []string

	patterns []categoryPattern
}

type categoryPattern struct {
	re       *regexp.Regexp
	category string
}

// NewVocabulary builds a snapshot and compiles its category matchers. Each
// category yields an exact-phrase pattern, a first-word pattern for
// multi-word categories, and a naive plural pattern.
func NewVocabulary(organizations, categories []string) *Vocabulary {
	v := &Vocabulary{
		Organizations: organizations,
		Categories:    categories,
	}

	for _, cat := range categories {
		catLower := strings.ToLower(cat)
		quoted := regexp.QuoteMeta(catLower)

		v.addPattern(`\b`+quoted, cat)

		words := strings.Fields(catLower)
		if len(words) > 1 {
			v.addPattern(`\b`+regexp.QuoteMeta(words[0])+`\b`, cat)
		}

		if !strings.HasSuffix(catLower, "s") {
			v.addPattern(`\b`+quoted+`s\b`, cat)
		}
	}
	return v
}

func (v *Vocabulary) addPattern(expr, category string) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return
	}
	v.patterns = append(v.patterns, categoryPattern{re: re, category: category})
}

// MatchCategory returns the first category whose pattern matches, or "".
func (v *Vocabulary) MatchCategory(queryLower string) string {
	for _, p := range v.patterns {
		if p.re.MatchString(queryLower) {
			return p.category
		}
	}
	return ""
}

// MatchOrganizations returns every organization mentioned in the query, in
// vocabulary order.
func (v *Vocabulary) MatchOrganizations(queryLower string) []string {
	var found []string
	for _, org := range v.Organizations {
		if strings.Contains(queryLower, strings.ToLower(org)) {
			found = append(found, org)
		}
	}
	return found
}

// VocabularyCache refreshes the vocabulary from its source on a TTL.
// Readers get the current snapshot via an atomic pointer, refresh failures
// keep serving the stale snapshot, and a static fallback covers the case
// where the source was never reachable at all.
type VocabularyCache struct {
	source   Source
	ttl      time.Duration
	clock    func() time.Time
	fallback *Vocabulary
	logger   logger.Logger

	mu      sync.Mutex // serializes refreshes
	current atomic.Pointer[cachedVocabulary]
}

type cachedVocabulary struct {
	vocab   *Vocabulary
	fetched time.Time
}

// NewVocabularyCache builds a cache. A nil clock uses time.Now, a nil
// fallback uses a minimal built-in list.
func NewVocabularyCache(source Source, ttl time.Duration, clock func() time.Time, fallback *Vocabulary, log logger.Logger) *VocabularyCache {
	if clock == nil {
		clock = time.Now
	}
	if fallback == nil {
		fallback = NewVocabulary(
			[]string{"SBI", "HDFC"},
			[]string{"Credit Card", "Debit Card", "Loan", "Scheme"},
		)
	}
	return &VocabularyCache{
		source:   source,
		ttl:      ttl,
		clock:    clock,
		fallback: fallback,
		logger:   log.WithFields(map[string]interface{}{"component": "vocabulary"}),
	}
}

// Get returns the current vocabulary, refreshing it first when stale.
func (c *VocabularyCache) Get(ctx context.Context) *Vocabulary {
	if cur := c.current.Load(); cur != nil && c.clock().Sub(cur.fetched) < c.ttl {
		return cur.vocab
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another refresh may have won the race while we waited.
	if cur := c.current.Load(); cur != nil && c.clock().Sub(cur.fetched) < c.ttl {
		return cur.vocab
	}

	vocab, err := c.refresh(ctx)
	if err != nil {
		metrics.VocabularyRefreshes.WithLabelValues("error").Inc()
		c.logger.Warn("vocabulary refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
		if cur := c.current.Load(); cur != nil {
			return cur.vocab
		}
		return c.fallback
	}

	metrics.VocabularyRefreshes.WithLabelValues("ok").Inc()
	c.current.Store(&cachedVocabulary{vocab: vocab, fetched: c.clock()})
	return vocab
}

func (c *VocabularyCache) refresh(ctx context.Context) (*Vocabulary, error) {
	orgs, err := c.source.DistinctOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := c.source.DistinctCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		orgs = c.fallback.Organizations
	}
	if len(cats) == 0 {
		cats = c.fallback.Categories
	}
	return NewVocabulary(orgs, cats), nil
}
