package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"banking-router/internal/common/logger"
)

type fakeSource struct {
	orgs    []string
	cats    []string
	err     error
	queries int
}

func (f *fakeSource) DistinctOrganizations(ctx context.Context) ([]string, error) {
	f.queries++
	return f.orgs, f.err
}

func (f *fakeSource) DistinctCategories(ctx context.Context) ([]string, error) {
	return f.cats, f.err
}

func testVocabulary() *Vocabulary {
	return NewVocabulary(
		[]string{"SBI", "HDFC"},
		[]string{"Credit Card", "Debit Card", "Loan", "Scheme"},
	)
}

func TestScanSignals(t *testing.T) {
	vocab := testVocabulary()

	tests := []struct {
		name  string
		query string
		check func(t *testing.T, sig Signals)
	}{
		{
			name:  "count with full scope",
			query: "how many SBI credit cards",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.HasCount)
				assert.Equal(t, "SBI", sig.Organization)
				assert.Equal(t, "Credit Card", sig.Category)
			},
		},
		{
			name:  "list does not fire alongside count",
			query: "how many of all SBI loans",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.HasCount)
				assert.False(t, sig.HasList)
			},
		},
		{
			name:  "compare all is compare not list",
			query: "compare all HDFC loans",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.HasCompare)
				assert.False(t, sig.HasList)
			},
		},
		{
			name:  "explain all suppresses explain",
			query: "explain all SBI debit cards",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.HasExplainAll)
				assert.False(t, sig.HasExplain)
			},
		},
		{
			name:  "plural category matches",
			query: "SBI loans",
			check: func(t *testing.T, sig Signals) {
				assert.Equal(t, "Loan", sig.Category)
			},
		},
		{
			name:  "first word of multi-word category matches",
			query: "SBI credit options",
			check: func(t *testing.T, sig Signals) {
				assert.Equal(t, "Credit Card", sig.Category)
			},
		},
		{
			name:  "multiple organizations retained in order",
			query: "SBI vs HDFC credit cards",
			check: func(t *testing.T, sig Signals) {
				assert.Equal(t, []string{"SBI", "HDFC"}, sig.AllOrganizations)
				assert.Equal(t, "SBI", sig.Organization)
				assert.True(t, sig.HasCompare)
			},
		},
		{
			name:  "greeting",
			query: "hello there",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.IsGreeting)
			},
		},
		{
			name:  "bare category is vague shaped",
			query: "loan",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.VagueShape)
			},
		},
		{
			name:  "faq pattern defeats vague shape",
			query: "apply loan",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.HasFAQPattern)
				assert.False(t, sig.VagueShape)
			},
		},
		{
			name:  "non product target with conjunction",
			query: "how many SBI cards and how to apply",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.NonProductTarget)
				assert.True(t, sig.HasConjunction)
				assert.True(t, sig.HasCount)
			},
		},
		{
			name:  "procedural phrase",
			query: "how to open a savings account with SBI",
			check: func(t *testing.T, sig Signals) {
				assert.True(t, sig.IsProcedural)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Scan(tt.query, vocab))
		})
	}
}

func TestVocabularyCacheTTL(t *testing.T) {
	src := &fakeSource{
		orgs: []string{"SBI"},
		cats: []string{"Loan"},
	}

	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	cache := NewVocabularyCache(src, 5*time.Minute, clock, nil, logger.NewTestLogger(t))

	v1 := cache.Get(context.Background())
	assert.Equal(t, []string{"SBI"}, v1.Organizations)
	assert.Equal(t, 1, src.queries)

	// Within TTL: no refresh.
	now = now.Add(4 * time.Minute)
	cache.Get(context.Background())
	assert.Equal(t, 1, src.queries)

	// Past TTL: refresh.
	now = now.Add(2 * time.Minute)
	src.orgs = []string{"SBI", "HDFC"}
	v2 := cache.Get(context.Background())
	assert.Equal(t, 2, src.queries)
	assert.Equal(t, []string{"SBI", "HDFC"}, v2.Organizations)
}

func TestVocabularyCacheStaleOnError(t *testing.T) {
	src := &fakeSource{orgs: []string{"SBI"}, cats: []string{"Loan"}}
	now := time.Unix(1000, 0)
	cache := NewVocabularyCache(src, time.Minute, func() time.Time { return now }, nil, logger.NewTestLogger(t))

	v1 := cache.Get(context.Background())
	assert.Equal(t, []string{"SBI"}, v1.Organizations)

	now = now.Add(2 * time.Minute)
	src.err = errors.New("db down")
	v2 := cache.Get(context.Background())
	assert.Equal(t, []string{"SBI"}, v2.Organizations, "stale snapshot kept on refresh failure")
}

func TestVocabularyCacheFallback(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	cache := NewVocabularyCache(src, time.Minute, nil, nil, logger.NewTestLogger(t))

	v := cache.Get(context.Background())
	assert.NotEmpty(t, v.Organizations, "fallback vocabulary used when source never reachable")
	assert.NotEmpty(t, v.Categories)
}
