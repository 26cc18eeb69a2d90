package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-router/internal/common/logger"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *FAQIndex {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewFAQIndex(client, "faq", logger.NewTestLogger(t))
}

func TestQueryNearest(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"hits": {"hits": [
				{"_score": 3.0, "_source": {"question": "How do I open an account?", "answer": "Visit any branch with ID."}}
			]}
		}`)
	})

	match, err := idx.QueryNearest(context.Background(), "how to open an account", "")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "How do I open an account?", match.Question)
	assert.InDelta(t, 0.75, match.Similarity, 1e-9)
}

func TestQueryNearestNoHits(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hits": {"hits": []}}`)
	})

	match, err := idx.QueryNearest(context.Background(), "completely unrelated", "")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestQueryNearestIndexMissing(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := idx.QueryNearest(context.Background(), "anything", "")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestQueryNearestOrganizationFilter(t *testing.T) {
	var body string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hits": {"hits": []}}`)
	})

	_, err := idx.QueryNearest(context.Background(), "how to apply for a loan", "SBI")
	require.NoError(t, err)
	assert.Contains(t, body, `"term":{"organization":"SBI"}`)
	assert.Contains(t, body, `"multi_match"`)
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeScore(0))
	assert.Equal(t, 0.0, NormalizeScore(-1))
	assert.Equal(t, 0.5, NormalizeScore(1))
	assert.InDelta(t, 0.9, NormalizeScore(9), 1e-9)
	assert.Less(t, NormalizeScore(1000), 1.0)
}
