package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-router/internal/common/config"
	"banking-router/internal/common/logger"
	"banking-router/internal/models"
	"banking-router/internal/router/dispatcher"
	"banking-router/internal/router/evidence"
	"banking-router/internal/router/extract"
	"banking-router/internal/router/validate"
	"banking-router/internal/store"
)

type stubCatalog struct{ records []models.Record }

func (s *stubCatalog) CountRecords(ctx context.Context, org, cat string) (int, error) {
	return len(s.records), nil
}

func (s *stubCatalog) ListRecords(ctx context.Context, org, cat string, limit int) ([]models.Record, error) {
	return s.records, nil
}

func (s *stubCatalog) FindByName(ctx context.Context, name string) (*models.Record, error) {
	for i, rec := range s.records {
		if strings.EqualFold(rec.Name, name) {
			return &s.records[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type stubFAQ struct{}

func (stubFAQ) QueryNearest(ctx context.Context, query, organization string) (*models.FAQMatch, error) {
	return nil, nil
}

type stubGenerator struct{}

func (stubGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	return "generated answer", nil
}

type stubVocabSource struct{}

func (stubVocabSource) DistinctOrganizations(ctx context.Context) ([]string, error) {
	return []string{"SBI"}, nil
}

func (stubVocabSource) DistinctCategories(ctx context.Context) ([]string, error) {
	return []string{"Credit Card"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logger.NewTestLogger(t)
	catalog := &stubCatalog{records: []models.Record{
		{Name: "SBI Elite", Organization: "SBI", Category: "Credit Card"},
		{Name: "SBI Prime", Organization: "SBI", Category: "Credit Card"},
	}}

	d := dispatcher.New(dispatcher.Options{
		Vocabulary:   extract.NewVocabularyCache(stubVocabSource{}, time.Minute, nil, nil, log),
		Catalog:      catalog,
		Gatherer:     evidence.NewGatherer(catalog, stubFAQ{}, time.Second, log),
		Generator:    stubGenerator{},
		Thresholds:   validate.DefaultThresholds(),
		HistoryLimit: 20,
		Logger:       log,
	})

	srv, err := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, d, log)
	require.NoError(t, err)
	return srv
}

func postRoute(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRouteEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postRoute(t, srv, `{"query": "how many SBI credit cards"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer dispatcher.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "There are 2 SBI credit cards.", answer.Text)
	assert.Equal(t, models.OpCount, answer.Meta.Intent)
}

func TestRouteEndpointRouteOnly(t *testing.T) {
	srv := newTestServer(t)

	rec := postRoute(t, srv, `{"query": "how many SBI credit cards", "route_only": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Routing models.RoutingResult `json:"routing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Routing.Operations)
	assert.Equal(t, models.OpCount, body.Routing.Operations[0].Name)
}

func TestRouteEndpointWithHistory(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"query": "explain the second one",
		"history": [
			{"role": "user", "text": "list SBI credit cards"},
			{"role": "assistant", "text": "rendered", "metadata": {
				"intent": "LIST",
				"product_names": ["SBI Elite", "SBI Prime"],
				"count": 2
			}}
		]
	}`
	rec := postRoute(t, srv, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer dispatcher.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Contains(t, answer.Text, "SBI Prime")
}

func TestRouteEndpointRejectsMissingQuery(t *testing.T) {
	srv := newTestServer(t)

	rec := postRoute(t, srv, `{"history": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteEndpointRejectsBadRole(t *testing.T) {
	srv := newTestServer(t)

	rec := postRoute(t, srv, `{"query": "hi", "history": [{"role": "system", "text": "x"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteEndpointRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)

	rec := postRoute(t, srv, `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
