// Package search queries the FAQ knowledge index. Raw Elasticsearch scores
// are unbounded, so matches are reported with a normalized similarity
// score/(1+score) which stays in [0,1).
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"banking-router/internal/common/logger"
	"banking-router/internal/models"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

// FAQIndex wraps the knowledge index holding question/answer entries.
type FAQIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewFAQIndex(client *elasticsearch.Client, index string, log logger.Logger) *FAQIndex {
	return &FAQIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"index": index}),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source struct {
				Question string `json:"question"`
				Answer   string `json:"answer"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// QueryNearest returns the single best FAQ match for the query, or nil when
// the index holds nothing relevant. A non-empty organization restricts the
// search to that bank's entries.
func (f *FAQIndex) QueryNearest(ctx context.Context, query, organization string) (*models.FAQMatch, error) {
	textQuery := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":  query,
			"fields": []string{"question^2", "answer"},
			"type":   "best_fields",
		},
	}
	esQuery := textQuery
	if organization != "" {
		esQuery = map[string]interface{}{
			"bool": map[string]interface{}{
				"must": textQuery,
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"organization": organization},
				},
			},
		}
	}
	body := map[string]interface{}{"query": esQuery}

	raw, _ := json.Marshal(body)
	size := 1

	req := esapi.SearchRequest{
		Index: []string{f.index},
		Body:  strings.NewReader(string(raw)),
		Size:  &size,
	}

	res, err := req.Do(ctx, f.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	if len(parsed.Hits.Hits) == 0 {
		return nil, nil
	}

	hit := parsed.Hits.Hits[0]
	match := &models.FAQMatch{
		Question:   hit.Source.Question,
		Answer:     hit.Source.Answer,
		Similarity: NormalizeScore(hit.Score),
	}

	f.logger.Debug("faq match", map[string]interface{}{
		"question":   match.Question,
		"similarity": match.Similarity,
	})
	return match, nil
}

// NormalizeScore maps an unbounded relevance score into [0,1).
func NormalizeScore(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (1 + score)
}
