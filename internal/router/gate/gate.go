// Package gate decides whether a query that carries no product evidence
// is still within the banking domain. Out-of-domain queries are refused
// instead of being answered from thin air.
package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"banking-router/internal/common/logger"
	"banking-router/internal/common/metrics"
)

// Classifier answers a yes/no domain question about a query.
type Classifier interface {
	ClassifyYesNo(ctx context.Context, prompt string) (bool, error)
}

// Cache stores prior gate verdicts keyed by normalized query.
type Cache interface {
	Get(ctx context.Context, key string) (bool, bool)
	Set(ctx context.Context, key string, inDomain bool)
}

const promptTemplate = `You are a domain gate for a banking assistant. The assistant only answers questions about banks, bank accounts, cards, loans, schemes, and related banking services and procedures.

Is the following user query about banking? Answer YES or NO only.

Query: %s`

// Gate classifies queries as in-domain or out-of-domain, caching verdicts.
// A classifier failure fails open: the query is treated as in-domain so a
// flaky upstream never blocks legitimate traffic.
type Gate struct {
	classifier Classifier
	cache      Cache
	logger     logger.Logger
}

func New(classifier Classifier, cache Cache, log logger.Logger) *Gate {
	return &Gate{
		classifier: classifier,
		cache:      cache,
		logger:     log,
	}
}

// InDomain reports whether the query belongs to the banking domain.
func (g *Gate) InDomain(ctx context.Context, query string) bool {
	key := normalizeKey(query)

	if g.cache != nil {
		if verdict, ok := g.cache.Get(ctx, key); ok {
			metrics.GateCacheEvents.WithLabelValues("hit").Inc()
			return verdict
		}
		metrics.GateCacheEvents.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	verdict, err := g.classifier.ClassifyYesNo(ctx, fmt.Sprintf(promptTemplate, query))
	metrics.RoutingDuration.WithLabelValues("gate").Observe(time.Since(start).Seconds())
	if err != nil {
		g.logger.Warn("domain gate classification failed, allowing query", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.RoutingFailures.WithLabelValues("gate", "GATE_CLASSIFY_FAILED").Inc()
		return true
	}

	if g.cache != nil {
		g.cache.Set(ctx, key, verdict)
	}
	return verdict
}

func normalizeKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
