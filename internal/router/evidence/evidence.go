// Package evidence runs the cheap lookups that ground a routing decision:
// a catalog count for the extracted scope and a nearest-neighbor FAQ probe.
// Both probes run concurrently and a failed probe degrades to its zero
// value rather than failing the request.
package evidence

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"banking-router/internal/common/logger"
	"banking-router/internal/common/metrics"
	"banking-router/internal/models"
)

// Counter counts catalog records matching an organization and category.
type Counter interface {
	CountRecords(ctx context.Context, organization, category string) (int, error)
}

// FAQSearcher returns the nearest FAQ entry for a query, or nil when the
// index has no plausible match. A non-empty organization narrows the search
// to that bank's entries.
type FAQSearcher interface {
	QueryNearest(ctx context.Context, query, organization string) (*models.FAQMatch, error)
}

// Gatherer collects routing evidence under a per-probe deadline.
type Gatherer struct {
	counter      Counter
	faq          FAQSearcher
	probeTimeout time.Duration
	logger       logger.Logger
}

func NewGatherer(counter Counter, faq FAQSearcher, probeTimeout time.Duration, log logger.Logger) *Gatherer {
	return &Gatherer{
		counter:      counter,
		faq:          faq,
		probeTimeout: probeTimeout,
		logger:       log,
	}
}

// Gather probes the catalog and the FAQ index in parallel. Each probe gets
// its own timeout so a slow database cannot starve the FAQ lookup, and
// vice versa. Probe errors are logged and counted, never propagated.
func (g *Gatherer) Gather(ctx context.Context, query string, scope models.ScopeResult) (models.Evidence, *models.FAQMatch) {
	var (
		ev    models.Evidence
		match *models.FAQMatch
	)

	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		probeCtx, cancel := context.WithTimeout(groupCtx, g.probeTimeout)
		defer cancel()

		count, err := g.counter.CountRecords(probeCtx, scope.Organization, scope.Category)
		if err != nil {
			g.logger.Warn("catalog count probe failed", map[string]interface{}{
				"organization": scope.Organization,
				"category":     scope.Category,
				"error":        err.Error(),
			})
			metrics.EvidenceProbeFailures.WithLabelValues("catalog_count").Inc()
			return nil
		}
		ev.RecordCount = count
		return nil
	})

	group.Go(func() error {
		probeCtx, cancel := context.WithTimeout(groupCtx, g.probeTimeout)
		defer cancel()

		m, err := g.faq.QueryNearest(probeCtx, query, scope.Organization)
		if err != nil {
			g.logger.Warn("faq similarity probe failed", map[string]interface{}{
				"error": err.Error(),
			})
			metrics.EvidenceProbeFailures.WithLabelValues("faq_similarity").Inc()
			return nil
		}
		if m != nil {
			match = m
			ev.SimilarityScore = m.Similarity
		}
		return nil
	})

	// Probes swallow their own errors, so Wait cannot fail.
	_ = group.Wait()
	metrics.RoutingDuration.WithLabelValues("evidence").Observe(time.Since(start).Seconds())

	return ev, match
}
