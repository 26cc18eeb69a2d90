// Package dispatcher wires the routing pipeline end to end: rebuild
// conversation state, try a follow-up transition, otherwise extract signals,
// gather evidence, validate, and finally execute the resolved operations
// against their handlers.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"banking-router/internal/common/logger"
	"banking-router/internal/common/metrics"
	"banking-router/internal/common/observability"
	"banking-router/internal/models"
	"banking-router/internal/router/evidence"
	"banking-router/internal/router/extract"
	"banking-router/internal/router/followup"
	"banking-router/internal/router/state"
	"banking-router/internal/router/validate"
)

// Catalog is the structured product store consumed by the deterministic
// handlers.
type Catalog interface {
	CountRecords(ctx context.Context, organization, category string) (int, error)
	ListRecords(ctx context.Context, organization, category string, limit int) ([]models.Record, error)
	FindByName(ctx context.Context, name string) (*models.Record, error)
}

// Generator produces free-form answers for the non-checkable operations.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Answer is one fully handled turn: the rendered text plus the structured
// metadata the caller must persist alongside it.
type Answer struct {
	Text   string               `json:"text"`
	Meta   models.TurnMeta      `json:"metadata"`
	Result models.RoutingResult `json:"routing"`
}

const operationSeparator = "\n\n---\n\n"

type Dispatcher struct {
	vocab        *extract.VocabularyCache
	catalog      Catalog
	gatherer     *evidence.Gatherer
	gate         validate.DomainGate
	generator    Generator
	thresholds   validate.Thresholds
	historyLimit int
	tracing      *observability.Tracing
	obs          *observability.Observability
	logger       logger.Logger
}

type Options struct {
	Vocabulary    *extract.VocabularyCache
	Catalog       Catalog
	Gatherer      *evidence.Gatherer
	Gate          validate.DomainGate
	Generator     Generator
	Thresholds    validate.Thresholds
	HistoryLimit  int
	Tracing       *observability.Tracing
	Observability *observability.Observability
	Logger        logger.Logger
}

func New(opts Options) *Dispatcher {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Dispatcher{
		vocab:        opts.Vocabulary,
		catalog:      opts.Catalog,
		gatherer:     opts.Gatherer,
		gate:         opts.Gate,
		generator:    opts.Generator,
		thresholds:   opts.Thresholds,
		historyLimit: opts.HistoryLimit,
		tracing:      opts.Tracing,
		obs:          opts.Observability,
		logger:       opts.Logger,
	}
}

// Route resolves a query against its history into an operation list without
// executing any handler.
func (d *Dispatcher) Route(ctx context.Context, query string, history []models.Turn) models.RoutingResult {
	start := time.Now()
	ctx, span := d.startSpan(ctx, "route")
	defer span()

	history = truncateHistory(history, d.historyLimit)
	vocab := d.vocab.Get(ctx)
	st := state.Reconstruct(history, vocab)

	if m := followup.Resolve(query, st); m != nil {
		res := models.RoutingResult{
			Operations: []models.Operation{m.Operation},
			Scope: models.ScopeResult{
				Organization: st.Organization,
				Category:     st.Category,
				Strength:     models.ScopeStrength(st.Organization, st.Category),
			},
			RoutingPath:    m.RoutingPath,
			RewrittenQuery: m.RewrittenQuery,
			ProductName:    m.ProductName,
		}
		d.observe(res, time.Since(start))
		return res
	}

	sig := extract.Scan(query, vocab)
	scope := d.mergeScope(sig, st)

	if res := validate.Screen(sig, scope); res != nil {
		d.observe(*res, time.Since(start))
		return *res
	}

	ev, match := d.gatherer.Gather(ctx, query, scope)
	res := validate.Validate(ctx, query, sig, scope, ev, match, d.gate, d.thresholds)
	d.observe(*res, time.Since(start))
	return *res
}

// Respond routes the query and executes every resolved operation,
// concatenating multi-operation outputs with a visible separator.
func (d *Dispatcher) Respond(ctx context.Context, query string, history []models.Turn) (Answer, error) {
	res := d.Route(ctx, query, history)

	ctx, span := d.startSpan(ctx, "respond")
	defer span()

	var (
		parts []string
		meta  models.TurnMeta
	)
	meta.Intent = res.Primary().Name
	meta.Organization = res.Scope.Organization
	meta.Category = res.Scope.Category
	meta.RoutingPath = res.RoutingPath

	for i, op := range res.Operations {
		opQuery := query
		if res.RewrittenQuery != "" {
			opQuery = res.RewrittenQuery
		}
		// In a multi-operation turn the FAQ handler gets a focused
		// procedural query, not the counting clause it was bundled with.
		if i > 0 && op.Name == models.OpFAQ {
			opQuery = focusedFAQQuery(query, res.Scope)
		}

		text, err := d.handle(ctx, op, opQuery, &res, &meta)
		if err != nil {
			// A failing dependency degrades to a safe message for this
			// operation; it never fails the whole turn.
			d.logger.Error("operation handler failed", map[string]interface{}{
				"operation": string(op.Name),
				"path":      res.RoutingPath,
				"error":     err.Error(),
			})
			metrics.RoutingFailures.WithLabelValues("handler", string(op.Name)).Inc()
			text = unavailableText
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	return Answer{
		Text:   strings.Join(parts, operationSeparator),
		Meta:   meta,
		Result: res,
	}, nil
}

// mergeScope fills organization and category missing from the current
// query with the most recent mentions from the conversation.
func (d *Dispatcher) mergeScope(sig extract.Signals, st state.ContextState) models.ScopeResult {
	scope := models.ScopeResult{
		Organization:     sig.Organization,
		AllOrganizations: sig.AllOrganizations,
		Category:         sig.Category,
	}
	if scope.Organization == "" {
		scope.Organization = st.Organization
	}
	if scope.Category == "" {
		scope.Category = st.Category
	}
	scope.Strength = models.ScopeStrength(scope.Organization, scope.Category)
	return scope
}

func (d *Dispatcher) observe(res models.RoutingResult, elapsed time.Duration) {
	primary := res.Primary()
	metrics.RoutingDecisions.WithLabelValues(string(primary.Name), res.RoutingPath).Inc()
	metrics.RoutingDuration.WithLabelValues("route").Observe(elapsed.Seconds())
	if d.obs != nil {
		ctx := context.Background()
		d.obs.RecordRequest(ctx, string(primary.Name))
		d.obs.RecordDuration(ctx, elapsed, string(primary.Name))
	}
	d.logger.Info("routing decision", map[string]interface{}{
		"operation":  string(primary.Name),
		"path":       res.RoutingPath,
		"confidence": primary.Confidence,
		"operations": len(res.Operations),
	})
}

func (d *Dispatcher) startSpan(ctx context.Context, stage string) (context.Context, func()) {
	if d.tracing == nil {
		return ctx, func() {}
	}
	ctx, span := d.tracing.StartSpan(ctx, stage)
	return ctx, func() { span.End() }
}

func truncateHistory(history []models.Turn, limit int) []models.Turn {
	if len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

// faqFocusKeywords drive the rebuild of the FAQ half of a multi-operation
// query. Order matters: the first keyword found in the query wins.
var faqFocusKeywords = []string{
	"apply", "application", "document", "requirement",
	"eligibility", "process", "procedure", "steps",
}

// focusedFAQQuery rebuilds the procedural half of a multi-operation query
// from its first procedural keyword plus the resolved scope, so the
// generator never sees the counting clause regardless of word order.
func focusedFAQQuery(query string, scope models.ScopeResult) string {
	lower := strings.ToLower(query)
	for _, kw := range faqFocusKeywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		subject := strings.TrimSpace(scope.Organization + " " + scope.Category)
		if subject == "" {
			subject = "this product"
		}
		return fmt.Sprintf("how to %s for %s", kw, subject)
	}
	return query
}
