// Package validate turns extraction signals plus gathered evidence into an
// ordered operation list. The rules form a strict-priority decision table:
// checkable facts (counts, lists) are only ever routed to deterministic
// handlers backed by database evidence, while procedural questions defer to
// textual similarity.
package validate

import (
	"context"
	"fmt"
	"strings"

	"banking-router/internal/models"
	"banking-router/internal/router/extract"
)

// Routing path labels, recorded on every result for observability.
const (
	PathGreeting       = "GREETING"
	PathNoScope        = "NO_SCOPE"
	PathVagueClarify   = "VAGUE_CLARIFY"
	PathMultiOperation = "MULTI_OPERATION"
	PathFAQNonProduct  = "FAQ_NON_PRODUCT"
	PathCount          = "EVIDENCE_COUNT"
	PathList           = "EVIDENCE_LIST"
	PathExplainAll     = "EVIDENCE_EXPLAIN_ALL"
	PathCompare        = "EVIDENCE_COMPARE"
	PathRecommend      = "EVIDENCE_RECOMMEND"
	PathExplain        = "EVIDENCE_EXPLAIN"
	PathImplicitList   = "IMPLICIT_LIST"
	PathRefuse         = "OUT_OF_DOMAIN_REFUSE"
	PathFAQFallback    = "FAQ_FALLBACK"
	PathFallback       = "FALLBACK"
)

// DomainGate confirms a scoped but signal-less query belongs to banking
// before the implicit-list rule fires.
type DomainGate interface {
	InDomain(ctx context.Context, query string) bool
}

// Thresholds are the similarity and scope cutoffs of the decision table.
type Thresholds struct {
	FAQStrong   float64
	FAQWeak     float64
	FAQOverride float64
	ScopeStrong float64
}

// DefaultThresholds mirrors the shipped configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{FAQStrong: 0.6, FAQWeak: 0.4, FAQOverride: 0.75, ScopeStrong: 0.7}
}

// Screen runs the terminal checks that precede evidence gathering:
// greetings, scope-less queries, and vague one-liners all resolve locally.
// It returns nil when the query should continue through the pipeline.
func Screen(sig extract.Signals, scope models.ScopeResult) *models.RoutingResult {
	if sig.IsGreeting {
		return &models.RoutingResult{
			Operations:  []models.Operation{{Name: models.OpGreeting, Confidence: 1.0}},
			Scope:       scope,
			RoutingPath: PathGreeting,
		}
	}

	if !scope.Valid() {
		return &models.RoutingResult{
			Operations:     []models.Operation{{Name: models.OpClarify, Confidence: 0.95}},
			Scope:          scope,
			RoutingPath:    PathNoScope,
			ClarifyMessage: clarifyMessage(scope.Category),
		}
	}

	// Vague shape is only disqualifying when no organization survived the
	// history merge; "loans" after "SBI" was mentioned is a real query.
	if sig.VagueShape && scope.Organization == "" {
		return &models.RoutingResult{
			Operations:     []models.Operation{{Name: models.OpClarify, Confidence: 0.95}},
			Scope:          scope,
			RoutingPath:    PathVagueClarify,
			ClarifyMessage: clarifyMessage(scope.Category),
		}
	}

	return nil
}

// Validate applies the evidence decision table. Rules are ordered; the
// first match wins.
func Validate(
	ctx context.Context,
	query string,
	sig extract.Signals,
	scope models.ScopeResult,
	ev models.Evidence,
	match *models.FAQMatch,
	gate DomainGate,
	th Thresholds,
) *models.RoutingResult {
	countCandidate := ev.DBStrength() && scope.Strength >= th.ScopeStrong && !sig.NonProductTarget
	faqCandidate := ev.SimilarityScore >= th.FAQStrong ||
		(!ev.DBStrength() && ev.SimilarityScore >= th.FAQWeak) ||
		sig.NonProductTarget

	result := func(path string, ops ...models.Operation) *models.RoutingResult {
		return &models.RoutingResult{
			Operations:  ops,
			Scope:       scope,
			Evidence:    &ev,
			RoutingPath: path,
			FAQMatch:    match,
		}
	}

	// A count or list request bundled with a procedural question via a
	// conjunction resolves to both operations.
	if (sig.HasCount || sig.HasList) && sig.NonProductTarget && sig.HasConjunction && ev.DBStrength() {
		first := models.Operation{Name: models.OpCount, Confidence: 0.90}
		if sig.HasList && !sig.HasCount {
			first = models.Operation{Name: models.OpList, Confidence: 0.85}
		}
		return result(PathMultiOperation, first, models.Operation{Name: models.OpFAQ, Confidence: 0.85})
	}

	if faqCandidate && sig.NonProductTarget && !sig.HasConjunction {
		return result(PathFAQNonProduct, models.Operation{Name: models.OpFAQ, Confidence: 0.95})
	}

	switch {
	case sig.HasCount && countCandidate:
		return result(PathCount, models.Operation{Name: models.OpCount, Confidence: 0.95})
	case sig.HasList && countCandidate:
		return result(PathList, models.Operation{Name: models.OpList, Confidence: 0.90})
	case sig.HasExplainAll && ev.DBStrength():
		return result(PathExplainAll, models.Operation{Name: models.OpExplainAll, Confidence: 0.90})
	case sig.HasCompare && ev.DBStrength():
		return result(PathCompare, models.Operation{Name: models.OpCompare, Confidence: 0.90})
	case sig.HasRecommend && ev.DBStrength():
		return result(PathRecommend, models.Operation{Name: models.OpRecommend, Confidence: 0.90})
	case sig.HasExplain && !sig.HasList && ev.DBStrength():
		return result(PathExplain, models.Operation{Name: models.OpExplain, Confidence: 0.85})
	}

	// A fully scoped query with no verb signal usually means "show me
	// these", unless it reads procedural or the FAQ index is confident.
	noSignals := !sig.HasCount && !sig.HasList && !sig.HasExplain && !sig.HasExplainAll &&
		!sig.HasCompare && !sig.HasRecommend
	if scope.Organization != "" && scope.Category != "" && ev.DBStrength() &&
		noSignals && !sig.NonProductTarget &&
		!sig.IsProcedural && ev.SimilarityScore < th.FAQOverride {
		if gate == nil || gate.InDomain(ctx, query) {
			return result(PathImplicitList, models.Operation{Name: models.OpList, Confidence: 0.85})
		}
		return result(PathRefuse, models.Operation{Name: models.OpRefuse, Confidence: 0.95})
	}

	if faqCandidate && ev.SimilarityScore >= th.FAQStrong {
		return result(PathFAQFallback, models.Operation{Name: models.OpFAQ, Confidence: ev.SimilarityScore})
	}

	return result(PathFallback, models.Operation{Name: models.OpFallback, Confidence: 0.5})
}

func clarifyMessage(category string) string {
	if category != "" {
		return fmt.Sprintf(
			"Which bank's %ss are you interested in? For example: SBI or HDFC.",
			strings.ToLower(category),
		)
	}
	return "Could you be more specific? For example: \"How many SBI credit cards are there?\""
}
