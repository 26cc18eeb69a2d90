// Package followup resolves short continuation queries against the active
// conversation state: ordinal picks from a listed set, count-to-list
// expansions, and pivots from a comparison or recommendation into a
// concrete next operation.
package followup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"banking-router/internal/models"
	"banking-router/internal/router/state"
)

const (
	pathOrdinalSelection   = "FOLLOWUP_ORDINAL_SELECTION"
	pathCountToList        = "FOLLOWUP_COUNT_TO_LIST"
	pathCountToExplain     = "FOLLOWUP_COUNT_TO_EXPLAIN"
	pathListToRecommend    = "FOLLOWUP_LIST_TO_RECOMMEND"
	pathWhyRecommendation  = "FOLLOWUP_WHY_RECOMMENDATION"
	pathCompareToRecommend = "FOLLOWUP_COMPARE_TO_RECOMMEND"
)

var (
	ordinalRe    = regexp.MustCompile(`\b(first|1st|second|2nd|third|3rd|fourth|4th|fifth|5th|sixth|6th|seventh|7th|eighth|8th|ninth|9th|tenth|10th)\b`)
	bareNumberRe = regexp.MustCompile(`\b([1-9]|10)\b`)

	ordinalIndex = map[string]int{
		"first": 0, "1st": 0,
		"second": 1, "2nd": 1,
		"third": 2, "3rd": 2,
		"fourth": 3, "4th": 3,
		"fifth": 4, "5th": 4,
		"sixth": 5, "6th": 5,
		"seventh": 6, "7th": 6,
		"eighth": 7, "8th": 7,
		"ninth": 8, "9th": 8,
		"tenth": 9, "10th": 9,
	}
)

// Match is a resolved follow-up transition.
type Match struct {
	Operation      models.Operation
	RoutingPath    string
	RewrittenQuery string
	ProductName    string
}

// Resolve maps the query onto a follow-up transition for the active intent.
// It returns nil when the query is not a recognizable continuation, in
// which case the query goes through full extraction and routing instead.
func Resolve(query string, st state.ContextState) *Match {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" || st.ActiveIntent == "" {
		return nil
	}

	switch st.ActiveIntent {
	case models.OpCount:
		return resolveFromCount(lower, st)
	case models.OpList, models.OpExplain:
		return resolveFromList(lower, st)
	case models.OpRecommend:
		return resolveFromRecommend(lower, st)
	case models.OpCompare:
		return resolveFromCompare(lower, st)
	}
	return nil
}

func resolveFromCount(lower string, st state.ContextState) *Match {
	// A bare count with no scope filter has too many candidates to expand.
	if st.Organization == "" && st.Category == "" {
		return nil
	}

	if m := ordinalSelection(lower, st.Products); m != nil {
		return m
	}

	if containsAny(lower, "list", "show", "display", "what are", "names") {
		return &Match{
			Operation:   models.Operation{Name: models.OpList, Confidence: 0.95},
			RoutingPath: pathCountToList,
		}
	}

	if containsAny(lower, "explain", "details", "about") {
		return &Match{
			Operation:   models.Operation{Name: models.OpExplainAll, Confidence: 0.95},
			RoutingPath: pathCountToExplain,
		}
	}
	return nil
}

func resolveFromList(lower string, st state.ContextState) *Match {
	if m := ordinalSelection(lower, st.Products); m != nil {
		return m
	}

	if containsAny(lower, "best", "recommend", "suggest") {
		return &Match{
			Operation:   models.Operation{Name: models.OpRecommend, Confidence: 0.95},
			RoutingPath: pathListToRecommend,
		}
	}
	return nil
}

func resolveFromRecommend(lower string, st state.ContextState) *Match {
	if st.RecommendedProduct == "" {
		return nil
	}
	if containsAny(lower, "why", "reason", "benefit", "feature", "advantage") {
		return &Match{
			Operation:      models.Operation{Name: models.OpExplain, Confidence: 0.95},
			RoutingPath:    pathWhyRecommendation,
			RewrittenQuery: "Explain " + st.RecommendedProduct,
			ProductName:    st.RecommendedProduct,
		}
	}
	return nil
}

func resolveFromCompare(lower string, st state.ContextState) *Match {
	if len(st.ComparedProducts) < 2 {
		return nil
	}
	if containsAny(lower, "which", "better", "best", "choose", "pick", "select", "prefer") {
		names := st.ComparedProducts
		if len(names) > 3 {
			names = names[:3]
		}
		return &Match{
			Operation:      models.Operation{Name: models.OpRecommend, Confidence: 0.95},
			RoutingPath:    pathCompareToRecommend,
			RewrittenQuery: "Which is better: " + strings.Join(names, " vs "),
		}
	}
	return nil
}

// ordinalSelection picks a product by position from the previously listed
// set. Bare digits are only honored when the query also asks to explain or
// show something, so "give me 2" never silently selects a product.
func ordinalSelection(lower string, products []string) *Match {
	if len(products) == 0 {
		return nil
	}

	idx := -1
	if m := ordinalRe.FindStringSubmatch(lower); m != nil {
		idx = ordinalIndex[m[1]]
	} else if containsAny(lower, "explain", "details", "show") {
		if m := bareNumberRe.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil
			}
			idx = n - 1
		}
	}

	if idx < 0 || idx >= len(products) {
		return nil
	}

	product := products[idx]
	return &Match{
		Operation:      models.Operation{Name: models.OpExplain, Confidence: 0.98},
		RoutingPath:    pathOrdinalSelection,
		RewrittenQuery: fmt.Sprintf("Explain %s", product),
		ProductName:    product,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
