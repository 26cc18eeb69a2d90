package state

import (
	"regexp"
	"strconv"
	"strings"

	"banking-router/internal/models"
)

// Older clients replay histories that carry only rendered answer text, so
// the state reconstructor recognizes the renderer's own output formats.
var (
	listTotalRe   = regexp.MustCompile(`\((\d+)\s+total\)`)
	thereAreRe    = regexp.MustCompile(`(?i)there are (\d+)`)
	detailsForRe  = regexp.MustCompile(`(?i)details for (.+?):`)
	boldRe        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	recommendedRe = regexp.MustCompile(`(?i)the ([A-Za-z0-9 ]+?(?:Card|Loan|Account|Scheme)) (?:might|is|would|could)`)
	lineNumberRe  = regexp.MustCompile(`^\d+\.\s*`)
)

// applyLegacyText parses intent state out of a rendered assistant answer.
// It returns true when the text established an answerable intent.
func applyLegacyText(st *ContextState, text string) bool {
	lower := strings.ToLower(text)

	if strings.Contains(text, "📋") && strings.Contains(lower, "total") {
		products := parseListedProducts(text)
		if len(products) == 0 {
			return false
		}
		st.ActiveIntent = models.OpList
		st.Products = products
		st.ProductCount = len(products)
		if m := listTotalRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				st.ProductCount = n
			}
		}
		return true
	}

	if m := thereAreRe.FindStringSubmatch(text); m != nil && mentionsProducts(lower) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		st.ActiveIntent = models.OpCount
		st.ProductCount = n
		return true
	}

	if m := detailsForRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(stripMarkdown(m[1]))
		if name == "" {
			return false
		}
		st.ActiveIntent = models.OpExplain
		st.Products = []string{name}
		st.ProductCount = 1
		return true
	}

	if strings.Contains(lower, "comparison") || strings.Contains(lower, " vs ") {
		compared := uniqueBoldNames(text)
		if len(compared) < 2 {
			return false
		}
		st.ActiveIntent = models.OpCompare
		st.ComparedProducts = compared
		return true
	}

	if strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest") {
		if name := extractRecommendedProduct(text); name != "" {
			st.ActiveIntent = models.OpRecommend
			st.RecommendedProduct = name
			return true
		}
	}

	return false
}

// parseListedProducts pulls product names out of a numbered or bulleted
// list, one per line, dropping any trailing " - description" segment.
func parseListedProducts(text string) []string {
	var products []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !lineNumberRe.MatchString(line) && !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		line = lineNumberRe.ReplaceAllString(line, "")
		line = strings.TrimLeft(line, "-* \t")
		for _, sep := range []string{" - ", " – "} {
			if idx := strings.Index(line, sep); idx >= 0 {
				line = line[:idx]
			}
		}
		name := strings.TrimSpace(stripMarkdown(line))
		if name != "" {
			products = append(products, name)
		}
	}
	return products
}

func uniqueBoldNames(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range boldRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func extractRecommendedProduct(text string) string {
	if m := boldRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := recommendedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func stripMarkdown(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

func mentionsProducts(lower string) bool {
	for _, w := range []string{"card", "loan", "account", "scheme", "product"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
