package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"banking-router/internal/models"
	"banking-router/internal/store"
)

const (
	greetingText = "Hello! I can help you with questions about bank products like cards, loans, and schemes. What would you like to know?"
	refuseText   = "I can only help with banking topics like accounts, cards, loans, and schemes. Please ask a banking-related question."

	unavailableText = "I'm having trouble looking that up right now. Please try again in a moment."

	faqSystemPrompt = "You are a banking assistant. Answer the user's question using only the reference FAQ entry below. Be concise and factual.\n\nFAQ question: %s\nFAQ answer: %s"

	compareSystemPrompt = "You are a banking assistant. Compare the products the user asks about using the catalog data below. Present the differences clearly. Wrap each product name in **bold**.\n\nCatalog data:\n%s"

	recommendSystemPrompt = "You are a banking assistant. Recommend the single most suitable product for the user's need from the catalog data below. Wrap the recommended product's name in **bold** and explain briefly why it fits.\n\nCatalog data:\n%s"

	fallbackSystemPrompt = "You are a banking assistant. Answer the user's banking question helpfully and concisely. If the question is not about banking, say you can only help with banking topics."

	refuseSystemPrompt = "You are a banking assistant. The user's question is outside the banking domain. Politely decline in one or two sentences and redirect them to banking topics like accounts, cards, loans, and schemes. Do not answer the original question."
)

var boldNameRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

func (d *Dispatcher) handle(ctx context.Context, op models.Operation, query string, res *models.RoutingResult, meta *models.TurnMeta) (string, error) {
	switch op.Name {
	case models.OpGreeting:
		return greetingText, nil
	case models.OpClarify:
		return res.ClarifyMessage, nil
	case models.OpRefuse:
		return d.handleRefuse(ctx, query)
	case models.OpCount:
		return d.handleCount(ctx, res.Scope, meta)
	case models.OpList:
		return d.handleList(ctx, res.Scope, meta)
	case models.OpExplainAll:
		return d.handleExplainAll(ctx, res.Scope, meta)
	case models.OpExplain:
		return d.handleExplain(ctx, query, res, meta)
	case models.OpFAQ:
		return d.handleFAQ(ctx, query, res.FAQMatch)
	case models.OpCompare:
		return d.handleCompare(ctx, query, res.Scope, meta)
	case models.OpRecommend:
		return d.handleRecommend(ctx, query, res.Scope, meta)
	case models.OpFallback:
		return d.generator.Complete(ctx, fallbackSystemPrompt, query)
	default:
		return "", fmt.Errorf("no handler for operation %q", op.Name)
	}
}

// handleCount answers from the database, never from the generator. The
// gathered evidence already holds the count but it is recomputed here so a
// degraded probe cannot surface a silent zero as a fact.
func (d *Dispatcher) handleCount(ctx context.Context, scope models.ScopeResult, meta *models.TurnMeta) (string, error) {
	count, err := d.catalog.CountRecords(ctx, scope.Organization, scope.Category)
	if err != nil {
		return "", err
	}
	meta.Count = count
	return fmt.Sprintf("There are %d %s.", count, scopeLabel(scope)), nil
}

func (d *Dispatcher) handleList(ctx context.Context, scope models.ScopeResult, meta *models.TurnMeta) (string, error) {
	records, err := d.catalog.ListRecords(ctx, scope.Organization, scope.Category, 0)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return fmt.Sprintf("I could not find any %s.", scopeLabel(scope)), nil
	}

	meta.Count = len(records)
	meta.ProductNames = recordNames(records)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **%s** (%d total):\n", scopeTitle(scope), len(records))
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. **%s**", i+1, rec.Name)
		if rec.Summary != "" {
			fmt.Fprintf(&b, " - %s", rec.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) handleExplainAll(ctx context.Context, scope models.ScopeResult, meta *models.TurnMeta) (string, error) {
	records, err := d.catalog.ListRecords(ctx, scope.Organization, scope.Category, 0)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return fmt.Sprintf("I could not find any %s.", scopeLabel(scope)), nil
	}

	meta.Count = len(records)
	meta.ProductNames = recordNames(records)

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the details for all %d %s:\n", len(records), scopeLabel(scope))
	for _, rec := range records {
		b.WriteString("\n")
		b.WriteString(renderRecord(rec))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) handleExplain(ctx context.Context, query string, res *models.RoutingResult, meta *models.TurnMeta) (string, error) {
	name := res.ProductName
	if name == "" {
		name = d.matchProductInQuery(ctx, query, res.Scope)
	}
	if name == "" {
		// No resolvable product: let the generator answer from the query.
		return d.generator.Complete(ctx, fallbackSystemPrompt, query)
	}

	rec, err := d.catalog.FindByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return d.generator.Complete(ctx, fallbackSystemPrompt, query)
	}
	if err != nil {
		return "", err
	}

	meta.ProductNames = []string{rec.Name}
	meta.Count = 1
	return fmt.Sprintf("Here are the details for **%s**:\n\n%s", rec.Name, renderRecord(*rec)), nil
}

// handleRefuse asks the generator for a polite redirect; a generation
// failure degrades to the fixed refusal text.
func (d *Dispatcher) handleRefuse(ctx context.Context, query string) (string, error) {
	text, err := d.generator.Complete(ctx, refuseSystemPrompt, query)
	if err != nil {
		return refuseText, nil
	}
	return text, nil
}

func (d *Dispatcher) handleFAQ(ctx context.Context, query string, match *models.FAQMatch) (string, error) {
	if match == nil {
		return d.generator.Complete(ctx, fallbackSystemPrompt, query)
	}
	system := fmt.Sprintf(faqSystemPrompt, match.Question, match.Answer)
	text, err := d.generator.Complete(ctx, system, query)
	if err != nil {
		// The retrieved answer is still better than an error.
		d.logger.Warn("faq generation failed, returning retrieved answer", map[string]interface{}{
			"error": err.Error(),
		})
		return match.Answer, nil
	}
	return text, nil
}

func (d *Dispatcher) handleCompare(ctx context.Context, query string, scope models.ScopeResult, meta *models.TurnMeta) (string, error) {
	catalogText, err := d.catalogContext(ctx, scope)
	if err != nil {
		return "", err
	}
	text, err := d.generator.Complete(ctx, fmt.Sprintf(compareSystemPrompt, catalogText), query)
	if err != nil {
		return "", err
	}
	meta.ComparedProducts = boldNames(text)
	return text, nil
}

func (d *Dispatcher) handleRecommend(ctx context.Context, query string, scope models.ScopeResult, meta *models.TurnMeta) (string, error) {
	catalogText, err := d.catalogContext(ctx, scope)
	if err != nil {
		return "", err
	}
	text, err := d.generator.Complete(ctx, fmt.Sprintf(recommendSystemPrompt, catalogText), query)
	if err != nil {
		return "", err
	}
	if names := boldNames(text); len(names) > 0 {
		meta.RecommendedProduct = names[0]
	}
	return text, nil
}

// catalogContext renders the in-scope records as grounding material for the
// generator-backed operations. A query naming several organizations, like a
// cross-bank comparison, pulls records from every one of them.
func (d *Dispatcher) catalogContext(ctx context.Context, scope models.ScopeResult) (string, error) {
	organizations := scope.AllOrganizations
	if len(organizations) < 2 {
		organizations = []string{scope.Organization}
	}

	var (
		b     strings.Builder
		total int
	)
	for _, org := range organizations {
		records, err := d.catalog.ListRecords(ctx, org, scope.Category, 0)
		if err != nil {
			return "", err
		}
		total += len(records)
		for _, rec := range records {
			b.WriteString(renderRecord(rec))
			b.WriteString("\n")
		}
	}
	if total == 0 {
		return "(no catalog records in scope)", nil
	}
	return b.String(), nil
}

// matchProductInQuery finds the in-scope record whose name appears in the
// query text, longest name first so "Elite Travel Card" beats "Elite Card".
func (d *Dispatcher) matchProductInQuery(ctx context.Context, query string, scope models.ScopeResult) string {
	records, err := d.catalog.ListRecords(ctx, scope.Organization, scope.Category, 0)
	if err != nil {
		d.logger.Warn("product lookup for explain failed", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}

	lower := strings.ToLower(query)
	best := ""
	for _, rec := range records {
		name := strings.ToLower(rec.Name)
		if strings.Contains(lower, name) && len(rec.Name) > len(best) {
			best = rec.Name
		}
	}
	return best
}

func renderRecord(rec models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", rec.Name)
	if rec.Organization != "" || rec.Category != "" {
		fmt.Fprintf(&b, " (%s)", strings.TrimSpace(rec.Organization+" "+rec.Category))
	}
	b.WriteString("\n")
	if rec.Summary != "" {
		fmt.Fprintf(&b, "%s\n", rec.Summary)
	}
	for _, key := range sortedKeys(rec.Attributes) {
		fmt.Fprintf(&b, "- %s: %s\n", key, rec.Attributes[key])
	}
	return b.String()
}

func scopeLabel(scope models.ScopeResult) string {
	category := "products"
	if scope.Category != "" {
		category = pluralize(strings.ToLower(scope.Category))
	}
	if scope.Organization != "" {
		return scope.Organization + " " + category
	}
	return category
}

func scopeTitle(scope models.ScopeResult) string {
	category := "Products"
	if scope.Category != "" {
		category = pluralize(scope.Category)
	}
	if scope.Organization != "" {
		return scope.Organization + " " + category
	}
	return category
}

func pluralize(s string) string {
	if strings.HasSuffix(s, "s") {
		return s
	}
	return s + "s"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func recordNames(records []models.Record) []string {
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	return names
}

func boldNames(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range boldNameRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
