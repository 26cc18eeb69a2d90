// Package extract turns raw utterance text into structured routing
// signals: mentioned organizations and categories plus boolean intent
// flags detected from fixed phrase sets.
package extract

import (
	"context"
	"regexp"
	"strings"

	"banking-router/internal/common/logger"
)

var (
	countKeywords = []string{
		"how many", "count", "number of", "total",
	}

	listKeywords = []string{
		"all", "list", "show", "display", "what are", "which", "names of",
	}

	comparePatterns = compileAll(
		`\bvs\b`, `\bversus\b`, `\bcompare\b`, `\bdifference between\b`,
		`\bcompared to\b`, `\bcomparison\b`,
	)

	recommendKeywords = []string{
		"best", "recommend", "suggest", "suitable", "good for",
		"better for", "which should i",
	}

	explainPatterns = compileAll(
		`\bexplain\b`, `\bdetails of\b`, `\bfeatures of\b`,
		`\btell me about\b`, `\bdescribe\b`, `\binformation on\b`,
	)

	explainAllPatterns = compileAll(
		`\bexplain all\b`, `\bdetails of all\b`, `\ball.*explain\b`,
		`\bexplain.*all\b`, `\btell me about all\b`,
	)

	greetings = []string{
		"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	}

	faqPatterns = compileAll(
		`\b(how to|how do i|how can i|process|procedure|apply|document|eligibility|requirement|help)\b`,
		`\b(what is|what are)\b`,
		`\b(create|open|activate|close|cancel|block)\s+(account|card|loan)\b`,
	)

	// Words indicating the query targets a process or attribute rather
	// than a product entity.
	nonProductTargets = []string{
		"step", "steps", "process", "procedure", "way",
		"document", "documents", "requirement", "requirements", "paper", "papers",
		"time", "times", "duration", "period",
		"eligibility", "eligible", "qualify",
		"fee", "fees", "charge", "charges", "cost",
		"interest", "rate", "rates",
		"apply", "application", "applying",
		"approval", "approve",
		"withdraw", "withdrawal", "limit",
	}

	proceduralPhrases = []string{
		"how to", "how do", "how can", "steps to", "process to",
		"register", "activate", "apply for", "get a", "open a",
		"procedure", "way to", "method to", "can i", "do i need",
	}

	vagueTerms = []string{
		"loan", "loans", "credit", "debit", "card", "cards",
		"credit card", "debit card", "home loan", "car loan",
		"account", "accounts", "bank", "banking", "scheme", "schemes",
	}

	conjunctions = []string{" and ", " & ", ", "}
)

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		res = append(res, regexp.MustCompile(e))
	}
	return res
}

// Signals is the structured outcome of scanning one utterance.
type Signals struct {
	Organization     string
	AllOrganizations []string
	Category         string

	HasCount      bool
	HasList       bool
	HasCompare    bool
	HasRecommend  bool
	HasExplain    bool
	HasExplainAll bool

	HasFAQPattern    bool
	NonProductTarget bool
	HasConjunction   bool
	IsProcedural     bool
	IsGreeting       bool

	// VagueShape marks a bare one-or-two-word banking term with no intent
	// signal. Whether it actually routes to CLARIFY depends on whether an
	// organization is known from history, which the validator decides.
	VagueShape bool
}

// Extractor scans utterances against the current vocabulary snapshot.
type Extractor struct {
	vocab  *VocabularyCache
	logger logger.Logger
}

func NewExtractor(vocab *VocabularyCache, log logger.Logger) *Extractor {
	return &Extractor{
		vocab:  vocab,
		logger: log.WithFields(map[string]interface{}{"component": "extractor"}),
	}
}

// Extract analyzes a single utterance. It never fails: an unreachable
// vocabulary source degrades to the cached or fallback vocabulary.
func (e *Extractor) Extract(ctx context.Context, query string) Signals {
	vocab := e.vocab.Get(ctx)
	return Scan(query, vocab)
}

// Scan analyzes an utterance against a fixed vocabulary snapshot. It is a
// pure function, split out so the state reconstructor can reuse it.
func Scan(query string, vocab *Vocabulary) Signals {
	queryLower := strings.ToLower(strings.TrimSpace(query))

	var sig Signals
	sig.AllOrganizations = vocab.MatchOrganizations(queryLower)
	if len(sig.AllOrganizations) > 0 {
		sig.Organization = sig.AllOrganizations[0]
	}
	sig.Category = vocab.MatchCategory(queryLower)

	sig.HasCount = containsAny(queryLower, countKeywords)
	sig.HasCompare = matchesAny(queryLower, comparePatterns)
	sig.HasRecommend = containsAny(queryLower, recommendKeywords)
	sig.HasExplainAll = matchesAny(queryLower, explainAllPatterns)
	sig.HasExplain = matchesAny(queryLower, explainPatterns) && !sig.HasExplainAll

	// LIST only fires when no higher-priority signal claims the phrase:
	// "compare all" is COMPARE, "best all" is RECOMMEND.
	sig.HasList = containsAny(queryLower, listKeywords) &&
		!sig.HasCount && !sig.HasCompare && !sig.HasRecommend

	sig.IsGreeting = isGreeting(queryLower)
	sig.HasFAQPattern = matchesAny(queryLower, faqPatterns)
	sig.NonProductTarget = containsAny(queryLower, nonProductTargets)
	sig.HasConjunction = containsAny(queryLower, conjunctions)
	sig.IsProcedural = containsAny(queryLower, proceduralPhrases)

	sig.VagueShape = vagueShape(queryLower, sig)
	return sig
}

func vagueShape(queryLower string, sig Signals) bool {
	if sig.HasFAQPattern {
		return false
	}
	for _, term := range vagueTerms {
		if queryLower == term {
			return true
		}
	}
	if len(strings.Fields(queryLower)) <= 2 &&
		containsAny(queryLower, vagueTerms) &&
		!sig.HasCount && !sig.HasList && !sig.HasExplain && !sig.HasRecommend {
		return true
	}
	return false
}

func isGreeting(queryLower string) bool {
	for _, g := range greetings {
		if queryLower == g || strings.HasPrefix(queryLower, g+" ") {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
