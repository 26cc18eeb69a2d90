// internal/models/routing.go
package models

// ScopeResult is the organization/category scope extracted from a query,
// after any merge with conversation history.
type ScopeResult struct {
	Organization     string   `json:"organization,omitempty"`
	AllOrganizations []string `json:"all_organizations,omitempty"`
	Category         string   `json:"category,omitempty"`
	Strength         float64  `json:"strength"`
}

// Valid reports whether the scope names at least one dimension.
func (s ScopeResult) Valid() bool {
	return s.Organization != "" || s.Category != ""
}

// ScopeStrength computes the canonical strength for a scope: 1.0 when both
// dimensions are present, 0.7 when exactly one is, 0.0 otherwise.
func ScopeStrength(organization, category string) float64 {
	switch {
	case organization != "" && category != "":
		return 1.0
	case organization != "" || category != "":
		return 0.7
	default:
		return 0.0
	}
}

// Evidence is the merged outcome of the parallel evidence probes.
type Evidence struct {
	RecordCount     int     `json:"record_count"`
	SimilarityScore float64 `json:"similarity_score"`
}

// DBStrength reports whether the store probe found any matching records.
func (e Evidence) DBStrength() bool {
	return e.RecordCount > 0
}

// FAQMatch is the nearest FAQ entry found by the index probe.
type FAQMatch struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Similarity float64 `json:"similarity"`
}

// RoutingResult is the full outcome of one routing pass over a query.
type RoutingResult struct {
	Operations     []Operation `json:"operations"`
	Scope          ScopeResult `json:"scope"`
	Evidence       *Evidence   `json:"evidence,omitempty"`
	RoutingPath    string      `json:"routing_path"`
	RewrittenQuery string      `json:"rewritten_query,omitempty"`
	ProductName    string      `json:"product_name,omitempty"`
	ClarifyMessage string      `json:"clarify_message,omitempty"`

	FAQMatch *FAQMatch `json:"-"`
}

// Primary returns the first operation, or OpFallback when the result
// carries none.
func (r RoutingResult) Primary() Operation {
	if len(r.Operations) == 0 {
		return Operation{Name: OpFallback, Confidence: 0}
	}
	return r.Operations[0]
}
