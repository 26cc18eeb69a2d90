// internal/models/product.go
package models

// Record is one product row from the store.
type Record struct {
	Name         string            `json:"name"`
	Organization string            `json:"organization"`
	Category     string            `json:"category"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Summary      string            `json:"summary,omitempty"`
}
