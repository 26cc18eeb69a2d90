// internal/models/conversation.go
package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation. Assistant turns produced by this
// service carry TurnMeta; turns imported from older transcripts may not.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	Meta *TurnMeta `json:"metadata,omitempty"`
}

// TurnMeta is the structured routing outcome persisted with an assistant
// turn. State reconstruction prefers this over parsing the turn text.
type TurnMeta struct {
	Intent             OpName   `json:"intent,omitempty"`
	Organization       string   `json:"organization,omitempty"`
	Category           string   `json:"category,omitempty"`
	ProductNames       []string `json:"product_names,omitempty"`
	Count              int      `json:"count,omitempty"`
	RecommendedProduct string   `json:"recommended_product,omitempty"`
	ComparedProducts   []string `json:"compared_products,omitempty"`
	RoutingPath        string   `json:"routing_path,omitempty"`
}
