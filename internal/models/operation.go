// internal/models/operation.go
package models

// OpName identifies one routable operation. The set is closed: routing code
// matches on these constants only, never on free-form strings.
type OpName string

const (
	OpCount      OpName = "COUNT"
	OpList       OpName = "LIST"
	OpExplain    OpName = "EXPLAIN"
	OpExplainAll OpName = "EXPLAIN_ALL"
	OpCompare    OpName = "COMPARE"
	OpRecommend  OpName = "RECOMMEND"
	OpFAQ        OpName = "FAQ"
	OpClarify    OpName = "CLARIFY"
	OpRefuse     OpName = "REFUSE"
	OpGreeting   OpName = "GREETING"
	OpFallback   OpName = "FALLBACK"
)

// Operation is one resolved operation with the router's confidence in it.
type Operation struct {
	Name       OpName  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// IsTerminal reports whether an operation must be the only entry in a
// routing result. Terminal operations stop the pipeline before evidence
// gathering and never share a result with another operation.
func (n OpName) IsTerminal() bool {
	return n == OpClarify || n == OpRefuse || n == OpGreeting
}

// IsAccuracyCritical reports whether the operation's answer must be computed
// deterministically from the product store rather than generated.
func (n OpName) IsAccuracyCritical() bool {
	return n == OpCount || n == OpList || n == OpExplainAll
}

// Valid reports whether n is a member of the closed operation set.
func (n OpName) Valid() bool {
	switch n {
	case OpCount, OpList, OpExplain, OpExplainAll, OpCompare, OpRecommend,
		OpFAQ, OpClarify, OpRefuse, OpGreeting, OpFallback:
		return true
	}
	return false
}
