// Package state rebuilds conversational context from a turn history. The
// router itself is stateless: every request carries its history and this
// package derives the scope and active intent fresh each time, so replaying
// the same history always yields the same state.
package state

import (
	"banking-router/internal/models"
	"banking-router/internal/router/extract"
)

// ContextState is everything the follow-up router and scope merge need to
// know about the conversation so far.
type ContextState struct {
	Organization       string
	Category           string
	ActiveIntent       models.OpName
	Products           []string
	ProductCount       int
	RecommendedProduct string
	ComparedProducts   []string
}

// HasScope reports whether any scope was carried over from earlier turns.
func (s ContextState) HasScope() bool {
	return s.Organization != "" || s.Category != ""
}

// Reconstruct derives the conversation state from history. User turns are
// scanned newest-first for the most recent organization and category
// mention; assistant turns are scanned newest-first for the latest
// answerable intent, preferring structured turn metadata and falling back
// to parsing the rendered answer text of older clients.
func Reconstruct(history []models.Turn, vocab *extract.Vocabulary) ContextState {
	var st ContextState

	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != models.RoleUser {
			continue
		}
		sig := extract.Scan(turn.Text, vocab)
		if st.Organization == "" && sig.Organization != "" {
			st.Organization = sig.Organization
		}
		if st.Category == "" && sig.Category != "" {
			st.Category = sig.Category
		}
		if st.Organization != "" && st.Category != "" {
			break
		}
	}

	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != models.RoleAssistant {
			continue
		}
		if applyMeta(&st, turn.Meta) || applyLegacyText(&st, turn.Text) {
			break
		}
	}

	return st
}

// applyMeta fills intent state from structured turn metadata. It returns
// true when the turn established an answerable intent.
func applyMeta(st *ContextState, meta *models.TurnMeta) bool {
	if meta == nil {
		return false
	}

	switch meta.Intent {
	case models.OpCount:
		// A count answer has a definite intent even with no product list.
		st.ActiveIntent = models.OpCount
		st.Products = meta.ProductNames
		st.ProductCount = meta.Count
		if st.ProductCount == 0 {
			st.ProductCount = len(meta.ProductNames)
		}
	case models.OpList, models.OpExplain:
		if len(meta.ProductNames) == 0 {
			return false
		}
		st.ActiveIntent = meta.Intent
		st.Products = meta.ProductNames
		st.ProductCount = meta.Count
		if st.ProductCount == 0 {
			st.ProductCount = len(meta.ProductNames)
		}
	case models.OpRecommend:
		if meta.RecommendedProduct == "" {
			return false
		}
		st.ActiveIntent = models.OpRecommend
		st.RecommendedProduct = meta.RecommendedProduct
	case models.OpCompare:
		if len(meta.ComparedProducts) == 0 {
			return false
		}
		st.ActiveIntent = models.OpCompare
		st.ComparedProducts = meta.ComparedProducts
	default:
		return false
	}

	if st.Organization == "" && meta.Organization != "" {
		st.Organization = meta.Organization
	}
	if st.Category == "" && meta.Category != "" {
		st.Category = meta.Category
	}
	return true
}
