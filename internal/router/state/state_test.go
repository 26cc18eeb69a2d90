package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"banking-router/internal/models"
	"banking-router/internal/router/extract"
)

func testVocab() *extract.Vocabulary {
	return extract.NewVocabulary(
		[]string{"SBI", "HDFC"},
		[]string{"Credit Card", "Loan"},
	)
}

func user(text string) models.Turn {
	return models.Turn{Role: models.RoleUser, Text: text}
}

func assistant(text string, meta *models.TurnMeta) models.Turn {
	return models.Turn{Role: models.RoleAssistant, Text: text, Meta: meta}
}

func TestReconstructScopeFromUserTurns(t *testing.T) {
	history := []models.Turn{
		user("tell me about HDFC loans"),
		assistant("Sure, which one?", nil),
		user("how many SBI credit cards"),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, "SBI", st.Organization, "latest mention wins")
	assert.Equal(t, "Credit Card", st.Category)
}

func TestReconstructScopeFillsFromOlderTurns(t *testing.T) {
	history := []models.Turn{
		user("show me SBI products"),
		assistant("Here you go", nil),
		user("what about loans"),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, "SBI", st.Organization, "organization carried from an earlier turn")
	assert.Equal(t, "Loan", st.Category)
}

func TestReconstructFromListMetadata(t *testing.T) {
	history := []models.Turn{
		user("list SBI credit cards"),
		assistant("rendered list", &models.TurnMeta{
			Intent:       models.OpList,
			Organization: "SBI",
			Category:     "Credit Card",
			ProductNames: []string{"Prime Card", "Elite Card"},
			Count:        2,
		}),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpList, st.ActiveIntent)
	assert.Equal(t, []string{"Prime Card", "Elite Card"}, st.Products)
	assert.Equal(t, 2, st.ProductCount)
}

func TestReconstructFromRecommendMetadata(t *testing.T) {
	history := []models.Turn{
		user("which SBI card should i get"),
		assistant("rendered answer", &models.TurnMeta{
			Intent:             models.OpRecommend,
			RecommendedProduct: "Elite Card",
		}),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpRecommend, st.ActiveIntent)
	assert.Equal(t, "Elite Card", st.RecommendedProduct)
}

func TestReconstructNewestAnswerableIntentWins(t *testing.T) {
	history := []models.Turn{
		user("list SBI credit cards"),
		assistant("rendered", &models.TurnMeta{
			Intent:       models.OpList,
			ProductNames: []string{"Prime Card"},
			Count:        1,
		}),
		user("hello"),
		assistant("Hello! How can I help?", &models.TurnMeta{Intent: models.OpGreeting}),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpList, st.ActiveIntent, "greeting turn carries no state, older list survives")
	assert.Equal(t, []string{"Prime Card"}, st.Products)
}

func TestReconstructLegacyListText(t *testing.T) {
	text := "📋 **SBI Credit Cards** (3 total):\n" +
		"1. **Prime Card** - everyday rewards\n" +
		"2. **Elite Card** - travel benefits\n" +
		"3. **Student Card** - no annual fee\n"
	history := []models.Turn{
		user("list SBI credit cards"),
		assistant(text, nil),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpList, st.ActiveIntent)
	assert.Equal(t, []string{"Prime Card", "Elite Card", "Student Card"}, st.Products)
	assert.Equal(t, 3, st.ProductCount)
}

func TestReconstructLegacyCountText(t *testing.T) {
	history := []models.Turn{
		user("how many SBI credit cards"),
		assistant("There are 5 SBI credit cards available.", nil),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpCount, st.ActiveIntent)
	assert.Equal(t, 5, st.ProductCount)
}

func TestReconstructLegacyCompareText(t *testing.T) {
	history := []models.Turn{
		user("compare prime card vs elite card"),
		assistant("Here is a comparison of **Prime Card** and **Elite Card**: ...", nil),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpCompare, st.ActiveIntent)
	assert.Equal(t, []string{"Prime Card", "Elite Card"}, st.ComparedProducts)
}

func TestReconstructLegacyRecommendText(t *testing.T) {
	history := []models.Turn{
		user("which card is best for travel"),
		assistant("I recommend the **Elite Card** for frequent travelers.", nil),
	}

	st := Reconstruct(history, testVocab())
	assert.Equal(t, models.OpRecommend, st.ActiveIntent)
	assert.Equal(t, "Elite Card", st.RecommendedProduct)
}

func TestReconstructIsIdempotent(t *testing.T) {
	history := []models.Turn{
		user("list SBI credit cards"),
		assistant("rendered", &models.TurnMeta{
			Intent:       models.OpList,
			Organization: "SBI",
			Category:     "Credit Card",
			ProductNames: []string{"Prime Card", "Elite Card"},
			Count:        2,
		}),
	}

	first := Reconstruct(history, testVocab())
	second := Reconstruct(history, testVocab())
	assert.Equal(t, first, second)
}

func TestReconstructEmptyHistory(t *testing.T) {
	st := Reconstruct(nil, testVocab())
	assert.False(t, st.HasScope())
	assert.Empty(t, st.ActiveIntent)
}
