package main

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBank() *QuestionBank {
	return newQuestionBank(rand.New(rand.NewPCG(1, 2)))
}

func TestQuestionsFor(t *testing.T) {
	bank := testBank()

	tests := []struct {
		name     string
		category string
		want     []string
	}{
		{"known category", "food", questionPools["food"]},
		{"default category", defaultCategory, defaultQuestions},
		{"unknown category", "pirates", defaultQuestions},
		{"empty category", "", defaultQuestions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bank.questionsFor(tt.category))
		})
	}
}

func TestValidCategory(t *testing.T) {
	bank := testBank()

	for category := range questionPools {
		assert.True(t, bank.validCategory(category))
	}
	assert.False(t, bank.validCategory(defaultCategory))
	assert.False(t, bank.validCategory("pirates"))
}

func TestPickRandomStaysInPool(t *testing.T) {
	bank := testBank()

	for range 50 {
		assert.Contains(t, questionPools["personal"], bank.pickRandom("personal", nil))
	}
	for range 50 {
		assert.Contains(t, defaultQuestions, bank.pickRandom("nonsense", nil))
	}
}

func TestPickRandomPrefersUnused(t *testing.T) {
	bank := testBank()

	// With every question but one excluded, the free one must still come up.
	excluding := make(map[string]struct{})
	for _, q := range defaultQuestions[1:] {
		excluding[q] = struct{}{}
	}

	seen := false
	for range 200 {
		if bank.pickRandom(defaultCategory, excluding) == defaultQuestions[0] {
			seen = true
			break
		}
	}
	assert.True(t, seen, "expected the only unused question to be drawn")
}

func TestPickRandomToleratesExhaustion(t *testing.T) {
	bank := testBank()

	// Excluding the entire pool must still yield a (duplicate) question
	// rather than failing.
	excluding := make(map[string]struct{})
	for _, q := range questionPools["work"] {
		excluding[q] = struct{}{}
	}

	for range 20 {
		q := bank.pickRandom("work", excluding)
		require.NotEmpty(t, q)
		assert.Contains(t, questionPools["work"], q)
	}
}
