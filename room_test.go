package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom() *Room {
	host := &Player{ID: "host-id", Name: "Alice"}
	return newRoom("ABCDEF", host, testBank())
}

func assertOneHost(t *testing.T, snap roomSnapshot) {
	t.Helper()

	hosts := 0
	for _, p := range snap.players {
		if p.IsHost {
			hosts++
			assert.Equal(t, snap.hostID, p.ID)
		}
	}
	assert.Equal(t, 1, hosts, "expected exactly one host")
}

func TestNewRoom(t *testing.T) {
	room := testRoom()
	snap := room.snapshot()

	assert.Equal(t, defaultCategory, snap.category)
	assert.Contains(t, defaultQuestions, snap.question)
	assert.Equal(t, "host-id", snap.hostID)
	require.Len(t, snap.players, 1)
	assert.True(t, snap.players[0].IsHost)
	assertOneHost(t, snap)
}

func TestJoinAndRejoin(t *testing.T) {
	room := testRoom()

	player, rejoined, snap := room.join("bob-id", "Bob")
	require.False(t, rejoined)
	assert.False(t, player.IsHost)
	require.Len(t, snap.players, 2)
	assert.Equal(t, "Bob", snap.players[1].Name)
	assertOneHost(t, snap)

	// Same id again is an idempotent rejoin, not a duplicate.
	player, rejoined, snap = room.join("bob-id", "Bob")
	assert.True(t, rejoined)
	assert.Equal(t, "bob-id", player.ID)
	assert.Len(t, snap.players, 2)
}

func TestLeaveHostSuccession(t *testing.T) {
	room := testRoom()
	room.join("bob-id", "Bob")
	room.join("carol-id", "Carol")

	// Host leaves: the earliest remaining joiner takes over.
	removed, empty, snap, err := room.leave("host-id")
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, "Alice", removed.Name)
	assert.Equal(t, "bob-id", snap.hostID)
	assertOneHost(t, snap)

	// A non-host leaving changes nothing about the host.
	_, empty, snap, err = room.leave("carol-id")
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, "bob-id", snap.hostID)
	assertOneHost(t, snap)
}

func TestLeaveLastPlayer(t *testing.T) {
	room := testRoom()

	removed, empty, snap, err := room.leave("host-id")
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Equal(t, "host-id", removed.ID)
	assert.Empty(t, snap.players)
	assert.Empty(t, snap.hostID)
}

func TestLeaveUnknownPlayer(t *testing.T) {
	room := testRoom()

	_, _, _, err := room.leave("nobody")
	assert.ErrorIs(t, err, errPlayerNotFound)
}

func TestRoomSelectCategory(t *testing.T) {
	tests := []struct {
		name         string
		category     string
		wantCategory string
	}{
		{"known category", "food", "food"},
		{"unknown category falls back", "pirates", defaultCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := testRoom()
			before := room.snapshot().question

			snap, err := room.selectCategory("host-id", tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCategory, snap.category)
			assert.Contains(t, room.bank.questionsFor(tt.wantCategory), snap.question)
			assert.NotEqual(t, before, snap.question, "question should advance")
		})
	}
}

func TestSelectCategoryUnknownPlayer(t *testing.T) {
	room := testRoom()

	_, err := room.selectCategory("nobody", "food")
	assert.ErrorIs(t, err, errPlayerNotFound)
}

func TestSelectNumber(t *testing.T) {
	room := testRoom()

	player, err := room.selectNumber("host-id", 0)
	require.NoError(t, err)
	require.NotNil(t, player.Answer)
	assert.Equal(t, 0, *player.Answer)

	_, err = room.selectNumber("nobody", 3)
	assert.ErrorIs(t, err, errPlayerNotFound)
}

func TestNextTurn(t *testing.T) {
	room := testRoom()
	room.join("bob-id", "Bob")
	room.selectNumber("host-id", 4)
	room.selectNumber("bob-id", 7)

	before := room.snapshot().question

	// Non-host is rejected and the question stays put.
	_, err := room.nextTurn("bob-id")
	assert.ErrorIs(t, err, errNotHost)
	assert.Equal(t, before, room.snapshot().question)

	// Host advances: answers cleared, fresh question.
	snap, err := room.nextTurn("host-id")
	require.NoError(t, err)
	assert.NotEqual(t, before, snap.question)
	for _, p := range snap.players {
		assert.Nil(t, p.Answer)
	}
}

func TestAdvanceQuestionAvoidsHistory(t *testing.T) {
	room := testRoom()
	_, err := room.selectCategory("host-id", "personal")
	require.NoError(t, err)

	seen := map[string]struct{}{room.snapshot().question: {}}
	for range 4 {
		snap, err := room.nextTurn("host-id")
		require.NoError(t, err)
		_, repeat := seen[snap.question]
		assert.False(t, repeat, "question %q repeated with pool far from exhausted", snap.question)
		seen[snap.question] = struct{}{}
	}
}

func TestAdvanceQuestionSurvivesExhaustedPool(t *testing.T) {
	room := testRoom()
	_, err := room.selectCategory("host-id", "work")
	require.NoError(t, err)

	// The work pool has 6 questions; keep advancing well past that and the
	// room must keep producing (possibly repeated) questions.
	for range 15 {
		snap, err := room.nextTurn("host-id")
		require.NoError(t, err)
		assert.Contains(t, questionPools["work"], snap.question)
	}
}
