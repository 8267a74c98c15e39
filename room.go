package main

import (
	"errors"
	"sync"
	"time"
)

// Player is a single room member. Answer is nil until the player selects a
// number, and is cleared again on every new question.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
	Answer *int   `json:"answer"`
}

var (
	errPlayerNotFound = errors.New("player not found in room")
	errNotHost        = errors.New("only the host can advance to the next turn")
)

// Room holds the state of one game: an ordered roster (join order, which
// also decides host succession), the current category and question, and the
// set of questions already shown. All mutations go through the event-grained
// methods below, which serialize on the room's mutex; the *Locked helpers
// assume it is held.
type Room struct {
	code string
	bank *QuestionBank

	mu         sync.Mutex
	players    []*Player
	host       *Player
	category   string
	question   string
	history    map[string]struct{}
	lastActive time.Time
}

// roomSnapshot is the broadcast view of a room, copied out under the room
// lock so payloads never drift from server truth.
type roomSnapshot struct {
	players  []Player
	hostID   string
	category string
	question string
}

func newRoom(code string, host *Player, bank *QuestionBank) *Room {
	host.IsHost = true

	r := &Room{
		code:       code,
		bank:       bank,
		players:    []*Player{host},
		host:       host,
		category:   defaultCategory,
		history:    make(map[string]struct{}),
		lastActive: time.Now(),
	}

	r.question = bank.pickRandom(defaultCategory, nil)
	r.history[r.question] = struct{}{}

	return r
}

// join registers the player, or treats a known id as an idempotent rejoin.
// The first player ever to join a room without a host becomes host.
func (r *Room) join(id, name string) (player Player, rejoined bool, snap roomSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if existing := r.getPlayerLocked(id); existing != nil {
		return *existing, true, r.snapshotLocked()
	}

	p := &Player{
		ID:     id,
		Name:   name,
		IsHost: len(r.players) == 0,
	}
	r.players = append(r.players, p)
	if p.IsHost {
		r.host = p
	}

	return *p, false, r.snapshotLocked()
}

// leave removes the player, promoting the earliest remaining joiner to host
// if the host left. empty reports whether the roster is now empty, in which
// case the room is terminal and must be destroyed by the caller.
func (r *Room) leave(id string) (removed Player, empty bool, snap roomSnapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	p := r.getPlayerLocked(id)
	if p == nil {
		return Player{}, false, roomSnapshot{}, errPlayerNotFound
	}

	r.removePlayerLocked(id)

	return *p, len(r.players) == 0, r.snapshotLocked(), nil
}

// selectCategory switches the category (unknown values silently reset to the
// default) and advances to a fresh question from the new pool.
func (r *Room) selectCategory(id, category string) (roomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if r.getPlayerLocked(id) == nil {
		return roomSnapshot{}, errPlayerNotFound
	}

	r.setCategoryLocked(category)
	r.advanceQuestionLocked()

	return r.snapshotLocked(), nil
}

// selectNumber records the player's answer for the current question. Zero is
// a valid answer.
func (r *Room) selectNumber(id string, number int) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	p := r.getPlayerLocked(id)
	if p == nil {
		return Player{}, errPlayerNotFound
	}

	n := number
	p.Answer = &n

	return *p, nil
}

// nextTurn clears every answer and advances the question. Host only.
func (r *Room) nextTurn(id string) (roomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	p := r.getPlayerLocked(id)
	if p == nil {
		return roomSnapshot{}, errPlayerNotFound
	}
	if !p.IsHost {
		return roomSnapshot{}, errNotHost
	}

	for _, player := range r.players {
		player.Answer = nil
	}
	r.advanceQuestionLocked()

	return r.snapshotLocked(), nil
}

func (r *Room) getPlayer(id string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.getPlayerLocked(id)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

func (r *Room) snapshot() roomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastActive
}

func (r *Room) getPlayerLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayerLocked(id string) {
	wasHost := false

	dst := r.players[:0]
	for _, p := range r.players {
		if p.ID == id {
			wasHost = p.IsHost
			continue
		}
		dst = append(dst, p)
	}
	r.players = dst

	if len(r.players) == 0 {
		r.host = nil
		return
	}

	// Host succession: the earliest remaining joiner takes over.
	if wasHost {
		r.players[0].IsHost = true
		r.host = r.players[0]
	}
}

func (r *Room) setCategoryLocked(category string) {
	if r.bank.validCategory(category) {
		r.category = category
	} else {
		r.category = defaultCategory
	}
}

func (r *Room) advanceQuestionLocked() string {
	r.question = r.bank.pickRandom(r.category, r.history)
	r.history[r.question] = struct{}{}

	return r.question
}

func (r *Room) snapshotLocked() roomSnapshot {
	snap := roomSnapshot{
		players:  make([]Player, 0, len(r.players)),
		category: r.category,
		question: r.question,
	}
	for _, p := range r.players {
		snap.players = append(snap.players, *p)
	}
	if r.host != nil {
		snap.hostID = r.host.ID
	}

	return snap
}
