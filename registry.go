package main

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/google/uuid"
)

const (
	// Room code alphabet, excluding visually confusable characters (0/O/1/I).
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Registry is the process-wide map of active rooms, keyed by room code. It
// exclusively owns all Room instances; entries are removed as soon as a room
// becomes empty.
type Registry struct {
	bank   *QuestionBank
	random io.Reader

	mu    sync.Mutex
	rooms map[string]*Room
}

func newRegistry(bank *QuestionBank, random io.Reader) *Registry {
	if random == nil {
		random = rand.Reader
	}
	return &Registry{
		bank:   bank,
		random: random,
		rooms:  make(map[string]*Room),
	}
}

// newRoomCodeLocked generates a random room code, retrying until it doesn't
// collide with an active room. The codespace is 32^6, so collisions are
// vanishingly rare, but the check is mandatory for correctness.
func (reg *Registry) newRoomCodeLocked() string {
	for {
		buf := make([]byte, codeLength)
		if _, err := io.ReadFull(reg.random, buf); err != nil {
			panic("room code randomness failure: " + err.Error())
		}

		out := make([]byte, codeLength)
		for i := range out {
			out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(out)

		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

// createRoom reserves a fresh room with hostName as its host and returns the
// room code and the host's player id.
func (reg *Registry) createRoom(hostName string) (code string, playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code = reg.newRoomCodeLocked()
	playerID = uuid.NewString()

	host := &Player{
		ID:     playerID,
		Name:   hostName,
		IsHost: true,
	}
	reg.rooms[code] = newRoom(code, host, reg.bank)

	return code, playerID
}

// joinRoom only checks that the code refers to an active room; the joining
// player is registered later, by the realtime join event (two-phase join).
func (reg *Registry) joinRoom(code string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	_, exists := reg.rooms[code]
	return exists
}

func (reg *Registry) get(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[code]
	return room, exists
}

// destroy removes the room mapping. Idempotent.
func (reg *Registry) destroy(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, code)
}

// active returns a point-in-time copy of the room map, for the idle reaper.
func (reg *Registry) active() map[string]*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := make(map[string]*Room, len(reg.rooms))
	for code, room := range reg.rooms {
		rooms[code] = room
	}
	return rooms
}
