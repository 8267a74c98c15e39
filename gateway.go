// Icebreaker session gateway
//
// Clients reserve a room over HTTP (api.go), then connect to /ws and drive
// the game through JSON events. Every event is validated, applied to the
// room fetched from the registry, and answered with full room-state
// snapshots broadcast to the room's members.
//
// Protocol:
// - Inbound: "join", "leave", "selectCategory", "selectNumber", "nextTurn"
// - Outbound: "roomUpdate", "playerJoined", "playerLeft", "categorySelected",
//   "playerAnswered", "newQuestion", "error"
// - Errors (validation, unknown room/player, non-host nextTurn) go only to
//   the offending client and never disturb the rest of the room
// - A dropped socket becomes an implicit leave after the player-timeout
//   grace period, unless the same player id reconnects first

package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// ClientMessage is the single inbound envelope. Number is a pointer so a
// zero answer still counts as present.
type ClientMessage struct {
	Type       string `json:"type"`
	RoomCode   string `json:"roomCode,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Category   string `json:"category,omitempty"`
	Number     *int   `json:"number,omitempty"`
}

// RoomUpdateMessage is the full room snapshot, sent to every member after a
// roster change.
type RoomUpdateMessage struct {
	Type            string   `json:"type"` // "roomUpdate"
	Players         []Player `json:"players"`
	CurrentQuestion string   `json:"currentQuestion"`
	HostID          string   `json:"hostId"`
	Category        string   `json:"category"`
}

type PlayerJoinedMessage struct {
	Type       string `json:"type"` // "playerJoined"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	IsHost     bool   `json:"isHost"`
}

type PlayerLeftMessage struct {
	Type       string `json:"type"` // "playerLeft"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type CategorySelectedMessage struct {
	Type            string `json:"type"` // "categorySelected"
	Category        string `json:"category"`
	CurrentQuestion string `json:"currentQuestion"`
}

type PlayerAnsweredMessage struct {
	Type       string `json:"type"` // "playerAnswered"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Answer     int    `json:"answer"`
}

type NewQuestionMessage struct {
	Type     string   `json:"type"` // "newQuestion"
	Question string   `json:"question"`
	Players  []Player `json:"players"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// Client is one websocket connection. roomCode, playerID, and closed are
// guarded by the gateway mutex; conn and the pumps belong to the connection
// goroutines.
type Client struct {
	conn *websocket.Conn
	send chan any

	roomCode string
	playerID string
	closed   bool
}

// Gateway fans events into rooms and room snapshots back out to members.
// It holds no room state of its own: every event re-fetches the room from
// the registry, and per-room serialization comes from the room's own mutex.
type Gateway struct {
	cfg      *Config
	registry *Registry

	mu      sync.Mutex
	members map[string]map[*Client]bool
}

func newGateway(cfg *Config, registry *Registry) *Gateway {
	return &Gateway{
		cfg:      cfg,
		registry: registry,
		members:  make(map[string]map[*Client]bool),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (g *Gateway) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(g.cfg, "ERROR: websocket upgrade for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		go client.writePump()
		client.readPump(g)
	}
}

func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.disconnect(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join":
			g.handleJoin(c, msg)
		case "leave":
			g.handleLeave(c, msg)
		case "selectCategory":
			g.handleSelectCategory(c, msg)
		case "selectNumber":
			g.handleSelectNumber(c, msg)
		case "nextTurn":
			g.handleNextTurn(c, msg)
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (g *Gateway) handleJoin(c *Client, msg ClientMessage) {
	if msg.RoomCode == "" || msg.PlayerID == "" || msg.PlayerName == "" {
		g.sendError(c, "Invalid data provided")
		return
	}

	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		g.sendError(c, "Room not found")
		return
	}

	player, rejoined, snap := room.join(msg.PlayerID, msg.PlayerName)

	g.mu.Lock()
	if g.members[msg.RoomCode] == nil {
		g.members[msg.RoomCode] = make(map[*Client]bool)
	}
	g.members[msg.RoomCode][c] = true
	c.roomCode = msg.RoomCode
	c.playerID = msg.PlayerID
	g.mu.Unlock()

	g.broadcast(msg.RoomCode, snapshotUpdate(snap))
	g.broadcastExcept(msg.RoomCode, c, PlayerJoinedMessage{
		Type:       "playerJoined",
		PlayerID:   player.ID,
		PlayerName: player.Name,
		IsHost:     player.IsHost,
	})

	if rejoined {
		logf(g.cfg, "ROOMS: Player %q rejoined %s", player.Name, msg.RoomCode)
	} else {
		logf(g.cfg, "ROOMS: Player %q joined %s", player.Name, msg.RoomCode)
	}
}

func (g *Gateway) handleLeave(c *Client, msg ClientMessage) {
	if msg.RoomCode == "" || msg.PlayerID == "" {
		g.sendError(c, "Invalid data provided")
		return
	}

	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		g.sendError(c, "Room not found")
		return
	}

	removed, empty, snap, err := room.leave(msg.PlayerID)
	if err != nil {
		g.sendError(c, errorText(err))
		return
	}

	// Detach the leaver before broadcasting, so only remaining members see
	// the updated roster. Clearing the identity also cancels the implicit
	// leave on disconnect.
	g.mu.Lock()
	if clients, ok := g.members[msg.RoomCode]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(g.members, msg.RoomCode)
		}
	}
	c.roomCode = ""
	c.playerID = ""
	g.mu.Unlock()

	logf(g.cfg, "ROOMS: Player %q left %s", removed.Name, msg.RoomCode)

	if empty {
		g.registry.destroy(msg.RoomCode)
		g.closeRoom(msg.RoomCode)
		logf(g.cfg, "ROOMS: Room %s closed (no players left)", msg.RoomCode)
		return
	}

	g.broadcast(msg.RoomCode, snapshotUpdate(snap))
	g.broadcast(msg.RoomCode, PlayerLeftMessage{
		Type:       "playerLeft",
		PlayerID:   removed.ID,
		PlayerName: removed.Name,
	})
}

func (g *Gateway) handleSelectCategory(c *Client, msg ClientMessage) {
	if msg.RoomCode == "" || msg.PlayerID == "" || msg.Category == "" {
		g.sendError(c, "Invalid data provided")
		return
	}

	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		g.sendError(c, "Room not found")
		return
	}

	snap, err := room.selectCategory(msg.PlayerID, msg.Category)
	if err != nil {
		g.sendError(c, errorText(err))
		return
	}

	// The broadcast carries the room's category after any fallback, not the
	// string the client asked for.
	g.broadcast(msg.RoomCode, CategorySelectedMessage{
		Type:            "categorySelected",
		Category:        snap.category,
		CurrentQuestion: snap.question,
	})
}

func (g *Gateway) handleSelectNumber(c *Client, msg ClientMessage) {
	if msg.RoomCode == "" || msg.PlayerID == "" || msg.Number == nil {
		g.sendError(c, "Invalid data provided")
		return
	}

	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		g.sendError(c, "Room not found")
		return
	}

	player, err := room.selectNumber(msg.PlayerID, *msg.Number)
	if err != nil {
		g.sendError(c, errorText(err))
		return
	}

	g.broadcast(msg.RoomCode, PlayerAnsweredMessage{
		Type:       "playerAnswered",
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Answer:     *msg.Number,
	})
}

func (g *Gateway) handleNextTurn(c *Client, msg ClientMessage) {
	if msg.RoomCode == "" || msg.PlayerID == "" {
		g.sendError(c, "Invalid data provided")
		return
	}

	room, ok := g.registry.get(msg.RoomCode)
	if !ok {
		g.sendError(c, "Room not found")
		return
	}

	snap, err := room.nextTurn(msg.PlayerID)
	if err != nil {
		g.sendError(c, errorText(err))
		return
	}

	g.broadcast(msg.RoomCode, NewQuestionMessage{
		Type:     "newQuestion",
		Question: snap.question,
		Players:  snap.players,
	})
}

// disconnect detaches a dropped client and, if it had joined a room,
// schedules an implicit leave after the grace period.
func (g *Gateway) disconnect(c *Client) {
	g.mu.Lock()
	code, playerID := c.roomCode, c.playerID
	if code != "" {
		if clients, ok := g.members[code]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(g.members, code)
			}
		}
	}
	g.closeSendLocked(c)
	g.mu.Unlock()

	if code != "" && playerID != "" {
		logf(g.cfg, "ROOMS: Player %s disconnected from %s", playerID, code)
		go g.scheduleRemoval(code, playerID, g.cfg.playerTimeout)
	}
}

// scheduleRemoval waits for d, and if no client with this player id has
// reconnected to the room, removes the player with full leave semantics.
func (g *Gateway) scheduleRemoval(code, playerID string, d time.Duration) {
	time.Sleep(d)

	g.mu.Lock()
	for client := range g.members[code] {
		if client.playerID == playerID {
			g.mu.Unlock()
			return
		}
	}
	g.mu.Unlock()

	room, ok := g.registry.get(code)
	if !ok {
		return
	}

	removed, empty, snap, err := room.leave(playerID)
	if err != nil {
		return
	}

	logf(g.cfg, "ROOMS: Player %q timed out of %s", removed.Name, code)

	if empty {
		g.registry.destroy(code)
		g.closeRoom(code)
		logf(g.cfg, "ROOMS: Room %s closed (no players left)", code)
		return
	}

	g.broadcast(code, snapshotUpdate(snap))
	g.broadcast(code, PlayerLeftMessage{
		Type:       "playerLeft",
		PlayerID:   removed.ID,
		PlayerName: removed.Name,
	})
}

// reaperLoop periodically destroys rooms that have been idle longer than the
// session timeout, disconnecting any lingering clients.
func (g *Gateway) reaperLoop() {
	ticker := time.NewTicker(g.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-g.cfg.sessionTimeout)

		for code, room := range g.registry.active() {
			if room.idleSince().Before(cutoff) {
				g.registry.destroy(code)
				g.closeRoom(code)
				logf(g.cfg, "ROOMS: Reaped idle room %s", code)
			}
		}
	}
}

func (g *Gateway) broadcast(code string, msg any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for client := range g.members[code] {
		select {
		case client.send <- msg:
		default:
			delete(g.members[code], client)
			g.closeSendLocked(client)
		}
	}
}

func (g *Gateway) broadcastExcept(code string, sender *Client, msg any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for client := range g.members[code] {
		if client == sender {
			continue
		}
		select {
		case client.send <- msg:
		default:
			delete(g.members[code], client)
			g.closeSendLocked(client)
		}
	}
}

// sendError reports a failure to the originating client only.
func (g *Gateway) sendError(c *Client, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- ErrorMessage{Type: "error", Message: message}:
	default:
	}
}

func (g *Gateway) closeRoom(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for client := range g.members[code] {
		g.closeSendLocked(client)
		if client.conn != nil {
			_ = client.conn.Close()
		}
	}
	delete(g.members, code)
}

func (g *Gateway) closeSendLocked(c *Client) {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func snapshotUpdate(snap roomSnapshot) RoomUpdateMessage {
	return RoomUpdateMessage{
		Type:            "roomUpdate",
		Players:         snap.players,
		CurrentQuestion: snap.question,
		HostID:          snap.hostID,
		Category:        snap.category,
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, errPlayerNotFound):
		return "Player not found in room"
	case errors.Is(err, errNotHost):
		return "Only the host can advance to the next turn"
	}
	return err.Error()
}
