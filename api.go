package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Room reservation endpoints. Creating or joining here only reserves a seat;
// the player becomes a room member once it sends the realtime join event
// with the returned player id.

type reservationRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type reservationResponse struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	IsHost   bool   `json:"isHost"`
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func serveCreateRoom(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req reservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerName == "" {
			writeJSON(cfg, w, http.StatusBadRequest, apiError{Error: "Player name is required"})
			return
		}

		code, playerID := reg.createRoom(req.PlayerName)

		logf(cfg, "ROOMS: Created room %s for %q (%s) in %s",
			code,
			req.PlayerName,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)

		writeJSON(cfg, w, http.StatusOK, reservationResponse{
			RoomCode: code,
			PlayerID: playerID,
			IsHost:   true,
		})
	}
}

func serveJoinRoom(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req reservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomCode == "" || req.PlayerName == "" {
			writeJSON(cfg, w, http.StatusBadRequest, apiError{Error: "Room code and player name are required"})
			return
		}

		if !reg.joinRoom(req.RoomCode) {
			writeJSON(cfg, w, http.StatusNotFound, apiError{Error: "Room not found"})
			return
		}

		logf(cfg, "ROOMS: Reserved seat in %s for %q (%s)", req.RoomCode, req.PlayerName, realIP(r))

		writeJSON(cfg, w, http.StatusOK, reservationResponse{
			RoomCode: req.RoomCode,
			PlayerID: uuid.NewString(),
			IsHost:   false,
		})
	}
}

// serveRoomQR generates a PNG QR code for a room's join URL, so a host can
// share the room code across the table.
func serveRoomQR(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if _, ok := reg.get(code); !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /join/:code/qr; strip trailing "/qr" to get the join URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
