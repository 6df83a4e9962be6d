package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// Outbound events. Every event carries a "type" tag; field names follow the
// client protocol (camelCase ids).

type PlayerPosition struct {
	SessionID domain.SessionID `json:"sessionId"`
	Name      string           `json:"name"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
}

type minimapPositionsResponse struct {
	Type      string           `json:"type"`
	Positions []PlayerPosition `json:"positions"`
}

type teamRoomEntered struct {
	Type    string           `json:"type"`
	Team    domain.TeamID    `json:"teamId"`
	Name    string           `json:"name"`
	X       float64          `json:"x"`
	Y       float64          `json:"y"`
	Width   float64          `json:"width"`
	Height  float64          `json:"height"`
	Members []PlayerPosition `json:"members"`
}

type teamRoomEvent struct {
	Type string        `json:"type"`
	Team domain.TeamID `json:"teamId"`
}

type teamRoomExited struct {
	Type string `json:"type"`
}

type playerTeamRoomEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Name      string           `json:"name"`
	Team      domain.TeamID    `json:"teamId"`
}

type VoicePeer struct {
	SessionID domain.SessionID `json:"sessionId"`
	Name      string           `json:"name"`
}

type voiceChatPeersList struct {
	Type  string      `json:"type"`
	Peers []VoicePeer `json:"peers"`
}

type voiceChatPeerJoined struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Name      string           `json:"name"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
}

type voiceChatPeerLeft struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
}

type livekitToken struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	URL      string `json:"url"`
	RoomName string `json:"roomName"`
}

type livekitError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// send marshals and hands the frame to the connection; a full send buffer
// drops the frame rather than blocking the room.
func (r *Room) send(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.room").Msg("event marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Debug().Err(err).Str("module", "app.room").Msg("event dropped")
	}
}

// sendToLocked delivers to a session if it still has a live connection.
// Caller holds the room mutex.
func (r *Room) sendToLocked(sid domain.SessionID, v any) {
	if conn, ok := r.conns[sid]; ok {
		r.send(conn, v)
	}
}
