package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

func (ctl *Controller) handleMove(sid domain.SessionID, data []byte) {
	type movePayload struct {
		Type string   `json:"type"`
		X    *float64 `json:"x"`
		Y    *float64 `json:"y"`
	}
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil || p.X == nil || p.Y == nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad move payload, dropped")
		return
	}
	ctl.Room.Move(sid, *p.X, *p.Y)
}

func (ctl *Controller) handleHeartbeat(sid domain.SessionID, data []byte) {
	type heartbeatPayload struct {
		Type      string   `json:"type"`
		X         *float64 `json:"x"`
		Y         *float64 `json:"y"`
		Timestamp float64  `json:"timestamp"`
		// Subtype (walk/idle/...) is client-side detail we carry nowhere.
		Kind string `json:"kind,omitempty"`
	}
	var p heartbeatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.X == nil || p.Y == nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad heartbeat payload, dropped")
		return
	}
	ctl.Room.Heartbeat(sid, *p.X, *p.Y)
}
