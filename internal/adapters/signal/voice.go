package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

func (ctl *Controller) handleGetToken(ctx context.Context, sid domain.SessionID, data []byte) {
	type tokenPayload struct {
		Type     string `json:"type"`
		RoomName string `json:"roomName"`
	}
	var p tokenPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomName == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad get_livekit_token payload, dropped")
		return
	}
	// SFU round-trips must not stall this connection's read loop.
	go ctl.Room.IssueVoiceToken(ctx, sid, p.RoomName)
}
