package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid domain.SessionID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleMessage(ctx, sid, c, data)
		}
	}
}

// handleMessage dispatches on the message type. Every kind parses through
// its own strict schema before any state mutation; unparseable messages are
// dropped without touching the room.
func (ctl *Controller) handleMessage(ctx context.Context, sid domain.SessionID, c *wsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json, dropped")
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(c)
	case "move":
		ctl.handleMove(sid, data)
	case "position_heartbeat":
		ctl.handleHeartbeat(sid, data)
	case "minimap_positions":
		ctl.Room.MinimapPositions(sid)
	case "webrtc_offer", "webrtc_answer", "webrtc_ice_candidate":
		ctl.handleWebRTC(sid, env.Type, data)
	case "voice_chat_join":
		ctl.Room.VoiceChatJoin(sid)
	case "voice_chat_leave":
		ctl.Room.VoiceChatLeave(sid)
	case "get_livekit_token":
		ctl.handleGetToken(ctx, sid, data)
	case "enter_team_room":
		ctl.handleEnterTeamRoom(sid, data)
	case "exit_team_room":
		ctl.Room.ExitTeamSpace(sid)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown message")
	}
}

func (ctl *Controller) sendJSON(c *wsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}
