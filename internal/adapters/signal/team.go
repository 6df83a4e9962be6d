package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

func (ctl *Controller) handleEnterTeamRoom(sid domain.SessionID, data []byte) {
	type enterPayload struct {
		Type   string `json:"type"`
		TeamID string `json:"teamId"`
	}
	var p enterPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TeamID == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad enter_team_room payload, dropped")
		return
	}
	ctl.Room.EnterTeamSpace(sid, domain.TeamID(p.TeamID))
}
