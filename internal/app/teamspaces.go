package app

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

const (
	spaceColumns = 8
	spaceRows    = 64
	// spawnClearance keeps the team-space grid out of the default spawn area.
	spawnClearance = 2000.0
)

// spaceOrigin places a team space on a fixed grid, centered horizontally and
// offset below spawn. Pure function of the identifier so every instance
// agrees on placement without coordination. Hash collisions overlap two
// spaces visually; placement is cosmetic, membership is what gates audio.
func (r *Room) spaceOrigin(team domain.TeamID) (x, y float64) {
	h := fnv.New32a()
	h.Write([]byte(team))
	idx := h.Sum32()
	col := float64(idx % spaceColumns)
	row := float64((idx / spaceColumns) % spaceRows)
	x = (col - float64(spaceColumns-1)/2) * r.spaceSpacing
	y = spawnClearance + row*r.spaceSpacing
	return x, y
}

// Run drives the directory reconciliation loop: once at startup, then on a
// fixed interval until the context ends.
func (r *Room) Run(ctx context.Context) {
	if err := r.Reconcile(ctx); err != nil {
		log.Warn().Err(err).Str("module", "app.teamspaces").Msg("initial reconcile failed")
	}
	ticker := time.NewTicker(r.reconcileEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				log.Warn().Err(err).Str("module", "app.teamspaces").Msg("reconcile failed")
			}
		}
	}
}

// Reconcile syncs the team-space set against the external directory.
// The fetch runs outside the room lock; a fetch error is a no-op for the
// cycle and never clears existing state.
func (r *Room) Reconcile(ctx context.Context) error {
	teams, err := r.directory.ListTeams(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[domain.TeamID]struct{}, len(teams))
	for _, t := range teams {
		seen[t.ID] = struct{}{}
		if sp, ok := r.spaces[t.ID]; ok {
			sp.Name = t.Name
			sp.Image = t.Image
			continue
		}
		x, y := r.spaceOrigin(t.ID)
		r.spaces[t.ID] = domain.NewTeamSpace(t.ID, t.Name, t.Image, x, y, r.spaceSize, r.spaceSize)
		log.Info().Str("module", "app.teamspaces").Str("team", string(t.ID)).
			Float64("x", x).Float64("y", y).Msg("team space created")
	}
	for id, sp := range r.spaces {
		if _, ok := seen[id]; !ok {
			r.retireSpaceLocked(sp)
		}
	}
	return nil
}

// retireSpaceLocked evicts every occupant with a distinguishable expiry
// event, then removes the space.
func (r *Room) retireSpaceLocked(sp *domain.TeamSpace) {
	for sid := range sp.Roster {
		p, ok := r.participants[sid]
		if !ok {
			continue
		}
		r.sendToLocked(sid, teamRoomEvent{Type: "team_room_expired", Team: sp.Team})
		p.TeamSpace = ""
		r.updateVoiceCellLocked(p)
		if r.media != nil {
			identity := string(p.Identity)
			mediaRoom := teamMediaRoom(sp.Team)
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := r.media.RemoveParticipant(ctx, mediaRoom, identity); err != nil {
					log.Warn().Err(err).Str("module", "app.teamspaces").
						Str("room", mediaRoom).Msg("media eviction failed")
				}
			}()
		}
	}
	delete(r.spaces, sp.Team)
	log.Info().Str("module", "app.teamspaces").Str("team", string(sp.Team)).Msg("team space retired")
}

// teamMediaRoom is the media-room naming convention for team spaces.
func teamMediaRoom(team domain.TeamID) string {
	return "team-" + string(team)
}

// EnterTeamSpace moves a participant into a team space, gated by the grant
// set from admission.
func (r *Room) EnterTeamSpace(sid domain.SessionID, team domain.TeamID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[sid]
	if !ok {
		return
	}
	sp, ok := r.spaces[team]
	if !ok {
		r.sendToLocked(sid, teamRoomEvent{Type: "team_room_not_found", Team: team})
		return
	}
	if !p.Granted(team) {
		r.sendToLocked(sid, teamRoomEvent{Type: "team_room_access_denied", Team: team})
		return
	}
	if p.TeamSpace == team {
		r.sendEnteredLocked(sid, sp)
		return
	}
	if p.TeamSpace != "" {
		r.leaveSpaceLocked(p)
	}
	p.TeamSpace = team
	sp.Roster[sid] = struct{}{}
	r.updateVoiceCellLocked(p)

	r.sendEnteredLocked(sid, sp)
	for member := range sp.Roster {
		if member == sid {
			continue
		}
		r.sendToLocked(member, playerTeamRoomEvent{
			Type:      "player_entered_team_room",
			SessionID: sid,
			Name:      p.Name,
			Team:      team,
		})
	}
}

// ExitTeamSpace clears team-space membership; a participant not in a space
// still gets the exit acknowledgment.
func (r *Room) ExitTeamSpace(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[sid]
	if !ok {
		return
	}
	if p.TeamSpace != "" {
		r.leaveSpaceLocked(p)
		r.updateVoiceCellLocked(p)
	}
	r.sendToLocked(sid, teamRoomExited{Type: "team_room_exited"})
}

// leaveSpaceLocked detaches the participant from its current space and
// tells the remaining roster. Caller re-derives the voice cell.
func (r *Room) leaveSpaceLocked(p *domain.Participant) {
	sp, ok := r.spaces[p.TeamSpace]
	p.TeamSpace = ""
	if !ok {
		// Space vanished under the participant; self-heal to "not in a space".
		return
	}
	delete(sp.Roster, p.Session)
	r.broadcastRosterLocked(sp, playerTeamRoomEvent{
		Type:      "player_exited_team_room",
		SessionID: p.Session,
		Name:      p.Name,
		Team:      sp.Team,
	})
}

func (r *Room) sendEnteredLocked(sid domain.SessionID, sp *domain.TeamSpace) {
	members := make([]PlayerPosition, 0, len(sp.Roster))
	for member := range sp.Roster {
		if mp, ok := r.participants[member]; ok {
			members = append(members, PlayerPosition{
				SessionID: mp.Session,
				Name:      mp.Name,
				X:         mp.X,
				Y:         mp.Y,
			})
		}
	}
	r.sendToLocked(sid, teamRoomEntered{
		Type:    "team_room_entered",
		Team:    sp.Team,
		Name:    sp.Name,
		X:       sp.X,
		Y:       sp.Y,
		Width:   sp.Width,
		Height:  sp.Height,
		Members: members,
	})
}

func (r *Room) broadcastRosterLocked(sp *domain.TeamSpace, v any) {
	for member := range sp.Roster {
		r.sendToLocked(member, v)
	}
}
