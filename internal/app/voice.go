package app

import (
	"fmt"
	"math"

	"github.com/dkeye/Presence/internal/domain"
)

// cellFor derives the discrete audio cell: a team space claims the whole
// participant, otherwise the continuous position maps onto a fixed grid.
func (r *Room) cellFor(p *domain.Participant) string {
	if p.TeamSpace != "" {
		return "team:" + string(p.TeamSpace)
	}
	gx := int(math.Floor(p.X / r.cellSize))
	gy := int(math.Floor(p.Y / r.cellSize))
	return fmt.Sprintf("grid:%d:%d", gx, gy)
}

// canHearLocked decides whether two participants share audio. Team-space
// audio is exclusive: being inside one cuts you off from everyone outside.
func (r *Room) canHearLocked(a, b *domain.Participant) bool {
	if a.TeamSpace != "" || b.TeamSpace != "" {
		return a.TeamSpace == b.TeamSpace
	}
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy) <= r.proximity
}

// CanHear is the audibility predicate over live sessions. Unknown sessions
// are never audible.
func (r *Room) CanHear(a, b domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pa, ok := r.participants[a]
	if !ok {
		return false
	}
	pb, ok := r.participants[b]
	if !ok {
		return false
	}
	return r.canHearLocked(pa, pb)
}

// updateVoiceCellLocked recomputes the participant's cell and keeps the
// occupancy table in step. Must run after every position or team-space
// mutation, inside the same handler invocation.
func (r *Room) updateVoiceCellLocked(p *domain.Participant) {
	cell := r.cellFor(p)
	if cell == p.VoiceCell {
		return
	}
	if occupants, ok := r.cells[p.VoiceCell]; ok {
		delete(occupants, p.Session)
		if len(occupants) == 0 {
			delete(r.cells, p.VoiceCell)
		}
	}
	occupants, ok := r.cells[cell]
	if !ok {
		occupants = make(map[domain.SessionID]struct{})
		r.cells[cell] = occupants
	}
	occupants[p.Session] = struct{}{}
	p.VoiceCell = cell
}

// audiblePeersLocked enumerates live sessions the participant can hear,
// self excluded.
func (r *Room) audiblePeersLocked(p *domain.Participant) []*domain.Participant {
	var peers []*domain.Participant
	for sid, other := range r.participants {
		if sid == p.Session {
			continue
		}
		if _, live := r.conns[sid]; !live {
			continue
		}
		if r.canHearLocked(p, other) {
			peers = append(peers, other)
		}
	}
	return peers
}
