package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// Room is the authoritative state aggregate for one shared space:
// participants, team spaces, voice-cell occupancy and the identity index
// all live behind one mutex. Every mutation handler runs its whole
// read-modify-write under that mutex so the voice-cell invariant holds at
// every handler exit. External I/O (directory fetch, SFU calls) happens
// outside the lock and re-enters it only to apply results.
type Room struct {
	mu sync.Mutex

	grace          time.Duration
	reconcileEvery time.Duration
	cellSize       float64
	proximity      float64
	spaceSize      float64
	spaceSpacing   float64
	secret         []byte

	directory core.TeamDirectory
	media     core.MediaControl

	participants map[domain.SessionID]*domain.Participant
	spaces       map[domain.TeamID]*domain.TeamSpace
	// cells is derived state, always re-derivable from Participant.VoiceCell.
	cells       map[string]map[domain.SessionID]struct{}
	identities  map[domain.IdentityID]domain.SessionID
	conns       map[domain.SessionID]core.SignalConnection
	graceTimers map[domain.SessionID]*time.Timer
}

func NewRoom(cfg *config.Config, directory core.TeamDirectory, media core.MediaControl) *Room {
	return &Room{
		grace:          cfg.GracePeriod,
		reconcileEvery: cfg.ReconcileInterval,
		cellSize:       cfg.VoiceCellSize,
		proximity:      cfg.ProximityRange,
		spaceSize:      cfg.TeamSpaceSize,
		spaceSpacing:   cfg.TeamSpaceSpacing,
		secret:         []byte(cfg.Secret),
		directory:      directory,
		media:          media,
		participants:   make(map[domain.SessionID]*domain.Participant),
		spaces:         make(map[domain.TeamID]*domain.TeamSpace),
		cells:          make(map[string]map[domain.SessionID]struct{}),
		identities:     make(map[domain.IdentityID]domain.SessionID),
		conns:          make(map[domain.SessionID]core.SignalConnection),
		graceTimers:    make(map[domain.SessionID]*time.Timer),
	}
}

// Move applies a relative position delta. No bounds clamping: participants
// may occupy any coordinate.
func (r *Room) Move(sid domain.SessionID, dx, dy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[sid]
	if !ok {
		return
	}
	p.X += dx
	p.Y += dy
	r.updateVoiceCellLocked(p)
}

// Heartbeat overwrites position absolutely. Client-authoritative by design;
// plausibility checks are a product decision, not taken here.
func (r *Room) Heartbeat(sid domain.SessionID, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[sid]
	if !ok {
		return
	}
	p.X = x
	p.Y = y
	r.updateVoiceCellLocked(p)
}

// MinimapPositions answers a minimap request with every participant's
// authoritative position, requester included.
func (r *Room) MinimapPositions(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[sid]
	if !ok {
		return
	}
	positions := make([]PlayerPosition, 0, len(r.participants))
	for _, p := range r.participants {
		positions = append(positions, PlayerPosition{
			SessionID: p.Session,
			Name:      p.Name,
			X:         p.X,
			Y:         p.Y,
		})
	}
	r.send(conn, minimapPositionsResponse{
		Type:      "minimap_positions_response",
		Positions: positions,
	})
}

// Summary is a read-only occupancy view for the ops endpoint.
type Summary struct {
	Participants int            `json:"participants"`
	TeamSpaces   int            `json:"team_spaces"`
	VoiceCells   map[string]int `json:"voice_cells"`
}

func (r *Room) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{
		Participants: len(r.participants),
		TeamSpaces:   len(r.spaces),
		VoiceCells:   make(map[string]int, len(r.cells)),
	}
	for cell, occupants := range r.cells {
		s.VoiceCells[cell] = len(occupants)
	}
	return s
}

// Shutdown stops all timers and closes every live connection with a
// distinguishable reason.
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, t := range r.graceTimers {
		t.Stop()
		delete(r.graceTimers, sid)
	}
	for sid, conn := range r.conns {
		conn.CloseWithReason(core.ReasonServerShutdown)
		delete(r.conns, sid)
	}
	log.Info().Str("module", "app.room").Msg("room shut down")
}
