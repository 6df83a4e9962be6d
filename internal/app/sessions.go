package app

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// credentialClaims is the shape of a presented join credential.
type credentialClaims struct {
	Name  string   `json:"name"`
	Teams []string `json:"teams"`
	jwt.RegisteredClaims
}

type authResult struct {
	Identity domain.IdentityID
	Name     string
	Grants   []domain.TeamID
}

// authenticate verifies the credential and derives an identity. Any
// verification failure falls back to anonymous admission: identity equals
// the session id, no team grants. Low-friction policy, not a security
// boundary; flagged for product review, do not tighten silently.
func (r *Room) authenticate(credential string, sid domain.SessionID) authResult {
	anon := authResult{
		Identity: domain.IdentityID(sid),
		Name:     "guest-" + shortID(sid),
	}
	if credential == "" {
		return anon
	}
	if len(r.secret) == 0 {
		// An empty HMAC key would verify any client-minted credential,
		// arbitrary team grants included. Treat every seat as anonymous
		// until a key is configured.
		log.Warn().Str("module", "app.sessions").Str("sid", string(sid)).Msg("no credential secret configured, verified admission disabled")
		return anon
	}

	var claims credentialClaims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid || claims.Subject == "" {
		log.Info().Err(err).Str("module", "app.sessions").Str("sid", string(sid)).Msg("credential rejected, anonymous fallback")
		return anon
	}

	res := authResult{
		Identity: domain.IdentityID(claims.Subject),
		Name:     claims.Name,
	}
	if res.Name == "" {
		res.Name = anon.Name
	}
	for _, t := range claims.Teams {
		res.Grants = append(res.Grants, domain.TeamID(t))
	}
	return res
}

func shortID(sid domain.SessionID) string {
	s := string(sid)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Admit handles a join for the given seat. Reconnecting under a pending
// grace timer resumes the existing participant with all state intact.
// A verified identity that already has another active session evicts that
// session synchronously before the new one is admitted: newest wins.
func (r *Room) Admit(sid domain.SessionID, conn core.SignalConnection, credential string) *domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[sid]; ok {
		if t, pending := r.graceTimers[sid]; pending {
			t.Stop()
			delete(r.graceTimers, sid)
			r.replaceConnLocked(sid, conn)
			log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("reconnected within grace period")
			return p
		}
		// Same seat, still active: the new transport supersedes the old one.
		// The old connection must be closed here, or its read pump's later
		// disconnect would tear down a participant who is still connected.
		r.replaceConnLocked(sid, conn)
		return p
	}

	auth := r.authenticate(credential, sid)

	if old, ok := r.identities[auth.Identity]; ok && old != sid {
		r.evictDuplicateLocked(old)
	}

	p, err := domain.NewParticipant(sid, auth.Identity, auth.Name, auth.Grants)
	if err != nil {
		// Name came from a verified credential but is unusable; keep the
		// participant, not the name.
		p, _ = domain.NewParticipant(sid, auth.Identity, "guest-"+shortID(sid), auth.Grants)
	}
	r.participants[sid] = p
	r.conns[sid] = conn
	r.identities[auth.Identity] = sid
	r.updateVoiceCellLocked(p)

	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).
		Str("identity", string(auth.Identity)).Str("name", p.Name).Msg("participant admitted")
	return p
}

// evictDuplicateLocked force-closes the previous session for an identity
// and runs its cleanup synchronously, so the index never holds two active
// sessions for one identity.
func (r *Room) evictDuplicateLocked(old domain.SessionID) {
	if t, ok := r.graceTimers[old]; ok {
		t.Stop()
		delete(r.graceTimers, old)
	}
	if conn, ok := r.conns[old]; ok {
		conn.CloseWithReason(core.ReasonDuplicateSession)
	}
	log.Info().Str("module", "app.sessions").Str("sid", string(old)).Msg("duplicate session evicted")
	r.cleanupLocked(old)
}

// replaceConnLocked swaps the seat's transport, force-closing a superseded
// live connection so its eventual read-pump exit cannot deregister the
// replacement.
func (r *Room) replaceConnLocked(sid domain.SessionID, conn core.SignalConnection) {
	if old, ok := r.conns[sid]; ok && old != conn {
		old.CloseWithReason(core.ReasonDuplicateSession)
	}
	r.conns[sid] = conn
}

// Disconnect starts the reconnection grace window. The caller passes its own
// connection; a transport that was already superseded on the seat is ignored,
// the live replacement keeps its registration. The participant record
// survives until the timer fires; an intervening Admit for the same seat
// cancels it.
func (r *Room) Disconnect(sid domain.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if live, ok := r.conns[sid]; !ok || live != conn {
		return
	}
	delete(r.conns, sid)
	if _, ok := r.participants[sid]; !ok {
		return
	}
	if t, ok := r.graceTimers[sid]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(r.grace, func() { r.expireGrace(sid, t) })
	r.graceTimers[sid] = t
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Dur("grace", r.grace).Msg("disconnect, cleanup scheduled")
}

// expireGrace runs when a grace timer fires. The timer identity check
// matters: a fired timer can block on the mutex across a reconnect and a
// fresh disconnect, and must not consume the window the new timer owns.
func (r *Room) expireGrace(sid domain.SessionID, t *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.graceTimers[sid] != t {
		// Reconnected, evicted, or superseded by a newer window.
		return
	}
	delete(r.graceTimers, sid)
	r.cleanupLocked(sid)
}

// cleanupLocked removes every trace of a session: participant record,
// voice-cell occupancy, team-space roster, identity index and connection.
func (r *Room) cleanupLocked(sid domain.SessionID) {
	p, ok := r.participants[sid]
	if !ok {
		delete(r.conns, sid)
		return
	}
	if occupants, ok := r.cells[p.VoiceCell]; ok {
		delete(occupants, sid)
		if len(occupants) == 0 {
			delete(r.cells, p.VoiceCell)
		}
	}
	if p.TeamSpace != "" {
		if sp, ok := r.spaces[p.TeamSpace]; ok {
			delete(sp.Roster, sid)
			r.broadcastRosterLocked(sp, playerTeamRoomEvent{
				Type:      "player_exited_team_room",
				SessionID: sid,
				Name:      p.Name,
				Team:      sp.Team,
			})
		}
	}
	if r.identities[p.Identity] == sid {
		delete(r.identities, p.Identity)
	}
	delete(r.conns, sid)
	delete(r.participants, sid)
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("session cleaned up")
}
