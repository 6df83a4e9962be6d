// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
)

type (
	// SessionID is the transport-assigned seat identifier.
	SessionID string
	// IdentityID is derived from a verified credential, or equals the
	// session id for anonymous participants.
	IdentityID string
	// TeamID identifies one external team and its space.
	TeamID string
)

// Participant is one connected (or grace-period pending) entity.
// Position is client-authoritative: heartbeats overwrite it as-is.
type Participant struct {
	Session   SessionID
	Identity  IdentityID
	Name      string
	X, Y      float64
	Grants    map[TeamID]struct{}
	TeamSpace TeamID // empty = not in a team space
	VoiceCell string
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(sid SessionID, identity IdentityID, name string, grants []TeamID) (*Participant, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	p := &Participant{
		Session:  sid,
		Identity: identity,
		Name:     name,
		Grants:   make(map[TeamID]struct{}, len(grants)),
	}
	for _, t := range grants {
		p.Grants[t] = struct{}{}
	}
	return p, nil
}

// Granted reports whether the participant may enter the given team space.
func (p *Participant) Granted(team TeamID) bool {
	_, ok := p.Grants[team]
	return ok
}
