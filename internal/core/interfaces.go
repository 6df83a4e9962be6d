package core

import (
	"context"

	"github.com/dkeye/Presence/internal/domain"
)

// Frame is a raw outbound payload (JSON event).
type Frame []byte

// CloseReason tags a server-initiated disconnect so clients can tell
// an eviction apart from a network failure.
type CloseReason string

const (
	ReasonDuplicateSession CloseReason = "duplicate_session"
	ReasonServerShutdown   CloseReason = "server_shutdown"
)

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	// CloseWithReason delivers the reason to the peer before closing.
	CloseWithReason(CloseReason)
	Close()
}

// TeamInfo is one entry of the external team directory.
type TeamInfo struct {
	ID    domain.TeamID `json:"id"`
	Name  string        `json:"name"`
	Image string        `json:"image"`
}

// TeamDirectory is the external source of truth for which team spaces exist.
type TeamDirectory interface {
	ListTeams(ctx context.Context) ([]TeamInfo, error)
}

// MediaControl is the SFU control surface the room consumes: room
// provisioning and token issuance. Media itself never touches this process.
type MediaControl interface {
	// EnsureRoom provisions the media room if absent. Duplicate creates
	// are expected and must not error.
	EnsureRoom(ctx context.Context, room string) error
	// JoinToken returns a short-lived join credential and the media URL.
	JoinToken(identity, name, metadata, room string) (token, url string, err error)
	// RemoveParticipant kicks an identity out of a media room, if present.
	RemoveParticipant(ctx context.Context, room, identity string) error
}
