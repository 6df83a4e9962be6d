package app

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

// participantMetadata rides inside the media token so the SFU side can
// group and filter by team affiliation.
type participantMetadata struct {
	SessionID domain.SessionID `json:"sessionId"`
	Teams     []string         `json:"teams"`
	TeamSpace domain.TeamID    `json:"teamSpace,omitempty"`
}

// IssueVoiceToken provisions the target media room if absent and answers
// with a short-lived join token. SFU failures surface as a recoverable
// livekit_error event, never as a connection failure. Runs off the room's
// mutation context; it takes the lock only to snapshot the participant.
func (r *Room) IssueVoiceToken(ctx context.Context, sid domain.SessionID, roomName string) {
	r.mu.Lock()
	p, ok := r.participants[sid]
	conn := r.conns[sid]
	if !ok || conn == nil {
		r.mu.Unlock()
		return
	}
	identity := string(p.Identity)
	name := p.Name
	meta := participantMetadata{SessionID: sid, TeamSpace: p.TeamSpace}
	for t := range p.Grants {
		meta.Teams = append(meta.Teams, string(t))
	}
	sort.Strings(meta.Teams)
	r.mu.Unlock()

	if r.media == nil {
		r.send(conn, livekitError{Type: "livekit_error", Error: "media control not configured"})
		return
	}

	if err := r.media.EnsureRoom(ctx, roomName); err != nil {
		log.Warn().Err(err).Str("module", "app.tokens").Str("room", roomName).Msg("ensure media room")
		r.send(conn, livekitError{Type: "livekit_error", Error: "media room unavailable"})
		return
	}

	metadata, err := json.Marshal(meta)
	if err != nil {
		r.send(conn, livekitError{Type: "livekit_error", Error: "metadata encode failed"})
		return
	}

	token, url, err := r.media.JoinToken(identity, name, string(metadata), roomName)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.tokens").Str("room", roomName).Msg("token issue failed")
		r.send(conn, livekitError{Type: "livekit_error", Error: "token issue failed"})
		return
	}

	r.send(conn, livekitToken{
		Type:     "livekit_token",
		Token:    token,
		URL:      url,
		RoomName: roomName,
	})
}
