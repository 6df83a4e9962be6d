// Package sfu is the LiveKit control-plane adapter: room provisioning,
// participant eviction and join-token issuance. Media never flows here.
package sfu

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/config"
)

const (
	tokenTTL = 10 * time.Minute
	// emptyTimeout lets LiveKit reap rooms nobody joined.
	emptyTimeout = 300
)

type Client struct {
	host      string
	apiKey    string
	apiSecret string
	rooms     *lksdk.RoomServiceClient
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		host:      cfg.LiveKitHost,
		apiKey:    cfg.LiveKitAPIKey,
		apiSecret: cfg.LiveKitAPISecret,
		rooms:     lksdk.NewRoomServiceClient(cfg.LiveKitHost, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret),
	}
}

// EnsureRoom provisions the media room if it does not exist yet. The list
// is queried first because duplicate creates are the common case and must
// not error.
func (c *Client) EnsureRoom(ctx context.Context, room string) error {
	resp, err := c.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{Names: []string{room}})
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	if len(resp.Rooms) > 0 {
		return nil
	}
	_, err = c.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         room,
		EmptyTimeout: emptyTimeout,
	})
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	log.Info().Str("module", "sfu").Str("room", room).Msg("media room created")
	return nil
}

// JoinToken signs a short-lived join credential. Identity and metadata ride
// inside the token; expiry is the SFU's own concern, nothing is tracked
// locally.
func (c *Client) JoinToken(identity, name, metadata, room string) (string, string, error) {
	at := auth.NewAccessToken(c.apiKey, c.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetMetadata(metadata).
		SetValidFor(tokenTTL)
	token, err := at.ToJWT()
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return token, c.host, nil
}

// RemoveParticipant kicks an identity out of a media room. Absence is not
// an error: the participant list is consulted first.
func (c *Client) RemoveParticipant(ctx context.Context, room, identity string) error {
	resp, err := c.rooms.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: room})
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	present := false
	for _, p := range resp.Participants {
		if p.Identity == identity {
			present = true
			break
		}
	}
	if !present {
		return nil
	}
	_, err = c.rooms.RemoveParticipant(ctx, &livekit.RoomParticipantIdentity{
		Room:     room,
		Identity: identity,
	})
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}
