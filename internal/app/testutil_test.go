package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// fakeConn records everything the room sends, including close reasons.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	reason core.CloseReason
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) CloseWithReason(r core.CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.reason = r
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// events decodes recorded frames into their "type" tags plus raw payloads.
func (c *fakeConn) events() []map[string]json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]json.RawMessage, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]json.RawMessage
		if json.Unmarshal(f, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) eventTypes() []string {
	var types []string
	for _, e := range c.events() {
		var t string
		_ = json.Unmarshal(e["type"], &t)
		types = append(types, t)
	}
	return types
}

func (c *fakeConn) hasEvent(kind string) bool {
	for _, t := range c.eventTypes() {
		if t == kind {
			return true
		}
	}
	return false
}

func (c *fakeConn) lastEvent(kind string) (map[string]json.RawMessage, bool) {
	evs := c.events()
	for i := len(evs) - 1; i >= 0; i-- {
		var t string
		_ = json.Unmarshal(evs[i]["type"], &t)
		if t == kind {
			return evs[i], true
		}
	}
	return nil, false
}

type fakeDirectory struct {
	mu    sync.Mutex
	teams []core.TeamInfo
	err   error
}

func (d *fakeDirectory) ListTeams(ctx context.Context) ([]core.TeamInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return append([]core.TeamInfo(nil), d.teams...), nil
}

func (d *fakeDirectory) set(teams []core.TeamInfo, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teams = teams
	d.err = err
}

type fakeMedia struct {
	mu        sync.Mutex
	ensured   []string
	removed   []string
	tokenErr  error
	ensureErr error
}

func (m *fakeMedia) EnsureRoom(ctx context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.ensured = append(m.ensured, room)
	return nil
}

func (m *fakeMedia) JoinToken(identity, name, metadata, room string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return "", "", m.tokenErr
	}
	return "tok-" + identity + "-" + room, "ws://media.test", nil
}

func (m *fakeMedia) RemoveParticipant(ctx context.Context, room, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, room+"/"+identity)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Secret:            "test-secret",
		GracePeriod:       30 * time.Millisecond,
		ReconcileInterval: time.Hour,
		VoiceCellSize:     400,
		ProximityRange:    800,
		TeamSpaceSize:     600,
		TeamSpaceSpacing:  800,
	}
}

func newTestRoom(dir core.TeamDirectory, media core.MediaControl) *Room {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return NewRoom(testConfig(), dir, media)
}

// admit is a shorthand for anonymous admission with a fresh fake connection.
func admit(r *Room, sid domain.SessionID) *fakeConn {
	conn := &fakeConn{}
	r.Admit(sid, conn, "")
	return conn
}
