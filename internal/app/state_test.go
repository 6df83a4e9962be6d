package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/core"
)

func TestMoveIsRelativeAndUnbounded(t *testing.T) {
	r := newTestRoom(nil, nil)
	admit(r, "a")

	r.Move("a", 10, -20)
	r.Move("a", -100000, 5)

	r.mu.Lock()
	p := r.participants["a"]
	r.mu.Unlock()
	assert.Equal(t, -99990.0, p.X)
	assert.Equal(t, -15.0, p.Y)
	requireCellsConsistent(t, r)
}

func TestHeartbeatOverwritesAbsolutely(t *testing.T) {
	r := newTestRoom(nil, nil)
	admit(r, "a")
	r.Move("a", 10, 10)

	r.Heartbeat("a", 7, 8)

	r.mu.Lock()
	p := r.participants["a"]
	r.mu.Unlock()
	assert.Equal(t, 7.0, p.X)
	assert.Equal(t, 8.0, p.Y)
}

func TestMovementForUnknownSessionIsDropped(t *testing.T) {
	r := newTestRoom(nil, nil)
	r.Move("ghost", 1, 1)
	r.Heartbeat("ghost", 1, 1)
	requireCellsConsistent(t, r)
}

func TestMinimapPositions(t *testing.T) {
	r := newTestRoom(nil, nil)
	connA := &fakeConn{}
	r.Admit("a", connA, grantToken(t, "id-a", "Ana", nil))
	admit(r, "b")
	r.Heartbeat("a", 1, 2)
	r.Heartbeat("b", 3, 4)

	r.MinimapPositions("a")

	ev, ok := connA.lastEvent("minimap_positions_response")
	require.True(t, ok)
	var positions []PlayerPosition
	require.NoError(t, json.Unmarshal(ev["positions"], &positions))
	require.Len(t, positions, 2)

	byName := map[string][2]float64{}
	for _, p := range positions {
		byName[p.Name] = [2]float64{p.X, p.Y}
	}
	assert.Equal(t, [2]float64{1, 2}, byName["Ana"])
}

func TestSnapshotCountsOccupancy(t *testing.T) {
	r := newTestRoom(nil, nil)
	admit(r, "a")
	admit(r, "b")
	r.Heartbeat("a", 0, 0)
	r.Heartbeat("b", 0, 0)

	s := r.Snapshot()
	assert.Equal(t, 2, s.Participants)
	assert.Equal(t, 2, s.VoiceCells["grid:0:0"])
}

func TestShutdownClosesConnectionsWithReason(t *testing.T) {
	r := newTestRoom(nil, nil)
	conn := admit(r, "a")
	r.Shutdown()
	assert.True(t, conn.closed)
	assert.Equal(t, core.ReasonServerShutdown, conn.reason)
}
