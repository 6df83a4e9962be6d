package app

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// grantToken signs a join credential the way the front-end's issuer would.
func grantToken(t *testing.T, subject, name string, teams []string) string {
	t.Helper()
	claims := credentialClaims{
		Name:  name,
		Teams: teams,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAdmitVerifiedCredential(t *testing.T) {
	r := newTestRoom(nil, nil)
	conn := &fakeConn{}
	p := r.Admit("s1", conn, grantToken(t, "identity-1", "Ana", []string{"7"}))

	require.NotNil(t, p)
	assert.Equal(t, domain.IdentityID("identity-1"), p.Identity)
	assert.Equal(t, "Ana", p.Name)
	assert.True(t, p.Granted("7"))
	assert.False(t, p.Granted("9"))
}

func TestAdmitAnonymousFallback(t *testing.T) {
	r := newTestRoom(nil, nil)

	// No credential, garbage credential, wrong key: all admitted anonymously.
	for i, cred := range []string{"", "not-a-jwt", grantTokenWrongKey(t)} {
		conn := &fakeConn{}
		sid := domain.SessionID(string(rune('a' + i)))
		p := r.Admit(sid, conn, cred)
		require.NotNil(t, p, "credential %q", cred)
		assert.Equal(t, domain.IdentityID(sid), p.Identity)
		assert.Empty(t, p.Grants)
	}
}

func grantTokenWrongKey(t *testing.T) string {
	t.Helper()
	claims := credentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "identity-x"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	return token
}

func TestDuplicateSessionEviction(t *testing.T) {
	r := newTestRoom(nil, nil)
	cred := grantToken(t, "identity-1", "Ana", nil)

	oldConn := &fakeConn{}
	r.Admit("s1", oldConn, cred)
	newConn := &fakeConn{}
	r.Admit("s2", newConn, cred)

	// Newest wins: the old seat is closed with a distinguishable reason and
	// fully cleaned up before the new one is recorded.
	assert.True(t, oldConn.closed)
	assert.Equal(t, core.ReasonDuplicateSession, oldConn.reason)

	r.mu.Lock()
	_, oldAlive := r.participants["s1"]
	active, indexed := r.identities["identity-1"]
	r.mu.Unlock()
	assert.False(t, oldAlive)
	require.True(t, indexed)
	assert.Equal(t, domain.SessionID("s2"), active)
	requireCellsConsistent(t, r)
}

func TestGracePeriodReconnect(t *testing.T) {
	r := newTestRoom(nil, nil)
	conn := &fakeConn{}
	r.Admit("s1", conn, grantToken(t, "identity-1", "Ana", nil))
	r.Heartbeat("s1", 123, 456)

	r.Disconnect("s1", conn)

	// Reconnect under the same seat before the window elapses: state intact,
	// pending cleanup cancelled.
	conn2 := &fakeConn{}
	p := r.Admit("s1", conn2, "")
	require.NotNil(t, p)
	assert.Equal(t, 123.0, p.X)
	assert.Equal(t, 456.0, p.Y)
	assert.Equal(t, domain.IdentityID("identity-1"), p.Identity)

	// The cancelled timer must not fire later.
	time.Sleep(60 * time.Millisecond)
	r.mu.Lock()
	_, alive := r.participants["s1"]
	r.mu.Unlock()
	assert.True(t, alive)
}

func TestGracePeriodExpiry(t *testing.T) {
	r := newTestRoom(nil, nil)
	conn := &fakeConn{}
	r.Admit("s1", conn, grantToken(t, "identity-1", "Ana", nil))

	r.Disconnect("s1", conn)

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, alive := r.participants["s1"]
		return !alive
	}, time.Second, 5*time.Millisecond)

	// A late rejoin is a fresh participant, not a resumed one.
	p := r.Admit("s1", &fakeConn{}, "")
	assert.Equal(t, 0.0, p.X)
	r.mu.Lock()
	assert.Len(t, r.identities, 1)
	r.mu.Unlock()
	requireCellsConsistent(t, r)
}

func TestSupersededTransportDisconnectIgnored(t *testing.T) {
	r := newTestRoom(nil, nil)
	c1 := &fakeConn{}
	r.Admit("s1", c1, "")
	c2 := &fakeConn{}
	r.Admit("s1", c2, "")

	// The replaced transport is force-closed so its client notices.
	assert.True(t, c1.closed)
	assert.Equal(t, core.ReasonDuplicateSession, c1.reason)

	// The old read pump exits eventually and reports its disconnect; that
	// must not deregister the live replacement or start a grace window.
	r.Disconnect("s1", c1)

	r.mu.Lock()
	live := r.conns["s1"]
	_, pending := r.graceTimers["s1"]
	r.mu.Unlock()
	assert.Equal(t, core.SignalConnection(c2), live)
	assert.False(t, pending)

	time.Sleep(2 * r.grace)
	r.mu.Lock()
	_, alive := r.participants["s1"]
	r.mu.Unlock()
	assert.True(t, alive)
}

func TestFiredTimerFromEarlierWindowIgnored(t *testing.T) {
	r := newTestRoom(nil, nil)
	conn := &fakeConn{}
	r.Admit("s1", conn, "")
	r.Disconnect("s1", conn)

	// Let the first window's timer fire while the lock is held, then install
	// a fresh window before releasing. The blocked callback wakes up owning
	// nothing and must leave the seat alone.
	r.mu.Lock()
	time.Sleep(3 * r.grace)
	if old, ok := r.graceTimers["s1"]; ok {
		old.Stop()
	}
	fresh := time.AfterFunc(time.Hour, func() {})
	defer fresh.Stop()
	r.graceTimers["s1"] = fresh
	r.mu.Unlock()

	time.Sleep(2 * r.grace)
	r.mu.Lock()
	_, alive := r.participants["s1"]
	r.mu.Unlock()
	assert.True(t, alive)
}

func TestAdmitWithoutSecretIsAnonymous(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = ""
	r := NewRoom(cfg, nil, nil)

	// With no key configured, a credential signed with the empty key would
	// verify. It must not grant anything.
	claims := credentialClaims{
		Name:  "Mallory",
		Teams: []string{"7"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "identity-forged",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	cred, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	require.NoError(t, err)

	p := r.Admit("s1", &fakeConn{}, cred)
	require.NotNil(t, p)
	assert.Equal(t, domain.IdentityID("s1"), p.Identity)
	assert.Empty(t, p.Grants)
	assert.False(t, p.Granted("7"))
}

func TestDisconnectDuringGraceThenEviction(t *testing.T) {
	r := newTestRoom(nil, nil)
	cred := grantToken(t, "identity-1", "Ana", nil)

	oldConn := &fakeConn{}
	r.Admit("s1", oldConn, cred)
	r.Disconnect("s1", oldConn)

	// Duplicate admission while the old seat waits out its grace window
	// supersedes the timer with synchronous cleanup.
	r.Admit("s2", &fakeConn{}, cred)

	r.mu.Lock()
	_, oldAlive := r.participants["s1"]
	_, timerPending := r.graceTimers["s1"]
	r.mu.Unlock()
	assert.False(t, oldAlive)
	assert.False(t, timerPending)
}
