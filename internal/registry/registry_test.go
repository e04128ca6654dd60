package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	logging "ev/ocpp/gateway/internal/logging"
	"ev/ocpp/gateway/internal/session"
	"ev/ocpp/gateway/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.LoggingSetup(false, "registry-test")
	m.Run()
}

type nullConn struct{}

func (nullConn) WriteMessage(messageType int, data []byte) error                    { return nil }
func (nullConn) WriteControl(messageType int, data []byte, deadline time.Time) error { return nil }
func (nullConn) Close() error                                                       { return nil }

func newSession(identity string) *session.Session {
	return session.New(identity, version.V16, nullConn{}, "127.0.0.1:50000", 4)
}

func TestAdmitAndLookup(t *testing.T) {
	r := New()
	s := newSession("CP001")

	evicted := r.Admit(s)
	assert.Nil(t, evicted)

	got, ok := r.Lookup("CP001")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())
}

func TestAdmitReplacesExistingSession(t *testing.T) {
	r := New()
	first := newSession("CP001")
	second := newSession("CP001")

	require.Nil(t, r.Admit(first))
	evicted := r.Admit(second)

	require.Same(t, first, evicted)
	got, ok := r.Lookup("CP001")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len(), "exactly one live session per identity")
}

func TestRemoveIfSameIgnoresReplacedSession(t *testing.T) {
	r := New()
	stale := newSession("CP001")
	live := newSession("CP001")

	r.Admit(stale)
	r.Admit(live)

	// the stale connection's close handler fires after the replacement
	assert.False(t, r.RemoveIfSame(stale))
	_, ok := r.Lookup("CP001")
	assert.True(t, ok, "live session must survive the stale close handler")

	assert.True(t, r.RemoveIfSame(live))
	_, ok = r.Lookup("CP001")
	assert.False(t, ok)
}

func TestRemoveIfSameOnEmptyRegistry(t *testing.T) {
	r := New()
	assert.False(t, r.RemoveIfSame(newSession("CP001")))
	assert.Zero(t, r.Len())
}

func TestListAll(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		r.Admit(newSession(fmt.Sprintf("CP%03d", i)))
	}

	assert.Len(t, r.ListAll(), 5)
}

func TestConcurrentAdmitSameIdentity(t *testing.T) {
	r := New()
	const n = 32

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Admit(newSession("CP001"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
}
