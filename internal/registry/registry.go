// Connection registry: the process-wide table of live charge-point sessions,
// keyed by identity. All mutation goes through Admit/RemoveIfSame so the
// at-most-one-session-per-identity invariant holds.
package registry

import (
	"ev/ocpp/gateway/internal/session"

	"github.com/puzpuzpuz/xsync/v3"
)

type ConnectionRegistry struct {
	sessions *xsync.MapOf[string, *session.Session]
}

func New() *ConnectionRegistry {
	return &ConnectionRegistry{sessions: xsync.NewMapOf[string, *session.Session]()}
}

// Admit stores the session as the live one for its identity and returns the
// session it displaced, if any. The swap happens atomically under the map's
// key lock; the caller closes the evicted session's socket outside of it.
func (r *ConnectionRegistry) Admit(s *session.Session) (evicted *session.Session) {
	r.sessions.Compute(s.Identity(), func(current *session.Session, loaded bool) (*session.Session, bool) {
		if loaded && current != s {
			evicted = current
		}
		return s, false
	})
	return evicted
}

func (r *ConnectionRegistry) Lookup(identity string) (*session.Session, bool) {
	return r.sessions.Load(identity)
}

// RemoveIfSame removes the registry entry only when it still holds the given
// session. A stale connection's close handler therefore cannot evict the
// session that replaced it.
func (r *ConnectionRegistry) RemoveIfSame(s *session.Session) bool {
	removed := false
	r.sessions.Compute(s.Identity(), func(current *session.Session, loaded bool) (*session.Session, bool) {
		if !loaded {
			return nil, true
		}
		if current != s {
			return current, false
		}
		removed = true
		return nil, true
	})
	return removed
}

func (r *ConnectionRegistry) ListAll() []*session.Session {
	all := make([]*session.Session, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s *session.Session) bool {
		all = append(all, s)
		return true
	})
	return all
}

func (r *ConnectionRegistry) Len() int {
	return r.sessions.Size()
}
