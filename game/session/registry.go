package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/inconshreveable/log15"

	"github.com/arcadelab/fruitbot-server/game/config"
	"github.com/arcadelab/fruitbot-server/game/engine"
)

// Registry owns the identity maps of the server: logical user to session,
// transport connection to logical user, and the per-user tick loop handles.
//
// Locking discipline: the registry mutex guards the maps and is held only for
// short critical sections, never across engine work or loop termination.
// Per-user lifecycle mutexes serialize session creation, replacement, and
// retirement for one user, so no two concurrent start requests can both
// install a session and no loop is ever awaited under the map lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	conns    map[string]string
	loops    map[string]*loopHandle
	userMu   map[string]*userLock

	mode config.InputMode
	log  log15.Logger
}

type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// userLock is a refcounted lifecycle mutex. The refcount tracks goroutines
// that hold or are waiting for the mutex; the map entry is removed when it
// drops to zero, so retired users leave nothing behind.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewRegistry creates an empty registry. All sessions it creates share the
// given input mode.
func NewRegistry(mode config.InputMode, log log15.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		conns:    make(map[string]string),
		loops:    make(map[string]*loopHandle),
		userMu:   make(map[string]*userLock),
		mode:     mode,
		log:      log,
	}
}

// lockUser acquires the lifecycle mutex for a user, creating it on demand.
// Every lockUser must be paired with unlockUser on the same returned lock.
func (r *Registry) lockUser(userID string) *userLock {
	r.mu.Lock()
	ul, ok := r.userMu[userID]
	if !ok {
		ul = &userLock{}
		r.userMu[userID] = ul
	}
	ul.refs++
	r.mu.Unlock()

	ul.mu.Lock()
	return ul
}

// unlockUser releases the lifecycle mutex and removes the map entry once no
// goroutine holds or awaits it. A waiter always has a positive refcount, so
// only an entry nobody can still reach is removed.
func (r *Registry) unlockUser(userID string, ul *userLock) {
	ul.mu.Unlock()

	r.mu.Lock()
	ul.refs--
	if ul.refs == 0 && r.userMu[userID] == ul {
		delete(r.userMu, userID)
	}
	r.mu.Unlock()
}

// Bind associates a connection with a logical user. Existing bindings for
// other connections of the same user are left alone, so multiple tabs can
// share one user's frame stream.
func (r *Registry) Bind(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = userID
}

// BindExclusive associates a connection with a logical user and unbinds every
// other connection of that user, returning the unbound connection IDs so the
// transport can be told to disconnect them. Used when a game start should
// yield a single authoritative connection.
func (r *Registry) BindExclusive(connID, userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for c, u := range r.conns {
		if u == userID && c != connID {
			delete(r.conns, c)
			evicted = append(evicted, c)
		}
	}
	r.conns[connID] = userID
	return evicted
}

// Unbind removes a connection's binding. It returns the user the connection
// belonged to (empty if it was unbound) and how many of that user's
// connections remain, so the caller can decide whether to retire the session.
func (r *Registry) Unbind(connID string) (userID string, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.conns[connID]
	if !ok {
		return "", 0
	}
	delete(r.conns, connID)
	for _, u := range r.conns {
		if u == userID {
			remaining++
		}
	}
	return userID, remaining
}

// UserFor resolves a connection to its logical user.
func (r *Registry) UserFor(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.conns[connID]
	return userID, ok
}

// ConnectionsFor returns every connection currently bound to a user.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conns []string
	for c, u := range r.conns {
		if u == userID {
			conns = append(conns, c)
		}
	}
	return conns
}

// ActiveUsers returns the set of users with at least one bound connection.
func (r *Registry) ActiveUsers() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make(map[string]struct{}, len(r.conns))
	for _, u := range r.conns {
		active[u] = struct{}{}
	}
	return active
}

// Counts reports bound connections and live sessions, for health reporting.
func (r *Registry) Counts() (conns, sessions int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns), len(r.sessions)
}

// Session returns the live session for a user, if any.
func (r *Registry) Session(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

// Snapshots returns observability views of every live session.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	users := make([]string, 0, len(r.sessions))
	sessions := make([]*Session, 0, len(r.sessions))
	for u, s := range r.sessions {
		users = append(users, u)
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	snaps := make([]Snapshot, 0, len(sessions))
	for i, s := range sessions {
		snap := s.Snapshot()
		snap.UserID = users[i]
		snaps = append(snaps, snap)
	}
	return snaps
}

// GetOrCreateSession returns the existing session for a user or builds a new
// one from the factory. The bool reports whether a session was created.
func (r *Registry) GetOrCreateSession(userID string, factory engine.Factory) (*Session, bool, error) {
	ul := r.lockUser(userID)
	defer r.unlockUser(userID, ul)

	r.mu.Lock()
	sess, ok := r.sessions[userID]
	r.mu.Unlock()
	if ok {
		return sess, false, nil
	}

	sess, err := r.installLocked(userID, factory)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// ReplaceSession retires any prior session for the user (stopping its loop,
// awaiting termination, and releasing its engine) before installing a fresh
// one. This is the start_game path: afterwards exactly one engine instance
// exists for the user.
func (r *Registry) ReplaceSession(userID string, factory engine.Factory) (*Session, error) {
	ul := r.lockUser(userID)
	defer r.unlockUser(userID, ul)

	r.retireUserLocked(userID)
	return r.installLocked(userID, factory)
}

// installLocked builds and installs a session. Caller holds the user lock.
func (r *Registry) installLocked(userID string, factory engine.Factory) (*Session, error) {
	eng, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create engine for %s: %w", userID, err)
	}
	sess := New(eng, r.mode)

	r.mu.Lock()
	r.sessions[userID] = sess
	r.mu.Unlock()

	r.log.Debug("installed session", "user", userID)
	return sess, nil
}

// RetireSession stops the user's loop, awaits its termination, releases the
// engine, and drops the session. Calling it for an absent user is a no-op.
func (r *Registry) RetireSession(userID string) {
	r.retire(userID, nil)
}

// retire tears down the user's session. When onlyIf is non-nil the teardown
// only proceeds if that handle is still the user's current loop. This lets a
// failed loop retire its own session without racing a concurrent restart.
func (r *Registry) retire(userID string, onlyIf *loopHandle) {
	ul := r.lockUser(userID)
	defer r.unlockUser(userID, ul)

	if onlyIf != nil {
		r.mu.Lock()
		current := r.loops[userID]
		r.mu.Unlock()
		if current != onlyIf {
			return
		}
	}
	r.retireUserLocked(userID)
}

// retireUserLocked performs the teardown. Caller holds the user lock; the map
// lock is only taken to pop the entries, never across the await.
func (r *Registry) retireUserLocked(userID string) {
	r.mu.Lock()
	h := r.loops[userID]
	sess := r.sessions[userID]
	delete(r.loops, userID)
	delete(r.sessions, userID)
	r.mu.Unlock()

	if h != nil {
		h.cancel()
		<-h.done
	}
	if sess != nil {
		sess.SetRunning(false)
		released := sess.Release()
		r.log.Info("retired session", "user", userID, "engine_released", released)
	}
}

// HasLoop reports whether a tick loop is installed for the user.
func (r *Registry) HasLoop(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loops[userID]
	return ok
}

// StartLoop cancels and awaits any existing loop for the user, then starts
// run in a fresh goroutine with its own cancellation context. If run returns
// an error the user's session is retired; engine failures are fatal to that
// session only.
func (r *Registry) StartLoop(userID string, run func(ctx context.Context) error) {
	ul := r.lockUser(userID)
	defer r.unlockUser(userID, ul)

	r.mu.Lock()
	old := r.loops[userID]
	delete(r.loops, userID)
	r.mu.Unlock()
	if old != nil {
		old.cancel()
		<-old.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &loopHandle{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.loops[userID] = h
	r.mu.Unlock()

	go func() {
		err := run(ctx)
		close(h.done)
		if err != nil {
			r.log.Error("tick loop failed, retiring session", "user", userID, "err", err)
			r.retire(userID, h)
		}
	}()
}

// SweepStale retires every session whose user is not in the active set.
// Returns the number of sessions retired.
func (r *Registry) SweepStale(active map[string]struct{}) int {
	r.mu.Lock()
	var stale []string
	for u := range r.sessions {
		if _, ok := active[u]; !ok {
			stale = append(stale, u)
		}
	}
	r.mu.Unlock()

	for _, u := range stale {
		r.log.Info("sweeping stale session", "user", u)
		r.retire(u, nil)
	}
	return len(stale)
}

// RetireAll tears down every session, used during server shutdown.
func (r *Registry) RetireAll() {
	r.mu.Lock()
	users := make([]string, 0, len(r.sessions))
	for u := range r.sessions {
		users = append(users, u)
	}
	r.mu.Unlock()

	for _, u := range users {
		r.retire(u, nil)
	}
}
