// Package session implements the per-user session lifecycle of the Fruitbot
// server: the registry of identities, the game session state machine, and
// the fixed-cadence tick loop that drives each active session.
//
// The session package implements:
//   - Thread-safe mapping of logical users to sessions and of transport
//     connections to logical users
//   - Single-owner enforcement: at most one live session and one live tick
//     loop per user at any instant
//   - Session replacement that fully retires the predecessor (loop canceled
//     and awaited, engine released) before installing the successor
//   - The 15 Hz tick loop with warm-up, idle backoff, and drop-don't-queue
//     overload behavior
//   - Stale-session sweeping for the idle reaper
//
// Identity model:
//
// A logical user is the opaque player name supplied at game start. A
// connection is a transport-assigned ID valid for one physical connection.
// Many connections may map to one user (multiple tabs); each connection maps
// to at most one user.
//
// Concurrency:
//
// The registry's map mutex is held only for short critical sections. Per-user
// lifecycle mutexes serialize create/replace/retire per user so that loop
// termination is never awaited under the map lock and concurrent starts for
// the same user cannot both install a session. An engine instance is only
// ever touched by its session's tick loop, and transiently by the registry
// during creation and retirement.
//
// Failure isolation:
//
// An engine error terminates that user's loop and retires that user's
// session (loop, engine, and registry entry) without affecting any other
// user or the process.
package session
