// Package score persists final episode scores.
//
// The sink is an append-only collaborator of the tick loop: when an episode
// finishes, the loop records the player's final score. Recording is strictly
// best-effort: failures are logged by the caller and never interrupt frame
// delivery or episode-finished notification.
//
// The SQLite implementation writes to the same table layout the deployment
// this server replaces used, so historical rows remain queryable.
package score
