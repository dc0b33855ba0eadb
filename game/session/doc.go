// Package session is the registry of live Battleship games.
//
// The session package implements:
//   - Thread-safe storage of games keyed by 6-character session ids
//   - The player index (a player is in at most one session)
//   - Connection bindings (two outboxes per session)
//   - The FIFO matchmaking queue
//
// Core Types:
//
// Manager owns all registry state behind a single reader/writer lock.
// Compound operations run inside Update or View closures so that a lookup,
// a move and the resolution of both connections happen atomically.
//
// Outbox is the outbound half of a connection. Pushes never block: a client
// whose buffer is full is dropped.
//
// Usage:
//
//	manager := session.NewManager()
//	id := manager.CreateSession()
//
//	err := manager.Update(func(tx *session.Tx) error {
//		game, err := tx.GetSession(id)
//		if err != nil {
//			return err
//		}
//		if err := game.Join("alice", fleet); err != nil {
//			return err
//		}
//		return tx.BindPlayer("alice", id)
//	})
//
// Events are pushed after the closure returns; nothing inside a transaction
// performs I/O.
package session
