// Package engine provides the board, fleet and turn rules of the battleship game.
//
// The engine package implements:
//   - Fleet validation (four 1-deck, three 2-deck, two 3-deck and one 4-deck ship)
//   - Shot resolution with miss, hit, sunk and already-resolved outcomes
//   - The per-game state machine: waiting_for_players, in_progress, finished
//   - Fog-of-war rendering of both boards for a single requester
//
// Core Types:
//
// Board holds one player's 10x10 grid and fleet. Ships live in a per-board
// slice and every occupied cell stores the index of its ship, so a shot
// always mutates exactly one ship. Game owns two boards, the turn holder and
// the lifecycle status.
//
// Usage:
//
//	game := engine.NewGame("a1b2c3")
//	if err := game.Join("alice", aliceFleet); err != nil {
//		return err
//	}
//	if err := game.Join("bob", bobFleet); err != nil {
//		return err
//	}
//
//	outcome, err := game.Fire(game.Turn(), engine.Coordinate{X: 3, Y: 4})
//	view := game.View("alice")
//
// Game Rules:
//
// A miss passes the turn to the opponent. A hit or a sink keeps the turn, and
// so does a repeated shot at a cell that was already resolved. The game is
// finished when all twenty ship cells of one player are hit.
//
// Neither Board nor Game is safe for concurrent use. The session registry
// serialises every access behind a single lock.
package engine
