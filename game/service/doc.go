// Package service provides the operations clients invoke on the Battleship
// server.
//
// The service package implements:
//   - Game creation and joining with fleet validation
//   - Turn processing and state views
//   - The matchmaking queue and its periodic drain
//   - Connection cleanup on disconnect
//
// Core Types:
//
// GameService is the interface used by the transports. Operations run as
// transactions on a session.Manager and push events to the bound outboxes
// after the registry lock is released.
//
// Matchmaker runs in its own goroutine and pairs the two oldest queued
// players once per interval.
//
// Publisher receives lifecycle events (session created, match made, game
// finished) for delivery outside the process.
//
// Usage:
//
//	sessions := session.NewManager()
//	svc := service.NewGameService(sessions, nil, logger)
//	mm := service.NewMatchmaker(sessions, time.Second, nil, logger)
//	go mm.Run(ctx)
//
//	info, err := svc.NewSession(ctx, playerID, fleet, outbox)
//
// Error codes:
//
// ErrorCode maps the engine and session sentinel errors to the codes sent in
// error responses (invalid_composition, bad_request, session_not_found,
// session_full, already_in_session, not_your_turn).
package service
