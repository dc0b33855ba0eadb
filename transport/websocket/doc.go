// Package websocket provides the WebSocket transport for the Battleship
// server.
//
// Architecture:
//
// The Hub upgrades each request and assigns the connection a fresh player
// id (a UUID). Every Client runs a read pump and a write pump linked through
// a cancelable context: when either stops, the other is cancelled, the socket
// is closed and the game service is told the player disconnected.
//
// Outbound events travel through a bounded channel. The service pushes into
// it without blocking; a client that lets it fill up is dropped.
//
// Message Protocol:
//
// Requests are JSON envelopes {"type": ..., "payload": ...}:
//   - connect
//   - create_game {fleet}
//   - join {game_id, fleet}
//   - enqueue {fleet}
//   - turn {game_id, x, y}
//   - state {game_id}
//   - leave_queue
//
// A fleet is a list of ships, each a list of [x, y] pairs.
//
// Responses and pushes share one envelope {"type", "session_id", "payload"}.
// Failed requests are answered with {"type": "error", "payload": {"code",
// "message"}}. A "disconnect" event is always the last message before the
// server closes the socket.
//
// Usage:
//
//	hub := websocket.NewHub(gameService, 32, logger.Named("ws"))
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
