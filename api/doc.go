// Package api provides the HTTP endpoints of the Battleship server.
//
// Games are played over the WebSocket at /ws; the REST endpoints are read
// only and never reveal ship positions.
//
// Endpoints:
//   - GET /api/health - Liveness with session and client counts
//   - GET /api/rules - Board size, fleet composition and symbols
//   - GET /api/sessions - List games (optional ?status= filter)
//   - GET /api/sessions/{id} - Game summary
//   - GET /api/sessions/{id}/state - Spectator view, both grids fogged
//   - GET /api/queue - Players waiting for a match
//   - GET /ws - WebSocket upgrade
//
// Errors are returned as JSON with an HTTP status derived from the error
// code:
//
//	{
//	  "error": "session abc123: session not found",
//	  "code": "session_not_found"
//	}
package api
