// Package mcp exposes the Battleship server to AI agents over the Model
// Context Protocol.
//
// The client is a thin proxy: every tool calls the REST API and formats the
// JSON response as text. It is read only and sees games the way a spectator
// does, so ship positions are never revealed.
//
// MCP Tools:
//   - list_sessions: live games, optionally filtered by status
//   - get_session: summary of one game
//   - session_state: both boards of a game, fogged
//   - queue_status: players waiting for a match
//   - game_rules: board size, fleet composition, symbols and turn rules
//
// Transport Modes:
//   - Stdio: `battleship stdio-mcp` serves the tools on stdin/stdout
//   - HTTP: the server mounts the same tools at POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
