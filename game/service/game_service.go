package service

import (
	"context"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	NewSession(ctx context.Context, playerID string, fleet [][]engine.Coordinate, out session.Outbox) (*SessionInfo, error)
	JoinSession(ctx context.Context, sessionID, playerID string, fleet [][]engine.Coordinate, out session.Outbox) (*JoinResult, error)
	ListSessions(ctx context.Context) ([]engine.Summary, error)
	GetSession(ctx context.Context, sessionID string) (*engine.Summary, error)

	// Matchmaking
	Enqueue(ctx context.Context, playerID string, fleet [][]engine.Coordinate, out session.Outbox) (*QueueResult, error)
	LeaveQueue(ctx context.Context, playerID string) (bool, error)
	QueueStatus(ctx context.Context) (*QueueStatus, error)

	// Game Operations
	Turn(ctx context.Context, sessionID, playerID string, target engine.Coordinate) (*TurnResult, error)
	State(ctx context.Context, sessionID, playerID string) (*engine.View, error)

	// Connection lifecycle
	OnDisconnect(ctx context.Context, playerID string)
}
