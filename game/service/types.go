package service

import (
	"errors"
	"time"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

// SessionInfo is returned when a player creates a game
type SessionInfo struct {
	ID      string        `json:"id"`
	Status  engine.Status `json:"status"`
	Players []string      `json:"players"`
}

// JoinResult is returned when a player joins an existing game
type JoinResult struct {
	SessionID string        `json:"session_id"`
	Status    engine.Status `json:"status"`
}

// QueueResult is returned when a player enters the matchmaking queue
type QueueResult struct {
	Queued   bool `json:"queued"`
	Position int  `json:"position"`
}

// TurnResult describes a resolved shot from the shooter's point of view
type TurnResult struct {
	SessionID string             `json:"session_id"`
	Outcome   engine.ShotOutcome `json:"outcome"`
	View      engine.View        `json:"view"`
	Finished  bool               `json:"finished"`
	Winner    string             `json:"winner,omitempty"`
}

// QueueStatus describes the matchmaking queue
type QueueStatus struct {
	Waiting int           `json:"waiting"`
	Players []QueuedEntry `json:"players"`
}

// QueuedEntry is one waiting player
type QueuedEntry struct {
	PlayerID   string    `json:"player_id"`
	Position   int       `json:"position"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Push payloads

// MatchFound is pushed to both players when the matchmaker pairs them
type MatchFound struct {
	SessionID string `json:"session_id"`
	Opponent  string `json:"opponent"`
	Slot      int    `json:"slot"`
}

// GameStarted is pushed to both players when the second player is seated
type GameStarted struct {
	SessionID string   `json:"session_id"`
	Players   []string `json:"players"`
	Turn      string   `json:"turn"`
}

// GameOver is pushed to both players when a fleet is destroyed
type GameOver struct {
	SessionID string `json:"session_id"`
	Winner    string `json:"winner"`
}

// OpponentLeft is pushed to the remaining player when the other disconnects
type OpponentLeft struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
}

// Disconnect tells the client the server is closing the connection
type Disconnect struct {
	Reason string `json:"reason"`
}

// QueuePosition is pushed to waiting players on ticks that form no match
type QueuePosition struct {
	Position int `json:"position"`
	Waiting  int `json:"waiting"`
}

// ErrorPayload is the body of an error response
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeInvalidComposition = "invalid_composition"
	CodeBadRequest         = "bad_request"
	CodeSessionNotFound    = "session_not_found"
	CodeSessionFull        = "session_full"
	CodeAlreadyInSession   = "already_in_session"
	CodeNotYourTurn        = "not_your_turn"
	CodeInternal           = "internal"
)

// ErrorCode classifies err for clients
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidComposition):
		return CodeInvalidComposition
	case errors.Is(err, engine.ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, engine.ErrSessionFull):
		return CodeSessionFull
	case errors.Is(err, engine.ErrAlreadyInSession):
		return CodeAlreadyInSession
	case errors.Is(err, engine.ErrNotYourTurn):
		return CodeNotYourTurn
	default:
		return CodeInternal
	}
}

// NewErrorPayload builds the error response body for err
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Code: ErrorCode(err), Message: err.Error()}
}
