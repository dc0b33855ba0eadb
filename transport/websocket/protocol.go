package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/service"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

// Request types sent by clients
const (
	RequestConnect    = "connect"
	RequestCreateGame = "create_game"
	RequestJoin       = "join"
	RequestEnqueue    = "enqueue"
	RequestTurn       = "turn"
	RequestState      = "state"
	RequestLeaveQueue = "leave_queue"
)

// Request is the envelope of every client message
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Fleet is the wire form of a fleet: a list of ships, each a list of [x, y]
// pairs
type Fleet [][][2]int

// Coordinates converts the wire fleet to engine coordinates
func (f Fleet) Coordinates() [][]engine.Coordinate {
	ships := make([][]engine.Coordinate, 0, len(f))
	for _, ship := range f {
		cells := make([]engine.Coordinate, 0, len(ship))
		for _, c := range ship {
			cells = append(cells, engine.Coordinate{X: c[0], Y: c[1]})
		}
		ships = append(ships, cells)
	}
	return ships
}

// FleetFromCoordinates converts engine coordinates to the wire fleet
func FleetFromCoordinates(ships [][]engine.Coordinate) Fleet {
	fleet := make(Fleet, 0, len(ships))
	for _, ship := range ships {
		cells := make([][2]int, 0, len(ship))
		for _, c := range ship {
			cells = append(cells, [2]int{c.X, c.Y})
		}
		fleet = append(fleet, cells)
	}
	return fleet
}

// FleetPayload is the body of create_game and enqueue
type FleetPayload struct {
	Fleet Fleet `json:"fleet"`
}

// JoinPayload is the body of join
type JoinPayload struct {
	GameID string `json:"game_id"`
	Fleet  Fleet  `json:"fleet"`
}

// TurnPayload is the body of turn
type TurnPayload struct {
	GameID string `json:"game_id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// StatePayload is the body of state
type StatePayload struct {
	GameID string `json:"game_id"`
}

// ConnectedPayload answers connect
type ConnectedPayload struct {
	PlayerID string `json:"player_id"`
}

// handle dispatches one request. Replies that the service delivers itself
// are not written here.
func (c *Client) handle(ctx context.Context, req Request) error {
	svc := c.hub.svc

	switch req.Type {
	case RequestConnect:
		c.reply(session.Event{Type: session.EventConnected, Payload: ConnectedPayload{PlayerID: c.playerID}})
		return nil

	case RequestCreateGame:
		var p FleetPayload
		if err := decode(req, &p); err != nil {
			return err
		}
		info, err := svc.NewSession(ctx, c.playerID, p.Fleet.Coordinates(), c.outbox())
		if err != nil {
			return err
		}
		c.reply(session.Event{Type: session.EventGameCreated, SessionID: info.ID, Payload: info})
		return nil

	case RequestJoin:
		var p JoinPayload
		if err := decode(req, &p); err != nil {
			return err
		}
		_, err := svc.JoinSession(ctx, p.GameID, c.playerID, p.Fleet.Coordinates(), c.outbox())
		return err

	case RequestEnqueue:
		var p FleetPayload
		if err := decode(req, &p); err != nil {
			return err
		}
		_, err := svc.Enqueue(ctx, c.playerID, p.Fleet.Coordinates(), c.outbox())
		return err

	case RequestTurn:
		var p TurnPayload
		if err := decode(req, &p); err != nil {
			return err
		}
		_, err := svc.Turn(ctx, p.GameID, c.playerID, engine.Coordinate{X: p.X, Y: p.Y})
		return err

	case RequestState:
		var p StatePayload
		if err := decode(req, &p); err != nil {
			return err
		}
		view, err := svc.State(ctx, p.GameID, c.playerID)
		if err != nil {
			return err
		}
		c.reply(session.Event{Type: session.EventState, SessionID: p.GameID, Payload: view})
		return nil

	case RequestLeaveQueue:
		if _, err := svc.LeaveQueue(ctx, c.playerID); err != nil {
			return err
		}
		c.reply(session.Event{Type: session.EventQueued, Payload: service.QueueResult{Queued: false}})
		return nil

	default:
		return fmt.Errorf("unknown request type %q: %w", req.Type, engine.ErrBadRequest)
	}
}

func decode(req Request, v any) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("%s: missing payload: %w", req.Type, engine.ErrBadRequest)
	}
	if err := json.Unmarshal(req.Payload, v); err != nil {
		return fmt.Errorf("%s: %v: %w", req.Type, err, engine.ErrBadRequest)
	}
	return nil
}
