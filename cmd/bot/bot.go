package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/service"
	"github.com/wricardo/mcp-training/battleship/game/session"
	ws "github.com/wricardo/mcp-training/battleship/transport/websocket"
)

// errClosed is returned when the server drops the connection mid game
var errClosed = errors.New("connection closed before game over")

type inbound struct {
	Type      session.EventType `json:"type"`
	SessionID string            `json:"session_id"`
	Payload   json.RawMessage   `json:"payload"`
}

// Result summarizes one game from the bot's side
type Result struct {
	SessionID string
	PlayerID  string
	Won       bool
	Shots     int
}

type bot struct {
	url    string
	rng    *rand.Rand
	logger hclog.Logger

	conn     *websocket.Conn
	playerID string
	session  string
	tried    map[engine.Coordinate]bool
	shots    int
}

func newBot(url string, rng *rand.Rand, logger hclog.Logger) *bot {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &bot{
		url:    url,
		rng:    rng,
		logger: logger.With("bot", uuid.NewString()[:8]),
		tried:  make(map[engine.Coordinate]bool),
	}
}

// Play connects, queues for a match and plays until the server ends the game
func (b *bot) Play(ctx context.Context) (*Result, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", b.url, err)
	}
	b.conn = conn
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := b.send(ws.RequestConnect, nil); err != nil {
		return nil, err
	}

	res := &Result{}
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", errClosed, err)
		}

		done, err := b.handle(msg, res)
		if err != nil {
			return nil, err
		}
		if done {
			res.PlayerID = b.playerID
			res.Shots = b.shots
			return res, nil
		}
	}
}

// handle reacts to one server event and reports whether the game is over
func (b *bot) handle(msg inbound, res *Result) (bool, error) {
	switch msg.Type {
	case session.EventConnected:
		var p ws.ConnectedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false, err
		}
		b.playerID = p.PlayerID
		b.logger = b.logger.With("player", p.PlayerID)
		fleet := ws.FleetFromCoordinates(engine.RandomFleet(b.rng))
		return false, b.send(ws.RequestEnqueue, ws.FleetPayload{Fleet: fleet})

	case session.EventQueued, session.EventQueueStatus:
		b.logger.Debug("waiting for opponent", "event", msg.Type)

	case session.EventMatchFound:
		b.session = msg.SessionID
		res.SessionID = msg.SessionID
		b.logger.Info("match found", "session", msg.SessionID)

	case session.EventState:
		var view engine.View
		if err := json.Unmarshal(msg.Payload, &view); err != nil {
			return false, err
		}
		return false, b.maybeShoot(view)

	case session.EventTurn:
		var turn service.TurnResult
		if err := json.Unmarshal(msg.Payload, &turn); err != nil {
			return false, err
		}
		b.logger.Trace("shot", "outcome", turn.Outcome)
		if turn.Finished {
			return false, nil
		}
		return false, b.maybeShoot(turn.View)

	case session.EventGameOver:
		var over service.GameOver
		if err := json.Unmarshal(msg.Payload, &over); err != nil {
			return false, err
		}
		res.Won = over.Winner == b.playerID

	case session.EventOpponentLeft:
		b.logger.Info("opponent left", "session", msg.SessionID)
		res.Won = true

	case session.EventDisconnect:
		return true, nil

	case session.EventError:
		var p service.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false, err
		}
		if p.Code == service.CodeNotYourTurn {
			return false, nil
		}
		return false, fmt.Errorf("server error %s: %s", p.Code, p.Message)
	}
	return false, nil
}

func (b *bot) maybeShoot(view engine.View) error {
	if view.Status != engine.StatusInProgress || view.Action != engine.ActionShoot {
		return nil
	}
	target, ok := b.nextTarget()
	if !ok {
		return errors.New("no cells left to fire at")
	}
	b.tried[target] = true
	b.shots++
	return b.send(ws.RequestTurn, ws.TurnPayload{GameID: b.session, X: target.X, Y: target.Y})
}

// nextTarget picks a random cell not fired at yet
func (b *bot) nextTarget() (engine.Coordinate, bool) {
	free := make([]engine.Coordinate, 0, engine.BoardSize*engine.BoardSize-len(b.tried))
	for y := 0; y < engine.BoardSize; y++ {
		for x := 0; x < engine.BoardSize; x++ {
			c := engine.Coordinate{X: x, Y: y}
			if !b.tried[c] {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return engine.Coordinate{}, false
	}
	return free[b.rng.IntN(len(free))], true
}

func (b *bot) send(kind string, payload any) error {
	req := ws.Request{Type: kind}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req.Payload = data
	}
	if err := b.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}
