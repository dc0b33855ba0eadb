package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

// gameServiceImpl implements the GameService interface.
//
// Replies to Enqueue, JoinSession and Turn are delivered through the
// caller's outbox together with the pushes they cause, so a client always
// sees its reply before the events that follow from it. Callers of those
// methods only report errors themselves.
type gameServiceImpl struct {
	sessions  *session.Manager
	publisher Publisher
	logger    hclog.Logger
}

// NewGameService creates a new game service instance
func NewGameService(sessions *session.Manager, publisher Publisher, logger hclog.Logger) GameService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &gameServiceImpl{
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// NewSession creates a game with the caller in slot 1
func (s *gameServiceImpl) NewSession(ctx context.Context, playerID string, fleet [][]engine.Coordinate, out session.Outbox) (*SessionInfo, error) {
	if err := engine.ValidateFleet(fleet); err != nil {
		return nil, err
	}

	var info *SessionInfo
	err := s.sessions.Update(func(tx *session.Tx) error {
		if err := checkFree(&tx.ReadTx, playerID); err != nil {
			return err
		}

		id := tx.CreateSession()
		game, err := tx.GetSession(id)
		if err != nil {
			return err
		}
		if err := game.Join(playerID, fleet); err != nil {
			tx.RemoveSession(id)
			return err
		}
		if err := tx.BindPlayer(playerID, id); err != nil {
			tx.RemoveSession(id)
			return err
		}
		out.PlayerID = playerID
		if err := tx.Bind(id, out); err != nil {
			tx.RemoveSession(id)
			return err
		}

		info = &SessionInfo{ID: id, Status: game.Status(), Players: game.Players()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created", "session", info.ID, "player", playerID)
	s.publish(ctx, LifecycleEvent{Kind: LifecycleSessionCreated, SessionID: info.ID, Players: info.Players})
	return info, nil
}

// JoinSession seats the caller in slot 2 and starts the game
func (s *gameServiceImpl) JoinSession(ctx context.Context, sessionID, playerID string, fleet [][]engine.Coordinate, out session.Outbox) (*JoinResult, error) {
	out.PlayerID = playerID

	var (
		result  *JoinResult
		started *GameStarted
		views   = make(map[string]engine.View, 2)
		peers   []session.Outbox
	)
	err := s.sessions.Update(func(tx *session.Tx) error {
		game, err := tx.GetSession(sessionID)
		if err != nil {
			return err
		}
		if err := checkFree(&tx.ReadTx, playerID); err != nil {
			return err
		}
		if err := game.Join(playerID, fleet); err != nil {
			return err
		}
		if err := tx.BindPlayer(playerID, sessionID); err != nil {
			return err
		}
		if err := tx.Bind(sessionID, out); err != nil {
			return err
		}

		result = &JoinResult{SessionID: sessionID, Status: game.Status()}
		if game.Status() == engine.StatusInProgress {
			started = &GameStarted{SessionID: sessionID, Players: game.Players(), Turn: game.Turn()}
			for _, p := range game.Players() {
				views[p] = game.View(p)
			}
			peers = tx.Outboxes(sessionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Push(session.Event{Type: session.EventJoined, SessionID: sessionID, Payload: result})
	if started != nil {
		for _, peer := range peers {
			peer.Push(session.Event{Type: session.EventGameStarted, SessionID: sessionID, Payload: started})
			peer.Push(session.Event{Type: session.EventState, SessionID: sessionID, Payload: views[peer.PlayerID]})
		}
		s.logger.Info("game started", "session", sessionID, "players", started.Players, "turn", started.Turn)
	}

	s.publish(ctx, LifecycleEvent{Kind: LifecyclePlayerJoined, SessionID: sessionID, Players: []string{playerID}})
	return result, nil
}

// ListSessions returns summaries of all live games
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]engine.Summary, error) {
	return s.sessions.List(), nil
}

// GetSession returns a summary of one game
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*engine.Summary, error) {
	summary, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Enqueue adds the caller to the matchmaking queue
func (s *gameServiceImpl) Enqueue(ctx context.Context, playerID string, fleet [][]engine.Coordinate, out session.Outbox) (*QueueResult, error) {
	if err := engine.ValidateFleet(fleet); err != nil {
		return nil, err
	}

	// Only this connection can change whether its player is free, so the
	// check stays valid until the entry is appended below. The reply is
	// pushed first so it cannot trail a match found on the next tick.
	position := 0
	err := s.sessions.View(func(tx *session.ReadTx) error {
		if err := checkFree(tx, playerID); err != nil {
			return err
		}
		position = len(tx.Waiting()) + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := QueueResult{Queued: true, Position: position}
	out.Push(session.Event{Type: session.EventQueued, Payload: result})

	err = s.sessions.Update(func(tx *session.Tx) error {
		return tx.Enqueue(session.QueueEntry{PlayerID: playerID, Fleet: fleet, Outbox: out})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("player queued", "player", playerID, "position", result.Position)
	return &result, nil
}

// LeaveQueue removes the caller from the matchmaking queue
func (s *gameServiceImpl) LeaveQueue(ctx context.Context, playerID string) (bool, error) {
	removed := false
	s.sessions.Update(func(tx *session.Tx) error {
		removed = tx.RemoveQueued(playerID)
		return nil
	})
	if removed {
		s.logger.Debug("player left queue", "player", playerID)
	}
	return removed, nil
}

// QueueStatus describes who is waiting for a match
func (s *gameServiceImpl) QueueStatus(ctx context.Context) (*QueueStatus, error) {
	status := &QueueStatus{Players: []QueuedEntry{}}
	s.sessions.View(func(tx *session.ReadTx) error {
		for i, e := range tx.Waiting() {
			status.Players = append(status.Players, QueuedEntry{
				PlayerID:   e.PlayerID,
				Position:   i + 1,
				EnqueuedAt: e.EnqueuedAt,
			})
		}
		return nil
	})
	status.Waiting = len(status.Players)
	return status, nil
}

// Turn fires the caller's shot and notifies both players
func (s *gameServiceImpl) Turn(ctx context.Context, sessionID, playerID string, target engine.Coordinate) (*TurnResult, error) {
	if !target.InBounds() {
		return nil, fmt.Errorf("target %s outside %dx%d board: %w", target, engine.BoardSize, engine.BoardSize, engine.ErrBadRequest)
	}

	var (
		result       *TurnResult
		opponentView engine.View
		self, other  session.Outbox
		players      []string
	)
	err := s.sessions.Update(func(tx *session.Tx) error {
		game, err := tx.GetSession(sessionID)
		if err != nil {
			return err
		}
		outcome, err := game.Fire(playerID, target)
		if err != nil {
			return err
		}

		result = &TurnResult{
			SessionID: sessionID,
			Outcome:   outcome,
			View:      game.View(playerID),
			Finished:  game.Status() == engine.StatusFinished,
			Winner:    game.Winner(),
		}
		opponent, _ := game.Opponent(playerID)
		opponentView = game.View(opponent)
		self, _ = tx.Outbox(sessionID, playerID)
		other, _ = tx.Outbox(sessionID, opponent)
		players = game.Players()
		return nil
	})
	if err != nil {
		return nil, err
	}

	self.Push(session.Event{Type: session.EventTurn, SessionID: sessionID, Payload: result})
	other.Push(session.Event{Type: session.EventState, SessionID: sessionID, Payload: opponentView})

	s.publish(ctx, LifecycleEvent{Kind: LifecycleShotFired, SessionID: sessionID, Players: []string{playerID}, Detail: result.Outcome})

	if result.Finished {
		over := GameOver{SessionID: sessionID, Winner: result.Winner}
		for _, o := range []session.Outbox{self, other} {
			o.Push(session.Event{Type: session.EventGameOver, SessionID: sessionID, Payload: over})
			o.Push(session.Event{Type: session.EventDisconnect, SessionID: sessionID, Payload: Disconnect{Reason: "game over"}})
		}
		s.logger.Info("game finished", "session", sessionID, "winner", result.Winner)
		s.publish(ctx, LifecycleEvent{Kind: LifecycleGameFinished, SessionID: sessionID, Players: players, Detail: over})
	}

	return result, nil
}

// State renders the game for the caller. A game that no longer exists is
// reported as finished. Callers who are not seated get the spectator view.
func (s *gameServiceImpl) State(ctx context.Context, sessionID, playerID string) (*engine.View, error) {
	view := engine.View{Status: engine.StatusFinished}
	s.sessions.View(func(tx *session.ReadTx) error {
		game, err := tx.GetSession(sessionID)
		if err != nil {
			return nil
		}
		requester := playerID
		if !game.HasPlayer(playerID) {
			requester = ""
		}
		view = game.View(requester)
		return nil
	})
	return &view, nil
}

// OnDisconnect releases everything held by a departed player. The opponent
// of an unfinished game is told and disconnected.
func (s *gameServiceImpl) OnDisconnect(ctx context.Context, playerID string) {
	var (
		sessionID string
		finished  bool
		dequeued  bool
		players   []string
		siblings  []session.Outbox
	)
	s.sessions.Update(func(tx *session.Tx) error {
		dequeued = tx.RemoveQueued(playerID)

		id, ok := tx.SessionOf(playerID)
		if !ok {
			return nil
		}
		if game, err := tx.GetSession(id); err == nil {
			players = game.Players()
		}
		finished = tx.IsFinished(id)
		bound, err := tx.RemoveSession(id)
		if err != nil {
			return err
		}
		sessionID = id
		for _, o := range bound {
			if o.PlayerID != playerID {
				siblings = append(siblings, o)
			}
		}
		return nil
	})

	if dequeued {
		s.logger.Debug("queued player disconnected", "player", playerID)
	}
	if sessionID == "" {
		return
	}

	if !finished {
		for _, o := range siblings {
			o.Push(session.Event{Type: session.EventOpponentLeft, SessionID: sessionID, Payload: OpponentLeft{SessionID: sessionID, PlayerID: playerID}})
			o.Push(session.Event{Type: session.EventDisconnect, SessionID: sessionID, Payload: Disconnect{Reason: "opponent left"}})
		}
	}

	s.logger.Info("session closed", "session", sessionID, "player", playerID, "finished", finished)
	s.publish(ctx, LifecycleEvent{Kind: LifecycleSessionClosed, SessionID: sessionID, Players: players})
}

func (s *gameServiceImpl) publish(ctx context.Context, ev LifecycleEvent) {
	publishLifecycle(ctx, s.publisher, s.logger, ev)
}

func publishLifecycle(ctx context.Context, publisher Publisher, logger hclog.Logger, ev LifecycleEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := publisher.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish lifecycle event", "kind", ev.Kind, "session", ev.SessionID, "error", err)
	}
}

// checkFree rejects players that are queued or already seated
func checkFree(tx *session.ReadTx, playerID string) error {
	if playerID == "" {
		return fmt.Errorf("empty player id: %w", engine.ErrBadRequest)
	}
	if id, ok := tx.SessionOf(playerID); ok {
		return fmt.Errorf("player %s in session %s: %w", playerID, id, engine.ErrAlreadyInSession)
	}
	if tx.Queued(playerID) {
		return fmt.Errorf("player %s is queued: %w", playerID, engine.ErrAlreadyInSession)
	}
	return nil
}
