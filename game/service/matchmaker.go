package service

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

// DefaultMatchInterval is how often the queue is drained
const DefaultMatchInterval = time.Second

// Matchmaker pairs queued players on a fixed interval. Each tick makes at
// most one pairing attempt; ticks that form no pair tell the waiting
// players their position instead.
type Matchmaker struct {
	sessions  *session.Manager
	interval  time.Duration
	publisher Publisher
	logger    hclog.Logger
}

// NewMatchmaker creates a matchmaker over the given registry
func NewMatchmaker(sessions *session.Manager, interval time.Duration, publisher Publisher, logger hclog.Logger) *Matchmaker {
	if interval <= 0 {
		interval = DefaultMatchInterval
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Matchmaker{
		sessions:  sessions,
		interval:  interval,
		publisher: publisher,
		logger:    logger,
	}
}

// Run drains the queue once per interval until ctx is cancelled
func (m *Matchmaker) Run(ctx context.Context) {
	m.logger.Info("matchmaker started", "interval", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("matchmaker stopped")
			return
		case <-ticker.C:
			if _, err := m.DrainOnce(ctx); err != nil {
				m.logger.Error("pairing failed", "error", err)
			}
		}
	}
}

// DrainOnce pairs the two oldest queued players if there are two. Both
// receive match_found followed by their own view of the new game.
func (m *Matchmaker) DrainOnce(ctx context.Context) (*session.Match, error) {
	var (
		match   *session.Match
		views   [2]engine.View
		waiting []session.QueueEntry
	)
	err := m.sessions.Update(func(tx *session.Tx) error {
		var err error
		match, err = tx.PairNext()
		if err != nil {
			return err
		}
		if match == nil {
			waiting = tx.Waiting()
			return nil
		}
		game, err := tx.GetSession(match.SessionID)
		if err != nil {
			return err
		}
		views[0] = game.View(match.First.PlayerID)
		views[1] = game.View(match.Second.PlayerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if match == nil {
		for i, e := range waiting {
			e.Outbox.Push(session.Event{
				Type:    session.EventQueueStatus,
				Payload: QueuePosition{Position: i + 1, Waiting: len(waiting)},
			})
		}
		return nil, nil
	}

	seats := [2]session.QueueEntry{match.First, match.Second}
	for i, e := range seats {
		opponent := seats[1-i].PlayerID
		e.Outbox.Push(session.Event{
			Type:      session.EventMatchFound,
			SessionID: match.SessionID,
			Payload:   MatchFound{SessionID: match.SessionID, Opponent: opponent, Slot: i + 1},
		})
		e.Outbox.Push(session.Event{Type: session.EventState, SessionID: match.SessionID, Payload: views[i]})
	}

	m.logger.Info("match found", "session", match.SessionID, "first", match.First.PlayerID, "second", match.Second.PlayerID)
	publishLifecycle(ctx, m.publisher, m.logger, LifecycleEvent{
		Kind:      LifecycleMatchMade,
		SessionID: match.SessionID,
		Players:   []string{match.First.PlayerID, match.Second.PlayerID},
	})
	return match, nil
}
