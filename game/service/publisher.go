package service

import (
	"context"
	"time"
)

// LifecycleKind names a game lifecycle event
type LifecycleKind string

const (
	LifecycleSessionCreated LifecycleKind = "session_created"
	LifecyclePlayerJoined   LifecycleKind = "player_joined"
	LifecycleMatchMade      LifecycleKind = "match_made"
	LifecycleShotFired      LifecycleKind = "shot_fired"
	LifecycleGameFinished   LifecycleKind = "game_finished"
	LifecycleSessionClosed  LifecycleKind = "session_closed"
)

// LifecycleEvent is published to observers outside the process
type LifecycleEvent struct {
	Kind      LifecycleKind `json:"kind"`
	SessionID string        `json:"session_id"`
	Players   []string      `json:"players,omitempty"`
	Detail    any           `json:"detail,omitempty"`
	At        time.Time     `json:"at"`
}

// Publisher delivers lifecycle events to an external system
type Publisher interface {
	Publish(ctx context.Context, ev LifecycleEvent) error
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
