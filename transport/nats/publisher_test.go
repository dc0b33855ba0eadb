package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/battleship/game/service"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "", nil)

	ev := service.LifecycleEvent{
		Kind:      service.LifecycleMatchMade,
		SessionID: "abc123",
		Players:   []string{"x", "y"},
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(fc.subjects) != 1 || fc.subjects[0] != "battleship.match_made" {
		t.Fatalf("Unexpected subjects %v", fc.subjects)
	}

	var decoded service.LifecycleEvent
	if err := json.Unmarshal(fc.payloads[0], &decoded); err != nil {
		t.Fatalf("Payload is not JSON: %v", err)
	}
	if decoded.SessionID != "abc123" || len(decoded.Players) != 2 || !decoded.At.Equal(ev.At) {
		t.Errorf("Unexpected payload %+v", decoded)
	}
}

func TestPublisher_Subject(t *testing.T) {
	p := newPublisher(&fakeConn{}, "games.prod", nil)
	if got := p.Subject(service.LifecycleGameFinished); got != "games.prod.game_finished" {
		t.Errorf("Unexpected subject %s", got)
	}
}

func TestPublisher_Errors(t *testing.T) {
	t.Run("connection error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		p := newPublisher(&fakeConn{err: boom}, "", nil)
		err := p.Publish(context.Background(), service.LifecycleEvent{Kind: service.LifecycleShotFired})
		if !errors.Is(err, boom) {
			t.Errorf("Expected wrapped connection error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		fc := &fakeConn{}
		p := newPublisher(fc, "", nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Publish(ctx, service.LifecycleEvent{Kind: service.LifecycleShotFired}); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
		if len(fc.subjects) != 0 {
			t.Error("Expected nothing published")
		}
	})

	t.Run("close drains", func(t *testing.T) {
		fc := &fakeConn{}
		newPublisher(fc, "", nil).Close()
		if !fc.drained {
			t.Error("Expected Close to drain the connection")
		}
	})
}
