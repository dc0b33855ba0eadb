package session

import (
	"errors"
	"testing"

	"github.com/wricardo/mcp-training/battleship/game/engine"
)

func enqueue(t *testing.T, manager *Manager, player string, seed uint64) {
	t.Helper()
	out, _ := testOutbox(player, 4)
	err := manager.Update(func(tx *Tx) error {
		return tx.Enqueue(QueueEntry{PlayerID: player, Fleet: testFleet(seed), Outbox: out})
	})
	if err != nil {
		t.Fatalf("Failed to enqueue %s: %v", player, err)
	}
}

func pairNext(t *testing.T, manager *Manager) *Match {
	t.Helper()
	var match *Match
	err := manager.Update(func(tx *Tx) error {
		var err error
		match, err = tx.PairNext()
		return err
	})
	if err != nil {
		t.Fatalf("PairNext failed: %v", err)
	}
	return match
}

func TestQueue_Enqueue(t *testing.T) {
	manager := NewManager()
	enqueue(t, manager, "alice", 1)

	t.Run("duplicate rejected", func(t *testing.T) {
		out, _ := testOutbox("alice", 1)
		err := manager.Update(func(tx *Tx) error {
			return tx.Enqueue(QueueEntry{PlayerID: "alice", Fleet: testFleet(2), Outbox: out})
		})
		if !errors.Is(err, engine.ErrAlreadyInSession) {
			t.Errorf("Expected ErrAlreadyInSession, got %v", err)
		}
	})

	t.Run("invalid fleet rejected", func(t *testing.T) {
		out, _ := testOutbox("bob", 1)
		fleet := testFleet(3)[:9]
		err := manager.Update(func(tx *Tx) error {
			return tx.Enqueue(QueueEntry{PlayerID: "bob", Fleet: fleet, Outbox: out})
		})
		if !errors.Is(err, engine.ErrInvalidComposition) {
			t.Errorf("Expected ErrInvalidComposition, got %v", err)
		}
	})

	t.Run("player in session rejected", func(t *testing.T) {
		id := manager.CreateSession()
		manager.BindPlayer("dave", id)
		out, _ := testOutbox("dave", 1)
		err := manager.Update(func(tx *Tx) error {
			return tx.Enqueue(QueueEntry{PlayerID: "dave", Fleet: testFleet(4), Outbox: out})
		})
		if !errors.Is(err, engine.ErrAlreadyInSession) {
			t.Errorf("Expected ErrAlreadyInSession, got %v", err)
		}
	})

	t.Run("empty player rejected", func(t *testing.T) {
		err := manager.Update(func(tx *Tx) error {
			return tx.Enqueue(QueueEntry{Fleet: testFleet(5)})
		})
		if !errors.Is(err, engine.ErrBadRequest) {
			t.Errorf("Expected ErrBadRequest, got %v", err)
		}
	})

	if manager.QueueLen() != 1 {
		t.Errorf("Expected only alice queued, got %d", manager.QueueLen())
	}
}

func TestQueue_PairNextFairness(t *testing.T) {
	manager := NewManager()

	if match := pairNext(t, manager); match != nil {
		t.Fatalf("Expected no match on empty queue, got %+v", match)
	}

	for i, p := range []string{"A", "B", "C", "D"} {
		enqueue(t, manager, p, uint64(i+1))
	}

	match := pairNext(t, manager)
	if match == nil {
		t.Fatal("Expected a match")
	}
	if match.First.PlayerID != "A" || match.Second.PlayerID != "B" {
		t.Errorf("Expected A vs B, got %s vs %s", match.First.PlayerID, match.Second.PlayerID)
	}

	// a newcomer pairs behind those already waiting
	manager.Update(func(tx *Tx) error {
		tx.RemoveQueued("D")
		return nil
	})
	enqueue(t, manager, "E", 9)

	match = pairNext(t, manager)
	if match == nil {
		t.Fatal("Expected a second match")
	}
	if match.First.PlayerID != "C" || match.Second.PlayerID != "E" {
		t.Errorf("Expected C vs E, got %s vs %s", match.First.PlayerID, match.Second.PlayerID)
	}
	if manager.QueueLen() != 0 {
		t.Errorf("Expected empty queue, got %d", manager.QueueLen())
	}
}

func TestQueue_PairNextSeatsPlayers(t *testing.T) {
	manager := NewManager()
	enqueue(t, manager, "alice", 1)
	enqueue(t, manager, "bob", 2)

	match := pairNext(t, manager)
	if match == nil {
		t.Fatal("Expected a match")
	}

	summary, err := manager.GetSession(match.SessionID)
	if err != nil {
		t.Fatalf("Failed to get matched session: %v", err)
	}
	if summary.Status != engine.StatusInProgress {
		t.Errorf("Expected in_progress, got %s", summary.Status)
	}
	if len(summary.Players) != 2 || summary.Players[0] != "alice" || summary.Players[1] != "bob" {
		t.Errorf("Expected [alice bob], got %v", summary.Players)
	}

	a, b, err := manager.ResolvePair(match.SessionID)
	if err != nil {
		t.Fatalf("Failed to resolve pair: %v", err)
	}
	if a.PlayerID != "alice" || b.PlayerID != "bob" {
		t.Errorf("Expected alice/bob bound, got %s/%s", a.PlayerID, b.PlayerID)
	}

	manager.View(func(tx *ReadTx) error {
		for _, p := range []string{"alice", "bob"} {
			if sid, ok := tx.SessionOf(p); !ok || sid != match.SessionID {
				t.Errorf("Expected %s indexed to %s, got %q", p, match.SessionID, sid)
			}
			if tx.Queued(p) {
				t.Errorf("Expected %s to leave the queue", p)
			}
		}
		return nil
	})
}

func TestQueue_RemoveQueued(t *testing.T) {
	manager := NewManager()
	enqueue(t, manager, "alice", 1)
	enqueue(t, manager, "bob", 2)

	var removed, again bool
	manager.Update(func(tx *Tx) error {
		removed = tx.RemoveQueued("alice")
		again = tx.RemoveQueued("alice")
		return nil
	})
	if !removed || again {
		t.Errorf("Expected first removal only to succeed, got %v and %v", removed, again)
	}

	manager.View(func(tx *ReadTx) error {
		waiting := tx.Waiting()
		if len(waiting) != 1 || waiting[0].PlayerID != "bob" {
			t.Errorf("Expected only bob waiting, got %v", waiting)
		}
		return nil
	})
}

func TestOutbox_Push(t *testing.T) {
	t.Run("delivers", func(t *testing.T) {
		out, ch := testOutbox("alice", 1)
		if !out.Push(Event{Type: EventTurn}) {
			t.Fatal("Expected push to succeed")
		}
		if ev := <-ch; ev.Type != EventTurn {
			t.Errorf("Expected turn event, got %s", ev.Type)
		}
	})

	t.Run("full channel drops the connection", func(t *testing.T) {
		dropped := false
		out, _ := testOutbox("alice", 1)
		out.Drop = func() { dropped = true }

		out.Push(Event{Type: EventTurn})
		if out.Push(Event{Type: EventState}) {
			t.Error("Expected push to fail on a full channel")
		}
		if !dropped {
			t.Error("Expected Drop to be called")
		}
	})

	t.Run("nil channel", func(t *testing.T) {
		if (Outbox{PlayerID: "x"}).Push(Event{Type: EventTurn}) {
			t.Error("Expected push to an unbound outbox to fail")
		}
	})
}
