package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/battleship/game/engine"
)

func testFleet(seed uint64) [][]engine.Coordinate {
	return engine.RandomFleet(rand.New(rand.NewPCG(seed, seed+1)))
}

func testOutbox(playerID string, size int) (Outbox, chan Event) {
	ch := make(chan Event, size)
	return Outbox{PlayerID: playerID, Events: ch}, ch
}

func TestManager_CreateSession(t *testing.T) {
	manager := NewManager()

	id := manager.CreateSession()
	if len(id) != idLength {
		t.Errorf("Expected %d-character ID, got %q", idLength, id)
	}

	summary, err := manager.GetSession(id)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if summary.Status != engine.StatusWaiting {
		t.Errorf("Expected waiting status, got %s", summary.Status)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	ids := []string{"aaaaaa", "aaaaaa", "bbbbbb"}
	manager.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := manager.CreateSession()
	second := manager.CreateSession()
	if first != "aaaaaa" || second != "bbbbbb" {
		t.Errorf("Expected colliding id to be regenerated, got %q and %q", first, second)
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := generateSessionID()
		if len(id) != idLength {
			t.Fatalf("Expected %d-character ID, got %q", idLength, id)
		}
		for _, r := range id {
			if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9') {
				t.Fatalf("Non-alphanumeric character in %q", id)
			}
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("Expected mostly unique ids, got %d distinct of 50", len(seen))
	}
}

func TestManager_GetSession(t *testing.T) {
	manager := NewManager()

	t.Run("missing session", func(t *testing.T) {
		_, err := manager.GetSession("nope")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("live pointer inside view", func(t *testing.T) {
		id := manager.CreateSession()
		err := manager.View(func(tx *ReadTx) error {
			game, err := tx.GetSession(id)
			if err != nil {
				return err
			}
			if game.ID() != id {
				t.Errorf("Expected game %s, got %s", id, game.ID())
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
	})
}

func TestManager_BindPlayer(t *testing.T) {
	manager := NewManager()
	s1 := manager.CreateSession()
	s2 := manager.CreateSession()

	if err := manager.BindPlayer("alice", s1); err != nil {
		t.Fatalf("Failed to bind player: %v", err)
	}

	t.Run("same session is idempotent", func(t *testing.T) {
		if err := manager.BindPlayer("alice", s1); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("second session rejected", func(t *testing.T) {
		err := manager.BindPlayer("alice", s2)
		if !errors.Is(err, engine.ErrAlreadyInSession) {
			t.Errorf("Expected ErrAlreadyInSession, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		err := manager.BindPlayer("bob", "nope")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("queued player rejected", func(t *testing.T) {
		out, _ := testOutbox("carol", 1)
		err := manager.Update(func(tx *Tx) error {
			return tx.Enqueue(QueueEntry{PlayerID: "carol", Fleet: testFleet(1), Outbox: out})
		})
		if err != nil {
			t.Fatalf("Failed to enqueue: %v", err)
		}
		if err := manager.BindPlayer("carol", s2); !errors.Is(err, engine.ErrAlreadyInSession) {
			t.Errorf("Expected ErrAlreadyInSession, got %v", err)
		}
	})
}

func TestManager_Bind(t *testing.T) {
	manager := NewManager()
	id := manager.CreateSession()

	alice, _ := testOutbox("alice", 1)
	bob, _ := testOutbox("bob", 1)
	carol, _ := testOutbox("carol", 1)

	if _, _, err := manager.ResolvePair(id); !errors.Is(err, ErrNotBound) {
		t.Errorf("Expected ErrNotBound before binding, got %v", err)
	}

	if err := manager.Bind(id, alice); err != nil {
		t.Fatalf("Failed to bind alice: %v", err)
	}
	if err := manager.Bind(id, alice); !errors.Is(err, engine.ErrAlreadyInSession) {
		t.Errorf("Expected ErrAlreadyInSession on rebind, got %v", err)
	}
	if _, _, err := manager.ResolvePair(id); !errors.Is(err, ErrNotBound) {
		t.Errorf("Expected ErrNotBound with one binding, got %v", err)
	}
	if err := manager.Bind(id, bob); err != nil {
		t.Fatalf("Failed to bind bob: %v", err)
	}
	if err := manager.Bind(id, carol); !errors.Is(err, engine.ErrSessionFull) {
		t.Errorf("Expected ErrSessionFull, got %v", err)
	}
	if err := manager.Bind("nope", carol); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := manager.Bind(id, Outbox{}); !errors.Is(err, engine.ErrBadRequest) {
		t.Errorf("Expected ErrBadRequest for empty player, got %v", err)
	}

	a, b, err := manager.ResolvePair(id)
	if err != nil {
		t.Fatalf("Failed to resolve pair: %v", err)
	}
	if a.PlayerID != "alice" || b.PlayerID != "bob" {
		t.Errorf("Expected alice/bob in bind order, got %s/%s", a.PlayerID, b.PlayerID)
	}
}

func TestManager_RemoveSession(t *testing.T) {
	manager := NewManager()
	id := manager.CreateSession()
	alice, _ := testOutbox("alice", 1)

	manager.BindPlayer("alice", id)
	manager.Bind(id, alice)

	var removed []Outbox
	err := manager.Update(func(tx *Tx) error {
		var err error
		removed, err = tx.RemoveSession(id)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to remove session: %v", err)
	}
	if len(removed) != 1 || removed[0].PlayerID != "alice" {
		t.Errorf("Expected alice's outbox to be returned, got %v", removed)
	}

	manager.View(func(tx *ReadTx) error {
		if _, ok := tx.SessionOf("alice"); ok {
			t.Error("Expected player index entry to be removed")
		}
		return nil
	})
	if _, _, err := manager.ResolvePair(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected bindings to be removed, got %v", err)
	}
	if err := manager.RemoveSession(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second remove, got %v", err)
	}

	// the player is free to start over
	next := manager.CreateSession()
	if err := manager.BindPlayer("alice", next); err != nil {
		t.Errorf("Expected alice to bind to a new session, got %v", err)
	}
}

func TestManager_IsFinished(t *testing.T) {
	manager := NewManager()
	id := manager.CreateSession()

	if manager.IsFinished(id) {
		t.Error("New session should not be finished")
	}
	if manager.IsFinished("nope") {
		t.Error("Missing session should not be reported as finished")
	}

	err := manager.Update(func(tx *Tx) error {
		game, err := tx.GetSession(id)
		if err != nil {
			return err
		}
		if err := game.Join("alice", testFleet(1)); err != nil {
			return err
		}
		if err := game.Join("bob", testFleet(2)); err != nil {
			return err
		}
		playOut(t, game)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to play game: %v", err)
	}
	if !manager.IsFinished(id) {
		t.Error("Expected game to be finished")
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	if len(manager.List()) != 0 {
		t.Error("Expected empty list")
	}

	for i := 0; i < 3; i++ {
		manager.CreateSession()
	}

	list := manager.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Errorf("Expected list ordered by id, got %s before %s", list[i-1].ID, list[i].ID)
		}
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := manager.CreateSession()
			player := fmt.Sprintf("player-%d", n)
			if err := manager.BindPlayer(player, id); err != nil {
				errs <- err
				return
			}
			out, _ := testOutbox(player, 1)
			if err := manager.Bind(id, out); err != nil {
				errs <- err
				return
			}
			manager.List()
			manager.IsFinished(id)
			if n%2 == 0 {
				if err := manager.RemoveSession(id); err != nil {
					errs <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions left, got %d", manager.Count())
	}
}

// playOut has both players sweep the opposing board row by row until the
// game finishes
func playOut(t *testing.T, game *engine.Game) {
	t.Helper()
	next := make(map[string]int)
	for shots := 0; game.Status() == engine.StatusInProgress; shots++ {
		if shots > 2*engine.BoardSize*engine.BoardSize {
			t.Fatal("game did not finish")
		}
		shooter := game.Turn()
		i := next[shooter]
		next[shooter]++
		target := engine.Coordinate{X: i % engine.BoardSize, Y: i / engine.BoardSize}
		if _, err := game.Fire(shooter, target); err != nil {
			t.Fatalf("Fire failed: %v", err)
		}
	}
}
