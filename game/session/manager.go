package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/battleship/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotBound        = errors.New("connection not bound")
)

const (
	idLength   = 6
	idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Manager is the registry of live games. It owns the game table, the
// player index, the connection bindings and the matchmaking queue, all
// guarded by one reader/writer lock. Nothing performs I/O while the lock is
// held; callers push events after their transaction returns.
type Manager struct {
	mu       sync.RWMutex
	games    map[string]*engine.Game
	players  map[string]string // player id -> session id
	bindings map[string]*bindings
	queue    queue
	newID    func() string
}

// NewManager creates an empty registry
func NewManager() *Manager {
	return &Manager{
		games:    make(map[string]*engine.Game),
		players:  make(map[string]string),
		bindings: make(map[string]*bindings),
		newID:    generateSessionID,
	}
}

// View runs fn under the shared lock
func (m *Manager) View(fn func(tx *ReadTx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&ReadTx{m: m})
}

// Update runs fn under the exclusive lock. Changes made by fn before it
// returns an error are kept, so fn should validate before mutating.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&Tx{ReadTx{m: m}})
}

// CreateSession registers a new empty game and returns its id
func (m *Manager) CreateSession() string {
	var id string
	m.Update(func(tx *Tx) error {
		id = tx.CreateSession()
		return nil
	})
	return id
}

// GetSession returns a summary of the game
func (m *Manager) GetSession(id string) (engine.Summary, error) {
	var summary engine.Summary
	err := m.View(func(tx *ReadTx) error {
		game, err := tx.GetSession(id)
		if err != nil {
			return err
		}
		summary = game.Summary()
		return nil
	})
	return summary, err
}

// BindPlayer records that playerID plays in sessionID
func (m *Manager) BindPlayer(playerID, sessionID string) error {
	return m.Update(func(tx *Tx) error {
		return tx.BindPlayer(playerID, sessionID)
	})
}

// Bind attaches a connection to the next free slot of a session
func (m *Manager) Bind(sessionID string, out Outbox) error {
	return m.Update(func(tx *Tx) error {
		return tx.Bind(sessionID, out)
	})
}

// ResolvePair returns both connections of a session
func (m *Manager) ResolvePair(sessionID string) (Outbox, Outbox, error) {
	var a, b Outbox
	err := m.View(func(tx *ReadTx) error {
		var err error
		a, b, err = tx.ResolvePair(sessionID)
		return err
	})
	return a, b, err
}

// RemoveSession deletes a game together with its player index entries and
// connection bindings
func (m *Manager) RemoveSession(id string) error {
	return m.Update(func(tx *Tx) error {
		_, err := tx.RemoveSession(id)
		return err
	})
}

// IsFinished reports whether the game exists and is finished
func (m *Manager) IsFinished(id string) bool {
	finished := false
	m.View(func(tx *ReadTx) error {
		finished = tx.IsFinished(id)
		return nil
	})
	return finished
}

// List returns summaries of all games ordered by id
func (m *Manager) List() []engine.Summary {
	var summaries []engine.Summary
	m.View(func(tx *ReadTx) error {
		games := tx.Sessions()
		summaries = make([]engine.Summary, 0, len(games))
		for _, g := range games {
			summaries = append(summaries, g.Summary())
		}
		return nil
	})
	return summaries
}

// Count returns the number of live games
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// QueueLen returns the number of players waiting for a match
func (m *Manager) QueueLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue.entries)
}

// ReadTx is read-only access to the registry under the shared lock
type ReadTx struct {
	m *Manager
}

// GetSession returns the live game. The pointer must not be used after the
// transaction returns.
func (tx *ReadTx) GetSession(id string) (*engine.Game, error) {
	game, ok := tx.m.games[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return game, nil
}

// SessionOf returns the session the player is in
func (tx *ReadTx) SessionOf(playerID string) (string, bool) {
	id, ok := tx.m.players[playerID]
	return id, ok
}

// IsFinished reports whether the game exists and is finished. A missing
// game is reported as not finished.
func (tx *ReadTx) IsFinished(id string) bool {
	game, ok := tx.m.games[id]
	return ok && game.Status() == engine.StatusFinished
}

// Sessions returns all live games ordered by id
func (tx *ReadTx) Sessions() []*engine.Game {
	games := make([]*engine.Game, 0, len(tx.m.games))
	for _, g := range tx.m.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID() < games[j].ID() })
	return games
}

// ResolvePair returns both connections of a session, in bind order
func (tx *ReadTx) ResolvePair(sessionID string) (Outbox, Outbox, error) {
	slots, ok := tx.m.bindings[sessionID]
	if !ok {
		return Outbox{}, Outbox{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if !slots[0].bound() || !slots[1].bound() {
		return Outbox{}, Outbox{}, fmt.Errorf("session %s: %w", sessionID, ErrNotBound)
	}
	return slots[0], slots[1], nil
}

// Outbox returns the connection of one player in a session
func (tx *ReadTx) Outbox(sessionID, playerID string) (Outbox, bool) {
	slots, ok := tx.m.bindings[sessionID]
	if !ok {
		return Outbox{}, false
	}
	for _, o := range slots {
		if o.bound() && o.PlayerID == playerID {
			return o, true
		}
	}
	return Outbox{}, false
}

// Outboxes returns every bound connection of a session
func (tx *ReadTx) Outboxes(sessionID string) []Outbox {
	slots, ok := tx.m.bindings[sessionID]
	if !ok {
		return nil
	}
	var out []Outbox
	for _, o := range slots {
		if o.bound() {
			out = append(out, o)
		}
	}
	return out
}

// Queued reports whether the player is waiting in the matchmaking queue
func (tx *ReadTx) Queued(playerID string) bool {
	return tx.m.queue.contains(playerID)
}

// Waiting returns a copy of the queue, oldest first
func (tx *ReadTx) Waiting() []QueueEntry {
	return tx.m.queue.snapshot()
}

// Tx is read-write access to the registry under the exclusive lock
type Tx struct {
	ReadTx
}

// CreateSession registers a new empty game and returns its id
func (tx *Tx) CreateSession() string {
	id := tx.m.newID()
	for _, taken := tx.m.games[id]; taken; _, taken = tx.m.games[id] {
		id = tx.m.newID()
	}
	tx.m.games[id] = engine.NewGame(id)
	tx.m.bindings[id] = &bindings{}
	return id
}

// BindPlayer records that playerID plays in sessionID. A player may only
// be in one session at a time and never while queued.
func (tx *Tx) BindPlayer(playerID, sessionID string) error {
	if _, ok := tx.m.games[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if current, ok := tx.m.players[playerID]; ok {
		if current == sessionID {
			return nil
		}
		return fmt.Errorf("player %s in session %s: %w", playerID, current, engine.ErrAlreadyInSession)
	}
	if tx.m.queue.contains(playerID) {
		return fmt.Errorf("player %s is queued: %w", playerID, engine.ErrAlreadyInSession)
	}
	tx.m.players[playerID] = sessionID
	return nil
}

// Bind attaches a connection to the first free slot of a session
func (tx *Tx) Bind(sessionID string, out Outbox) error {
	slots, ok := tx.m.bindings[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if out.PlayerID == "" {
		return fmt.Errorf("binding without player id: %w", engine.ErrBadRequest)
	}
	for i := range slots {
		if slots[i].bound() && slots[i].PlayerID == out.PlayerID {
			return fmt.Errorf("player %s already bound to %s: %w", out.PlayerID, sessionID, engine.ErrAlreadyInSession)
		}
	}
	for i := range slots {
		if !slots[i].bound() {
			slots[i] = out
			return nil
		}
	}
	return fmt.Errorf("session %s bindings: %w", sessionID, engine.ErrSessionFull)
}

// RemoveSession deletes a game, its player index entries and its bindings.
// It returns the connections that were bound to the game.
func (tx *Tx) RemoveSession(id string) ([]Outbox, error) {
	game, ok := tx.m.games[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	bound := tx.Outboxes(id)
	for _, p := range game.Players() {
		if tx.m.players[p] == id {
			delete(tx.m.players, p)
		}
	}
	for p, sid := range tx.m.players {
		if sid == id {
			delete(tx.m.players, p)
		}
	}
	delete(tx.m.bindings, id)
	delete(tx.m.games, id)
	return bound, nil
}

// Enqueue appends a player to the matchmaking queue after validating the
// fleet. Players already queued or in a session are rejected.
func (tx *Tx) Enqueue(entry QueueEntry) error {
	if entry.PlayerID == "" {
		return fmt.Errorf("enqueue without player id: %w", engine.ErrBadRequest)
	}
	if sid, ok := tx.m.players[entry.PlayerID]; ok {
		return fmt.Errorf("player %s in session %s: %w", entry.PlayerID, sid, engine.ErrAlreadyInSession)
	}
	if tx.m.queue.contains(entry.PlayerID) {
		return fmt.Errorf("player %s is queued: %w", entry.PlayerID, engine.ErrAlreadyInSession)
	}
	if err := engine.ValidateFleet(entry.Fleet); err != nil {
		return err
	}

	entry.Outbox.PlayerID = entry.PlayerID
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}
	tx.m.queue.push(entry)
	return nil
}

// RemoveQueued drops a waiting player from the queue
func (tx *Tx) RemoveQueued(playerID string) bool {
	return tx.m.queue.remove(playerID)
}

// PairNext pops the two oldest queue entries and seats them in a new game,
// first popped in slot 1. It returns nil when fewer than two players wait.
func (tx *Tx) PairNext() (*Match, error) {
	first, second, ok := tx.m.queue.popPair()
	if !ok {
		return nil, nil
	}

	id := tx.CreateSession()
	game := tx.m.games[id]
	if err := game.Join(first.PlayerID, first.Fleet); err != nil {
		tx.RemoveSession(id)
		tx.m.queue.pushFront(second)
		return nil, fmt.Errorf("pairing %s: %w", first.PlayerID, err)
	}
	if err := game.Join(second.PlayerID, second.Fleet); err != nil {
		tx.RemoveSession(id)
		tx.m.queue.pushFront(first)
		return nil, fmt.Errorf("pairing %s: %w", second.PlayerID, err)
	}

	for _, e := range []QueueEntry{first, second} {
		tx.m.players[e.PlayerID] = id
		if err := tx.Bind(id, e.Outbox); err != nil {
			return nil, err
		}
	}

	return &Match{SessionID: id, First: first, Second: second}, nil
}

// generateSessionID returns a random 6-character alphanumeric id
func generateSessionID() string {
	buf := make([]byte, idLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
