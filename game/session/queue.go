package session

import (
	"time"

	"github.com/wricardo/mcp-training/battleship/game/engine"
)

// QueueEntry is a player waiting to be matched
type QueueEntry struct {
	PlayerID   string
	Fleet      [][]engine.Coordinate
	Outbox     Outbox
	EnqueuedAt time.Time
}

// Match is the result of pairing the two oldest queue entries
type Match struct {
	SessionID string
	First     QueueEntry
	Second    QueueEntry
}

// queue is a FIFO of waiting players. It is guarded by the Manager lock.
type queue struct {
	entries []QueueEntry
}

func (q *queue) push(e QueueEntry) {
	q.entries = append(q.entries, e)
}

func (q *queue) pushFront(e QueueEntry) {
	q.entries = append([]QueueEntry{e}, q.entries...)
}

func (q *queue) popPair() (QueueEntry, QueueEntry, bool) {
	if len(q.entries) < 2 {
		return QueueEntry{}, QueueEntry{}, false
	}
	a, b := q.entries[0], q.entries[1]
	q.entries = q.entries[2:]
	return a, b, true
}

func (q *queue) contains(playerID string) bool {
	return q.position(playerID) >= 0
}

func (q *queue) position(playerID string) int {
	for i, e := range q.entries {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (q *queue) remove(playerID string) bool {
	i := q.position(playerID)
	if i < 0 {
		return false
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return true
}

func (q *queue) snapshot() []QueueEntry {
	return append([]QueueEntry(nil), q.entries...)
}
