package session

// EventType names a push notification sent to a connected player
type EventType string

const (
	EventConnected    EventType = "connected"
	EventGameCreated  EventType = "game_created"
	EventJoined       EventType = "joined"
	EventQueued       EventType = "queued"
	EventQueueStatus  EventType = "queue_status"
	EventMatchFound   EventType = "match_found"
	EventGameStarted  EventType = "game_started"
	EventTurn         EventType = "turn"
	EventState        EventType = "state"
	EventGameOver     EventType = "game_over"
	EventOpponentLeft EventType = "opponent_left"
	EventDisconnect   EventType = "disconnect"
	EventError        EventType = "error"
)

// Event is a message delivered to a single connection
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// Outbox is the outbound side of one player's connection. Events is a
// bounded channel drained by the transport; Drop tears the connection down.
type Outbox struct {
	PlayerID string
	Events   chan<- Event
	Drop     func()
}

// Push delivers ev without blocking. A full channel means the client is
// too slow to keep up, so the connection is dropped and false is returned.
func (o Outbox) Push(ev Event) bool {
	if o.Events == nil {
		return false
	}
	select {
	case o.Events <- ev:
		return true
	default:
		if o.Drop != nil {
			o.Drop()
		}
		return false
	}
}

// bound reports whether the slot holds a connection
func (o Outbox) bound() bool {
	return o.PlayerID != ""
}

// bindings holds the two connection slots of a session
type bindings [2]Outbox
