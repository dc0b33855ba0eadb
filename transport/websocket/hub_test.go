package websocket

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/service"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

type inbound struct {
	Type      session.EventType `json:"type"`
	SessionID string            `json:"session_id"`
	Payload   json.RawMessage   `json:"payload"`
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

type testServer struct {
	server   *httptest.Server
	hub      *Hub
	sessions *session.Manager
	svc      service.GameService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sessions := session.NewManager()
	svc := service.NewGameService(sessions, nil, nil)
	hub := NewHub(svc, 0, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &testServer{server: server, hub: hub, sessions: sessions, svc: svc}
}

// dial opens a connection and performs the connect handshake
func (s *testServer) dial(t *testing.T) *testConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &testConn{t: t, conn: conn}
	c.send(RequestConnect, nil)
	var connected ConnectedPayload
	c.expect(session.EventConnected, &connected)
	c.id = connected.PlayerID
	return c
}

func (c *testConn) send(typ string, payload any) {
	c.t.Helper()
	req := map[string]any{"type": typ}
	if payload != nil {
		req["payload"] = payload
	}
	if err := c.conn.WriteJSON(req); err != nil {
		c.t.Fatalf("Failed to send %s: %v", typ, err)
	}
}

func (c *testConn) next() inbound {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg inbound
	if err := c.conn.ReadJSON(&msg); err != nil {
		c.t.Fatalf("Failed to read message: %v", err)
	}
	return msg
}

// expect reads the next message, checks its type and decodes its payload
func (c *testConn) expect(typ session.EventType, payload any) inbound {
	c.t.Helper()
	msg := c.next()
	if msg.Type != typ {
		c.t.Fatalf("Expected %s, got %s (%s)", typ, msg.Type, msg.Payload)
	}
	if payload != nil {
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			c.t.Fatalf("Failed to decode %s payload: %v", typ, err)
		}
	}
	return msg
}

func (c *testConn) expectError(code string) {
	c.t.Helper()
	var p service.ErrorPayload
	c.expect(session.EventError, &p)
	if p.Code != code {
		c.t.Errorf("Expected error code %s, got %s (%s)", code, p.Code, p.Message)
	}
}

// expectClosed waits for the server to close the connection
func (c *testConn) expectClosed() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				c.t.Errorf("Expected close frame, got %v", err)
			}
			return
		}
	}
}

func testFleet(seed uint64) [][]engine.Coordinate {
	return engine.RandomFleet(rand.New(rand.NewPCG(seed, seed+42)))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Connect(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t)
	b := ts.dial(t)

	if _, err := uuid.Parse(a.id); err != nil {
		t.Errorf("Expected a uuid player id, got %q", a.id)
	}
	if a.id == b.id {
		t.Error("Expected distinct player ids per connection")
	}
	waitFor(t, "two clients", func() bool { return ts.hub.ClientCount() == 2 })
}

func TestHub_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)

	t.Run("malformed json", func(t *testing.T) {
		c.conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		c.expectError(service.CodeBadRequest)
	})

	t.Run("unknown type", func(t *testing.T) {
		c.send("fly", nil)
		c.expectError(service.CodeBadRequest)
	})

	t.Run("missing payload", func(t *testing.T) {
		c.send(RequestTurn, nil)
		c.expectError(service.CodeBadRequest)
	})

	t.Run("out of range shot", func(t *testing.T) {
		c.send(RequestTurn, TurnPayload{GameID: "abcdef", X: 10, Y: 3})
		c.expectError(service.CodeBadRequest)
	})

	t.Run("invalid fleet", func(t *testing.T) {
		fleet := FleetFromCoordinates(testFleet(1)[2:])
		c.send(RequestCreateGame, FleetPayload{Fleet: fleet})
		c.expectError(service.CodeInvalidComposition)
	})

	t.Run("unknown game", func(t *testing.T) {
		c.send(RequestJoin, JoinPayload{GameID: "nope", Fleet: FleetFromCoordinates(testFleet(1))})
		c.expectError(service.CodeSessionNotFound)
	})

	t.Run("state of unknown game", func(t *testing.T) {
		c.send(RequestState, StatePayload{GameID: "nope"})
		var view engine.View
		c.expect(session.EventState, &view)
		if view.Status != engine.StatusFinished {
			t.Errorf("Expected finished, got %s", view.Status)
		}
	})
}

func TestHub_CreateJoinPlay(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t)
	b := ts.dial(t)
	fleets := map[string][][]engine.Coordinate{a.id: testFleet(1), b.id: testFleet(2)}

	a.send(RequestCreateGame, FleetPayload{Fleet: FleetFromCoordinates(fleets[a.id])})
	var info service.SessionInfo
	a.expect(session.EventGameCreated, &info)
	if info.Status != engine.StatusWaiting {
		t.Errorf("Expected waiting, got %s", info.Status)
	}

	b.send(RequestJoin, JoinPayload{GameID: info.ID, Fleet: FleetFromCoordinates(fleets[b.id])})
	var joined service.JoinResult
	b.expect(session.EventJoined, &joined)
	if joined.Status != engine.StatusInProgress {
		t.Errorf("Expected in_progress, got %s", joined.Status)
	}

	var started service.GameStarted
	b.expect(session.EventGameStarted, &started)
	b.expect(session.EventState, nil)
	a.expect(session.EventGameStarted, nil)
	a.expect(session.EventState, nil)

	shooter, target := a, b
	if started.Turn == b.id {
		shooter, target = b, a
	}

	t.Run("not your turn", func(t *testing.T) {
		target.send(RequestTurn, TurnPayload{GameID: info.ID, X: 0, Y: 0})
		target.expectError(service.CodeNotYourTurn)
	})

	cells := fleets[target.id]
	for i, ship := range cells {
		for j, c := range ship {
			shooter.send(RequestTurn, TurnPayload{GameID: info.ID, X: c.X, Y: c.Y})
			var result service.TurnResult
			shooter.expect(session.EventTurn, &result)
			if result.Outcome.Result == engine.ResultMiss {
				t.Fatalf("Expected hit on ship %d cell %d", i, j)
			}
			var view engine.View
			target.expect(session.EventState, &view)
			if view.Action != engine.ActionWait {
				t.Errorf("Expected target to wait, got %s", view.Action)
			}
		}
	}

	for _, c := range []*testConn{shooter, target} {
		var over service.GameOver
		c.expect(session.EventGameOver, &over)
		if over.Winner != shooter.id {
			t.Errorf("Expected winner %s, got %s", shooter.id, over.Winner)
		}
		c.expect(session.EventDisconnect, nil)
		c.expectClosed()
	}

	waitFor(t, "session cleanup", func() bool { return ts.sessions.Count() == 0 })
	waitFor(t, "client cleanup", func() bool { return ts.hub.ClientCount() == 0 })
}

func TestHub_OpponentLeft(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t)
	b := ts.dial(t)

	a.send(RequestCreateGame, FleetPayload{Fleet: FleetFromCoordinates(testFleet(1))})
	var info service.SessionInfo
	a.expect(session.EventGameCreated, &info)

	b.send(RequestJoin, JoinPayload{GameID: info.ID, Fleet: FleetFromCoordinates(testFleet(2))})
	b.expect(session.EventJoined, nil)
	b.expect(session.EventGameStarted, nil)
	b.expect(session.EventState, nil)

	a.conn.Close()

	var left service.OpponentLeft
	b.expect(session.EventOpponentLeft, &left)
	if left.PlayerID != a.id || left.SessionID != info.ID {
		t.Errorf("Unexpected opponent_left payload %+v", left)
	}
	b.expect(session.EventDisconnect, nil)
	b.expectClosed()

	waitFor(t, "session cleanup", func() bool { return ts.sessions.Count() == 0 })
}

func TestHub_Matchmaking(t *testing.T) {
	ts := newTestServer(t)
	mm := service.NewMatchmaker(ts.sessions, time.Second, nil, nil)
	x := ts.dial(t)
	y := ts.dial(t)

	for i, c := range []*testConn{x, y} {
		c.send(RequestEnqueue, FleetPayload{Fleet: FleetFromCoordinates(testFleet(uint64(i + 1)))})
		var queued service.QueueResult
		c.expect(session.EventQueued, &queued)
		if !queued.Queued || queued.Position != i+1 {
			t.Errorf("Expected queued at %d, got %+v", i+1, queued)
		}
	}

	match, err := mm.DrainOnce(context.Background())
	if err != nil || match == nil {
		t.Fatalf("Expected a match, got %v, %v", match, err)
	}

	for _, c := range []*testConn{x, y} {
		var found service.MatchFound
		c.expect(session.EventMatchFound, &found)
		if found.SessionID != match.SessionID {
			t.Errorf("Expected session %s, got %s", match.SessionID, found.SessionID)
		}
		var view engine.View
		c.expect(session.EventState, &view)
		if view.Status != engine.StatusInProgress {
			t.Errorf("Expected in_progress, got %s", view.Status)
		}
	}

	t.Run("leave queue", func(t *testing.T) {
		z := ts.dial(t)
		z.send(RequestEnqueue, FleetPayload{Fleet: FleetFromCoordinates(testFleet(3))})
		z.expect(session.EventQueued, nil)
		z.send(RequestLeaveQueue, nil)
		var left service.QueueResult
		z.expect(session.EventQueued, &left)
		if left.Queued {
			t.Error("Expected queued=false after leaving")
		}
		if ts.sessions.QueueLen() != 0 {
			t.Errorf("Expected empty queue, got %d", ts.sessions.QueueLen())
		}
	})
}

func TestClient_SlowConsumerDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		send:     make(chan session.Event, 1),
		playerID: "slow",
		ctx:      ctx,
		cancel:   cancel,
	}

	out := c.outbox()
	if !out.Push(session.Event{Type: session.EventState}) {
		t.Fatal("Expected first push to fit the buffer")
	}
	if out.Push(session.Event{Type: session.EventState}) {
		t.Error("Expected second push to overflow")
	}

	select {
	case <-ctx.Done():
	default:
		t.Error("Expected overflow to cancel the connection")
	}
}

func TestFleetConversion(t *testing.T) {
	fleet := testFleet(7)
	wire := FleetFromCoordinates(fleet)
	back := wire.Coordinates()
	if len(back) != len(fleet) {
		t.Fatalf("Expected %d ships, got %d", len(fleet), len(back))
	}
	for i := range fleet {
		for j := range fleet[i] {
			if back[i][j] != fleet[i][j] {
				t.Errorf("Ship %d cell %d: expected %v, got %v", i, j, fleet[i][j], back[i][j])
			}
		}
	}
}
