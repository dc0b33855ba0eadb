package engine

import (
	"fmt"
	"math/rand/v2"
)

// Game is the turn state machine of a single match between two players.
// Its status only ever moves forward:
//
//	waiting_for_players -> in_progress -> finished
//
// Game is not safe for concurrent use; the session registry serialises access.
type Game struct {
	id      string
	boards  [2]*Board
	status  Status
	turn    string
	winner  string
	pickOne func() int
}

// NewGame creates an empty game waiting for two players
func NewGame(id string) *Game {
	return &Game{
		id:      id,
		status:  StatusWaiting,
		pickOne: func() int { return rand.IntN(2) },
	}
}

// ID returns the game identifier
func (g *Game) ID() string {
	return g.id
}

// Status returns the lifecycle status
func (g *Game) Status() Status {
	return g.status
}

// Turn returns the name of the player allowed to shoot. It is empty until
// both players have joined.
func (g *Game) Turn() string {
	return g.turn
}

// Winner returns the winning player once the game is finished
func (g *Game) Winner() string {
	return g.winner
}

// Players returns the names of the players that joined, in join order
func (g *Game) Players() []string {
	names := make([]string, 0, 2)
	for _, b := range g.boards {
		if b != nil {
			names = append(names, b.Name())
		}
	}
	return names
}

// HasPlayer reports whether name joined this game
func (g *Game) HasPlayer(name string) bool {
	return g.board(name) != nil
}

// Opponent returns the other player of name
func (g *Game) Opponent(name string) (string, bool) {
	if b := g.opponentBoard(name); b != nil {
		return b.Name(), true
	}
	return "", false
}

// Board returns the board of the named player
func (g *Game) Board(name string) (*Board, bool) {
	b := g.board(name)
	return b, b != nil
}

// Join validates the fleet and seats the player in the next free slot. The
// second successful join starts the game with a randomly chosen first shooter.
func (g *Game) Join(name string, fleet [][]Coordinate) error {
	if name == "" {
		return fmt.Errorf("empty player name: %w", ErrBadRequest)
	}
	if g.HasPlayer(name) {
		return fmt.Errorf("player %s in game %s: %w", name, g.id, ErrAlreadyInSession)
	}
	if g.boards[0] != nil && g.boards[1] != nil {
		return fmt.Errorf("game %s: %w", g.id, ErrSessionFull)
	}

	board, err := NewBoard(name, fleet)
	if err != nil {
		return err
	}

	if g.boards[0] == nil {
		g.boards[0] = board
		return nil
	}

	g.boards[1] = board
	g.turn = g.boards[g.pickOne()].Name()
	g.status = StatusInProgress
	return nil
}

// Fire lets the turn holder shoot at the opponent's board. A miss passes
// the turn; hits, sinks and repeated shots keep it. Sinking the last ship
// finishes the game.
func (g *Game) Fire(name string, target Coordinate) (ShotOutcome, error) {
	if !target.InBounds() {
		return ShotOutcome{}, fmt.Errorf("target %s outside %dx%d board: %w", target, BoardSize, BoardSize, ErrBadRequest)
	}
	if g.status != StatusInProgress || name != g.turn {
		return ShotOutcome{}, fmt.Errorf("player %s in game %s: %w", name, g.id, ErrNotYourTurn)
	}

	enemy := g.opponentBoard(name)
	if enemy == nil {
		return ShotOutcome{}, fmt.Errorf("player %s has no opponent in game %s: %w", name, g.id, ErrNotYourTurn)
	}

	outcome, err := enemy.Fire(target)
	if err != nil {
		return ShotOutcome{}, err
	}

	if outcome.Result == ResultMiss {
		g.turn = enemy.Name()
	}
	if enemy.FleetDestroyed() {
		g.status = StatusFinished
		g.winner = name
	}

	return outcome, nil
}

// View renders the game for requester. Ship positions are only shown on
// the requester's own board.
func (g *Game) View(requester string) View {
	view := View{Status: g.status}
	if g.status == StatusWaiting {
		return view
	}

	view.Turn = g.turn
	view.Winner = g.winner
	view.Action = ActionWait
	if g.status == StatusInProgress && requester != "" && requester == g.turn {
		view.Action = ActionShoot
	}

	for _, b := range g.boards {
		if b == nil {
			continue
		}
		view.Grids = append(view.Grids, PlayerGrid{
			Name:      b.Name(),
			Rows:      b.Render(b.Name() != requester),
			ShipsLeft: b.ShipsLeft(),
		})
	}
	return view
}

// Summary describes the game without board contents
func (g *Game) Summary() Summary {
	s := Summary{
		ID:      g.id,
		Status:  g.status,
		Players: g.Players(),
		Turn:    g.turn,
		Winner:  g.winner,
	}
	for _, b := range g.boards {
		if b != nil {
			s.ShipsLeft = append(s.ShipsLeft, b.ShipsLeft())
		}
	}
	return s
}

func (g *Game) board(name string) *Board {
	for _, b := range g.boards {
		if b != nil && b.Name() == name {
			return b
		}
	}
	return nil
}

func (g *Game) opponentBoard(name string) *Board {
	if g.board(name) == nil {
		return nil
	}
	for _, b := range g.boards {
		if b != nil && b.Name() != name {
			return b
		}
	}
	return nil
}
