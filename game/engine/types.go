package engine

import "fmt"

const (
	// BoardSize is the width and height of every board.
	BoardSize = 10

	// FleetCells is the number of cells a complete fleet occupies.
	FleetCells = 20

	// FleetShips is the number of ships in a complete fleet.
	FleetShips = 10
)

// Rendered cell symbols
const (
	SymbolEmpty = "."
	SymbolMiss  = "_"
	SymbolShip  = "#"
	SymbolHit   = "x"
)

// Coordinate addresses a single cell on a board
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds reports whether the coordinate lies on the board
func (c Coordinate) InBounds() bool {
	return c.X >= 0 && c.X < BoardSize && c.Y >= 0 && c.Y < BoardSize
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// CellState is the state of a single cell as seen by the board owner
type CellState int

const (
	CellEmpty CellState = iota
	CellShip
	CellMiss
	CellHit
)

func (s CellState) String() string {
	switch s {
	case CellEmpty:
		return "empty"
	case CellShip:
		return "ship"
	case CellMiss:
		return "miss"
	case CellHit:
		return "hit"
	default:
		return fmt.Sprintf("cell(%d)", int(s))
	}
}

// Symbol returns the rendered symbol for the cell. Ship cells render as
// empty when hidden is set.
func (s CellState) Symbol(hidden bool) string {
	switch s {
	case CellShip:
		if hidden {
			return SymbolEmpty
		}
		return SymbolShip
	case CellMiss:
		return SymbolMiss
	case CellHit:
		return SymbolHit
	default:
		return SymbolEmpty
	}
}

// ShipSize is the number of decks of a ship
type ShipSize int

// FleetComposition maps every valid ship size to the number of ships of
// that size a fleet must contain.
var FleetComposition = map[ShipSize]int{
	1: 4,
	2: 3,
	3: 2,
	4: 1,
}

// Ship is a placed ship and its remaining hit points
type Ship struct {
	Cells     []Coordinate `json:"cells"`
	HitPoints int          `json:"hit_points"`
}

// Size returns the number of decks of the ship
func (s Ship) Size() ShipSize {
	return ShipSize(len(s.Cells))
}

// Sunk reports whether every deck of the ship has been hit
func (s Ship) Sunk() bool {
	return s.HitPoints <= 0
}

// Status is the lifecycle status of a game
type Status string

const (
	StatusWaiting    Status = "waiting_for_players"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Action tells a player what the game expects from them
type Action string

const (
	ActionShoot Action = "shoot"
	ActionWait  Action = "wait"
)

// ShotResult classifies the effect of a single shot
type ShotResult string

const (
	ResultMiss            ShotResult = "miss"
	ResultHit             ShotResult = "hit"
	ResultSunk            ShotResult = "sunk"
	ResultAlreadyResolved ShotResult = "already_resolved"
)

// ShotOutcome is the result of firing at a board. Halo is only set when a
// ship was sunk and lists the surrounding cells that cannot hold a ship.
type ShotOutcome struct {
	Result ShotResult   `json:"result"`
	Target Coordinate   `json:"target"`
	Halo   []Coordinate `json:"halo,omitempty"`
}

// PlayerGrid is one player's rendered board
type PlayerGrid struct {
	Name      string     `json:"name"`
	Rows      [][]string `json:"rows"`
	ShipsLeft int        `json:"ships_left"`
}

// View is a game as seen by one requester. Rows are indexed [y][x].
type View struct {
	Status Status       `json:"status"`
	Action Action       `json:"action,omitempty"`
	Turn   string       `json:"turn,omitempty"`
	Winner string       `json:"winner,omitempty"`
	Grids  []PlayerGrid `json:"grids,omitempty"`
}

// Grid returns the rendered grid of the named player, if present
func (v View) Grid(name string) (PlayerGrid, bool) {
	for _, g := range v.Grids {
		if g.Name == name {
			return g, true
		}
	}
	return PlayerGrid{}, false
}

// Summary describes a game without revealing any board contents
type Summary struct {
	ID        string   `json:"id"`
	Status    Status   `json:"status"`
	Players   []string `json:"players"`
	Turn      string   `json:"turn,omitempty"`
	Winner    string   `json:"winner,omitempty"`
	ShipsLeft []int    `json:"ships_left,omitempty"`
}
