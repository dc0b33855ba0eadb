package engine

import (
	"fmt"
	"sort"
)

// Board is one player's grid and fleet. Cells refer to their ship by index
// into the ships slice, so a hit is applied to exactly one ship.
//
// Board is not safe for concurrent use.
type Board struct {
	name  string
	cells [BoardSize][BoardSize]CellState
	owner [BoardSize][BoardSize]int // ship index + 1, zero when no ship
	ships []Ship
	hits  int
}

// NewBoard validates the fleet and places it on a fresh board
func NewBoard(name string, fleet [][]Coordinate) (*Board, error) {
	if err := ValidateFleet(fleet); err != nil {
		return nil, err
	}

	b := &Board{
		name:  name,
		ships: make([]Ship, 0, len(fleet)),
	}
	for i, cells := range fleet {
		ship := Ship{
			Cells:     append([]Coordinate(nil), cells...),
			HitPoints: len(cells),
		}
		b.ships = append(b.ships, ship)
		for _, c := range cells {
			b.cells[c.X][c.Y] = CellShip
			b.owner[c.X][c.Y] = i + 1
		}
	}

	return b, nil
}

// Name returns the board owner
func (b *Board) Name() string {
	return b.name
}

// Cell returns the state of a single cell
func (b *Board) Cell(c Coordinate) (CellState, error) {
	if !c.InBounds() {
		return CellEmpty, fmt.Errorf("cell %s: %w", c, ErrBadRequest)
	}
	return b.cells[c.X][c.Y], nil
}

// Ships returns a copy of the fleet
func (b *Board) Ships() []Ship {
	ships := make([]Ship, len(b.ships))
	for i, s := range b.ships {
		ships[i] = Ship{
			Cells:     append([]Coordinate(nil), s.Cells...),
			HitPoints: s.HitPoints,
		}
	}
	return ships
}

// ShipsLeft returns the number of ships not yet sunk
func (b *Board) ShipsLeft() int {
	left := 0
	for _, s := range b.ships {
		if !s.Sunk() {
			left++
		}
	}
	return left
}

// Hits returns the number of ship cells that have been hit
func (b *Board) Hits() int {
	return b.hits
}

// Fire resolves an incoming shot. Shots at cells that were already resolved
// change nothing and report ResultAlreadyResolved.
func (b *Board) Fire(c Coordinate) (ShotOutcome, error) {
	if !c.InBounds() {
		return ShotOutcome{}, fmt.Errorf("target %s: %w", c, ErrBadRequest)
	}

	outcome := ShotOutcome{Target: c}
	switch b.cells[c.X][c.Y] {
	case CellEmpty:
		b.cells[c.X][c.Y] = CellMiss
		outcome.Result = ResultMiss
	case CellShip:
		b.cells[c.X][c.Y] = CellHit
		b.hits++
		idx := b.owner[c.X][c.Y] - 1
		b.ships[idx].HitPoints--
		outcome.Result = ResultHit
		if b.ships[idx].Sunk() {
			outcome.Result = ResultSunk
			outcome.Halo = b.halo(idx)
		}
	default:
		outcome.Result = ResultAlreadyResolved
	}

	return outcome, nil
}

// FleetDestroyed reports whether every ship cell has been hit
func (b *Board) FleetDestroyed() bool {
	return b.hits >= FleetCells
}

// Render draws the board. With hideShips set, un-hit ship cells are drawn
// as empty water. Rows are indexed [y][x].
func (b *Board) Render(hideShips bool) [][]string {
	rows := make([][]string, BoardSize)
	for y := 0; y < BoardSize; y++ {
		rows[y] = make([]string, BoardSize)
		for x := 0; x < BoardSize; x++ {
			rows[y][x] = b.cells[x][y].Symbol(hideShips)
		}
	}
	return rows
}

// halo lists the cells surrounding ship idx, excluding the ship itself
func (b *Board) halo(idx int) []Coordinate {
	set := make(map[Coordinate]struct{})
	for _, c := range b.ships[idx].Cells {
		for _, n := range neighbourhood(c) {
			if b.owner[n.X][n.Y] == idx+1 {
				continue
			}
			set[n] = struct{}{}
		}
	}

	halo := make([]Coordinate, 0, len(set))
	for c := range set {
		halo = append(halo, c)
	}
	sort.Slice(halo, func(i, j int) bool {
		if halo[i].Y != halo[j].Y {
			return halo[i].Y < halo[j].Y
		}
		return halo[i].X < halo[j].X
	})
	return halo
}
