package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"go.uber.org/multierr"
)

// ValidateFleet checks that the fleet has exactly the required composition
// and fits on the board without overlapping. Every problem found is reported;
// the returned error always matches ErrInvalidComposition.
func ValidateFleet(fleet [][]Coordinate) error {
	var err error
	counts := make(map[ShipSize]int)
	seen := make(map[Coordinate]int)

	for i, ship := range fleet {
		size := ShipSize(len(ship))
		if _, ok := FleetComposition[size]; !ok {
			err = multierr.Append(err, fmt.Errorf("ship %d: unsupported size %d: %w", i, size, ErrInvalidComposition))
			continue
		}
		counts[size]++

		for _, c := range ship {
			if !c.InBounds() {
				err = multierr.Append(err, fmt.Errorf("ship %d: cell %s off the board: %w", i, c, ErrInvalidComposition))
				continue
			}
			if owner, dup := seen[c]; dup {
				err = multierr.Append(err, fmt.Errorf("ship %d: cell %s already used by ship %d: %w", i, c, owner, ErrInvalidComposition))
				continue
			}
			seen[c] = i
		}
	}

	sizes := make([]int, 0, len(FleetComposition))
	for size := range FleetComposition {
		sizes = append(sizes, int(size))
	}
	sort.Ints(sizes)
	for _, s := range sizes {
		size := ShipSize(s)
		if want := FleetComposition[size]; counts[size] != want {
			err = multierr.Append(err, fmt.Errorf("want %d ships of size %d, got %d: %w", want, size, counts[size], ErrInvalidComposition))
		}
	}

	return err
}

// RandomFleet places a valid fleet at random. Ships are straight lines and
// never touch each other, diagonals included. A nil r uses a freshly seeded
// generator.
func RandomFleet(r *rand.Rand) [][]Coordinate {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	sizes := []int{4, 3, 3, 2, 2, 2, 1, 1, 1, 1}
	for {
		if fleet, ok := tryPlaceFleet(r, sizes); ok {
			return fleet
		}
	}
}

func tryPlaceFleet(r *rand.Rand, sizes []int) ([][]Coordinate, bool) {
	var blocked [BoardSize][BoardSize]bool
	fleet := make([][]Coordinate, 0, len(sizes))

	for _, size := range sizes {
		placed := false
		for attempt := 0; attempt < 200 && !placed; attempt++ {
			horizontal := r.IntN(2) == 0
			x, y := r.IntN(BoardSize), r.IntN(BoardSize)

			ship := make([]Coordinate, 0, size)
			for i := 0; i < size; i++ {
				c := Coordinate{X: x, Y: y + i}
				if horizontal {
					c = Coordinate{X: x + i, Y: y}
				}
				if !c.InBounds() || blocked[c.X][c.Y] {
					break
				}
				ship = append(ship, c)
			}
			if len(ship) != size {
				continue
			}

			for _, c := range ship {
				for _, n := range neighbourhood(c) {
					blocked[n.X][n.Y] = true
				}
			}
			fleet = append(fleet, ship)
			placed = true
		}
		if !placed {
			return nil, false
		}
	}

	return fleet, true
}

// neighbourhood returns c and its in-bounds eight neighbours
func neighbourhood(c Coordinate) []Coordinate {
	cells := make([]Coordinate, 0, 9)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			n := Coordinate{X: c.X + dx, Y: c.Y + dy}
			if n.InBounds() {
				cells = append(cells, n)
			}
		}
	}
	return cells
}
