package engine

import "sort"

// FleetRule is one line of the fleet composition table
type FleetRule struct {
	Size  ShipSize `json:"size"`
	Count int      `json:"count"`
}

// Rules describes the fixed game rules for clients and agents
type Rules struct {
	BoardSize  int               `json:"board_size"`
	Fleet      []FleetRule       `json:"fleet"`
	FleetCells int               `json:"fleet_cells"`
	Symbols    map[string]string `json:"symbols"`
	Turns      []string          `json:"turns"`
}

// DefaultRules returns the rules every game is played with
func DefaultRules() Rules {
	fleet := make([]FleetRule, 0, len(FleetComposition))
	for size, count := range FleetComposition {
		fleet = append(fleet, FleetRule{Size: size, Count: count})
	}
	sort.Slice(fleet, func(i, j int) bool { return fleet[i].Size > fleet[j].Size })

	return Rules{
		BoardSize:  BoardSize,
		Fleet:      fleet,
		FleetCells: FleetCells,
		Symbols: map[string]string{
			SymbolEmpty: CellEmpty.String(),
			SymbolMiss:  CellMiss.String(),
			SymbolShip:  CellShip.String(),
			SymbolHit:   CellHit.String(),
		},
		Turns: []string{
			"the first shooter is chosen at random when the second player joins",
			"a miss passes the turn to the opponent",
			"a hit or a sunk ship keeps the turn",
			"shooting an already resolved cell changes nothing and keeps the turn",
			"the game ends when all 20 ship cells of one fleet are hit",
		},
	}
}
