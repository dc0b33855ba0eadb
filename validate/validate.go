// Command validate checks fleet placement files before they are used by a
// client. Each file holds a fleet in the wire form, either as a bare array
// of ships or as {"fleet": [...]}, where a ship is a list of [x, y] pairs.
// It checks:
//   - JSON structure
//   - ship counts per size (4x1, 3x2, 2x3, 1x4)
//   - every cell on the board
//   - no cell shared by two ships
//
// Valid fleets are printed as a rendered board with --render.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	ws "github.com/wricardo/mcp-training/battleship/transport/websocket"
)

// ValidationResult captures the outcome of validating a single file
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Fleet  [][]engine.Coordinate
}

// parseFleet accepts either a bare fleet array or a {"fleet": ...} object
func parseFleet(data []byte) (ws.Fleet, error) {
	var fleet ws.Fleet
	if err := json.Unmarshal(data, &fleet); err == nil {
		return fleet, nil
	}

	var payload ws.FleetPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.Fleet == nil {
		return nil, fmt.Errorf("missing fleet")
	}
	return payload.Fleet, nil
}

// validateFleetFile loads and validates one fleet file
func validateFleetFile(filePath string) ValidationResult {
	result := ValidationResult{File: filepath.Base(filePath), Valid: true}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	fleet, err := parseFleet(data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	result.Fleet = fleet.Coordinates()
	if err := engine.ValidateFleet(result.Fleet); err != nil {
		result.Valid = false
		for _, e := range multierr.Errors(err) {
			result.Errors = append(result.Errors, e.Error())
		}
	}
	return result
}

// renderFleet draws the fleet the way its owner sees it
func renderFleet(fleet [][]engine.Coordinate) (string, error) {
	board, err := engine.NewBoard("fleet", fleet)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("  0123456789\n")
	for y, row := range board.Render(false) {
		fmt.Fprintf(&sb, "%d %s\n", y, strings.Join(row, ""))
	}
	return sb.String(), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(cmd.String("dir"), "*.json"))
		if err != nil {
			return fmt.Errorf("finding fleet files: %w", err)
		}
		files = matches
	}
	if len(files) == 0 {
		return fmt.Errorf("no fleet files found")
	}

	out := cmd.Root().Writer
	allValid := true
	for _, file := range files {
		result := validateFleetFile(file)
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if !result.Valid {
			allValid = false
			fmt.Fprintln(out, "INVALID")
			for _, e := range result.Errors {
				fmt.Fprintln(out, "  - "+e)
			}
			continue
		}

		fmt.Fprintln(out, "VALID")
		if cmd.Bool("render") {
			board, err := renderFleet(result.Fleet)
			if err != nil {
				return err
			}
			fmt.Fprint(out, board)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return fmt.Errorf("some fleets have errors")
	}
	fmt.Fprintln(out, "All fleets are valid")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate fleet placement files",
		ArgsUsage: "[file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "fleets", Usage: "directory scanned when no files are given"},
			&cli.BoolFlag{Name: "render", Usage: "print valid fleets as a board"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
