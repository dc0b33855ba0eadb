// Command bot plays Battleship against other players through the
// matchmaking queue. It places a random fleet and fires at random cells it
// has not tried yet. Run two of them to watch a full game.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "bot",
		Usage: "Battleship bot that joins the matchmaking queue",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "server WebSocket endpoint", Sources: cli.EnvVars("BOT_URL")},
			&cli.IntFlag{Name: "bots", Value: 1, Usage: "bots to run concurrently"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "games each bot plays"},
			&cli.StringFlag{Name: "log-level", Value: "info", Sources: cli.EnvVars("LOG_LEVEL")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := hclog.New(&hclog.LoggerOptions{
				Name:  "bot",
				Level: hclog.LevelFromString(cmd.String("log-level")),
			})
			return runBots(ctx, cmd.String("url"), cmd.Int("bots"), cmd.Int("games"), logger)
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func runBots(ctx context.Context, url string, bots, games int, logger hclog.Logger) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for i := 0; i < bots; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := 0; g < games && ctx.Err() == nil; g++ {
				b := newBot(url, nil, logger)
				res, err := b.Play(ctx)
				if err != nil {
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
					return
				}
				b.logger.Info("game finished", "session", res.SessionID, "won", res.Won, "shots", res.Shots)
			}
		}()
	}

	wg.Wait()
	return errs
}
