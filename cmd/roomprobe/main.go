// Command roomprobe is a terminal client for a roomsync server. It creates or
// joins a room, sends position updates at a fixed interval, and prints every
// frame the server sends back.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/roomsync/game/room"
)

const defaultURL = "ws://localhost:8080/"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "roomprobe: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "roomprobe",
		Usage: "Create or join a roomsync room and stream its state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "server websocket URL",
				Value:   defaultURL,
				Sources: cli.EnvVars("ROOMSYNC_URL"),
			},
			&cli.DurationFlag{
				Name:  "update-interval",
				Usage: "how often to send a position update (0 disables updates)",
				Value: 100 * time.Millisecond,
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "stop after this long (0 runs until interrupted)",
			},
			&cli.BoolFlag{
				Name:  "drift",
				Usage: "walk in a circle instead of standing at the start position",
			},
			&cli.FloatFlag{Name: "x", Usage: "start x"},
			&cli.FloatFlag{Name: "y", Usage: "start y", Value: 1},
			&cli.FloatFlag{Name: "z", Usage: "start z"},
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a room and print its ID",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return run(ctx, cmd, createRoom())
				},
			},
			{
				Name:      "join",
				Usage:     "Join an existing room",
				ArgsUsage: "<roomId>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					roomID := cmd.Args().First()
					if roomID == "" {
						return errors.New("join needs a room ID")
					}
					return run(ctx, cmd, joinRoom(roomID))
				},
			},
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, first request) error {
	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p := &Probe{
		URL:      cmd.String("url"),
		Interval: cmd.Duration("update-interval"),
		Start:    room.Position{X: cmd.Float("x"), Y: cmd.Float("y"), Z: cmd.Float("z")},
		Drift:    cmd.Bool("drift"),
		Out:      cmd.Root().Writer,
	}
	return p.Run(ctx, first)
}
