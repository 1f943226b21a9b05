// Command racebots connects a swarm of simulated racers to a lobby server.
// Each bot holds one player; the swarm reports a random finishing order for
// every race the bots enter, so lobbies cycle through all of their states
// without real clients.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/racelobby/game/session"
)

func main() {
	cmd := &cli.Command{
		Name:  "racebots",
		Usage: "Simulated racers for a race lobby server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "Lobby server URL",
				Sources: cli.EnvVars("RACEBOTS_URL"),
			},
			&cli.IntFlag{
				Name:  "bots",
				Value: 4,
				Usage: "Number of simulated racers",
			},
			&cli.DurationFlag{
				Name:  "race-time",
				Value: 10 * time.Second,
				Usage: "How long each race lasts before results are reported",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this long (0 runs until interrupted)",
			},
			&cli.BoolFlag{
				Name:  "force-pick",
				Usage: "Ask each lobby to pick its map instead of waiting for players",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	endpoint, err := wsURL(cmd.String("url"))
	if err != nil {
		return err
	}

	count := int(cmd.Int("bots"))
	if count <= 0 {
		return fmt.Errorf("bots must be positive, got %d", count)
	}

	log.Printf("Connecting %d bots to %s", count, endpoint)

	bots := make([]*Bot, 0, count)
	for i := 0; i < count; i++ {
		bot, err := DialBot(ctx, endpoint, "bot-"+uuid.NewString()[:8])
		if err != nil {
			return err
		}
		bot.ForcePick = cmd.Bool("force-pick")
		log.Printf("Bot %s connected as session %s", bot.PlayerID, bot.Session)
		bots = append(bots, bot)
	}

	swarm := NewSwarm(cmd.String("url"), cmd.Duration("race-time"), log.Default())
	updates := make(chan session.Update, 64)

	var wg sync.WaitGroup
	for _, bot := range bots {
		wg.Add(1)
		go func(b *Bot) {
			defer wg.Done()
			if err := b.Run(ctx, updates); err != nil {
				log.Printf("Bot %s stopped: %v", b.PlayerID, err)
			}
		}(bot)
	}

	swarm.Watch(ctx, updates)
	wg.Wait()

	log.Printf("Swarm finished %d races", swarm.Reported())
	return nil
}
