// Command wspd runs the bot daemon: it opens the configured dispatch audit
// database, constructs a bot.Bot, and serves the admin HTTP surface until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/wiresprite/wiresprite/bot"
	"github.com/wiresprite/wiresprite/internal/audit"
	"github.com/wiresprite/wiresprite/internal/config"
	"github.com/wiresprite/wiresprite/internal/database"
	"github.com/wiresprite/wiresprite/ipc"
)

func main() {
	listenAddr := flag.String("listen-addr", "", "Address to listen on (e.g. :8090)")
	botName := flag.String("name", "wiresprite", "Name reported by the bot over botctx.Bot")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *botName, *listenAddr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, botName, listenAddr string) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("component", "wspd")

	cfg, err := config.Parse()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	al := audit.New(db, log)
	b := bot.New(botName, log, al)

	for _, seed := range cfg.Shares {
		value := seed.Value
		err := ipc.AddFunc(b.Shares(), seed.Plugin, seed.Name, func(ctx context.Context) (string, error) {
			return value, nil
		})
		if err != nil {
			return fmt.Errorf("seeding share %s/%s: %w", seed.Plugin, seed.Name, err)
		}
	}

	srv := bot.NewAdminServer(b, al, bot.AdminOpts{ListenAddr: listenAddr})
	log.Info("starting wspd", "bot_name", botName)
	return srv.Run(ctx)
}
