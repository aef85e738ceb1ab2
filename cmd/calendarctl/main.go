package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/calendar-booking/internal/cli"
	"github.com/iliyamo/calendar-booking/internal/config"
	"github.com/iliyamo/calendar-booking/internal/database"
	"github.com/iliyamo/calendar-booking/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(cfg, database.Open, log)
	defer app.Close()
	return app.ExecuteContext(ctx, os.Args[1:])
}
