// Package cli implements calendarctl, the operator tool for the booking
// service.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/calendar-booking/internal/booking"
	"github.com/iliyamo/calendar-booking/internal/config"
	"github.com/iliyamo/calendar-booking/internal/lock"
	"github.com/iliyamo/calendar-booking/internal/repository"
	"github.com/iliyamo/calendar-booking/internal/service"
)

var (
	// Version is set at build time
	Version = "dev"
)

// OpenFunc opens the booking store.
type OpenFunc func(cfg config.Config) (*sql.DB, error)

// App holds the CLI application state. The store is opened lazily so
// commands like hash-password run without a database.
type App struct {
	cfg  config.Config
	open OpenFunc
	log  zerolog.Logger
	out  io.Writer
	in   io.Reader
	now  func() time.Time
	root *cobra.Command

	db  *sql.DB
	svc *booking.Service
}

// NewApp wires the command tree.
func NewApp(cfg config.Config, open OpenFunc, log zerolog.Logger) *App {
	a := &App{cfg: cfg, open: open, log: log, out: os.Stdout, in: os.Stdin, now: time.Now}

	a.root = &cobra.Command{
		Use:           "calendarctl",
		Short:         "Operate the shared booking calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.hashPasswordCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.checkCmd())
	a.root.AddCommand(a.previousCmd())
	a.root.AddCommand(a.deleteCmd())
	a.root.AddCommand(a.exportCmd())
	a.root.AddCommand(a.consumeCmd())
	return a
}

// SetOutput redirects command output, for tests.
func (a *App) SetOutput(out io.Writer) {
	a.out = out
	a.root.SetOut(out)
	a.root.SetErr(out)
}

// SetInput replaces stdin, for tests.
func (a *App) SetInput(in io.Reader) { a.in = in }

// Execute runs the CLI with args (os.Args[1:] in production).
func (a *App) Execute(args []string) error {
	return a.ExecuteContext(context.Background(), args)
}

// ExecuteContext is Execute with a context that commands observe; consume
// stops when it is cancelled.
func (a *App) ExecuteContext(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

// Close releases the store if a command opened it.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) service() (*booking.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	db, err := a.open(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db

	var events booking.Publisher
	if p := service.NewQueuePublisher(a.cfg.AMQPURL); p != nil {
		events = p
	}
	// calendarctl never creates bookings, so the date lock is never taken.
	a.svc = booking.NewService(repository.NewBookingRepo(db), lock.NewLocal(), events, a.log)
	return a.svc, nil
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "calendarctl %s\n", Version)
		},
	}
}
