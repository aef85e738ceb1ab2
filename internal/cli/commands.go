package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/calendar-booking/internal/booking"
	"github.com/iliyamo/calendar-booking/internal/export"
	"github.com/iliyamo/calendar-booking/internal/interval"
	"github.com/iliyamo/calendar-booking/internal/model"
	"github.com/iliyamo/calendar-booking/internal/queue"
	"github.com/iliyamo/calendar-booking/internal/utils"
)

func (a *App) hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long: `Hash the admin password for the ADMIN_PASSWORD_HASH variable.

The password is read from the first argument or, when omitted, from the
first line of standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(a.in).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			if plain == "" {
				return errors.New("empty password")
			}
			hash, err := utils.HashPassword(plain, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookings, optionally of one date",
		Example: `  calendarctl list
  calendarctl list --date=2024-01-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			bs, err := svc.List(cmd.Context(), date)
			if err != nil {
				return fmt.Errorf("listing bookings: %w", err)
			}
			a.printBookings(bs)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD); all dates when empty")
	return cmd
}

func (a *App) checkCmd() *cobra.Command {
	var p booking.Proposal
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a slot is free without booking it",
		Example: `  calendarctl check --date=2024-01-01 --start=22:00 --end=02:00 --overnight`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			// check is about the slot; name and contact only satisfy validation.
			p.Name, p.Contact = "calendarctl", "calendarctl"
			err = svc.Check(cmd.Context(), p)
			var cerr *booking.ConflictError
			switch {
			case err == nil:
				fmt.Fprintf(a.out, "available: %s on %s\n", p.TimeRange(), p.Date)
				return nil
			case errors.As(err, &cerr):
				fmt.Fprintf(a.out, "taken: %s on %s (conflicts with %s)\n", cerr.TimeRange, cerr.Date, cerr.Existing)
				return err
			default:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&p.Date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.StartTime, "start", "", "Start time (HH:MM)")
	cmd.Flags().StringVar(&p.EndTime, "end", "", "End time (HH:MM)")
	cmd.Flags().BoolVar(&p.Overnight, "overnight", false, "The slot ends on the next day")
	return cmd
}

func (a *App) previousCmd() *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "previous",
		Short: "List bookings dated before a reference day, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := a.refDay(ref)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			seq, err := svc.Previous(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("listing bookings: %w", err)
			}
			var bs []model.Booking
			for b := range seq {
				bs = append(bs, b)
			}
			a.printBookings(bs)
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "Reference date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a booking permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0], "calendarctl"); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *App) exportCmd() *cobra.Command {
	var (
		out string
		ref string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all bookings to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := a.refDay(ref)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			all, err := svc.List(cmd.Context(), "")
			if err != nil {
				return fmt.Errorf("listing bookings: %w", err)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Workbook(f, all, day); err != nil {
				_ = f.Close()
				return fmt.Errorf("writing workbook: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %d bookings to %s\n", len(all), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "bookings.xlsx", "Output file")
	cmd.Flags().StringVar(&ref, "ref", "", "Split upcoming/previous at this date (defaults to today)")
	return cmd
}

func (a *App) consumeCmd() *cobra.Command {
	var logPath string
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append booking events from the broker to the audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			c := &queue.AuditConsumer{URL: a.cfg.AMQPURL, LogPath: logPath, Log: a.log}
			err := c.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&logPath, "log", a.cfg.AuditLogPath, "Audit log file")
	return cmd
}

func (a *App) refDay(s string) (time.Time, error) {
	if s == "" {
		return a.now(), nil
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

func (a *App) printBookings(bs []model.Booking) {
	if len(bs) == 0 {
		fmt.Fprintln(a.out, "No bookings found.")
		return
	}
	var current string
	for _, b := range bs {
		if b.Date != current {
			if current != "" {
				fmt.Fprintln(a.out)
			}
			fmt.Fprintf(a.out, "=== %s ===\n", b.Date)
			current = b.Date
		}
		when, err := interval.FormatRange12(b.TimeRange)
		if err != nil {
			when = b.TimeRange
		}
		fmt.Fprintf(a.out, "  %s  %-28s %s (%s)\n", b.ID, when, b.Name, b.WhatsApp)
	}
}
