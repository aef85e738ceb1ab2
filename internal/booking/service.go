package booking

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/calendar-booking/internal/metrics"
	"github.com/iliyamo/calendar-booking/internal/model"
	"github.com/iliyamo/calendar-booking/internal/queue"
	"github.com/iliyamo/calendar-booking/internal/repository"
)

// Store is the storage collaborator the lifecycle manager needs.
type Store interface {
	ListByDate(ctx context.Context, date string) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	GetByID(ctx context.Context, id string) (model.Booking, error)
	Create(ctx context.Context, b model.Booking) (model.Booking, error)
	DeleteByID(ctx context.Context, id string) error
}

// Locker grants an exclusive scope over a set of dates. The returned
// function releases every key.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

// Publisher receives lifecycle events once a change is stored.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// Service validates proposals against the stored bookings and persists the
// accepted ones. Creation runs check-then-insert inside a per-date
// exclusive scope so two concurrent proposals for the same slot cannot both
// pass validation.
type Service struct {
	store  Store
	locker Locker
	events Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewService wires a Service. events may be nil when no broker is
// configured.
func NewService(store Store, locker Locker, events Publisher, logger zerolog.Logger) *Service {
	if store == nil || locker == nil {
		panic("nil store or locker passed to NewService")
	}
	return &Service{
		store:  store,
		locker: locker,
		events: events,
		log:    logger.With().Str("component", "booking").Logger(),
		now:    time.Now,
	}
}

// Check runs validation and the overlap check without persisting anything.
// It is safe to call repeatedly, e.g. to render a live availability hint.
func (s *Service) Check(ctx context.Context, p Proposal) error {
	c, err := Validate(p)
	if err != nil {
		return err
	}
	return s.checkConflicts(ctx, p, c)
}

func (s *Service) checkConflicts(ctx context.Context, p Proposal, c Checked) error {
	var candidates []model.Booking
	for _, date := range CandidateDates(c.Day, p.Overnight) {
		bs, err := s.store.ListByDate(ctx, date)
		if err != nil {
			return storageErr("list", err)
		}
		candidates = append(candidates, bs...)
	}
	return CheckConflicts(p, c.Span, candidates)
}

// Create validates p and, when the slot is free, stores it. The record
// returned carries the id assigned by storage.
func (s *Service) Create(ctx context.Context, p Proposal) (model.Booking, error) {
	created, err := s.create(ctx, p)
	if err != nil {
		s.reject(p, err)
		return model.Booking{}, err
	}

	metrics.IncBookingCreated()
	s.log.Info().
		Str("booking_id", created.ID).
		Str("date", created.Date).
		Str("time_range", created.TimeRange).
		Bool("overnight", p.Overnight).
		Msg("booking created")
	s.publish(ctx, queue.EventBookingCreated, created, "")
	return created, nil
}

func (s *Service) create(ctx context.Context, p Proposal) (model.Booking, error) {
	c, err := Validate(p)
	if err != nil {
		return model.Booking{}, err
	}

	start := time.Now()
	unlock, err := s.locker.Lock(ctx, CandidateDates(c.Day, p.Overnight)...)
	if err != nil {
		return model.Booking{}, storageErr("lock", err)
	}
	defer unlock()
	metrics.ObserveLockWait(time.Since(start))

	// Re-read inside the scope; anything created before we got the lock is
	// visible now.
	if err := s.checkConflicts(ctx, p, c); err != nil {
		return model.Booking{}, err
	}

	rec := model.Booking{
		Name:      strings.TrimSpace(p.Name),
		WhatsApp:  strings.TrimSpace(p.Contact),
		TimeRange: c.Span.String(),
		Date:      c.Day.Format(model.DateLayout),
	}
	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return model.Booking{}, storageErr("create", err)
	}
	return created, nil
}

func (s *Service) reject(p Proposal, err error) {
	var (
		verr *ValidationError
		cerr *ConflictError
	)
	switch {
	case errors.As(err, &verr):
		metrics.IncBookingRejected("validation")
		s.log.Info().Str("reason", verr.Reason).Msg("booking rejected")
	case errors.As(err, &cerr):
		metrics.IncBookingRejected("conflict")
		s.log.Info().
			Str("date", cerr.Date).
			Str("time_range", cerr.TimeRange).
			Str("conflicts_with", cerr.Existing).
			Msg("booking rejected")
	default:
		metrics.IncBookingRejected("storage")
		s.log.Error().Err(err).Str("date", p.Date).Msg("booking create failed")
	}
}

// Get returns a single booking.
func (s *Service) Get(ctx context.Context, id string) (model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Booking{}, ErrNotFound
		}
		return model.Booking{}, storageErr("get", err)
	}
	return b, nil
}

// List returns the bookings of one date, or every booking ordered by date
// when date is empty.
func (s *Service) List(ctx context.Context, date string) ([]model.Booking, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		bs, err := s.store.ListAll(ctx)
		return bs, storageErr("list", err)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, invalid(ReasonInvalidDate)
	}
	bs, err := s.store.ListByDate(ctx, date)
	return bs, storageErr("list", err)
}

// Delete removes a booking permanently. actor identifies the admin for the
// audit trail.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Str("booking_id", id).Msg("booking delete failed")
		return storageErr("delete", err)
	}

	metrics.IncBookingDeleted()
	s.log.Info().Str("booking_id", id).Str("actor", actor).Msg("booking deleted")
	s.publish(ctx, queue.EventBookingDeleted, existing, actor)
	return nil
}

// Previous returns the bookings dated before ref, most recent first.
func (s *Service) Previous(ctx context.Context, ref time.Time) (iter.Seq[model.Booking], error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, storageErr("list", err)
	}
	return ListPrevious(all, ref), nil
}

// publish is best effort: the booking is already stored, so a broker
// failure is logged and swallowed.
func (s *Service) publish(ctx context.Context, typ string, b model.Booking, actor string) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		Name:       b.Name,
		WhatsApp:   b.WhatsApp,
		Date:       b.Date,
		TimeRange:  b.TimeRange,
		Actor:      actor,
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Str("booking_id", b.ID).Msg("publish event failed")
	}
}
