package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/calendar-booking/internal/booking"
	"github.com/iliyamo/calendar-booking/internal/export"
	"github.com/iliyamo/calendar-booking/internal/lock"
	"github.com/iliyamo/calendar-booking/internal/middleware"
)

// createTimeout bounds a create so it finishes inside one Redis lease.
const createTimeout = lock.MinTTL

// Purger drops cached booking listings after a change.
type Purger interface {
	Purge(ctx context.Context) error
}

// BookingHandler serves the public booking endpoints and the admin views.
type BookingHandler struct {
	Svc   *booking.Service
	Cache Purger // may be nil
	Log   zerolog.Logger
	Now   func() time.Time
}

// NewBookingHandler wires the booking endpoints to svc. cache may be nil.
func NewBookingHandler(svc *booking.Service, cache Purger, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{Svc: svc, Cache: cache, Log: log, Now: time.Now}
}

// ----- DTOs -----

// bookingReq accepts either startTime/endTime or a stored style timeRange.
type bookingReq struct {
	Name        string `json:"name"`
	WhatsApp    string `json:"whatsapp"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	TimeRange   string `json:"timeRange"`
	IsOvernight bool   `json:"isOvernight"`
}

func (r bookingReq) proposal() (booking.Proposal, error) {
	p := booking.Proposal{
		Name:      r.Name,
		Contact:   r.WhatsApp,
		Date:      r.Date,
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
		Overnight: r.IsOvernight,
	}
	if p.StartTime == "" && p.EndTime == "" && strings.TrimSpace(r.TimeRange) != "" {
		start, end, err := booking.SplitTimeRange(r.TimeRange)
		if err != nil {
			return booking.Proposal{}, err
		}
		p.StartTime, p.EndTime = start, end
	}
	return p, nil
}

// List: GET /v1/bookings[?date=YYYY-MM-DD]
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bs, err := h.Svc.List(ctx, c.QueryParam("date"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch bookings")
	}
	return c.JSON(http.StatusOK, bs)
}

// Get: GET /v1/bookings/:id
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Svc.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch booking")
	}
	return c.JSON(http.StatusOK, b)
}

// Create: POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p, err := req.proposal()
	if err != nil {
		return h.fail(c, err, "")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), createTimeout)
	defer cancel()

	b, err := h.Svc.Create(ctx, p)
	if err != nil {
		return h.fail(c, err, "Failed to create booking")
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, b)
}

// Check: POST /v1/bookings/check. Read-only; answers whether Create would
// accept the same body right now.
func (h *BookingHandler) Check(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p, err := req.proposal()
	if err != nil {
		return h.fail(c, err, "")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Check(ctx, p); err != nil {
		return h.fail(c, err, "Failed to check availability")
	}
	return c.JSON(http.StatusOK, echo.Map{"available": true})
}

// Delete: DELETE /v1/bookings/:id (admin)
func (h *BookingHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Delete(ctx, c.Param("id"), middleware.Subject(c)); err != nil {
		return h.fail(c, err, "Failed to delete booking")
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking deleted successfully"})
}

// Previous: GET /v1/admin/bookings/previous (admin)
func (h *BookingHandler) Previous(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seq, err := h.Svc.Previous(ctx, h.Now())
	if err != nil {
		return h.fail(c, err, "Failed to fetch bookings")
	}
	out := slices.Collect(seq)
	if out == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, out)
}

// Export: GET /v1/admin/bookings/export (admin)
func (h *BookingHandler) Export(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	all, err := h.Svc.List(ctx, "")
	if err != nil {
		return h.fail(c, err, "Failed to fetch bookings")
	}

	now := h.Now()
	c.Response().Header().Set(echo.HeaderContentType, export.ContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="bookings-%s.xlsx"`, now.Format("20060102")))
	c.Response().WriteHeader(http.StatusOK)
	if err := export.Workbook(c.Response(), all, now); err != nil {
		// Headers are already sent; all that is left is to log.
		h.Log.Error().Err(err).Msg("export workbook failed")
	}
	return nil
}

func (h *BookingHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(context.WithoutCancel(ctx)); err != nil {
		h.Log.Warn().Err(err).Msg("cache purge failed")
	}
}

// fail maps lifecycle errors onto HTTP statuses. generic is the message used
// for storage failures so internals never leak to clients.
func (h *BookingHandler) fail(c echo.Context, err error, generic string) error {
	var (
		verr *booking.ValidationError
		cerr *booking.ConflictError
		serr *booking.StorageError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Reason})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{"error": cerr.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
	case errors.As(err, &serr):
		h.Log.Error().Err(err).Str("route", c.Path()).Msg("storage failure")
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": generic, "retryable": serr.Retryable()})
	default:
		h.Log.Error().Err(err).Str("route", c.Path()).Msg("unexpected error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": generic})
	}
}
