package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/calendar-booking/internal/lock"
	"github.com/iliyamo/calendar-booking/internal/model"
	"github.com/iliyamo/calendar-booking/internal/queue"
	"github.com/iliyamo/calendar-booking/internal/repository"
)

type memStore struct {
	mu      sync.Mutex
	seq     int
	rows    map[string]model.Booking
	failAll error
}

func newMemStore() *memStore { return &memStore{rows: map[string]model.Booking{}} }

func (m *memStore) ListByDate(_ context.Context, date string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	var out []model.Booking
	for _, b := range m.rows {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := make([]model.Booking, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memStore) Create(_ context.Context, b model.Booking) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return model.Booking{}, m.failAll
	}
	m.seq++
	b.ID = fmt.Sprintf("bk-%d", m.seq)
	m.rows[b.ID] = b
	return b, nil
}

func (m *memStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (r *recordingPublisher) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func newTestService(t *testing.T) (*Service, *memStore, *recordingPublisher) {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewService(store, lock.NewLocal(), pub, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	return svc, store, pub
}

func TestService_CreateSameDay(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, proposal("2024-01-01", "09:00", "10:00", false))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "09:00 - 10:00", a.TimeRange)
	assert.Equal(t, "2024-01-01", a.Date)

	_, err = svc.Create(ctx, proposal("2024-01-01", "09:30", "09:45", false))
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, a.ID, cerr.Existing)

	// Touching at the boundary is allowed.
	_, err = svc.Create(ctx, proposal("2024-01-01", "10:00", "11:00", false))
	require.NoError(t, err)

	bs, err := svc.List(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, bs, 2)

	require.Len(t, pub.events, 2)
	assert.Equal(t, queue.EventBookingCreated, pub.events[0].Type)
	assert.Equal(t, a.ID, pub.events[0].BookingID)
	assert.Equal(t, "2024-01-10T12:00:00Z", pub.events[0].OccurredAt)
}

func TestService_CreateOvernightChecksNextDay(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, proposal("2024-01-02", "01:00", "02:00", false))
	require.NoError(t, err)

	_, err = svc.Create(ctx, proposal("2024-01-01", "23:00", "01:30", true))
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)

	// Ending exactly when the next-day booking starts is fine.
	b, err := svc.Create(ctx, proposal("2024-01-01", "23:00", "01:00", true))
	require.NoError(t, err)
	assert.Equal(t, "23:00 - 01:00", b.TimeRange)
	assert.Equal(t, "2024-01-01", b.Date)
}

func TestService_CreateTrimsFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	p := proposal(" 2024-01-01 ", "09:00", "10:00", false)
	p.Name = "  Dina  "
	p.Contact = " +628111 "

	b, err := svc.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Dina", b.Name)
	assert.Equal(t, "+628111", b.WhatsApp)
	assert.Equal(t, "2024-01-01", b.Date)
}

func TestService_CreateStoresCanonicalRange(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, proposal("2024-01-01", "9:05", " 10:00 ", false))
	require.NoError(t, err)
	assert.Equal(t, "09:05 - 10:00", b.TimeRange)

	stored, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:05 - 10:00", stored.TimeRange)

	_, err = svc.Create(ctx, proposal("2024-01-01", "9:30", "9:45", false))
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "09:30 - 09:45", cerr.TimeRange)

	for _, tt := range []struct{ start, end string }{
		{"9:5", "10:00"},
		{"+9:00", "+10:00"},
		{"-0:00", "01:00"},
	} {
		_, err := svc.Create(ctx, proposal("2024-01-02", tt.start, tt.end, false))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "%s - %s", tt.start, tt.end)
		assert.Equal(t, ReasonInvalidTime, verr.Reason)
	}
}

func TestService_CreateValidationError(t *testing.T) {
	svc, store, pub := newTestService(t)

	_, err := svc.Create(context.Background(), proposal("2024-01-01", "14:00", "13:00", false))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonStartBeforeEnd, verr.Reason)
	assert.Empty(t, store.rows)
	assert.Empty(t, pub.events)
}

func TestService_CreateStorageError(t *testing.T) {
	svc, store, _ := newTestService(t)
	boom := errors.New("disk on fire")
	store.failAll = boom

	_, err := svc.Create(context.Background(), proposal("2024-01-01", "09:00", "10:00", false))
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.True(t, serr.Retryable())
	assert.ErrorIs(t, err, boom)
}

func TestService_CreateConcurrentSameSlot(t *testing.T) {
	svc, store, _ := newTestService(t)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), proposal("2024-01-01", "09:00", "10:00", false))
			mu.Lock()
			defer mu.Unlock()
			var cerr *ConflictError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &cerr):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, store.rows, 1)
}

func TestService_Check(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, proposal("2024-01-01", "09:00", "10:00", false))
	require.NoError(t, err)

	var cerr *ConflictError
	require.ErrorAs(t, svc.Check(ctx, proposal("2024-01-01", "09:15", "09:30", false)), &cerr)
	assert.NoError(t, svc.Check(ctx, proposal("2024-01-01", "10:00", "10:30", false)))
	assert.Len(t, store.rows, 1)
}

func TestService_List(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-03", "2024-01-01", "2024-01-02"} {
		_, err := svc.Create(ctx, proposal(d, "09:00", "10:00", false))
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	var dates []string
	for _, b := range all {
		dates = append(dates, b.Date)
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates)

	empty, err := svc.List(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.List(ctx, "tomorrow")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonInvalidDate, verr.Reason)
}

func TestService_Delete(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, proposal("2024-01-01", "09:00", "10:00", false))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, b.ID, "admin"))
	assert.Empty(t, store.rows)
	require.Len(t, pub.events, 2)
	assert.Equal(t, queue.EventBookingDeleted, pub.events[1].Type)
	assert.Equal(t, "admin", pub.events[1].Actor)

	assert.ErrorIs(t, svc.Delete(ctx, b.ID, "admin"), ErrNotFound)
	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The freed slot can be booked again.
	_, err = svc.Create(ctx, proposal("2024-01-01", "09:00", "10:00", false))
	assert.NoError(t, err)
}

func TestService_PublishFailureDoesNotFailCreate(t *testing.T) {
	svc, store, pub := newTestService(t)
	pub.err = errors.New("broker down")

	_, err := svc.Create(context.Background(), proposal("2024-01-01", "09:00", "10:00", false))
	require.NoError(t, err)
	assert.Len(t, store.rows, 1)
}

func TestService_NilPublisher(t *testing.T) {
	svc := NewService(newMemStore(), lock.NewLocal(), nil, zerolog.Nop())
	_, err := svc.Create(context.Background(), proposal("2024-01-01", "09:00", "10:00", false))
	assert.NoError(t, err)
}

func TestService_Previous(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, d := range []string{"2024-01-01", "2024-01-15", "2024-01-05"} {
		_, err := svc.Create(ctx, proposal(d, "09:00", "10:00", false))
		require.NoError(t, err)
	}

	seq, err := svc.Previous(ctx, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	var dates []string
	for _, b := range slices.Collect(seq) {
		dates = append(dates, b.Date)
	}
	assert.Equal(t, []string{"2024-01-05", "2024-01-01"}, dates)
}

func TestNewService_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, lock.NewLocal(), nil, zerolog.Nop()) })
	assert.Panics(t, func() { NewService(newMemStore(), nil, nil, zerolog.Nop()) })
}
