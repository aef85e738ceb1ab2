package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/calendar-booking/internal/database"
	"github.com/iliyamo/calendar-booking/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenTestDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBookingRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepo(newTestDB(t))

	created, err := repo.Create(ctx, model.Booking{
		ID:        "ignored",
		Name:      "Dina",
		WhatsApp:  "+628111",
		TimeRange: "22:00 - 02:00",
		Date:      "2024-01-01",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", created.ID)
	assert.Len(t, created.ID, 36)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.TimeRange, got.TimeRange)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)

	require.NoError(t, repo.DeleteByID(ctx, created.ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, created.ID), ErrNotFound)
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepo_Listing(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepo(newTestDB(t))

	for _, b := range []model.Booking{
		{Name: "c", WhatsApp: "1", TimeRange: "13:00 - 14:00", Date: "2024-01-02"},
		{Name: "b", WhatsApp: "1", TimeRange: "11:00 - 12:00", Date: "2024-01-01"},
		{Name: "a", WhatsApp: "1", TimeRange: "09:00 - 10:00", Date: "2024-01-01"},
	} {
		_, err := repo.Create(ctx, b)
		require.NoError(t, err)
	}

	day, err := repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "a", day[0].Name)
	assert.Equal(t, "b", day[1].Name)

	none, err := repo.ListByDate(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-01-01", all[0].Date)
	assert.Equal(t, "2024-01-02", all[2].Date)
}

func TestTokenRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepo(newTestDB(t))

	require.NoError(t, repo.StoreRefresh(ctx, "admin", "h1", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, "admin", "h2", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, "admin", "old", time.Now().Add(-time.Minute)))

	sub, err := repo.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	_, err = repo.ValidateRefresh(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.ValidateRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.RevokeByHash(ctx, "h1"))
	_, err = repo.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ValidateRefresh(ctx, "h2")
	require.NoError(t, err)
	require.NoError(t, repo.RevokeAllForSubject(ctx, "admin"))
	_, err = repo.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, ErrNotFound)
}
