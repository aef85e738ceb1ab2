package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/calendar-booking/internal/config"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		whatsapp   VARCHAR(64)  NOT NULL,
		time_range VARCHAR(13)  NOT NULL,
		date       CHAR(10)     NOT NULL,
		created_at DATETIME     NOT NULL,
		INDEX idx_bookings_date (date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		subject    VARCHAR(128) NOT NULL,
		token_hash CHAR(64)     NOT NULL UNIQUE,
		expires_at DATETIME     NOT NULL,
		revoked_at DATETIME     NULL,
		created_at DATETIME     NOT NULL,
		INDEX idx_refresh_tokens_subject (subject)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id         TEXT     NOT NULL PRIMARY KEY,
		name       TEXT     NOT NULL,
		whatsapp   TEXT     NOT NULL,
		time_range TEXT     NOT NULL,
		date       TEXT     NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		subject    TEXT     NOT NULL,
		token_hash TEXT     NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_subject ON refresh_tokens(subject)`,
}

// Migrate creates the tables if they do not exist. It is safe to run on
// every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case config.DriverMySQL:
		stmts = mysqlSchema
	case config.DriverSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", driver)
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// OpenTestDB opens a migrated SQLite database in dir. Tests in other
// packages use it so they run against the same schema as production.
func OpenTestDB(dir string) (*sql.DB, error) {
	db, err := OpenSQLite(dir + "/calendar.db")
	if err != nil {
		return nil, err
	}
	if err := Migrate(context.Background(), db, config.DriverSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
