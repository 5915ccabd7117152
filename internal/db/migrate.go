package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the schema in sourceURL (for example file://migrations) on
// its own connection, which is closed before returning. It reports whether
// anything changed.
func Migrate(databaseURL, sourceURL string, dir Direction) (bool, error) {
	conn, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return false, fmt.Errorf("migration connection: %w", err)
	}
	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("migration source: %w", err)
	}
	defer m.Close()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Steps(-1)
	default:
		return false, fmt.Errorf("unknown migration direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
