package db

import (
	"database/sql"
	"fmt"
	"strings"

	"org-directory/pkg/geo"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver registered by this package. It
// is go-sqlite3 with the directory's SQL functions added to every
// connection.
const DriverName = "sqlite3_directory"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: registerFunctions,
	})
}

// registerFunctions installs:
//
//	distance_km(lat1, lng1, lat2, lng2) great-circle distance in km
//	lower_unicode(text)                 Unicode-aware lower()
//
// SQLite's built-in lower() and LIKE only fold ASCII.
func registerFunctions(conn *sqlite3.SQLiteConn) error {
	if err := conn.RegisterFunc("distance_km", geo.DistanceKm, true); err != nil {
		return fmt.Errorf("failed to register distance_km: %w", err)
	}
	if err := conn.RegisterFunc("lower_unicode", strings.ToLower, true); err != nil {
		return fmt.Errorf("failed to register lower_unicode: %w", err)
	}
	return nil
}

// dsn builds the connection string. Foreign keys are enforced, writers
// wait busyTimeoutMs for the lock, and every transaction starts with
// BEGIN IMMEDIATE so check-then-insert sequences hold the write lock.
func dsn(path string, busyTimeoutMs int) string {
	return fmt.Sprintf(
		"file:%s?_foreign_keys=on&_busy_timeout=%d&_txlock=immediate&_journal_mode=WAL&_synchronous=NORMAL",
		path, busyTimeoutMs,
	)
}
