package store

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/lbastos/axlink/internal/bus"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection for the profile-owned axlink.db.
// The file may be shared with other axlink instances; WAL mode plus the
// busy timeout serialize writers across processes, and the meta rev counter
// (see watch.go) makes foreign mutation detectable.
type DB struct {
	*sql.DB
	bus *bus.Bus
	// seenRev is the last meta rev this instance wrote or refreshed to.
	// Anything newer in the database came from another actor.
	seenRev atomic.Int64
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db}, nil
}

// SetBus attaches the event bus used to publish "mail.changed" events from
// Refresh and the change watcher. Optional; a nil bus disables publishing.
func (db *DB) SetBus(b *bus.Bus) {
	db.bus = b
}

// Rev reads the authoritative change counter. Every committed mail write,
// by any process, bumps it.
func (db *DB) Rev() (int64, error) {
	var rev int64
	if err := db.QueryRow(`SELECT rev FROM meta WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read rev: %w", err)
	}
	return rev, nil
}

// SeenRev returns the last rev this instance has exposed to its readers.
func (db *DB) SeenRev() int64 {
	return db.seenRev.Load()
}

// bumpRev increments the change counter inside a write transaction and
// returns the new value.
func bumpRev(tx *sql.Tx) (int64, error) {
	if _, err := tx.Exec(`UPDATE meta SET rev = rev + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("bump rev: %w", err)
	}
	var rev int64
	if err := tx.QueryRow(`SELECT rev FROM meta WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read bumped rev: %w", err)
	}
	return rev, nil
}

// markSeen records a rev as self-inflicted so the watcher does not report
// our own commits as foreign changes. Keeps the maximum observed value.
func (db *DB) markSeen(rev int64) {
	for {
		cur := db.seenRev.Load()
		if rev <= cur || db.seenRev.CompareAndSwap(cur, rev) {
			return
		}
	}
}
