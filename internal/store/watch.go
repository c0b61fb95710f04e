package store

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lbastos/axlink/internal/bus"
	"go.uber.org/zap"
)

// DefaultWatchInterval is the fallback poll interval used when filesystem
// notifications are unavailable or miss an update.
const DefaultWatchInterval = 5 * time.Second

// Refresh re-reads the authoritative change counter, discarding whatever
// this instance previously exposed, and re-raises "mail.changed" if the
// backing store moved. Abandoning a refresh (e.g. on shutdown) simply
// leaves the prior snapshot in place.
func (db *DB) Refresh() error {
	rev, err := db.Rev()
	if err != nil {
		return err
	}
	prev := db.seenRev.Swap(rev)
	if rev != prev && db.bus != nil {
		db.bus.Publish(bus.Event{Kind: "mail.changed", Timestamp: time.Now()})
	}
	return nil
}

// Watcher detects mutations of the backing database made by other process
// instances and publishes "mail.changed". It reacts to filesystem events on
// the database files and falls back to a slow periodic check, so detection
// never needs a tight polling loop. The event is a signal to call Refresh,
// not a diff.
type Watcher struct {
	db       *DB
	bus      *bus.Bus
	logger   *zap.Logger
	dbPath   string
	interval time.Duration
	cancel   context.CancelFunc

	// lastNotified suppresses repeat notifications for a rev that was
	// already announced but not yet refreshed away.
	lastNotified int64
}

// NewWatcher creates a watcher for the database at dbPath. interval <= 0
// selects DefaultWatchInterval.
func NewWatcher(db *DB, dbPath string, b *bus.Bus, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{
		db:       db,
		bus:      b,
		logger:   logger,
		dbPath:   dbPath,
		interval: interval,
	}
}

// Start begins watching. Filesystem watch failures degrade to the periodic
// check instead of failing the daemon.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	var fsEvents chan fsnotify.Event
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, falling back to polling", zap.Error(err))
		fw = nil
	} else {
		// Watch the directory: SQLite creates and removes -wal/-shm files.
		if err := fw.Add(filepath.Dir(w.dbPath)); err != nil {
			w.logger.Warn("watch profile dir failed, falling back to polling", zap.Error(err))
			_ = fw.Close()
			fw = nil
		}
	}
	if fw != nil {
		fsEvents = make(chan fsnotify.Event, 64)
		go forwardDBEvents(fw, w.dbPath, fsEvents)
	}

	go func() {
		if fw != nil {
			defer func() { _ = fw.Close() }()
		}
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		// Debounce burst writes: a single commit touches several files.
		var pending <-chan time.Time
		for {
			select {
			case <-fsEvents:
				if pending == nil {
					pending = time.After(100 * time.Millisecond)
				}
			case <-pending:
				pending = nil
				w.check()
			case <-ticker.C:
				w.check()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// check compares the authoritative rev against what this instance has seen
// of its own writes; anything beyond it was committed by another actor.
func (w *Watcher) check() {
	rev, err := w.db.Rev()
	if err != nil {
		w.logger.Warn("change check failed", zap.Error(err))
		return
	}
	if rev <= w.db.SeenRev() || rev == w.lastNotified {
		return
	}
	w.lastNotified = rev
	w.bus.Publish(bus.Event{Kind: "mail.changed", Timestamp: time.Now()})
}

func forwardDBEvents(fw *fsnotify.Watcher, dbPath string, out chan<- fsnotify.Event) {
	base := filepath.Base(dbPath)
	for {
		select {
		case evt, ok := <-fw.Events:
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(evt.Name), base) {
				select {
				case out <- evt:
				default:
				}
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return
			}
		}
	}
}
