package station

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

// ErrValidation is returned when a station fails identity validation.
var ErrValidation = errors.New("invalid station")

// Directory holds the configured remote stations for a profile, keyed by
// (callsign, type). Mutation is serialized by a single writer lock; reads
// take snapshots so iteration never observes a half-applied edit.
type Directory struct {
	mu       sync.RWMutex
	stations []Station
}

// NewDirectory creates an empty station directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// AddOrReplace inserts a station, removing any existing station with the
// same (callsign, type) first. Edits are modeled as remove+insert, so a
// replaced station moves to the end of the iteration order.
func (d *Directory) AddOrReplace(s Station) error {
	if s.Callsign == "" {
		return fmt.Errorf("%w: empty callsign", ErrValidation)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(s.Callsign, s.Type)
	d.stations = append(d.stations, s)
	return nil
}

// Remove deletes the station with the given identity. No-op when absent.
func (d *Directory) Remove(callsign string, typ Type) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(callsign, typ)
}

func (d *Directory) removeLocked(callsign string, typ Type) {
	for i, s := range d.stations {
		if s.Callsign == callsign && s.Type == typ {
			d.stations = append(d.stations[:i], d.stations[i+1:]...)
			return
		}
	}
}

// TerminalStations returns a restartable sequence over the terminal-type
// stations in insertion order. The sequence iterates a snapshot; concurrent
// edits do not affect an iteration already in progress.
func (d *Directory) TerminalStations() iter.Seq[Station] {
	snapshot := d.All()
	return func(yield func(Station) bool) {
		for _, s := range snapshot {
			if s.Type != Terminal {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Resolve looks up a station by callsign for route/display purposes,
// ignoring the "-0" SSID suffix on both sides. Returns nil when no station
// matches. Resolution never gates whether a message is accepted.
func (d *Directory) Resolve(callsign string) *Station {
	want := NoZero(callsign)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.stations {
		if d.stations[i].CallsignNoZero() == want {
			s := d.stations[i]
			return &s
		}
	}
	return nil
}

// All returns a snapshot of every station in insertion order.
func (d *Directory) All() []Station {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Station, len(d.stations))
	copy(out, d.stations)
	return out
}

// Len returns the number of configured stations.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.stations)
}
