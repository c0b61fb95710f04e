package frame

import (
	"time"

	"github.com/lbastos/axlink/internal/store"
	"github.com/lbastos/axlink/internal/timeline"
)

// Frame is the decoded tuple handed over by the transport collaborator.
// The radio's binary command set and the AX.25 codec live outside the core;
// by the time a Frame arrives, classification and any authentication
// verdict production have already been handled upstream.
type Frame struct {
	Route     string
	Sender    string
	Payload   string
	Kind      string // timeline.KindText, KindVoice, KindPosition or KindMail
	MessageID string
	Timestamp time.Time
	IsOwn     bool

	HasPosition bool
	Lat, Lon    float64

	// Mail carries the decoded message for KindMail frames.
	Mail *store.Mail
}

// KindMail marks a frame carrying a store-and-forward mail payload.
const KindMail = "mail"

// ToEntry normalizes a chat/voice frame into a timeline entry.
func (f *Frame) ToEntry() timeline.Entry {
	return timeline.Entry{
		Route:       f.Route,
		Sender:      f.Sender,
		Payload:     f.Payload,
		MessageID:   f.MessageID,
		Kind:        f.Kind,
		Timestamp:   f.Timestamp,
		IsOwn:       f.IsOwn,
		Auth:        timeline.AuthUnknown,
		HasPosition: f.HasPosition,
		Lat:         f.Lat,
		Lon:         f.Lon,
	}
}
