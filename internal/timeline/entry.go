package timeline

import (
	"strconv"
	"time"
)

// AuthState is the sender-identity verification state of an entry.
// Unknown is the only non-terminal state; Verified and Failed are final.
type AuthState string

const (
	AuthUnknown  AuthState = "unknown"
	AuthVerified AuthState = "verified"
	AuthFailed   AuthState = "failed"
)

// Entry kinds as classified by the frame decoder.
const (
	KindText     = "text"
	KindVoice    = "voice"
	KindPosition = "position"
)

// Entry is one chat or voice item in the timeline.
type Entry struct {
	Route     string
	Sender    string
	Payload   string // text body or voice-clip reference
	MessageID string // protocol-assigned; empty for locally-originated entries
	Kind      string
	Timestamp time.Time
	IsOwn     bool
	Auth      AuthState
	// Optional geolocation reported by the sender.
	HasPosition bool
	Lat, Lon    float64
	Visible     bool
}

// DedupKey returns the identity key used for duplicate rejection: the
// protocol message id when present, otherwise sender plus timestamp.
func (e *Entry) DedupKey() string {
	if e.MessageID != "" {
		return e.MessageID
	}
	return e.Sender + "\x00" + strconv.FormatInt(e.Timestamp.UnixNano(), 10)
}
