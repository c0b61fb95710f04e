package store

import "time"

// Mail is a store-and-forward message with its attachments. MessageID is
// the protocol-assigned stable identifier.
type Mail struct {
	MessageID   string
	From        string
	To          string
	CC          string
	Subject     string
	Body        string
	Date        time.Time
	Attachments []Attachment
}

// Attachment is a named blob belonging to a mail. Its bytes are committed
// in the same transaction as the owning mail, so a reader can never observe
// a mail whose attachments are not yet (or no longer) resolvable.
type Attachment struct {
	Name string
	Data []byte
}

// AddResult is the per-item outcome of a batch AddMails call.
type AddResult struct {
	MessageID string
	Err       error
}

// OutboxEntry represents a pending outgoing transmission.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	Dest         string // destination callsign
	Payload      string
	Kind         string // text, voice
	Status       string // queued, sending, sent, failed
	ErrorMessage string
}

// SearchResult holds a mail with a search snippet.
type SearchResult struct {
	Mail    Mail
	Snippet string
}
