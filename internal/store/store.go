package store

// MailStore is the persistence contract for store-and-forward mail. It is
// designed to be implemented per platform; *DB is the SQLite-backed
// implementation. Beyond the methods below, an implementation must make
// cross-process mutation of the backing storage detectable: the SQLite
// implementation publishes "mail.changed" bus events from its Watcher, and
// the event is a signal to call Refresh, never a diff.
type MailStore interface {
	// GetAllMails returns every committed mail. Snapshot consistency: a
	// mail either fully appears, attachments resolvable, or not at all.
	GetAllMails() ([]Mail, error)
	// GetMail returns the mail or ErrNotFound.
	GetMail(messageID string) (*Mail, error)
	// AddMail commits a mail and its attachment bytes atomically. Fails
	// with ErrDuplicate if the message id already exists.
	AddMail(m *Mail) error
	// AddMails commits each mail independently; one failing item does not
	// roll back the rest. The per-item results let the caller retry only
	// the failures.
	AddMails(mails []Mail) []AddResult
	// UpdateMail replaces the full record, attachments included. Fails
	// with ErrNotFound if the message id does not exist.
	UpdateMail(m *Mail) error
	// DeleteMail removes the mail and all its attachment storage.
	// Idempotent: deleting an absent mail is a no-op, not an error.
	DeleteMail(messageID string) error
	// MailExists is a pure existence check.
	MailExists(messageID string) (bool, error)
	// Count returns the number of committed mails.
	Count() (int64, error)
	// Refresh re-reads authoritative backing state and re-raises
	// "mail.changed" if it differs from what was previously exposed.
	Refresh() error
}

var _ MailStore = (*DB)(nil)
