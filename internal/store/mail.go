package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AddMail commits a mail and its attachments in one transaction. The
// attachment bytes are durable before the mail row becomes visible to any
// reader, so there is no observable orphan window.
func (db *DB) AddMail(m *Mail) error {
	if m.MessageID == "" {
		return fmt.Errorf("%w: empty message id", ErrValidation)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM mails WHERE message_id = ?`, m.MessageID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, m.MessageID)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check duplicate: %w", err)
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO mails (message_id, from_addr, to_addr, cc_addr, subject, body, date_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.From, m.To, m.CC, m.Subject, m.Body, m.Date.UnixMilli(), now); err != nil {
		return fmt.Errorf("insert mail: %w", err)
	}

	if err := insertAttachments(tx, m.MessageID, m.Attachments); err != nil {
		return err
	}

	rev, err := bumpRev(tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.markSeen(rev)
	return nil
}

// AddMails commits each mail independently. A failing item does not roll
// back already-committed items; the caller gets a per-item result so it can
// retry just the failures.
func (db *DB) AddMails(mails []Mail) []AddResult {
	results := make([]AddResult, 0, len(mails))
	for i := range mails {
		results = append(results, AddResult{
			MessageID: mails[i].MessageID,
			Err:       db.AddMail(&mails[i]),
		})
	}
	return results
}

// UpdateMail replaces the full record, attachments included.
func (db *DB) UpdateMail(m *Mail) error {
	if m.MessageID == "" {
		return fmt.Errorf("%w: empty message id", ErrValidation)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE mails SET from_addr = ?, to_addr = ?, cc_addr = ?, subject = ?, body = ?, date_time = ?
		WHERE message_id = ?`,
		m.From, m.To, m.CC, m.Subject, m.Body, m.Date.UnixMilli(), m.MessageID)
	if err != nil {
		return fmt.Errorf("update mail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, m.MessageID)
	}

	if _, err := tx.Exec(`DELETE FROM attachments WHERE message_id = ?`, m.MessageID); err != nil {
		return fmt.Errorf("clear attachments: %w", err)
	}
	if err := insertAttachments(tx, m.MessageID, m.Attachments); err != nil {
		return err
	}

	rev, err := bumpRev(tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.markSeen(rev)
	return nil
}

// DeleteMail removes the mail and all its attachment storage in one
// transaction. Deleting an absent mail is an idempotent no-op.
func (db *DB) DeleteMail(messageID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Attachments go via ON DELETE CASCADE.
	res, err := tx.Exec(`DELETE FROM mails WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("delete mail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Nothing changed; do not bump the rev counter.
		return nil
	}

	rev, err := bumpRev(tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.markSeen(rev)
	return nil
}

// GetMail returns the mail with its attachments, or ErrNotFound.
func (db *DB) GetMail(messageID string) (*Mail, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	m, err := scanMail(tx.QueryRow(`
		SELECT message_id, from_addr, to_addr, cc_addr, subject, body, date_time
		FROM mails WHERE message_id = ?`, messageID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, messageID)
	}
	if err != nil {
		return nil, err
	}
	if m.Attachments, err = loadAttachments(tx, messageID); err != nil {
		return nil, err
	}
	return m, nil
}

// GetAllMails returns every committed mail ordered by date. The read runs
// in a single transaction so the result is a consistent snapshot.
func (db *DB) GetAllMails() ([]Mail, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`
		SELECT message_id, from_addr, to_addr, cc_addr, subject, body, date_time
		FROM mails ORDER BY date_time ASC, message_id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var mails []Mail
	for rows.Next() {
		m, err := scanMail(rows)
		if err != nil {
			return nil, err
		}
		mails = append(mails, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range mails {
		if mails[i].Attachments, err = loadAttachments(tx, mails[i].MessageID); err != nil {
			return nil, err
		}
	}
	return mails, nil
}

// MailExists is a pure existence check.
func (db *DB) MailExists(messageID string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM mails WHERE message_id = ?`, messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of committed mails.
func (db *DB) Count() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM mails`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMail(row rowScanner) (*Mail, error) {
	var m Mail
	var dateMilli int64
	if err := row.Scan(&m.MessageID, &m.From, &m.To, &m.CC, &m.Subject, &m.Body, &dateMilli); err != nil {
		return nil, err
	}
	m.Date = time.UnixMilli(dateMilli).UTC()
	return &m, nil
}

func loadAttachments(tx *sql.Tx, messageID string) ([]Attachment, error) {
	rows, err := tx.Query(`
		SELECT name, data FROM attachments WHERE message_id = ? ORDER BY idx ASC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var atts []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.Name, &a.Data); err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

func insertAttachments(tx *sql.Tx, messageID string, atts []Attachment) error {
	for i, a := range atts {
		if _, err := tx.Exec(`
			INSERT INTO attachments (message_id, idx, name, data) VALUES (?, ?, ?, ?)`,
			messageID, i, a.Name, a.Data); err != nil {
			return fmt.Errorf("insert attachment %q: %w", a.Name, err)
		}
	}
	return nil
}
