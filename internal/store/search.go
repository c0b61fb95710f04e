package store

import "time"

// SearchMails performs a full-text search over mail subjects and bodies.
func (db *DB) SearchMails(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT m.message_id, m.from_addr, m.to_addr, m.cc_addr, m.subject, m.body, m.date_time,
		       snippet(mails_fts, 1, '<<', '>>', '...', 32)
		FROM mails_fts f
		JOIN mails m ON m.rowid = f.rowid
		WHERE mails_fts MATCH ?
		ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var dateMilli int64
		if err := rows.Scan(
			&r.Mail.MessageID, &r.Mail.From, &r.Mail.To, &r.Mail.CC,
			&r.Mail.Subject, &r.Mail.Body, &dateMilli, &r.Snippet,
		); err != nil {
			return nil, err
		}
		r.Mail.Date = time.UnixMilli(dateMilli).UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}
