package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMail(id string) *Mail {
	return &Mail{
		MessageID: id,
		From:      "N0CALL-5",
		To:        "K1ABC",
		Subject:   "position report",
		Body:      "see attached",
		Date:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Attachments: []Attachment{
			{Name: "track.gpx", Data: []byte("<gpx/>")},
			{Name: "photo.jpg", Data: []byte{0xff, 0xd8, 0xff}},
		},
	}
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + fts)", result.Version)
	}
}

func TestAddAndGetMail(t *testing.T) {
	db := testDB(t)

	m := testMail("M001")
	if err := db.AddMail(m); err != nil {
		t.Fatalf("AddMail() error = %v", err)
	}

	got, err := db.GetMail("M001")
	if err != nil {
		t.Fatalf("GetMail() error = %v", err)
	}
	if got.From != "N0CALL-5" || got.Subject != "position report" {
		t.Errorf("mail = %+v", got)
	}
	if !got.Date.Equal(m.Date) {
		t.Errorf("date = %v, want %v", got.Date, m.Date)
	}

	// Every attachment's backing bytes must be retrievable.
	if len(got.Attachments) != 2 {
		t.Fatalf("got %d attachments, want 2", len(got.Attachments))
	}
	if got.Attachments[0].Name != "track.gpx" || string(got.Attachments[0].Data) != "<gpx/>" {
		t.Errorf("attachment[0] = %+v", got.Attachments[0])
	}
	if got.Attachments[1].Name != "photo.jpg" || len(got.Attachments[1].Data) != 3 {
		t.Errorf("attachment[1] = %+v", got.Attachments[1])
	}
}

func TestAddMailDuplicate(t *testing.T) {
	db := testDB(t)

	if err := db.AddMail(testMail("M001")); err != nil {
		t.Fatal(err)
	}
	err := db.AddMail(testMail("M001"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second AddMail error = %v, want ErrDuplicate", err)
	}
}

func TestAddMailEmptyID(t *testing.T) {
	db := testDB(t)
	err := db.AddMail(&Mail{Subject: "no id"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("AddMail(no id) error = %v, want ErrValidation", err)
	}
}

func TestAddMailsPartialFailure(t *testing.T) {
	db := testDB(t)

	m1 := testMail("M001")
	malformed := Mail{Subject: "missing id"}
	results := db.AddMails([]Mail{*m1, malformed})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("m1 result = %v, want nil", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrValidation) {
		t.Errorf("malformed result = %v, want ErrValidation", results[1].Err)
	}

	// m1 committed despite m2 failing.
	if _, err := db.GetMail("M001"); err != nil {
		t.Errorf("GetMail(M001) after partial batch error = %v", err)
	}
}

func TestUpdateMail(t *testing.T) {
	db := testDB(t)
	if err := db.AddMail(testMail("M001")); err != nil {
		t.Fatal(err)
	}

	updated := testMail("M001")
	updated.Subject = "corrected"
	updated.Attachments = []Attachment{{Name: "only.txt", Data: []byte("x")}}
	if err := db.UpdateMail(updated); err != nil {
		t.Fatalf("UpdateMail() error = %v", err)
	}

	got, err := db.GetMail("M001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "corrected" {
		t.Errorf("subject = %q, want corrected", got.Subject)
	}
	// Full replacement semantics: old attachments are gone.
	if len(got.Attachments) != 1 || got.Attachments[0].Name != "only.txt" {
		t.Errorf("attachments = %+v, want just only.txt", got.Attachments)
	}
}

func TestUpdateMailNotFound(t *testing.T) {
	db := testDB(t)
	err := db.UpdateMail(testMail("MISSING"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateMail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMailIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.AddMail(testMail("M001")); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteMail("M001"); err != nil {
		t.Fatalf("first DeleteMail() error = %v", err)
	}
	if err := db.DeleteMail("M001"); err != nil {
		t.Fatalf("second DeleteMail() error = %v (must be idempotent)", err)
	}

	exists, err := db.MailExists("M001")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("MailExists = true after delete, want false")
	}

	// No orphaned attachment rows may remain.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM attachments WHERE message_id = 'M001'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("found %d orphaned attachment rows, want 0", n)
	}
}

func TestGetAllMailsOrderedWithAttachments(t *testing.T) {
	db := testDB(t)

	later := testMail("M002")
	later.Date = later.Date.Add(time.Hour)
	if err := db.AddMail(later); err != nil {
		t.Fatal(err)
	}
	if err := db.AddMail(testMail("M001")); err != nil {
		t.Fatal(err)
	}

	mails, err := db.GetAllMails()
	if err != nil {
		t.Fatal(err)
	}
	if len(mails) != 2 {
		t.Fatalf("got %d mails, want 2", len(mails))
	}
	if mails[0].MessageID != "M001" || mails[1].MessageID != "M002" {
		t.Errorf("order = [%s %s], want [M001 M002]", mails[0].MessageID, mails[1].MessageID)
	}
	for _, m := range mails {
		if len(m.Attachments) != 2 {
			t.Errorf("mail %s has %d attachments, want 2", m.MessageID, len(m.Attachments))
		}
	}
}

func TestCount(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"M001", "M002", "M003"} {
		if err := db.AddMail(testMail(id)); err != nil {
			t.Fatal(err)
		}
	}
	count, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestGetMailNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetMail("MISSING")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSearchMails(t *testing.T) {
	db := testDB(t)

	m := testMail("M001")
	m.Body = "antenna tuning notes"
	if err := db.AddMail(m); err != nil {
		t.Fatal(err)
	}
	other := testMail("M002")
	other.Subject = "supply list"
	other.Body = "batteries and coax"
	if err := db.AddMail(other); err != nil {
		t.Fatal(err)
	}

	results, err := db.SearchMails("antenna", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Mail.MessageID != "M001" {
		t.Errorf("message_id = %q, want M001", results[0].Mail.MessageID)
	}

	// Deleted mail must drop out of the index.
	if err := db.DeleteMail("M001"); err != nil {
		t.Fatal(err)
	}
	results, err = db.SearchMails("antenna", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after delete, want 0", len(results))
	}
}

func TestOutbox(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox("c1", "K1ABC", "hello", "text"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	if pending[0].ClientMsgID != "c1" || pending[0].Dest != "K1ABC" {
		t.Errorf("entry = %+v", pending[0])
	}

	if err := db.MarkOutboxSending("c1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("c1"); err != nil {
		t.Fatal(err)
	}

	pending, err = db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending after sent, want 0", len(pending))
	}
}
