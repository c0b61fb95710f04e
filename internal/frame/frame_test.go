package frame

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lbastos/axlink/internal/bus"
	"github.com/lbastos/axlink/internal/status"
	"github.com/lbastos/axlink/internal/store"
	"github.com/lbastos/axlink/internal/timeline"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func chatFrame(id string) *Frame {
	return &Frame{
		Route:     "WIDE1-1",
		Sender:    "N0CALL-5",
		Payload:   "hello from the hill",
		Kind:      timeline.KindText,
		MessageID: id,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestToEntry(t *testing.T) {
	f := chatFrame("m1")
	f.HasPosition = true
	f.Lat, f.Lon = 48.2, 16.37

	e := f.ToEntry()
	if e.Sender != "N0CALL-5" || e.MessageID != "m1" || e.Kind != timeline.KindText {
		t.Errorf("entry = %+v", e)
	}
	if e.Auth != timeline.AuthUnknown {
		t.Errorf("auth = %s, want unknown (initial)", e.Auth)
	}
	if !e.HasPosition || e.Lat != 48.2 || e.Lon != 16.37 {
		t.Errorf("position = %v %v %v", e.HasPosition, e.Lat, e.Lon)
	}
}

func TestHandlerPublishesEntry(t *testing.T) {
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	h := NewHandler(b, status.NewMachine(nil), logger)

	ch, unsub := b.Subscribe("radio.entry", 10)
	defer unsub()

	h.Handle(chatFrame("m1"))

	select {
	case evt := <-ch:
		entry, ok := evt.Payload.(timeline.Entry)
		if !ok {
			t.Fatalf("payload type = %T, want timeline.Entry", evt.Payload)
		}
		if entry.MessageID != "m1" {
			t.Errorf("message_id = %q, want m1", entry.MessageID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for radio.entry")
	}
}

func TestHandlerPublishesMail(t *testing.T) {
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	h := NewHandler(b, status.NewMachine(nil), logger)

	ch, unsub := b.Subscribe("radio.mail", 10)
	defer unsub()

	h.Handle(&Frame{
		Sender:    "N0CALL-5",
		Kind:      KindMail,
		Timestamp: time.Now(),
		Mail:      &store.Mail{MessageID: "M001", Subject: "hi"},
	})

	select {
	case evt := <-ch:
		m, ok := evt.Payload.(*store.Mail)
		if !ok || m.MessageID != "M001" {
			t.Errorf("payload = %v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for radio.mail")
	}
}

func TestHandlerDropsMailFrameWithoutPayload(t *testing.T) {
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	h := NewHandler(b, status.NewMachine(nil), logger)

	ch, unsub := b.Subscribe("radio.", 10)
	defer unsub()

	h.Handle(&Frame{Sender: "N0CALL-5", Kind: KindMail, Timestamp: time.Now()})

	select {
	case evt := <-ch:
		t.Errorf("unexpected event %q for empty mail frame", evt.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandlerDrivesLinkStates(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	logger, _ := zap.NewDevelopment()
	h := NewHandler(b, m, logger)

	_ = m.Transition(status.Offline)
	h.Connected()
	if m.Current() != status.Syncing {
		t.Errorf("state after Connected = %s, want SYNCING", m.Current())
	}

	// First live chat frame ends the syncing phase.
	h.Handle(chatFrame("m1"))
	if m.Current() != status.Ready {
		t.Errorf("state after first frame = %s, want READY", m.Current())
	}

	h.Disconnected()
	if m.Current() != status.Reconnecting {
		t.Errorf("state after Disconnected = %s, want RECONNECTING", m.Current())
	}
}

func TestEngineIngestsEntry(t *testing.T) {
	tl := timeline.New()
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	e := NewEngine(tl, testDB(t), b, logger)

	ch, unsub := b.Subscribe("timeline.appended", 10)
	defer unsub()

	if err := e.IngestEntry(chatFrame("m1").ToEntry()); err != nil {
		t.Fatalf("IngestEntry() error = %v", err)
	}
	if tl.Len() != 1 {
		t.Errorf("timeline len = %d, want 1", tl.Len())
	}

	select {
	case evt := <-ch:
		payload := evt.Payload.(map[string]string)
		if payload["message_id"] != "m1" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for timeline.appended")
	}
}

func TestEngineIngestsMail(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	e := NewEngine(timeline.New(), db, b, logger)

	m := &store.Mail{
		MessageID:   "M001",
		From:        "N0CALL-5",
		Subject:     "supplies",
		Date:        time.Now(),
		Attachments: []store.Attachment{{Name: "list.txt", Data: []byte("coax")}},
	}
	if err := e.IngestMail(m); err != nil {
		t.Fatalf("IngestMail() error = %v", err)
	}

	got, err := db.GetMail("M001")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Attachments) != 1 {
		t.Errorf("attachments = %d, want 1", len(got.Attachments))
	}
}

func TestEngineEndToEndViaBus(t *testing.T) {
	tl := timeline.New()
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	machine := status.NewMachine(nil)
	h := NewHandler(b, machine, logger)
	e := NewEngine(tl, testDB(t), b, logger)

	e.Start(context.Background())
	defer e.Stop()

	h.Handle(chatFrame("m1"))
	// A replayed frame must be rejected, not merged, and must not crash the engine.
	h.Handle(chatFrame("m1"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tl.Len() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeline len = %d, want 1", tl.Len())
}
