package frame

import (
	"context"
	"errors"
	"time"

	"github.com/lbastos/axlink/internal/bus"
	"github.com/lbastos/axlink/internal/store"
	"github.com/lbastos/axlink/internal/timeline"
	"go.uber.org/zap"
)

// Engine handles ingestion of normalized radio events into the timeline and
// the mail store. It subscribes to "radio." events on the bus and processes
// them.
type Engine struct {
	tl     *timeline.Timeline
	mails  store.MailStore
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates a new ingestion engine.
func NewEngine(tl *timeline.Timeline, mails store.MailStore, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		tl:     tl,
		mails:  mails,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to inbound radio events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("radio.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "radio.entry":
		entry, ok := evt.Payload.(timeline.Entry)
		if !ok {
			return
		}
		if err := e.IngestEntry(entry); err != nil {
			if errors.Is(err, timeline.ErrDuplicateEntry) {
				// Replays are expected on radio paths; reject, don't merge.
				e.logger.Warn("duplicate entry rejected", zap.String("message_id", entry.MessageID), zap.String("sender", entry.Sender))
				return
			}
			e.logger.Error("failed to ingest entry", zap.Error(err), zap.String("message_id", entry.MessageID))
		}
	case "radio.mail":
		m, ok := evt.Payload.(*store.Mail)
		if !ok {
			return
		}
		if err := e.IngestMail(m); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				e.logger.Warn("duplicate mail rejected", zap.String("message_id", m.MessageID))
				return
			}
			e.logger.Error("failed to ingest mail", zap.Error(err), zap.String("message_id", m.MessageID))
		}
	}
}

// IngestEntry appends a chat/voice entry to the timeline and announces it.
func (e *Engine) IngestEntry(entry timeline.Entry) error {
	if err := e.tl.Append(entry); err != nil {
		return err
	}
	e.bus.Publish(bus.Event{
		Kind:      "timeline.appended",
		Timestamp: time.Now(),
		Payload: map[string]string{
			"message_id": entry.MessageID,
			"sender":     entry.Sender,
		},
	})
	return nil
}

// IngestMail commits a received mail and announces it.
func (e *Engine) IngestMail(m *store.Mail) error {
	if err := e.mails.AddMail(m); err != nil {
		return err
	}
	e.bus.Publish(bus.Event{
		Kind:      "mail.added",
		Timestamp: time.Now(),
		Payload: map[string]string{
			"message_id": m.MessageID,
		},
	})
	return nil
}
