package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lbastos/axlink/internal/bus"
	"github.com/lbastos/axlink/internal/store"
	"github.com/lbastos/axlink/internal/timeline"
	"go.uber.org/zap"
)

// FrameSender is the transport collaborator interface for transmitting a
// payload to a destination callsign.
type FrameSender interface {
	SendFrame(ctx context.Context, dest, payload, kind string) error
}

// Sender drains the outbox and transmits queued entries via the radio
// transport. Sent entries are appended to the timeline as own
// transmissions; the protocol assigns no message id to them.
type Sender struct {
	db       *store.DB
	tl       *timeline.Timeline
	sender   FrameSender
	bus      *bus.Bus
	logger   *zap.Logger
	callsign string // operator callsign stamped on own entries
	cancel   context.CancelFunc
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, tl *timeline.Timeline, sender FrameSender, b *bus.Bus, callsign string, logger *zap.Logger) *Sender {
	return &Sender{
		db:       db,
		tl:       tl,
		sender:   sender,
		bus:      b,
		logger:   logger,
		callsign: callsign,
	}
}

// Queue enqueues a local transmission and returns its client message id.
func (s *Sender) Queue(dest, payload, kind string) (string, error) {
	clientMsgID := uuid.NewString()
	if err := s.db.QueueOutbox(clientMsgID, dest, payload, kind); err != nil {
		return "", err
	}
	return clientMsgID, nil
}

// Start begins polling the outbox for pending transmissions.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		// Optimistic append: show the own transmission immediately.
		now := time.Now()
		if err := s.tl.Append(timeline.Entry{
			Sender:    s.callsign,
			Payload:   entry.Payload,
			Kind:      entry.Kind,
			Timestamp: now,
			IsOwn:     true,
		}); err != nil {
			s.logger.Warn("optimistic append failed", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		} else {
			s.bus.Publish(bus.Event{
				Kind:      "timeline.appended",
				Timestamp: time.Now(),
				Payload:   map[string]string{"message_id": "", "sender": s.callsign},
			})
		}

		if err := s.sender.SendFrame(ctx, entry.Dest, entry.Payload, entry.Kind); err != nil {
			s.logger.Error("failed to transmit", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			_ = s.db.MarkOutboxFailed(entry.ClientMsgID, err.Error())
			s.bus.Publish(bus.Event{
				Kind:      "outbox.send_failed",
				Timestamp: time.Now(),
				Payload: map[string]string{
					"client_msg_id": entry.ClientMsgID,
					"error":         err.Error(),
				},
			})
			continue
		}

		if err := s.db.MarkOutboxSent(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		}

		s.logger.Info("transmission sent", zap.String("client_msg_id", entry.ClientMsgID), zap.String("dest", entry.Dest))
		s.bus.Publish(bus.Event{
			Kind:      "outbox.send_ack",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"client_msg_id": entry.ClientMsgID,
			},
		})
	}
}
