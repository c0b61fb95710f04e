package frame

import (
	"time"

	"github.com/lbastos/axlink/internal/bus"
	"github.com/lbastos/axlink/internal/status"
	"go.uber.org/zap"
)

// Handler receives decoded frames and link events from the transport
// collaborator, drives the link state machine, and publishes normalized
// domain events on the bus. It does NOT touch the timeline or the mail
// store directly — the ingestion engine subscribes to the bus independently.
type Handler struct {
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
}

// NewHandler creates a new frame handler.
func NewHandler(b *bus.Bus, machine *status.Machine, logger *zap.Logger) *Handler {
	return &Handler{
		bus:     b,
		machine: machine,
		logger:  logger,
	}
}

// Handle processes one decoded frame.
func (h *Handler) Handle(f *Frame) {
	if h.machine.Current() == status.Syncing && f.Kind != KindMail {
		_ = h.machine.Transition(status.Ready)
	}

	switch f.Kind {
	case KindMail:
		if f.Mail == nil {
			h.logger.Warn("mail frame without payload", zap.String("sender", f.Sender))
			return
		}
		h.bus.Publish(bus.Event{
			Kind:      "radio.mail",
			Timestamp: time.Now(),
			Payload:   f.Mail,
		})
	default:
		h.bus.Publish(bus.Event{
			Kind:      "radio.entry",
			Timestamp: time.Now(),
			Payload:   f.ToEntry(),
		})
	}
}

// Connected reports that the transport brought the link up.
func (h *Handler) Connected() {
	h.logger.Info("radio link connected")
	current := h.machine.Current()
	if current == status.Offline || current == status.Reconnecting {
		_ = h.machine.Transition(status.Connecting)
	}
	_ = h.machine.Transition(status.Syncing)
	h.bus.Publish(bus.Event{Kind: "radio.connected", Timestamp: time.Now()})
}

// Disconnected reports that the transport lost the link.
func (h *Handler) Disconnected() {
	h.logger.Warn("radio link disconnected")
	_ = h.machine.Transition(status.Reconnecting)
	h.bus.Publish(bus.Event{Kind: "radio.disconnected", Timestamp: time.Now()})
}
