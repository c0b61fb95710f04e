package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/lbastos/axlink/internal/bus"
	"github.com/lbastos/axlink/internal/timeline"
	"go.uber.org/zap"
)

// Verdict is the opaque result delivered by the external verification
// collaborator. The tracker performs no cryptography itself.
type Verdict struct {
	MessageID string
	State     timeline.AuthState // AuthVerified or AuthFailed
}

// Target is where verdicts land. Satisfied by *timeline.Timeline.
type Target interface {
	ApplyVerdict(messageID string, state timeline.AuthState) error
}

// Tracker applies verification verdicts to timeline entries. It subscribes
// to "auth.verdict" events and parks verdicts that arrive before their
// entry, re-applying them when the entry shows up (radio delivery is
// out of order).
type Tracker struct {
	target Target
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]timeline.AuthState
}

// NewTracker creates a new verdict tracker.
func NewTracker(target Target, b *bus.Bus, logger *zap.Logger) *Tracker {
	return &Tracker{
		target:  target,
		bus:     b,
		logger:  logger,
		pending: make(map[string]timeline.AuthState),
	}
}

// Start subscribes to verdict and timeline events on the bus.
func (t *Tracker) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	verdicts, unsubV := t.bus.Subscribe("auth.verdict", 256)
	appends, unsubA := t.bus.Subscribe("timeline.appended", 256)

	go func() {
		defer unsubV()
		defer unsubA()
		for {
			select {
			case evt := <-verdicts:
				v, ok := evt.Payload.(Verdict)
				if !ok {
					continue
				}
				if err := t.Apply(v); err != nil {
					t.logger.Error("failed to apply verdict", zap.Error(err), zap.String("message_id", v.MessageID))
				}
			case evt := <-appends:
				payload, ok := evt.Payload.(map[string]string)
				if !ok {
					continue
				}
				t.retryPending(payload["message_id"])
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the tracker. An abandoned verdict simply leaves its entry at
// Unknown.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// Apply stamps a verdict onto its entry. A verdict for an entry that has
// not arrived yet is parked and retried on arrival; applying to an
// already-terminal entry is an idempotent no-op inside the target.
func (t *Tracker) Apply(v Verdict) error {
	err := t.target.ApplyVerdict(v.MessageID, v.State)
	if errors.Is(err, timeline.ErrNotFound) {
		t.mu.Lock()
		if _, ok := t.pending[v.MessageID]; !ok {
			// First verdict wins; a contradicting late duplicate would be
			// a no-op after application anyway.
			t.pending[v.MessageID] = v.State
		}
		t.mu.Unlock()
		return nil
	}
	return err
}

// PendingCount reports how many verdicts are parked awaiting their entry.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) retryPending(messageID string) {
	if messageID == "" {
		return
	}
	t.mu.Lock()
	state, ok := t.pending[messageID]
	if ok {
		delete(t.pending, messageID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	if err := t.target.ApplyVerdict(messageID, state); err != nil {
		t.logger.Error("failed to apply parked verdict", zap.Error(err), zap.String("message_id", messageID))
	}
}
