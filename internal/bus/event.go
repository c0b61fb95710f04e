package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds are dot-namespaced: "radio." for decoded frames, "timeline." for
// chat/voice log changes, "mail." for mail store changes, "auth." for
// verification verdicts and "link." for link status transitions.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
