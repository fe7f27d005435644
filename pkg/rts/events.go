package rts

// Event is a structured record of an applied command, a rejection, or a
// notable AI decision: enough for an external replay system to reconstruct
// and explain the match. The core emits events; it never persists them.
type Event struct {
	Tick   int      `json:"tick"`
	Actor  PlayerID `json:"actor"`
	Action string   `json:"action"`
	Reason string   `json:"reason,omitempty"`
}

// EventSink receives events as they occur. Implementations must not block;
// the tick loop calls Record synchronously.
type EventSink interface {
	Record(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// MemorySink collects events in order, for tests and replay capture.
type MemorySink struct {
	Events []Event
}

func (s *MemorySink) Record(e Event) {
	s.Events = append(s.Events, e)
}
