package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// SequencedEvent is an event as recorded on the node's feed, tagged with its
// position and emission time.
type SequencedEvent struct {
	Sequence  uint64 `json:"sequence"`
	Timestamp uint64 `json:"timestamp"`
	Event     Event  `json:"event"`
}
