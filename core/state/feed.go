package state

import (
	"fmt"
	"sort"

	"staychain/core/types"
)

type feedAttr struct {
	Key   string
	Value string
}

type storedFeedEvent struct {
	Sequence  uint64
	Timestamp uint64
	Type      string
	Attrs     []feedAttr
}

// FeedAppend records the event on the sequenced feed and returns the assigned
// sequence number. Sequences start at 1 and never repeat.
func (m *Manager) FeedAppend(evt *types.Event, timestamp uint64) (uint64, error) {
	if evt == nil {
		return 0, fmt.Errorf("state: nil event")
	}
	var head uint64
	if _, err := m.KVGet(feedHeadKey, &head); err != nil {
		return 0, err
	}
	head++
	stored := storedFeedEvent{
		Sequence:  head,
		Timestamp: timestamp,
		Type:      evt.Type,
		Attrs:     make([]feedAttr, 0, len(evt.Attributes)),
	}
	for key, value := range evt.Attributes {
		stored.Attrs = append(stored.Attrs, feedAttr{Key: key, Value: value})
	}
	sort.Slice(stored.Attrs, func(i, j int) bool { return stored.Attrs[i].Key < stored.Attrs[j].Key })
	if err := m.KVPut(feedEventKey(head), stored); err != nil {
		return 0, err
	}
	if err := m.KVPut(feedHeadKey, head); err != nil {
		return 0, err
	}
	return head, nil
}

// FeedHead returns the sequence number of the most recent feed event. Zero
// when the feed is empty.
func (m *Manager) FeedHead() (uint64, error) {
	var head uint64
	if _, err := m.KVGet(feedHeadKey, &head); err != nil {
		return 0, err
	}
	return head, nil
}

// FeedRange returns up to limit events starting at the from sequence
// (inclusive). A from of 0 is treated as 1.
func (m *Manager) FeedRange(from uint64, limit int) ([]types.SequencedEvent, error) {
	head, err := m.FeedHead()
	if err != nil {
		return nil, err
	}
	if from == 0 {
		from = 1
	}
	if limit <= 0 {
		limit = 100
	}
	out := make([]types.SequencedEvent, 0, limit)
	for seq := from; seq <= head && len(out) < limit; seq++ {
		var stored storedFeedEvent
		ok, err := m.KVGet(feedEventKey(seq), &stored)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(stored.Attrs))
		for _, attr := range stored.Attrs {
			attrs[attr.Key] = attr.Value
		}
		out = append(out, types.SequencedEvent{
			Sequence:  stored.Sequence,
			Timestamp: stored.Timestamp,
			Event:     types.Event{Type: stored.Type, Attributes: attrs},
		})
	}
	return out, nil
}
