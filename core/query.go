package core

import (
	"math/big"

	"staychain/core/types"
	"staychain/native/currency"
)

// GetBalance reads the settlement currency balance of an address.
func (n *Node) GetBalance(addr [20]byte) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return currency.NewLedger(n.manager).BalanceOf(addr)
}

// Events returns up to limit sequenced events starting at the from cursor.
func (n *Node) Events(from uint64, limit int) ([]types.SequencedEvent, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.manager.FeedRange(from, limit)
}

// EventsHead returns the sequence number of the most recent event, zero when
// the feed is empty.
func (n *Node) EventsHead() (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.manager.FeedHead()
}
