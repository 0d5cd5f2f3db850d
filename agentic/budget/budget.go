// Package budget provides local token estimation and cap accounting that
// never calls out to a provider.
package budget

import "unicode/utf8"

// TokenCounter estimates token usage.
type TokenCounter interface {
	Count(text string) int
}

// CharCounter estimates tokens by characters (runes) per token (default 4).
type CharCounter struct {
	CharsPerToken int
}

// Count implements TokenCounter.
func (c CharCounter) Count(text string) int {
	per := c.CharsPerToken
	if per <= 0 {
		per = 4
	}
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + per - 1) / per
}

// Decision is the outcome of offering an item to a Ledger.
type Decision int

const (
	// Accept means the item fits and has been charged.
	Accept Decision = iota
	// SkipItem means the item alone exceeds the per-item cap.
	SkipItem
	// Exhausted means the item would push the running total over the cap.
	Exhausted
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case SkipItem:
		return "skip_item"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Ledger tracks a running token total against a per-item and an overall cap.
// Caps are literal: a zero cap rejects every item with a non-zero cost.
type Ledger struct {
	PerItem int
	Total   int
	used    int
}

// Offer charges cost to the ledger when it fits both caps.
func (l *Ledger) Offer(cost int) Decision {
	if cost > l.PerItem {
		return SkipItem
	}
	if l.used+cost > l.Total {
		return Exhausted
	}
	l.used += cost
	return Accept
}

// Used returns the tokens charged so far.
func (l *Ledger) Used() int {
	return l.used
}

// Remaining returns the tokens left under the total cap.
func (l *Ledger) Remaining() int {
	return max(l.Total-l.used, 0)
}
