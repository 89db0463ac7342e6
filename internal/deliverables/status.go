// Package deliverables holds the add-on item lifecycle and the rules for
// summarizing items that belong to the same group.
package deliverables

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusPreparing Status = "Preparing"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
	StatusRefunded  Status = "Refunded"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusPreparing,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusPending, StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusRefunded},
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, status := range AllStatuses {
		if strings.EqualFold(raw, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown deliverable status %q", raw)
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// IsLive reports whether the item still counts toward its group.
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusDelivered
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPreparing:
		return 1
	case StatusDelivered:
		return 2
	}
	return 3
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s.
func NextStatuses(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// StockDelta returns the change to apply to linked inventory when an item of
// the given quantity moves from one status to another. Stock is held while an
// item is Preparing and released if it goes back to Pending or is cancelled.
func StockDelta(from, to Status, quantity int64) int64 {
	switch {
	case from == StatusPending && to == StatusPreparing:
		return -quantity
	case from == StatusPreparing && (to == StatusPending || to == StatusCancelled):
		return quantity
	}
	return 0
}

type TransitionError struct {
	ID   int64
	From Status
	To   Status
}

func (e TransitionError) Error() string {
	if e.ID > 0 {
		return fmt.Sprintf("deliverable %d cannot move from %s to %s", e.ID, e.From, e.To)
	}
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}
