package deliverables

import (
	"sort"
	"strings"
)

// Item is the minimal view of a deliverable the group rules need.
type Item struct {
	ID             int64
	BookingID      int64
	Name           string
	Quantity       int64
	UnitPriceCents int64
	Status         Status
}

type Group struct {
	BookingID   int64            `json:"booking_id"`
	Name        string           `json:"name"`
	Status      Status           `json:"status"`
	Quantity    int64            `json:"quantity"`
	AmountCents int64            `json:"amount_cents"`
	Counts      map[Status]int64 `json:"counts"`
	ItemIDs     []int64          `json:"item_ids"`
}

// GroupKey normalizes an item name so that "Towels" and " towels " group together.
func GroupKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Aggregate summarizes items that belong to one group.
//
// A group with no items is Pending. When nothing is live the group is
// Refunded if any item was refunded, otherwise Cancelled. Otherwise the group
// reports its least advanced live item.
func Aggregate(items []Item) Status {
	if len(items) == 0 {
		return StatusPending
	}

	var (
		anyLive     bool
		anyRefunded bool
		least       = StatusDelivered
	)
	for _, item := range items {
		if item.Status == StatusRefunded {
			anyRefunded = true
		}
		if !item.Status.IsLive() {
			continue
		}
		anyLive = true
		if item.Status.rank() < least.rank() {
			least = item.Status
		}
	}

	if !anyLive {
		if anyRefunded {
			return StatusRefunded
		}
		return StatusCancelled
	}
	return least
}

// GroupItems partitions items by booking and normalized name. Groups come back
// ordered by booking then by first appearance of the name; the group name is
// the first spelling seen.
func GroupItems(items []Item) []Group {
	type key struct {
		bookingID int64
		name      string
	}

	index := make(map[key]int)
	members := [][]Item{}
	groups := []Group{}
	for _, item := range items {
		k := key{bookingID: item.BookingID, name: GroupKey(item.Name)}
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, Group{
				BookingID: item.BookingID,
				Name:      strings.TrimSpace(item.Name),
				Counts:    map[Status]int64{},
			})
			members = append(members, nil)
		}
		members[pos] = append(members[pos], item)
	}

	for i := range groups {
		for _, item := range members[i] {
			groups[i].Counts[item.Status]++
			groups[i].ItemIDs = append(groups[i].ItemIDs, item.ID)
			if item.Status.IsLive() {
				groups[i].Quantity += item.Quantity
				groups[i].AmountCents += item.Quantity * item.UnitPriceCents
			}
		}
		groups[i].Status = Aggregate(members[i])
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].BookingID < groups[b].BookingID
	})
	return groups
}

// Change is one item's planned move in a batch.
type Change struct {
	ID    int64
	From  Status
	To    Status
	Delta int64
}

// PlanBatch decides how a batch of items moves to target. Items already at
// target and terminal items are skipped. Any other item that cannot make the
// move fails the whole batch.
func PlanBatch(items []Item, target Status) ([]Change, error) {
	changes := make([]Change, 0, len(items))
	for _, item := range items {
		if item.Status == target || item.Status.IsTerminal() {
			continue
		}
		if !CanTransition(item.Status, target) {
			return nil, TransitionError{ID: item.ID, From: item.Status, To: target}
		}
		changes = append(changes, Change{
			ID:    item.ID,
			From:  item.Status,
			To:    target,
			Delta: StockDelta(item.Status, target, item.Quantity),
		})
	}
	return changes, nil
}
