package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
)

var (
	ErrUnknownItem  = errors.New("deliverable not on board")
	ErrUnknownGroup = errors.New("deliverable group not on board")
)

// BoardAPI is the part of Client a Board needs.
type BoardAPI interface {
	ListDeliverables(ctx context.Context, bookingID int64) ([]dbgen.ListDeliverablesRow, error)
	UpdateDeliverableStatus(ctx context.Context, id int64, status deliverables.Status) (dbgen.Deliverable, error)
	UpdateGroupStatus(ctx context.Context, bookingID int64, name string, status deliverables.Status) (BatchResult, error)
}

// Board is a local copy of the deliverables board. Status changes show up
// locally before the server answers and are put back if the request fails.
// A group change is applied and reverted as a unit.
//
// Each optimistic write takes a token. A revert or settle only touches an item
// whose latest token is still its own, so a slow failure never undoes a newer
// change to the same item.
type Board struct {
	api       BoardAPI
	bookingID int64

	mu      sync.Mutex
	rows    []dbgen.ListDeliverablesRow
	index   map[int64]int
	pending map[int64]uint64
	seq     uint64
}

// NewBoard returns an empty board for every booking, or one booking when
// bookingID > 0. Call Refresh to load it.
func NewBoard(api BoardAPI, bookingID int64) *Board {
	return &Board{
		api:       api,
		bookingID: bookingID,
		index:     map[int64]int{},
		pending:   map[int64]uint64{},
	}
}

// Refresh replaces the board with the server's state. Items with a request
// still in flight keep their local status.
func (b *Board) Refresh(ctx context.Context) error {
	rows, err := b.api.ListDeliverables(ctx, b.bookingID)
	if err != nil {
		return fmt.Errorf("refresh board: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	index := make(map[int64]int, len(rows))
	for i := range rows {
		if _, inFlight := b.pending[rows[i].ID]; inFlight {
			if pos, ok := b.index[rows[i].ID]; ok {
				rows[i].Status = b.rows[pos].Status
			}
		}
		index[rows[i].ID] = i
	}
	b.rows = rows
	b.index = index
	return nil
}

func (b *Board) Rows() []dbgen.ListDeliverablesRow {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dbgen.ListDeliverablesRow, len(b.rows))
	copy(out, b.rows)
	return out
}

func (b *Board) Item(id int64) (dbgen.ListDeliverablesRow, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.index[id]
	if !ok {
		return dbgen.ListDeliverablesRow{}, false
	}
	return b.rows[pos], true
}

// Groups aggregates the board's current, possibly optimistic, state.
func (b *Board) Groups() []deliverables.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]deliverables.Item, len(b.rows))
	for i, row := range b.rows {
		items[i] = deliverables.FromRow(row.Deliverable)
	}
	return deliverables.GroupItems(items)
}

// Pending reports how many items have a request in flight.
func (b *Board) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// SetStatus moves one item. The local row changes immediately; on failure it
// returns to its previous state and the error is returned.
func (b *Board) SetStatus(ctx context.Context, id int64, status deliverables.Status) (dbgen.Deliverable, error) {
	b.mu.Lock()
	pos, ok := b.index[id]
	if !ok {
		b.mu.Unlock()
		return dbgen.Deliverable{}, ErrUnknownItem
	}
	prev := b.rows[pos].Deliverable
	from := deliverables.FromRow(prev).Status
	if from == status {
		b.mu.Unlock()
		return prev, nil
	}
	if !deliverables.CanTransition(from, status) {
		b.mu.Unlock()
		return dbgen.Deliverable{}, deliverables.TransitionError{ID: id, From: from, To: status}
	}
	token := b.nextToken()
	b.pending[id] = token
	b.rows[pos].Status = string(status)
	b.mu.Unlock()

	updated, err := b.api.UpdateDeliverableStatus(ctx, id, status)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.restore(token, map[int64]dbgen.Deliverable{id: prev})
		return dbgen.Deliverable{}, err
	}
	b.settle(token, id, func(d *dbgen.Deliverable) { *d = updated })
	return updated, nil
}

// SetGroupStatus moves every item of a booking's group. The move is planned
// locally with the same rules the server uses, so a group that cannot move
// fails without a request.
func (b *Board) SetGroupStatus(ctx context.Context, bookingID int64, name string, status deliverables.Status) (BatchResult, error) {
	b.mu.Lock()
	key := deliverables.GroupKey(name)
	var members []deliverables.Item
	for _, row := range b.rows {
		if row.BookingID == bookingID && deliverables.GroupKey(row.Name) == key {
			members = append(members, deliverables.FromRow(row.Deliverable))
		}
	}
	if len(members) == 0 {
		b.mu.Unlock()
		return BatchResult{}, ErrUnknownGroup
	}
	changes, err := deliverables.PlanBatch(members, status)
	if err != nil {
		b.mu.Unlock()
		return BatchResult{}, err
	}

	token := b.nextToken()
	prev := make(map[int64]dbgen.Deliverable, len(changes))
	for _, c := range changes {
		pos := b.index[c.ID]
		prev[c.ID] = b.rows[pos].Deliverable
		b.pending[c.ID] = token
		b.rows[pos].Status = string(c.To)
	}
	b.mu.Unlock()

	result, err := b.api.UpdateGroupStatus(ctx, bookingID, name, status)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.restore(token, prev)
		return BatchResult{}, err
	}

	changed := make(map[int64]bool, len(result.Changed))
	for _, id := range result.Changed {
		changed[id] = true
		b.settle(token, id, func(d *dbgen.Deliverable) { d.Status = string(result.Status) })
	}
	// The server may have skipped items that were moved here, for example when
	// another employee got to them first.
	stale := make(map[int64]dbgen.Deliverable)
	for id, d := range prev {
		if !changed[id] {
			stale[id] = d
		}
	}
	b.restore(token, stale)
	return result, nil
}

func (b *Board) nextToken() uint64 {
	b.seq++
	return b.seq
}

// restore puts rows back to their previous state where token is still the
// latest write. Callers hold mu.
func (b *Board) restore(token uint64, prev map[int64]dbgen.Deliverable) {
	for id, d := range prev {
		if b.pending[id] != token {
			continue
		}
		delete(b.pending, id)
		if pos, ok := b.index[id]; ok {
			b.rows[pos].Deliverable = d
		}
	}
}

// settle records the server's answer for id where token is still the latest
// write. Callers hold mu.
func (b *Board) settle(token uint64, id int64, apply func(*dbgen.Deliverable)) {
	if b.pending[id] != token {
		return
	}
	delete(b.pending, id)
	if pos, ok := b.index[id]; ok {
		apply(&b.rows[pos].Deliverable)
	}
}
