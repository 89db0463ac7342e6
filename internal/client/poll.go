package client

import (
	"context"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

// Intervals the dashboard itself polls at.
const (
	BoardPollInterval         = 5 * time.Second
	NotificationsPollInterval = 30 * time.Second

	cursorOverlap = time.Second
)

// Poll calls fn right away and then every interval until ctx is done. A
// failed call is handed to onErr and polling carries on. A non-positive
// interval falls back to BoardPollInterval.
func Poll(ctx context.Context, interval time.Duration, fn func(context.Context) error, onErr func(error)) {
	if interval <= 0 {
		interval = BoardPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil && onErr != nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type notificationLister interface {
	ListNotifications(ctx context.Context, since time.Time, unreadOnly bool) (Notifications, error)
}

// NotificationFeed hands out each notification once across polls.
type NotificationFeed struct {
	api        notificationLister
	unreadOnly bool
	since      time.Time
	seen       map[int64]struct{}
}

func NewNotificationFeed(api notificationLister, unreadOnly bool) *NotificationFeed {
	return &NotificationFeed{api: api, unreadOnly: unreadOnly, seen: map[int64]struct{}{}}
}

// Next returns notifications not returned before, oldest first, along with
// the server's unread count.
func (f *NotificationFeed) Next(ctx context.Context) ([]dbgen.Notification, int64, error) {
	since := f.since
	if !since.IsZero() {
		// Rows written in the same instant as the cursor but committed later
		// would otherwise be missed; seen drops the repeats.
		since = since.Add(-cursorOverlap)
	}
	resp, err := f.api.ListNotifications(ctx, since, f.unreadOnly)
	if err != nil {
		return nil, 0, err
	}

	fresh := make([]dbgen.Notification, 0, len(resp.Rows))
	// Rows come newest first.
	for i := len(resp.Rows) - 1; i >= 0; i-- {
		n := resp.Rows[i]
		if _, ok := f.seen[n.ID]; ok {
			continue
		}
		f.seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
		if n.CreatedAt.After(f.since) {
			f.since = n.CreatedAt
		}
	}
	return fresh, resp.UnreadCount, nil
}
