package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	"github.com/codr1/StaycationHaven/internal/listing"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestClientSendsEmployeeAndJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/admin/deliverables/7" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Employee-ID"); got != "42" {
			t.Errorf("employee header: %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type: %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(t, w, dbgen.Deliverable{ID: 7, Name: "Towels", Status: body["status"]})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 42)
	got, err := c.UpdateDeliverableStatus(context.Background(), 7, deliverables.StatusPreparing)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != 7 || got.Status != "Preparing" {
		t.Fatalf("deliverable: %+v", got)
	}
}

func TestClientReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Insufficient stock for Towels", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 1).UpdateGroupStatus(context.Background(), 3, "Towels", deliverables.StatusPreparing)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "Insufficient stock for Towels" {
		t.Fatalf("api error: %+v", apiErr)
	}
	if apiErr.Method != http.MethodPatch || apiErr.Path != "/api/admin/deliverables" {
		t.Fatalf("request echo: %+v", apiErr)
	}
}

func TestListDeliverablesWalksPages(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pages = append(pages, q.Get("page"))
		if q.Get("per_page") != strconv.Itoa(listing.MaxPerPage) {
			t.Errorf("per_page: %q", q.Get("per_page"))
		}
		if q.Get("booking_id") != "9" {
			t.Errorf("booking_id: %q", q.Get("booking_id"))
		}
		page, _ := strconv.Atoi(q.Get("page"))
		writeJSON(t, w, listing.Page[dbgen.ListDeliverablesRow]{
			Rows:       []dbgen.ListDeliverablesRow{row(int64(page), 9, "Towels", "Pending")},
			Page:       page,
			TotalPages: 3,
		})
	}))
	defer srv.Close()

	rows, err := New(srv.URL, 1).ListDeliverables(context.Background(), 9)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[2].ID != 3 {
		t.Fatalf("rows: %+v", rows)
	}
	if len(pages) != 3 || pages[0] != "1" || pages[2] != "3" {
		t.Fatalf("pages requested: %v", pages)
	}
}

func TestMarkNotificationsReadAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		if body["all"] != true {
			t.Errorf("expected all=true, got %s", raw)
		}
		writeJSON(t, w, map[string]int64{"marked": 4})
	}))
	defer srv.Close()

	marked, err := New(srv.URL, 1).MarkNotificationsRead(context.Background(), nil)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if marked != 4 {
		t.Fatalf("marked: %d", marked)
	}
}

func TestListNotificationsSendsSince(t *testing.T) {
	since := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != since.Format(time.RFC3339Nano) {
			t.Errorf("since: %q", got)
		}
		if r.URL.Query().Get("unread") != "true" {
			t.Errorf("expected unread filter")
		}
		writeJSON(t, w, Notifications{UnreadCount: 2})
	}))
	defer srv.Close()

	resp, err := New(srv.URL, 1).ListNotifications(context.Background(), since, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.UnreadCount != 2 {
		t.Fatalf("unread: %d", resp.UnreadCount)
	}
}
