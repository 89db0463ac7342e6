package notifications

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codr1/StaycationHaven/internal/activity"
	"github.com/codr1/StaycationHaven/internal/api/authz"
	"github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func setupNotificationTest(t *testing.T, database *db.DB) {
	t.Helper()

	queries = nil
	store = nil
	queriesOnce = sync.Once{}
	InitHandlers(database)

	t.Cleanup(func() {
		queries = nil
		store = nil
		queriesOnce = sync.Once{}
	})
}

func withEmployee(req *http.Request, id int64, role string) *http.Request {
	user := &authz.AuthUser{ID: id, Name: "Test Employee", Role: role}
	return req.WithContext(authz.ContextWithUser(req.Context(), user))
}

func seedNotifications(t *testing.T, database *db.DB, at time.Time, messages ...string) []dbgen.Notification {
	t.Helper()
	out := make([]dbgen.Notification, 0, len(messages))
	for i, message := range messages {
		n, err := activity.Notify(context.Background(), database.Queries, activity.KindLowStock, activity.EntityInventory, int64(i+1), message, at.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("seed notification: %v", err)
		}
		out = append(out, n)
	}
	return out
}

func list(t *testing.T, employeeID int64, query string) ListResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications"+query, nil)
	req = withEmployee(req, employeeID, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleNotificationsList(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var resp ListResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHandleNotificationsListSince(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupNotificationTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	seedNotifications(t, database, base, "Soap is low", "Towels are low", "Coffee is low")

	all := list(t, csr.ID, "")
	if len(all.Rows) != 3 || all.UnreadCount != 3 {
		t.Fatalf("all: %+v", all)
	}
	if all.Rows[0].Message != "Coffee is low" {
		t.Fatalf("expected newest first, got %q", all.Rows[0].Message)
	}

	since := list(t, csr.ID, "?since="+base.Add(time.Second).Format(time.RFC3339))
	if len(since.Rows) != 1 || since.Rows[0].Message != "Coffee is low" {
		t.Fatalf("since: %+v", since.Rows)
	}
	if since.UnreadCount != 3 {
		t.Fatalf("unread count must ignore since: %d", since.UnreadCount)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications?since=yesterday", nil)
	req = withEmployee(req, csr.ID, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleNotificationsList(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("bad since: %d", recorder.Code)
	}
}

func TestHandleNotificationsRead(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupNotificationTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	seeded := seedNotifications(t, database, time.Now().UTC().Add(-time.Minute), "Soap is low", "Towels are low", "Coffee is low")

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/notifications/read", strings.NewReader(body))
		req = withEmployee(req, csr.ID, authz.RoleCSR)
		recorder := httptest.NewRecorder()
		HandleNotificationsRead(recorder, req)
		return recorder
	}

	recorder := post(`{"ids":[` + strconv.FormatInt(seeded[0].ID, 10) + `]}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("mark one: %d body=%s", recorder.Code, recorder.Body.String())
	}
	if recorder.Header().Get("HX-Trigger") != "refreshNotificationCount" {
		t.Fatalf("HX-Trigger: %q", recorder.Header().Get("HX-Trigger"))
	}

	unread := list(t, csr.ID, "?unread=true")
	if len(unread.Rows) != 2 || unread.UnreadCount != 2 {
		t.Fatalf("unread after one: %+v", unread)
	}

	if recorder := post(`{}`); recorder.Code != http.StatusBadRequest {
		t.Fatalf("empty request: %d", recorder.Code)
	}

	recorder = post(`{"all":true}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("mark all: %d", recorder.Code)
	}
	var marked map[string]int64
	if err := json.NewDecoder(recorder.Body).Decode(&marked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if marked["marked"] != 2 {
		t.Fatalf("marked: %v", marked)
	}
	if got := list(t, csr.ID, "").UnreadCount; got != 0 {
		t.Fatalf("unread after all: %d", got)
	}
}

func TestHandleNotificationBadge(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupNotificationTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)

	badge := func() string {
		req := httptest.NewRequest(http.MethodGet, "/admin/notifications/badge", nil)
		req = withEmployee(req, csr.ID, authz.RoleCSR)
		recorder := httptest.NewRecorder()
		HandleNotificationBadge(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("badge: %d", recorder.Code)
		}
		return recorder.Body.String()
	}

	if got := badge(); strings.TrimSpace(got) != "" {
		t.Fatalf("expected empty badge, got %q", got)
	}
	seedNotifications(t, database, time.Now().UTC(), "Soap is low", "Towels are low")
	if got := badge(); !strings.Contains(got, ">2<") {
		t.Fatalf("badge: %q", got)
	}
}

func TestHandleNotificationsListRequiresEmployee(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupNotificationTest(t, database)

	recorder := httptest.NewRecorder()
	HandleNotificationsList(recorder, httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", recorder.Code)
	}
}
