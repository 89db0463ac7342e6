package deliverables

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

	"github.com/codr1/StaycationHaven/internal/api/authz"
	"github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func setupDeliverableTest(t *testing.T, database *db.DB) {
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

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func batch(t *testing.T, employeeID int64, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/deliverables", strings.NewReader(body))
	req = withEmployee(req, employeeID, role)
	recorder := httptest.NewRecorder()
	HandleDeliverablesBatchUpdate(recorder, req)
	return recorder
}

func stockOf(t *testing.T, database *db.DB, itemID int64) int64 {
	t.Helper()
	item, err := database.Queries.GetInventoryItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("load inventory item: %v", err)
	}
	return item.Quantity
}

func statusOf(t *testing.T, database *db.DB, deliverableID int64) string {
	t.Helper()
	row, err := database.Queries.GetDeliverable(context.Background(), deliverableID)
	if err != nil {
		t.Fatalf("load deliverable: %v", err)
	}
	return row.Status
}

func TestHandleDeliverablesCreate(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	towels := testutil.SeedInventoryItem(t, database, "Bath Towel", 20, 5)

	body := `{"booking_id":` + id(booking.ID) + `,"items":[` +
		`{"name":" Towels ","quantity":2,"unit_price_cents":5000,"inventory_item_id":` + id(towels.ID) + `},` +
		`{"name":"Breakfast","quantity":1,"unit_price_cents":35000,"notes":"vegetarian"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/deliverables", strings.NewReader(body))
	req = withEmployee(req, csr.ID, authz.RoleCSR)
	recorder := httptest.NewRecorder()

	HandleDeliverablesCreate(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var created []dbgen.Deliverable
	if err := json.NewDecoder(recorder.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created: %+v", created)
	}
	if created[0].Name != "Towels" || created[0].Status != string(deliverables.StatusPending) {
		t.Fatalf("first item: %+v", created[0])
	}
	if created[1].Notes != "vegetarian" {
		t.Fatalf("notes: %q", created[1].Notes)
	}
	if got := stockOf(t, database, towels.ID); got != 20 {
		t.Fatalf("pending items must not hold stock, have %d", got)
	}
	if recorder.Header().Get("HX-Trigger") != "refreshDeliverables, refreshInventory" {
		t.Fatalf("HX-Trigger: %q", recorder.Header().Get("HX-Trigger"))
	}
}

func TestHandleDeliverablesCreateRejects(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	open := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	cancelled := testutil.SeedBooking(t, database, haven.ID, "2026-04-01", "2026-04-03", "cancelled")

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "no items", body: `{"booking_id":` + id(open.ID) + `,"items":[]}`, want: http.StatusBadRequest},
		{name: "zero quantity", body: `{"booking_id":` + id(open.ID) + `,"items":[{"name":"Towels","quantity":0}]}`, want: http.StatusBadRequest},
		{name: "blank name", body: `{"booking_id":` + id(open.ID) + `,"items":[{"name":"  ","quantity":1}]}`, want: http.StatusBadRequest},
		{name: "missing booking", body: `{"booking_id":9999,"items":[{"name":"Towels","quantity":1}]}`, want: http.StatusNotFound},
		{name: "cancelled booking", body: `{"booking_id":` + id(cancelled.ID) + `,"items":[{"name":"Towels","quantity":1}]}`, want: http.StatusConflict},
		{name: "unknown inventory item", body: `{"booking_id":` + id(open.ID) + `,"items":[{"name":"Towels","quantity":1,"inventory_item_id":777}]}`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/deliverables", strings.NewReader(tt.body))
			req = withEmployee(req, csr.ID, authz.RoleCSR)
			recorder := httptest.NewRecorder()
			HandleDeliverablesCreate(recorder, req)
			if recorder.Code != tt.want {
				t.Fatalf("status: %d want %d body=%s", recorder.Code, tt.want, recorder.Body.String())
			}
		})
	}

	rows, err := database.Queries.ListDeliverablesForBooking(context.Background(), open.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rejected requests left rows behind: %+v", rows)
	}
}

func TestBatchUpdateMovesGroupAndHoldsStock(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	staff := testutil.SeedEmployee(t, database, "Hana", authz.RoleHousekeeping)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	towels := testutil.SeedInventoryItem(t, database, "Bath Towel", 10, 2)
	first := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, "Towels", 2, "Pending")
	second := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, " towels", 1, "Pending")
	cancelled := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, "TOWELS", 4, "Cancelled")

	recorder := batch(t, staff.ID, authz.RoleHousekeeping, `{"booking_id":`+id(booking.ID)+`,"name":"Towels","status":"preparing"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var result BatchResult
	if err := json.NewDecoder(recorder.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Changed) != 2 || len(result.Skipped) != 1 || result.Skipped[0] != cancelled.ID {
		t.Fatalf("result: %+v", result)
	}
	if len(result.Groups) != 1 || result.Groups[0].Status != deliverables.StatusPreparing {
		t.Fatalf("groups: %+v", result.Groups)
	}
	if got := stockOf(t, database, towels.ID); got != 7 {
		t.Fatalf("stock: %d", got)
	}
	if statusOf(t, database, first.ID) != "Preparing" || statusOf(t, database, second.ID) != "Preparing" {
		t.Fatal("items not moved")
	}

	ctx := context.Background()
	logs, err := database.Queries.ListActivityLogs(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "status_change" {
		t.Fatalf("activity logs: %+v", logs)
	}
	notes, err := database.Queries.ListNotifications(ctx, dbgen.ListNotificationsParams{Since: time.Now().Add(-time.Hour), Limit: 10})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Kind != "deliverable_status" || !strings.Contains(notes[0].Message, "Preparing") {
		t.Fatalf("notifications: %+v", notes)
	}
}

func TestBatchUpdateFoldsNonASCIINames(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	lower := testutil.SeedDeliverable(t, database, booking.ID, nil, "Piña Colada", 1, "Pending")
	upper := testutil.SeedDeliverable(t, database, booking.ID, nil, "PIÑA COLADA", 2, "Pending")
	testutil.SeedDeliverable(t, database, booking.ID, nil, "Breakfast", 1, "Pending")

	recorder := batch(t, csr.ID, authz.RoleCSR, `{"booking_id":`+id(booking.ID)+`,"name":"piña colada","status":"Preparing"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var result BatchResult
	if err := json.NewDecoder(recorder.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Changed) != 2 || len(result.Skipped) != 0 {
		t.Fatalf("result: %+v", result)
	}
	if len(result.Groups) != 1 || len(result.Groups[0].ItemIDs) != 2 || result.Groups[0].Quantity != 3 {
		t.Fatalf("groups: %+v", result.Groups)
	}
	if statusOf(t, database, lower.ID) != "Preparing" || statusOf(t, database, upper.ID) != "Preparing" {
		t.Fatal("both spellings should move together")
	}
}

func TestBatchUpdateIsAllOrNothing(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	towels := testutil.SeedInventoryItem(t, database, "Bath Towel", 3, 1)
	small := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, "Towels", 2, "Pending")
	large := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, "Robes", 2, "Pending")

	recorder := batch(t, csr.ID, authz.RoleCSR, `{"ids":[`+id(small.ID)+`,`+id(large.ID)+`],"status":"Preparing"}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), "insufficient stock") {
		t.Fatalf("body: %s", recorder.Body.String())
	}
	if got := stockOf(t, database, towels.ID); got != 3 {
		t.Fatalf("stock after rollback: %d", got)
	}
	if statusOf(t, database, small.ID) != "Pending" {
		t.Fatal("first item moved despite failed batch")
	}

	recorder = batch(t, csr.ID, authz.RoleCSR, `{"ids":[`+id(small.ID)+`],"status":"Delivered"}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("skipping a step: %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestBatchUpdateValidation(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "unknown status", body: `{"ids":[1],"status":"Lost"}`, want: http.StatusBadRequest},
		{name: "no selector", body: `{"status":"Preparing"}`, want: http.StatusBadRequest},
		{name: "both selectors", body: `{"ids":[1],"booking_id":1,"name":"Towels","status":"Preparing"}`, want: http.StatusBadRequest},
		{name: "missing ids", body: `{"ids":[404],"status":"Preparing"}`, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := batch(t, csr.ID, authz.RoleCSR, tt.body)
			if recorder.Code != tt.want {
				t.Fatalf("status: %d want %d body=%s", recorder.Code, tt.want, recorder.Body.String())
			}
		})
	}
}

func TestHandleDeliverableUpdate(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	towels := testutil.SeedInventoryItem(t, database, "Bath Towel", 10, 2)
	item := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, "Towels", 2, "Pending")

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/admin/deliverables/x", strings.NewReader(body))
		req.SetPathValue("id", id(item.ID))
		req = withEmployee(req, csr.ID, authz.RoleCSR)
		recorder := httptest.NewRecorder()
		HandleDeliverableUpdate(recorder, req)
		return recorder
	}

	recorder := patch(`{"quantity":4,"notes":"extra soft"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("details: %d body=%s", recorder.Code, recorder.Body.String())
	}

	recorder = patch(`{"status":"Preparing"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("prepare: %d body=%s", recorder.Code, recorder.Body.String())
	}
	if got := stockOf(t, database, towels.ID); got != 6 {
		t.Fatalf("stock after prepare: %d", got)
	}

	recorder = patch(`{"quantity":1}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("quantity while preparing: %d", recorder.Code)
	}

	recorder = patch(`{"status":"Pending"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("back to pending: %d body=%s", recorder.Code, recorder.Body.String())
	}
	if got := stockOf(t, database, towels.ID); got != 10 {
		t.Fatalf("stock after release: %d", got)
	}

	recorder = patch(`{"status":"Refunded"}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("invalid transition: %d", recorder.Code)
	}
}

func TestHandleDeliverablesListGroups(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	testutil.SeedDeliverable(t, database, booking.ID, nil, "Towels", 2, "Delivered")
	testutil.SeedDeliverable(t, database, booking.ID, nil, "towels", 1, "Preparing")
	testutil.SeedDeliverable(t, database, booking.ID, nil, "Breakfast", 1, "Pending")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/deliverables?view=groups&status=Preparing", nil)
	req = withEmployee(req, csr.ID, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleDeliverablesList(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var page struct {
		Rows      []GroupRow `json:"rows"`
		TotalRows int        `json:"total_rows"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalRows != 1 {
		t.Fatalf("rows: %+v", page.Rows)
	}
	group := page.Rows[0]
	if group.Name != "Towels" || group.Quantity != 3 || group.BookingReference != booking.Reference || group.HavenName != haven.Name {
		t.Fatalf("group: %+v", group)
	}
}

func TestHandleDeliverablesBoardPartial(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupDeliverableTest(t, database)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	haven := testutil.SeedHaven(t, database, "Tagaytay Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-03-14", "2026-03-17", "confirmed")
	testutil.SeedDeliverable(t, database, booking.ID, nil, "Towels", 2, "Pending")

	req := httptest.NewRequest(http.MethodGet, "/admin/deliverables", nil)
	req.Header.Set("HX-Request", "true")
	req = withEmployee(req, csr.ID, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleDeliverablesBoard(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	body := recorder.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatal("htmx request got the full page")
	}
	for _, want := range []string{"deliverables-board", "every 5s", "Towels", "Preparing"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in %s", want, body)
		}
	}
}
