package inventory

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/codr1/StaycationHaven/internal/api/authz"
	"github.com/codr1/StaycationHaven/internal/db"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func setupInventoryTest(t *testing.T, database *db.DB) {
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

func TestHandleInventoryList_SearchAndLowStock(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)
	employee := testutil.SeedEmployee(t, database, "Ana", authz.RoleCSR)

	testutil.SeedInventoryItem(t, database, "Bath Towel", 40, 10)
	testutil.SeedInventoryItem(t, database, "Hand Towel", 3, 10)
	testutil.SeedInventoryItem(t, database, "Shampoo", 2, 5)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory?q=TOWEL&sort=quantity", nil)
	req = withEmployee(req, employee.ID, employee.Role)
	recorder := httptest.NewRecorder()
	HandleInventoryList(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var page listing.Page[Item]
	if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalRows != 2 || len(page.Rows) != 2 {
		t.Fatalf("expected 2 towels, got %+v", page)
	}
	if page.Rows[0].Name != "Hand Towel" || !page.Rows[0].LowStock {
		t.Fatalf("first row: %+v", page.Rows[0])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/inventory?low_stock=true", nil)
	req = withEmployee(req, employee.ID, employee.Role)
	recorder = httptest.NewRecorder()
	HandleInventoryList(recorder, req)

	page = listing.Page[Item]{}
	if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalRows != 2 {
		t.Fatalf("expected 2 low stock items, got %d", page.TotalRows)
	}
	for _, row := range page.Rows {
		if !row.LowStock {
			t.Fatalf("unexpected row %+v", row)
		}
	}
}

func TestHandleInventoryList_Unauthorized(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)

	recorder := httptest.NewRecorder()
	HandleInventoryList(recorder, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleInventoryCreate(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)
	employee := testutil.SeedEmployee(t, database, "Ben", authz.RoleHousekeeping)

	body := `{"name":" Coffee Pods ","sku":"CP-01","category":"Pantry","unit":"box","quantity":12,"reorder_level":4,"unit_cost_cents":45000}`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(body))
	req = withEmployee(req, employee.ID, employee.Role)
	recorder := httptest.NewRecorder()
	HandleInventoryCreate(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var created Item
	if err := json.NewDecoder(recorder.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "Coffee Pods" || created.LowStock {
		t.Fatalf("created: %+v", created)
	}

	logs, err := database.Queries.ListActivityLogs(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].EntityID != created.ID || logs[0].Action != "create" {
		t.Fatalf("activity logs: %+v", logs)
	}

	dup := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(`{"name":"coffee pods"}`))
	dup = withEmployee(dup, employee.ID, employee.Role)
	recorder = httptest.NewRecorder()
	HandleInventoryCreate(recorder, dup)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("duplicate status: %d", recorder.Code)
	}
}

func TestHandleInventoryCreate_Validation(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing name", body: `{"quantity":1}`, want: "name is required"},
		{name: "negative quantity", body: `{"name":"Soap","quantity":-1}`, want: "quantity must be at least 0"},
		{name: "unknown field", body: `{"name":"Soap","color":"red"}`, want: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(tt.body))
			req = withEmployee(req, 1, authz.RoleAdmin)
			recorder := httptest.NewRecorder()
			HandleInventoryCreate(recorder, req)

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("status: %d", recorder.Code)
			}
			if !strings.Contains(recorder.Body.String(), tt.want) {
				t.Fatalf("body %q does not contain %q", recorder.Body.String(), tt.want)
			}
		})
	}
}

func TestHandleInventoryUpdate_Delta(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)
	admin := testutil.SeedEmployee(t, database, "Carla", authz.RoleAdmin)
	item := testutil.SeedInventoryItem(t, database, "Slippers", 5, 2)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/inventory/1", strings.NewReader(body))
		req.SetPathValue("id", "1")
		req = withEmployee(req, admin.ID, admin.Role)
		recorder := httptest.NewRecorder()
		HandleInventoryUpdate(recorder, req)
		return recorder
	}

	recorder := send(`{"delta":-4}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var updated Item
	if err := json.NewDecoder(recorder.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.ID != item.ID || updated.Quantity != 1 || !updated.LowStock {
		t.Fatalf("updated: %+v", updated)
	}

	if recorder := send(`{"delta":-2}`); recorder.Code != http.StatusConflict {
		t.Fatalf("overdraw status: %d", recorder.Code)
	}
	if recorder := send(`{"delta":1,"quantity":3}`); recorder.Code != http.StatusBadRequest {
		t.Fatalf("delta+quantity status: %d", recorder.Code)
	}

	current, err := database.Queries.GetInventoryItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Quantity != 1 {
		t.Fatalf("quantity after failed adjust: %d", current.Quantity)
	}
}

func TestHandleInventoryUpdate_NotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)

	req := httptest.NewRequest(http.MethodPatch, "/api/inventory/77", strings.NewReader(`{"reorder_level":3}`))
	req.SetPathValue("id", "77")
	req = withEmployee(req, 1, authz.RoleAdmin)
	recorder := httptest.NewRecorder()
	HandleInventoryUpdate(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleInventoryDelete(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)
	admin := testutil.SeedEmployee(t, database, "Dina", authz.RoleAdmin)
	haven := testutil.SeedHaven(t, database, "Sunset Loft")
	booking := testutil.SeedBooking(t, database, haven.ID, "2025-05-01", "2025-05-03", "confirmed")
	used := testutil.SeedInventoryItem(t, database, "Robe", 6, 1)
	unused := testutil.SeedInventoryItem(t, database, "Candle", 6, 1)
	testutil.SeedDeliverable(t, database, booking.ID, &used.ID, "Robe", 1, "Cancelled")

	del := func(id string, role string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/inventory/"+id, nil)
		req.SetPathValue("id", id)
		req = withEmployee(req, admin.ID, role)
		recorder := httptest.NewRecorder()
		HandleInventoryDelete(recorder, req)
		return recorder.Code
	}

	if code := del("2", authz.RoleCSR); code != http.StatusForbidden {
		t.Fatalf("csr delete status: %d", code)
	}
	if code := del("1", authz.RoleAdmin); code != http.StatusConflict {
		t.Fatalf("in-use delete status: %d", code)
	}
	if code := del("2", authz.RoleAdmin); code != http.StatusNoContent {
		t.Fatalf("delete status: %d", code)
	}
	if _, err := database.Queries.GetInventoryItem(context.Background(), unused.ID); err == nil {
		t.Fatal("expected item to be deleted")
	}
}

func TestHandleInventoryCreate_RollsBackWhenActivityLogFails(t *testing.T) {
	database, mock := testutil.NewMockDB(t)
	setupInventoryTest(t, database)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO inventory_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sku", "category", "unit", "quantity", "reorder_level", "unit_cost_cents", "created_at", "updated_at"}).
			AddRow(int64(1), "Soap", "", "", "", int64(3), int64(1), int64(0), now, now))
	mock.ExpectQuery("INSERT INTO activity_logs").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPost, "/api/inventory", strings.NewReader(`{"name":"Soap","quantity":3,"reorder_level":1}`))
	req = withEmployee(req, 1, authz.RoleAdmin)
	recorder := httptest.NewRecorder()
	HandleInventoryCreate(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleInventoryPage_HTML(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupInventoryTest(t, database)
	testutil.SeedInventoryItem(t, database, "Bath <Towel>", 1, 3)

	req := httptest.NewRequest(http.MethodGet, "/admin/inventory", nil)
	req = withEmployee(req, 1, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleInventoryPage(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	if !strings.HasPrefix(recorder.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("content type: %s", recorder.Header().Get("Content-Type"))
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") || !strings.Contains(body, "Bath &lt;Towel&gt;") {
		t.Fatalf("unexpected body: %s", body)
	}

	partial := httptest.NewRequest(http.MethodGet, "/admin/inventory?q=bath", nil)
	partial.Header.Set("HX-Request", "true")
	partial = withEmployee(partial, 1, authz.RoleCSR)
	recorder = httptest.NewRecorder()
	HandleInventoryPage(recorder, partial)
	if strings.Contains(recorder.Body.String(), "<!DOCTYPE html>") {
		t.Fatal("htmx request should render the table only")
	}
}
