package employees

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
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func setupEmployeeTest(t *testing.T, database *db.DB) {
	t.Helper()

	queries = nil
	store = nil
	phoneRegion = "PH"
	queriesOnce = sync.Once{}
	InitHandlers(database, "PH")

	t.Cleanup(func() {
		queries = nil
		store = nil
		phoneRegion = "PH"
		queriesOnce = sync.Once{}
	})
}

func withEmployee(req *http.Request, id int64, role string) *http.Request {
	user := &authz.AuthUser{ID: id, Name: "Test Employee", Role: role}
	return req.WithContext(authz.ContextWithUser(req.Context(), user))
}

func create(t *testing.T, actorID int64, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/employees", strings.NewReader(body))
	req = withEmployee(req, actorID, role)
	recorder := httptest.NewRecorder()
	HandleEmployeeCreate(recorder, req)
	return recorder
}

func patch(t *testing.T, actorID, employeeID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/employees/x", strings.NewReader(body))
	req.SetPathValue("id", strconv.FormatInt(employeeID, 10))
	req = withEmployee(req, actorID, authz.RoleAdmin)
	recorder := httptest.NewRecorder()
	HandleEmployeeUpdate(recorder, req)
	return recorder
}

func TestHandleEmployeeCreate(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupEmployeeTest(t, database)
	admin := testutil.SeedEmployee(t, database, "Ana", authz.RoleAdmin)

	recorder := create(t, admin.ID, authz.RoleAdmin, `{"first_name":" Liza ","last_name":"Reyes","email":"Liza@Haven.test","phone":"0917 555 0101","role":"csr"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var created dbgen.Employee
	if err := json.NewDecoder(recorder.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.FirstName != "Liza" || created.Email != "liza@haven.test" || created.Status != "active" {
		t.Fatalf("created: %+v", created)
	}
	if created.Phone == nil || *created.Phone != "+639175550101" {
		t.Fatalf("phone: %v", created.Phone)
	}

	duplicate := create(t, admin.ID, authz.RoleAdmin, `{"first_name":"Other","last_name":"Reyes","email":"liza@haven.test","role":"csr"}`)
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", duplicate.Code)
	}

	logs, err := database.Queries.ListActivityLogs(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].EntityType != "employee" {
		t.Fatalf("activity logs: %+v", logs)
	}
}

func TestHandleEmployeeCreateRejects(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupEmployeeTest(t, database)
	admin := testutil.SeedEmployee(t, database, "Ana", authz.RoleAdmin)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)

	if recorder := create(t, csr.ID, authz.RoleCSR, `{"first_name":"X","last_name":"Y","email":"x@haven.test","role":"csr"}`); recorder.Code != http.StatusForbidden {
		t.Fatalf("csr create: %d", recorder.Code)
	}

	tests := []struct {
		name string
		body string
	}{
		{name: "bad role", body: `{"first_name":"X","last_name":"Y","email":"x@haven.test","role":"manager"}`},
		{name: "bad email", body: `{"first_name":"X","last_name":"Y","email":"nope","role":"csr"}`},
		{name: "bad phone", body: `{"first_name":"X","last_name":"Y","email":"x@haven.test","phone":"12","role":"csr"}`},
		{name: "unknown field", body: `{"first_name":"X","last_name":"Y","email":"x@haven.test","role":"csr","password":"secret"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if recorder := create(t, admin.ID, authz.RoleAdmin, tt.body); recorder.Code != http.StatusBadRequest {
				t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestHandleEmployeeUpdate(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupEmployeeTest(t, database)
	admin := testutil.SeedEmployee(t, database, "Ana", authz.RoleAdmin)
	csr := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)

	recorder := patch(t, admin.ID, csr.ID, `{"role":"housekeeping","status":"inactive"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var updated dbgen.Employee
	if err := json.NewDecoder(recorder.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Role != authz.RoleHousekeeping || updated.Status != "inactive" {
		t.Fatalf("updated: %+v", updated)
	}

	if recorder := patch(t, admin.ID, admin.ID, `{"status":"inactive"}`); recorder.Code != http.StatusConflict {
		t.Fatalf("self deactivate: %d", recorder.Code)
	}
	if recorder := patch(t, admin.ID, csr.ID, `{"first_name":"  "}`); recorder.Code != http.StatusBadRequest {
		t.Fatalf("blank name: %d", recorder.Code)
	}
	if recorder := patch(t, admin.ID, 9999, `{"role":"csr"}`); recorder.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", recorder.Code)
	}

	logs, err := database.Queries.ListActivityLogs(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "status_change" {
		t.Fatalf("activity logs: %+v", logs)
	}
}

func TestHandleEmployeesListAndDetail(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupEmployeeTest(t, database)
	admin := testutil.SeedEmployee(t, database, "Ana", authz.RoleAdmin)
	testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	testutil.SeedEmployee(t, database, "Hana", authz.RoleHousekeeping)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/employees?role=csr", nil)
	req = withEmployee(req, admin.ID, authz.RoleAdmin)
	recorder := httptest.NewRecorder()
	HandleEmployeesList(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list: %d", recorder.Code)
	}
	var page struct {
		Rows []dbgen.Employee `json:"rows"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0].FirstName != "Carla" {
		t.Fatalf("rows: %+v", page.Rows)
	}

	detail := httptest.NewRequest(http.MethodGet, "/api/admin/employees/x", nil)
	detail.SetPathValue("id", strconv.FormatInt(page.Rows[0].ID, 10))
	detail = withEmployee(detail, admin.ID, authz.RoleAdmin)
	recorder = httptest.NewRecorder()
	HandleEmployeeDetail(recorder, detail)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), "Carla") {
		t.Fatalf("detail: %d %s", recorder.Code, recorder.Body.String())
	}
}
