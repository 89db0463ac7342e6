package activitylogs

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/codr1/StaycationHaven/internal/activity"
	"github.com/codr1/StaycationHaven/internal/api/authz"
	"github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func setupActivityTest(t *testing.T, database *db.DB) {
	t.Helper()

	queries = nil
	queriesOnce = sync.Once{}
	InitHandlers(database.Queries)

	t.Cleanup(func() {
		queries = nil
		queriesOnce = sync.Once{}
	})
}

func withEmployee(req *http.Request, id int64, role string) *http.Request {
	user := &authz.AuthUser{ID: id, Name: "Test Employee", Role: role}
	return req.WithContext(authz.ContextWithUser(req.Context(), user))
}

func record(t *testing.T, database *db.DB, employeeID *int64, action, entity, description string, at time.Time) {
	t.Helper()
	err := activity.Record(context.Background(), database.Queries, activity.Entry{
		EmployeeID:  employeeID,
		Action:      action,
		EntityType:  entity,
		EntityID:    1,
		Description: description,
	}, at)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestHandleActivityLogsListFilters(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupActivityTest(t, database)
	carla := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	hana := testutil.SeedEmployee(t, database, "Hana", authz.RoleHousekeeping)

	now := time.Now().UTC()
	record(t, database, &carla.ID, activity.ActionCreate, activity.EntityBooking, "Created booking ABC", now)
	record(t, database, &hana.ID, activity.ActionStatusChange, activity.EntityDeliverable, "Towels Pending -> Preparing", now)
	record(t, database, nil, activity.ActionStatusChange, activity.EntityBooking, "Expired booking XYZ", now)
	record(t, database, &carla.ID, activity.ActionUpdate, activity.EntityBooking, "Old change", now.AddDate(0, 0, -30))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "default range", query: "", want: 3},
		{name: "entity type", query: "?entity_type=booking", want: 2},
		{name: "action", query: "?action=status_change", want: 2},
		{name: "employee", query: "?employee_id=" + strconv.FormatInt(hana.ID, 10), want: 1},
		{name: "search system", query: "?q=system", want: 1},
		{name: "wide range", query: "?start=" + now.AddDate(0, 0, -31).Format("2006-01-02"), want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/activity-logs"+tt.query, nil)
			req = withEmployee(req, carla.ID, authz.RoleCSR)
			recorder := httptest.NewRecorder()
			HandleActivityLogsList(recorder, req)
			if recorder.Code != http.StatusOK {
				t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
			}
			var page struct {
				Rows      []dbgen.ListActivityLogsRow `json:"rows"`
				TotalRows int                         `json:"total_rows"`
			}
			if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if page.TotalRows != tt.want {
				t.Fatalf("rows: %d want %d (%+v)", page.TotalRows, tt.want, page.Rows)
			}
		})
	}
}

func TestHandleActivityLogsListRejectsBadRange(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupActivityTest(t, database)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/activity-logs?start=2026-03-10&end=2026-03-01", nil)
	req = withEmployee(req, 1, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleActivityLogsList(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleEmployeeActivity(t *testing.T) {
	database := testutil.NewTestDB(t)
	setupActivityTest(t, database)
	carla := testutil.SeedEmployee(t, database, "Carla", authz.RoleCSR)
	hana := testutil.SeedEmployee(t, database, "Hana", authz.RoleHousekeeping)

	now := time.Now().UTC()
	record(t, database, &carla.ID, activity.ActionCreate, activity.EntityBooking, "a", now)
	record(t, database, &carla.ID, activity.ActionUpdate, activity.EntityBooking, "b", now)
	record(t, database, &hana.ID, activity.ActionStatusChange, activity.EntityDeliverable, "c", now)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/employee-activity?sort=total&order=desc", nil)
	req = withEmployee(req, carla.ID, authz.RoleCSR)
	recorder := httptest.NewRecorder()
	HandleEmployeeActivity(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var page struct {
		Rows []dbgen.EmployeeActivityRow `json:"rows"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("rows: %+v", page.Rows)
	}
	top := page.Rows[0]
	if top.EmployeeID != carla.ID || top.Total != 2 || top.Creates != 1 || top.Updates != 1 {
		t.Fatalf("top: %+v", top)
	}
	if page.Rows[1].StatusChanges != 1 {
		t.Fatalf("second: %+v", page.Rows[1])
	}
}
