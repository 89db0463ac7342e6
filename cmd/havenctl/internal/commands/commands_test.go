package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/codr1/StaycationHaven/internal/client"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/listing"
)

func newRoot(t *testing.T) *cobra.Command {
	t.Helper()
	t.Setenv(envServer, "")
	t.Setenv(envEmployee, "")
	root := &cobra.Command{Use: "havenctl", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	for _, fn := range []func(*cobra.Command) error{
		InitDeliverableCommands,
		InitNotificationCommands,
		InitDashboardCommands,
		InitBookingCommands,
		InitInventoryCommands,
	} {
		if err := fn(root); err != nil {
			t.Fatalf("init commands: %v", err)
		}
	}
	return root
}

func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func boardServer(t *testing.T, patch http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/deliverables", func(w http.ResponseWriter, r *http.Request) {
		row := dbgen.ListDeliverablesRow{
			Deliverable:      dbgen.Deliverable{ID: 5, BookingID: 2, Name: "Towels", Quantity: 2, UnitPriceCents: 5000, Status: "Pending"},
			BookingReference: "AB12CD34",
			GuestName:        "Maria Santos",
		}
		_ = json.NewEncoder(w).Encode(listing.Page[dbgen.ListDeliverablesRow]{Rows: []dbgen.ListDeliverablesRow{row}, Page: 1, TotalPages: 1, TotalRows: 1})
	})
	if patch != nil {
		mux.HandleFunc("PATCH /api/admin/deliverables/{id}", patch)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCommandsRequireEmployee(t *testing.T) {
	_, err := execute(t, newRoot(t), "dashboard")
	if !errors.Is(err, errNoEmployee) {
		t.Fatalf("expected errNoEmployee, got %v", err)
	}
}

func TestDeliverablesListGroups(t *testing.T) {
	srv := boardServer(t, nil)
	out, err := execute(t, newRoot(t), "--server", srv.URL, "--employee", "3", "deliverables", "list", "--groups")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Towels") || !strings.Contains(out, "₱100.00") || !strings.Contains(out, "Pending") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSetStatusPrintsServerResult(t *testing.T) {
	srv := boardServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Employee-ID") != "3" {
			t.Errorf("employee header: %q", r.Header.Get("X-Employee-ID"))
		}
		_ = json.NewEncoder(w).Encode(dbgen.Deliverable{ID: 5, BookingID: 2, Name: "Towels", Status: "Preparing"})
	})
	out, err := execute(t, newRoot(t), "--server", srv.URL, "--employee", "3", "deliverables", "set-status", "5", "preparing")
	if err != nil {
		t.Fatalf("set-status: %v", err)
	}
	if !strings.Contains(out, "Towels #5 is now Preparing") {
		t.Fatalf("output: %q", out)
	}
}

func TestSetStatusReportsServerRefusal(t *testing.T) {
	srv := boardServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Insufficient stock for Towels", http.StatusConflict)
	})
	_, err := execute(t, newRoot(t), "--server", srv.URL, "--employee", "3", "deliverables", "set-status", "5", "Preparing")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestSetStatusRejectsInvalidMoveLocally(t *testing.T) {
	srv := boardServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected PATCH")
	})
	_, err := execute(t, newRoot(t), "--server", srv.URL, "--employee", "3", "deliverables", "set-status", "5", "Delivered")
	if err == nil || !strings.Contains(err.Error(), "cannot move from Pending to Delivered") {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestNotificationsReadNeedsIDsOrAll(t *testing.T) {
	root := newRoot(t)
	if _, err := execute(t, root, "--employee", "3", "notifications", "read"); err == nil {
		t.Fatal("expected error without ids or --all")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []int64 `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]int{"marked": len(body.IDs)})
	}))
	defer srv.Close()

	out, err := execute(t, newRoot(t), "--server", srv.URL, "--employee", "3", "notifications", "read", "4", "9")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(out) != "2 marked read" {
		t.Fatalf("output: %q", out)
	}
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	for _, args := range [][]string{
		{"deliverables", "watch", "--interval", "0s"},
		{"notifications", "watch", "--interval", "-5s"},
	} {
		full := append([]string{"--server", srv.URL, "--employee", "3"}, args...)
		_, err := execute(t, newRoot(t), full...)
		if err == nil || !strings.Contains(err.Error(), "must be positive") {
			t.Fatalf("%v: expected interval error, got %v", args, err)
		}
	}
}
