package htmx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	if IsRequest(r) {
		t.Fatal("plain request reported as htmx")
	}
	r.Header.Set("HX-Request", "true")
	if !IsRequest(r) {
		t.Fatal("htmx request not detected")
	}
}

func TestTriggerAppends(t *testing.T) {
	rec := httptest.NewRecorder()
	Trigger(rec)
	if rec.Header().Get("HX-Trigger") != "" {
		t.Fatal("empty trigger set a header")
	}
	Trigger(rec, "refreshDeliverables")
	Trigger(rec, "refreshInventory", "refreshNotificationCount")
	if got := rec.Header().Get("HX-Trigger"); got != "refreshDeliverables, refreshInventory, refreshNotificationCount" {
		t.Fatalf("trigger: %q", got)
	}
}
