package docs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleDocsIndexListsPagesInOrder(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	rec := httptest.NewRecorder()

	HandleDocsIndex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Fatal("expected full page for non-htmx request")
	}
	first := strings.Index(body, `href="/docs/getting-started"`)
	last := strings.Index(body, `href="/docs/releasing"`)
	if first < 0 || last < 0 || first > last {
		t.Fatalf("pages missing or out of order: %d %d", first, last)
	}
}

func TestHandleDocPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs/branching", nil)
	req.SetPathValue("slug", "branching")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	HandleDocPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Fatal("expected partial for htmx request")
	}
	for _, want := range []string{
		"<h1>Branching</h1>",
		"$ git switch -c fix/booking-export-dates",
		`class="prev" href="/docs/cloning"`,
		`class="next" href="/docs/committing"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
}

func TestHandleDocPageEscapesCommands(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs/resolving-conflicts", nil)
	req.SetPathValue("slug", "resolving-conflicts")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	HandleDocPage(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "git add &lt;file&gt;") {
		t.Fatalf("expected escaped placeholder:\n%s", body)
	}
}

func TestHandleDocPageUnknownSlug(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs/rebasing", nil)
	req.SetPathValue("slug", "rebasing")
	rec := httptest.NewRecorder()

	HandleDocPage(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
