//go:build smoke

package smoke

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/codr1/StaycationHaven/internal/db"
)

func TestDashboardSmoke(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "db", "smoke.db")
	adminID := seedDashboardDB(t, dbPath)

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"current":{"time":"2026-06-01T08:00","temperature_2m":29.4,"apparent_temperature":33.1,"relative_humidity_2m":70,"wind_speed_10m":9.5,"weather_code":0,"is_day":1}}`)
	}))
	defer forecast.Close()

	srv := startServer(t, tempDir, dbPath, fmt.Sprintf(`
weather:
  base_url: "%s"
`, forecast.URL))

	client := &http.Client{Timeout: 5 * time.Second}
	employee := strconv.FormatInt(adminID, 10)

	body := get(t, srv, client, "/admin", employee)
	for _, needle := range []string{"Arrivals today", "Occupancy", "Outstanding", "Low stock items", "Smoke Haven", "Clear sky"} {
		if !strings.Contains(body, needle) {
			snippet := body
			if len(snippet) > 400 {
				snippet = snippet[:400]
			}
			t.Fatalf("dashboard missing %q\nbody snippet:\n%s", needle, snippet)
		}
	}

	summary := get(t, srv, client, "/api/admin/dashboard/summary", employee)
	if !strings.Contains(summary, `"active_havens":1`) {
		t.Fatalf("summary: %s", summary)
	}
	srv.assertRunning(t)
}

func get(t *testing.T, srv *server, client *http.Client, path, employee string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.url(path), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Employee-ID", employee)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v\n%s", path, err, srv.logs())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: got %d want 200\n%s\n%s", path, resp.StatusCode, body, srv.logs())
	}
	return string(body)
}

func seedDashboardDB(t *testing.T, dbPath string) int64 {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("failed to create db directory: %v", err)
	}
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer database.Close()

	if _, err := database.Exec(
		`INSERT INTO havens (name, slug, timezone, latitude, longitude, capacity, nightly_rate_cents)
		 VALUES ('Smoke Haven', 'smoke-haven', 'Asia/Manila', 14.5995, 120.9842, 4, 350000)`,
	); err != nil {
		t.Fatalf("failed to seed haven: %v", err)
	}

	res, err := database.Exec(
		`INSERT INTO employees (first_name, last_name, email, role) VALUES ('Smoke', 'Admin', 'smoke@haven.test', 'admin')`,
	)
	if err != nil {
		t.Fatalf("failed to seed employee: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("employee id: %v", err)
	}
	return id
}
