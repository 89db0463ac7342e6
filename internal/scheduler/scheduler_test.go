package scheduler

import (
	"errors"
	"sort"
	"testing"

	"github.com/codr1/StaycationHaven/internal/config"
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func TestAddJobValidates(t *testing.T) {
	svc := newService(t)
	task := func() {}

	if _, err := svc.AddJob(" ", "* * * * *", task); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("tick", "", task); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddJob("tick", "not a cron", task); err == nil {
		t.Fatal("expected invalid cron to fail")
	}
	if _, err := svc.AddJob("tick", "*/5 * * * *", task); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if _, err := svc.AddJob("tick", "*/5 * * * *", task); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestRegisterJobs(t *testing.T) {
	svc := newService(t)
	database := testutil.NewTestDB(t)
	cfg := &config.Config{}
	cfg.Jobs.LowStockCron = "0 * * * *"
	cfg.Jobs.PendingExpiryCron = "*/15 * * * *"
	cfg.Jobs.PendingExpiryHours = 24

	if err := svc.RegisterJobs(database, nil, cfg); err != nil {
		t.Fatalf("register: %v", err)
	}
	names := svc.JobNames()
	sort.Strings(names)
	if len(names) != 2 || names[0] != JobLowStockAlerts || names[1] != JobPendingExpiry {
		t.Fatalf("jobs: %v", names)
	}

	if err := svc.RegisterJobs(nil, nil, cfg); err == nil {
		t.Fatal("expected missing database to fail")
	}
}
