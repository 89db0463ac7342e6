package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "haven.db"))
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

func TestWithPragmas(t *testing.T) {
	tests := map[string]string{
		"haven.db":                              "haven.db?_fk=1&_busy_timeout=5000",
		"haven.db?cache=shared":                 "haven.db?cache=shared&_fk=1&_busy_timeout=5000",
		"haven.db?_fk=0":                        "haven.db?_fk=0&_busy_timeout=5000",
		"file:haven.db?_fk=1&_busy_timeout=100": "file:haven.db?_fk=1&_busy_timeout=100",
	}
	for input, want := range tests {
		if got := withPragmas(input); got != want {
			t.Fatalf("withPragmas(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = database.RunInTx(ctx, func(txdb *DB) error {
			if _, err := txdb.Queries.CreateInventoryItem(ctx, dbgen.CreateInventoryItemParams{
				Name: "Soap", Unit: "bar", Quantity: 1, CreatedAt: time.Now().UTC(),
			}); err != nil {
				t.Fatalf("create: %v", err)
			}
			panic("boom")
		})
	}()

	items, err := database.Queries.ListInventoryItems(ctx, false)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected rollback after panic, found %d items", len(items))
	}
}

func TestMigrationsCreateTables(t *testing.T) {
	database := newTestDB(t)

	for _, table := range []string{
		"havens",
		"employees",
		"bookings",
		"payments",
		"inventory_items",
		"deliverables",
		"blocked_dates",
		"activity_logs",
		"notifications",
	} {
		var name string
		err := database.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Fatalf("table %q: %v", table, err)
		}
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	errBoom := errors.New("boom")
	err := database.RunInTx(ctx, func(txdb *DB) error {
		if _, err := txdb.Queries.CreateInventoryItem(ctx, dbgen.CreateInventoryItemParams{
			Name:      "Towel",
			Unit:      "pc",
			Quantity:  10,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}

	items, err := database.Queries.ListInventoryItems(ctx, false)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected rollback, found %d items", len(items))
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	database := newTestDB(t)

	_, err := database.Exec(
		`INSERT INTO blocked_dates (haven_id, start_date, end_date, created_at) VALUES (999, '2026-01-01', '2026-01-02', ?)`,
		time.Now().UTC(),
	)
	if err == nil {
		t.Fatal("expected foreign key failure for unknown haven")
	}
}

func TestAdjustInventoryQuantityRefusesNegativeStock(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	item, err := database.Queries.CreateInventoryItem(ctx, dbgen.CreateInventoryItemParams{
		Name:      "Breakfast Set",
		Unit:      "set",
		Quantity:  2,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	affected, err := database.Queries.AdjustInventoryQuantity(ctx, item.ID, -3, now)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected no rows affected, got %d", affected)
	}

	affected, err = database.Queries.AdjustInventoryQuantity(ctx, item.ID, -2, now)
	if err != nil || affected != 1 {
		t.Fatalf("adjust to zero: affected=%d err=%v", affected, err)
	}

	item, err = database.Queries.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 0 {
		t.Fatalf("quantity: %d", item.Quantity)
	}

	if _, err := database.Queries.GetInventoryItem(ctx, item.ID+100); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}
