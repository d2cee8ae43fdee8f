package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "runs")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NextSequence(cancelled, db, "runs"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got, _ := NextSequence(ctx, db, "runs"); got != 4 {
		t.Errorf("cancelled call must not advance the sequence, got %d", got)
	}
}

func TestCacheRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, ok, err := NewCacheRepository(db).Get(ctx, "artist:A track:B")
		if err != nil || ok {
			t.Errorf("Get() = ok %v, err %v; want miss", ok, err)
		}
	})

	t.Run("Put is visible before Flush and persisted after", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCacheRepository(db)
		entry := models.NewCacheEntry("USRC1", "spotify:track:1")

		if err := repo.Put(ctx, "q1", entry); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, ok, _ := repo.Get(ctx, "q1")
		if !ok || got.ExternalURI == nil || *got.ExternalURI != "spotify:track:1" {
			t.Fatalf("expected pending entry, got %+v ok=%v", got, ok)
		}

		var rows int
		db.QueryRow("SELECT COUNT(*) FROM track_cache").Scan(&rows)
		if rows != 0 {
			t.Errorf("expected no rows before Flush, got %d", rows)
		}

		if err := repo.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}

		fresh := NewCacheRepository(db)
		got, ok, err := fresh.Get(ctx, "q1")
		if err != nil || !ok {
			t.Fatalf("expected persisted entry, ok=%v err=%v", ok, err)
		}
		if *got.ExternalID != "USRC1" {
			t.Errorf("unexpected isrc %v", *got.ExternalID)
		}
	})

	t.Run("negative entries are NULL columns", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCacheRepository(db)
		repo.Put(ctx, "nothing", models.CacheEntry{})
		if err := repo.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}

		var isrc, uri sql.NullString
		if err := db.QueryRow("SELECT isrc, uri FROM track_cache WHERE query = ?", "nothing").Scan(&isrc, &uri); err != nil {
			t.Fatalf("query error = %v", err)
		}
		if isrc.Valid || uri.Valid {
			t.Errorf("expected NULL columns, got %v %v", isrc, uri)
		}

		got, ok, _ := NewCacheRepository(db).Get(ctx, "nothing")
		if !ok || !got.NotFound() {
			t.Errorf("expected cached negative result, got %+v ok=%v", got, ok)
		}

		misses, _ := repo.Misses(ctx)
		if misses != 1 {
			t.Errorf("Misses() = %d, want 1", misses)
		}
	})

	t.Run("Flush overwrites existing rows", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCacheRepository(db)
		repo.Put(ctx, "q", models.CacheEntry{})
		repo.Flush(ctx)
		repo.Put(ctx, "q", models.NewCacheEntry("I", "spotify:track:q"))
		if err := repo.Flush(ctx); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}

		got, _, _ := NewCacheRepository(db).Get(ctx, "q")
		if got.NotFound() {
			t.Error("expected updated entry")
		}
	})

	t.Run("Len and Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCacheRepository(db)
		repo.Put(ctx, "a", models.CacheEntry{})
		repo.Flush(ctx)
		repo.Put(ctx, "a", models.CacheEntry{})
		repo.Put(ctx, "b", models.CacheEntry{})

		n, err := repo.Len(ctx)
		if err != nil || n != 2 {
			t.Errorf("Len() = %d, %v; want 2", n, err)
		}

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if n, _ := repo.Len(ctx); n != 0 {
			t.Errorf("Len() after Clear = %d", n)
		}
	})
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create assigns id and sequence", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, "us/demo", models.RunSucceeded)
		run.PlaylistID = "pl1"
		run.Tracks = 2

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if run.ID() == "" || run.Sequence() != 1 {
			t.Errorf("expected id and sequence 1, got %q #%d", run.ID(), run.Sequence())
		}

		got, err := repo.Get(ctx, run.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Station != "us/demo" || got.PlaylistID != "pl1" || got.Tracks != 2 || got.Status != models.RunSucceeded {
			t.Errorf("unexpected run %+v", got)
		}
	})

	t.Run("Create validates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		run := models.NewRun(0, "us/demo", models.RunFailed)
		if err := NewRunRepository(db).Create(ctx, run); err == nil {
			t.Error("expected validation error for failed run without error text")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewRunRepository(db).Get(ctx, "nope"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		for _, station := range []string{"us/a", "us/b", "us/a"} {
			if err := repo.Record(ctx, models.NewRun(0, station, models.RunSucceeded)); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		}
		failed := models.NewRun(0, "us/b", models.RunFailed)
		failed.Stage = "fetch"
		failed.Error = errors.New("boom").Error()
		repo.Create(ctx, failed)

		all, err := repo.List(ctx, map[string]any{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 4 || all[0].Sequence() != 4 {
			t.Fatalf("expected 4 runs newest first, got %d", len(all))
		}

		byStation, _ := repo.List(ctx, map[string]any{"station": "us/a"})
		if len(byStation) != 2 {
			t.Errorf("expected 2 runs for us/a, got %d", len(byStation))
		}

		byStatus, _ := repo.List(ctx, map[string]any{"status": string(models.RunFailed)})
		if len(byStatus) != 1 || byStatus[0].Stage != "fetch" {
			t.Errorf("unexpected failed runs %+v", byStatus)
		}

		limited, _ := repo.List(ctx, map[string]any{"limit": 2})
		if len(limited) != 2 {
			t.Errorf("expected limit 2, got %d", len(limited))
		}
	})
}
