package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		if migrations[0].Name != "track_cache" || migrations[1].Name != "runs" {
			t.Errorf("unexpected migration names %q, %q", migrations[0].Name, migrations[1].Name)
		}
	})

	t.Run("parseMigrationName", func(t *testing.T) {
		tc := []struct {
			name      string
			version   int
			label     string
			direction string
			ok        bool
		}{
			{name: "0001_runs_up.sql", version: 1, label: "runs", direction: "up", ok: true},
			{name: "0000_track_cache_down.sql", version: 0, label: "track_cache", direction: "down", ok: true},
			{name: "0002_seed.sql", ok: false},
			{name: "abc_runs_up.sql", ok: false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				version, label, direction, ok := parseMigrationName(tt.name)
				if ok != tt.ok {
					t.Fatalf("parseMigrationName() ok = %v, want %v", ok, tt.ok)
				}
				if !ok {
					return
				}
				if version != tt.version || label != tt.label || direction != tt.direction {
					t.Errorf("parseMigrationName() = (%d, %q, %q)", version, label, direction)
				}
			})
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"track_cache", "runs", "runs_sequence"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM runs LIMIT 1"); err == nil {
			t.Error("runs table should be gone after rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM track_cache LIMIT 1"); err != nil {
			t.Errorf("track_cache should survive rolling back the latest migration: %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("Rollback with nothing applied", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error rolling back an empty database")
		}
	})
}
