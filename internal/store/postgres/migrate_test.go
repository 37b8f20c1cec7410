package postgres

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestMigrate_EmptyDSN(t *testing.T) {
	err := Migrate("", DirectionUp)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("Migrate(\"\") = %v, want DATABASE_URL error", err)
	}
}

func TestMigrate_InvalidDirection(t *testing.T) {
	for _, dir := range []string{"", "sideways", "UP"} {
		err := Migrate("postgres://localhost/leads", dir)
		if err == nil || !strings.Contains(err.Error(), "direction must be up or down") {
			t.Errorf("Migrate(%q) = %v, want direction error", dir, err)
		}
	}
}

func TestMigrationFS_Pairs(t *testing.T) {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	up, down := 0, 0
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			up++
		case strings.HasSuffix(f, ".down.sql"):
			down++
		}
	}
	if up == 0 || up != down {
		t.Errorf("expected matching up/down migrations, got %d up and %d down", up, down)
	}
}

func TestDescribeDriverError(t *testing.T) {
	err := describeDriverError(&pq.Error{Code: "42P07", Message: `relation "leads" already exists`})
	if !strings.Contains(err.Error(), "duplicate_table") {
		t.Errorf("describeDriverError() = %q, want the SQLSTATE name", err)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		t.Error("the driver error must stay inspectable")
	}

	plain := errors.New("dial tcp: connection refused")
	if describeDriverError(plain) != plain {
		t.Error("non-driver errors pass through unchanged")
	}
}
