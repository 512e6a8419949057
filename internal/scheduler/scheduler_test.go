package scheduler

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/crucial707/userdir/internal/repo"
)

func TestRun_InvalidCronExpr(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	if _, err := Run(repo.NewAuditRepo(db), "not a cron expr", time.Hour); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRun_StartsAndStops(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	c, err := Run(repo.NewAuditRepo(db), "0 3 * * *", 90*24*time.Hour)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c == nil {
		t.Fatal("expected a running cron")
	}
	if len(c.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(c.Entries()))
	}
	<-c.Stop().Done()

	// The sweep never fired, so no SQL should have run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
