package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAuditRepo_Log(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_log \(actor, action, target_id, target_name, details\)`).
		WithArgs("admin", "delete", 2, "bob", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAuditRepo(db)
	if err := repo.Log(context.Background(), "admin", "delete", 2, "bob", ""); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuditRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "actor", "action", "target_id", "target_name", "details", "created_at"}).
		AddRow(2, "anonymous", "create", 5, "newuser", "", now).
		AddRow(1, "admin", "update", 2, "bob", "", now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT id, actor, action, target_id, target_name`).
		WithArgs(50, 0).
		WillReturnRows(rows)

	repo := NewAuditRepo(db)
	entries, err := repo.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Actor != "anonymous" || entries[0].Action != "create" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuditRepo_DeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -90)
	mock.ExpectExec(`DELETE FROM audit_log WHERE created_at`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	repo := NewAuditRepo(db)
	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42 pruned rows, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
