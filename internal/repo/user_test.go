package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func TestUserRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "is_active", "is_staff", "is_superuser"}).
		AddRow(1, "alice", "Alice", "Smith", "alice@example.com", true, false, false)

	mock.ExpectQuery(`INSERT INTO users \(username, first_name, last_name, email, password_hash\)`).
		WithArgs("alice", "Alice", "Smith", "alice@example.com", sqlmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	user, err := repo.Create(context.Background(), "alice", "Alice", "Smith", "alice@example.com", "secretpw1!")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID != 1 || user.Username != "alice" || user.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if !user.IsActive || user.IsStaff || user.IsSuperuser {
		t.Errorf("unexpected flags: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "", "", "", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	repo := NewUserRepo(db)
	_, err = repo.Create(context.Background(), "alice", "", "", "", "secretpw1!")
	if err == nil {
		t.Fatal("expected error for duplicate username")
	}
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		t.Errorf("expected pq unique violation, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_CreateSuperuser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "is_active", "is_staff", "is_superuser"}).
		AddRow(1, "admin", "", "", "admin@localhost", true, true, true)

	mock.ExpectQuery(`INSERT INTO users \(username, email, password_hash, is_staff, is_superuser\)`).
		WithArgs("admin", "admin@localhost", sqlmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	user, err := repo.CreateSuperuser(context.Background(), "admin", "admin@localhost", "adminpw1!")
	if err != nil {
		t.Fatalf("CreateSuperuser: %v", err)
	}
	if !user.IsStaff || !user.IsSuperuser {
		t.Errorf("expected staff superuser, got: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "password_hash", "is_active", "is_staff", "is_superuser"}).
		AddRow(2, "bob", "Bob", "Jones", "bob@example.com", "x", true, false, false)

	mock.ExpectQuery(`SELECT id, username, first_name, last_name, email, password_hash, is_active, is_staff, is_superuser`).
		WithArgs(2).
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	user, err := repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.ID != 2 || user.Username != "bob" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, first_name, last_name, email, password_hash, is_active, is_staff, is_superuser`).
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)

	repo := NewUserRepo(db)
	_, err = repo.GetByID(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_GetByCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("secretpw1!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "password_hash", "is_active", "is_staff", "is_superuser"}).
		AddRow(3, "charlie", "", "", "charlie@example.com", string(hash), true, false, false)

	mock.ExpectQuery(`SELECT id, username, first_name, last_name, email, password_hash, is_active, is_staff, is_superuser`).
		WithArgs("charlie").
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	user, err := repo.GetByCredentials(context.Background(), "charlie", "secretpw1!")
	if err != nil {
		t.Fatalf("GetByCredentials: %v", err)
	}
	if user.ID != 3 || user.Username != "charlie" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_GetByCredentials_WrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("rightpw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "password_hash", "is_active", "is_staff", "is_superuser"}).
		AddRow(3, "charlie", "", "", "", string(hash), true, false, false)

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs("charlie").
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	_, err = repo.GetByCredentials(context.Background(), "charlie", "wrongpw")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_GetByCredentials_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	repo := NewUserRepo(db)
	_, err = repo.GetByCredentials(context.Background(), "ghost", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "is_active", "is_staff", "is_superuser"}).
		AddRow(2, "updated_user", "Updated", "User", "updated@example.com", true, false, false)

	mock.ExpectQuery(`UPDATE users`).
		WithArgs("updated_user", "Updated", "User", "updated@example.com", sqlmock.AnyArg(), 2).
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	user, err := repo.Update(context.Background(), 2, "updated_user", "Updated", "User", "updated@example.com", "newpw1!")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if user.Username != "updated_user" || user.FirstName != "Updated" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM users`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepo(db)
	if err := repo.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM users`).
		WithArgs(999).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepo(db)
	err = repo.Delete(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "is_active", "is_staff", "is_superuser"}).
		AddRow(1, "admin", "", "", "admin@localhost", true, true, true).
		AddRow(2, "bob", "Bob", "Jones", "bob@example.com", true, false, false)

	mock.ExpectQuery(`SELECT id, username, first_name, last_name, email, is_active, is_staff, is_superuser`).
		WithArgs(50, 0).
		WillReturnRows(rows)

	repo := NewUserRepo(db)
	users, err := repo.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "admin" || users[1].Username != "bob" {
		t.Errorf("unexpected users: %+v", users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	repo := NewUserRepo(db)
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
