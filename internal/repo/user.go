package repo

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/userdir/internal/models"
)

// ErrInvalidCredentials is returned by GetByCredentials for a wrong
// username or password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, username, firstName, lastName, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (username, first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, first_name, last_name, email, is_active, is_staff, is_superuser
	`

	user := &models.User{}

	err = r.DB.QueryRowContext(ctx, query, username, firstName, lastName, email, string(hash)).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email,
			&user.IsActive, &user.IsStaff, &user.IsSuperuser)

	if err != nil {
		return nil, err
	}

	return user, nil
}

// ==========================
// Create Superuser
// ==========================
func (r *UserRepo) CreateSuperuser(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (username, email, password_hash, is_staff, is_superuser)
		VALUES ($1, $2, $3, TRUE, TRUE)
		RETURNING id, username, first_name, last_name, email, is_active, is_staff, is_superuser
	`

	user := &models.User{}

	err = r.DB.QueryRowContext(ctx, query, username, email, string(hash)).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email,
			&user.IsActive, &user.IsStaff, &user.IsSuperuser)

	if err != nil {
		return nil, err
	}

	return user, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, username, first_name, last_name, email, password_hash, is_active, is_staff, is_superuser
		FROM users
		WHERE id = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email,
			&user.PasswordHash, &user.IsActive, &user.IsStaff, &user.IsSuperuser)

	if err != nil {
		return nil, err
	}

	return user, nil
}

// ==========================
// Get By Username
// ==========================
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, first_name, last_name, email, password_hash, is_active, is_staff, is_superuser
		FROM users
		WHERE username = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email,
			&user.PasswordHash, &user.IsActive, &user.IsStaff, &user.IsSuperuser)

	if err != nil {
		return nil, err
	}

	return user, nil
}

// ==========================
// Get By Credentials
// ==========================
// GetByCredentials loads the user and verifies the password against the
// stored bcrypt hash. A missing user and a wrong password both return
// ErrInvalidCredentials.
func (r *UserRepo) GetByCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ==========================
// Update User
// ==========================
func (r *UserRepo) Update(ctx context.Context, id int, username, firstName, lastName, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, email = $4, password_hash = $5
		WHERE id = $6
		RETURNING id, username, first_name, last_name, email, is_active, is_staff, is_superuser
	`

	user := &models.User{}

	err = r.DB.QueryRowContext(ctx, query, username, firstName, lastName, email, string(hash), id).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email,
			&user.IsActive, &user.IsStaff, &user.IsSuperuser)

	if err != nil {
		return nil, err
	}

	return user, nil
}

// ==========================
// Delete User
// ==========================
func (r *UserRepo) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ==========================
// List Users
// ==========================
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, username, first_name, last_name, email, is_active, is_staff, is_superuser
		 FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
			&u.IsActive, &u.IsStaff, &u.IsSuperuser); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// ==========================
// Count Users
// ==========================
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
