package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/product-api/internal/database"
	"github.com/iliyamo/product-api/internal/model"
)

const userColumns = "id, username, email, password_hash, created_at"

// UserRepo is the credential store gateway.
type UserRepo struct {
	db      database.DBTX
	dialect database.Dialect
}

func NewUserRepo(db database.DBTX, d database.Dialect) *UserRepo {
	return &UserRepo{db: db, dialect: d}
}

// Create inserts u and fills in its ID. Email is stored normalized.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	id, err := insertReturningID(ctx, r.db, r.dialect,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", classifyUserUnique(err))
	}
	u.ID = id
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	return scanUser(row)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), normalizeEmail(email))
	return scanUser(row)
}

// EmailTaken reports whether another user (id != excludeID) owns email. Pass
// 0 to check against every user.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE email = ? AND id <> ? LIMIT 1", normalizeEmail(email), excludeID)
}

// UsernameTaken reports whether another user (id != excludeID) owns username.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE username = ? AND id <> ? LIMIT 1", username, excludeID)
}

func (r *UserRepo) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u := new(model.User)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update writes username, email and password_hash of u. It returns
// ErrNotFound when no row has u.ID.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		r.dialect.Rebind("UPDATE users SET username = ?, email = ?, password_hash = ? WHERE id = ?"),
		u.Username, u.Email, u.PasswordHash, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", classifyUserUnique(err))
	}
	return expectAffected(res)
}

// Delete removes the user permanently.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
