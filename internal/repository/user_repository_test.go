package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/product-api/internal/database"
	"github.com/iliyamo/product-api/internal/model"
)

func newUserRepoWithMock(t *testing.T, d database.Dialect) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewUserRepo(db, d), mock
}

var userCols = []string{"id", "username", "email", "password_hash", "created_at"}

func TestUserRepo_Create_MySQL(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)
	now := time.Now().UTC()

	mock.ExpectExec(`^INSERT INTO users \(username, email, password_hash, created_at\) VALUES \(\?, \?, \?, \?\)$`).
		WithArgs("alice", "alice@x.com", "digest", now).
		WillReturnResult(sqlmock.NewResult(42, 1))

	u := &model.User{Username: "alice", Email: "  Alice@X.com ", PasswordHash: "digest", CreatedAt: now}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(42), u.ID)
	assert.Equal(t, "alice@x.com", u.Email)
}

func TestUserRepo_Create_Postgres(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.Postgres)

	mock.ExpectQuery(`^INSERT INTO users \(username, email, password_hash, created_at\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id$`).
		WithArgs("alice", "alice@x.com", "digest", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	u := &model.User{Username: "alice", Email: "alice@x.com", PasswordHash: "digest", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(5), u.ID)
}

func TestUserRepo_Create_UniqueViolations(t *testing.T) {
	tests := []struct {
		name    string
		dialect database.Dialect
		err     error
		want    error
	}{
		{"mysql email", database.MySQL, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@x.com' for key 'users.uq_users_email'"}, ErrDuplicateEmail},
		{"mysql username", database.MySQL, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'users.uq_users_username'"}, ErrDuplicateUsername},
		{"mysql username resembling key", database.MySQL, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'uq_users_email' for key 'users.uq_users_username'"}, ErrDuplicateUsername},
		{"mysql username containing key clause", database.MySQL, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a for key users.uq_users_email' for key 'users.uq_users_username'"}, ErrDuplicateUsername},
		{"postgres email", database.Postgres, &pgconn.PgError{Code: "23505", ConstraintName: "uq_users_email"}, ErrDuplicateEmail},
		{"postgres username", database.Postgres, &pgconn.PgError{Code: "23505", ConstraintName: "uq_users_username"}, ErrDuplicateUsername},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newUserRepoWithMock(t, tc.dialect)
			if tc.dialect == database.Postgres {
				mock.ExpectQuery(`^INSERT INTO users`).WillReturnError(tc.err)
			} else {
				mock.ExpectExec(`^INSERT INTO users`).WillReturnError(tc.err)
			}

			err := repo.Create(context.Background(), &model.User{Username: "alice", Email: "alice@x.com"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUserRepo_Create_OtherErrorsPassThrough(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)
	mock.ExpectExec(`^INSERT INTO users`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &model.User{Username: "alice", Email: "alice@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.Postgres)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^SELECT id, username, email, password_hash, created_at FROM users WHERE email = \$1$`).
		WithArgs("alice@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "alice", "alice@x.com", "digest", created))

	u, err := repo.GetByEmail(context.Background(), "ALICE@x.com")
	require.NoError(t, err)
	assert.Equal(t, &model.User{ID: 1, Username: "alice", Email: "alice@x.com", PasswordHash: "digest", CreatedAt: created}, u)
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)
	mock.ExpectQuery(`^SELECT .* FROM users WHERE id = \?$`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_Taken(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)

	mock.ExpectQuery(`^SELECT 1 FROM users WHERE email = \? AND id <> \? LIMIT 1$`).
		WithArgs("alice@x.com", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`^SELECT 1 FROM users WHERE username = \? AND id <> \? LIMIT 1$`).
		WithArgs("alice", int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`^SELECT 1 FROM users WHERE username = \?`).
		WithArgs("bob", int64(0)).
		WillReturnError(errors.New("boom"))

	taken, err := repo.EmailTaken(context.Background(), "Alice@x.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.UsernameTaken(context.Background(), "alice", 3)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = repo.UsernameTaken(context.Background(), "bob", 0)
	assert.Error(t, err)
}

func TestUserRepo_List(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)
	now := time.Now().UTC()
	mock.ExpectQuery(`^SELECT .* FROM users ORDER BY id$`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "alice", "alice@x.com", "d1", now).
			AddRow(int64(2), "bob", "bob@x.com", "d2", now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[1].Username)
}

func TestUserRepo_List_Empty(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)
	mock.ExpectQuery(`FROM users ORDER BY id`).WillReturnRows(sqlmock.NewRows(userCols))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserRepo_Update(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.Postgres)
	mock.ExpectExec(`^UPDATE users SET username = \$1, email = \$2, password_hash = \$3 WHERE id = \$4$`).
		WithArgs("alice2", "alice2@x.com", "digest", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^UPDATE users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_users_email"})

	require.NoError(t, repo.Update(context.Background(), &model.User{ID: 1, Username: "alice2", Email: "Alice2@x.com", PasswordHash: "digest"}))
	assert.ErrorIs(t, repo.Update(context.Background(), &model.User{ID: 99}), ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), &model.User{ID: 1}), ErrDuplicateEmail)
}

func TestUserRepo_Delete(t *testing.T) {
	repo, mock := newUserRepoWithMock(t, database.MySQL)
	mock.ExpectExec(`^DELETE FROM users WHERE id = \?$`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM users WHERE id = \?$`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.ErrorIs(t, repo.Delete(context.Background(), 4), ErrNotFound)
}
