// Package repository defines error types that are reused across
// repositories. These sentinel values allow higher layers to distinguish
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail and ErrDuplicateUsername are returned when an insert or
// update violates the corresponding UNIQUE constraint.
var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

const (
	mysqlDuplicateEntry = 1062
	pgUniqueViolation   = "23505"
)

// classifyUserUnique maps a unique-constraint violation on the users table to
// ErrDuplicateEmail or ErrDuplicateUsername. Other errors are returned as is.
func classifyUserUnique(err error) error {
	var constraint string

	var myErr *mysql.MySQLError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry:
		// "Duplicate entry 'x' for key 'users.uq_users_email'". The entry
		// value is user input, so only the key part is inspected.
		constraint = mysqlDuplicateKey(myErr.Message)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		constraint = pgErr.ConstraintName
	default:
		return err
	}

	switch {
	case strings.Contains(constraint, "uq_users_email"):
		return ErrDuplicateEmail
	case strings.Contains(constraint, "uq_users_username"):
		return ErrDuplicateUsername
	}
	return err
}

// mysqlDuplicateKey returns the key name after the last "for key " in a 1062
// message, or "" when the message has another shape.
func mysqlDuplicateKey(msg string) string {
	i := strings.LastIndex(msg, "for key ")
	if i < 0 {
		return ""
	}
	return msg[i+len("for key "):]
}
