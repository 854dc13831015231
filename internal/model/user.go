package model

import "time"

// User represents an application user record as stored in the `users`
// table. The json tags are omitted because handlers expose their own
// response types; PasswordHash must never leave the service.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique display name.
//	Email        – unique, lower-cased email address.
//	PasswordHash – self-describing password digest.
//	CreatedAt    – creation timestamp (UTC), never updated.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}
