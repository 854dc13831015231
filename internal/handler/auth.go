package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-api/internal/logging"
	"github.com/iliyamo/product-api/internal/model"
	"github.com/iliyamo/product-api/internal/service"
)

const requestTimeout = 5 * time.Second

// UserService is implemented by *service.UserService.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	List(ctx context.Context) ([]*model.User, error)
	Get(ctx context.Context, id uint64) (*model.User, error)
	Update(ctx context.Context, id uint64, in service.UpdateInput) (*model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// AuthHandler serves registration, login and user management.
type AuthHandler struct {
	Users UserService
	Log   logging.Logger
}

func NewAuthHandler(users UserService, log logging.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateUserReq struct {
	Username string `json:"username" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=200"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// Usernames and emails are trimmed before validation so whitespace-only
// values count as missing. Passwords are kept byte for byte.
func (r *registerReq) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *loginReq) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// A whitespace-only password in an update means "leave it unchanged".
func (r *updateUserReq) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if strings.TrimSpace(r.Password) == "" {
		r.Password = ""
	}
}

type authResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
}

type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAuthResp(res service.AuthResult) authResp {
	return authResp{Token: res.Token, ExpiresAt: res.ExpiresAt, Username: res.Username, Email: res.Email}
}

func toUserResp(u *model.User) userResp {
	return userResp{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Register: create user and return a token immediately.
//
// The service checks the email before the username, so a request that
// collides on both reports the email conflict. Storage-level unique
// violations from concurrent registrations surface as the same messages.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	// Bound the whole registration (lookups, hash and insert) by a timeout
	// so a stalled database cannot hold the request open.
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Users.Register(ctx, service.RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return badRequest(c, "User with this email already exists")
	case errors.Is(err, service.ErrUsernameTaken):
		return badRequest(c, "Username is already taken")
	case errors.Is(err, service.ErrInvalidInput):
		return badRequest(c, "username is required")
	case errors.Is(err, service.ErrPasswordTooLong):
		return badRequest(c, "password must be at most 72 bytes")
	case err != nil:
		return internalError(c, h.Log, "register", err)
	}
	return c.JSON(http.StatusOK, toAuthResp(res))
}

// Login exchanges email and password for a token. Unknown emails and wrong
// passwords get the same 401 so callers cannot tell which accounts exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Users.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	case err != nil:
		return internalError(c, h.Log, "login", err)
	}
	return c.JSON(http.StatusOK, toAuthResp(res))
}

// ListUsers returns the public summary of every user. Password digests are
// never part of the response.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return internalError(c, h.Log, "list users", err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, out)
}

// GetUser returns one user by id; a non-numeric id is a 400, an unknown one
// a 404.
func (h *AuthHandler) GetUser(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.Get(ctx, id)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return notFound(c, "User not found")
	case err != nil:
		return internalError(c, h.Log, "get user", err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateUser applies only the non-blank fields of the body and returns the
// updated user. A new email or username must not belong to another user.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateUserReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.Update(ctx, id, service.UpdateInput{Username: req.Username, Email: req.Email, Password: req.Password})
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return notFound(c, "User not found")
	case errors.Is(err, service.ErrEmailTaken):
		return badRequest(c, "Email is already taken by another user")
	case errors.Is(err, service.ErrUsernameTaken):
		return badRequest(c, "Username is already taken by another user")
	case errors.Is(err, service.ErrPasswordTooLong):
		return badRequest(c, "password must be at most 72 bytes")
	case err != nil:
		return internalError(c, h.Log, "update user", err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// DeleteUser removes a user permanently and answers 204; deleting the same
// id again answers 404.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Users.Delete(ctx, id)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return notFound(c, "User not found")
	case err != nil:
		return internalError(c, h.Log, "delete user", err)
	}
	return c.NoContent(http.StatusNoContent)
}
