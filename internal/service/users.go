// Package service holds the registration, login and user-management flow.
// It orchestrates the credential store, the password hasher and the token
// issuer; HTTP concerns stay in the handler package.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/product-api/internal/auth"
	"github.com/iliyamo/product-api/internal/logging"
	"github.com/iliyamo/product-api/internal/model"
	"github.com/iliyamo/product-api/internal/queue"
	"github.com/iliyamo/product-api/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("username and email are required")
	ErrPasswordTooLong    = errors.New("password too long")
)

// UserStore is the subset of the user repository the service needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenIssuer interface {
	Issue(u model.User) (auth.Token, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateInput carries optional fields. Blank values leave the stored value
// untouched.
type UpdateInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	Email     string
}

type UserService struct {
	store  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	events EventPublisher
	log    logging.Logger
	now    func() time.Time
}

func NewUserService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, events EventPublisher, log logging.Logger) *UserService {
	if events == nil {
		events = queue.Noop{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &UserService{store: store, hasher: hasher, tokens: tokens, events: events, log: log, now: time.Now}
}

// Register creates a user and returns a token for it. Email uniqueness is
// checked before username uniqueness.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	if email == "" || username == "" {
		return AuthResult{}, ErrInvalidInput
	}
	if err := s.ensureFree(ctx, email, username, 0); err != nil {
		return AuthResult{}, err
	}

	digest, err := s.hash(in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return AuthResult{}, mapStoreErr(err)
	}

	res, err := s.issue(*u)
	if err != nil {
		return AuthResult{}, err
	}
	s.publish(ctx, queue.Event{Name: queue.UserRegistered, UserID: u.ID, ActorID: u.ID})
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return res, nil
}

// Login returns ErrInvalidCredentials both for an unknown email and for a
// wrong password.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(*u)
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.store.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

// Update applies the non-blank fields of in to user id. Email and username
// are re-checked for uniqueness against every other user when they change.
// An update that changes nothing does not touch the store.
func (s *UserService) Update(ctx context.Context, id uint64, in UpdateInput) (*model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	changed := false
	if email := normalizeEmail(in.Email); email != "" && email != u.Email {
		if err := s.ensureFree(ctx, email, "", id); err != nil {
			return nil, err
		}
		u.Email = email
		changed = true
	}
	if username := strings.TrimSpace(in.Username); username != "" && username != u.Username {
		if err := s.ensureFree(ctx, "", username, id); err != nil {
			return nil, err
		}
		u.Username = username
		changed = true
	}
	if strings.TrimSpace(in.Password) != "" {
		digest, err := s.hash(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = digest
		changed = true
	}
	if !changed {
		return u, nil
	}

	if err := s.store.Update(ctx, u); err != nil {
		return nil, mapStoreErr(err)
	}
	s.publish(ctx, queue.Event{Name: queue.UserUpdated, UserID: u.ID})
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id uint64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	s.publish(ctx, queue.Event{Name: queue.UserDeleted, UserID: id})
	return nil
}

// ensureFree checks the non-empty arguments, email first.
func (s *UserService) ensureFree(ctx context.Context, email, username string, excludeID uint64) error {
	if email != "" {
		taken, err := s.store.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}
	}
	if username != "" {
		taken, err := s.store.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return ErrUsernameTaken
		}
	}
	return nil
}

func (s *UserService) hash(password string) (string, error) {
	digest, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

func (s *UserService) issue(u model.User) (AuthResult, error) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: tok.Value, ExpiresAt: tok.ExpiresAt, Username: u.Username, Email: u.Email}, nil
}

func (s *UserService) publish(ctx context.Context, ev queue.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn(ctx, "publish event failed", "event", ev.Name, "err", err)
	}
}

// mapStoreErr translates repository sentinels into service errors. The
// losing side of a concurrent duplicate insert lands here.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
