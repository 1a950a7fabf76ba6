package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/events"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/Skotchmaster/storefront/services/api/internal/models"
	"github.com/Skotchmaster/storefront/services/api/internal/repo"
)

const defaultTokenTTL = 30 * time.Minute

type AccountService struct {
	Repo      *repo.GormRepo
	Events    events.Publisher
	JWTSecret []byte
	TokenTTL  time.Duration
	Now       func() time.Time
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *models.User
}

type ProfileUpdate struct {
	Username        *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

type userPayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

func payloadOf(u *models.User) userPayload {
	return userPayload{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, IsActive: u.IsActive}
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *AccountService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "account.register")

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required: %w", ErrValidation)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("invalid email: %w", ErrValidation)
	}

	if taken, err := s.Repo.UsernameTaken(ctx, username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("username already exists: %w", ErrConflict)
	}
	if taken, err := s.Repo.EmailTaken(ctx, email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("email already exists: %w", ErrConflict)
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		IsActive:     true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username or email already exists: %w", ErrConflict)
		}
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID, "user_registered", payloadOf(user))
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", ErrValidation)
	}

	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is deactivated: %w", ErrUnauthorized)
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, exp, err := tokens.Issue(user.ID, user.Username, tokens.RoleFor(user.IsAdmin), s.JWTSecret, ttl, s.now())
	if err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: token, ExpiresAt: exp, User: user}, nil
}

func (s *AccountService) GetProfile(ctx context.Context, actor Actor, id uint) (*models.User, error) {
	if !actor.CanAccess(id) {
		return nil, fmt.Errorf("profile of another user: %w", ErrForbidden)
	}
	user, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, actor Actor, id uint, upd ProfileUpdate) (*models.User, error) {
	if !actor.CanAccess(id) {
		return nil, fmt.Errorf("profile of another user: %w", ErrForbidden)
	}
	user, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return nil, fmt.Errorf("username cannot be empty: %w", ErrValidation)
		}
		if name != user.Username {
			taken, err := s.Repo.UsernameTaken(ctx, name, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, fmt.Errorf("username already exists: %w", ErrConflict)
			}
			user.Username = name
		}
	}

	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if !validEmail(email) {
			return nil, fmt.Errorf("invalid email: %w", ErrValidation)
		}
		if email != user.Email {
			taken, err := s.Repo.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, fmt.Errorf("email already exists: %w", ErrConflict)
			}
			user.Email = email
		}
	}

	if upd.NewPassword != "" {
		if !pkg_hash.CheckPassword(user.PasswordHash, upd.CurrentPassword) {
			return nil, fmt.Errorf("current password is incorrect: %w", ErrUnauthorized)
		}
		pwHash, err := pkg_hash.HashPassword(upd.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = pwHash
	}

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username or email already exists: %w", ErrConflict)
		}
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID, "user_updated", payloadOf(user))
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context, adminsFirst bool) ([]models.User, error) {
	return s.Repo.ListUsers(ctx, adminsFirst)
}

func (s *AccountService) SetAdmin(ctx context.Context, id uint, isAdmin bool) (*models.User, error) {
	user, err := s.Repo.UpdateUserFlags(ctx, id, map[string]any{"is_admin": isAdmin})
	if err != nil {
		return nil, notFound(err, "user")
	}
	publish(ctx, s.Events, events.TopicUsers, user.ID, "user_role_changed", payloadOf(user))
	return user, nil
}

func (s *AccountService) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	user, err := s.Repo.UpdateUserFlags(ctx, id, map[string]any{"is_active": active})
	if err != nil {
		return nil, notFound(err, "user")
	}
	publish(ctx, s.Events, events.TopicUsers, user.ID, "user_active_changed", payloadOf(user))
	return user, nil
}

func (s *AccountService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		return notFound(err, "user")
	}
	publish(ctx, s.Events, events.TopicUsers, id, "user_deleted", userPayload{UserID: id})
	return nil
}

// AccountState backs the bearer middleware's per-request account check.
func (s *AccountService) AccountState(ctx context.Context, id uint) (active, admin bool, err error) {
	return s.Repo.AccountState(ctx, id)
}

// EnsureAdmin creates the bootstrap administrator, or promotes and
// reactivates the account if the username already exists.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	existing, err := s.Repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return s.Repo.UpdateUserFlags(ctx, existing.ID, map[string]any{"is_admin": true, "is_active": true})
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user, err := s.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	return s.SetAdmin(ctx, user.ID, true)
}
