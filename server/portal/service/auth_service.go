package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/techfranca/francaverso/server/common/auth"
	"github.com/techfranca/francaverso/server/portal/domain"
)

var ErrInvalidPassword = errors.New("invalid password")

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	FindByFirebaseUIDOrEmail(ctx context.Context, firebaseUID, email string) (domain.User, error)
	Create(ctx context.Context, firebaseUID, email, name string, photoURL *string) (domain.User, error)
	SyncFederated(ctx context.Context, id string, firebaseUID, photoURL *string) (domain.User, error)
}

// AuthService establishes sessions. Two entry paths exist: the shared portal
// password for users already provisioned in the directory, and the federated
// identity sync that upserts a row from the external provider's profile.
type AuthService struct {
	users        UserStore
	sessions     *auth.SessionService
	passwordHash []byte
}

func NewAuthService(users UserStore, sessions *auth.SessionService, portalPassword string) (*AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(portalPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash portal password: %w", err)
	}
	return &AuthService{users: users, sessions: sessions, passwordHash: hash}, nil
}

// Login authenticates a known user with the shared portal password and issues
// a short-lived session.
func (s *AuthService) Login(ctx context.Context, userID, password string) (domain.User, string, time.Duration, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return domain.User{}, "", 0, ErrInvalidPassword
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, "", 0, err
	}
	token, err := s.sessions.Issue(user.ID, auth.PasswordLoginTTL)
	if err != nil {
		return domain.User{}, "", 0, err
	}
	return user, token, auth.PasswordLoginTTL, nil
}

// SyncFederated matches a federated identity to a user row, creating one on
// first login and backfilling the provider uid and photo afterwards, then
// issues a long-lived session.
func (s *AuthService) SyncFederated(ctx context.Context, providerUID, email, name string, photoURL *string) (domain.User, string, time.Duration, error) {
	email = strings.TrimSpace(email)
	if providerUID == "" || email == "" {
		return domain.User{}, "", 0, errors.New("uid and email are required")
	}

	user, err := s.users.FindByFirebaseUIDOrEmail(ctx, providerUID, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if strings.TrimSpace(name) == "" {
			name = localPart(email)
		}
		user, err = s.users.Create(ctx, providerUID, email, name, photoURL)
		if err != nil {
			return domain.User{}, "", 0, err
		}
	case err != nil:
		return domain.User{}, "", 0, err
	default:
		user, err = s.users.SyncFederated(ctx, user.ID, &providerUID, photoURL)
		if err != nil {
			return domain.User{}, "", 0, err
		}
	}

	token, err := s.sessions.Issue(user.ID, auth.FederatedLoginTTL)
	if err != nil {
		return domain.User{}, "", 0, err
	}
	return user, token, auth.FederatedLoginTTL, nil
}

// Me resolves the session owner's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
