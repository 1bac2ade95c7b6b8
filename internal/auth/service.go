package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/user"
)

// Users is the slice of the user store the auth service needs.
type Users interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

// Sessions is the persistence surface for refresh sessions and resets.
type Sessions interface {
	CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
	RevokeUserSessions(ctx context.Context, userID uuid.UUID) error
	CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (PasswordReset, error)
	SetUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// ErrInvalidCredentials covers both unknown emails and wrong passwords so
// responses do not reveal which one failed.
var ErrInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service implements login, refresh rotation and password resets.
type Service struct {
	Users      Users
	Store      Sessions
	Tokens     *TokenIssuer
	Email      common.EmailSender
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	Logger     zerolog.Logger
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, user.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return TokenPair{}, user.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, user.User{}, err
	}
	if !u.Active {
		return TokenPair{}, user.User{}, common.NewAppError("ACCOUNT_DISABLED", "account is disabled", http.StatusForbidden, nil)
	}
	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil {
		return TokenPair{}, user.User{}, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		return TokenPair{}, user.User{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return TokenPair{}, user.User{}, err
	}
	s.Logger.Info().Str("user_id", u.ID.String()).Msg("login")
	return pair, u, nil
}

// Refresh rotates a refresh token: the presented session is revoked and a
// fresh pair is issued. A replayed token therefore fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	sess, err := s.Store.GetSessionByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return TokenPair{}, common.NewAppError("INVALID_REFRESH_TOKEN", "refresh token is invalid or expired", http.StatusUnauthorized, err)
		}
		return TokenPair{}, err
	}
	u, err := s.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	if !u.Active {
		return TokenPair{}, common.NewAppError("ACCOUNT_DISABLED", "account is disabled", http.StatusForbidden, nil)
	}
	if err := s.Store.RevokeSession(ctx, sess.ID); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, u)
}

// Logout revokes the presented refresh session.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	sess, err := s.Store.GetSessionByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return s.Store.RevokeSession(ctx, sess.ID)
}

// RequestPasswordReset issues a reset token and mails it to the user.
// Unknown emails return success so the endpoint cannot be used to probe
// which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	}
	raw, hash, err := NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.Store.CreatePasswordReset(ctx, u.ID, hash, s.now().Add(s.ResetTTL)); err != nil {
		return err
	}
	if s.Email != nil {
		body := fmt.Sprintf("<p>Use this token to reset your password: <b>%s</b></p>", raw)
		if err := s.Email.Send(u.Email, "Password reset", body); err != nil {
			s.Logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("send reset email")
		}
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every live session of the user.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.Store.ConsumePasswordReset(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrResetNotFound) {
			return common.NewAppError("INVALID_RESET_TOKEN", "reset token is invalid or expired", http.StatusUnauthorized, err)
		}
		return err
	}
	hash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.SetUserPassword(ctx, reset.UserID, hash); err != nil {
		return err
	}
	return s.Store.RevokeUserSessions(ctx, reset.UserID)
}

func (s *Service) issuePair(ctx context.Context, u user.User) (TokenPair, error) {
	access, accessExp, err := s.Tokens.Sign(u.ID.String(), u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	raw, hash, err := NewOpaqueToken()
	if err != nil {
		return TokenPair{}, err
	}
	refreshExp := s.now().Add(s.RefreshTTL)
	if _, err := s.Store.CreateSession(ctx, u.ID, hash, refreshExp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: refreshExp,
	}, nil
}
