package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/jwt"
	"ali_portfolio/internal/lib/logger/sl"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const Issuer = "ali_portfolio"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionRevoked     = errors.New("session revoked")
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.3 --name=SessionStore
type SessionStore interface {
	RevokeSession(ctx context.Context, id string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, id string) (bool, error)
}

type Config struct {
	Email        string
	Password     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

// Auth выдает и проверяет подписанные сессии администратора
type Auth struct {
	log      *slog.Logger
	sessions SessionStore
	cfg      Config
	now      func() time.Time
}

func New(log *slog.Logger, sessions SessionStore, cfg Config) *Auth {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	return &Auth{
		log:      log,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Login сверяет учетные данные и выпускает токен сессии
func (a *Auth) Login(ctx context.Context, email, password string) (string, models.Session, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login admin")

	if !a.checkCredentials(email, password) {
		log.Warn("invalid credentials")

		return "", models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := a.now().Truncate(time.Second)
	session := models.Session{
		ID:        uuid.NewString(),
		Email:     a.cfg.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.cfg.TTL),
	}

	token, err := jwt.NewToken(session, Issuer, []byte(a.cfg.Secret))
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin logged in successfully")

	return token, session, nil
}

// Validate проверяет подпись, срок действия и отзыв токена
func (a *Auth) Validate(ctx context.Context, token string) (models.Session, error) {
	const op = "auth.Validate"

	if token == "" {
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	session, err := jwt.ParseToken(token, Issuer, []byte(a.cfg.Secret))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	if subtle.ConstantTimeCompare([]byte(session.Email), []byte(a.cfg.Email)) != 1 {
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	revoked, err := a.sessions.IsSessionRevoked(ctx, session.ID)
	if err != nil {
		a.log.Error("failed to check session revocation", slog.String("op", op), sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrSessionRevoked)
	}

	return session, nil
}

// Logout отзывает токен до истечения его срока
func (a *Auth) Logout(ctx context.Context, token string) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	session, err := jwt.ParseToken(token, Issuer, []byte(a.cfg.Secret))
	if err != nil {
		// nothing to revoke
		return nil
	}

	ttl := session.ExpiresAt.Sub(a.now())
	if err := a.sessions.RevokeSession(ctx, session.ID, ttl); err != nil {
		log.Error("failed to revoke session", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin logged out", slog.String("session", session.ID))

	return nil
}

func (a *Auth) checkCredentials(email, password string) bool {
	if a.cfg.Email == "" || (a.cfg.Password == "" && a.cfg.PasswordHash == "") {
		a.log.Warn("admin credentials are not configured")
		return false
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.cfg.Email)) == 1

	var passOK bool
	if a.cfg.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	}

	return emailOK && passOK
}
