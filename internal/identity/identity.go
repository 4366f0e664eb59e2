// Package identity resolves the authenticated user of a request.
//
// Two session strategies exist: a signed JWT cookie and an opaque token
// backed by Redis. Both reload the canonical user row from the database so
// callers never see stale profile data and never care which one is active.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Identity is the authenticated principal of a request.
type Identity struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      *string     `json:"name"`
	AvatarURL *string     `json:"avatarUrl"`
	Plan      models.Plan `json:"plan"`
}

// Resolver returns nil, nil when the request carries no valid session. An
// error means the session backend itself could not be consulted.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*Identity, error)
}

// Strategy is a Resolver that can also mint and revoke sessions.
type Strategy interface {
	Resolver
	Name() string
	Issue(ctx context.Context, userID string) (string, error)
	Revoke(ctx context.Context, r *http.Request) error
	WriteCookie(w http.ResponseWriter, token string)
	ClearCookie(w http.ResponseWriter)
}

// New builds the strategy selected by cfg.Auth.Strategy. rdb is only
// required for the redis strategy.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (Strategy, error) {
	b := newBase(db, &cfg.Auth)

	switch cfg.Auth.Strategy {
	case "cookie", "":
		return newCookieStrategy(b, cfg.Auth.JWTSecret), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis session strategy requires redis to be enabled")
		}
		return newRedisStrategy(b, rdb), nil
	default:
		return nil, fmt.Errorf("unknown auth strategy: %s", cfg.Auth.Strategy)
	}
}

// base holds what both strategies share: cookie transport and user lookup.
type base struct {
	db         *gorm.DB
	cookieName string
	secure     bool
	ttl        time.Duration
}

func newBase(db *gorm.DB, cfg *config.AuthConfig) base {
	return base{
		db:         db,
		cookieName: cfg.CookieName,
		secure:     cfg.CookieSecure,
		ttl:        time.Duration(cfg.SessionHours) * time.Hour,
	}
}

// tokenFromRequest prefers the session cookie and falls back to a bearer header.
func (b base) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(b.cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (b base) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(b.ttl.Seconds()),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (b base) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     b.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// loadUser maps a session subject to the current user row. A subject whose
// user was deleted is treated as no session.
func (b base) loadUser(ctx context.Context, userID string) (*Identity, error) {
	var user models.User
	err := b.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}

	return &Identity{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Plan:      user.Plan,
	}, nil
}
