package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/testutil"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func testConfig(strategy string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Auth.Strategy = strategy
	cfg.Auth.JWTSecret = "identity-test-secret"
	return cfg
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, s
}

func strategies(t *testing.T, db *gorm.DB) map[string]Strategy {
	t.Helper()
	client, _ := setupRedis(t)

	out := make(map[string]Strategy)
	for _, name := range []string{"cookie", "redis"} {
		s, err := New(testConfig(name), db, client)
		if err != nil {
			t.Fatalf("New(%s) error = %v", name, err)
		}
		out[name] = s
	}
	return out
}

func requestWithCookie(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: name, Value: value})
	return req
}

func TestResolve_RoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice@example.com")
	ctx := context.Background()

	for name, s := range strategies(t, db) {
		t.Run(name, func(t *testing.T) {
			token, err := s.Issue(ctx, user.ID)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			id, err := s.Resolve(ctx, requestWithCookie("meshflow_session", token))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id == nil || id.ID != user.ID || id.Email != user.Email {
				t.Fatalf("Resolve() = %+v, expected user %s", id, user.ID)
			}
			if id.Plan != models.PlanFree {
				t.Errorf("Plan = %q, expected FREE", id.Plan)
			}
		})
	}
}

func TestResolve_BearerHeader(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "bearer@example.com")
	ctx := context.Background()

	for name, s := range strategies(t, db) {
		t.Run(name, func(t *testing.T) {
			token, _ := s.Issue(ctx, user.ID)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			id, err := s.Resolve(ctx, req)
			if err != nil || id == nil || id.ID != user.ID {
				t.Fatalf("Resolve() = %+v, %v", id, err)
			}
		})
	}
}

func TestResolve_NoSession(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	for name, s := range strategies(t, db) {
		t.Run(name, func(t *testing.T) {
			cases := map[string]*http.Request{
				"no cookie": httptest.NewRequest(http.MethodGet, "/", nil),
				"garbage":   requestWithCookie("meshflow_session", "not-a-session"),
			}
			for label, req := range cases {
				id, err := s.Resolve(ctx, req)
				if err != nil || id != nil {
					t.Errorf("%s: Resolve() = %+v, %v; expected nil, nil", label, id, err)
				}
			}
		})
	}
}

func TestResolve_DeletedUser(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"cookie", "redis"} {
		t.Run(name, func(t *testing.T) {
			db := testutil.NewDB(t)
			user := testutil.CreateUser(t, db, "gone@example.com")
			s := strategies(t, db)[name]

			token, _ := s.Issue(ctx, user.ID)
			if err := db.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
				t.Fatalf("delete user: %v", err)
			}

			id, err := s.Resolve(ctx, requestWithCookie("meshflow_session", token))
			if err != nil || id != nil {
				t.Fatalf("Resolve() = %+v, %v; expected nil, nil", id, err)
			}
		})
	}
}

func TestCookieStrategy_WrongSecret(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "forged@example.com")
	ctx := context.Background()

	other := testConfig("cookie")
	other.Auth.JWTSecret = "someone-else"
	forger, _ := New(other, db, nil)
	token, _ := forger.Issue(ctx, user.ID)

	s, _ := New(testConfig("cookie"), db, nil)
	id, err := s.Resolve(ctx, requestWithCookie("meshflow_session", token))
	if err != nil || id != nil {
		t.Fatalf("forged token resolved to %+v, %v", id, err)
	}
}

func TestRedisStrategy_RevokeAndExpire(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "redis@example.com")
	client, mr := setupRedis(t)
	ctx := context.Background()

	s, err := New(testConfig("redis"), db, client)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	token, _ := s.Issue(ctx, user.ID)
	req := requestWithCookie("meshflow_session", token)

	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one session key, got %v", mr.Keys())
	}
	if mr.Exists(sessionPrefix + token) {
		t.Error("raw token must not be used as the key")
	}

	if err := s.Revoke(ctx, req); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if id, _ := s.Resolve(ctx, req); id != nil {
		t.Error("revoked session should not resolve")
	}

	token, _ = s.Issue(ctx, user.ID)
	mr.FastForward(8 * 24 * time.Hour)
	if id, _ := s.Resolve(ctx, requestWithCookie("meshflow_session", token)); id != nil {
		t.Error("expired session should not resolve")
	}
}

func TestRedisStrategy_BackendFailure(t *testing.T) {
	db := testutil.NewDB(t)
	client, mr := setupRedis(t)
	ctx := context.Background()

	s, _ := New(testConfig("redis"), db, client)
	mr.SetError("ERR backend unavailable")

	_, err := s.Resolve(ctx, requestWithCookie("meshflow_session", "some-token"))
	if err == nil {
		t.Fatal("expected an error when redis is unreachable")
	}
}

func TestNew_Errors(t *testing.T) {
	db := testutil.NewDB(t)

	if _, err := New(testConfig("redis"), db, nil); err == nil {
		t.Error("redis strategy without a client should fail")
	}
	if _, err := New(testConfig("saml"), db, nil); err == nil {
		t.Error("unknown strategy should fail")
	}
}

func TestCookies(t *testing.T) {
	db := testutil.NewDB(t)
	s, _ := New(testConfig("cookie"), db, nil)

	w := httptest.NewRecorder()
	s.WriteCookie(w, "tok")
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "tok" || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookie: %+v", cookies)
	}

	w = httptest.NewRecorder()
	s.ClearCookie(w)
	cookies = w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookie should be cleared: %+v", cookies)
	}
}
