package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/identity"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	sessions identity.Strategy
	activity *services.ActivityService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.DefaultConfig()

	sessions, err := identity.New(cfg, db, nil)
	if err != nil {
		t.Fatalf("identity.New() error = %v", err)
	}

	access := services.NewAccessService(db)
	activity := services.NewActivityService(db, &cfg.Activity)
	account := services.NewAccountService(db)
	auth := services.NewAuthService(db)
	queue := services.NewSyncQueue()
	autoLink := services.NewAutoLinkService(db, access, activity, nil, queue, &cfg.AI)

	authH := NewAuthHandler(auth, sessions)
	userH := NewUserHandler(account, auth, sessions)
	wsH := NewWorkspaceHandler(services.NewWorkspaceService(db, access, activity))
	memberH := NewMemberHandler(services.NewMemberService(db, access, activity))
	canvasH := NewCanvasHandler(services.NewCanvasService(db, access, activity), autoLink)
	activityH := NewActivityHandler(access, activity)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/health", NewHealthHandler(db).CheckHealth)
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", authH.Logout)

	p := api.Group("", middleware.AuthRequired(sessions))
	p.GET("/user/profile", userH.GetProfile)
	p.PATCH("/user/profile", userH.UpdateProfile)
	p.DELETE("/user/account", userH.DeleteAccount)
	p.POST("/workspaces", wsH.Create)
	p.GET("/workspaces/:id", wsH.Get)
	p.POST("/workspaces/:id/members", memberH.Add)
	p.POST("/workspaces/:id/nodes", canvasH.CreateNode)
	p.POST("/workspaces/:id/autolink", canvasH.AutoLink)
	p.GET("/workspaces/:id/activity", activityH.List)

	return &testServer{router: r, db: db, sessions: sessions, activity: activity}
}

func (s *testServer) token(t *testing.T, user *models.User) string {
	t.Helper()
	tok, err := s.sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

type profileResponse struct {
	User struct {
		ID        string  `json:"id"`
		Email     string  `json:"email"`
		Name      *string `json:"name"`
		AvatarURL *string `json:"avatarUrl"`
		Plan      string  `json:"plan"`
	} `json:"user"`
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{"GET", "/api/user/profile"},
		{"PATCH", "/api/user/profile"},
		{"DELETE", "/api/user/account"},
		{"GET", "/api/workspaces/any/activity"},
	}
	for _, r := range routes {
		w := s.do(r.method, r.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", r.method, r.path, w.Code)
		}
		var body map[string]string
		decode(t, w, &body)
		if body["error"] != "Unauthorized" {
			t.Errorf("%s %s: error = %q", r.method, r.path, body["error"])
		}
	}

	if w := s.do("GET", "/api/user/profile", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", w.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "a@example.com")
	tok := s.token(t, user)

	testCases := []struct {
		name     string
		body     interface{}
		wantName *string
	}{
		{"set", map[string]interface{}{"name": "  Ada  "}, testutil.StrPtr("Ada")},
		{"empty string", map[string]interface{}{"name": ""}, nil},
		{"null", map[string]interface{}{"name": nil}, nil},
		{"whitespace", map[string]interface{}{"name": "   "}, nil},
		{"absent", map[string]interface{}{}, nil},
		{"email and plan ignored", map[string]interface{}{"name": "Bea", "email": "evil@example.com", "plan": "ENTERPRISE"}, testutil.StrPtr("Bea")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do("PATCH", "/api/user/profile", tok, tc.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}

			var resp profileResponse
			decode(t, w, &resp)
			if (resp.User.Name == nil) != (tc.wantName == nil) ||
				(tc.wantName != nil && *resp.User.Name != *tc.wantName) {
				t.Errorf("name = %v, expected %v", resp.User.Name, tc.wantName)
			}
			if resp.User.Email != "a@example.com" || resp.User.Plan != "FREE" {
				t.Errorf("email/plan changed: %+v", resp.User)
			}

			// The stored row agrees with the response.
			var stored models.User
			s.db.First(&stored, "id = ?", user.ID)
			if (stored.Name == nil) != (tc.wantName == nil) {
				t.Errorf("stored name = %v", stored.Name)
			}
		})
	}

	if !bytes.Contains(s.do("GET", "/api/user/profile", tok, nil).Body.Bytes(), []byte(`"avatarUrl":null`)) {
		t.Error("profile should expose avatarUrl as null")
	}
}

func TestUpdateProfile_NullNameSerialized(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "a@example.com")

	w := s.do("PATCH", "/api/user/profile", s.token(t, user), map[string]interface{}{"name": ""})
	if !bytes.Contains(w.Body.Bytes(), []byte(`"name":null`)) {
		t.Errorf("expected name to serialize as null, got %s", w.Body.String())
	}
}

func TestDeleteAccount(t *testing.T) {
	s := newTestServer(t)
	a := testutil.CreateUser(t, s.db, "a@example.com")
	b := testutil.CreateUser(t, s.db, "b@example.com")
	w := testutil.CreateWorkspace(t, s.db, b, "B's")
	testutil.AddMember(t, s.db, w, a, rbac.RoleEditor)
	tok := s.token(t, a)

	resp := s.do("DELETE", "/api/user/account", tok, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]bool
	decode(t, resp, &body)
	if !body["success"] {
		t.Errorf("body = %s", resp.Body.String())
	}

	cleared := false
	for _, c := range resp.Result().Cookies() {
		if c.Name == "meshflow_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie should be cleared")
	}

	// The old token no longer resolves to a user.
	if got := s.do("GET", "/api/user/profile", tok, nil).Code; got != http.StatusUnauthorized {
		t.Errorf("profile after delete: expected 401, got %d", got)
	}

	// B keeps their workspace but loses the membership row.
	var members int64
	s.db.Model(&models.WorkspaceMember{}).Where("workspace_id = ?", w.ID).Count(&members)
	if members != 0 {
		t.Errorf("%d membership rows left", members)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/api/auth/register", "", map[string]string{"email": "New@Example.com", "password": "longenough"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var reg profileResponse
	decode(t, w, &reg)
	if reg.User.Email != "new@example.com" || reg.User.Plan != "FREE" {
		t.Errorf("unexpected user: %+v", reg.User)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Error("register should set a session cookie")
	}

	if w := s.do("POST", "/api/auth/register", "", map[string]string{"email": "new@example.com", "password": "longenough"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", w.Code)
	}
	if w := s.do("POST", "/api/auth/register", "", map[string]string{"email": "not-an-email", "password": "longenough"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad email: expected 400, got %d", w.Code)
	}
	if w := s.do("POST", "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong-password"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", w.Code)
	}

	w = s.do("POST", "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "longenough"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login should set a session cookie")
	}

	req := httptest.NewRequest("GET", "/api/user/profile", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie session: expected 200, got %d", rec.Code)
	}

	if w := s.do("POST", "/api/auth/logout", "", nil); w.Code != http.StatusOK {
		t.Errorf("logout: expected 200, got %d", w.Code)
	}
}

func TestActivityEndpoint(t *testing.T) {
	s := newTestServer(t)
	a := testutil.CreateUser(t, s.db, "a@example.com")
	b := testutil.CreateUser(t, s.db, "b@example.com")
	c := testutil.CreateUser(t, s.db, "c@example.com")
	w := testutil.CreateWorkspace(t, s.db, a, "W")
	testutil.AddMember(t, s.db, w, b, rbac.RoleViewer)

	for i := 0; i < 210; i++ {
		s.activity.Record(context.Background(), services.ActivityEntry{
			WorkspaceID: w.ID,
			UserID:      a.ID,
			Action:      models.ActionNodeCreated,
		})
	}

	testCases := []struct {
		name  string
		user  *models.User
		query string
		code  int
		count int
	}{
		{"default limit", a, "", http.StatusOK, 50},
		{"capped", a, "?limit=1000", http.StatusOK, 200},
		{"explicit", b, "?limit=5", http.StatusOK, 5},
		{"malformed", b, "?limit=abc", http.StatusOK, 50},
		{"no access", c, "", http.StatusForbidden, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do("GET", "/api/workspaces/"+w.ID+"/activity"+tc.query, s.token(t, tc.user), nil)
			if resp.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, resp.Code)
			}
			if tc.code != http.StatusOK {
				return
			}
			var body struct {
				Activities []services.ActivityItem `json:"activities"`
			}
			decode(t, resp, &body)
			if len(body.Activities) != tc.count {
				t.Errorf("got %d entries, expected %d", len(body.Activities), tc.count)
			}
			if body.Activities[0].User == nil || body.Activities[0].User.Email != "a@example.com" {
				t.Errorf("actor not enriched: %+v", body.Activities[0].User)
			}
		})
	}

	if resp := s.do("GET", "/api/workspaces/missing/activity", s.token(t, a), nil); resp.Code != http.StatusNotFound {
		t.Errorf("missing workspace: expected 404, got %d", resp.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	a := testutil.CreateUser(t, s.db, "a@example.com")
	v := testutil.CreateUser(t, s.db, "v@example.com")
	w := testutil.CreateWorkspace(t, s.db, a, "W")
	testutil.AddMember(t, s.db, w, v, rbac.RoleViewer)

	if resp := s.do("POST", "/api/workspaces/"+w.ID+"/nodes", s.token(t, v), map[string]string{"title": "x"}); resp.Code != http.StatusForbidden {
		t.Errorf("viewer write: expected 403, got %d", resp.Code)
	}
	if resp := s.do("POST", "/api/workspaces/"+w.ID+"/members", s.token(t, a), map[string]string{"email": "v@example.com", "role": "owner"}); resp.Code != http.StatusBadRequest {
		t.Errorf("grant owner: expected 400, got %d", resp.Code)
	}
	if resp := s.do("POST", "/api/workspaces/"+w.ID+"/members", s.token(t, a), map[string]string{"email": "v@example.com", "role": "editor"}); resp.Code != http.StatusConflict {
		t.Errorf("existing member: expected 409, got %d", resp.Code)
	}
	if resp := s.do("POST", "/api/workspaces/"+w.ID+"/autolink", s.token(t, a), nil); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("autolink without provider: expected 503, got %d", resp.Code)
	}

	resp := s.do("POST", "/api/workspaces", s.token(t, a), map[string]string{"name": "Second"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create workspace: expected 201, got %d", resp.Code)
	}
	var created struct {
		Workspace services.WorkspaceView `json:"workspace"`
	}
	decode(t, resp, &created)
	if created.Workspace.Role != rbac.RoleOwner {
		t.Errorf("creator role = %q", created.Workspace.Role)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do("GET", "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" || body["message"] == "" {
		t.Errorf("body = %v", body)
	}
}
