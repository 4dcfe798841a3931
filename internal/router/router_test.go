package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notely/internal/database"
	"notely/internal/services"
	"notely/internal/store"
	"notely/pkg/config"
	"notely/pkg/jwt"
	"notely/pkg/metrics"
	"notely/pkg/password"
	"notely/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	jwt     *jwt.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	st := store.NewMemoryStore()
	hasher := password.NewHasher(bcrypt.MinCost)
	if err := database.SeedDemoData(context.Background(), st, hasher); err != nil {
		t.Fatalf("SeedDemoData() error: %v", err)
	}

	publisher := queue.NewMemoryPublisher(100)
	m := metrics.New("notely-test")
	jwtManager := jwt.NewJWTManager("router-test-secret", time.Hour)

	handler := SetupRouter(Dependencies{
		Config:        cfg,
		Store:         st,
		Metrics:       m,
		AuthService:   services.NewAuthService(st, hasher, jwtManager, m),
		NoteService:   services.NewNoteService(st, services.QuotaOptions{FreeNoteLimit: 3}, publisher, m),
		TenantService: services.NewTenantService(st, publisher, m),
		UserService:   services.NewUserService(st, hasher, database.DemoPassword, publisher, m),
	})
	return &testServer{t: t, handler: handler, jwt: jwtManager}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "password"})
	if status != http.StatusOK {
		s.t.Fatalf("login %s: status %d (%s)", email, status, env.Message)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil || result.Token == "" {
		s.t.Fatalf("login %s: no token in %s", email, env.Data)
	}
	return result.Token
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestRouter_Login(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "admin@acme.test", "password": "password"})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var result struct {
		Token string `json:"token"`
		User  struct {
			ID         uint   `json:"id"`
			Email      string `json:"email"`
			Role       string `json:"role"`
			TenantID   uint   `json:"tenantId"`
			TenantSlug string `json:"tenantSlug"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.User.Role != "ADMIN" || result.User.TenantSlug != "acme" || result.User.TenantID == 0 {
		t.Errorf("unexpected user %+v", result.User)
	}

	for _, creds := range []map[string]string{
		{"email": "admin@acme.test", "password": "wrong"},
		{"email": "ghost@acme.test", "password": "password"},
	} {
		status, env := srv.do(http.MethodPost, "/auth/login", "", creds)
		if status != http.StatusUnauthorized || env.Message != "Invalid credentials" {
			t.Errorf("%v: expected 401 Invalid credentials, got %d %q", creds, status, env.Message)
		}
	}
}

func TestRouter_AuthenticationErrors(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodGet, "/notes", "", nil)
	if status != http.StatusUnauthorized || env.Reason != "unauthenticated" {
		t.Errorf("missing token: got %d %s", status, env.Reason)
	}

	status, env = srv.do(http.MethodGet, "/notes", "garbage", nil)
	if status != http.StatusUnauthorized || env.Reason != "invalid_token" {
		t.Errorf("garbage token: got %d %s", status, env.Reason)
	}

	expired := jwt.NewJWTManager("router-test-secret", -time.Minute)
	token, _, err := expired.GenerateToken(jwt.Identity{UserID: 1, Email: "admin@acme.test", Role: "ADMIN", TenantID: 1, TenantSlug: "acme"})
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	status, env = srv.do(http.MethodGet, "/notes", token, nil)
	if status != http.StatusUnauthorized || env.Reason != "invalid_token" {
		t.Errorf("expired token: got %d %s", status, env.Reason)
	}

	status, _ = srv.do(http.MethodGet, "/auth/me", srv.login("user@acme.test"), nil)
	if status != http.StatusOK {
		t.Errorf("me: got %d", status)
	}
}

func TestRouter_FreePlanScenario(t *testing.T) {
	srv := newTestServer(t)
	member := srv.login("user@acme.test")
	admin := srv.login("admin@acme.test")

	for i := 1; i <= 3; i++ {
		status, env := srv.do(http.MethodPost, "/notes", member, map[string]string{"title": fmt.Sprintf("n%d", i), "content": "body"})
		if status != http.StatusCreated {
			t.Fatalf("create n%d: got %d %s", i, status, env.Message)
		}
	}

	status, env := srv.do(http.MethodPost, "/notes", member, map[string]string{"title": "n4", "content": "body"})
	if status != http.StatusForbidden || env.Message != "Free plan limit reached. Upgrade to Pro." {
		t.Fatalf("expected quota rejection, got %d %q", status, env.Message)
	}

	status, _ = srv.do(http.MethodPost, "/tenants/acme/upgrade", member, nil)
	if status != http.StatusForbidden {
		t.Errorf("member upgrade: expected 403, got %d", status)
	}
	status, _ = srv.do(http.MethodPost, "/tenants/acme/upgrade", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("admin upgrade: got %d", status)
	}

	status, env = srv.do(http.MethodPost, "/notes", member, map[string]string{"title": "n4", "content": "body"})
	if status != http.StatusCreated {
		t.Fatalf("create after upgrade: got %d %s", status, env.Message)
	}

	status, env = srv.do(http.MethodGet, "/notes", member, nil)
	var notes []struct {
		Title string `json:"title"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &notes); err != nil || status != http.StatusOK {
		t.Fatalf("list: %d %v", status, err)
	}
	if len(notes) != 4 || notes[0].Title != "n4" || notes[0].User.Email != "user@acme.test" {
		t.Errorf("unexpected notes %+v", notes)
	}

	status, env = srv.do(http.MethodGet, "/notes?page=1&page_size=2", member, nil)
	if status != http.StatusOK {
		t.Fatalf("paged list: got %d", status)
	}
	if err := json.Unmarshal(env.Data, &notes); err != nil || len(notes) != 2 {
		t.Errorf("expected a page of 2 notes, got %d (%v)", len(notes), err)
	}
}

func TestRouter_CrossTenantIsolation(t *testing.T) {
	srv := newTestServer(t)
	acmeUser := srv.login("user@acme.test")
	globexAdmin := srv.login("admin@globex.test")

	status, env := srv.do(http.MethodPost, "/notes", acmeUser, map[string]string{"title": "secret", "content": "acme only"})
	if status != http.StatusCreated {
		t.Fatalf("create: got %d", status)
	}
	var note struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := fmt.Sprintf("/notes/%d", note.ID)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		status, _ := srv.do(method, path, globexAdmin, nil)
		if status != http.StatusNotFound {
			t.Errorf("%s foreign note: expected 404, got %d", method, status)
		}
	}
	status, _ = srv.do(http.MethodPut, path, globexAdmin, map[string]string{"title": "x", "content": "y"})
	if status != http.StatusNotFound {
		t.Errorf("PUT foreign note: expected 404, got %d", status)
	}

	status, _ = srv.do(http.MethodGet, "/notes/abc", globexAdmin, nil)
	if status != http.StatusBadRequest {
		t.Errorf("non-numeric id: expected 400, got %d", status)
	}

	for _, path := range []string{"/tenants/acme", "/tenants/acme/users"} {
		status, _ := srv.do(http.MethodGet, path, globexAdmin, nil)
		if status != http.StatusForbidden {
			t.Errorf("GET %s from globex: expected 403, got %d", path, status)
		}
	}
	status, _ = srv.do(http.MethodPost, "/tenants/acme/toggle-plan", globexAdmin, nil)
	if status != http.StatusForbidden {
		t.Errorf("toggle foreign plan: expected 403, got %d", status)
	}
}

func TestRouter_UserManagement(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.login("admin@acme.test")

	status, env := srv.do(http.MethodPost, "/tenants/acme/invite", admin, map[string]string{"email": "new@acme.test"})
	if status != http.StatusCreated {
		t.Fatalf("invite: got %d %s", status, env.Message)
	}
	var invited struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &invited); err != nil || invited.Role != "MEMBER" {
		t.Fatalf("unexpected invited user %s (%v)", env.Data, err)
	}
	srv.login("new@acme.test")

	status, _ = srv.do(http.MethodPost, "/tenants/acme/invite", admin, map[string]string{"email": "user@globex.test"})
	if status != http.StatusBadRequest {
		t.Errorf("duplicate invite: expected 400, got %d", status)
	}

	userPath := fmt.Sprintf("/tenants/acme/users/%d", invited.ID)
	status, env = srv.do(http.MethodPut, userPath, admin, map[string]string{"email": "admin@acme.test", "role": "MEMBER"})
	if status != http.StatusBadRequest || env.Message != "Email already exists in this tenant" {
		t.Errorf("email conflict: got %d %q", status, env.Message)
	}

	status, env = srv.do(http.MethodGet, "/auth/me", admin, nil)
	var me struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil || status != http.StatusOK {
		t.Fatalf("me: %d %v", status, err)
	}
	status, env = srv.do(http.MethodPut, fmt.Sprintf("/tenants/acme/users/%d", me.ID), admin, map[string]string{"email": "admin@acme.test", "role": "MEMBER"})
	if status != http.StatusBadRequest || env.Message != "Cannot demote the last admin" {
		t.Errorf("last admin: got %d %q", status, env.Message)
	}

	status, env = srv.do(http.MethodDelete, fmt.Sprintf("/tenants/acme/users/%d", me.ID), admin, nil)
	if status != http.StatusBadRequest || env.Message != "Cannot delete admin" {
		t.Errorf("delete admin: got %d %q", status, env.Message)
	}

	status, _ = srv.do(http.MethodDelete, userPath, admin, nil)
	if status != http.StatusOK {
		t.Fatalf("delete member: got %d", status)
	}
	status, _ = srv.do(http.MethodDelete, userPath, admin, nil)
	if status != http.StatusNotFound {
		t.Errorf("delete twice: expected 404, got %d", status)
	}

	status, env = srv.do(http.MethodGet, "/tenants/all-users", admin, nil)
	var all []struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &all); err != nil || status != http.StatusOK || len(all) != 4 {
		t.Errorf("all-users: got %d, %d users (%v)", status, len(all), err)
	}

	status, _ = srv.do(http.MethodGet, "/tenants/all-users", srv.login("user@acme.test"), nil)
	if status != http.StatusForbidden {
		t.Errorf("member all-users: expected 403, got %d", status)
	}
}

func TestRouter_Metrics(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodGet, "/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("http_requests_total")) {
		t.Errorf("expected prometheus output, got %d", rec.Code)
	}
}

func TestRouter_EventStream(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.login("admin@acme.test")
	member := srv.login("user@acme.test")
	globexAdmin := srv.login("admin@globex.test")

	httpServer := httptest.NewServer(srv.handler)
	defer httpServer.Close()
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/tenants/acme/events/stream"

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"member", member, http.StatusForbidden},
		{"other tenant admin", globexAdmin, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tt.token, nil)
			if err == nil {
				conn.Close()
				t.Fatalf("expected handshake to fail")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %v", tt.status, resp)
			}
		})
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+admin, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	// 其他租户的事件不会推送过来
	globexStatus, _ := srv.do(http.MethodPost, "/notes", globexAdmin, map[string]string{"title": "globex", "content": "body"})
	if globexStatus != http.StatusCreated {
		t.Fatalf("globex create: got %d", globexStatus)
	}
	status, _ := srv.do(http.MethodPost, "/notes", member, map[string]string{"title": "live", "content": "body"})
	if status != http.StatusCreated {
		t.Fatalf("create note: got %d", status)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event queue.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if event.Type != queue.EventNoteCreated || event.TenantSlug != "acme" || event.Payload["title"] != "live" {
		t.Errorf("expected the acme note event, got %+v", event)
	}
}
