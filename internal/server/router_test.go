package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cedadev/authgate/internal/authn"
	"github.com/cedadev/authgate/internal/authz"
	"github.com/cedadev/authgate/internal/config"
	"github.com/cedadev/authgate/internal/resource"
	"github.com/cedadev/authgate/internal/session"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// newTestDeps wires a full router around a mock authorizer and a live
// introspection fixture, mirroring the production wiring.
func newTestDeps(t *testing.T, mock *authz.Mock) (Deps, *httptest.Server) {
	t.Helper()

	introspect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse introspection form: %v", err)
		}
		active := r.PostForm.Get("token") == "good-token"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":             active,
			"preferred_username": "alice",
			"groups":             []string{"climate"},
		})
	}))
	t.Cleanup(introspect.Close)

	cfg := &config.Config{
		RemoteUserHeader: "X-Remote-User",
	}
	bearer := &authn.Bearer{
		IntrospectURL: introspect.URL,
		ClientID:      "gateway",
		ClientSecret:  "s3cret",
	}
	return Deps{
		Config:       cfg,
		SessionStore: session.NewStore("authgate_session", testSecret, 3600, false),
		Pipeline:     authn.NewPipeline(bearer),
		Authorizer:   mock,
		Resolver:     &resource.Resolver{QueryKey: "next", HeaderKey: "X-Origin-Uri"},
	}, introspect
}

func TestRouterBearerPermit(t *testing.T) {
	mock := &authz.Mock{Allow: true}
	deps, _ := newTestDeps(t, mock)
	router := BuildRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/verify?next=https://data.example.org/x", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Remote-User"); got != "alice" {
		t.Fatalf("X-Remote-User = %q, want alice", got)
	}
	if mock.Calls != 1 {
		t.Fatalf("authorizer calls = %d, want 1", mock.Calls)
	}
	// The resolved identity must come back as an encrypted session cookie.
	res := rec.Result()
	var sessionCookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "authgate_session" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("no session cookie issued")
	}
	if sessionCookie.Value == "" || sessionCookie.Value == "alice" {
		t.Fatalf("session cookie looks unencrypted: %q", sessionCookie.Value)
	}

	// Replaying the cookie alone must authenticate without the token.
	r2 := httptest.NewRequest(http.MethodGet, "/verify?next=https://data.example.org/x", nil)
	r2.AddCookie(sessionCookie)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, r2)

	if rec2.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", rec2.Code)
	}
	if got := rec2.Header().Get("X-Remote-User"); got != "alice" {
		t.Fatalf("replay X-Remote-User = %q, want alice", got)
	}
}

func TestRouterAnonymousDenyIs401(t *testing.T) {
	deps, _ := newTestDeps(t, &authz.Mock{Allow: false})
	router := BuildRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/verify?next=https://data.example.org/x", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRouterAuthenticatedDenyIs403(t *testing.T) {
	deps, _ := newTestDeps(t, &authz.Mock{Allow: false})
	router := BuildRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/verify?next=https://data.example.org/x", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRouterInactiveTokenIsAnonymous(t *testing.T) {
	deps, _ := newTestDeps(t, &authz.Mock{Allow: false})
	router := BuildRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/verify?next=https://data.example.org/x", nil)
	r.Header.Set("Authorization", "Bearer revoked-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for a revoked credential", rec.Code)
	}
}

func TestRouterDecisionFaultIs502(t *testing.T) {
	deps, _ := newTestDeps(t, &authz.Mock{Err: authz.ErrDecisionService})
	router := BuildRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/verify?next=https://data.example.org/x", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestRouterExemptRoutes(t *testing.T) {
	mock := &authz.Mock{Allow: false}
	deps, _ := newTestDeps(t, mock)
	router := BuildRouter(deps)

	for _, path := range []string{"/", "/healthz", "/version", "/logout"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?next=/x", nil))
		if rec.Code != http.StatusOK && rec.Code != http.StatusFound {
			t.Fatalf("GET %s = %d, want pass through the gate", path, rec.Code)
		}
	}
	if mock.Calls != 0 {
		t.Fatalf("authorizer consulted %d times on exempt routes, want 0", mock.Calls)
	}
}

func TestRouterHeaderResolvedResource(t *testing.T) {
	mock := &authz.Mock{Allow: true}
	deps, _ := newTestDeps(t, mock)
	deps.Resolver.ServerURI = "https://data.example.org"
	router := BuildRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/verify", nil)
	r.Header.Set("X-Origin-Uri", "/datasets/obs")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if mock.Calls != 1 {
		t.Fatalf("authorizer calls = %d, want 1", mock.Calls)
	}
	if got := mock.LastResource.URI; got != "https://data.example.org/datasets/obs" {
		t.Fatalf("resource URI = %q, want joined origin uri", got)
	}
}

func TestRouterNoLoginRoutesWithoutOIDC(t *testing.T) {
	deps, _ := newTestDeps(t, &authz.Mock{Allow: true})
	router := BuildRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /login = %d without oidc configured, want 404", rec.Code)
	}
}
