package resource

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cedadev/authgate/internal/session"
)

func newResolver() *Resolver {
	return &Resolver{
		QueryKey:  "next",
		HeaderKey: "X-Origin-Uri",
		ServerURI: "https://data.example.org/",
	}
}

func TestResolveQueryParamWinsOverHeader(t *testing.T) {
	rs := newResolver()
	r := httptest.NewRequest(http.MethodGet, "/verify?next=/a", nil)
	r.Header.Set("X-Origin-Uri", "/b")

	res, ok := rs.Resolve(r, session.NewFake())
	if !ok {
		t.Fatalf("Resolve ok = false, want true")
	}
	if res.URI != "/a" {
		t.Fatalf("URI = %q, want %q", res.URI, "/a")
	}
}

func TestResolveHeaderJoinsServerURI(t *testing.T) {
	rs := newResolver()
	r := httptest.NewRequest(http.MethodGet, "/verify", nil)
	r.Header.Set("X-Origin-Uri", "/datasets/obs/file.nc")

	res, ok := rs.Resolve(r, session.NewFake())
	if !ok {
		t.Fatalf("Resolve ok = false, want true")
	}
	want := "https://data.example.org/datasets/obs/file.nc"
	if res.URI != want {
		t.Fatalf("URI = %q, want %q", res.URI, want)
	}
}

func TestResolveFallsBackToSessionStash(t *testing.T) {
	rs := newResolver()
	sess := session.NewFake()
	rs.Stash(sess, "https://data.example.org/stashed")

	r := httptest.NewRequest(http.MethodGet, "/login/callback", nil)
	res, ok := rs.Resolve(r, sess)
	if !ok {
		t.Fatalf("Resolve ok = false, want true")
	}
	if res.URI != "https://data.example.org/stashed" {
		t.Fatalf("URI = %q, want stashed value", res.URI)
	}
}

func TestResolveNothingRequested(t *testing.T) {
	rs := newResolver()
	r := httptest.NewRequest(http.MethodGet, "/verify", nil)
	if _, ok := rs.Resolve(r, session.NewFake()); ok {
		t.Fatalf("Resolve ok = true, want false for empty request")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	rs := newResolver()
	sess := session.NewFake()
	r := httptest.NewRequest(http.MethodGet, "/verify?next=/a", nil)
	r.Header.Set("X-Origin-Uri", "/b")

	first, ok1 := rs.Resolve(r, sess)
	second, ok2 := rs.Resolve(r, sess)
	if ok1 != ok2 || first != second {
		t.Fatalf("Resolve not idempotent: (%v,%v) then (%v,%v)", first, ok1, second, ok2)
	}
}

func TestStashOverwrites(t *testing.T) {
	rs := newResolver()
	sess := session.NewFake()
	rs.Stash(sess, "/first")
	rs.Stash(sess, "/second")
	if got := sess.PendingResource(); got != "/second" {
		t.Fatalf("PendingResource = %q, want %q", got, "/second")
	}
}

func TestActionFor(t *testing.T) {
	cases := map[string]Action{
		http.MethodGet:     ActionRead,
		http.MethodHead:    ActionRead,
		http.MethodOptions: ActionRead,
		http.MethodPost:    ActionWrite,
		http.MethodPut:     ActionWrite,
		http.MethodPatch:   ActionWrite,
		http.MethodDelete:  ActionWrite,
	}
	for method, want := range cases {
		if got := ActionFor(method); got != want {
			t.Fatalf("ActionFor(%s) = %q, want %q", method, got, want)
		}
	}
}
