package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cedadev/authgate/internal/session"
)

var cookieSecret = []byte("0123456789abcdef0123456789abcdef")

func encodeCookie(t *testing.T, c *Cookie, name string, value any) *http.Cookie {
	t.Helper()
	encoded, err := c.codec.Encode(name, value)
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	return &http.Cookie{Name: name, Value: encoded}
}

func TestCookieMissing(t *testing.T) {
	c := NewCookie("account", "openid", cookieSecret)
	id, err := c.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), session.NewFake())
	if id != nil || err != nil {
		t.Fatalf("Authenticate = (%v, %v), want (nil, nil)", id, err)
	}
}

func TestCookieAccountOnly(t *testing.T) {
	c := NewCookie("account", "openid", cookieSecret)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(encodeCookie(t, c, "account", accountTicket{Username: "alice"}))

	id, err := c.Authenticate(r, session.NewFake())
	if err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	if id == nil || id.Username != "alice" {
		t.Fatalf("identity = %+v, want alice", id)
	}
	if id.Subject() != "alice" {
		t.Fatalf("Subject = %q, want username fallback", id.Subject())
	}
}

func TestCookieOpenIDCookieSuppliesSubject(t *testing.T) {
	c := NewCookie("account", "openid", cookieSecret)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(encodeCookie(t, c, "account", accountTicket{Username: "alice"}))
	r.AddCookie(encodeCookie(t, c, "openid", "https://idp.example.org/alice"))

	id, err := c.Authenticate(r, session.NewFake())
	if err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	if id.Subject() != "https://idp.example.org/alice" {
		t.Fatalf("Subject = %q, want openid cookie value", id.Subject())
	}
}

func TestCookieTampered(t *testing.T) {
	c := NewCookie("account", "openid", cookieSecret)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "account", Value: "Zm9yZ2VkLXRpY2tldA"})

	id, err := c.Authenticate(r, session.NewFake())
	if id != nil {
		t.Fatalf("identity = %+v from forged cookie, want nil", id)
	}
	if err == nil {
		t.Fatalf("Authenticate error = nil for forged cookie, want error")
	}
}

func TestCookieWrongSecret(t *testing.T) {
	writer := NewCookie("account", "", cookieSecret)
	reader := NewCookie("account", "", []byte("another-secret-another-secret-00"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(encodeCookie(t, writer, "account", accountTicket{Username: "alice"}))

	id, err := reader.Authenticate(r, session.NewFake())
	if id != nil || err == nil {
		t.Fatalf("Authenticate = (%v, %v) across secrets, want (nil, error)", id, err)
	}
}

func TestCookieEmptyUsername(t *testing.T) {
	c := NewCookie("account", "", cookieSecret)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(encodeCookie(t, c, "account", accountTicket{}))

	id, err := c.Authenticate(r, session.NewFake())
	if id != nil || err == nil {
		t.Fatalf("Authenticate = (%v, %v) for empty ticket, want (nil, error)", id, err)
	}
}
