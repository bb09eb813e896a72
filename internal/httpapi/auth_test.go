package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tgadmin/internal/session"
)

func TestLoginSuccessSetsCookie(t *testing.T) {
	t.Parallel()
	a := newTestApp(&fakeStore{}, &fakeDispatcher{})
	h := NewRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"secret"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("response = %+v", resp)
	}

	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			found = c
		}
	}
	if found == nil {
		t.Fatal("no auth cookie set")
	}
	if !found.HttpOnly || found.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie flags: httponly=%v samesite=%v", found.HttpOnly, found.SameSite)
	}
	if !a.Sessions.Validate(found.Value) {
		t.Fatal("cookie token not a live session")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	a := newTestApp(&fakeStore{}, &fakeDispatcher{})
	h := NewRouter(a)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "wrong password", body: `{"username":"admin","password":"nope"}`, want: http.StatusUnauthorized},
		{name: "wrong username", body: `{"username":"root","password":"secret"}`, want: http.StatusUnauthorized},
		{name: "malformed body", body: `{"username":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Fatal("cookie set on failed login")
			}
		})
	}
}

func TestSessionGate(t *testing.T) {
	t.Parallel()
	a := newTestApp(&fakeStore{}, &fakeDispatcher{})
	h := NewRouter(a)

	// No cookie.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie: status = %d, want 401", rec.Code)
	}

	// Garbage cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "bogus"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad cookie: status = %d, want 401", rec.Code)
	}

	// Valid session.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(a, http.MethodGet, "/api/stats", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid cookie: status = %d, want 200", rec.Code)
	}

	// Health stays open.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status = %d, want 200", rec.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	t.Parallel()
	a := newTestApp(&fakeStore{}, &fakeDispatcher{})
	h := NewRouter(a)

	req := authedRequest(a, http.MethodPost, "/api/logout", "")
	token := req.Cookies()[0].Value
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if a.Sessions.Validate(token) {
		t.Fatal("session still valid after logout")
	}
}
