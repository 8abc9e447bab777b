package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DavidDevlo/FINTide/src/config"
	"github.com/DavidDevlo/FINTide/src/logger"
)

func setupCSRFTest(t *testing.T) {
	t.Helper()
	if logger.L == nil {
		logger.InitLogger("error")
	}
	prev := config.Cfg
	config.Cfg = &config.AppConfig{CSRFAuthKey: []byte("0123456789abcdef0123456789abcdef")}
	t.Cleanup(func() { config.Cfg = prev })
}

func issueCSRFToken(t *testing.T) (token string, cookie *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	GetCSRFToken(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))

	token = rec.Header().Get("X-CSRF-Token")
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	if token == "" || cookie == nil {
		t.Fatal("token issuance did not set both header and cookie")
	}
	return token, cookie
}

func TestCSRFMiddlewareAcceptsSignedPair(t *testing.T) {
	setupCSRFTest(t)
	token, cookie := issueCSRFToken(t)

	mw := CSRFMiddleware(config.Cfg.CSRFAuthKey)
	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/movements", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("mutating request with valid token pair was blocked: status %d", rec.Code)
	}
}

func TestCSRFMiddlewareRejectsForgedCookie(t *testing.T) {
	setupCSRFTest(t)
	token, _ := issueCSRFToken(t)

	mw := CSRFMiddleware(config.Cfg.CSRFAuthKey)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request with forged cookie reached the handler")
	}))

	// A cookie fabricated without the auth key: matching token, bogus signature.
	req := httptest.NewRequest(http.MethodPost, "/api/movements", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token + ".forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCSRFMiddlewareRejectsMismatchedToken(t *testing.T) {
	setupCSRFTest(t)
	_, cookie := issueCSRFToken(t)
	otherToken, _ := issueCSRFToken(t)

	mw := CSRFMiddleware(config.Cfg.CSRFAuthKey)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request with mismatched token reached the handler")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/movements", nil)
	req.Header.Set("X-CSRF-Token", otherToken)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCSRFMiddlewarePassesSafeMethods(t *testing.T) {
	setupCSRFTest(t)

	mw := CSRFMiddleware(config.Cfg.CSRFAuthKey)
	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/movements", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Error("GET without a token was blocked")
	}
}

func TestSignedCookieRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	token := "abc123"
	value := token + "." + signCSRFToken(key, token)

	if !validCSRFCookie(key, value, token) {
		t.Error("freshly signed cookie did not validate")
	}
	if validCSRFCookie([]byte(strings.Repeat("x", 32)), value, token) {
		t.Error("cookie validated under a different key")
	}
}
