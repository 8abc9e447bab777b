package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DavidDevlo/FINTide/src/config"
	"github.com/DavidDevlo/FINTide/src/logger"
)

const csrfCookieName = "_fintide_csrf"

// GetCSRFToken issues a fresh token as both a cookie and a response header.
// The cookie carries the token plus an HMAC signature under the auth key;
// clients echo the bare token back in X-CSRF-Token on mutating requests.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := generateRandomToken()

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token + "." + signCSRFToken(config.Cfg.CSRFAuthKey, token),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		MaxAge:   3600,  // 1 hour
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)
	json.NewEncoder(w).Encode(map[string]string{
		"csrfToken": token,
	})
}

// Generate a random token for CSRF protection
func generateRandomToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		// If we can't generate random bytes, use a timestamp-based fallback
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.StdEncoding.EncodeToString(b)
}

func signCSRFToken(key []byte, token string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// validCSRFCookie checks that the cookie's token matches the header token
// and that its signature verifies under key, so a cookie planted without
// the key is rejected.
func validCSRFCookie(key []byte, cookieValue, headerToken string) bool {
	token, sig, ok := strings.Cut(cookieValue, ".")
	if !ok || token != headerToken {
		return false
	}
	expected := signCSRFToken(key, token)
	return hmac.Equal([]byte(sig), []byte(expected))
}

// CSRFMiddleware compares the token from the X-CSRF-Token header with the
// signed token from the cookie (double-submit). OPTIONS preflights and safe
// GETs pass through.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)

			if headerToken != "" && err == nil && validCSRFCookie(authKey, cookie.Value, headerToken) {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF validation failed",
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"hasHeaderToken", headerToken != "",
				"hasCookie", err == nil)
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}
