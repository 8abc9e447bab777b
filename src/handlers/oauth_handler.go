package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/DavidDevlo/FINTide/src/config"
	"github.com/DavidDevlo/FINTide/src/logger"
)

var (
	googleOauthConfig *oauth2.Config
	oauthStateString  string
)

func InitializeGoogleOAuthConfig() {
	googleOauthConfig = &oauth2.Config{
		RedirectURL:  config.Cfg.GoogleRedirectURL,
		ClientID:     config.Cfg.GoogleClientID,
		ClientSecret: config.Cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		logger.L.Error("Failed to generate OAuth state", "error", err)
	}
	oauthStateString = base64.URLEncoding.EncodeToString(b)
}

func (h *UserHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url := googleOauthConfig.AuthCodeURL(oauthStateString)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// HandleGoogleCallback finishes the Google sign-in: it exchanges the code,
// fetches the profile, and registers (or replaces) the local account. The
// Google identity only seeds the profile; the app still asks for a PIN
// before anything unlocks, so no token pair is issued here.
func (h *UserHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("state") != oauthStateString {
		logger.L.Warn("Invalid OAuth state from Google callback")
		http.Redirect(w, r, signinErrorURL("invalid_state"), http.StatusTemporaryRedirect)
		return
	}

	code := r.FormValue("code")
	token, err := googleOauthConfig.Exchange(context.Background(), code)
	if err != nil {
		logger.L.Error("Failed to exchange code for token", "error", err)
		http.Redirect(w, r, signinErrorURL("token_exchange_failed"), http.StatusTemporaryRedirect)
		return
	}

	response, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		logger.L.Error("Failed to get user info from Google", "error", err)
		http.Redirect(w, r, signinErrorURL("userinfo_failed"), http.StatusTemporaryRedirect)
		return
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		logger.L.Error("Failed to read user info response body", "error", err)
		http.Redirect(w, r, signinErrorURL("userinfo_read_failed"), http.StatusTemporaryRedirect)
		return
	}

	var googleUser struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
		Verified   bool   `json:"verified_email"`
	}
	if err := json.Unmarshal(contents, &googleUser); err != nil {
		logger.L.Error("Failed to unmarshal Google user info", "error", err)
		http.Redirect(w, r, signinErrorURL("userinfo_parse_failed"), http.StatusTemporaryRedirect)
		return
	}

	if !googleUser.Verified {
		http.Redirect(w, r, signinErrorURL("email_not_verified_by_google"), http.StatusTemporaryRedirect)
		return
	}

	var avatarURL *string
	if googleUser.Picture != "" {
		avatarURL = &googleUser.Picture
	}
	user, err := h.userService.RegisterGoogle(googleUser.ID, googleUser.Email,
		googleUser.GivenName, googleUser.FamilyName, avatarURL)
	if err != nil {
		logger.L.Error("Failed to create Google user", "error", err)
		http.Redirect(w, r, signinErrorURL("user_creation_failed"), http.StatusTemporaryRedirect)
		return
	}

	logger.L.Info("Google sign-in completed", "userId", user.ID, "email", user.Email)
	redirectURL := fmt.Sprintf("%s/auth/google/callback?next=create_pin&user=%s",
		config.Cfg.FrontendBaseURL,
		url.QueryEscape(string(contents)))
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

func signinErrorURL(code string) string {
	return fmt.Sprintf("%s/signin?error=%s", config.Cfg.FrontendBaseURL, code)
}
