package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/utils/response"
	"golang.org/x/oauth2"
)

const oauthStateCookie = "oauth_state"

// googleUserInfo is the subset of the userinfo payload the app uses
type googleUserInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// GoogleLogin starts the Google OAuth redirect flow
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	if h.oauthConfig == nil {
		return response.NotFound(c, "Google sign-in is not configured")
	}

	state, err := randomState()
	if err != nil {
		return response.InternalServerError(c, "Failed to start sign-in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(h.oauthConfig.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// GoogleCallback completes the OAuth flow. On success it redirects to the
// frontend with a token query parameter; on failure with an error parameter.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	if h.oauthConfig == nil {
		return response.NotFound(c, "Google sign-in is not configured")
	}

	if errParam := c.Query("error"); errParam != "" {
		return h.redirectWithError(c, "access_denied")
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		return h.redirectWithError(c, "invalid_state")
	}
	c.ClearCookie(oauthStateCookie)

	code := c.Query("code")
	if code == "" {
		return h.redirectWithError(c, "missing_code")
	}

	token, err := h.oauthConfig.Exchange(c.Context(), code)
	if err != nil {
		return h.redirectWithError(c, "exchange_failed")
	}

	info, err := h.fetchGoogleUserInfo(c, token)
	if err != nil {
		return h.redirectWithError(c, "userinfo_failed")
	}

	if info.Email == "" {
		return h.redirectWithError(c, "no_email")
	}

	result, err := h.authService.FindOrCreateOAuthUser(info.Email, info.GivenName, info.FamilyName, info.Picture)
	if err != nil {
		return h.redirectWithError(c, "signin_failed")
	}

	redirect := fmt.Sprintf("%s/auth/callback?token=%s", h.frontendURL, url.QueryEscape(result.Token))
	return c.Redirect(redirect, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) fetchGoogleUserInfo(c *fiber.Ctx, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauthConfig.Client(c.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (h *AuthHandler) redirectWithError(c *fiber.Ctx, code string) error {
	redirect := fmt.Sprintf("%s/auth/callback?error=%s", h.frontendURL, url.QueryEscape(code))
	return c.Redirect(redirect, fiber.StatusTemporaryRedirect)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
