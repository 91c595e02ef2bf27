package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/auth"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Auth            *auth.Service
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	Log             *logrus.Entry

	// overridable for tests
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	endpoint := h.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func shortCookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   maxAge,
	}
}

// GoogleStart redirects to the consent screen. role is only used when the
// Google account is not registered yet.
func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	role := strings.ToUpper(strings.TrimSpace(c.Query("role")))
	if role != "" {
		if _, ok := models.ParseRole(role); !ok {
			fields := apperr.FieldErrors{}
			fields.Add("role", "must be one of: BUYER, SELLER")
			return apperr.Validation("Validation error", fields)
		}
	}
	st := randomState(32)

	c.Cookie(shortCookie("oauth_state", st, 10*60))
	c.Cookie(shortCookie("oauth_next", next, 10*60))
	c.Cookie(shortCookie("oauth_role", role, 10*60))

	authURL := h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline)
	return c.Redirect(authURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleCallback finishes the flow and hands the session token to the
// frontend in the URL fragment, which browsers do not send to servers.
func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Validation("missing code or state", nil)
	}

	stCookie := c.Cookies("oauth_state")
	if stCookie == "" || stCookie != state {
		return apperr.Validation("invalid state", nil)
	}
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	role := c.Cookies("oauth_role")

	ctx := c.UserContext()
	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		h.Log.WithError(err).Warn("google code exchange failed")
		return apperr.Unauthorized("failed to exchange code")
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := cfg.Client(ctx, tok).Get(infoURL)
	if err != nil {
		return apperr.Internal("fetch google userinfo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.Unauthorized("google rejected the token")
	}

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return apperr.Internal("decode google userinfo", err)
	}
	if !gu.VerifiedEmail {
		return apperr.Unauthorized("google email is not verified")
	}

	c.Cookie(shortCookie("oauth_state", "", -1))
	c.Cookie(shortCookie("oauth_next", "", -1))
	c.Cookie(shortCookie("oauth_role", "", -1))

	sess, err := h.Auth.SignInExternal(ctx, gu.Email, gu.Name, gu.Picture, role)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return err
		}
		u := h.FrontendBaseURL + "/auth/login?err=" + url.QueryEscape(apperr.From(err).Message)
		return c.Redirect(u, http.StatusTemporaryRedirect)
	}

	frag := url.Values{"token": {sess.Token}, "next": {next}}
	return c.Redirect(h.FrontendBaseURL+"/auth/callback#"+frag.Encode(), http.StatusTemporaryRedirect)
}
