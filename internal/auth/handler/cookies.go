package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	SessionCookie = "sid"
	TokenCookie   = "token"

	tokenCookieTTL = 24 * time.Hour
)

// sessionID returns the pending-credentials session of the caller, or "" when none was started.
func sessionID(c *fiber.Ctx) string {
	return c.Cookies(SessionCookie)
}

// startSession reuses the caller's session id or hands out a new one.
func (h *AuthHandler) startSession(c *fiber.Ctx) string {
	sid := sessionID(c)
	if sid == "" {
		sid = uuid.NewString()
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return sid
}

func (h *AuthHandler) setToken(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tokenCookieTTL),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookies(c *fiber.Ctx) {
	for _, name := range []string{SessionCookie, TokenCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   h.secureCookies,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}
