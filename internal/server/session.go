package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const sessionCookie = "sc_session"

// withSession reads the caller's session cookie, issuing one when absent. The
// session id keys the persisted analysis pair so a full-page reload within the
// same browser session finds its result again.
func withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var sessionID string
		if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else {
			sessionID = uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     sessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set("session_id", sessionID)
		return next(c)
	}
}
