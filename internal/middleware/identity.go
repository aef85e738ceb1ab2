package middleware

import "github.com/labstack/echo/v4"

// Subject returns the authenticated subject stored by JWTAuth, or "" for
// anonymous requests.
func Subject(c echo.Context) string {
	s, _ := c.Get(CtxSubject).(string)
	return s
}

// subjectOrAnon is Subject with a stable placeholder for key building.
func subjectOrAnon(c echo.Context) string {
	if s := Subject(c); s != "" {
		return s
	}
	return "anon"
}
