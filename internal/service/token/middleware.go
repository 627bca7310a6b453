package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	if role, ok := claims["role"].(string); ok {
		c.Set("role", role)
	}
}

// CheckCookie validates the access cookie, falling back to refresh-token
// rotation when the access token has expired. It returns the (possibly new)
// access token, a new refresh token when rotation happened, and the role.
func (t *Service) CheckCookie(c echo.Context) (string, string, string, error) {
	asCookie, err := c.Cookie("accessToken")
	if err == nil {
		parsed, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
			return t.JWTSecret, nil
		})
		if err == nil && parsed.Valid {
			claims := parsed.Claims.(jwt.MapClaims)
			role, _ := claims["role"].(string)
			setUserContext(c, claims)
			return asCookie.Value, "", role, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	newAccess, newRefresh, claims, err := t.Rotate(rfCookie.Value)
	if err != nil {
		return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	return newAccess, newRefresh, role, nil
}

func (t *Service) applyRotation(c echo.Context, newAccess, newRefresh string) error {
	if newRefresh != "" {
		c.SetCookie(sessionCookie("accessToken", newAccess, time.Now().Add(AccessTTL)))
		c.SetCookie(sessionCookie("refreshToken", newRefresh, time.Now().Add(RefreshTTL)))
	}

	parsed, err := jwt.Parse(newAccess, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil })
	if err != nil || !parsed.Valid {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	setUserContext(c, parsed.Claims.(jwt.MapClaims))
	return nil
}

// AutoRefreshMiddleware authenticates the request, transparently rotating
// an expired access token off the refresh cookie.
func (t *Service) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, _, err := t.CheckCookie(c)
		if err != nil {
			return err
		}
		if err := t.applyRotation(c, newAccess, newRefresh); err != nil {
			return err
		}
		return next(c)
	}
}

// OptionalAuthMiddleware attaches the user identity when valid cookies are
// present but lets anonymous requests through untouched.
func (t *Service) OptionalAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, _, err := t.CheckCookie(c)
		if err == nil {
			if err := t.applyRotation(c, newAccess, newRefresh); err != nil {
				return next(c)
			}
		}
		return next(c)
	}
}

// AutoRefreshMiddlewareAdmin additionally requires the admin role. The
// check returns a typed Forbidden error; it never redirects.
func (t *Service) AutoRefreshMiddlewareAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, role, err := t.CheckCookie(c)
		if err != nil {
			return err
		}
		if role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		if err := t.applyRotation(c, newAccess, newRefresh); err != nil {
			return err
		}
		return next(c)
	}
}

func sessionCookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
