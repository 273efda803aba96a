package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

const (
	timezoneCookie     = "timezone"
	contextLocationKey = "location"
	timezoneCookieAge  = 365 * 24 * time.Hour
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware lets reviewers (and admins) through.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsStaff {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// timezoneMiddleware loads the visitor's timezone from its cookie. UTC is the default.
func timezoneMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		loc := time.UTC
		if cookie, err := ctx.Cookie(timezoneCookie); err == nil && core.IsValidTimezone(cookie.Value) {
			if l, err := time.LoadLocation(cookie.Value); err == nil {
				loc = l
			}
		}
		ctx.Set(contextLocationKey, loc)
		return next(ctx)
	}
}

func contextLocation(ctx echo.Context) *time.Location {
	if loc, ok := ctx.Get(contextLocationKey).(*time.Location); ok {
		return loc
	}
	return time.UTC
}

func setTimezone(ctx echo.Context, name string) {
	ctx.SetCookie(&http.Cookie{
		Name:     timezoneCookie,
		Value:    name,
		Path:     "/",
		Expires:  time.Now().Add(timezoneCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if loc, err := time.LoadLocation(name); err == nil {
		ctx.Set(contextLocationKey, loc)
	}
}
