package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"todo-api/auth"
	"todo-api/domain"
)

const userContextKey = "user"

// Authenticator guards routes that require a signed-in user.
type Authenticator struct {
	tokens   TokenVerifier
	accounts Accounts
}

// NewAuthenticator creates an Authenticator resolving tokens with tokens and
// users with accounts.
func NewAuthenticator(tokens TokenVerifier, accounts Accounts) *Authenticator {
	return &Authenticator{tokens: tokens, accounts: accounts}
}

// Middleware rejects requests without a valid bearer token for an existing
// user. Accepted requests carry the user on both the echo and request context.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerTokenFromHeader(c.Request().Header)
			if err != nil {
				return domain.Unauthorized("no token provided", err)
			}

			userID, err := a.tokens.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return domain.Unauthorized("token expired", err)
				}
				return domain.Unauthorized("invalid token", err)
			}

			req := c.Request()
			user, err := a.accounts.Identify(req.Context(), userID)
			if err != nil {
				return err
			}

			c.Set(userContextKey, user)
			c.SetRequest(req.WithContext(domain.WithUser(req.Context(), user)))
			return next(c)
		}
	}
}

// currentUser returns the user attached by Authenticator.Middleware.
func currentUser(c echo.Context) (domain.User, error) {
	if u, ok := c.Get(userContextKey).(domain.User); ok {
		return u, nil
	}
	if u, ok := domain.UserFromContext(c.Request().Context()); ok {
		return u, nil
	}
	return domain.User{}, domain.Unauthorized("no token provided", nil)
}
