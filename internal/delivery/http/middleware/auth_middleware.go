package middleware

import (
	"strings"

	deliverycontext "acmauth/internal/delivery/context"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware authenticates requests carrying a session token.
type AuthMiddleware struct {
	accounts usecase.AccountUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(accounts usecase.AccountUsecase) *AuthMiddleware {
	return &AuthMiddleware{accounts: accounts}
}

// Authenticate validates the session token from the Authorization header. Both
// the "JWT <token>" form handed out by login and "Bearer <token>" are accepted.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
		if authHeader == "" {
			return domainerrors.ErrInvalidToken.WrapMessage("authorization header is missing")
		}

		snapshot, err := m.accounts.VerifySession(c.Request().Context(), authHeader)
		if err != nil {
			return err
		}

		deliverycontext.SetSession(c, snapshot)

		return next(c)
	}
}
