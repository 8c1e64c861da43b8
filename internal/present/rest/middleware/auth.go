package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/present/rest/presenter"
	"github.com/tentd/tentd/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// RequireMAC rejects any request whose Authorization header does not carry a
// valid MAC signature from a known follower.
func (m *AuthMiddleware) RequireMAC(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.RequireMAC")
		defer span.End()

		keypair, err := m.auth.Authenticate(ctx, c.Request())
		if err != nil {
			span.RecordError(err)
			return presenter.Unauthorized(c)
		}

		span.SetAttributes(attribute.String("MacID", keypair.MacID))
		c.Set(domain.KeyPairCtxKey, keypair)

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
