package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/present/rest/presenter"
	"github.com/tentd/tentd/internal/usecase"
)

type EntityMiddleware struct {
	entities   *usecase.EntityUsecase
	singleUser string
}

// NewEntityMiddleware resolves the entity a request addresses. With
// singleUser set, every request is routed to that entity and paths carry no
// entity segment.
func NewEntityMiddleware(entities *usecase.EntityUsecase, singleUser string) *EntityMiddleware {
	return &EntityMiddleware{
		entities:   entities,
		singleUser: singleUser,
	}
}

func (m *EntityMiddleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := m.singleUser
		if name == "" {
			name = c.Param("entity")
		}

		entity, err := m.entities.Get(c.Request().Context(), name)
		if err != nil {
			return presenter.Error(c, err)
		}

		c.Set(domain.EntityCtxKey, entity)
		return next(c)
	}
}
