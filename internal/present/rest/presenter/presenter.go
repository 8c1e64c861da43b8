package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Tent serves a resource under the protocol media type.
func Tent(c echo.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return Error(c, err)
	}
	return c.Blob(http.StatusOK, tent.MediaType, data)
}

// NoContent acknowledges a request with an empty 200.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Unauthorized answers a failed MAC handshake. The WWW-Authenticate header
// advertises the scheme the server expects.
func Unauthorized(c echo.Context) error {
	c.Response().Header().Set("WWW-Authenticate", "MAC")
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid MAC credentials"})
}

// Error maps a domain error onto its status code.
func Error(c echo.Context, err error) error {
	var discovery domain.DiscoveryError
	if errors.As(err, &discovery) {
		status := discovery.Status
		if status == 0 {
			status = http.StatusNotFound
		}
		return c.JSON(status, errorResponse{Error: err.Error()})
	}

	var notification domain.NotificationError
	if errors.As(err, &notification) {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}

	switch {
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotUnique):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
