package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const defaultStackSize = 8 << 10

var errInvalidBody = errors.New("invalid request body")

// panicError carries a recovered panic and the stack it was raised on.
type panicError struct {
	err   error
	stack []byte
}

func (p *panicError) Error() string { return "panic: " + p.err.Error() }

func (p *panicError) Unwrap() error { return p.err }

// RecoverConfig routes recovered panics to the error handler with their stack.
func RecoverConfig() middleware.RecoverConfig {
	return middleware.RecoverConfig{
		StackSize: defaultStackSize,
		LogErrorFunc: func(_ echo.Context, err error, stack []byte) error {
			return &panicError{err: err, stack: stack}
		},
	}
}

// ErrorHandler renders every handler error as an envelope. Details of
// internal failures are only exposed when production is false.
func ErrorHandler(logger *log.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := renderError(err, production)
		if status >= http.StatusInternalServerError {
			entry := logger.WithFields(log.Fields{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
				"status": status,
			}).WithError(err)
			var p *panicError
			if errors.As(err, &p) {
				entry = entry.WithField("stack", string(p.stack))
			}
			entry.Error("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.WithError(werr).Warn("write error response")
		}
	}
}

func renderError(err error, production bool) (int, envelope) {
	var (
		validation   *domain.ValidationError
		unauthorized *domain.UnauthorizedError
		httpErr      *echo.HTTPError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, envelope{Message: "Validation failed", Errors: validation.Fields}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest, envelope{Message: "User already exists with this email"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, envelope{Message: "Invalid email or password"}
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized, envelope{Message: "Not authorized, " + unauthorized.Reason}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, envelope{Message: "Not authorized"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, envelope{Message: "Task not found"}
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, envelope{Message: "Invalid request body"}
	case errors.As(err, &httpErr):
		return renderHTTPError(httpErr)
	}

	body := envelope{Message: "Internal Server Error"}
	if !production {
		body.Error = err.Error()
		var p *panicError
		if errors.As(err, &p) {
			body.Stack = string(p.stack)
		}
	}
	return http.StatusInternalServerError, body
}

func renderHTTPError(he *echo.HTTPError) (int, envelope) {
	switch he.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return http.StatusNotFound, envelope{Message: "Route not found"}
	}
	msg, ok := he.Message.(string)
	if !ok || msg == "" {
		msg = http.StatusText(he.Code)
	}
	return he.Code, envelope{Message: msg}
}
