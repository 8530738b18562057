package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// NewServer returns an Echo instance with the shared middleware chain,
// serializer and error handler installed. Routes are added with Register.
func NewServer(logger *log.Logger, production bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = ErrorHandler(logger, production)

	e.Use(Observability(logger))
	e.Use(middleware.RecoverWithConfig(RecoverConfig()))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(RequestDecompression())
	return e
}
