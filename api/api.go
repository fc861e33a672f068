// Package api exposes esgate stream operations over HTTP using echo
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aneshas/esgate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var _ Streams = (*esgate.Service)(nil)

// Streams represents the stream operations served over HTTP
type Streams interface {
	WriteEvent(ctx context.Context, payload []byte) (string, error)
	ListActiveStreams(ctx context.Context) ([]string, error)
	DeleteHalf(ctx context.Context) (esgate.DeleteReport, error)
	DeleteOld(ctx context.Context) (esgate.DeleteReport, error)
}

// New constructs an echo instance serving svc under /api
func New(svc Streams, logger *slog.Logger) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)

			return nil
		},
	}))

	Register(e.Group("/api"), svc)

	return e
}

// Register adds stream routes to g
func Register(g *echo.Group, svc Streams) {
	g.POST("/events", WriteEvent(svc))
	g.GET("/streams", ListStreams(svc))
	g.GET("/streams/delete-half", DeleteStreams(svc.DeleteHalf))
	g.GET("/streams/delete-old", DeleteStreams(svc.DeleteOld))
}

// WriteEvent returns a handler writing the request body as an event to a new stream
func WriteEvent(svc Streams) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			return c.String(http.StatusInternalServerError, "Failed to write event: "+err.Error())
		}

		stream, err := svc.WriteEvent(r.Context(), payload)
		if err != nil {
			return c.String(http.StatusInternalServerError, "Failed to write event: "+err.Error())
		}

		return c.String(http.StatusOK, "Event written successfully to stream: "+stream)
	}
}

// ListStreams returns a handler listing active stream names as a json array
func ListStreams(svc Streams) echo.HandlerFunc {
	return func(c echo.Context) error {
		names, err := svc.ListActiveStreams(c.Request().Context())
		if err != nil {
			return c.NoContent(http.StatusInternalServerError)
		}

		if names == nil {
			names = []string{}
		}

		return c.JSON(http.StatusOK, names)
	}
}

// DeleteStreams returns a handler running the provided bulk deletion
func DeleteStreams(del func(context.Context) (esgate.DeleteReport, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := del(c.Request().Context())
		if err != nil {
			return c.String(http.StatusInternalServerError, "Failed to delete streams: "+err.Error())
		}

		return c.String(http.StatusOK, DeleteMessage(report))
	}
}

// DeleteMessage renders the outcome of a successful bulk deletion
func DeleteMessage(report esgate.DeleteReport) string {
	if report.NothingToDelete {
		return "No streams to delete."
	}

	return fmt.Sprintf("Successfully deleted %d streams.", len(report.Deleted))
}
