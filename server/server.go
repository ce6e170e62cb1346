package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/dkellner/pdflight/config"
	"github.com/dkellner/pdflight/raster"
	"github.com/dkellner/pdflight/renderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Library      *raster.Library
	Renderer     renderer.Renderer
}

// RegisterRoutes wires all of the API routes onto the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	serverHandler.Echo.GET("/health", serverHandler.Health)
	serverHandler.Echo.POST("/api/render", serverHandler.RenderPage)
	serverHandler.Echo.POST("/api/preview", serverHandler.Preview)
	serverHandler.Echo.POST("/api/thumbnail", serverHandler.Thumbnail)
	serverHandler.Echo.POST("/api/info", serverHandler.DocumentInfo)
}
