package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/dkellner/pdflight/config"
	"github.com/dkellner/pdflight/raster"
	"github.com/dkellner/pdflight/renderer"
	"github.com/dkellner/pdflight/server"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	server.Logger = Logger
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Process-wide PDFium state: acquired once here, torn down on exit.
	Logger.Info("Initializing PDFium worker")
	library, err := raster.InitLibrary()
	if err != nil {
		Logger.Error("Failed to initialize PDFium", "error", err)
		os.Exit(1)
	}
	defer library.Close()

	pageRenderer, err := renderer.NewRenderer(serverConfig.RendererBackend, serverConfig.DefaultScale)
	if err != nil {
		Logger.Error("Failed to create renderer", "backend", serverConfig.RendererBackend, "error", err)
		os.Exit(1)
	}
	defer pageRenderer.Close()

	e := echo.New()
	e.HideBanner = true
	Logger.Info("Echo created")

	// JSON errors for unknown API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound && strings.HasPrefix(c.Request().URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	serverHandler := server.ServerHandler{
		Echo:         e,
		ServerConfig: serverConfig,
		Library:      library,
		Renderer:     pageRenderer,
	}
	serverHandler.InitializeSchedules() //initialize all the cron jobs
	serverHandler.RegisterRoutes()

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil {
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
