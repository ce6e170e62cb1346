package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP    string
	ListenAddrPort  string
	RendererBackend string  // "pdfium" or "fitz"
	DefaultScale    float64 // point-to-pixel factor used when a request gives none
	Annotations     bool    // render page annotations unless a request says otherwise
	ScratchPath     string  // absolute path to the upload scratch folder
	ScratchMaxAge   int     // minutes before scratch files are purged
	CleanupInterval int     // minutes between scratch cleanup runs
	RenderJobs      int     // worker count for whole-document rendering
	MaxUploadMB     int
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Load configuration from environment variables with defaults

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Renderer configuration
	serverConfigLive.RendererBackend = getEnv("RENDERER_BACKEND", "pdfium")
	serverConfigLive.DefaultScale = getEnvFloat("RENDER_SCALE", 1.0)
	if serverConfigLive.DefaultScale <= 0 {
		logger.Warn("RENDER_SCALE must be positive, falling back to 1.0", "value", serverConfigLive.DefaultScale)
		serverConfigLive.DefaultScale = 1.0
	}
	serverConfigLive.Annotations = getEnvBool("RENDER_ANNOTATIONS", true)
	serverConfigLive.RenderJobs = getEnvInt("RENDER_JOBS", 4)

	// Scratch folder for uploaded documents
	scratchDir := filepath.ToSlash(getEnv("SCRATCH_PATH", "scratch"))
	scratchDirAbs, err := filepath.Abs(scratchDir)
	if err != nil {
		logger.Error("Failed creating absolute path for scratch directory", "error", err)
	}
	serverConfigLive.ScratchPath = scratchDirAbs
	if err := os.MkdirAll(scratchDirAbs, os.ModePerm); err != nil {
		logger.Error("Failed creating scratch directory", "path", scratchDirAbs, "error", err)
	}

	serverConfigLive.ScratchMaxAge = getEnvInt("SCRATCH_MAX_AGE", 60)
	serverConfigLive.CleanupInterval = getEnvInt("CLEANUP_INTERVAL", 10)
	serverConfigLive.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", 64)

	fmt.Println("\n========================================")
	fmt.Println("   pdflight - PDF rendering service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Renderer backend: %s\n", serverConfigLive.RendererBackend)
	fmt.Println("Initializing...")

	logger.Info("Configuration loaded",
		"backend", serverConfigLive.RendererBackend,
		"scale", serverConfigLive.DefaultScale,
		"scratch", serverConfigLive.ScratchPath)

	return serverConfigLive, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "stdout")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "pdflight.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
