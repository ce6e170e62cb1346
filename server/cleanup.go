package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// InitializeSchedules starts all the cron jobs (currently just one)
func (serverHandler *ServerHandler) InitializeSchedules() {
	c := cron.New()
	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(func() { serverHandler.cleanupScratchFunc() })
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverHandler.ServerConfig.CleanupInterval), cleanupJob)
	Logger.Info("Adding scratch cleanup scheduler", "interval_minutes", serverHandler.ServerConfig.CleanupInterval)
	c.Start()
}

// cleanupScratchFunc removes scratch files that outlived their welcome.
// Uploads are deleted at the end of each request already; this catches
// files orphaned by crashes or kills mid-request.
func (serverHandler *ServerHandler) cleanupScratchFunc() {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in scratch cleanup", "panic", r)
		}
	}()

	maxAge := time.Duration(serverHandler.ServerConfig.ScratchMaxAge) * time.Minute
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	entries, err := os.ReadDir(serverHandler.ServerConfig.ScratchPath)
	if err != nil {
		Logger.Error("Unable to read scratch directory", "path", serverHandler.ServerConfig.ScratchPath, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			Logger.Warn("Unable to stat scratch file, skipping", "file", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		fullPath := filepath.Join(serverHandler.ServerConfig.ScratchPath, entry.Name())
		if err := os.Remove(fullPath); err != nil {
			Logger.Warn("Unable to remove stale scratch file", "file", fullPath, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		Logger.Info("Scratch cleanup complete", "removed", removed)
	}
}
