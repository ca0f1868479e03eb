// Command parakeetd serves the asynchronous audio transcription task API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillsenselab/parakeet/audio"
	"github.com/skillsenselab/parakeet/config"
	"github.com/skillsenselab/parakeet/database"
	"github.com/skillsenselab/parakeet/diarization"
	"github.com/skillsenselab/parakeet/diarization/pyannote"
	"github.com/skillsenselab/parakeet/logger"
	"github.com/skillsenselab/parakeet/server"
	"github.com/skillsenselab/parakeet/task"
	"github.com/skillsenselab/parakeet/transcription/parakeet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parakeetd: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()
	if err := db.AutoMigrate(&task.Task{}); err != nil {
		log.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}

	transcriber := parakeet.NewProvider(cfg.Transcription)
	var diarizer diarization.Provider
	if cfg.Diarization.Enabled {
		diarizer = pyannote.NewProvider(cfg.Diarization)
	}

	svc, err := task.NewService(cfg.Tasks, db, audio.NewNormalizer(cfg.Audio, log), transcriber, diarizer, log)
	if err != nil {
		log.Fatal("Failed to create task service", map[string]interface{}{"error": err.Error()})
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	server.NewHandlers(svc, cfg.Server.MaxBodySize, log).Register(srv.GinEngine())

	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		log.Fatal("Failed to start server", map[string]interface{}{"error": err.Error()})
	}

	probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
	if !transcriber.IsAvailable(probeCtx) {
		log.Warn("Transcription sidecar not reachable, tasks will fail until it comes up", map[string]interface{}{
			"url": cfg.Transcription.URL,
		})
	}
	probeCancel()

	log.Info("parakeetd is ready", map[string]interface{}{
		"addr":           srv.Addr(),
		"max_concurrent": cfg.Tasks.MaxConcurrent,
		"diarization":    cfg.Diarization.Enabled,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Server shutdown error", map[string]interface{}{"error": err.Error()})
	}
	if err := svc.Close(shutdownCtx); err != nil {
		log.Warn("Task drain interrupted", map[string]interface{}{"error": err.Error()})
	}
	if err := db.Close(); err != nil {
		log.Error("Database close error", map[string]interface{}{"error": err.Error()})
	}
	log.Info("parakeetd stopped")
}
