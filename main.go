package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rhaslani/Birdieo-v2/api"
	"github.com/rhaslani/Birdieo-v2/config"
	"github.com/rhaslani/Birdieo-v2/detect"
	"github.com/rhaslani/Birdieo-v2/frame"
	"github.com/rhaslani/Birdieo-v2/overlay"
	"github.com/rhaslani/Birdieo-v2/source"
	"github.com/rhaslani/Birdieo-v2/track"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	src, mode, err := buildSource(cfg)
	if err != nil {
		return err
	}
	log.Info("frame source configured", zap.String("mode", mode), zap.String("url", src.String()))

	store := frame.NewStore()
	defer store.Close()
	tracker := track.NewTracker(cfg.Track.LivenessWindow, cfg.Track.MatchRadius)
	render := overlay.NewRenderer()
	oracle := detect.NewOpenAIOracle(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := source.NewReader(src, store, log, cfg.Stream.MaxWidth, cfg.Stream.PublishInterval())
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		reader.Run(ctx)
	}()

	handler := api.NewHandler(store, tracker, oracle, render, log, cfg.Stream.JPEGQuality, mode)
	srv := api.NewServer(cfg.Server.Addr, handler)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErr <- err
		}
	}()

	select {
	case err := <-srvErr:
		stop()
		<-readerDone
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	<-readerDone
	log.Info("stopped")
	return nil
}

func buildSource(cfg *config.Config) (source.Source, string, error) {
	switch {
	case cfg.Stream.SnapshotURL != "":
		return source.NewSnapshotSource(cfg.Stream.SnapshotURL, cfg.Stream.FetchTimeout), "snapshot", nil
	case cfg.Stream.URL != "":
		return source.NewStreamSource(cfg.Stream.URL), "stream", nil
	default:
		return nil, "", fmt.Errorf("no frame source configured, set STREAM_URL or SNAPSHOT_URL")
	}
}
