package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_signage/internal/assets"
	"github.com/friendsincode/grimnir_signage/internal/catalog"
	"github.com/friendsincode/grimnir_signage/internal/config"
	"github.com/friendsincode/grimnir_signage/internal/events"
	"github.com/friendsincode/grimnir_signage/internal/logging"
	"github.com/friendsincode/grimnir_signage/internal/playback"
	"github.com/friendsincode/grimnir_signage/internal/player"
	"github.com/friendsincode/grimnir_signage/internal/preload"
	"github.com/friendsincode/grimnir_signage/internal/server"
	"github.com/friendsincode/grimnir_signage/internal/store"
	"github.com/friendsincode/grimnir_signage/internal/telemetry"
	"github.com/friendsincode/grimnir_signage/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "grimnirsignage",
	Short: "Grimnir Signage - Unattended display player",
	Long:  "Grimnir Signage drives an unattended display through a remote playlist with offline fallback, asset prefetching, and drift-corrected playback timing.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the signage player",
	Long:  "Fetch the screen's playlist, resolve it into a playback queue, and drive the display until stopped",
	RunE:  runPlayer,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runPlayer(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Str("screen", cfg.ScreenCode).Msg("Grimnir Signage starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "grimnir-signage",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	snapshots, err := store.Open(cfg.StateDir, logger)
	if err != nil {
		return fmt.Errorf("open offline store: %w", err)
	}
	defer snapshots.Close()

	playerSvc, bus, err := buildPlayer(snapshots)
	if err != nil {
		return err
	}

	srv := server.New(cfg, playerSvc, bus, logger)
	httpServer := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	playerDone := make(chan error, 1)
	go func() { playerDone <- playerSvc.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-playerDone:
		logger.Error().Err(err).Msg("player loop exited")
	}

	logger.Info().Msg("shutting down gracefully...")
	cancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeoutCancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Grimnir Signage stopped")
	return nil
}

// buildPlayer assembles the resolution pipeline behind the player service.
func buildPlayer(snapshots *store.Offline) (*player.Service, *events.Bus, error) {
	var signer assets.Signer
	if cfg.S3Bucket != "" {
		s3Signer, err := assets.NewS3Signer(context.Background(), assets.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialize object storage: %w", err)
		}
		signer = s3Signer
	}

	bus := events.NewBus()
	fetcher := catalog.New(cfg.CatalogURL, cfg.CatalogAPIKey, cfg.CatalogTimeout, logger)
	hydrator := assets.NewResolver(signer, cfg.S3Bucket, cfg.S3SignedTTL, logger)
	preloader := preload.New(logger, preload.Options{
		Window:  cfg.PreloadWindow,
		Timeout: cfg.PreloadTimeout,
	})

	svc := player.New(cfg, fetcher, hydrator, preloader, snapshots, bus, playback.SystemClock(), logger)
	return svc, bus, nil
}
