package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_signage/internal/assets"
	"github.com/friendsincode/grimnir_signage/internal/catalog"
	"github.com/friendsincode/grimnir_signage/internal/queue"
)

// resolveCmd fetches and resolves the queue once and prints it, without
// starting playback. Useful for checking what a screen would play.
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the screen's queue once and print it",
	RunE:  runResolve,
}

var resolveHydrate bool

func init() {
	resolveCmd.Flags().BoolVar(&resolveHydrate, "hydrate", false, "also resolve source addresses")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fetcher := catalog.New(cfg.CatalogURL, cfg.CatalogAPIKey, cfg.CatalogTimeout, logger)

	screen, err := fetcher.GetScreenByCode(ctx, cfg.ScreenCode)
	if err != nil {
		return fmt.Errorf("fetch screen: %w", err)
	}
	if screen.PlaylistID == "" {
		return fmt.Errorf("screen %s has no assigned playlist", screen.ID)
	}

	playlist, err := fetcher.GetPlaylist(ctx, screen.PlaylistID)
	if err != nil {
		return fmt.Errorf("fetch playlist: %w", err)
	}
	mediaMap, err := fetcher.GetMediaMap(ctx, screen.PlaylistID)
	if err != nil {
		return fmt.Errorf("fetch media catalog: %w", err)
	}

	entries := queue.Resolve(playlist, mediaMap, queue.Options{})

	if resolveHydrate {
		var signer assets.Signer
		if cfg.S3Bucket != "" {
			signer, err = assets.NewS3Signer(ctx, assets.S3Config{
				AccessKeyID:     cfg.S3AccessKeyID,
				SecretAccessKey: cfg.S3SecretAccessKey,
				Region:          cfg.S3Region,
				Bucket:          cfg.S3Bucket,
				Endpoint:        cfg.S3Endpoint,
				PublicBaseURL:   cfg.S3PublicBaseURL,
				UsePathStyle:    cfg.S3UsePathStyle,
			})
			if err != nil {
				return fmt.Errorf("initialize object storage: %w", err)
			}
		}
		assets.NewResolver(signer, cfg.S3Bucket, cfg.S3SignedTTL, logger).Hydrate(ctx, entries, mediaMap)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
