/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package assets resolves queue entries to retrievable addresses, exchanging
// storage references for signed or public object URLs.
package assets

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_signage/internal/models"
	"github.com/friendsincode/grimnir_signage/internal/telemetry"
)

// Resolver fills in playable source addresses for resolved queue entries.
// It is decoupled from queue resolution so the queue shape is known before
// any slow signing round-trips happen.
type Resolver struct {
	signer    Signer // nil when no object storage is configured
	bucket    string
	signedTTL time.Duration // 0 disables presigning
	logger    zerolog.Logger
}

// NewResolver creates a source resolver. signer may be nil when the
// deployment serves only explicit media URLs.
func NewResolver(signer Signer, bucket string, signedTTL time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		signer:    signer,
		bucket:    bucket,
		signedTTL: signedTTL,
		logger:    logger.With().Str("component", "assets").Logger(),
	}
}

// Hydrate fills the Src of every entry that still lacks one, in place.
// A failed resolution leaves the entry's Src empty and moves on; playback
// treats an empty address as a per-item error, never a queue-level one.
func (r *Resolver) Hydrate(ctx context.Context, entries []models.QueueEntry, mediaMap map[string]models.MediaItem) {
	for i := range entries {
		if entries[i].Src != "" {
			continue
		}
		media, ok := mediaMap[entries[i].MediaID]
		if !ok {
			continue
		}
		src := r.ResolveSrc(ctx, media, media.Type == models.MediaVideo)
		if src == "" {
			telemetry.HydrationFailuresTotal.Inc()
			r.logger.Warn().
				Str("media_id", media.ID).
				Str("storage_key", media.StorageKey).
				Msg("failed to resolve media source")
			continue
		}
		entries[i].Src = src
	}
}

// ResolveSrc returns the best playable address for a media item.
// An explicit URL always wins; otherwise the storage reference is exchanged
// for a time-limited signed URL when preferred (paid/restricted video
// streams), falling back to a durable public URL. Returns "" when nothing
// can be derived.
func (r *Resolver) ResolveSrc(ctx context.Context, media models.MediaItem, preferSigned bool) string {
	if media.URL != "" {
		return media.URL
	}
	if media.StorageKey == "" || r.signer == nil {
		return ""
	}

	// Some deployments historically stored keys with the bucket as a prefix.
	// Object operations expect keys relative to the bucket, so strip it.
	key := media.StorageKey
	if r.bucket != "" {
		key = strings.TrimPrefix(key, r.bucket+"/")
	}

	if preferSigned && r.signedTTL > 0 {
		signed, err := r.signer.PresignGet(ctx, key, r.signedTTL)
		if err == nil && signed != "" {
			return signed
		}
		r.logger.Warn().Err(err).Str("key", key).Msg("presign failed, falling back to public URL")
	}

	return r.signer.PublicURL(key)
}
