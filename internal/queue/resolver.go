/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package queue turns a playlist and media catalog into an ordered, playable
// queue. Resolution is pure and deterministic for a given instant: it applies
// duration rules, per-item overrides and scheduling windows, and leaves source
// addresses for the hydrator.
package queue

import (
	"math"
	"sort"
	"time"

	"github.com/friendsincode/grimnir_signage/internal/models"
)

const (
	// MinDurationSeconds is the floor applied unless an item allows short play.
	MinDurationSeconds = 2
	// DefaultNonVideoDuration applies when neither catalog nor override set one.
	DefaultNonVideoDuration = 10
	// FallbackVideoDuration stands in until video metadata is known.
	FallbackVideoDuration = 30
)

// Options adjusts resolution behavior.
type Options struct {
	// SkipMinFloor disables the minimum-duration floor (enforced by default).
	SkipMinFloor bool
	// Now anchors schedule-window checks; zero means time.Now().
	Now time.Time
}

// Resolve produces the playback queue for a playlist against a media catalog.
//
// Items are stably sorted by Order (ties keep catalog order). Items whose
// media id is absent from the catalog are skipped silently: playlist and
// catalog are eventually consistent, a dangling reference is not an error.
// Items excluded by a schedule window or a zero duration override are dropped
// entirely; the queue is always "what is currently playable".
func Resolve(playlist models.Playlist, mediaMap map[string]models.MediaItem, opts Options) []models.QueueEntry {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	items := make([]models.PlaylistItem, len(playlist.Items))
	copy(items, playlist.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })

	entries := make([]models.QueueEntry, 0, len(items))
	for _, item := range items {
		media, ok := mediaMap[item.MediaID]
		if !ok {
			continue
		}

		var override *float64
		if item.Overrides != nil {
			override = item.Overrides.Duration
		}

		// A zero override means "skip this item", not a clamped duration.
		if override != nil && *override == 0 {
			continue
		}

		duration := resolveDuration(media, override)

		allowShort := item.Overrides != nil && item.Overrides.AllowShort
		if !opts.SkipMinFloor && !allowShort && duration < MinDurationSeconds {
			duration = MinDurationSeconds
		}

		startUnix, endUnix := scheduleWindow(item.Overrides)
		if startUnix > 0 && now.Unix() < startUnix {
			continue
		}
		if endUnix > 0 && now.Unix() > endUnix {
			continue
		}

		entries = append(entries, models.QueueEntry{
			ItemID:    item.ID,
			MediaID:   media.ID,
			Title:     media.Title,
			Type:      media.Type,
			Src:       "", // filled asynchronously by the hydrator
			Duration:  duration,
			Mute:      item.Overrides != nil && item.Overrides.Mute,
			StartUnix: startUnix,
			EndUnix:   endUnix,
		})
	}

	return entries
}

// resolveDuration applies the per-type duration rules in whole seconds.
//
// Video prefers the catalog's natural duration and falls back to the override,
// then to FallbackVideoDuration; an override shorter than a known natural
// duration wins (early cutoff), a longer one never extends playback. Non-video
// prefers the override, then the catalog value, then the default.
func resolveDuration(media models.MediaItem, override *float64) int {
	var duration float64

	if media.Type == models.MediaVideo {
		switch {
		case media.Duration > 0:
			duration = media.Duration
		case override != nil && *override > 0:
			duration = *override
		default:
			duration = FallbackVideoDuration
		}
		if override != nil && *override > 0 && *override < duration {
			duration = *override
		}
	} else {
		switch {
		case override != nil && *override > 0:
			duration = *override
		case media.Duration > 0:
			duration = media.Duration
		default:
			duration = DefaultNonVideoDuration
		}
	}

	return int(math.Round(duration))
}

// scheduleWindow parses optional RFC3339 window bounds into epoch seconds.
// An unparseable timestamp is treated as absent, not an error.
func scheduleWindow(overrides *models.ItemOverrides) (startUnix, endUnix int64) {
	if overrides == nil {
		return 0, 0
	}
	if overrides.StartTime != "" {
		if t, err := time.Parse(time.RFC3339, overrides.StartTime); err == nil {
			startUnix = t.Unix()
		}
	}
	if overrides.EndTime != "" {
		if t, err := time.Parse(time.RFC3339, overrides.EndTime); err == nil {
			endUnix = t.Unix()
		}
	}
	return startUnix, endUnix
}
