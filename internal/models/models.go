/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// MediaType enumerates the renderable media classes.
type MediaType string

const (
	MediaImage  MediaType = "image"
	MediaVideo  MediaType = "video"
	MediaPDF    MediaType = "pdf"
	MediaHTML   MediaType = "html"
	MediaSlides MediaType = "slides"
	MediaURL    MediaType = "url"
	MediaOther  MediaType = "other"
)

// MediaItem is a catalog asset. Immutable within a resolution cycle.
type MediaItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Type       MediaType `json:"type"`
	MimeType   string    `json:"mime_type,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
	Duration   float64   `json:"duration,omitempty"` // seconds; optional, >0 when known
	StorageKey string    `json:"storage_path,omitempty"`
	URL        string    `json:"url,omitempty"` // fully qualified remote URL, wins over StorageKey
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// ItemOverrides carries per-playlist-item adjustments.
type ItemOverrides struct {
	Duration   *float64 `json:"duration,omitempty"` // seconds; 0 means skip the item
	Mute       bool     `json:"mute,omitempty"`
	StartTime  string   `json:"startTime,omitempty"` // RFC3339 schedule window bound
	EndTime    string   `json:"endTime,omitempty"`
	AllowShort bool     `json:"allowShort,omitempty"` // permit durations under the minimum floor
}

// PlaylistItem is an ordered reference to a MediaItem. Order values are not
// assumed contiguous or unique; the resolver re-sorts.
type PlaylistItem struct {
	ID        string         `json:"id"`
	MediaID   string         `json:"mediaId"`
	Order     int            `json:"order"`
	Overrides *ItemOverrides `json:"overrides,omitempty"`
}

// Playlist groups ordered items for a screen.
type Playlist struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Items     []PlaylistItem `json:"items"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Screen is a paired display device record.
type Screen struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	PlaylistID string `json:"playlistId,omitempty"`
	PairedAt   string `json:"paired_at,omitempty"`
}

// QueueEntry is a resolved, playback-ready unit. Created by the resolver,
// mutated in place only by the hydrator (filling Src), read-only afterwards.
// It is a derived projection and never round-trips into a PlaylistItem.
type QueueEntry struct {
	ItemID    string    `json:"itemId"`
	MediaID   string    `json:"mediaId"`
	Title     string    `json:"title"`
	Type      MediaType `json:"type"`
	Src       string    `json:"src"`      // resolved address; empty until hydrated
	Duration  int       `json:"duration"` // whole seconds
	Mute      bool      `json:"mute"`
	StartUnix int64     `json:"startUnix,omitempty"` // schedule window start, epoch seconds
	EndUnix   int64     `json:"endUnix,omitempty"`
}

// Equal reports whether two entries are identical on every renderer-visible
// field, Title included: the renderer may display it, so a title-only edit
// must still count as a changed queue. Used by the player to avoid restarting
// an unchanged one.
func (e QueueEntry) Equal(other QueueEntry) bool {
	return e.ItemID == other.ItemID &&
		e.MediaID == other.MediaID &&
		e.Title == other.Title &&
		e.Type == other.Type &&
		e.Src == other.Src &&
		e.Duration == other.Duration &&
		e.Mute == other.Mute &&
		e.StartUnix == other.StartUnix &&
		e.EndUnix == other.EndUnix
}

// QueuesEqual reports whether two queues would play identically.
func QueuesEqual(a, b []QueueEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
