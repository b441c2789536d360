/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package queue

import (
	"reflect"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_signage/internal/models"
)

func fptr(v float64) *float64 { return &v }

func mediaMapOf(items ...models.MediaItem) map[string]models.MediaItem {
	m := make(map[string]models.MediaItem, len(items))
	for _, item := range items {
		m[item.ID] = item
	}
	return m
}

func TestResolveSortsByOrder(t *testing.T) {
	mediaMap := mediaMapOf(
		models.MediaItem{ID: "m1", Type: models.MediaImage},
		models.MediaItem{ID: "m2", Type: models.MediaImage},
		models.MediaItem{ID: "m3", Type: models.MediaImage},
	)
	playlist := models.Playlist{
		ID: "p1",
		Items: []models.PlaylistItem{
			{ID: "i3", MediaID: "m3", Order: 30},
			{ID: "i1", MediaID: "m1", Order: 10},
			{ID: "i2", MediaID: "m2", Order: 20},
		},
	}

	entries := Resolve(playlist, mediaMap, Options{})
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"i1", "i2", "i3"} {
		if entries[i].ItemID != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, entries[i].ItemID)
		}
	}

	// Reversing input order must yield identical output.
	reversed := models.Playlist{ID: "p1", Items: []models.PlaylistItem{
		playlist.Items[2], playlist.Items[1], playlist.Items[0],
	}}
	again := Resolve(reversed, mediaMap, Options{})
	if !reflect.DeepEqual(entries, again) {
		t.Error("sorted output differs when input order is reversed")
	}
}

func TestResolveStableOnOrderTies(t *testing.T) {
	mediaMap := mediaMapOf(
		models.MediaItem{ID: "m1", Type: models.MediaImage},
		models.MediaItem{ID: "m2", Type: models.MediaImage},
	)
	playlist := models.Playlist{Items: []models.PlaylistItem{
		{ID: "first", MediaID: "m1", Order: 5},
		{ID: "second", MediaID: "m2", Order: 5},
	}}

	entries := Resolve(playlist, mediaMap, Options{})
	if entries[0].ItemID != "first" || entries[1].ItemID != "second" {
		t.Errorf("tied orders must keep catalog order, got %s then %s", entries[0].ItemID, entries[1].ItemID)
	}
}

func TestResolveSkipsUnknownMedia(t *testing.T) {
	mediaMap := mediaMapOf(models.MediaItem{ID: "m1", Type: models.MediaImage})
	playlist := models.Playlist{Items: []models.PlaylistItem{
		{ID: "i1", MediaID: "m1", Order: 1},
		{ID: "i2", MediaID: "missing", Order: 2},
	}}

	entries := Resolve(playlist, mediaMap, Options{})
	if len(entries) != 1 {
		t.Fatalf("expected dangling media reference to be skipped, got %d entries", len(entries))
	}
	if entries[0].ItemID != "i1" {
		t.Errorf("expected i1, got %s", entries[0].ItemID)
	}
}

func TestResolveVideoDurationRules(t *testing.T) {
	cases := []struct {
		name     string
		natural  float64
		override *float64
		want     int
	}{
		{"natural only", 120, nil, 120},
		{"shorter override cuts off", 120, fptr(30), 30},
		{"longer override never extends", 120, fptr(200), 120},
		{"override when natural unknown", 0, fptr(45), 45},
		{"fallback when nothing known", 0, nil, FallbackVideoDuration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mediaMap := mediaMapOf(models.MediaItem{ID: "v1", Type: models.MediaVideo, Duration: tc.natural})
			item := models.PlaylistItem{ID: "i1", MediaID: "v1", Order: 1}
			if tc.override != nil {
				item.Overrides = &models.ItemOverrides{Duration: tc.override}
			}
			entries := Resolve(models.Playlist{Items: []models.PlaylistItem{item}}, mediaMap, Options{})
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0].Duration != tc.want {
				t.Errorf("expected duration %d, got %d", tc.want, entries[0].Duration)
			}
		})
	}
}

func TestResolveNonVideoDurationRules(t *testing.T) {
	cases := []struct {
		name     string
		natural  float64
		override *float64
		want     int
	}{
		{"override wins", 8, fptr(15), 15},
		{"natural when no override", 8, nil, 8},
		{"default when nothing known", 0, nil, DefaultNonVideoDuration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mediaMap := mediaMapOf(models.MediaItem{ID: "m1", Type: models.MediaImage, Duration: tc.natural})
			item := models.PlaylistItem{ID: "i1", MediaID: "m1", Order: 1}
			if tc.override != nil {
				item.Overrides = &models.ItemOverrides{Duration: tc.override}
			}
			entries := Resolve(models.Playlist{Items: []models.PlaylistItem{item}}, mediaMap, Options{})
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0].Duration != tc.want {
				t.Errorf("expected duration %d, got %d", tc.want, entries[0].Duration)
			}
		})
	}
}

func TestResolveZeroOverrideSkipsItem(t *testing.T) {
	mediaMap := mediaMapOf(
		models.MediaItem{ID: "m1", Type: models.MediaImage, Duration: 8},
		models.MediaItem{ID: "m2", Type: models.MediaVideo, Duration: 60},
	)
	playlist := models.Playlist{Items: []models.PlaylistItem{
		{ID: "i1", MediaID: "m1", Order: 1, Overrides: &models.ItemOverrides{Duration: fptr(0)}},
		{ID: "i2", MediaID: "m2", Order: 2, Overrides: &models.ItemOverrides{Duration: fptr(0)}},
	}}

	entries := Resolve(playlist, mediaMap, Options{})
	if len(entries) != 0 {
		t.Fatalf("zero override must drop items, got %d entries", len(entries))
	}
}

func TestResolveMinimumFloor(t *testing.T) {
	mediaMap := mediaMapOf(models.MediaItem{ID: "m1", Type: models.MediaImage})
	short := &models.ItemOverrides{Duration: fptr(1)}

	entries := Resolve(models.Playlist{Items: []models.PlaylistItem{
		{ID: "i1", MediaID: "m1", Order: 1, Overrides: short},
	}}, mediaMap, Options{})
	if entries[0].Duration != MinDurationSeconds {
		t.Errorf("expected floor %d, got %d", MinDurationSeconds, entries[0].Duration)
	}

	allowShort := &models.ItemOverrides{Duration: fptr(1), AllowShort: true}
	entries = Resolve(models.Playlist{Items: []models.PlaylistItem{
		{ID: "i1", MediaID: "m1", Order: 1, Overrides: allowShort},
	}}, mediaMap, Options{})
	if entries[0].Duration != 1 {
		t.Errorf("allowShort must preserve short durations, got %d", entries[0].Duration)
	}

	entries = Resolve(models.Playlist{Items: []models.PlaylistItem{
		{ID: "i1", MediaID: "m1", Order: 1, Overrides: short},
	}}, mediaMap, Options{SkipMinFloor: true})
	if entries[0].Duration != 1 {
		t.Errorf("disabled floor must preserve short durations, got %d", entries[0].Duration)
	}
}

func TestResolveScheduleWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	mediaMap := mediaMapOf(models.MediaItem{ID: "m1", Type: models.MediaImage, Duration: 8})

	resolveOne := func(overrides *models.ItemOverrides) []models.QueueEntry {
		return Resolve(models.Playlist{Items: []models.PlaylistItem{
			{ID: "i1", MediaID: "m1", Order: 1, Overrides: overrides},
		}}, mediaMap, Options{Now: now})
	}

	// Inside the window: included with its computed duration.
	entries := resolveOne(&models.ItemOverrides{
		StartTime: now.Add(-time.Hour).Format(time.RFC3339),
		EndTime:   now.Add(time.Hour).Format(time.RFC3339),
	})
	if len(entries) != 1 {
		t.Fatal("expected in-window item to be included")
	}
	if entries[0].Duration != 8 {
		t.Errorf("window check must not alter duration, got %d", entries[0].Duration)
	}
	if entries[0].StartUnix == 0 || entries[0].EndUnix == 0 {
		t.Error("expected window bounds on the entry")
	}

	// Before the window opens: dropped entirely.
	if entries := resolveOne(&models.ItemOverrides{
		StartTime: now.Add(time.Hour).Format(time.RFC3339),
	}); len(entries) != 0 {
		t.Error("expected not-yet-open item to be dropped")
	}

	// After the window closed: dropped entirely.
	if entries := resolveOne(&models.ItemOverrides{
		EndTime: now.Add(-time.Hour).Format(time.RFC3339),
	}); len(entries) != 0 {
		t.Error("expected expired item to be dropped")
	}

	// Unparseable timestamps are treated as absent, not as errors.
	if entries := resolveOne(&models.ItemOverrides{
		StartTime: "not-a-timestamp",
		EndTime:   "also wrong",
	}); len(entries) != 1 {
		t.Error("expected unparseable window bounds to be ignored")
	}
}

func TestResolveDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	mediaMap := mediaMapOf(
		models.MediaItem{ID: "m1", Type: models.MediaVideo, Duration: 42},
		models.MediaItem{ID: "m2", Type: models.MediaImage},
	)
	playlist := models.Playlist{Items: []models.PlaylistItem{
		{ID: "i1", MediaID: "m1", Order: 2},
		{ID: "i2", MediaID: "m2", Order: 1, Overrides: &models.ItemOverrides{Mute: true}},
	}}

	first := Resolve(playlist, mediaMap, Options{Now: now})
	second := Resolve(playlist, mediaMap, Options{Now: now})
	if !reflect.DeepEqual(first, second) {
		t.Error("resolution must be deterministic for a fixed instant")
	}
	if first[0].Src != "" {
		t.Error("resolver must leave source addresses for the hydrator")
	}
}
