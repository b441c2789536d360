/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "device-key-1", 5*time.Second, zerolog.Nop())
	// Keep retry backoff out of the test runtime.
	c.retryDelay = time.Millisecond
	return c, srv
}

func TestGetScreenByCode(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/player/screens/LOBBY1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Device-Key"); got != "device-key-1" {
			t.Errorf("expected device key header, got %q", got)
		}
		w.Write([]byte(`{"ok":true,"data":{"id":"s1","code":"LOBBY1","playlistId":"pl1"}}`))
	}))

	screen, err := c.GetScreenByCode(context.Background(), "LOBBY1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if screen.ID != "s1" || screen.PlaylistID != "pl1" {
		t.Errorf("unexpected screen %+v", screen)
	}
}

func TestGetPlaylistDecodesItems(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"data":{"id":"pl1","name":"Lobby","items":[
			{"id":"i1","mediaId":"m1","order":2},
			{"id":"i2","mediaId":"m2","order":1,"overrides":{"duration":5,"mute":true}}
		]}}`))
	}))

	playlist, err := c.GetPlaylist(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(playlist.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(playlist.Items))
	}
	ov := playlist.Items[1].Overrides
	if ov == nil || ov.Duration == nil || *ov.Duration != 5 || !ov.Mute {
		t.Errorf("overrides not decoded: %+v", ov)
	}
}

func TestGetMediaMapKeysByID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/player/playlists/pl1/media") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"data":[
			{"id":"m1","type":"video","storage_path":"videos/a.mp4","duration":12.5},
			{"id":"m2","type":"image","url":"https://cdn.example.com/b.png"}
		]}`))
	}))

	mediaMap, err := c.GetMediaMap(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(mediaMap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(mediaMap))
	}
	if mediaMap["m1"].StorageKey != "videos/a.mp4" || mediaMap["m1"].Duration != 12.5 {
		t.Errorf("unexpected media m1: %+v", mediaMap["m1"])
	}
	if mediaMap["m2"].URL != "https://cdn.example.com/b.png" {
		t.Errorf("unexpected media m2: %+v", mediaMap["m2"])
	}
}

func TestEnvelopeErrorSurfaces(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"screen not paired"}`))
	}))

	_, err := c.GetScreenByCode(context.Background(), "NOPE")
	if err == nil || !strings.Contains(err.Error(), "screen not paired") {
		t.Fatalf("expected envelope error, got %v", err)
	}
}

func TestEnvelopeErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"ok":false,"error":"screen not found"}`))
	}))

	_, err := c.GetScreenByCode(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected error")
	}
	// A definitive service answer must not consume the retry budget.
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestRetryThenSucceed(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true,"data":{"id":"s1","code":"X"}}`))
	}))

	screen, err := c.GetScreenByCode(context.Background(), "X")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if screen.ID != "s1" {
		t.Errorf("unexpected screen %+v", screen)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.GetScreenByCode(context.Background(), "X")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Errorf("expected initial attempt plus 2 retries, got %d", calls.Load())
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetScreenByCode(ctx, "X")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
