/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog fetches the screen, playlist and media catalog from the
// remote signage service. The player only ever inspects the ok/error
// discriminant of a response, never transport-level detail.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/grimnir_signage/internal/models"
)

const (
	defaultRetries    = 2
	defaultRetryDelay = 500 * time.Millisecond
)

// Fetcher is the remote-catalog collaborator contract consumed by the player.
type Fetcher interface {
	GetScreenByCode(ctx context.Context, code string) (models.Screen, error)
	GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, error)
	GetMediaMap(ctx context.Context, playlistID string) (map[string]models.MediaItem, error)
}

// envelope is the service's uniform response shape.
type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// envelopeError is a definitive application-level answer from the service
// ("screen not found", "not paired"). Retrying cannot change it, unlike a
// transport failure.
type envelopeError struct {
	msg string
}

func (e *envelopeError) Error() string {
	return "catalog: " + e.msg
}

// Client talks to the catalog service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// New creates a catalog client. apiKey may be empty for open deployments.
func New(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
}

// GetScreenByCode resolves a pairing code to its screen record.
func (c *Client) GetScreenByCode(ctx context.Context, code string) (models.Screen, error) {
	var screen models.Screen
	err := c.get(ctx, "/api/player/screens/"+url.PathEscape(code), &screen)
	return screen, err
}

// GetPlaylist fetches a playlist with its items.
func (c *Client) GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, error) {
	var playlist models.Playlist
	err := c.get(ctx, "/api/player/playlists/"+url.PathEscape(playlistID), &playlist)
	return playlist, err
}

// GetMediaMap fetches the media catalog for a playlist, keyed by media id.
func (c *Client) GetMediaMap(ctx context.Context, playlistID string) (map[string]models.MediaItem, error) {
	var items []models.MediaItem
	err := c.get(ctx, "/api/player/playlists/"+url.PathEscape(playlistID)+"/media", &items)
	if err != nil {
		return nil, err
	}
	mediaMap := make(map[string]models.MediaItem, len(items))
	for _, item := range items {
		mediaMap[item.ID] = item
	}
	return mediaMap, nil
}

// get performs a GET with retry and exponential backoff, decoding the
// service envelope into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = c.doGet(ctx, path, out)
		if lastErr == nil {
			return nil
		}
		var envErr *envelopeError
		if errors.As(lastErr, &envErr) {
			return lastErr
		}
		c.logger.Debug().Err(lastErr).Str("path", path).Int("attempt", attempt).Msg("catalog request failed")
	}
	return lastErr
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Device-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	if !env.OK {
		if env.Error == "" {
			env.Error = "no data returned"
		}
		return &envelopeError{msg: env.Error}
	}
	return json.Unmarshal(env.Data, out)
}
