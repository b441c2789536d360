/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package preload warms a bounded lookahead window of upcoming assets so
// playback transitions are not blocked on network fetch.
package preload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_signage/internal/models"
	"github.com/friendsincode/grimnir_signage/internal/telemetry"
)

// DefaultWindow is the number of upcoming entries warmed ahead of playback.
const DefaultWindow = 3

// videoProbeBytes bounds the Range read used to pull video metadata without
// buffering the whole stream.
const videoProbeBytes = 128 * 1024

// Result is the per-entry preload outcome. One entry's failure never blocks
// or cancels the others; the aggregate call never fails.
type Result struct {
	Entry models.QueueEntry
	OK    bool
	Err   string
}

// Preloader fetches upcoming assets best-effort and concurrently.
type Preloader struct {
	client *http.Client
	window int
	logger zerolog.Logger
}

// Options tunes the preloader.
type Options struct {
	Window  int
	Timeout time.Duration
	Client  *http.Client // overrides Timeout when set
}

// New creates a preloader.
func New(logger zerolog.Logger, opts Options) *Preloader {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Preloader{
		client: client,
		window: opts.Window,
		logger: logger.With().Str("component", "preload").Logger(),
	}
}

// Preload warms the slice of up to window entries immediately following
// currentIndex. There is no wraparound; a queue shorter than the window
// preloads what exists. All entries are fetched concurrently and each
// outcome is reported individually.
func (p *Preloader) Preload(ctx context.Context, q []models.QueueEntry, currentIndex int) []Result {
	start := currentIndex + 1
	if start < 0 {
		start = 0
	}
	end := start + p.window
	if start > len(q) {
		start = len(q)
	}
	if end > len(q) {
		end = len(q)
	}
	slice := q[start:end]

	results := make([]Result, len(slice))
	var wg sync.WaitGroup
	for i, entry := range slice {
		wg.Add(1)
		go func(i int, entry models.QueueEntry) {
			defer wg.Done()
			results[i] = p.preloadSingle(ctx, entry)
		}(i, entry)
	}
	wg.Wait()

	for _, res := range results {
		status := "ok"
		if !res.OK {
			status = "error"
		}
		telemetry.PreloadResultsTotal.WithLabelValues(string(res.Entry.Type), status).Inc()
	}
	return results
}

func (p *Preloader) preloadSingle(ctx context.Context, entry models.QueueEntry) Result {
	var err error
	switch entry.Type {
	case models.MediaImage:
		err = p.fetchFull(ctx, entry.Src)
	case models.MediaVideo:
		err = p.probeMetadata(ctx, entry.Src)
	default:
		// pdf/html/slides/url render on demand; nothing to warm.
	}
	if err != nil {
		p.logger.Debug().Err(err).Str("item_id", entry.ItemID).Msg("preload failed")
		return Result{Entry: entry, Err: err.Error()}
	}
	return Result{Entry: entry, OK: true}
}

// fetchFull downloads the resource to completion; success means the asset is
// now in any intermediate HTTP cache and the source is known good.
func (p *Preloader) fetchFull(ctx context.Context, src string) error {
	if src == "" {
		return fmt.Errorf("no source address")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// probeMetadata pulls only the leading bytes of a video. Success means the
// container metadata is reachable, not that the stream is buffered.
func (p *Preloader) probeMetadata(ctx context.Context, src string) error {
	if src == "" {
		return fmt.Errorf("no source address")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", videoProbeBytes-1))
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, err = io.CopyN(io.Discard, resp.Body, videoProbeBytes)
	if err == io.EOF {
		err = nil
	}
	return err
}
