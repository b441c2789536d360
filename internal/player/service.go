/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player orchestrates the resolution cycle: fetch playlist and
// catalog, resolve and hydrate the queue, snapshot it, and drive playback —
// falling back to the cached snapshot when the catalog is unreachable.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_signage/internal/catalog"
	"github.com/friendsincode/grimnir_signage/internal/config"
	"github.com/friendsincode/grimnir_signage/internal/events"
	"github.com/friendsincode/grimnir_signage/internal/models"
	"github.com/friendsincode/grimnir_signage/internal/playback"
	"github.com/friendsincode/grimnir_signage/internal/preload"
	"github.com/friendsincode/grimnir_signage/internal/queue"
	"github.com/friendsincode/grimnir_signage/internal/telemetry"
)

// Hydrator fills resolved entries with playable addresses.
type Hydrator interface {
	Hydrate(ctx context.Context, entries []models.QueueEntry, mediaMap map[string]models.MediaItem)
}

// SnapshotStore is the offline queue cache contract.
type SnapshotStore interface {
	SaveQueue(entries []models.QueueEntry)
	LoadQueue() ([]models.QueueEntry, error)
}

// State is a diagnostic snapshot of the player for the HTTP surface.
type State struct {
	State         string             `json:"state"`
	Offline       bool               `json:"offline"`
	CycleID       string             `json:"cycle_id,omitempty"`
	Index         int                `json:"index"`
	Current       *models.QueueEntry `json:"current,omitempty"`
	QueueLength   int                `json:"queue_length"`
	UptimeSeconds int64              `json:"uptime_seconds"`
}

// Service ties the resolution pipeline to the playback controller.
type Service struct {
	cfg        *config.Config
	fetcher    catalog.Fetcher
	hydrator   Hydrator
	preloader  *preload.Preloader
	snapshots  SnapshotStore
	bus        *events.Bus
	controller *playback.Controller
	logger     zerolog.Logger

	mu        sync.Mutex
	runCtx    context.Context
	cycleID   string
	offline   bool
	queue     []models.QueueEntry
	startedAt time.Time
}

// New wires the player service. The controller is created here so its
// item-start events can key the preload window off the current index.
func New(cfg *config.Config, fetcher catalog.Fetcher, hydrator Hydrator, preloader *preload.Preloader, snapshots SnapshotStore, bus *events.Bus, clock playback.Clock, logger zerolog.Logger) *Service {
	s := &Service{
		cfg:       cfg,
		fetcher:   fetcher,
		hydrator:  hydrator,
		preloader: preloader,
		snapshots: snapshots,
		bus:       bus,
		logger:    logger.With().Str("component", "player").Logger(),
		startedAt: time.Now(),
	}

	s.controller = playback.NewController(playback.Events{
		OnItemStart: s.onItemStart,
	}, bus, logger, playback.Options{
		PollInterval: cfg.PollInterval,
		DriftGrace:   cfg.DriftGrace,
		Clock:        clock,
	})

	return s
}

// Run performs the initial resolution cycle, starts the playback loop, and
// keeps re-resolving on the refresh interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	loopDone := make(chan error, 1)
	go func() { loopDone <- s.controller.Run(ctx) }()

	s.Refresh(ctx)

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("refresh", s.cfg.RefreshInterval).Msg("player loop started")
	for {
		select {
		case <-ctx.Done():
			s.controller.Stop()
			<-loopDone
			s.logger.Info().Msg("player loop stopped")
			return ctx.Err()
		case err := <-loopDone:
			return err
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Refresh runs one resolution cycle: fetch, resolve, hydrate, snapshot,
// play. On any fetch failure or an empty resolution the cached snapshot is
// consulted instead.
func (s *Service) Refresh(ctx context.Context) {
	cycleID := uuid.NewString()
	log := s.logger.With().Str("cycle_id", cycleID).Logger()

	screen, err := s.fetcher.GetScreenByCode(ctx, s.cfg.ScreenCode)
	if err != nil {
		log.Warn().Err(err).Msg("screen fetch failed")
		s.fallback(cycleID, err.Error())
		return
	}
	if screen.PlaylistID == "" {
		log.Warn().Str("screen", screen.ID).Msg("screen has no assigned playlist")
		s.fallback(cycleID, "screen has no assigned playlist")
		return
	}

	playlist, err := s.fetcher.GetPlaylist(ctx, screen.PlaylistID)
	if err != nil {
		log.Warn().Err(err).Msg("playlist fetch failed")
		s.fallback(cycleID, err.Error())
		return
	}

	mediaMap, err := s.fetcher.GetMediaMap(ctx, screen.PlaylistID)
	if err != nil {
		log.Warn().Err(err).Msg("media catalog fetch failed")
		s.fallback(cycleID, err.Error())
		return
	}

	entries := queue.Resolve(playlist, mediaMap, queue.Options{})
	if len(entries) == 0 {
		// Fatal to this cycle: never loop on nothing. The cache decides
		// between fallback and hard error.
		log.Warn().Str("playlist", playlist.ID).Msg("resolution produced no playable entries")
		s.fallback(cycleID, "no playable entries")
		return
	}

	s.hydrator.Hydrate(ctx, entries, mediaMap)
	s.snapshots.SaveQueue(entries)

	telemetry.ResolveCyclesTotal.WithLabelValues("live").Inc()
	s.bus.Publish(events.EventQueueResolved, events.Payload{
		"cycle_id": cycleID,
		"playlist": playlist.ID,
		"entries":  len(entries),
	})
	s.startQueue(cycleID, entries, false)
}

// fallback plays the cached snapshot; with no usable cache it surfaces a
// hard error and leaves any current playback untouched.
func (s *Service) fallback(cycleID, cause string) {
	cached, err := s.snapshots.LoadQueue()
	if err != nil {
		telemetry.ResolveCyclesTotal.WithLabelValues("error").Inc()
		s.bus.Publish(events.EventPlayerError, events.Payload{
			"cycle_id": cycleID,
			"cause":    cause,
			"error":    "no cached queue available",
		})
		s.logger.Error().Str("cause", cause).Msg("resolution failed and no cached queue available")
		return
	}

	telemetry.ResolveCyclesTotal.WithLabelValues("fallback").Inc()
	s.bus.Publish(events.EventQueueFallback, events.Payload{
		"cycle_id": cycleID,
		"cause":    cause,
		"entries":  len(cached),
	})
	s.logger.Info().Int("entries", len(cached)).Str("cause", cause).Msg("playing cached queue")
	s.startQueue(cycleID, cached, true)
}

// startQueue hands the queue to the controller unless it already plays an
// identical one, so a no-op refresh is invisible on screen.
func (s *Service) startQueue(cycleID string, entries []models.QueueEntry, offline bool) {
	s.mu.Lock()
	unchanged := s.controller.CurrentState() == playback.StatePlaying &&
		s.offline == offline &&
		models.QueuesEqual(s.queue, entries)
	if !unchanged {
		s.queue = entries
		s.offline = offline
		s.cycleID = cycleID
	}
	s.mu.Unlock()

	telemetry.QueueEntries.Set(float64(len(entries)))
	if unchanged {
		s.logger.Debug().Msg("queue unchanged, playback continues")
		return
	}

	if err := s.controller.Start(entries, 0); err != nil {
		// Resolve guarantees non-empty here; log rather than mask the bug.
		s.logger.Error().Err(err).Msg("controller rejected queue")
	}
}

// onItemStart warms the lookahead window behind the new current item.
func (s *Service) onItemStart(_ models.QueueEntry, index int) {
	s.mu.Lock()
	ctx := s.runCtx
	q := s.queue
	s.mu.Unlock()
	if ctx == nil || s.preloader == nil {
		return
	}

	go func() {
		results := s.preloader.Preload(ctx, q, index)
		for _, res := range results {
			if res.OK {
				continue
			}
			s.bus.Publish(events.EventPreloadResult, events.Payload{
				"item_id": res.Entry.ItemID,
				"type":    string(res.Entry.Type),
				"error":   res.Err,
			})
		}
	}()
}

// Skip force-advances playback past the current item.
func (s *Service) Skip() {
	s.controller.Skip()
}

// HandleVisibility forwards a host visibility transition to the controller.
func (s *Service) HandleVisibility(visible bool) {
	s.controller.HandleVisibility(visible)
}

// Queue returns a copy of the active queue.
func (s *Service) Queue() []models.QueueEntry {
	return s.controller.Queue()
}

// State reports a diagnostic snapshot.
func (s *Service) State() State {
	s.mu.Lock()
	cycleID := s.cycleID
	offline := s.offline
	startedAt := s.startedAt
	s.mu.Unlock()

	st := State{
		State:         s.controller.CurrentState().String(),
		Offline:       offline,
		CycleID:       cycleID,
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
	if entry, index, ok := s.controller.Current(); ok {
		st.Current = &entry
		st.Index = index
		st.QueueLength = len(s.controller.Queue())
	}
	return st
}
