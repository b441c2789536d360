/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playback drives the display through its queue: a timer-driven
// state machine that owns "now playing", advances on deadlines, and
// resynchronizes after the host was suspended.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_signage/internal/events"
	"github.com/friendsincode/grimnir_signage/internal/models"
	"github.com/friendsincode/grimnir_signage/internal/queue"
	"github.com/friendsincode/grimnir_signage/internal/telemetry"
)

const (
	// DefaultPollInterval is the deadline check cadence. Coarser than any
	// render signal to avoid excess wake-ups, tight enough that item overrun
	// stays under one interval.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultDriftGrace is the overshoot tolerated on resume before the
	// elapsed hidden time counts as unrecoverable drift.
	DefaultDriftGrace = 1500 * time.Millisecond
)

// ErrEmptyQueue is returned by Start when there is nothing to play.
// An empty resolution result must be handled by the caller before hand-off.
var ErrEmptyQueue = errors.New("playback: queue has no entries")

// State of the controller.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Events are the callbacks the rendering layer consumes. Start and end calls
// strictly alternate and are paired; only the very first start after Start()
// has no preceding end. Callbacks run on the controller's goroutine and must
// not call back into the controller.
type Events struct {
	OnItemStart func(entry models.QueueEntry, index int)
	OnItemEnd   func(entry models.QueueEntry, index int)
}

// Options tunes the controller.
type Options struct {
	PollInterval time.Duration
	DriftGrace   time.Duration
	Clock        Clock
}

// Controller is the playback state machine. The queue is a ring: after the
// last entry playback wraps to index 0. At most one entry is current at a
// time.
type Controller struct {
	mu       sync.Mutex
	state    State
	queue    []models.QueueEntry
	index    int
	deadline time.Time

	clock  Clock
	poll   time.Duration
	grace  time.Duration
	events Events
	bus    *events.Bus
	logger zerolog.Logger
}

// NewController creates a controller in the Idle state. bus may be nil.
func NewController(ev Events, bus *events.Bus, logger zerolog.Logger, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DriftGrace <= 0 {
		opts.DriftGrace = DefaultDriftGrace
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	return &Controller{
		state:  StateIdle,
		clock:  opts.Clock,
		poll:   opts.PollInterval,
		grace:  opts.DriftGrace,
		events: ev,
		bus:    bus,
		logger: logger.With().Str("component", "playback").Logger(),
	}
}

// Start hands a resolved queue to the controller and begins playback at
// startIndex, emitting the first item-start synchronously. Restarting an
// already playing or stopped controller with a new queue is allowed.
func (c *Controller) Start(q []models.QueueEntry, startIndex int) error {
	if len(q) == 0 {
		return ErrEmptyQueue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if startIndex < 0 || startIndex >= len(q) {
		startIndex = 0
	}
	c.queue = q
	c.index = startIndex
	c.state = StatePlaying
	c.startCurrentLocked()
	return nil
}

// Run polls the clock at the configured cadence and advances playback when
// the current entry's deadline has passed. It returns when the context is
// cancelled or the controller is stopped.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	c.logger.Debug().Dur("poll", c.poll).Msg("playback loop started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("playback loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if c.CurrentState() == StateStopped {
				return nil
			}
			c.tick()
		}
	}
}

// tick performs one deadline check. Exposed to the loop only; transitions
// happen here and in Skip/HandleVisibility, never concurrently.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying {
		return
	}
	if !c.clock.Now().Before(c.deadline) {
		c.advanceLocked("deadline")
	}
}

// Skip force-advances past the current entry regardless of its deadline.
// The manual escape hatch for the rendering layer.
func (c *Controller) Skip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying {
		return
	}
	c.advanceLocked("skip")
}

// HandleVisibility is the host visibility transition input. On return to
// visible, an overshoot past the grace threshold is treated as unrecoverable
// drift: the controller force-advances exactly once and resumes at the next
// item. Missed items are never replayed or cycled through.
func (c *Controller) HandleVisibility(visible bool) {
	if !visible {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying {
		return
	}
	if c.clock.Now().After(c.deadline.Add(c.grace)) {
		c.advanceLocked("resync")
	}
}

// Stop transitions to Stopped and releases the polling loop. Idempotent and
// safe from any state, including before Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped {
		return
	}
	c.state = StateStopped
	c.logger.Info().Msg("playback stopped")
}

// Current returns the entry now playing, its index, and whether one exists.
func (c *Controller) Current() (models.QueueEntry, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying || len(c.queue) == 0 {
		return models.QueueEntry{}, 0, false
	}
	return c.queue[c.index], c.index, true
}

// CurrentState returns the controller state.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Queue returns a copy of the active queue.
func (c *Controller) Queue() []models.QueueEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.QueueEntry, len(c.queue))
	copy(out, c.queue)
	return out
}

// advanceLocked emits item-end for the departing entry, moves the ring index
// forward, and arms the next deadline. Caller holds c.mu.
func (c *Controller) advanceLocked(reason string) {
	ended := c.queue[c.index]
	endedIndex := c.index
	if c.events.OnItemEnd != nil {
		c.events.OnItemEnd(ended, endedIndex)
	}
	c.publish(events.EventItemEnd, ended, endedIndex)

	c.index = (c.index + 1) % len(c.queue)
	telemetry.PlaybackTransitionsTotal.WithLabelValues(reason).Inc()
	c.startCurrentLocked()
}

// startCurrentLocked arms the deadline for the current entry and emits
// item-start. Caller holds c.mu.
func (c *Controller) startCurrentLocked() {
	current := c.queue[c.index]

	duration := time.Duration(current.Duration) * time.Second
	if current.Type == models.MediaVideo && current.Duration <= 0 {
		// Metadata unknown; play the fixed fallback rather than stalling.
		duration = queue.FallbackVideoDuration * time.Second
	}
	c.deadline = c.clock.Now().Add(duration)

	c.logger.Debug().
		Str("item_id", current.ItemID).
		Int("index", c.index).
		Dur("duration", duration).
		Msg("item started")

	if c.events.OnItemStart != nil {
		c.events.OnItemStart(current, c.index)
	}
	c.publish(events.EventItemStart, current, c.index)
}

func (c *Controller) publish(eventType events.EventType, entry models.QueueEntry, index int) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventType, events.Payload{
		"item_id":  entry.ItemID,
		"media_id": entry.MediaID,
		"title":    entry.Title,
		"type":     string(entry.Type),
		"index":    index,
		"duration": entry.Duration,
		"mute":     entry.Mute,
	})
}
