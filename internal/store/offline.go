/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists the last successfully resolved queue so playback can
// continue from a snapshot when the catalog is unreachable.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/grimnir_signage/internal/models"
	"github.com/friendsincode/grimnir_signage/internal/telemetry"
)

// queueKey identifies the queue snapshot row. Versioned so a projection
// change invalidates old snapshots instead of half-decoding them.
const queueKey = "player_queue_cache_v1"

// ErrNoSnapshot signals that no usable cached queue exists; the caller must
// surface a hard error rather than silently starting with nothing.
var ErrNoSnapshot = errors.New("store: no cached queue snapshot")

// snapshot is the key/value row backing offline state.
type snapshot struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// Offline is the durable local snapshot store.
type Offline struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open creates or opens the snapshot database under dir.
func Open(dir string, logger zerolog.Logger) (*Offline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "signage.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshot{}); err != nil {
		return nil, err
	}

	return &Offline{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the underlying database handle.
func (o *Offline) Close() error {
	sqlDB, err := o.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveQueue overwrites the snapshot with the given entries. Failures are
// logged and swallowed: offline caching is an optimization, and a failed
// save must never block playback of the live queue.
func (o *Offline) SaveQueue(entries []models.QueueEntry) {
	payload, err := json.Marshal(entries)
	if err != nil {
		telemetry.SnapshotSavesTotal.WithLabelValues("error").Inc()
		o.logger.Warn().Err(err).Msg("failed to encode queue snapshot")
		return
	}

	row := snapshot{Key: queueKey, Value: string(payload), UpdatedAt: time.Now()}
	err = o.db.Save(&row).Error
	if err != nil {
		telemetry.SnapshotSavesTotal.WithLabelValues("error").Inc()
		o.logger.Warn().Err(err).Msg("failed to write queue snapshot")
		return
	}

	telemetry.SnapshotSavesTotal.WithLabelValues("ok").Inc()
	o.logger.Debug().Int("entries", len(entries)).Msg("queue snapshot saved")
}

// LoadQueue returns the cached queue, or ErrNoSnapshot when none exists or
// the stored payload cannot be decoded.
func (o *Offline) LoadQueue() ([]models.QueueEntry, error) {
	var row snapshot
	err := o.db.First(&row, "key = ?", queueKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	var entries []models.QueueEntry
	if err := json.Unmarshal([]byte(row.Value), &entries); err != nil {
		o.logger.Warn().Err(err).Msg("discarding corrupt queue snapshot")
		return nil, ErrNoSnapshot
	}
	if len(entries) == 0 {
		return nil, ErrNoSnapshot
	}
	return entries, nil
}
