/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolveCyclesTotal counts resolution cycles by outcome (live, fallback, error).
	ResolveCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_signage_resolve_cycles_total",
		Help: "Playlist resolution cycles by outcome.",
	}, []string{"outcome"})

	// QueueEntries tracks the length of the active playback queue.
	QueueEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grimnir_signage_queue_entries",
		Help: "Entries in the active playback queue.",
	})

	// PlaybackTransitionsTotal counts item transitions by reason (deadline, skip, resync).
	PlaybackTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_signage_playback_transitions_total",
		Help: "Playback item transitions by trigger reason.",
	}, []string{"reason"})

	// HydrationFailuresTotal counts entries left without a resolved source address.
	HydrationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grimnir_signage_hydration_failures_total",
		Help: "Queue entries whose source address could not be resolved.",
	})

	// PreloadResultsTotal counts preload outcomes by media type and status.
	PreloadResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_signage_preload_results_total",
		Help: "Preload attempts by media type and status.",
	}, []string{"type", "status"})

	// SnapshotSavesTotal counts offline snapshot writes by status.
	SnapshotSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_signage_snapshot_saves_total",
		Help: "Offline queue snapshot writes by status.",
	}, []string{"status"})
)
