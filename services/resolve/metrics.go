// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Overload Resolution
// =============================================================================

var (
	// callsTotal counts resolved calls by outcome.
	// Labels: outcome (resolved, no_candidates, arity_mismatch, ambiguous, error)
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolve",
		Subsystem: "service",
		Name:      "calls_total",
		Help:      "Total resolved calls by outcome",
	}, []string{"outcome"})

	// callLatencySeconds measures lookup plus resolution latency.
	callLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "resolve",
		Subsystem: "service",
		Name:      "call_latency_seconds",
		Help:      "Latency of lookup plus resolution for one call",
		Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// candidatesPerCall measures how many candidates lookup produced.
	candidatesPerCall = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "resolve",
		Subsystem: "service",
		Name:      "candidates_per_call",
		Help:      "Number of candidates produced by lookup per call",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 50, 100},
	})

	// phaseEliminatedTotal counts candidates removed by each pass.
	// Labels: phase (arity, dedup, access, arity_relaxed, applicability, specifics, unique)
	phaseEliminatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolve",
		Subsystem: "service",
		Name:      "phase_eliminated_total",
		Help:      "Candidates eliminated by each resolution pass",
	}, []string{"phase"})

	// expectationsTotal counts checked expectations by result.
	// Labels: result (pass, fail)
	expectationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolve",
		Subsystem: "service",
		Name:      "expectations_total",
		Help:      "Checked call expectations by result",
	}, []string{"result"})

	// universesLoaded tracks the number of loaded universes.
	universesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "resolve",
		Subsystem: "service",
		Name:      "universes_loaded",
		Help:      "Number of universes currently loaded",
	})
)

func recordCall(result *ResolveResult, candidates int, duration time.Duration) {
	callsTotal.WithLabelValues(result.Outcome).Inc()
	callLatencySeconds.Observe(duration.Seconds())
	candidatesPerCall.Observe(float64(candidates))
	for _, p := range result.Phases {
		if removed := p.Before - p.After; removed > 0 {
			phaseEliminatedTotal.WithLabelValues(p.Phase).Add(float64(removed))
		}
	}
	if result.Pass != nil {
		if *result.Pass {
			expectationsTotal.WithLabelValues("pass").Inc()
		} else {
			expectationsTotal.WithLabelValues("fail").Inc()
		}
	}
}

func recordCallError() {
	callsTotal.WithLabelValues("error").Inc()
}
