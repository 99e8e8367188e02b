// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mprisctl_signals_total",
		Help: "Signals received from players, by signal kind",
	}, []string{"player", "kind"})

	FallbackPullsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mprisctl_fallback_pulls_total",
		Help: "Full state pulls after the idle timeout, by whether they found a difference",
	}, []string{"player", "changed"})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mprisctl_events_total",
		Help: "Events delivered to consumers, by event type",
	}, []string{"player", "event"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mprisctl_diagnostics_total",
		Help: "Absorbed decode problems, by kind",
	}, []string{"player", "kind"})

	TransportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mprisctl_transport_errors_total",
		Help: "Failed bus operations surfaced as error events",
	}, []string{"player"})

	EnginesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mprisctl_engines_active",
		Help: "Event engines currently observing a player",
	})
)

func label(player string) string {
	if player == "" {
		return "unknown"
	}
	return player
}

func IncSignal(player, kind string) {
	SignalsTotal.WithLabelValues(label(player), kind).Inc()
}

func IncFallbackPull(player string, changed bool) {
	c := "false"
	if changed {
		c = "true"
	}
	FallbackPullsTotal.WithLabelValues(label(player), c).Inc()
}

func IncEvent(player, event string) {
	EventsTotal.WithLabelValues(label(player), event).Inc()
}

func IncDiagnostic(player, kind string) {
	DiagnosticsTotal.WithLabelValues(label(player), kind).Inc()
}

func IncTransportError(player string) {
	TransportErrorsTotal.WithLabelValues(label(player)).Inc()
}
