/*
 * Copyright 2025 Rackhost Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package host

import "github.com/prometheus/client_golang/prometheus"

// hostMetrics holds the Prometheus collectors, one set per Host with
// its own registry so tests and multiple hosts never collide. The
// per-instance counters used on the process path are resolved to their
// label children at Adopt, so processing only ever performs atomic
// adds.
type hostMetrics struct {
	registry *prometheus.Registry

	processBlocks   *prometheus.CounterVec
	framesProcessed *prometheus.CounterVec
	processFailures *prometheus.CounterVec
	initFailures    *prometheus.CounterVec
	openInstances   *prometheus.GaugeVec
}

func newHostMetrics() *hostMetrics {
	m := &hostMetrics{
		registry: prometheus.NewRegistry(),
		processBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rackhost",
			Name:      "process_blocks_total",
			Help:      "Completed process calls.",
		}, []string{"arch"}),
		framesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rackhost",
			Name:      "frames_processed_total",
			Help:      "Audio frames pushed through process calls.",
		}, []string{"arch"}),
		processFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rackhost",
			Name:      "process_failures_total",
			Help:      "Process calls rejected by the native plugin.",
		}, []string{"arch"}),
		initFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rackhost",
			Name:      "initialize_failures_total",
			Help:      "Initialize attempts that failed and rolled back.",
		}, []string{"arch"}),
		openInstances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rackhost",
			Name:      "open_instances",
			Help:      "Currently open plugin instances.",
		}, []string{"arch"}),
	}
	m.registry.MustRegister(
		m.processBlocks,
		m.framesProcessed,
		m.processFailures,
		m.initFailures,
		m.openInstances,
	)
	return m
}

// MetricsGatherer exposes the host's Prometheus registry for scraping.
func (h *Host) MetricsGatherer() prometheus.Gatherer { return h.metrics.registry }
