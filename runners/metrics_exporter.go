/*
   Copyright @ 2023 storinit authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package runners

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/storinit-io/storinit/pkg/storage"
	"github.com/storinit-io/storinit/utils/log"
)

const (
	Namespace = "storinit"
	Subsystem = "storage"
)

// MetricsExporter publishes reset-loop progress as prometheus metrics.
type MetricsExporter struct {
	resetAttempts prometheus.Counter
	resetFailures prometheus.Counter
	initialized   prometheus.Gauge

	initializer   *storage.Initializer
	updateChannel chan *storage.InitEvent
}

// NewMetricsExporter creates a runner exporting the initializer's reset
// attempts, failures and completion state.
func NewMetricsExporter(initializer *storage.Initializer, reg prometheus.Registerer) *MetricsExporter {
	resetAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "reset_attempts_total",
		Help:      "Number of storage reset attempts",
	})

	resetFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "reset_failures_total",
		Help:      "Number of storage reset attempts that raised a recoverable error",
	})

	initialized := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "initialized",
		Help:      "Whether the storage model is initialized",
	})

	reg.MustRegister(resetAttempts)
	reg.MustRegister(resetFailures)
	reg.MustRegister(initialized)

	m := &MetricsExporter{
		resetAttempts: resetAttempts,
		resetFailures: resetFailures,
		initialized:   initialized,
		initializer:   initializer,
		updateChannel: make(chan *storage.InitEvent, 500), // Buffer up to 500 events
	}

	// Subscribe before the runner starts so no reset event is missed.
	m.initializer.RegisterNoticeChan(m.updateChannel)

	return m
}

// Start runs the exporter until the context is cancelled.
func (m *MetricsExporter) Start(ctx context.Context) error {
	log.Infof("Starting metricsExporter")
	defer log.Infof("Shutting down metricsExporter")

	for {
		select {
		case ev := <-m.updateChannel:
			m.handleEvent(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *MetricsExporter) handleEvent(ev *storage.InitEvent) {
	log.Debugf("Update metric, trigger: %s, trigger at: %v", ev.Trigger, ev.TriggerAt.Format("2006-01-02 15:04:05.000000000"))

	switch ev.Trigger {
	case storage.TriggerAttempt:
		m.resetAttempts.Inc()
		m.initialized.Set(0)
	case storage.TriggerFailure:
		m.resetFailures.Inc()
	case storage.TriggerInitialized:
		m.initialized.Set(1)
	}
}
