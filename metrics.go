/*
   Copyright 2024 The htnplan Authors

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

package htn

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by every Supervisor in a
// process. A single Metrics is meant to be constructed once and passed to
// every Supervisor (they are labeled by agent, so registering the same
// collectors per agent would panic on the second Supervisor). A Supervisor
// built without WithMetrics, or with WithMetrics(nil), records nothing.
type Metrics struct {
	replans          *prometheus.CounterVec
	planDuration     *prometheus.HistogramVec
	stepCompletions  *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	activePlanStatus *prometheus.GaugeVec
}

// NewMetrics constructs a Metrics and registers its collectors with reg. reg
// may be prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		replans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "htnplan",
			Name:      "replans_total",
			Help:      "Number of supervisor replan attempts, by outcome (installed, empty, superseded_by_current).",
		}, []string{"agent", "reason"}),
		planDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "htnplan",
			Name:      "plan_duration_seconds",
			Help:      "Wall-clock time spent inside Planner.Plan.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent"}),
		stepCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "htnplan",
			Name:      "step_completions_total",
			Help:      "Primitive task step completions, by outcome.",
		}, []string{"agent", "status"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "htnplan",
			Name:      "events_dropped_total",
			Help:      "TaskEvents dropped because a supervisor's event channel was full.",
		}, []string{"agent"}),
		activePlanStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "htnplan",
			Name:      "active_plan_step_index",
			Help:      "Index of the step currently being dispatched in the active plan, or -1 if idle.",
		}, []string{"agent"}),
	}
	reg.MustRegister(m.replans, m.planDuration, m.stepCompletions, m.eventsDropped, m.activePlanStatus)
	return m
}

func (m *Metrics) observeReplan(agent, reason string) {
	if m == nil {
		return
	}
	m.replans.WithLabelValues(agent, reason).Inc()
}

func (m *Metrics) observePlanDuration(agent string, seconds float64) {
	if m == nil {
		return
	}
	m.planDuration.WithLabelValues(agent).Observe(seconds)
}

func (m *Metrics) observeStepCompletion(agent, status string) {
	if m == nil {
		return
	}
	m.stepCompletions.WithLabelValues(agent, status).Inc()
}

func (m *Metrics) observeEventDropped(agent string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(agent).Inc()
}

func (m *Metrics) setActiveStepIndex(agent string, index int) {
	if m == nil {
		return
	}
	m.activePlanStatus.WithLabelValues(agent).Set(float64(index))
}
