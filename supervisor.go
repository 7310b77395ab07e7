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
	"context"
	"fmt"
	"sync/atomic"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
)

// TaskEventKind classifies a TaskEvent.
type TaskEventKind int

const (
	EventPlanInstalled TaskEventKind = iota
	EventPlanRejected
	EventStepDispatched
	EventStepSucceeded
	EventStepFailed
	EventPlanSucceeded
	EventPlanFailed
)

func (k TaskEventKind) String() string {
	switch k {
	case EventPlanInstalled:
		return "plan_installed"
	case EventPlanRejected:
		return "plan_rejected"
	case EventStepDispatched:
		return "step_dispatched"
	case EventStepSucceeded:
		return "step_succeeded"
	case EventStepFailed:
		return "step_failed"
	case EventPlanSucceeded:
		return "plan_succeeded"
	case EventPlanFailed:
		return "plan_failed"
	default:
		return "unknown"
	}
}

// TaskEvent reports a state transition observed by a Supervisor, delivered
// over its Events channel.
type TaskEvent struct {
	Kind     TaskEventKind
	PlanID   string
	StepID   string
	TaskName string
	Detail   string
	At       time.Time
}

// nowFunc exists so tests can stub wall-clock time; it is never replaced
// inside this package itself.
var nowFunc = time.Now

// Supervisor owns one agent's live state, its current Plan, and the
// dispatch loop that drives each step's operator to completion through a
// behavior tree. It is not internally goroutine-safe beyond MarkStateDirty
// and RequestReplan, which a caller may invoke from another goroutine;
// Tick, Complete and every other method are expected to be called from a
// single owning goroutine, matching one Supervisor per agent.
type Supervisor[T any] struct {
	agentID  string
	domain   *Domain[T]
	registry *OperatorRegistry[T]
	planner  *Planner[T]
	metrics  *Metrics

	state T

	dirty   atomic.Bool
	replan  atomic.Bool
	current *Plan
	node    bt.Node

	events chan TaskEvent
}

// SupervisorOption configures a Supervisor.
type SupervisorOption[T any] func(*Supervisor[T])

// WithMetrics attaches a shared Metrics instance to the Supervisor.
func WithMetrics[T any](m *Metrics) SupervisorOption[T] {
	return func(s *Supervisor[T]) { s.metrics = m }
}

// WithEventBuffer overrides the default Events channel capacity.
func WithEventBuffer[T any](n int) SupervisorOption[T] {
	return func(s *Supervisor[T]) {
		if n > 0 {
			s.events = make(chan TaskEvent, n)
		}
	}
}

const defaultEventBuffer = 64

// NewSupervisor constructs a Supervisor for one agent, with no installed
// plan but a pending replan request, so the first Tick plans immediately.
func NewSupervisor[T any](agentID string, domain *Domain[T], registry *OperatorRegistry[T], planner *Planner[T], initial T, opts ...SupervisorOption[T]) *Supervisor[T] {
	s := &Supervisor[T]{
		agentID:  agentID,
		domain:   domain,
		registry: registry,
		planner:  planner,
		state:    initial,
		events:   make(chan TaskEvent, defaultEventBuffer),
	}
	s.replan.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the channel TaskEvents are delivered on. It must be drained
// by the caller; when the channel is full the new event is dropped (counted
// in Metrics) rather than blocking Tick.
func (s *Supervisor[T]) Events() <-chan TaskEvent {
	return s.events
}

// MarkStateDirty flags that the live state has changed out from under the
// current plan (e.g. sensor input was applied) and a revalidation should
// happen on the next Tick. Safe to call from any goroutine.
func (s *Supervisor[T]) MarkStateDirty() {
	s.dirty.Store(true)
}

// RequestReplan forces the next Tick to attempt a fresh plan regardless of
// whether the state is flagged dirty. Safe to call from any goroutine.
func (s *Supervisor[T]) RequestReplan() {
	s.replan.Store(true)
}

// State returns a copy of the agent's current live state.
func (s *Supervisor[T]) State() T {
	return s.state
}

// ApplyToState mutates the agent's live state in place via fn and marks it
// dirty, for callers integrating sensor input or external events.
func (s *Supervisor[T]) ApplyToState(fn func(*T)) {
	fn(&s.state)
	s.MarkStateDirty()
}

// CurrentPlan returns the supervisor's installed plan, or nil if idle.
func (s *Supervisor[T]) CurrentPlan() *Plan {
	return s.current
}

func (s *Supervisor[T]) emit(kind TaskEventKind, planID, stepID, taskName, detail string) {
	ev := TaskEvent{Kind: kind, PlanID: planID, StepID: stepID, TaskName: taskName, Detail: detail, At: nowFunc()}
	select {
	case s.events <- ev:
	default:
		s.metrics.observeEventDropped(s.agentID)
	}
}

// Tick advances the supervisor by at most one unit of work: it replans if
// asked to (or flagged dirty) and the result is actually an improvement,
// dispatches the current plan's next step if it is not already running, and
// ticks that step's behavior tree once. It returns the context's error, if
// any, without otherwise blocking.
func (s *Supervisor[T]) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.maybeReplan() {
		// installing a plan is this Tick's unit of work; its first step is
		// dispatched on the next Tick
		return nil
	}

	if s.current == nil || s.current.Empty() {
		s.metrics.setActiveStepIndex(s.agentID, -1)
		return nil
	}

	step, ok := s.current.CurrentStep()
	if !ok {
		s.metrics.setActiveStepIndex(s.agentID, -1)
		return nil
	}
	s.metrics.setActiveStepIndex(s.agentID, s.current.NextIndex)

	task, ok := s.domain.TaskByName(step.Name)
	if !ok || task.Primitive == nil {
		s.failCurrentStep(fmt.Sprintf("step %q does not resolve to a primitive task", step.Name))
		return nil
	}

	if step.Status == StepNotStarted {
		if cond, failed := task.Primitive.FirstFailingPrecondition(s.state); failed {
			s.failCurrentStep(fmt.Sprintf("precondition no longer holds: %s", cond.Syntax()))
			return nil
		}
		node, err := s.registry.Instantiate(task.Primitive.OperatorName, task.Primitive.OperatorParams, s.state)
		if err != nil {
			s.failCurrentStep(err.Error())
			return nil
		}
		s.node = node
		step.Status = StepRunning
		s.emit(EventStepDispatched, s.current.PlanID, step.StepID, step.Name, "")
	}

	if s.node == nil {
		return nil
	}
	status, err := tickNode(s.node)
	if err != nil {
		s.completeStep(task, step, false, err.Error())
		return nil
	}
	switch status {
	case bt.Running:
		return nil
	case bt.Success:
		s.completeStep(task, step, true, "")
	case bt.Failure:
		s.completeStep(task, step, false, "operator reported failure")
	}
	return nil
}

// tickNode runs a single tick of a behavior tree node.
func tickNode(n bt.Node) (bt.Status, error) {
	return n.Tick()
}

func (s *Supervisor[T]) failCurrentStep(detail string) {
	step, ok := s.current.CurrentStep()
	if !ok {
		return
	}
	s.current.ReportCompletion(step.StepID, false)
	s.node = nil
	s.emit(EventStepFailed, s.current.PlanID, step.StepID, step.Name, detail)
	s.metrics.observeStepCompletion(s.agentID, "failure")
	s.emit(EventPlanFailed, s.current.PlanID, "", "", detail)
	s.current = nil
	s.replan.Store(true)
}

// completeStep applies a primitive task's real effects (bypassing the dirty
// flag: a plan's own actions are assumed consistent with what the planner
// expected, so they do not themselves trigger revalidation) and advances the
// plan.
func (s *Supervisor[T]) completeStep(task Task[T], step *Step, success bool, detail string) {
	planID, stepID, name := s.current.PlanID, step.StepID, step.Name
	if success {
		task.Primitive.ApplyEffects(&s.state)
	}
	s.current.ReportCompletion(stepID, success)
	s.node = nil

	if success {
		s.emit(EventStepSucceeded, planID, stepID, name, detail)
		s.metrics.observeStepCompletion(s.agentID, "success")
	} else {
		s.emit(EventStepFailed, planID, stepID, name, detail)
		s.metrics.observeStepCompletion(s.agentID, "failure")
	}

	switch s.current.Status {
	case PlanSucceeded:
		s.emit(EventPlanSucceeded, planID, "", "", "")
		s.current = nil
		s.replan.Store(true)
	case PlanFailed:
		s.emit(EventPlanFailed, planID, "", "", detail)
		s.current = nil
		s.replan.Store(true)
	}
}

// Complete reports the outcome of a step from outside the Tick/behavior-tree
// path (e.g. an asynchronous executor that does not model itself as a
// go-behaviortree node). A stepID that does not match the current plan's
// current step is silently dropped: it is a stale event from a plan that has
// since been superseded.
func (s *Supervisor[T]) Complete(stepID string, success bool) {
	if s.current == nil {
		return
	}
	step, ok := s.current.CurrentStep()
	if !ok || step.StepID != stepID {
		return
	}
	task, ok := s.domain.TaskByName(step.Name)
	if !ok || task.Primitive == nil {
		return
	}
	s.completeStep(task, step, success, "")
}

// maybeReplan runs the planner if RequestReplan was called or the state was
// flagged dirty. A dirty state first invalidates the current plan when its
// remaining steps no longer check out; either way a fresh candidate is
// planned and arbitrated by MTR priority: it replaces the current plan
// unless the current plan has strictly higher priority, or an identical MTR
// (nothing would change). It reports whether a new plan was installed.
func (s *Supervisor[T]) maybeReplan() bool {
	forced := s.replan.Swap(false)
	dirty := s.dirty.Swap(false)
	if !forced && !dirty {
		return false
	}

	if dirty && s.current != nil {
		if valid, syntax := CheckValidity[T](s.current, s.domain, s.state); !valid {
			s.current.Status = PlanFailed
			s.node = nil
			s.emit(EventPlanFailed, s.current.PlanID, "", "", "invalidated: "+syntax)
			s.current = nil
		}
	}

	start := nowFunc()
	candidate := s.planner.Plan(s.state)
	s.metrics.observePlanDuration(s.agentID, nowFunc().Sub(start).Seconds())

	if candidate.Empty() {
		s.metrics.observeReplan(s.agentID, "empty")
		return false
	}

	if s.current != nil {
		cmp := ComparePriority(s.current.MTR, candidate.MTR)
		if cmp <= 0 {
			// current plan is at least as good (higher or equal priority): keep it.
			s.metrics.observeReplan(s.agentID, "superseded_by_current")
			return false
		}
	}

	if s.current != nil {
		s.emit(EventPlanRejected, s.current.PlanID, "", "", "superseded by higher-priority plan")
	}
	s.current = candidate
	s.node = nil
	s.metrics.observeReplan(s.agentID, "installed")
	s.emit(EventPlanInstalled, candidate.PlanID, "", "", "")
	return true
}
