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
	"strconv"

	"github.com/google/uuid"
)

// StepStatus is the lifecycle of a single plan step.
type StepStatus int

const (
	StepNotStarted StepStatus = iota
	StepRunning
	StepSuccess
	StepFailure
)

func (s StepStatus) String() string {
	switch s {
	case StepNotStarted:
		return "not_started"
	case StepRunning:
		return "running"
	case StepSuccess:
		return "success"
	case StepFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Step is one primitive task dispatched as part of a Plan.
type Step struct {
	StepID         string
	Name           string
	OperatorName   string
	OperatorParams []string
	Status         StepStatus
}

// PlanStatus is the overall lifecycle of a Plan.
type PlanStatus int

const (
	PlanPending PlanStatus = iota
	PlanSucceeded
	PlanFailed
)

func (s PlanStatus) String() string {
	switch s {
	case PlanPending:
		return "pending"
	case PlanSucceeded:
		return "succeeded"
	case PlanFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Plan is a fully decomposed, ordered sequence of primitive-task Steps,
// tagged with the Method Traversal Record that produced it. PlanID and each
// StepID are unique identifiers, used by a Supervisor to correlate
// completion events against the plan (and step) that produced them.
type Plan struct {
	PlanID    string
	Steps     []Step
	MTR       []int
	NextIndex int
	Status    PlanStatus
}

// newPlanID returns a fresh random plan identifier.
func newPlanID() string {
	return uuid.NewString()
}

// NewPlan builds a Plan from an ordered step list and the MTR that produced
// it, assigning each step a unique StepID derived from the plan ID, its
// index, and its task name.
func NewPlan(steps []Step, mtr []int) *Plan {
	id := newPlanID()
	for i := range steps {
		steps[i].StepID = stepID(id, i, steps[i].Name)
		steps[i].Status = StepNotStarted
	}
	return &Plan{
		PlanID: id,
		Steps:  steps,
		MTR:    mtr,
		Status: PlanPending,
	}
}

func stepID(planID string, index int, name string) string {
	return planID + "#" + strconv.Itoa(index) + ":" + name
}

// Empty reports whether the plan carries no steps at all — the result of a
// planner run that hit its iteration cap (a safety valve, not an error) or
// whose root task happened to decompose into nothing.
func (p *Plan) Empty() bool {
	return len(p.Steps) == 0
}

// CurrentStep returns the next not-yet-completed step, or ok=false once the
// plan is exhausted.
func (p *Plan) CurrentStep() (*Step, bool) {
	if p.NextIndex < 0 || p.NextIndex >= len(p.Steps) {
		return nil, false
	}
	return &p.Steps[p.NextIndex], true
}

// ReportCompletion records the outcome of the step identified by stepID. It
// is a no-op (returning ok=false) if stepID does not match the plan's
// current step, which callers use to silently drop stale completion events
// from a superseded plan.
func (p *Plan) ReportCompletion(stepID string, success bool) bool {
	step, ok := p.CurrentStep()
	if !ok || step.StepID != stepID {
		return false
	}
	if success {
		step.Status = StepSuccess
		p.NextIndex++
		if p.NextIndex >= len(p.Steps) {
			p.Status = PlanSucceeded
		}
	} else {
		step.Status = StepFailure
		p.Status = PlanFailed
	}
	return true
}

// ComparePriority orders two Method Traversal Records: it returns -1 if a
// is higher priority than b, +1 if lower, 0 if equal. Comparison proceeds
// element by element; the first differing index decides (a smaller method
// index is higher priority), and if one record is a prefix of the other,
// the shorter (less-decomposed) record is higher priority.
func ComparePriority(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) == len(b):
		return 0
	case len(a) < len(b):
		return -1
	default:
		return 1
	}
}

// CheckValidity reports whether every step of the plan, walked in order
// from the beginning, still has its preconditions satisfied, simulating
// forward from state by applying each step's effects and expected effects
// in turn (mirroring what the planner assumed when it built the plan). It
// returns the source syntax of the first precondition that no longer holds,
// if any.
func CheckValidity[T any](p *Plan, domain *Domain[T], state T) (valid bool, failingSyntax string) {
	sim := state
	for i := 0; i < len(p.Steps); i++ {
		step := p.Steps[i]
		task, ok := domain.TaskByName(step.Name)
		if !ok || task.Primitive == nil {
			return false, step.Name
		}
		if cond, failed := task.Primitive.FirstFailingPrecondition(sim); failed {
			return false, cond.Syntax()
		}
		task.Primitive.ApplyEffects(&sim)
		task.Primitive.ApplyExpectedEffects(&sim)
	}
	return true, ""
}
