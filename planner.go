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

// defaultMaxIterations bounds the number of task-stack pops the planner will
// perform before giving up. Hitting it is a safety valve against a malformed
// domain (e.g. a method that always re-pushes itself), not a planning
// failure: Plan returns an empty plan rather than an error.
const defaultMaxIterations = 100

// PlannerOption configures a Planner.
type PlannerOption func(*plannerConfig)

type plannerConfig struct {
	maxIterations int
}

// WithMaxIterations overrides the default iteration cap.
func WithMaxIterations(n int) PlannerOption {
	return func(c *plannerConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// Planner turns a Domain's root task into a Plan by depth-first,
// backtracking decomposition, starting from a given state.
type Planner[T any] struct {
	domain *Domain[T]
	cfg    plannerConfig
}

// NewPlanner returns a Planner for domain.
func NewPlanner[T any](domain *Domain[T], opts ...PlannerOption) *Planner[T] {
	cfg := plannerConfig{maxIterations: defaultMaxIterations}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Planner[T]{domain: domain, cfg: cfg}
}

// decompositionRecord is a restore point pushed each time a compound task is
// decomposed, so the planner can backtrack to try the next method if a
// later task in the plan turns out to be unsatisfiable.
type decompositionRecord[T any] struct {
	taskName  string
	skip      int
	state     T
	planLen   int
	mtrLen    int
	remaining []string
}

// Plan runs the backtracking decomposition algorithm from initial state and
// returns the resulting Plan. An empty plan (Plan.Empty() == true) is
// returned both when the root task has no valid decomposition and when the
// planner's iteration cap is hit; neither case is reported as an error.
func (pl *Planner[T]) Plan(initial T) *Plan {
	state := initial
	var finalPlan []Step
	var mtr []int
	var history []decompositionRecord[T]

	tasks := []string{pl.domain.RootTask().Name()}

	backtrack := func() bool {
		for len(history) > 0 {
			rec := history[len(history)-1]
			history = history[:len(history)-1]

			state = rec.state
			finalPlan = finalPlan[:rec.planLen]
			mtr = mtr[:rec.mtrLen]

			task, ok := pl.domain.TaskByName(rec.taskName)
			if !ok || task.Compound == nil {
				continue
			}
			method, idx, found := task.Compound.FindMethod(state, rec.skip)
			if !found {
				continue
			}
			preMTRLen := len(mtr)
			prePlanLen := len(finalPlan)
			mtr = append(mtr, idx)
			history = append(history, decompositionRecord[T]{
				taskName:  rec.taskName,
				skip:      idx + 1,
				state:     state,
				planLen:   prePlanLen,
				mtrLen:    preMTRLen,
				remaining: rec.remaining,
			})
			tasks = append(append([]string(nil), method.Subtasks...), rec.remaining...)
			return true
		}
		return false
	}

	for iterations := 0; len(tasks) > 0; iterations++ {
		if iterations >= pl.cfg.maxIterations {
			return &Plan{PlanID: newPlanID(), Status: PlanPending}
		}

		name := tasks[0]
		rest := tasks[1:]

		task, ok := pl.domain.TaskByName(name)
		if !ok {
			if !backtrack() {
				return &Plan{PlanID: newPlanID(), Status: PlanPending}
			}
			continue
		}

		switch {
		case task.Primitive != nil:
			p := task.Primitive
			if !p.PreconditionsMet(state) {
				if !backtrack() {
					return &Plan{PlanID: newPlanID(), Status: PlanPending}
				}
				continue
			}
			p.ApplyEffects(&state)
			p.ApplyExpectedEffects(&state)
			finalPlan = append(finalPlan, Step{
				Name:           p.TaskName,
				OperatorName:   p.OperatorName,
				OperatorParams: p.OperatorParams,
			})
			tasks = rest

		case task.Compound != nil:
			method, idx, found := task.Compound.FindMethod(state, 0)
			if !found {
				if !backtrack() {
					return &Plan{PlanID: newPlanID(), Status: PlanPending}
				}
				continue
			}
			preMTRLen := len(mtr)
			prePlanLen := len(finalPlan)
			mtr = append(mtr, idx)
			history = append(history, decompositionRecord[T]{
				taskName:  name,
				skip:      idx + 1,
				state:     state,
				planLen:   prePlanLen,
				mtrLen:    preMTRLen,
				remaining: append([]string(nil), rest...),
			})
			tasks = append(append([]string(nil), method.Subtasks...), rest...)

		default:
			if !backtrack() {
				return &Plan{PlanID: newPlanID(), Status: PlanPending}
			}
		}
	}

	return NewPlan(finalPlan, mtr)
}
