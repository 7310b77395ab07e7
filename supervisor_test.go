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
	"testing"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopHandler struct{}

func (noopHandler) ToTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) { return bt.Success, nil })
}

type supState struct {
	Prefer bool
}

func supDomain(t *testing.T) (*Domain[supState], *OperatorRegistry[supState]) {
	t.Helper()
	reg := NewOperatorRegistry[supState]()
	Register[supState, noopHandler](reg, "Noop", func() noopHandler { return noopHandler{} }, nil)

	tasks := []Task[supState]{
		{Compound: &CompoundTask[supState]{TaskName: "root", Methods: []Method[supState]{
			{Label: "good", Preconditions: []Condition[supState]{
				&EqualsBoolCondition[supState]{FieldName: "Prefer", Value: true},
			}, Subtasks: []string{"step"}},
			{Label: "fallback", Subtasks: []string{"step"}},
		}}},
		{Primitive: &PrimitiveTask[supState]{TaskName: "step", OperatorName: "Noop"}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)
	return d, reg
}

func TestSupervisorTicksPlanToSuccess(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: true})
	sup.RequestReplan()

	ctx := context.Background()
	require.NoError(t, sup.Tick(ctx)) // installs the plan
	require.NotNil(t, sup.CurrentPlan())
	require.NoError(t, sup.Tick(ctx)) // dispatches + ticks "step" to success

	assert.Nil(t, sup.CurrentPlan(), "plan should be cleared once its single step succeeds")

	var kinds []TaskEventKind
	for {
		select {
		case ev := <-sup.Events():
			kinds = append(kinds, ev.Kind)
			continue
		default:
		}
		break
	}
	assert.Contains(t, kinds, EventPlanInstalled)
	assert.Contains(t, kinds, EventStepDispatched)
	assert.Contains(t, kinds, EventStepSucceeded)
	assert.Contains(t, kinds, EventPlanSucceeded)
}

func TestSupervisorCompleteDropsStaleStepID(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: true})
	sup.RequestReplan()
	require.NoError(t, sup.Tick(context.Background()))

	sup.Complete("not-a-real-step-id", true)
	assert.NotNil(t, sup.CurrentPlan(), "a stale completion must not disturb the live plan")
}

func TestSupervisorKeepsHigherPriorityCurrentPlan(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: false})

	sup.current = &Plan{PlanID: "existing", MTR: []int{0}, Steps: []Step{{StepID: "x", Name: "step"}}, Status: PlanPending}
	sup.RequestReplan()
	sup.maybeReplan()

	assert.Equal(t, "existing", sup.current.PlanID, "candidate MTR [1] must not supersede the current plan's MTR [0]")
}

func TestSupervisorReplacesLowerPriorityCurrentPlan(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: false})

	sup.current = &Plan{PlanID: "existing", MTR: []int{2}, Steps: []Step{{StepID: "x", Name: "step"}}, Status: PlanPending}
	sup.RequestReplan()
	sup.maybeReplan()

	assert.NotEqual(t, "existing", sup.current.PlanID, "a candidate with strictly higher priority must supersede the current plan")
	assert.Equal(t, []int{1}, sup.current.MTR)
}

func TestMarkStateDirtyKeepsEqualPriorityPlan(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: true})
	require.NoError(t, sup.Tick(context.Background()))
	before := sup.CurrentPlan().PlanID

	sup.MarkStateDirty()
	sup.maybeReplan()
	assert.Equal(t, before, sup.CurrentPlan().PlanID, "a still-valid plan is not replaced when the replan lands on the same MTR")
}

func TestMarkStateDirtySupersedesWithHigherPriorityPlan(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: false})
	require.NoError(t, sup.Tick(context.Background()))
	require.NotNil(t, sup.CurrentPlan())
	require.Equal(t, []int{1}, sup.CurrentPlan().MTR)

	sup.ApplyToState(func(s *supState) { s.Prefer = true })
	sup.maybeReplan()

	require.NotNil(t, sup.CurrentPlan())
	assert.Equal(t, []int{0}, sup.CurrentPlan().MTR, "a sensor change enabling an earlier-declared method must supersede the running plan")
}

func TestMarkStateDirtyFailsInvalidatedPlan(t *testing.T) {
	d, reg := supDomain(t)
	planner := NewPlanner[supState](d)
	sup := NewSupervisor[supState]("agent-1", d, reg, planner, supState{Prefer: true})

	sup.current = &Plan{PlanID: "doomed", MTR: []int{0}, Steps: []Step{{StepID: "x", Name: "gated"}}, Status: PlanPending}
	sup.MarkStateDirty()
	sup.maybeReplan()

	require.NotNil(t, sup.CurrentPlan())
	assert.NotEqual(t, "doomed", sup.CurrentPlan().PlanID, "a plan whose remaining step no longer resolves must be abandoned and replaced")
}
