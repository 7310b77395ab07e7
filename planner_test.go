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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planState struct {
	Fuel   int32
	AtBase bool
}

func backtrackDomain(t *testing.T) *Domain[planState] {
	t.Helper()
	tasks := []Task[planState]{
		{Compound: &CompoundTask[planState]{
			TaskName: "root",
			Methods: []Method[planState]{
				{Label: "try_at_base", Subtasks: []string{"needs_base"}},
				{Label: "fallback", Subtasks: []string{"always_ok"}},
			},
		}},
		{Primitive: &PrimitiveTask[planState]{
			TaskName: "needs_base",
			Preconditions: []Condition[planState]{
				&EqualsBoolCondition[planState]{FieldName: "AtBase", Value: true, SourceSyntax: "AtBase == true"},
			},
		}},
		{Primitive: &PrimitiveTask[planState]{TaskName: "always_ok"}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)
	return d
}

func TestPlannerBacktracksToNextMethod(t *testing.T) {
	d := backtrackDomain(t)
	p := NewPlanner[planState](d)
	plan := p.Plan(planState{AtBase: false})

	require.False(t, plan.Empty())
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "always_ok", plan.Steps[0].Name)
	assert.Equal(t, []int{1}, plan.MTR)
}

func TestPlannerPicksFirstSatisfiedMethod(t *testing.T) {
	d := backtrackDomain(t)
	p := NewPlanner[planState](d)
	plan := p.Plan(planState{AtBase: true})

	require.False(t, plan.Empty())
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "needs_base", plan.Steps[0].Name)
	assert.Equal(t, []int{0}, plan.MTR)
}

func TestPlannerReturnsEmptyPlanWhenNoMethodSatisfied(t *testing.T) {
	tasks := []Task[planState]{
		{Compound: &CompoundTask[planState]{
			TaskName: "root",
			Methods: []Method[planState]{
				{Label: "only", Preconditions: []Condition[planState]{
					&EqualsBoolCondition[planState]{FieldName: "AtBase", Value: true},
				}, Subtasks: []string{"always_ok"}},
			},
		}},
		{Primitive: &PrimitiveTask[planState]{TaskName: "always_ok"}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)

	p := NewPlanner[planState](d)
	plan := p.Plan(planState{AtBase: false})
	assert.True(t, plan.Empty())
}

func TestPlannerBacktracksThroughNestedCompound(t *testing.T) {
	// root's first method commits a primitive and then decomposes a nested
	// compound whose only method never applies; the whole branch must unwind,
	// discarding the committed primitive, before the second method is tried.
	tasks := []Task[planState]{
		{Compound: &CompoundTask[planState]{
			TaskName: "root",
			Methods: []Method[planState]{
				{Label: "ambitious", Subtasks: []string{"always_ok", "gated"}},
				{Label: "modest", Subtasks: []string{"fallback_ok"}},
			},
		}},
		{Compound: &CompoundTask[planState]{
			TaskName: "gated",
			Methods: []Method[planState]{
				{Preconditions: []Condition[planState]{
					&EqualsBoolCondition[planState]{FieldName: "AtBase", Value: true, SourceSyntax: "AtBase == true"},
				}, Subtasks: []string{"always_ok"}},
			},
		}},
		{Primitive: &PrimitiveTask[planState]{TaskName: "always_ok"}},
		{Primitive: &PrimitiveTask[planState]{TaskName: "fallback_ok"}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)

	p := NewPlanner[planState](d)
	plan := p.Plan(planState{AtBase: false})

	require.False(t, plan.Empty())
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "fallback_ok", plan.Steps[0].Name)
	assert.Equal(t, []int{1}, plan.MTR)
}

func TestPlannerHonorsIterationCap(t *testing.T) {
	tasks := []Task[planState]{
		{Compound: &CompoundTask[planState]{
			TaskName: "root",
			Methods: []Method[planState]{
				{Label: "loop", Subtasks: []string{"root"}},
			},
		}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)

	p := NewPlanner[planState](d, WithMaxIterations(5))
	plan := p.Plan(planState{})
	assert.True(t, plan.Empty())
}

func TestPlannerAppliesEffectsDuringDecomposition(t *testing.T) {
	tasks := []Task[planState]{
		{Compound: &CompoundTask[planState]{
			TaskName: "root",
			Methods: []Method[planState]{
				{Label: "chain", Subtasks: []string{"spend", "spend_again"}},
			},
		}},
		{Primitive: &PrimitiveTask[planState]{
			TaskName: "spend",
			Preconditions: []Condition[planState]{
				&GreaterThanIntCondition[planState]{FieldName: "Fuel", Threshold: 0},
			},
			Effects: []Effect[planState]{
				&IncrementIntEffect[planState]{FieldName: "Fuel", Delta: -1},
			},
		}},
		{Primitive: &PrimitiveTask[planState]{
			TaskName: "spend_again",
			Preconditions: []Condition[planState]{
				&GreaterThanIntCondition[planState]{FieldName: "Fuel", Threshold: 0},
			},
			Effects: []Effect[planState]{
				&IncrementIntEffect[planState]{FieldName: "Fuel", Delta: -1},
			},
		}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)

	p := NewPlanner[planState](d)
	plan := p.Plan(planState{Fuel: 1})
	assert.True(t, plan.Empty(), "spend's effect (Fuel -= 1) must be visible to spend_again's precondition, leaving no valid decomposition")
}
