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

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moveHandler struct {
	TargetX int32
}

func (h *moveHandler) ToTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) { return bt.Success, nil })
}

func taskDomainRegistry() *OperatorRegistry[planState] {
	reg := NewOperatorRegistry[planState]()
	Register[planState, *moveHandler](reg, "Move", func() *moveHandler { return &moveHandler{} }, nil)
	return reg
}

func TestDomainRootAndLookup(t *testing.T) {
	d := backtrackDomain(t)
	assert.Equal(t, "root", d.RootTask().Name())

	_, ok := d.TaskByName("always_ok")
	assert.True(t, ok)
	_, ok = d.TaskByName("does_not_exist")
	assert.False(t, ok)
}

func TestNewDomainRejectsDuplicateNames(t *testing.T) {
	tasks := []Task[planState]{
		{Primitive: &PrimitiveTask[planState]{TaskName: "dup"}},
		{Primitive: &PrimitiveTask[planState]{TaskName: "dup"}},
	}
	_, err := NewDomain("0.1.0", tasks)
	assert.Error(t, err)
}

func TestFindMethodRespectsSkip(t *testing.T) {
	c := &CompoundTask[planState]{Methods: []Method[planState]{
		{Label: "a"}, {Label: "b"}, {Label: "c"},
	}}
	m, idx, ok := c.FindMethod(planState{}, 0)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "a", m.Label)

	m, idx, ok = c.FindMethod(planState{}, 1)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", m.Label)
}

func TestFirstFailingPrecondition(t *testing.T) {
	p := &PrimitiveTask[planState]{
		TaskName: "t",
		Preconditions: []Condition[planState]{
			&GreaterThanIntCondition[planState]{FieldName: "Fuel", Threshold: 0, SourceSyntax: "Fuel > 0"},
		},
	}
	_, ok := p.FirstFailingPrecondition(planState{Fuel: 1})
	assert.False(t, ok)

	cond, ok := p.FirstFailingPrecondition(planState{Fuel: 0})
	require.True(t, ok)
	assert.Equal(t, "Fuel > 0", cond.Syntax())
}

func TestDomainValidateCatchesUnregisteredOperator(t *testing.T) {
	tasks := []Task[planState]{
		{Primitive: &PrimitiveTask[planState]{TaskName: "t", OperatorName: "Missing"}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)

	err = d.Validate(planState{}, taskDomainRegistry(), NewEnumRegistry())
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindOperator, verr.Kind)
}

func TestDomainValidateCatchesUnknownSubtask(t *testing.T) {
	tasks := []Task[planState]{
		{Compound: &CompoundTask[planState]{TaskName: "root", Methods: []Method[planState]{
			{Subtasks: []string{"nowhere"}},
		}}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)

	err = d.Validate(planState{}, taskDomainRegistry(), NewEnumRegistry())
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindSubtask, verr.Kind)
}

func TestDomainValidatePasses(t *testing.T) {
	tasks := []Task[planState]{
		{Primitive: &PrimitiveTask[planState]{
			TaskName:       "move",
			OperatorName:   "Move",
			OperatorParams: []string{"Fuel"},
			Preconditions: []Condition[planState]{
				&GreaterThanIntCondition[planState]{FieldName: "Fuel", Threshold: 0},
			},
		}},
	}
	d, err := NewDomain("0.1.0", tasks)
	require.NoError(t, err)
	assert.NoError(t, d.Validate(planState{}, taskDomainRegistry(), NewEnumRegistry()))
}
