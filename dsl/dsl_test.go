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

package dsl_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	htn "github.com/silvanforge/htnplan"
	"github.com/silvanforge/htnplan/dsl"
	"github.com/silvanforge/htnplan/internal/demo"
)

func patrolDomainSource(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../examples/htndemo/patrol.htn")
	require.NoError(t, err)
	return string(data)
}

func testOptions() dsl.Options[demo.AgentState] {
	return dsl.Options[demo.AgentState]{
		Registry:         demo.Operators(),
		Enums:            demo.EnumRegistry(),
		EnumConstructors: demo.EnumConstructors(),
	}
}

const minimalDomain = `
schema {
    version: "0.1.0"
}

compound_task "patrol" {
    method "needs_rest" {
        preconditions: [ Mood == Mood::Exhausted ]
        subtasks: [ rest ]
    }
    method {
        subtasks: [ rest ]
    }
}

primitive_task "rest" {
    operator: Wait()
    preconditions: [ Mood == Mood::Exhausted ]
    effects: [ Mood = Mood::Calm ]
}
`

func TestParseMinimalDomain(t *testing.T) {
	d, err := dsl.Parse[demo.AgentState](minimalDomain, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "patrol", d.RootTask().Name())

	rest, ok := d.TaskByName("rest")
	require.True(t, ok)
	require.NotNil(t, rest.Primitive)
	assert.Equal(t, "Wait", rest.Primitive.OperatorName)
	require.Len(t, rest.Primitive.Preconditions, 1)

	state := demo.AgentState{Mood: demo.MoodExhausted}
	assert.True(t, rest.Primitive.Preconditions[0].Evaluate(state))
}

func TestParseRejectsMissingSchema(t *testing.T) {
	_, err := dsl.Parse[demo.AgentState](`primitive_task "t" { operator: Wait() }`, testOptions())
	require.Error(t, err)
	var perr *htn.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParseRejectsUnsupportedSchemaVersion(t *testing.T) {
	src := `
schema { version: "9.0.0" }
primitive_task "t" { operator: Wait() }
`
	_, err := dsl.Parse[demo.AgentState](src, testOptions())
	require.Error(t, err)
	var serr *htn.SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "9.0.0", serr.Version)
}

func TestParseRejectsUnknownSubtask(t *testing.T) {
	src := `
schema { version: "0.1.0" }
compound_task "root" {
    method { subtasks: [ nowhere ] }
}
`
	_, err := dsl.Parse[demo.AgentState](src, testOptions())
	require.Error(t, err)
	var verr *htn.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestParseFullPatrolDomain(t *testing.T) {
	src := patrolDomainSource(t)
	d, err := dsl.Parse[demo.AgentState](src, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "patrol", d.RootTask().Name())

	planner := htn.NewPlanner[demo.AgentState](d)
	plan := planner.Plan(demo.AgentState{Fuel: 8, Mood: demo.MoodCalm})
	assert.False(t, plan.Empty())
}

func TestParseIncrementAndIdentifierEffects(t *testing.T) {
	src := `
schema { version: "0.1.0" }
primitive_task "burn" {
    operator: Wait()
    effects: [ Fuel -= 1, TargetX = X ]
}
`
	d, err := dsl.Parse[demo.AgentState](src, testOptions())
	require.NoError(t, err)
	burn, ok := d.TaskByName("burn")
	require.True(t, ok)
	require.Len(t, burn.Primitive.Effects, 2)

	s := demo.AgentState{Fuel: 5, X: 3}
	burn.Primitive.Effects[0].Apply(&s)
	burn.Primitive.Effects[1].Apply(&s)
	assert.Equal(t, int32(4), s.Fuel)
	assert.Equal(t, int32(3), s.TargetX)
}
