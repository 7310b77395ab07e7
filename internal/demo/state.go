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

// Package demo provides a small patrol-agent state schema, shared by the
// htnplan CLI and the htndemo example so both exercise the same domain
// files and YAML state fixtures.
package demo

import (
	"fmt"

	htn "github.com/silvanforge/htnplan"
	"github.com/silvanforge/htnplan/dsl"
)

// Mood is a unit-variant enum field: an agent's disposition, which some
// domain methods branch on.
type Mood int32

const (
	MoodCalm Mood = iota
	MoodAlert
	MoodExhausted
)

// MarshalYAML renders a Mood as its variant name.
func (m Mood) MarshalYAML() (any, error) {
	return m.String(), nil
}

// UnmarshalYAML parses a Mood from its variant name.
func (m *Mood) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, ok := MoodFromVariant(s)
	if !ok {
		return fmt.Errorf("htn/demo: %q is not a valid Mood", s)
	}
	*m = v.(Mood)
	return nil
}

func (m Mood) String() string {
	switch m {
	case MoodCalm:
		return "Calm"
	case MoodAlert:
		return "Alert"
	case MoodExhausted:
		return "Exhausted"
	default:
		return fmt.Sprintf("Mood(%d)", int32(m))
	}
}

func (Mood) EnumTypeName() string { return "Mood" }

// MoodFromVariant resolves a DSL `Mood::Variant` literal to a Mood value,
// the EnumConstructor the dsl package needs to compile SetEnumEffects.
func MoodFromVariant(variant string) (htn.EnumValue, bool) {
	switch variant {
	case "Calm":
		return MoodCalm, true
	case "Alert":
		return MoodAlert, true
	case "Exhausted":
		return MoodExhausted, true
	default:
		return nil, false
	}
}

// AgentState is the demo's state type: a patrolling agent with a fuel
// budget, a position, a destination, a mood, and an optional carried item.
//
// Field names double as the identifiers a domain file's conditions and
// effects reference (the core resolves them with reflect.FieldByName), so
// they are exported Go identifiers rather than the DSL's usual
// snake_case — domains for this state type write Fuel, AtBase, TargetX, and
// so on, matching these names exactly.
type AgentState struct {
	Fuel     int32   `yaml:"fuel"`
	AtBase   bool    `yaml:"atBase"`
	X        int32   `yaml:"x"`
	Y        int32   `yaml:"y"`
	TargetX  int32   `yaml:"targetX"`
	TargetY  int32   `yaml:"targetY"`
	BaseX    int32   `yaml:"baseX"`
	BaseY    int32   `yaml:"baseY"`
	Mood     Mood    `yaml:"mood"`
	Carrying *string `yaml:"carrying,omitempty"`
}

// EnumRegistry returns the enum registry describing AgentState's enum
// fields, for domain validation.
func EnumRegistry() *htn.EnumRegistry {
	reg := htn.NewEnumRegistry()
	reg.Register("Mood", "Calm", "Alert", "Exhausted")
	return reg
}

// EnumConstructors returns the dsl.Options EnumConstructors map for
// AgentState's enum fields.
func EnumConstructors() map[string]dsl.EnumConstructor {
	return map[string]dsl.EnumConstructor{
		"Mood": MoodFromVariant,
	}
}
