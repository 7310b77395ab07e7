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

import "fmt"

// Method is one alternative decomposition of a compound task: an ordered
// list of subtask names, guarded by preconditions. Label is optional and
// used only for diagnostics.
type Method[T any] struct {
	Label         string
	Preconditions []Condition[T]
	Subtasks      []string
}

// Name returns the method's label, or a positional placeholder if it has
// none, for log/error messages.
func (m *Method[T]) Name(index int) string {
	if m.Label != "" {
		return m.Label
	}
	return fmt.Sprintf("#%d", index)
}

// PreconditionsMet reports whether every one of the method's preconditions
// holds against state.
func (m *Method[T]) PreconditionsMet(state T) bool {
	for _, c := range m.Preconditions {
		if !c.Evaluate(state) {
			return false
		}
	}
	return true
}

// CompoundTask decomposes into one of its Methods, tried in declaration
// order.
type CompoundTask[T any] struct {
	TaskName string
	Methods  []Method[T]
}

// FindMethod returns the first method (at index >= skip) whose preconditions
// hold against state, and its index.
func (c *CompoundTask[T]) FindMethod(state T, skip int) (*Method[T], int, bool) {
	for i := skip; i < len(c.Methods); i++ {
		if c.Methods[i].PreconditionsMet(state) {
			return &c.Methods[i], i, true
		}
	}
	return nil, 0, false
}

// PrimitiveTask is a task that is not decomposed: it carries an operator and
// mutates state on success.
type PrimitiveTask[T any] struct {
	TaskName        string
	OperatorName    string
	OperatorParams  []string
	Preconditions   []Condition[T]
	Effects         []Effect[T]
	ExpectedEffects []Effect[T]
}

// PreconditionsMet reports whether every one of the task's preconditions
// holds against state.
func (p *PrimitiveTask[T]) PreconditionsMet(state T) bool {
	for _, c := range p.Preconditions {
		if !c.Evaluate(state) {
			return false
		}
	}
	return true
}

// FirstFailingPrecondition returns the first precondition that does not hold
// against state, for diagnostics (e.g. CheckValidity's failure message).
func (p *PrimitiveTask[T]) FirstFailingPrecondition(state T) (Condition[T], bool) {
	for _, c := range p.Preconditions {
		if !c.Evaluate(state) {
			return c, true
		}
	}
	return nil, false
}

// ApplyEffects applies the task's real effects to state, in order.
func (p *PrimitiveTask[T]) ApplyEffects(state *T) {
	for _, e := range p.Effects {
		e.Apply(state)
	}
}

// ApplyExpectedEffects applies the task's anticipated-only effects to state,
// in order. Callers (the planner, and CheckValidity) apply both Effects and
// ExpectedEffects; the executor applies only Effects on real success.
func (p *PrimitiveTask[T]) ApplyExpectedEffects(state *T) {
	for _, e := range p.ExpectedEffects {
		e.Apply(state)
	}
}

// Task is either a Compound or a Primitive task: exactly one of the two
// fields is non-nil.
type Task[T any] struct {
	Compound  *CompoundTask[T]
	Primitive *PrimitiveTask[T]
}

// Name returns the task's name regardless of its kind.
func (t Task[T]) Name() string {
	switch {
	case t.Primitive != nil:
		return t.Primitive.TaskName
	case t.Compound != nil:
		return t.Compound.TaskName
	default:
		return ""
	}
}

// Domain is a closed collection of tasks: the first is the root, task names
// are unique, and every subtask name referenced by any method resolves to a
// task in the domain (guaranteed once Validate has passed).
type Domain[T any] struct {
	SchemaVersion string
	Tasks         []Task[T]

	index map[string]int
}

// NewDomain builds a Domain from an ordered task list, the first of which is
// the root. It returns an error if task names are not unique.
func NewDomain[T any](schemaVersion string, tasks []Task[T]) (*Domain[T], error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("htn: domain has no tasks")
	}
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("htn: task at index %d has no name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("htn: duplicate task name %q", name)
		}
		index[name] = i
	}
	return &Domain[T]{SchemaVersion: schemaVersion, Tasks: tasks, index: index}, nil
}

// RootTask returns the first task in the domain.
func (d *Domain[T]) RootTask() Task[T] {
	return d.Tasks[0]
}

// TaskByName looks up a task by name.
func (d *Domain[T]) TaskByName(name string) (Task[T], bool) {
	i, ok := d.index[name]
	if !ok {
		return Task[T]{}, false
	}
	return d.Tasks[i], true
}

// Validate walks every task and verifies that every referenced field exists
// on the state type with a compatible kind, every operator symbol is
// registered, every enum literal resolves, and every subtask name resolves
// to a task in the domain. It reports the first failure found.
func (d *Domain[T]) Validate(sample T, registry *OperatorRegistry[T], enums *EnumRegistry) error {
	if d.SchemaVersion == "" {
		return &ValidationError{Kind: KindSchema, Fragment: "schema", Detail: "domain carries no schema version"}
	}
	for _, task := range d.Tasks {
		switch {
		case task.Primitive != nil:
			p := task.Primitive
			if registry == nil || !registry.Has(p.OperatorName) {
				return &ValidationError{Kind: KindOperator, Task: p.TaskName, Fragment: p.OperatorName, Detail: "operator is not registered"}
			}
			handlerFields, _ := registry.HandlerFieldNames(p.OperatorName)
			if len(p.OperatorParams) > len(handlerFields) {
				return &ValidationError{Kind: KindOperator, Task: p.TaskName, Fragment: p.OperatorName, Detail: "more parameters given than the operator handler has fields"}
			}
			for _, param := range p.OperatorParams {
				if _, ok := FieldKindOf(&sample, param); !ok {
					return &ValidationError{Kind: KindOperator, Task: p.TaskName, Fragment: param, Detail: "parameter not found on state"}
				}
			}
			for _, c := range p.Preconditions {
				if err := validateCondition(p.TaskName, c, sample, enums); err != nil {
					return err
				}
			}
			for _, e := range p.Effects {
				if err := validateEffect(p.TaskName, e, sample, enums); err != nil {
					return err
				}
			}
			for _, e := range p.ExpectedEffects {
				if err := validateEffect(p.TaskName, e, sample, enums); err != nil {
					return err
				}
			}
		case task.Compound != nil:
			c := task.Compound
			if len(c.Methods) == 0 {
				return &ValidationError{Kind: KindSubtask, Task: c.TaskName, Fragment: c.TaskName, Detail: "compound task has no methods"}
			}
			for _, m := range c.Methods {
				for _, cond := range m.Preconditions {
					if err := validateCondition(c.TaskName, cond, sample, enums); err != nil {
						return err
					}
				}
				for _, sub := range m.Subtasks {
					if _, ok := d.TaskByName(sub); !ok {
						return &ValidationError{Kind: KindSubtask, Task: c.TaskName, Fragment: sub, Detail: "subtask not found in domain"}
					}
				}
			}
		default:
			return &ValidationError{Kind: KindSubtask, Detail: "task is neither primitive nor compound"}
		}
	}
	return nil
}

// validateCondition checks a single condition's field references against the
// sample state and, for enum conditions, against the enum registry.
func validateCondition[T any](task string, c Condition[T], sample T, enums *EnumRegistry) *ValidationError {
	fail := func(field, detail string) *ValidationError {
		return &ValidationError{Kind: KindCondition, Task: task, Fragment: c.Syntax(), Detail: fmt.Sprintf("field %q %s", field, detail)}
	}
	requireKind := func(field string, want FieldKind) *ValidationError {
		kind, ok := FieldKindOf(&sample, field)
		if !ok {
			return fail(field, "does not exist")
		}
		if kind != want {
			return fail(field, "has an incompatible kind")
		}
		return nil
	}
	switch cond := c.(type) {
	case *EqualsBoolCondition[T]:
		return requireKind(cond.FieldName, KindBool)
	case *EqualsIntCondition[T]:
		return requireKind(cond.FieldName, KindInt)
	case *EqualsFloatCondition[T]:
		return requireKind(cond.FieldName, KindFloat)
	case *GreaterThanIntCondition[T]:
		return requireKind(cond.FieldName, KindInt)
	case *LessThanIntCondition[T]:
		return requireKind(cond.FieldName, KindInt)
	case *GreaterThanFloatCondition[T]:
		return requireKind(cond.FieldName, KindFloat)
	case *LessThanFloatCondition[T]:
		return requireKind(cond.FieldName, KindFloat)
	case *IsNoneCondition[T]:
		return requireKind(cond.FieldName, KindOptional)
	case *IsSomeCondition[T]:
		return requireKind(cond.FieldName, KindOptional)
	case *EqualsEnumCondition[T]:
		if err := requireKind(cond.FieldName, KindEnum); err != nil {
			return err
		}
		if enums == nil || !enums.HasVariant(cond.EnumType, cond.Variant) {
			return &ValidationError{Kind: KindEnumRef, Task: task, Fragment: c.Syntax(), Detail: fmt.Sprintf("%s::%s does not resolve", cond.EnumType, cond.Variant)}
		}
		return nil
	case *EqualsIdentifierCondition[T]:
		return validateIdentifierPair(task, c.Syntax(), cond.FieldName, cond.OtherField, sample)
	case *GreaterThanIdentifierCondition[T]:
		return validateOrderedIdentifierPair(task, c.Syntax(), cond.FieldName, cond.OtherField, sample)
	case *LessThanIdentifierCondition[T]:
		return validateOrderedIdentifierPair(task, c.Syntax(), cond.FieldName, cond.OtherField, sample)
	default:
		return &ValidationError{Kind: KindCondition, Task: task, Fragment: c.Syntax(), Detail: "unrecognised condition type"}
	}
}

func validateIdentifierPair[T any](task, syntax, a, b string, sample T) *ValidationError {
	ka, ok := FieldKindOf(&sample, a)
	if !ok {
		return &ValidationError{Kind: KindCondition, Task: task, Fragment: syntax, Detail: fmt.Sprintf("field %q does not exist", a)}
	}
	kb, ok := FieldKindOf(&sample, b)
	if !ok {
		return &ValidationError{Kind: KindCondition, Task: task, Fragment: syntax, Detail: fmt.Sprintf("field %q does not exist", b)}
	}
	if ka != kb {
		return &ValidationError{Kind: KindCondition, Task: task, Fragment: syntax, Detail: fmt.Sprintf("fields %q and %q do not share a comparable kind", a, b)}
	}
	return nil
}

func validateOrderedIdentifierPair[T any](task, syntax, a, b string, sample T) *ValidationError {
	if err := validateIdentifierPair[T](task, syntax, a, b, sample); err != nil {
		return err
	}
	kind, _ := FieldKindOf(&sample, a)
	if kind != KindInt && kind != KindFloat {
		return &ValidationError{Kind: KindCondition, Task: task, Fragment: syntax, Detail: fmt.Sprintf("field %q is not ordered", a)}
	}
	return nil
}

// validateEffect checks a single effect's field references against the
// sample state and, for enum effects, against the enum registry.
func validateEffect[T any](task string, e Effect[T], sample T, enums *EnumRegistry) *ValidationError {
	fail := func(field, detail string) *ValidationError {
		return &ValidationError{Kind: KindEffect, Task: task, Fragment: e.Syntax(), Detail: fmt.Sprintf("field %q %s", field, detail)}
	}
	requireKind := func(field string, want FieldKind) *ValidationError {
		kind, ok := FieldKindOf(&sample, field)
		if !ok {
			return fail(field, "does not exist")
		}
		if kind != want {
			return fail(field, "has an incompatible kind")
		}
		return nil
	}
	switch eff := e.(type) {
	case *SetBoolEffect[T]:
		return requireKind(eff.FieldName, KindBool)
	case *SetIntEffect[T]:
		return requireKind(eff.FieldName, KindInt)
	case *SetFloatEffect[T]:
		return requireKind(eff.FieldName, KindFloat)
	case *IncrementIntEffect[T]:
		return requireKind(eff.FieldName, KindInt)
	case *SetEnumEffect[T]:
		if err := requireKind(eff.FieldName, KindEnum); err != nil {
			return err
		}
		if enums == nil || !enums.HasVariant(eff.EnumType, eff.Variant) {
			return &ValidationError{Kind: KindEnumRef, Task: task, Fragment: e.Syntax(), Detail: fmt.Sprintf("%s::%s does not resolve", eff.EnumType, eff.Variant)}
		}
		return nil
	case *SetIdentifierEffect[T]:
		return validateIdentifierPair(task, e.Syntax(), eff.FieldName, eff.SourceField, sample)
	default:
		return &ValidationError{Kind: KindEffect, Task: task, Fragment: e.Syntax(), Detail: "unrecognised effect type"}
	}
}
