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

// ValidationKind distinguishes the structural reference that a ValidationError
// failed to resolve.
type ValidationKind int

const (
	// KindCondition means a condition referenced a field that does not exist
	// on the state type, or whose kind is incompatible with the condition.
	KindCondition ValidationKind = iota
	// KindEffect is the effect equivalent of KindCondition.
	KindEffect
	// KindOperator means an operator symbol has no registry entry, or one of
	// its declared parameters has no counterpart on the state or handler.
	KindOperator
	// KindEnumRef means a Type::Variant literal did not resolve against the
	// enum registry.
	KindEnumRef
	// KindSubtask means a method referenced a subtask name absent from the
	// domain.
	KindSubtask
	// KindSchema means the domain carries no schema version.
	KindSchema
)

func (k ValidationKind) String() string {
	switch k {
	case KindCondition:
		return "condition"
	case KindEffect:
		return "effect"
	case KindOperator:
		return "operator"
	case KindEnumRef:
		return "enum"
	case KindSubtask:
		return "subtask"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// ValidationError reports a structural reference in a domain that cannot be
// resolved against the state type or operator registry. It is returned by
// Domain.Validate and carries the offending source fragment for diagnostics.
type ValidationError struct {
	Kind     ValidationKind
	Task     string
	Fragment string
	Detail   string
}

func (e *ValidationError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("htn: %s error in task %q: %s (%s)", e.Kind, e.Task, e.Detail, e.Fragment)
	}
	return fmt.Sprintf("htn: %s error: %s (%s)", e.Kind, e.Detail, e.Fragment)
}

// SchemaError reports an unsupported schema version at domain load time.
type SchemaError struct {
	Version string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("htn: unsupported schema version %q", e.Version)
}

// ParseError reports malformed DSL source. Line and Column are 1-based.
type ParseError struct {
	Line, Column int
	Detail       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("htn: parse error at %d:%d: %s", e.Line, e.Column, e.Detail)
}

// field-access error kinds, returned by the state reflection helpers.

// FieldError reports that a named state field could not be read or written.
type FieldError struct {
	Field string
	// NotFound is true when the field does not exist on the state type;
	// otherwise the field exists but its kind does not match the requested
	// access (TypeMismatch).
	NotFound bool
}

func (e *FieldError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("htn: field %q not found", e.Field)
	}
	return fmt.Sprintf("htn: field %q has an unexpected type", e.Field)
}
