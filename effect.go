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

// Effect models a pure update to a state field. Concrete implementations are
// the *Effect-suffixed types in this file. A missing field or kind mismatch
// is a silent no-op at runtime; Domain.Validate catches those ahead of time.
type Effect[T any] interface {
	// Apply mutates state in place.
	Apply(state *T)
	// Syntax returns the original DSL source fragment, for diagnostics.
	Syntax() string
}

type (
	// SetBoolEffect sets a bool field to a literal.
	SetBoolEffect[T any] struct {
		FieldName    string
		Value        bool
		SourceSyntax string
	}

	// SetIntEffect sets an int32 field to a literal.
	SetIntEffect[T any] struct {
		FieldName    string
		Value        int32
		SourceSyntax string
	}

	// SetFloatEffect sets a float32 field to a literal.
	SetFloatEffect[T any] struct {
		FieldName    string
		Value        float32
		SourceSyntax string
	}

	// SetEnumEffect sets an enum field to a named variant.
	SetEnumEffect[T any] struct {
		FieldName    string
		EnumType     string
		Variant      string
		// Construct, given the variant name, produces the EnumValue to
		// assign. Populated by the DSL compiler from a domain's
		// EnumConstructor registrations.
		Construct    func(variant string) (EnumValue, bool)
		SourceSyntax string
	}

	// SetIdentifierEffect copies one state field into another of the same
	// kind.
	SetIdentifierEffect[T any] struct {
		FieldName    string
		SourceField  string
		SourceSyntax string
	}

	// IncrementIntEffect adds Delta to an int32 field, saturating at the
	// int32 bounds. A decrement is represented as a negative Delta.
	IncrementIntEffect[T any] struct {
		FieldName    string
		Delta        int32
		SourceSyntax string
	}
)

func (e *SetBoolEffect[T]) Syntax() string  { return e.SourceSyntax }
func (e *SetBoolEffect[T]) Apply(state *T)  { _ = SetBool(state, e.FieldName, e.Value) }

func (e *SetIntEffect[T]) Syntax() string { return e.SourceSyntax }
func (e *SetIntEffect[T]) Apply(state *T) { _ = SetInt(state, e.FieldName, e.Value) }

func (e *SetFloatEffect[T]) Syntax() string { return e.SourceSyntax }
func (e *SetFloatEffect[T]) Apply(state *T) { _ = SetFloat(state, e.FieldName, e.Value) }

func (e *SetEnumEffect[T]) Syntax() string { return e.SourceSyntax }
func (e *SetEnumEffect[T]) Apply(state *T) {
	if e.Construct == nil {
		return
	}
	v, ok := e.Construct(e.Variant)
	if !ok {
		return
	}
	_ = SetEnumVariant(state, e.FieldName, v)
}

func (e *SetIdentifierEffect[T]) Syntax() string { return e.SourceSyntax }
func (e *SetIdentifierEffect[T]) Apply(state *T) {
	_ = CopyField(state, e.FieldName, e.SourceField)
}

func (e *IncrementIntEffect[T]) Syntax() string { return e.SourceSyntax }
func (e *IncrementIntEffect[T]) Apply(state *T) {
	_ = IncrementInt(state, e.FieldName, e.Delta)
}
