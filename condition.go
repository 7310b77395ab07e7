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

// Condition models a boolean predicate over a state field. Concrete
// implementations are the *Condition-suffixed types in this file; mismatched
// field kinds evaluate to false rather than erroring (validation catches
// those cases ahead of time).
type Condition[T any] interface {
	// Evaluate reports whether the condition holds against state.
	Evaluate(state T) bool
	// Syntax returns the original DSL source fragment, for diagnostics.
	Syntax() string
}

type (
	// EqualsBoolCondition tests a bool field against a literal, optionally
	// negated.
	EqualsBoolCondition[T any] struct {
		FieldName    string
		Value        bool
		Notted       bool
		SourceSyntax string
	}

	// EqualsIntCondition tests an int32 field against a literal.
	EqualsIntCondition[T any] struct {
		FieldName    string
		Value        int32
		Notted       bool
		SourceSyntax string
	}

	// EqualsFloatCondition tests a float32 field against a literal. Equality
	// is exact, no epsilon.
	EqualsFloatCondition[T any] struct {
		FieldName    string
		Value        float32
		Notted       bool
		SourceSyntax string
	}

	// EqualsEnumCondition tests an enum field against a Type::Variant
	// literal.
	EqualsEnumCondition[T any] struct {
		FieldName    string
		EnumType     string
		Variant      string
		Notted       bool
		SourceSyntax string
	}

	// EqualsIdentifierCondition compares two state fields of the same kind.
	EqualsIdentifierCondition[T any] struct {
		FieldName    string
		OtherField   string
		Notted       bool
		SourceSyntax string
	}

	// GreaterThanIntCondition tests an int32 field against a threshold.
	GreaterThanIntCondition[T any] struct {
		FieldName    string
		Threshold    int32
		OrEquals     bool
		SourceSyntax string
	}

	// LessThanIntCondition tests an int32 field against a threshold.
	LessThanIntCondition[T any] struct {
		FieldName    string
		Threshold    int32
		OrEquals     bool
		SourceSyntax string
	}

	// GreaterThanFloatCondition tests a float32 field against a threshold.
	GreaterThanFloatCondition[T any] struct {
		FieldName    string
		Threshold    float32
		OrEquals     bool
		SourceSyntax string
	}

	// LessThanFloatCondition tests a float32 field against a threshold.
	LessThanFloatCondition[T any] struct {
		FieldName    string
		Threshold    float32
		OrEquals     bool
		SourceSyntax string
	}

	// GreaterThanIdentifierCondition compares two int32 or float32 fields.
	GreaterThanIdentifierCondition[T any] struct {
		FieldName    string
		OtherField   string
		OrEquals     bool
		SourceSyntax string
	}

	// LessThanIdentifierCondition compares two int32 or float32 fields.
	LessThanIdentifierCondition[T any] struct {
		FieldName    string
		OtherField   string
		OrEquals     bool
		SourceSyntax string
	}

	// IsNoneCondition tests that an optional field holds no value.
	IsNoneCondition[T any] struct {
		FieldName    string
		SourceSyntax string
	}

	// IsSomeCondition tests that an optional field holds a value.
	IsSomeCondition[T any] struct {
		FieldName    string
		SourceSyntax string
	}
)

func (c *EqualsBoolCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *EqualsBoolCondition[T]) Evaluate(state T) bool {
	v, err := GetBool(&state, c.FieldName)
	if err != nil {
		return false
	}
	return (v == c.Value) != c.Notted
}

func (c *EqualsIntCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *EqualsIntCondition[T]) Evaluate(state T) bool {
	v, err := GetInt(&state, c.FieldName)
	if err != nil {
		return false
	}
	return (v == c.Value) != c.Notted
}

func (c *EqualsFloatCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *EqualsFloatCondition[T]) Evaluate(state T) bool {
	v, err := GetFloat(&state, c.FieldName)
	if err != nil {
		return false
	}
	return (v == c.Value) != c.Notted
}

func (c *EqualsEnumCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *EqualsEnumCondition[T]) Evaluate(state T) bool {
	typeName, variant, err := GetEnumVariant(&state, c.FieldName)
	if err != nil {
		return false
	}
	matched := typeName == c.EnumType && variant == c.Variant
	return matched != c.Notted
}

func (c *EqualsIdentifierCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *EqualsIdentifierCondition[T]) Evaluate(state T) bool {
	kind, ok := FieldKindOf(&state, c.FieldName)
	if !ok {
		return false
	}
	other, ok := FieldKindOf(&state, c.OtherField)
	if !ok || other != kind {
		return false
	}
	var matched bool
	switch kind {
	case KindBool:
		a, _ := GetBool(&state, c.FieldName)
		b, _ := GetBool(&state, c.OtherField)
		matched = a == b
	case KindInt:
		a, _ := GetInt(&state, c.FieldName)
		b, _ := GetInt(&state, c.OtherField)
		matched = a == b
	case KindFloat:
		a, _ := GetFloat(&state, c.FieldName)
		b, _ := GetFloat(&state, c.OtherField)
		matched = a == b
	case KindEnum:
		at, av, _ := GetEnumVariant(&state, c.FieldName)
		bt, bv, _ := GetEnumVariant(&state, c.OtherField)
		matched = at == bt && av == bv
	default:
		return false
	}
	return matched != c.Notted
}

func (c *GreaterThanIntCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *GreaterThanIntCondition[T]) Evaluate(state T) bool {
	v, err := GetInt(&state, c.FieldName)
	if err != nil {
		return false
	}
	if c.OrEquals {
		return v >= c.Threshold
	}
	return v > c.Threshold
}

func (c *LessThanIntCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *LessThanIntCondition[T]) Evaluate(state T) bool {
	v, err := GetInt(&state, c.FieldName)
	if err != nil {
		return false
	}
	if c.OrEquals {
		return v <= c.Threshold
	}
	return v < c.Threshold
}

func (c *GreaterThanFloatCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *GreaterThanFloatCondition[T]) Evaluate(state T) bool {
	v, err := GetFloat(&state, c.FieldName)
	if err != nil {
		return false
	}
	if c.OrEquals {
		return v >= c.Threshold
	}
	return v > c.Threshold
}

func (c *LessThanFloatCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *LessThanFloatCondition[T]) Evaluate(state T) bool {
	v, err := GetFloat(&state, c.FieldName)
	if err != nil {
		return false
	}
	if c.OrEquals {
		return v <= c.Threshold
	}
	return v < c.Threshold
}

func (c *GreaterThanIdentifierCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *GreaterThanIdentifierCondition[T]) Evaluate(state T) bool {
	kind, ok := FieldKindOf(&state, c.FieldName)
	if !ok {
		return false
	}
	switch kind {
	case KindInt:
		a, erra := GetInt(&state, c.FieldName)
		b, errb := GetInt(&state, c.OtherField)
		if erra != nil || errb != nil {
			return false
		}
		if c.OrEquals {
			return a >= b
		}
		return a > b
	case KindFloat:
		a, erra := GetFloat(&state, c.FieldName)
		b, errb := GetFloat(&state, c.OtherField)
		if erra != nil || errb != nil {
			return false
		}
		if c.OrEquals {
			return a >= b
		}
		return a > b
	default:
		return false
	}
}

func (c *LessThanIdentifierCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *LessThanIdentifierCondition[T]) Evaluate(state T) bool {
	kind, ok := FieldKindOf(&state, c.FieldName)
	if !ok {
		return false
	}
	switch kind {
	case KindInt:
		a, erra := GetInt(&state, c.FieldName)
		b, errb := GetInt(&state, c.OtherField)
		if erra != nil || errb != nil {
			return false
		}
		if c.OrEquals {
			return a <= b
		}
		return a < b
	case KindFloat:
		a, erra := GetFloat(&state, c.FieldName)
		b, errb := GetFloat(&state, c.OtherField)
		if erra != nil || errb != nil {
			return false
		}
		if c.OrEquals {
			return a <= b
		}
		return a < b
	default:
		return false
	}
}

func (c *IsNoneCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *IsNoneCondition[T]) Evaluate(state T) bool {
	return IsOptionalNone(&state, c.FieldName)
}

func (c *IsSomeCondition[T]) Syntax() string { return c.SourceSyntax }
func (c *IsSomeCondition[T]) Evaluate(state T) bool {
	return IsOptionalSome(&state, c.FieldName)
}
