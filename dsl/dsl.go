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

// Package dsl compiles the text domain format into an *htn.Domain[T]. The
// grammar, sketched here, is deliberately small and newline-insensitive:
//
//	schema { version: "0.1.0" }
//
//	primitive_task "patrol_step" {
//	    operator: Move(TargetX, TargetY)
//	    preconditions: [ Fuel > 0, AtBase == false ]
//	    effects: [ AtBase = false, Fuel -= 1 ]
//	    expected_effects: [ X = TargetX ]
//	}
//
//	compound_task "patrol" {
//	    method "rested" {
//	        preconditions: [ Fuel >= 10 ]
//	        subtasks: [ patrol_step, patrol_step ]
//	    }
//	    method {
//	        subtasks: [ return_to_base ]
//	    }
//	}
//
// Subtask names are bare identifiers resolved against the domain's declared
// task names. The first task declared in the source becomes the domain's
// root task.
package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	htn "github.com/silvanforge/htnplan"
)

// SchemaVersion is the domain-file schema version this parser understands.
// A source declaring any other version is rejected with *htn.SchemaError.
const SchemaVersion = "0.1.0"

// EnumConstructor builds the htn.EnumValue for a named variant of one enum
// type, used to resolve `Type::Variant` literals found in effects.
type EnumConstructor func(variant string) (htn.EnumValue, bool)

// Options configures a Parse call: the operator registry and enum registry
// that the compiled domain must validate against, plus one EnumConstructor
// per enum type name referenced by the source.
type Options[T any] struct {
	Registry         *htn.OperatorRegistry[T]
	Enums            *htn.EnumRegistry
	EnumConstructors map[string]EnumConstructor
}

// Parse compiles src into a Domain and validates it against opts.Registry
// and opts.Enums before returning it.
func Parse[T any](src string, opts Options[T]) (*htn.Domain[T], error) {
	p := newParser(src)

	var version string
	var sawSchema bool
	var tasks []htn.Task[T]

	for p.tok != scanner.EOF {
		switch {
		case p.atKeyword("schema"):
			v, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			if v != SchemaVersion {
				return nil, &htn.SchemaError{Version: v}
			}
			version = v
			sawSchema = true
		case p.atKeyword("primitive_task"):
			t, err := parsePrimitiveTask(p, opts)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, htn.Task[T]{Primitive: t})
		case p.atKeyword("compound_task"):
			t, err := parseCompoundTask(p, opts)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, htn.Task[T]{Compound: t})
		default:
			return nil, p.errorf("expected schema, primitive_task, or compound_task, got %q", p.text)
		}
	}

	if !sawSchema {
		return nil, p.errorf("domain has no schema block")
	}

	domain, err := htn.NewDomain(version, tasks)
	if err != nil {
		return nil, err
	}

	var sample T
	if err := domain.Validate(sample, opts.Registry, opts.Enums); err != nil {
		return nil, err
	}
	return domain, nil
}

// --- lexer ---------------------------------------------------------------

type parser struct {
	s    scanner.Scanner
	tok  rune
	text string
}

func newParser(src string) *parser {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Filename = "<domain>"
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
}

func (p *parser) errorf(format string, args ...any) error {
	return &htn.ParseError{Line: p.s.Pos().Line, Column: p.s.Pos().Column, Detail: fmt.Sprintf(format, args...)}
}

func (p *parser) atKeyword(kw string) bool {
	return p.tok == scanner.Ident && p.text == kw
}

func (p *parser) atRune(r rune) bool {
	return p.tok == r
}

func (p *parser) expectRune(r rune) error {
	if p.tok != r {
		return p.errorf("expected %q, got %q", string(r), p.text)
	}
	p.next()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.tok != scanner.Ident {
		return "", p.errorf("expected identifier, got %q", p.text)
	}
	s := p.text
	p.next()
	return s, nil
}

func (p *parser) expectString() (string, error) {
	if p.tok != scanner.String {
		return "", p.errorf("expected string literal, got %q", p.text)
	}
	s, err := strconv.Unquote(p.text)
	if err != nil {
		s = strings.Trim(p.text, `"`)
	}
	p.next()
	return s, nil
}

// --- schema ----------------------------------------------------------------

func (p *parser) parseSchema() (string, error) {
	p.next() // consume 'schema'
	if err := p.expectRune('{'); err != nil {
		return "", err
	}
	var version string
	for !p.atRune('}') {
		key, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		if err := p.expectRune(':'); err != nil {
			return "", err
		}
		switch key {
		case "version":
			v, err := p.expectString()
			if err != nil {
				return "", err
			}
			version = v
		default:
			return "", p.errorf("unknown schema field %q", key)
		}
	}
	if err := p.expectRune('}'); err != nil {
		return "", err
	}
	return version, nil
}

// --- primitive task ---------------------------------------------------------

func parsePrimitiveTask[T any](p *parser, opts Options[T]) (*htn.PrimitiveTask[T], error) {
	p.next() // consume 'primitive_task'
	name, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectRune('{'); err != nil {
		return nil, err
	}

	task := &htn.PrimitiveTask[T]{TaskName: name}

	for !p.atRune('}') {
		switch {
		case p.atKeyword("operator"):
			p.next()
			if err := p.expectRune(':'); err != nil {
				return nil, err
			}
			opName, params, err := parseOperatorCall(p)
			if err != nil {
				return nil, err
			}
			task.OperatorName = opName
			task.OperatorParams = params
		case p.atKeyword("preconditions"):
			conds, err := parseConditionBlock(p, opts)
			if err != nil {
				return nil, err
			}
			task.Preconditions = conds
		case p.atKeyword("effects"):
			effs, err := parseEffectBlock(p, opts)
			if err != nil {
				return nil, err
			}
			task.Effects = effs
		case p.atKeyword("expected_effects"):
			effs, err := parseEffectBlock(p, opts)
			if err != nil {
				return nil, err
			}
			task.ExpectedEffects = effs
		default:
			return nil, p.errorf("unexpected field %q in primitive_task %q", p.text, name)
		}
	}
	if err := p.expectRune('}'); err != nil {
		return nil, err
	}
	return task, nil
}

func parseOperatorCall(p *parser) (name string, params []string, err error) {
	name, err = p.expectIdent()
	if err != nil {
		return "", nil, err
	}
	if !p.atRune('(') {
		return name, nil, nil
	}
	p.next()
	for !p.atRune(')') {
		param, err := p.expectIdent()
		if err != nil {
			return "", nil, err
		}
		params = append(params, param)
		if p.atRune(',') {
			p.next()
		}
	}
	if err := p.expectRune(')'); err != nil {
		return "", nil, err
	}
	return name, params, nil
}

// --- compound task -----------------------------------------------------------

func parseCompoundTask[T any](p *parser, opts Options[T]) (*htn.CompoundTask[T], error) {
	p.next() // consume 'compound_task'
	name, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectRune('{'); err != nil {
		return nil, err
	}

	task := &htn.CompoundTask[T]{TaskName: name}
	for !p.atRune('}') {
		if !p.atKeyword("method") {
			return nil, p.errorf("expected method, got %q in compound_task %q", p.text, name)
		}
		m, err := parseMethod(p, opts)
		if err != nil {
			return nil, err
		}
		task.Methods = append(task.Methods, m)
	}
	if err := p.expectRune('}'); err != nil {
		return nil, err
	}
	return task, nil
}

func parseMethod[T any](p *parser, opts Options[T]) (htn.Method[T], error) {
	p.next() // consume 'method'
	var label string
	if p.tok == scanner.String {
		s, err := p.expectString()
		if err != nil {
			return htn.Method[T]{}, err
		}
		label = s
	}
	if err := p.expectRune('{'); err != nil {
		return htn.Method[T]{}, err
	}

	m := htn.Method[T]{Label: label}
	for !p.atRune('}') {
		switch {
		case p.atKeyword("preconditions"):
			conds, err := parseConditionBlock(p, opts)
			if err != nil {
				return htn.Method[T]{}, err
			}
			m.Preconditions = conds
		case p.atKeyword("subtasks"):
			p.next()
			if err := p.expectRune(':'); err != nil {
				return htn.Method[T]{}, err
			}
			if err := p.expectRune('['); err != nil {
				return htn.Method[T]{}, err
			}
			for !p.atRune(']') {
				s, err := p.expectIdent()
				if err != nil {
					return htn.Method[T]{}, err
				}
				m.Subtasks = append(m.Subtasks, s)
				if p.atRune(',') {
					p.next()
				}
			}
			if err := p.expectRune(']'); err != nil {
				return htn.Method[T]{}, err
			}
		default:
			return htn.Method[T]{}, p.errorf("unexpected field %q in method", p.text)
		}
	}
	if err := p.expectRune('}'); err != nil {
		return htn.Method[T]{}, err
	}
	return m, nil
}

// --- conditions --------------------------------------------------------------

func parseConditionBlock[T any](p *parser, opts Options[T]) ([]htn.Condition[T], error) {
	p.next() // consume 'preconditions'
	if err := p.expectRune(':'); err != nil {
		return nil, err
	}
	if err := p.expectRune('['); err != nil {
		return nil, err
	}
	var out []htn.Condition[T]
	for !p.atRune(']') {
		c, err := parseCondition(p, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if p.atRune(',') {
			p.next()
		}
	}
	if err := p.expectRune(']'); err != nil {
		return nil, err
	}
	return out, nil
}

// literal is an unparsed RHS operand: one of a bool, int, float, enum
// literal (Type::Variant), or bare identifier naming another field.
type literal struct {
	boolVal    *bool
	intVal     *int32
	floatVal   *float32
	enumType   string
	enumVal    string
	identifier string
}

func parseLiteral(p *parser) (literal, error) {
	if p.atRune('-') {
		p.next()
		switch p.tok {
		case scanner.Int:
			text := p.text
			p.next()
			n, err := strconv.ParseInt("-"+text, 10, 32)
			if err != nil {
				return literal{}, p.errorf("invalid integer literal -%s", text)
			}
			v := int32(n)
			return literal{intVal: &v}, nil
		case scanner.Float:
			text := p.text
			p.next()
			f, err := strconv.ParseFloat(text, 32)
			if err != nil {
				return literal{}, p.errorf("invalid float literal -%s", text)
			}
			v := float32(-f)
			return literal{floatVal: &v}, nil
		default:
			return literal{}, p.errorf("expected a number after -, got %q", p.text)
		}
	}
	switch {
	case p.atKeyword("true"):
		p.next()
		v := true
		return literal{boolVal: &v}, nil
	case p.atKeyword("false"):
		p.next()
		v := false
		return literal{boolVal: &v}, nil
	case p.tok == scanner.Int:
		text := p.text
		p.next()
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return literal{}, p.errorf("invalid integer literal %q", text)
		}
		v := int32(n)
		return literal{intVal: &v}, nil
	case p.tok == scanner.Float:
		text := p.text
		p.next()
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return literal{}, p.errorf("invalid float literal %q", text)
		}
		v := float32(f)
		return literal{floatVal: &v}, nil
	case p.tok == scanner.Ident:
		name, err := p.expectIdent()
		if err != nil {
			return literal{}, err
		}
		if p.atRune(':') {
			// Type::Variant is lexed as Ident ':' ':' Ident by text/scanner.
			p.next()
			if err := p.expectRune(':'); err != nil {
				return literal{}, err
			}
			variant, err := p.expectIdent()
			if err != nil {
				return literal{}, err
			}
			return literal{enumType: name, enumVal: variant}, nil
		}
		return literal{identifier: name}, nil
	default:
		return literal{}, p.errorf("expected a value, got %q", p.text)
	}
}

func parseCondition[T any](p *parser, opts Options[T]) (htn.Condition[T], error) {
	field, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if p.atKeyword("is") {
		p.next()
		switch {
		case p.atKeyword("None"):
			p.next()
			return &htn.IsNoneCondition[T]{FieldName: field, SourceSyntax: field + " is None"}, nil
		case p.atKeyword("Some"):
			p.next()
			return &htn.IsSomeCondition[T]{FieldName: field, SourceSyntax: field + " is Some"}, nil
		default:
			return nil, p.errorf("expected None or Some after %q is", field)
		}
	}

	op, orEquals, err := parseComparisonOperator(p)
	if err != nil {
		return nil, err
	}
	rhs, err := parseLiteral(p)
	if err != nil {
		return nil, err
	}
	opText := op
	if orEquals {
		opText += "="
	}
	syntax := field + " " + opText + " " + rhsSyntax(rhs)

	switch op {
	case "==", "!=":
		notted := op == "!="
		return buildEquals[T](field, rhs, notted, syntax, opts)
	case ">", ">=":
		return buildOrdered[T](field, rhs, orEquals, syntax, true)
	case "<", "<=":
		return buildOrdered[T](field, rhs, orEquals, syntax, false)
	default:
		return nil, p.errorf("unsupported operator %q", op)
	}
}

func rhsSyntax(l literal) string {
	switch {
	case l.boolVal != nil:
		return strconv.FormatBool(*l.boolVal)
	case l.intVal != nil:
		return strconv.FormatInt(int64(*l.intVal), 10)
	case l.floatVal != nil:
		return strconv.FormatFloat(float64(*l.floatVal), 'g', -1, 32)
	case l.enumType != "":
		return l.enumType + "::" + l.enumVal
	default:
		return l.identifier
	}
}

func parseComparisonOperator(p *parser) (op string, orEquals bool, err error) {
	switch p.tok {
	case '=':
		p.next()
		if err := p.expectRune('='); err != nil {
			return "", false, err
		}
		return "==", false, nil
	case '!':
		p.next()
		if err := p.expectRune('='); err != nil {
			return "", false, err
		}
		return "!=", false, nil
	case '>':
		p.next()
		if p.atRune('=') {
			p.next()
			return ">", true, nil
		}
		return ">", false, nil
	case '<':
		p.next()
		if p.atRune('=') {
			p.next()
			return "<", true, nil
		}
		return "<", false, nil
	default:
		return "", false, p.errorf("expected a comparison operator, got %q", p.text)
	}
}

func buildEquals[T any](field string, rhs literal, notted bool, syntax string, opts Options[T]) (htn.Condition[T], error) {
	switch {
	case rhs.boolVal != nil:
		return &htn.EqualsBoolCondition[T]{FieldName: field, Value: *rhs.boolVal, Notted: notted, SourceSyntax: syntax}, nil
	case rhs.intVal != nil:
		return &htn.EqualsIntCondition[T]{FieldName: field, Value: *rhs.intVal, Notted: notted, SourceSyntax: syntax}, nil
	case rhs.floatVal != nil:
		return &htn.EqualsFloatCondition[T]{FieldName: field, Value: *rhs.floatVal, Notted: notted, SourceSyntax: syntax}, nil
	case rhs.enumType != "":
		if opts.Enums != nil && !opts.Enums.HasVariant(rhs.enumType, rhs.enumVal) {
			return nil, fmt.Errorf("htn/dsl: %s::%s is not a registered enum variant", rhs.enumType, rhs.enumVal)
		}
		return &htn.EqualsEnumCondition[T]{FieldName: field, EnumType: rhs.enumType, Variant: rhs.enumVal, Notted: notted, SourceSyntax: syntax}, nil
	default:
		return &htn.EqualsIdentifierCondition[T]{FieldName: field, OtherField: rhs.identifier, Notted: notted, SourceSyntax: syntax}, nil
	}
}

func buildOrdered[T any](field string, rhs literal, orEquals bool, syntax string, greater bool) (htn.Condition[T], error) {
	switch {
	case rhs.intVal != nil:
		if greater {
			return &htn.GreaterThanIntCondition[T]{FieldName: field, Threshold: *rhs.intVal, OrEquals: orEquals, SourceSyntax: syntax}, nil
		}
		return &htn.LessThanIntCondition[T]{FieldName: field, Threshold: *rhs.intVal, OrEquals: orEquals, SourceSyntax: syntax}, nil
	case rhs.floatVal != nil:
		if greater {
			return &htn.GreaterThanFloatCondition[T]{FieldName: field, Threshold: *rhs.floatVal, OrEquals: orEquals, SourceSyntax: syntax}, nil
		}
		return &htn.LessThanFloatCondition[T]{FieldName: field, Threshold: *rhs.floatVal, OrEquals: orEquals, SourceSyntax: syntax}, nil
	case rhs.identifier != "":
		if greater {
			return &htn.GreaterThanIdentifierCondition[T]{FieldName: field, OtherField: rhs.identifier, OrEquals: orEquals, SourceSyntax: syntax}, nil
		}
		return &htn.LessThanIdentifierCondition[T]{FieldName: field, OtherField: rhs.identifier, OrEquals: orEquals, SourceSyntax: syntax}, nil
	default:
		return nil, fmt.Errorf("htn/dsl: ordered comparison requires an int, float, or field operand")
	}
}

// --- effects -------------------------------------------------------------

func parseEffectBlock[T any](p *parser, opts Options[T]) ([]htn.Effect[T], error) {
	p.next() // consume 'effects' or 'expected_effects'
	if err := p.expectRune(':'); err != nil {
		return nil, err
	}
	if err := p.expectRune('['); err != nil {
		return nil, err
	}
	var out []htn.Effect[T]
	for !p.atRune(']') {
		e, err := parseEffect(p, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.atRune(',') {
			p.next()
		}
	}
	if err := p.expectRune(']'); err != nil {
		return nil, err
	}
	return out, nil
}

func parseEffect[T any](p *parser, opts Options[T]) (htn.Effect[T], error) {
	field, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	switch p.tok {
	case '=':
		p.next()
		rhs, err := parseLiteral(p)
		if err != nil {
			return nil, err
		}
		syntax := field + " = " + rhsSyntax(rhs)
		return buildSetEffect[T](field, rhs, syntax, opts)
	case '+':
		p.next()
		if err := p.expectRune('='); err != nil {
			return nil, err
		}
		n, err := parseIntLiteral(p)
		if err != nil {
			return nil, err
		}
		syntax := fmt.Sprintf("%s += %d", field, n)
		return &htn.IncrementIntEffect[T]{FieldName: field, Delta: n, SourceSyntax: syntax}, nil
	case '-':
		p.next()
		if err := p.expectRune('='); err != nil {
			return nil, err
		}
		n, err := parseIntLiteral(p)
		if err != nil {
			return nil, err
		}
		syntax := fmt.Sprintf("%s -= %d", field, n)
		return &htn.IncrementIntEffect[T]{FieldName: field, Delta: -n, SourceSyntax: syntax}, nil
	default:
		return nil, p.errorf("expected =, += or -= after field %q", field)
	}
}

func parseIntLiteral(p *parser) (int32, error) {
	if p.tok != scanner.Int {
		return 0, p.errorf("expected an integer literal, got %q", p.text)
	}
	text := p.text
	p.next()
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, p.errorf("invalid integer literal %q", text)
	}
	return int32(n), nil
}

func buildSetEffect[T any](field string, rhs literal, syntax string, opts Options[T]) (htn.Effect[T], error) {
	switch {
	case rhs.boolVal != nil:
		return &htn.SetBoolEffect[T]{FieldName: field, Value: *rhs.boolVal, SourceSyntax: syntax}, nil
	case rhs.intVal != nil:
		return &htn.SetIntEffect[T]{FieldName: field, Value: *rhs.intVal, SourceSyntax: syntax}, nil
	case rhs.floatVal != nil:
		return &htn.SetFloatEffect[T]{FieldName: field, Value: *rhs.floatVal, SourceSyntax: syntax}, nil
	case rhs.enumType != "":
		var ctor EnumConstructor
		if opts.EnumConstructors != nil {
			ctor = opts.EnumConstructors[rhs.enumType]
		}
		if ctor == nil {
			return nil, fmt.Errorf("htn/dsl: no EnumConstructor registered for enum type %q", rhs.enumType)
		}
		return &htn.SetEnumEffect[T]{
			FieldName:    field,
			EnumType:     rhs.enumType,
			Variant:      rhs.enumVal,
			Construct:    func(variant string) (htn.EnumValue, bool) { return ctor(variant) },
			SourceSyntax: syntax,
		}, nil
	default:
		return &htn.SetIdentifierEffect[T]{FieldName: field, SourceField: rhs.identifier, SourceSyntax: syntax}, nil
	}
}
