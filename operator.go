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
	"fmt"
	"reflect"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"
)

// Handler is the instantiated form of an operator: a fresh value, populated
// from state per the operator's declared parameters, ready to be turned into
// a behavior tree.
type Handler any

// TreeBuilder may be implemented by a Handler type that wants to control its
// own tree shape. Handler types that don't implement it get the registry's
// default: a single leaf that reports success (the derive-equivalent trivial
// tree).
type TreeBuilder interface {
	ToTree() bt.Node
}

// operatorEntry is what the registry stores per operator symbol.
type operatorEntry struct {
	ctor    func() Handler
	toTree  func(Handler) bt.Node
	params  []string
	handler reflect.Type
}

// OperatorRegistry maps operator symbols (the short names used in the DSL) to
// a zero-value constructor and a tree-builder function. It must be populated
// before a domain referencing those symbols is validated or executed.
type OperatorRegistry[T any] struct {
	mu      sync.RWMutex
	entries map[string]*operatorEntry
}

// NewOperatorRegistry returns an empty OperatorRegistry.
func NewOperatorRegistry[T any]() *OperatorRegistry[T] {
	return &OperatorRegistry[T]{entries: make(map[string]*operatorEntry)}
}

// Register associates name with a zero-value constructor and an optional
// tree-builder. If toTree is nil, the handler must implement TreeBuilder, or
// the default trivial-success tree is used.
func Register[T any, H Handler](reg *OperatorRegistry[T], name string, ctor func() H, toTree func(H) bt.Node) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	entry := &operatorEntry{
		handler: reflect.TypeOf((*H)(nil)).Elem(),
		ctor:    func() Handler { return ctor() },
	}
	if toTree != nil {
		entry.toTree = func(h Handler) bt.Node { return toTree(h.(H)) }
	} else {
		entry.toTree = func(h Handler) bt.Node {
			if tb, ok := h.(TreeBuilder); ok {
				return tb.ToTree()
			}
			return defaultTree()
		}
	}
	reg.entries[name] = entry
}

// defaultTree is the derive-equivalent trivial tree: a single leaf that
// reports success.
func defaultTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return bt.Success, nil
	})
}

// Has reports whether name is a registered operator symbol.
func (r *OperatorRegistry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// HandlerFieldNames returns the exported field names of the registered
// handler type for name, used by Domain.Validate to check that an operator
// call does not pass more parameters than the handler has fields.
func (r *OperatorRegistry[T]) HandlerFieldNames(name string) ([]string, bool) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	t := entry.handler
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, true
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			names = append(names, t.Field(i).Name)
		}
	}
	return names, true
}

// Instantiate builds a Handler for the given operator symbol, copying each
// declared parameter's value from state into the handler's fields by
// position (the DSL's `Operator(a, b)` call binds a to the handler's first
// struct field, b to its second, and so on; a bound field must be exported
// and of the same type as the state field), then produces a behavior tree
// for it.
func (r *OperatorRegistry[T]) Instantiate(name string, params []string, state T) (bt.Node, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("htn: operator %q is not registered", name)
	}
	handler := entry.ctor()
	hv := reflect.ValueOf(handler)
	isPtr := hv.Kind() == reflect.Ptr

	// work against an addressable struct value regardless of whether the
	// registered handler type is itself a pointer
	var target reflect.Value
	if isPtr {
		target = hv.Elem()
	} else {
		addr := reflect.New(hv.Type())
		addr.Elem().Set(hv)
		target = addr.Elem()
	}

	if target.Kind() == reflect.Struct {
		if len(params) > target.NumField() {
			return nil, fmt.Errorf("htn: operator %q given %d parameters but handler has %d fields", name, len(params), target.NumField())
		}
		for i, param := range params {
			fv, ok := fieldByName(state, param)
			if !ok {
				return nil, fmt.Errorf("htn: operator %q parameter %q not found on state", name, param)
			}
			fld := target.Field(i)
			if !fld.CanSet() || fld.Type() != fv.Type() {
				return nil, fmt.Errorf("htn: operator %q parameter %d (%q) type mismatch with handler field %q", name, i, param, target.Type().Field(i).Name)
			}
			fld.Set(fv)
		}
	}

	result := handler
	if !isPtr {
		result = target.Interface()
	}
	return entry.toTree(result), nil
}
