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

package demo

import (
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"

	htn "github.com/silvanforge/htnplan"
)

// MoveOp carries the destination (TargetX, TargetY) bound from its call's
// parameters. Its tree reports Success on the first tick; it does not change
// the agent's position itself.
type MoveOp struct {
	TargetX int32
	TargetY int32
}

// ToTree implements htn.TreeBuilder.
func (op *MoveOp) ToTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return bt.Success, nil
	})
}

// WaitOp is a one-tick no-op, used by methods that need a placeholder step.
type WaitOp struct{}

func (op WaitOp) ToTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return bt.Success, nil
	})
}

// RefuelOp reports success immediately; its effects (declared in the
// domain file, not here) are what actually restore Fuel.
type RefuelOp struct{}

func (op RefuelOp) ToTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return bt.Success, nil
	})
}

// PickUpOp takes the name of the item to carry as its single positional
// parameter.
type PickUpOp struct {
	Item string
}

func (op *PickUpOp) ToTree() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if op.Item == "" {
			return bt.Failure, fmt.Errorf("htn/demo: pick_up requires a named item")
		}
		return bt.Success, nil
	})
}

// Operators returns an OperatorRegistry populated with every handler this
// demo domain may reference.
func Operators() *htn.OperatorRegistry[AgentState] {
	reg := htn.NewOperatorRegistry[AgentState]()
	htn.Register[AgentState, *MoveOp](reg, "Move", func() *MoveOp { return &MoveOp{} }, nil)
	htn.Register[AgentState, WaitOp](reg, "Wait", func() WaitOp { return WaitOp{} }, nil)
	htn.Register[AgentState, RefuelOp](reg, "Refuel", func() RefuelOp { return RefuelOp{} }, nil)
	htn.Register[AgentState, *PickUpOp](reg, "PickUp", func() *PickUpOp { return &PickUpOp{} }, nil)
	return reg
}
