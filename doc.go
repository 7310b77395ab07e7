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

// Package htn implements a Hierarchical Task Network planning and execution
// runtime: a typed state model, a depth-first backtracking planner that
// emits a Method Traversal Record alongside each plan, and a per-agent
// supervisor that dispatches primitive tasks as behavior trees (bound to
// github.com/joeycumines/go-behaviortree) and decides when to replan.
//
// The state record T is any Go struct; fields are addressed by name via
// reflection, so conditions, effects and operator parameters all resolve
// against T at validation time rather than compile time.
package htn
