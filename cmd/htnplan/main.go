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

// Command htnplan loads a domain file and a YAML state fixture, against the
// built-in patrol-agent schema, and prints the resulting plan.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	htn "github.com/silvanforge/htnplan"
	"github.com/silvanforge/htnplan/dsl"
	"github.com/silvanforge/htnplan/internal/demo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "htnplan",
		Short: "Compile an HTN domain file and plan against a state fixture",
	}
	root.AddCommand(newPlanCmd())
	root.AddCommand(newValidateCmd())
	return root
}

func loadDomainAndState(domainPath, statePath string) (*htn.Domain[demo.AgentState], demo.AgentState, error) {
	var state demo.AgentState
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, state, fmt.Errorf("reading state fixture: %w", err)
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, state, fmt.Errorf("parsing state fixture: %w", err)
	}

	domainSrc, err := os.ReadFile(domainPath)
	if err != nil {
		return nil, state, fmt.Errorf("reading domain file: %w", err)
	}
	domain, err := dsl.Parse[demo.AgentState](string(domainSrc), dsl.Options[demo.AgentState]{
		Registry:         demo.Operators(),
		Enums:            demo.EnumRegistry(),
		EnumConstructors: demo.EnumConstructors(),
	})
	if err != nil {
		return nil, state, fmt.Errorf("compiling domain file: %w", err)
	}
	return domain, state, nil
}

func newValidateCmd() *cobra.Command {
	var domainPath, statePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a domain file against the patrol-agent schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := loadDomainAndState(domainPath, statePath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "domain is valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&domainPath, "domain", "", "path to the .htn domain file")
	cmd.Flags().StringVar(&statePath, "state", "", "path to a YAML state fixture; it must parse, but field kinds come from the patrol-agent schema")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var domainPath, statePath string
	var maxIterations int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan the patrol task against a YAML state fixture and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, state, err := loadDomainAndState(domainPath, statePath)
			if err != nil {
				return err
			}
			var opts []htn.PlannerOption
			if maxIterations > 0 {
				opts = append(opts, htn.WithMaxIterations(maxIterations))
			}
			planner := htn.NewPlanner[demo.AgentState](domain, opts...)
			plan := planner.Plan(state)

			out := cmd.OutOrStdout()
			if plan.Empty() {
				fmt.Fprintln(out, "no plan found")
				return nil
			}
			fmt.Fprintf(out, "plan %s (mtr=%v)\n", plan.PlanID, plan.MTR)
			for i, step := range plan.Steps {
				fmt.Fprintf(out, "  %2d. %-20s operator=%s(%v)\n", i, step.Name, step.OperatorName, step.OperatorParams)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&domainPath, "domain", "", "path to the .htn domain file")
	cmd.Flags().StringVar(&statePath, "state", "", "path to a YAML state fixture")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the planner's iteration cap (0 = default)")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}
