/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-gremlins/mutplan/cmd/internal/flags"
	"github.com/go-gremlins/mutplan/internal/configuration"
	"github.com/go-gremlins/mutplan/internal/engine/workdir"
	"github.com/go-gremlins/mutplan/internal/gomodule"
	"github.com/go-gremlins/mutplan/internal/log"
	"github.com/go-gremlins/mutplan/internal/mutant"
	"github.com/go-gremlins/mutplan/internal/planner"
	"github.com/go-gremlins/mutplan/internal/project"
	"github.com/go-gremlins/mutplan/internal/report"
	"github.com/go-gremlins/mutplan/internal/sandbox"
	"github.com/go-gremlins/mutplan/internal/vcsdiff"
)

type planCmd struct {
	cmd *cobra.Command
}

const (
	commandName = "plan"

	paramInput          = "input"
	paramIgnoreStatic   = "ignore-static"
	paramDisableBail    = "disable-bail"
	paramTimeoutMS      = "timeout-ms"
	paramTimeoutFactor  = "timeout-factor"
	paramTimeOverheadMS = "time-overhead-ms"
	paramWarnSlow       = "warn-slow"
	paramDiffRef        = "diff-ref"
	paramOutput         = "output"
	paramReport         = "report"
)

// planInput is the machine-readable contract a discovery/dry-run tool
// feeds into mutplan: the candidate mutants and the recorded dry run.
// Producing it is out of scope for the planning core.
type planInput struct {
	Mutants []mutant.Mutant
	DryRun  mutant.DryRunResult
}

func newPlanCmd(ctx context.Context) (*planCmd, error) {
	cmd := &cobra.Command{
		Use:     fmt.Sprintf("%s [path]", commandName),
		Aliases: []string{"p"},
		Args:    cobra.MaximumNArgs(1),
		Short:   "Plan a mutation-testing run",
		Long:    longExplainer(),
		RunE:    runPlan(ctx),
	}

	if err := setFlagsOnCmd(cmd); err != nil {
		return nil, err
	}

	return &planCmd{cmd: cmd}, nil
}

func longExplainer() string {
	return heredoc.Doc(`
		Decides, for each candidate mutant recorded by a previous dry run, whether
		it needs to be executed at all and, if so, against which tests, with what
		timeout, and under which activation mode.

		Mutants already resolved by a previous incremental report, whose covering
		tests and source range are unchanged, are reused without being planned
		again.
	`)
}

func runPlan(ctx context.Context) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log.Infoln("Starting...")
		path, _ := os.Getwd()
		if len(args) > 0 {
			path = args[0]
		}
		mod, err := gomodule.Init(path)
		if err != nil {
			return fmt.Errorf("not in a Go module: %w", err)
		}

		in, err := loadPlanInput(cmd)
		if err != nil {
			return err
		}

		mutants := in.Mutants
		if ref := configuration.Get[string](configuration.PlanDiffRefKey); ref != "" {
			d, err := vcsdiff.New(ref)
			if err != nil {
				return err
			}
			mutants = d.FilterMutants(mutants)
		}

		workDir, err := os.MkdirTemp(os.TempDir(), "mutplan-")
		if err != nil {
			return fmt.Errorf("impossible to create the workdir: %w", err)
		}
		defer cleanUpDir(workDir)

		wdDealer := workdir.NewCachedDealer(workDir, mod.Root)
		defer wdDealer.Clean()

		reportPath := configuration.Get[string](configuration.PlanReportKey)
		proj := project.New(mod, reportPath)
		sb := sandbox.New(wdDealer, mod.Root)
		reporter := report.NewConsoleReporter(mod.Name)

		started := nowFunc()
		p := planner.New(proj, sb, reporter,
			planner.WithIgnoreStatic(configuration.Get[bool](configuration.PlanIgnoreStaticKey)),
			planner.WithDisableBail(configuration.Get[bool](configuration.PlanDisableBailKey)),
			planner.WithTimeoutMS(orDefault(configuration.Get[int64](configuration.PlanTimeoutMSKey), planner.DefaultTimeoutMS)),
			planner.WithTimeoutFactor(orDefaultF(configuration.Get[float64](configuration.PlanTimeoutFactorKey), planner.DefaultTimeoutFactor)),
			planner.WithTimeOverheadMS(configuration.Get[int64](configuration.PlanTimeOverheadMSKey)),
			planner.WithWarnSlow(!configuration.Get[bool](configuration.PlanWarnSlowKey+".disabled")),
		)

		_, err = p.Plan(ctx, mutants, in.DryRun)
		if err != nil {
			return err
		}

		log.Infof("Planning finished in %s\n", time.Since(started))

		return nil
	}
}

// nowFunc is indirected so tests could substitute it; production always
// uses wall-clock time.
var nowFunc = time.Now

func orDefault(v, def int64) int64 {
	if v == 0 {
		return def
	}

	return v
}

func orDefaultF(v, def float64) float64 {
	if v == 0 {
		return def
	}

	return v
}

func loadPlanInput(cmd *cobra.Command) (planInput, error) {
	inputPath, err := cmd.Flags().GetString(paramInput)
	if err != nil || inputPath == "" {
		return planInput{}, fmt.Errorf("missing required --%s flag", paramInput)
	}

	//nolint:gosec // inputPath is operator-provided, not web-facing user input
	b, err := os.ReadFile(inputPath)
	if err != nil {
		return planInput{}, fmt.Errorf("impossible to read input file: %w", err)
	}

	var in planInput
	if err := json.Unmarshal(b, &in); err != nil {
		return planInput{}, fmt.Errorf("impossible to parse input file: %w", err)
	}

	return in, nil
}

func cleanUpDir(wd string) {
	if err := os.RemoveAll(wd); err != nil {
		log.Errorf("impossible to remove temporary folder: %s\n\t%s", err, wd)
	}
}

func setFlagsOnCmd(cmd *cobra.Command) error {
	cmd.Flags().SortFlags = false
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		from := []string{".", "_"}
		to := "-"
		for _, sep := range from {
			name = strings.ReplaceAll(name, sep, to)
		}

		return pflag.NormalizedName(name)
	})

	fls := []*flags.Flag{
		{Name: paramInput, CfgKey: "plan.input", Shorthand: "i", DefaultV: "", Usage: "path to the JSON file with candidate mutants and the dry-run result"},
		{Name: paramIgnoreStatic, CfgKey: configuration.PlanIgnoreStaticKey, DefaultV: false, Usage: "treat static mutants as ignored instead of planning them"},
		{Name: paramDisableBail, CfgKey: configuration.PlanDisableBailKey, DefaultV: false, Usage: "do not stop a mutant's test run at the first failure"},
		{Name: paramTimeoutMS, CfgKey: configuration.PlanTimeoutMSKey, DefaultV: int64(0), Usage: "base per-mutant timeout in milliseconds (0 uses the built-in default)"},
		{Name: paramTimeoutFactor, CfgKey: configuration.PlanTimeoutFactorKey, DefaultV: float64(0), Usage: "multiplier applied to a mutant's net test time (0 uses the built-in default)"},
		{Name: paramTimeOverheadMS, CfgKey: configuration.PlanTimeOverheadMSKey, DefaultV: int64(0), Usage: "fixed per-run timeout overhead in milliseconds"},
		{Name: paramWarnSlow + "-disabled", CfgKey: configuration.PlanWarnSlowKey + ".disabled", DefaultV: false, Usage: "disable the slow-static-mutant warning"},
		{Name: paramDiffRef, CfgKey: configuration.PlanDiffRefKey, DefaultV: "", Usage: "only plan mutants within lines changed against this git ref"},
		{Name: paramOutput, CfgKey: configuration.PlanOutputKey, DefaultV: "", Usage: "set the output file for machine-readable plan results"},
		{Name: paramReport, CfgKey: configuration.PlanReportKey, DefaultV: "", Usage: "path to the previous run's incremental report"},
	}

	for _, f := range fls {
		if err := flags.Set(cmd, f); err != nil {
			return err
		}
	}

	return nil
}
