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

// Package planner synthesizes, for each candidate mutant, whether to run
// it at all and, if so, which tests to execute, how long to wait, and
// under what activation mode. It orchestrates the incremental differ,
// the coverage classifier, plan synthesis and the static-mutant
// heuristic, then notifies a Reporter exactly once before returning.
package planner

import (
	"context"

	"github.com/go-gremlins/mutplan/internal/coverage"
	"github.com/go-gremlins/mutplan/internal/incremental"
	"github.com/go-gremlins/mutplan/internal/log"
	"github.com/go-gremlins/mutplan/internal/mutant"
	"github.com/go-gremlins/mutplan/internal/planerr"
)

// DefaultTimeoutMS is the base component of the timeout formula,
// independent of net execution time.
const DefaultTimeoutMS = 5000

// DefaultTimeoutFactor is the multiplier applied to a mutant's netTime
// in the timeout formula.
const DefaultTimeoutFactor = 1.5

// hitLimitMultiplier is the fixed heuristic constant:
// hitLimit = hitLimitMultiplier * totalHits.
const hitLimitMultiplier = 100

// The static-mutant warning thresholds.
const (
	staticCostRatioThreshold = 2.0
	staticTimeShareThreshold = 0.4
)

// Project resolves current source text and an optional prior
// incremental report.
type Project interface {
	SourceFor(path string) (string, bool)
	IncrementalReport() (*mutant.IncrementalReport, bool)
}

// Sandbox maps a source file name to the name the mutant should be
// written under inside the execution sandbox. It is
// consulted read-only and must be a pure function of its input.
type Sandbox interface {
	SandboxFileFor(fileName string) string
}

// Reporter is notified exactly once, with the full plan list, after
// planning completes and before Plan returns.
type Reporter interface {
	OnMutationTestingPlanReady(plans []mutant.PlanRecord)
}

// Planner synthesizes per-mutant execution plans.
type Planner struct {
	project  Project
	sandbox  Sandbox
	reporter Reporter

	ignoreStatic   bool
	disableBail    bool
	timeoutMS      int64
	timeoutFactor  float64
	timeOverheadMS int64
	warnSlow       bool
}

// Option configures a Planner at construction time.
type Option func(p Planner) Planner

// New builds a Planner with the given collaborators and options.
// Defaults: ignoreStatic=false, disableBail=false,
// timeoutMS=DefaultTimeoutMS, timeoutFactor=DefaultTimeoutFactor,
// timeOverheadMS=0, warnings.slow=true.
func New(project Project, sandbox Sandbox, reporter Reporter, opts ...Option) *Planner {
	p := Planner{
		project:       project,
		sandbox:       sandbox,
		reporter:      reporter,
		timeoutMS:     DefaultTimeoutMS,
		timeoutFactor: DefaultTimeoutFactor,
		warnSlow:      true,
	}
	for _, opt := range opts {
		p = opt(p)
	}

	return &p
}

// WithIgnoreStatic sets the ignoreStatic option.
func WithIgnoreStatic(v bool) Option {
	return func(p Planner) Planner { p.ignoreStatic = v; return p }
}

// WithDisableBail sets the disableBail option.
func WithDisableBail(v bool) Option {
	return func(p Planner) Planner { p.disableBail = v; return p }
}

// WithTimeoutMS sets the base timeout in milliseconds.
func WithTimeoutMS(v int64) Option {
	return func(p Planner) Planner { p.timeoutMS = v; return p }
}

// WithTimeoutFactor sets the timeout factor applied to netTime.
func WithTimeoutFactor(v float64) Option {
	return func(p Planner) Planner { p.timeoutFactor = v; return p }
}

// WithTimeOverheadMS sets the fixed per-run timeout overhead.
func WithTimeOverheadMS(v int64) Option {
	return func(p Planner) Planner { p.timeOverheadMS = v; return p }
}

// WithWarnSlow toggles the static-mutant slowness warning.
func WithWarnSlow(v bool) Option {
	return func(p Planner) Planner { p.warnSlow = v; return p }
}

// Plan synthesizes one PlanRecord per input mutant, in input order. It
// returns a *planerr.MalformedInputError and no plans/reporter call if
// an input mutant is malformed.
func (p *Planner) Plan(ctx context.Context, mutants []mutant.Mutant, dryRun mutant.DryRunResult) ([]mutant.PlanRecord, error) {
	if err := validate(mutants); err != nil {
		return nil, err
	}

	diffed := p.diff(mutants, dryRun)

	plans := make([]mutant.PlanRecord, len(diffed))
	for i, m := range diffed {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		plans[i] = p.planOne(m, dryRun)
		if err := validateRun(plans[i]); err != nil {
			return nil, err
		}
	}

	p.maybeWarnStaticSlowness(plans)

	p.reporter.OnMutationTestingPlanReady(plans)

	return plans, nil
}

func validate(mutants []mutant.Mutant) error {
	for _, m := range mutants {
		if m.Location.End == nil {
			return &planerr.MalformedInputError{Reason: planerr.MissingLocation, MutantID: m.ID}
		}
	}

	return nil
}

// validateRun checks that a synthesized Run plan carries every field
// its activation mode requires before it reaches the reporter. A
// non-nil error here means a collaborator returned a malformed value,
// not that the input mutants were themselves invalid.
func validateRun(p mutant.PlanRecord) error {
	run, ok := p.(mutant.Run)
	if !ok {
		return nil
	}
	if run.RunOptions.SandboxFileName == "" {
		return &planerr.MalformedInputError{Reason: planerr.MissingRunField, MutantID: run.M.ID}
	}
	if run.RunOptions.MutantActivation == mutant.Static && run.RunOptions.HitLimit == nil {
		return &planerr.MalformedInputError{Reason: planerr.MissingRunField, MutantID: run.M.ID}
	}

	return nil
}

func (p *Planner) diff(mutants []mutant.Mutant, dryRun mutant.DryRunResult) []mutant.Mutant {
	report, ok := p.project.IncrementalReport()
	if !ok {
		return append([]mutant.Mutant(nil), mutants...)
	}

	differ := incremental.New(report, p.project)
	coveringByID := make(map[string][]string, len(mutants))
	for _, m := range mutants {
		coveringByID[m.ID] = coverage.CoveredByIDs(dryRun.MutantCoverage, dryRun, m.ID)
	}

	return differ.Diff(mutants, coveringByID, dryRun.Tests)
}

// planOne classifies and synthesizes the plan for a single mutant,
// already possibly enriched with a reused prior verdict.
func (p *Planner) planOne(m mutant.Mutant, dryRun mutant.DryRunResult) mutant.PlanRecord {
	if m.Status == mutant.Ignored {
		return mutant.EarlyResult{M: m}
	}
	if m.Status.Terminal() {
		return mutant.EarlyResult{M: m}
	}

	class := coverage.Classify(m, dryRun.MutantCoverage, dryRun, p.ignoreStatic)

	switch class.Class {
	case coverage.EarlyIgnored:
		enriched := m
		enriched.Status = mutant.Ignored
		enriched.StatusReason = class.IgnoreReason
		enriched.Static = class.Static
		enriched.CoveredBy = class.CoveredBy

		return mutant.EarlyResult{M: enriched}
	case coverage.NoCoverage:
		return p.synthesizeNoCoverage(m, dryRun)
	case coverage.Static:
		return p.synthesizeStatic(m, class, dryRun)
	default: // coverage.PerTest
		return p.synthesizePerTest(m, class, dryRun)
	}
}

func (p *Planner) synthesizeNoCoverage(m mutant.Mutant, dryRun mutant.DryRunResult) mutant.PlanRecord {
	enriched := m
	enriched.Static = false
	enriched.CoveredBy = nil

	netTime := sumAllTests(dryRun.Tests)

	return mutant.Run{
		M:       enriched,
		NetTime: netTime,
		RunOptions: mutant.RunOptions{
			ActiveMutant:     enriched,
			SandboxFileName:  p.sandbox.SandboxFileFor(m.FileName),
			Timeout:          p.timeout(netTime),
			DisableBail:      p.disableBail,
			MutantActivation: mutant.Runtime,
		},
	}
}

func (p *Planner) synthesizeStatic(m mutant.Mutant, class coverage.Result, dryRun mutant.DryRunResult) mutant.PlanRecord {
	enriched := m
	enriched.Static = true
	enriched.CoveredBy = class.CoveredBy

	netTime := sumAllTests(dryRun.Tests)
	hitLimit := hitLimitMultiplier * class.TotalHits

	return mutant.Run{
		M:       enriched,
		NetTime: netTime,
		RunOptions: mutant.RunOptions{
			ActiveMutant:      enriched,
			SandboxFileName:   p.sandbox.SandboxFileFor(m.FileName),
			Timeout:           p.timeout(netTime),
			DisableBail:       p.disableBail,
			HitLimit:          &hitLimit,
			MutantActivation:  mutant.Static,
			ReloadEnvironment: true,
		},
	}
}

func (p *Planner) synthesizePerTest(m mutant.Mutant, class coverage.Result, dryRun mutant.DryRunResult) mutant.PlanRecord {
	enriched := m
	enriched.Static = class.Static
	enriched.CoveredBy = class.CoveredBy

	netTime := sumTests(dryRun.Tests, class.CoveredBy)

	hitLimit := hitLimitMultiplier * class.TotalHits

	return mutant.Run{
		M:       enriched,
		NetTime: netTime,
		RunOptions: mutant.RunOptions{
			ActiveMutant:     enriched,
			TestFilter:       class.CoveredBy,
			SandboxFileName:  p.sandbox.SandboxFileFor(m.FileName),
			Timeout:          p.timeout(netTime),
			DisableBail:      p.disableBail,
			HitLimit:         &hitLimit,
			MutantActivation: mutant.Runtime,
		},
	}
}

func (p *Planner) timeout(netTime int64) int64 {
	return p.timeoutMS + int64(p.timeoutFactor*float64(netTime)) + p.timeOverheadMS
}

func sumAllTests(tests []mutant.TestResult) int64 {
	var total int64
	for _, t := range tests {
		total += t.TimeSpentMs
	}

	return total
}

func sumTests(tests []mutant.TestResult, ids []string) int64 {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var total int64
	for _, t := range tests {
		if want[t.ID] {
			total += t.TimeSpentMs
		}
	}

	return total
}

// maybeWarnStaticSlowness warns when static mutants make up a large
// share of the plan's estimated cost relative to their count.
func (p *Planner) maybeWarnStaticSlowness(plans []mutant.PlanRecord) {
	if p.ignoreStatic || !p.warnSlow {
		return
	}

	var staticCount, totalCount int
	var staticTime, restTime int64
	var staticNCount, restNCount int

	for _, rec := range plans {
		totalCount++
		run, isRun := rec.(mutant.Run)
		if !isRun {
			continue
		}
		if run.RunOptions.MutantActivation == mutant.Static {
			staticCount++
			staticTime += run.NetTime
			staticNCount++
		} else {
			restTime += run.NetTime
			restNCount++
		}
	}

	if staticNCount == 0 || restNCount == 0 {
		return
	}

	perMutantStatic := staticCostRatioThreshold * float64(staticTime) / float64(staticNCount)
	perMutantRest := float64(restTime) / float64(restNCount)
	if perMutantStatic <= perMutantRest {
		return
	}

	share := float64(staticTime) / float64(staticTime+restTime)
	if share <= staticTimeShareThreshold {
		return
	}

	log.Warnf(
		"Detected %d static mutants (%.2f%% of total) that are estimated to take %.2f%% of the time running the tests! (disable \"warnings.slow\" to ignore this warning)\n",
		staticCount,
		100*float64(staticCount)/float64(totalCount),
		100*share,
	)
}
