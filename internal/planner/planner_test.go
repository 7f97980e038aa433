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

package planner_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-gremlins/mutplan/internal/log"
	"github.com/go-gremlins/mutplan/internal/mutant"
	"github.com/go-gremlins/mutplan/internal/planerr"
	"github.com/go-gremlins/mutplan/internal/planner"
)

type fakeProject struct {
	sources map[string]string
	report  *mutant.IncrementalReport
}

func (f fakeProject) SourceFor(path string) (string, bool) {
	s, ok := f.sources[path]

	return s, ok
}

func (f fakeProject) IncrementalReport() (*mutant.IncrementalReport, bool) {
	return f.report, f.report != nil
}

type fakeSandbox struct{}

func (fakeSandbox) SandboxFileFor(fileName string) string { return fileName + ".sandbox" }

// blankSandbox simulates a misconfigured Sandbox collaborator that
// fails to resolve a name for the mutant's file.
type blankSandbox struct{}

func (blankSandbox) SandboxFileFor(string) string { return "" }

type spyReporter struct {
	calls int
	last  []mutant.PlanRecord
}

func (s *spyReporter) OnMutationTestingPlanReady(plans []mutant.PlanRecord) {
	s.calls++
	s.last = plans
}

func closedRange(sl, sc, el, ec int) mutant.Range {
	return mutant.Range{Start: mutant.Position{Line: sl, Col: sc}, End: &mutant.Position{Line: el, Col: ec}}
}

// TestPlan_IgnoredInput verifies an already-ignored mutant is returned
// as an EarlyResult without being planned.
func TestPlan_IgnoredInput(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter)

	mutants := []mutant.Mutant{
		{ID: "2", FileName: "f.go", Location: closedRange(1, 0, 1, 1), Status: mutant.Ignored, StatusReason: "foo"},
	}
	dryRun := mutant.DryRunResult{
		MutantCoverage: &mutant.CoverageMatrix{Static: map[string]int{}, PerTest: map[string]map[string]int{"1": {"2": 2}}},
	}

	plans, err := p.Plan(context.Background(), mutants, dryRun)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("want 1 plan, got %d", len(plans))
	}
	early, ok := plans[0].(mutant.EarlyResult)
	if !ok {
		t.Fatalf("want EarlyResult, got %T", plans[0])
	}
	if early.M.Status != mutant.Ignored || early.M.Static || len(early.M.CoveredBy) != 0 {
		t.Errorf("unexpected mutant: %+v", early.M)
	}
	if reporter.calls != 1 {
		t.Errorf("reporter must be called exactly once, got %d", reporter.calls)
	}
}

// TestPlan_StaticWithIgnoreStatic verifies a static mutant is treated
// as ignored when ignoreStatic is enabled.
func TestPlan_StaticWithIgnoreStatic(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter, planner.WithIgnoreStatic(true))

	mutants := []mutant.Mutant{{ID: "1", FileName: "f.go", Location: closedRange(1, 0, 1, 1)}}
	dryRun := mutant.DryRunResult{
		Tests:          []mutant.TestResult{{ID: "spec1", TimeSpentMs: 0}},
		MutantCoverage: &mutant.CoverageMatrix{Static: map[string]int{"1": 1}, PerTest: map[string]map[string]int{}},
	}

	plans, err := p.Plan(context.Background(), mutants, dryRun)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	early, ok := plans[0].(mutant.EarlyResult)
	if !ok {
		t.Fatalf("want EarlyResult, got %T", plans[0])
	}
	if early.M.Status != mutant.Ignored || early.M.StatusReason != `Static mutant (and "ignoreStatic" was enabled)` {
		t.Errorf("unexpected mutant: %+v", early.M)
	}
}

// TestPlan_StaticWithoutIgnoreStatic verifies a static mutant is
// planned for static activation when ignoreStatic is disabled.
func TestPlan_StaticWithoutIgnoreStatic(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter)

	mutants := []mutant.Mutant{{ID: "1", FileName: "f.go", Location: closedRange(1, 0, 1, 1)}}
	dryRun := mutant.DryRunResult{
		Tests:          []mutant.TestResult{{ID: "spec1", TimeSpentMs: 0}},
		MutantCoverage: &mutant.CoverageMatrix{Static: map[string]int{"1": 1}, PerTest: map[string]map[string]int{}},
	}

	plans, err := p.Plan(context.Background(), mutants, dryRun)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	run, ok := plans[0].(mutant.Run)
	if !ok {
		t.Fatalf("want Run, got %T", plans[0])
	}
	if !run.M.Static || len(run.M.CoveredBy) != 0 {
		t.Errorf("unexpected mutant: %+v", run.M)
	}
	if !run.RunOptions.ReloadEnvironment || run.RunOptions.TestFilter != nil {
		t.Errorf("unexpected run options: %+v", run.RunOptions)
	}
	if run.RunOptions.MutantActivation != mutant.Static {
		t.Errorf("want static activation, got %v", run.RunOptions.MutantActivation)
	}
}

// TestPlan_PerTestTimeout verifies the per-mutant timeout is derived
// from the summed time of its covering tests.
func TestPlan_PerTestTimeout(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter, planner.WithTimeoutMS(0), planner.WithTimeoutFactor(1), planner.WithTimeOverheadMS(0))

	mutants := []mutant.Mutant{
		{ID: "1", FileName: "f.go", Location: closedRange(1, 0, 1, 1)},
		{ID: "2", FileName: "f.go", Location: closedRange(2, 0, 2, 1)},
	}
	dryRun := mutant.DryRunResult{
		Tests: []mutant.TestResult{
			{ID: "spec1", TimeSpentMs: 20},
			{ID: "spec2", TimeSpentMs: 10},
			{ID: "spec3", TimeSpentMs: 22},
		},
		MutantCoverage: &mutant.CoverageMatrix{
			PerTest: map[string]map[string]int{
				"spec1": {"1": 1},
				"spec2": {"1": 0, "2": 1},
				"spec3": {"1": 2},
			},
		},
	}

	plans, err := p.Plan(context.Background(), mutants, dryRun)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	run1 := plans[0].(mutant.Run)
	run2 := plans[1].(mutant.Run)
	if run1.NetTime != 42 {
		t.Errorf("netTime(1) = %d, want 42", run1.NetTime)
	}
	if run2.NetTime != 10 {
		t.Errorf("netTime(2) = %d, want 10", run2.NetTime)
	}
	if run1.RunOptions.Timeout != 42 {
		t.Errorf("timeout(1) = %d, want 42", run1.RunOptions.Timeout)
	}
}

func TestPlan_MalformedMutant_NoReporterCall(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter)

	mutants := []mutant.Mutant{{ID: "1", FileName: "f.go"}} // no Location.End

	_, err := p.Plan(context.Background(), mutants, mutant.DryRunResult{})
	if err == nil {
		t.Fatal("want error for malformed mutant, got nil")
	}
	if reporter.calls != 0 {
		t.Errorf("reporter must not be called on failure, got %d calls", reporter.calls)
	}
}

func TestPlan_MissingSandboxFileName_NoReporterCall(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, blankSandbox{}, reporter)

	mutants := []mutant.Mutant{{ID: "1", FileName: "f.go", Location: closedRange(1, 0, 1, 1)}}

	_, err := p.Plan(context.Background(), mutants, mutant.DryRunResult{})
	if err == nil {
		t.Fatal("want error for missing sandbox file name, got nil")
	}
	var malformed *planerr.MalformedInputError
	if !errors.As(err, &malformed) || malformed.Reason != planerr.MissingRunField {
		t.Errorf("want MissingRunField error, got %v", err)
	}
	if reporter.calls != 0 {
		t.Errorf("reporter must not be called on failure, got %d calls", reporter.calls)
	}
}

func TestPlan_PreservesOrderAndOneToOne(t *testing.T) {
	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter)

	mutants := []mutant.Mutant{
		{ID: "a", FileName: "f.go", Location: closedRange(1, 0, 1, 1)},
		{ID: "b", FileName: "f.go", Location: closedRange(2, 0, 2, 1)},
		{ID: "c", FileName: "f.go", Location: closedRange(3, 0, 3, 1)},
	}

	plans, err := p.Plan(context.Background(), mutants, mutant.DryRunResult{})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("want 3 plans, got %d", len(plans))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := plans[i].Mutant().ID; got != want {
			t.Errorf("plans[%d].Mutant().ID = %q, want %q", i, got, want)
		}
	}
}

func TestPlan_WarnStaticSlowness_CrossesBothThresholds(t *testing.T) {
	out := &bytes.Buffer{}
	log.Reset()
	log.Init(out, out)
	defer log.Reset()

	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter)

	mutants := []mutant.Mutant{
		{ID: "static1", FileName: "f.go", Location: closedRange(1, 0, 1, 1)},
		{ID: "runtime1", FileName: "f.go", Location: closedRange(2, 0, 2, 1)},
	}
	dryRun := mutant.DryRunResult{
		Tests: []mutant.TestResult{{ID: "t1", TimeSpentMs: 1000}},
		MutantCoverage: &mutant.CoverageMatrix{
			Static:  map[string]int{"static1": 1},
			PerTest: map[string]map[string]int{"t1": {"runtime1": 5}},
		},
	}

	if _, err := p.Plan(context.Background(), mutants, dryRun); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if !strings.Contains(out.String(), "static mutants") {
		t.Errorf("want static-slowness warning, got log: %q", out.String())
	}
}

func TestPlan_WarnStaticSlowness_RatioCrossedShareDoesNot(t *testing.T) {
	out := &bytes.Buffer{}
	log.Reset()
	log.Init(out, out)
	defer log.Reset()

	reporter := &spyReporter{}
	p := planner.New(fakeProject{}, fakeSandbox{}, reporter)

	mutants := []mutant.Mutant{
		{ID: "static1", FileName: "f.go", Location: closedRange(1, 0, 1, 1)},
		{ID: "runtime1", FileName: "f.go", Location: closedRange(2, 0, 2, 1)},
		{ID: "runtime2", FileName: "f.go", Location: closedRange(3, 0, 3, 1)},
		{ID: "runtime3", FileName: "f.go", Location: closedRange(4, 0, 4, 1)},
		{ID: "runtime4", FileName: "f.go", Location: closedRange(5, 0, 5, 1)},
	}
	dryRun := mutant.DryRunResult{
		Tests: []mutant.TestResult{{ID: "t1", TimeSpentMs: 1000}},
		MutantCoverage: &mutant.CoverageMatrix{
			Static: map[string]int{"static1": 1},
			PerTest: map[string]map[string]int{
				"t1": {"runtime1": 5, "runtime2": 5, "runtime3": 5, "runtime4": 5},
			},
		},
	}

	// The static/runtime cost ratio (2x) is crossed here too (every
	// static mutant costs the full suite's net time), but spreading
	// that cost over four runtime mutants keeps static's share of the
	// total estimated time under the 40% gate, so no warning fires.
	if _, err := p.Plan(context.Background(), mutants, dryRun); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if strings.Contains(out.String(), "static mutants") {
		t.Errorf("want no static-slowness warning, got log: %q", out.String())
	}
}
