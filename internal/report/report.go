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

package report

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/hako/durafmt"

	"github.com/go-gremlins/mutplan/internal/log"
	"github.com/go-gremlins/mutplan/internal/mutant"
	"github.com/go-gremlins/mutplan/internal/report/internal"

	"github.com/go-gremlins/mutplan/internal/configuration"
)

var (
	fgGreen    = color.New(color.FgGreen).SprintFunc()
	fgHiGreen  = color.New(color.FgHiGreen).SprintFunc()
	fgHiBlack  = color.New(color.FgHiBlack).SprintFunc()
	fgHiYellow = color.New(color.FgYellow).SprintFunc()
	fgCyan     = color.New(color.FgCyan).SprintFunc()
)

// Results is what Do receives to print the plan summary and,
// optionally, dump it to a file.
type Results struct {
	Module  string
	Plans   []mutant.PlanRecord
	Elapsed time.Duration
}

// ConsoleReporter is the concrete Reporter collaborator: it
// prints a short summary of a finished plan and, if configured, dumps
// the full plan to a JSON file.
type ConsoleReporter struct {
	module string
}

// NewConsoleReporter builds a ConsoleReporter for the given module name.
func NewConsoleReporter(module string) ConsoleReporter {
	return ConsoleReporter{module: module}
}

// OnMutationTestingPlanReady implements planner.Reporter. It is invoked
// exactly once by the planner with the full plan list.
func (c ConsoleReporter) OnMutationTestingPlanReady(plans []mutant.PlanRecord) {
	_ = Do(Results{Module: c.module, Plans: plans})
}

type planStatus struct {
	files map[string][]internal.Planned

	module      string
	elapsedSecs float64
	elapsed     *durafmt.Durafmt

	early        int
	staticToRun  int
	runtimeToRun int

	verdicts internal.VerdictTally
}

func newPlanStatus(results Results) (*planStatus, bool) {
	if len(results.Plans) == 0 {
		return nil, false
	}

	st := &planStatus{
		module:      results.Module,
		elapsedSecs: results.Elapsed.Seconds(),
		elapsed:     durafmt.Parse(results.Elapsed).LimitFirstN(2),
		files:       map[string][]internal.Planned{},
	}
	for _, p := range results.Plans {
		m := p.Mutant()
		planned := internal.Planned{
			Mutator: m.MutatorName,
			Line:    m.Location.Start.Line,
			Column:  m.Location.Start.Col,
			Static:  m.Static,
		}

		switch rec := p.(type) {
		case mutant.EarlyResult:
			st.early++
			planned.Verdict = rec.M.Status.String()
			tallyVerdict(&st.verdicts, rec.M.Status)
		case mutant.Run:
			planned.MutantActivation = rec.RunOptions.MutantActivation.String()
			planned.TestCount = len(rec.RunOptions.TestFilter)
			planned.TimeoutMs = rec.RunOptions.Timeout
			if rec.RunOptions.MutantActivation == mutant.Static {
				st.staticToRun++
			} else {
				st.runtimeToRun++
			}
		}

		st.files[m.FileName] = append(st.files[m.FileName], planned)
	}

	return st, true
}

func tallyVerdict(t *internal.VerdictTally, v mutant.Verdict) {
	switch v {
	case mutant.Ignored:
		t.Ignored++
	case mutant.NoCoverage:
		t.NoCoverage++
	case mutant.Survived:
		t.Survived++
	case mutant.Killed:
		t.Killed++
	case mutant.Timeout:
		t.Timeout++
	case mutant.NotViable:
		t.NotViable++
	}
}

func (s *planStatus) reportFindings() {
	total := s.early + s.staticToRun + s.runtimeToRun
	toRun := s.staticToRun + s.runtimeToRun

	log.Infoln("")
	log.Infof("Planning completed in %s: %s mutants total\n", s.elapsed.String(), fgCyan(total))
	log.Infof("Decided early: %s, To run: %s (static: %s, runtime: %s)\n",
		fgHiYellow(s.early), fgHiGreen(toRun), fgGreen(s.staticToRun), fgHiBlack(s.runtimeToRun))

	if s.verdicts != (internal.VerdictTally{}) {
		log.Infof(
			"Reused verdicts: killed %s, survived %s, timeout %s, not viable %s, no coverage %s\n",
			fgHiGreen(s.verdicts.Killed), fgHiYellow(s.verdicts.Survived),
			fgGreen(s.verdicts.Timeout), fgHiBlack(s.verdicts.NotViable), fgHiYellow(s.verdicts.NoCoverage),
		)
	}

	s.fileReport()
}

func (s *planStatus) fileReport() {
	output := configuration.Get[string](configuration.PlanOutputKey)
	if output == "" {
		return
	}

	files := make([]internal.OutputFile, 0, len(s.files))
	for fName, plans := range s.files {
		files = append(files, internal.OutputFile{Filename: fName, Plans: plans})
	}

	result := internal.OutputResult{
		GoModule:      s.module,
		ElapsedTime:   s.elapsedSecs,
		MutantsTotal:  s.early + s.staticToRun + s.runtimeToRun,
		MutantsEarly:  s.early,
		MutantsToRun:  s.staticToRun + s.runtimeToRun,
		StaticToRun:   s.staticToRun,
		RuntimeToRun:  s.runtimeToRun,
		VerdictCounts: s.verdicts,
		Files:         files,
	}

	jsonResult, err := json.Marshal(result)
	if err != nil {
		log.Errorf("impossible to marshal plan output: %s\n", err)

		return
	}

	f, err := os.Create(output) //nolint:gosec // output is operator-configured
	if err != nil {
		log.Errorf("impossible to write file: %s\n", err)

		return
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	if _, err := f.Write(jsonResult); err != nil {
		log.Errorf("impossible to write file: %s\n", err)
	}
}

// Do generates the report for a finished plan. It never returns an
// error: planning has no pass/fail threshold of its own, unlike the
// full mutation-testing run it feeds.
func Do(results Results) error {
	st, ok := newPlanStatus(results)
	if !ok {
		log.Infoln("\nNo plan to report.")

		return nil
	}
	st.reportFindings()

	return nil
}

// Plan logs a single planned mutant's outcome, mirroring the
// durafmt-free, padded style used for individual plan lines.
func Plan(p mutant.PlanRecord) {
	m := p.Mutant()
	switch rec := p.(type) {
	case mutant.EarlyResult:
		log.Infof("%s%s %s at %s:%d:%d\n", padding(rec.M.Status.String()), fgHiYellow(rec.M.Status), m.MutatorName, m.FileName, m.Location.Start.Line, m.Location.Start.Col)
	case mutant.Run:
		log.Infof("%s%s %s at %s:%d:%d\n", padding("PLANNED"), fgHiGreen("PLANNED"), m.MutatorName, m.FileName, m.Location.Start.Line, m.Location.Start.Col)
	}
}

func padding(s string) string {
	var pad string
	padLen := 12 - len(s)
	for i := 0; i < padLen; i++ {
		pad += " "
	}

	return pad
}
