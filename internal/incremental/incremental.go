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

// Package incremental reconciles the current set of mutations and tests
// against a previous run's report, reusing a prior verdict wherever its
// reuse rule allows it. It is pure and order-independent: it never
// mutates its inputs and its output never depends on the order mutants
// are processed in.
package incremental

import (
	"sort"

	"github.com/go-gremlins/mutplan/internal/mutant"
	"github.com/go-gremlins/mutplan/internal/rangematch"
	"github.com/go-gremlins/mutplan/internal/testidentity"
)

// SourceAccessor resolves the current source text of a file, by path.
type SourceAccessor interface {
	SourceFor(path string) (string, bool)
}

// Differ reconciles current mutants against a prior incremental report.
type Differ struct {
	report     *mutant.IncrementalReport
	testIdx    testidentity.Index
	project    SourceAccessor
	priorMByID map[string][]mutant.PriorMutantResult // keyed by file path
}

// New builds a Differ from a prior report. A nil report yields a Differ
// whose Diff is a no-op (every current mutant is returned unmodified).
func New(report *mutant.IncrementalReport, project SourceAccessor) *Differ {
	d := &Differ{
		report:     report,
		testIdx:    testidentity.NewIndex(report),
		project:    project,
		priorMByID: map[string][]mutant.PriorMutantResult{},
	}
	if report != nil {
		for path, fr := range report.Files {
			d.priorMByID[path] = fr.Mutants
		}
	}

	return d
}

// Diff rewrites each current mutant with its prior verdict when safe to
// reuse. coveringTestsByMutantID maps a current mutant id to the ids of
// the tests from the dry run that cover it (empty or absent for a
// mutant with no coverage). currentTests is the dry run's full test
// list, used to resolve (fileName, name) and close open-ended ranges on
// the current side.
func (d *Differ) Diff(currentMutants []mutant.Mutant, coveringTestsByMutantID map[string][]string, currentTests []mutant.TestResult) []mutant.Mutant {
	if d.report == nil {
		return append([]mutant.Mutant(nil), currentMutants...)
	}

	testsByID := make(map[string]mutant.TestResult, len(currentTests))
	for _, t := range currentTests {
		testsByID[t.ID] = t
	}
	currentStartsByFile := groupStartsByFile(currentTests)

	out := make([]mutant.Mutant, len(currentMutants))
	for i, m := range currentMutants {
		out[i] = d.diffOne(m, coveringTestsByMutantID[m.ID], testsByID, currentStartsByFile)
	}

	return out
}

func (d *Differ) diffOne(
	m mutant.Mutant,
	coveringIDs []string,
	testsByID map[string]mutant.TestResult,
	currentStartsByFile map[string][]mutant.Range,
) mutant.Mutant {
	prior, ok := d.findPriorMutant(m)
	if !ok {
		return m
	}

	if !d.testDependenciesUnchanged(prior, coveringIDs, testsByID, currentStartsByFile) {
		return m
	}

	return m.WithPriorFields(prior.Status, prior.StatusReason, prior.TestsCompleted, prior.KilledBy, prior.CoveredBy)
}

// findPriorMutant implements reuse-rule condition 1 and 2: a prior
// mutant in the same file, same mutator, same replacement, whose range
// matches the current mutant's location.
func (d *Differ) findPriorMutant(m mutant.Mutant) (mutant.PriorMutantResult, bool) {
	fr, ok := d.report.Files[m.FileName]
	if !ok {
		return mutant.PriorMutantResult{}, false
	}

	for _, prior := range fr.Mutants {
		if prior.MutatorName != m.MutatorName || prior.Replacement != m.Replacement {
			continue
		}
		if rangematch.Matches(fr.Source, currentSourceOf(d.project, m.FileName), prior.Location, m.Location) {
			return prior, true
		}
	}

	return mutant.PriorMutantResult{}, false
}

// testDependenciesUnchanged implements reuse-rule condition 3.
func (d *Differ) testDependenciesUnchanged(
	prior mutant.PriorMutantResult,
	coveringIDs []string,
	testsByID map[string]mutant.TestResult,
	currentStartsByFile map[string][]mutant.Range,
) bool {
	for _, id := range coveringIDs {
		t, ok := testsByID[id]
		if !ok {
			continue
		}
		if !d.testUnchanged(t, currentStartsByFile) {
			return false
		}
	}

	if prior.Status == mutant.Killed {
		if len(prior.KilledBy) == 0 {
			return false
		}
		killerID := prior.KilledBy[0]
		t, ok := testsByID[killerID]
		if !ok {
			return false
		}

		return d.testUnchanged(t, currentStartsByFile)
	}

	// Non-killed terminal verdict: no NEW covering test may have
	// appeared. Removal of covering tests still preserves reuse.
	priorCovering := map[string]bool{}
	for _, id := range prior.CoveredBy {
		priorCovering[id] = true
	}
	for _, id := range coveringIDs {
		if !priorCovering[id] {
			return false
		}
	}

	return true
}

// testUnchanged resolves t against the prior report's tests: the
// prior test with the same (fileName, name) must exist and its closed
// range must match the current test's closed range.
func (d *Differ) testUnchanged(t mutant.TestResult, currentStartsByFile map[string][]mutant.Range) bool {
	priorDef, priorClosed, found := d.testIdx.Resolve(t.FileName, t.Name, t.StartPos)
	if !found {
		return false
	}
	_ = priorDef

	if t.StartPos == nil {
		return true
	}

	currentClosed := closeAgainstSiblings(t.FileName, *t.StartPos, currentStartsByFile, currentSourceOf(d.project, t.FileName))

	priorSource := d.priorTestSource(t.FileName)

	return rangematch.Matches(priorSource, currentSourceOf(d.project, t.FileName), priorClosed, currentClosed)
}

func (d *Differ) priorTestSource(fileName string) string {
	if d.report == nil {
		return ""
	}
	tf, ok := d.report.TestFiles[fileName]
	if !ok {
		return ""
	}

	return tf.Source
}

func currentSourceOf(project SourceAccessor, path string) string {
	if project == nil {
		return ""
	}
	src, _ := project.SourceFor(path)

	return src
}

func groupStartsByFile(tests []mutant.TestResult) map[string][]mutant.Range {
	out := map[string][]mutant.Range{}
	for _, t := range tests {
		if t.StartPos == nil {
			continue
		}
		out[t.FileName] = append(out[t.FileName], mutant.Range{Start: *t.StartPos})
	}
	for file := range out {
		sort.SliceStable(out[file], func(i, j int) bool {
			a, b := out[file][i].Start, out[file][j].Start
			if a.Line != b.Line {
				return a.Line < b.Line
			}

			return a.Col < b.Col
		})
	}

	return out
}

func closeAgainstSiblings(fileName string, start mutant.Position, byFile map[string][]mutant.Range, source string) mutant.Range {
	siblings := byFile[fileName]
	idx := -1
	for i, r := range siblings {
		if r.Start == start && idx == -1 {
			idx = i
		}
	}
	if idx == -1 {
		return mutant.Range{Start: start}
	}

	return rangematch.CloseOpenRange(siblings, idx, source)
}
