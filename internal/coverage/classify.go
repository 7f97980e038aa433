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

// Package coverage classifies mutants against the dry run's coverage
// matrix: whether a mutation point is hit only during
// module load (Static), only within tests (PerTest), both (Hybrid), not
// at all (NoCoverage), or whether the matrix itself is absent.
package coverage

import (
	"sort"

	"github.com/go-gremlins/mutplan/internal/log"
	"github.com/go-gremlins/mutplan/internal/mutant"
)

// Class is the coverage classification of a mutant, before it is turned
// into a plan record by the synthesizer.
type Class int

// The classes a mutant can fall into.
const (
	NoCoverage Class = iota
	Static
	PerTest
	EarlyIgnored
)

// Result is the outcome of classifying a single mutant.
type Result struct {
	Class     Class
	CoveredBy []string
	Static    bool
	// IgnoreReason is set when Class == EarlyIgnored.
	IgnoreReason string
	// TotalHits is static[id] + sum of perTest[t][id], used by the
	// planner to compute the hit limit. Zero when coverage is absent.
	TotalHits int
}

// Classify classifies m against matrix and dryRun. A nil matrix means
// "coverage unknown" for the whole mutant.
func Classify(m mutant.Mutant, matrix *mutant.CoverageMatrix, dryRun mutant.DryRunResult, ignoreStatic bool) Result {
	if matrix == nil {
		return Result{Class: NoCoverage}
	}

	staticHits, hasStatic := lookup(matrix.Static, m.ID)
	hasStatic = hasStatic && staticHits > 0
	coveredBy, totalPerTestHits := testsCovering(matrix.PerTest, dryRun, m.ID)

	switch {
	case hasStatic && len(coveredBy) == 0:
		return classifyStaticOnly(staticHits, ignoreStatic)
	case hasStatic && len(coveredBy) > 0:
		return classifyHybrid(staticHits, totalPerTestHits, coveredBy, ignoreStatic)
	case !hasStatic && len(coveredBy) > 0:
		return Result{Class: PerTest, CoveredBy: coveredBy, Static: false, TotalHits: totalPerTestHits}
	default:
		// Neither: id absent from both static and perTest.
		return Result{Class: PerTest, CoveredBy: []string{}, Static: false}
	}
}

func classifyStaticOnly(staticHits int, ignoreStatic bool) Result {
	if ignoreStatic {
		return Result{
			Class:        EarlyIgnored,
			IgnoreReason: `Static mutant (and "ignoreStatic" was enabled)`,
			Static:       true,
			CoveredBy:    []string{},
		}
	}

	return Result{Class: Static, CoveredBy: []string{}, Static: true, TotalHits: staticHits}
}

func classifyHybrid(staticHits, perTestHits int, coveredBy []string, ignoreStatic bool) Result {
	total := staticHits + perTestHits
	if ignoreStatic {
		return Result{Class: PerTest, CoveredBy: coveredBy, Static: true, TotalHits: total}
	}

	return Result{Class: Static, CoveredBy: coveredBy, Static: true, TotalHits: total}
}

// CoveredByIDs returns the ids of tests that currently cover mutation
// point id, without logging the missing-test warning a second time
// (used by the incremental differ to learn the current run's coverage
// edges, ahead of full classification).
func CoveredByIDs(matrix *mutant.CoverageMatrix, dryRun mutant.DryRunResult, id string) []string {
	if matrix == nil {
		return nil
	}
	known := make(map[string]bool, len(dryRun.Tests))
	for _, t := range dryRun.Tests {
		known[t.ID] = true
	}
	var covering []string
	for testID, hits := range matrix.PerTest {
		if h, ok := hits[id]; ok && h > 0 && known[testID] {
			covering = append(covering, testID)
		}
	}
	sort.Strings(covering)

	return covering
}

func lookup(m map[string]int, id string) (int, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[id]

	return v, ok
}

// testsCovering returns, in deterministic order, the ids of tests that
// cover mutation point id, plus the summed hit count across them. A test
// id present in perTest but absent from the dry run's test list is
// logged as a warning and excluded.
func testsCovering(perTest map[string]map[string]int, dryRun mutant.DryRunResult, id string) ([]string, int) {
	if perTest == nil {
		return nil, 0
	}

	known := make(map[string]bool, len(dryRun.Tests))
	for _, t := range dryRun.Tests {
		known[t.ID] = true
	}

	var covering []string
	total := 0
	for testID, hits := range perTest {
		h, ok := hits[id]
		if !ok || h == 0 {
			continue
		}
		if !known[testID] {
			log.Warnf(
				"Found test with id %q in coverage data, but not in the test results of the dry run. Not taking coverage data for this test into account.\n",
				testID,
			)

			continue
		}
		covering = append(covering, testID)
		total += h
	}
	sort.Strings(covering)
	if covering == nil {
		covering = []string{}
	}

	return covering, total
}

