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

// Package testidentity builds a canonical key for a test (file name plus
// test name) and resolves which prior test definition a current test
// corresponds to, disambiguating generated tests that share a name by
// their start position.
package testidentity

import (
	"github.com/go-gremlins/mutplan/internal/mutant"
	"github.com/go-gremlins/mutplan/internal/rangematch"
)

type key struct {
	fileName string
	name     string
}

// Index maps (test file, test name) to every prior test definition
// sharing that key. A single key usually resolves to one definition; it
// holds more than one only for generated tests sharing a name.
type Index struct {
	byKey  map[key][]mutant.PriorTestDefinition
	source map[string]string
}

// NewIndex builds an Index from a prior incremental report. A nil report
// yields an empty Index, against which every current test resolves to
// "changed or new".
func NewIndex(report *mutant.IncrementalReport) Index {
	idx := Index{
		byKey:  map[key][]mutant.PriorTestDefinition{},
		source: map[string]string{},
	}
	if report == nil {
		return idx
	}
	for path, tf := range report.TestFiles {
		idx.source[path] = tf.Source
		for _, td := range tf.Tests {
			k := key{fileName: path, name: td.Name}
			idx.byKey[k] = append(idx.byKey[k], td)
		}
	}

	return idx
}

// Resolve looks up the prior test definition matching (fileName, name),
// closing its range against the other prior definitions in the same
// file and disambiguating by startPos when several definitions share the
// name.
func (idx Index) Resolve(fileName, name string, startPos *mutant.Position) (mutant.PriorTestDefinition, mutant.Range, bool) {
	candidates := idx.byKey[key{fileName: fileName, name: name}]
	if len(candidates) == 0 {
		return mutant.PriorTestDefinition{}, mutant.Range{}, false
	}

	allStarts := idx.allStartsInFile(fileName)
	source := idx.source[fileName]

	if len(candidates) == 1 || startPos == nil {
		td := candidates[0]
		closed := closedRangeFor(td, allStarts, source)

		return td, closed, true
	}

	for _, td := range candidates {
		closed := closedRangeFor(td, allStarts, source)
		if closed.Start == *startPos {
			return td, closed, true
		}
	}

	td := candidates[0]

	return td, closedRangeFor(td, allStarts, source), true
}

func (idx Index) allStartsInFile(fileName string) []mutant.Range {
	var starts []mutant.Range
	for k, defs := range idx.byKey {
		if k.fileName != fileName {
			continue
		}
		for _, td := range defs {
			if td.StartPos == nil {
				continue
			}
			starts = append(starts, mutant.Range{Start: *td.StartPos})
		}
	}

	return starts
}

func closedRangeFor(td mutant.PriorTestDefinition, allStarts []mutant.Range, source string) mutant.Range {
	if td.StartPos == nil {
		return mutant.Range{}
	}
	idx := -1
	for i, r := range allStarts {
		if r.Start == *td.StartPos && idx == -1 {
			idx = i
		}
	}
	if idx == -1 {
		return mutant.Range{Start: *td.StartPos}
	}

	return rangematch.CloseOpenRange(allStarts, idx, source)
}
