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

// Package vcsdiff is an optional, additive pre-filter that runs ahead of
// the planning core: it parses `git diff` output to find which source
// lines changed against a reference, so a caller can skip planning for
// mutants entirely outside the changed regions. It is independent of
// the incremental differ, which reconciles against a
// prior mutation-testing report rather than against VCS history; the
// two can be combined but neither depends on the other.
package vcsdiff

import (
	"bytes"
	"fmt"
	"os/exec"
	"sort"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/go-gremlins/mutplan/internal/log"
	"github.com/go-gremlins/mutplan/internal/mutant"
)

// Change is a contiguous range of added or modified lines in a file.
type Change struct {
	StartLine int
	EndLine   int
}

// Diff maps file names to their list of changes.
type Diff map[string][]Change

type execCmd interface {
	CombinedOutput() ([]byte, error)
}

// New runs `git diff --merge-base ref` and parses the result. An empty
// ref disables the filter: the returned Diff is nil, and IsChanged
// reports true unconditionally.
func New(ref string) (Diff, error) {
	return NewWithCmd(ref, exec.Command)
}

// NewWithCmd is New with an injectable command executor, for testing.
func NewWithCmd[T execCmd](ref string, cmdContext func(name string, args ...string) T) (Diff, error) {
	if ref == "" {
		return nil, nil
	}

	log.Infoln("Gathering files diff...")

	cmd := cmdContext("git", "diff", "--merge-base", ref)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("an error occurred while calling git diff: %w\n\n%s", err, out)
	}

	files, _, err := gitdiff.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("an error occurred while parsing diff: %w", err)
	}

	return newDiff(files), nil
}

func newDiff(files []*gitdiff.File) Diff {
	result := Diff{}
	for _, file := range files {
		name, changes := newChanges(file)
		result[name] = changes
	}

	return result
}

// newChanges walks a fragment's lines one at a time rather than
// deriving a single range from the fragment header, so it correctly
// reports every added run even when a fragment interleaves more than
// one block of additions around context or deleted lines.
func newChanges(file *gitdiff.File) (string, []Change) {
	var changes []Change
	for _, fragment := range file.TextFragments {
		changes = append(changes, addedRuns(fragment)...)
	}

	return file.NewName, mergeRuns(changes)
}

func addedRuns(fragment *gitdiff.TextFragment) []Change {
	var changes []Change
	line := fragment.NewPosition
	var runStart int64
	inRun := false

	closeRun := func() {
		if inRun {
			changes = append(changes, Change{StartLine: int(runStart), EndLine: int(line - 1)})
			inRun = false
		}
	}

	for _, l := range fragment.Lines {
		switch l.Op {
		case gitdiff.OpAdd:
			if !inRun {
				runStart = line
				inRun = true
			}
			line++
		case gitdiff.OpContext:
			closeRun()
			line++
		case gitdiff.OpDelete:
			closeRun()
		}
	}
	closeRun()

	return changes
}

// mergeRuns sorts and coalesces touching or overlapping ranges so a
// file's changes are reported as the smallest set of disjoint runs.
func mergeRuns(changes []Change) []Change {
	if len(changes) < 2 {
		return changes
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].StartLine < changes[j].StartLine })

	merged := changes[:1]
	for _, c := range changes[1:] {
		last := &merged[len(merged)-1]
		if c.StartLine <= last.EndLine+1 {
			if c.EndLine > last.EndLine {
				last.EndLine = c.EndLine
			}

			continue
		}
		merged = append(merged, c)
	}

	return merged
}

// IsChanged reports whether pos falls within a changed region of its
// file. A nil or empty Diff matches every position.
func (d Diff) IsChanged(fileName string, pos mutant.Position) bool {
	if len(d) == 0 {
		return true
	}
	for _, change := range d[fileName] {
		if pos.Line >= change.StartLine && pos.Line <= change.EndLine {
			return true
		}
	}

	return false
}

// FilterMutants keeps only the mutants whose start location falls
// within a changed region, preserving order. It is meant to run before
// Planner.Plan, never inside it: the planning core has no VCS
// dependency of its own.
func (d Diff) FilterMutants(mutants []mutant.Mutant) []mutant.Mutant {
	if len(d) == 0 {
		return mutants
	}
	kept := make([]mutant.Mutant, 0, len(mutants))
	for _, m := range mutants {
		if d.IsChanged(m.FileName, m.Location.Start) {
			kept = append(kept, m)
		}
	}

	return kept
}
