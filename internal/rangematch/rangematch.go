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

// Package rangematch decides whether a range in an old source text still
// exists, byte-for-byte, in a new source text. It is deliberately
// structural rather than AST-based: it never parses the sources it
// compares, which also means it tolerates syntactically invalid
// fixtures.
package rangematch

import (
	"sort"
	"strings"

	"github.com/go-gremlins/mutplan/internal/mutant"
)

// Matches reports whether oldRange in oldSource and newRange in
// newSource cover byte-identical text. A range
// referencing a line beyond the source never matches.
func Matches(oldSource, newSource string, oldRange, newRange mutant.Range) bool {
	oldBody, ok := body(oldSource, oldRange)
	if !ok {
		return false
	}
	newBody, ok := body(newSource, newRange)
	if !ok {
		return false
	}

	return oldBody == newBody
}

func body(source string, r mutant.Range) (string, bool) {
	if r.End == nil {
		return "", false
	}
	start, ok := offsetOf(source, r.Start.Line, r.Start.Col)
	if !ok {
		return "", false
	}
	end, ok := offsetOf(source, r.End.Line, r.End.Col)
	if !ok || end < start {
		return "", false
	}

	return source[start:end], true
}

// offsetOf converts a 1-based line, 0-based column position into a byte
// offset into source. It returns false if the line doesn't exist.
func offsetOf(source string, line, col int) (int, bool) {
	if line < 1 {
		return 0, false
	}
	lineStart := 0
	currentLine := 1
	for currentLine < line {
		idx := strings.IndexByte(source[lineStart:], '\n')
		if idx < 0 {
			return 0, false
		}
		lineStart += idx + 1
		currentLine++
	}
	if lineStart > len(source) {
		return 0, false
	}
	offset := lineStart + col
	if offset > len(source) {
		return 0, false
	}

	return offset, true
}

// CloseOpenRange closes an open-ended range (start only) using the start
// position of the next distinct prior definition on the same file
// (sorted by start), or end-of-file if there is none.
// starts must already be restricted to ranges on the same file as r;
// idx is r's index within starts.
func CloseOpenRange(starts []mutant.Range, idx int, source string) mutant.Range {
	r := starts[idx]
	if r.End != nil {
		return r
	}

	sorted := append([]mutant.Range(nil), starts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i].Start, sorted[j].Start)
	})

	var next *mutant.Position
	for _, other := range sorted {
		if less(r.Start, other.Start) {
			next = &other.Start

			break
		}
	}

	if next == nil {
		return mutant.Range{Start: r.Start, End: endOfFile(source)}
	}

	return mutant.Range{Start: r.Start, End: next}
}

func less(a, b mutant.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}

	return a.Col < b.Col
}

func endOfFile(source string) *mutant.Position {
	lines := strings.Split(source, "\n")
	lastLine := len(lines)
	lastCol := len(lines[len(lines)-1])

	return &mutant.Position{Line: lastLine, Col: lastCol}
}
