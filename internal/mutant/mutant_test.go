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

package mutant_test

import (
	"testing"

	"github.com/go-gremlins/mutplan/internal/mutant"
)

func TestVerdict_String(t *testing.T) {
	testCases := []struct {
		verdict mutant.Verdict
		want    string
	}{
		{mutant.NoVerdict, "NONE"},
		{mutant.Ignored, "IGNORED"},
		{mutant.NoCoverage, "NO COVERAGE"},
		{mutant.Survived, "SURVIVED"},
		{mutant.Killed, "KILLED"},
		{mutant.Timeout, "TIMEOUT"},
		{mutant.NotViable, "NOT VIABLE"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.verdict.String(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestVerdict_Terminal(t *testing.T) {
	terminal := []mutant.Verdict{mutant.Killed, mutant.Survived, mutant.NoCoverage, mutant.Timeout, mutant.NotViable}
	for _, v := range terminal {
		if !v.Terminal() {
			t.Errorf("expected %s to be terminal", v)
		}
	}

	notTerminal := []mutant.Verdict{mutant.NoVerdict, mutant.Ignored}
	for _, v := range notTerminal {
		if v.Terminal() {
			t.Errorf("expected %s not to be terminal", v)
		}
	}
}

func TestActivationMode_String(t *testing.T) {
	if got := mutant.Static.String(); got != "static" {
		t.Errorf("expected %q, got %q", "static", got)
	}
	if got := mutant.Runtime.String(); got != "runtime" {
		t.Errorf("expected %q, got %q", "runtime", got)
	}
}

func TestMutant_WithPriorFields(t *testing.T) {
	m := mutant.Mutant{
		ID:          "1",
		FileName:    "f.go",
		MutatorName: "ARITHMETIC_BASE",
		Replacement: "-",
		Location:    mutant.Range{Start: mutant.Position{Line: 1, Col: 1}},
	}

	got := m.WithPriorFields(mutant.Killed, "", 3, []string{"TestA"}, []string{"TestA", "TestB"})

	if got.FileName != m.FileName || got.MutatorName != m.MutatorName || got.Replacement != m.Replacement {
		t.Error("expected identity fields to be preserved")
	}
	if got.Status != mutant.Killed {
		t.Errorf("expected status %s, got %s", mutant.Killed, got.Status)
	}
	if got.TestsCompleted != 3 {
		t.Errorf("expected 3 tests completed, got %d", got.TestsCompleted)
	}
	if len(got.KilledBy) != 1 || got.KilledBy[0] != "TestA" {
		t.Errorf("unexpected KilledBy: %v", got.KilledBy)
	}

	// the original mutant must not be mutated.
	if m.Status != mutant.NoVerdict {
		t.Error("expected original mutant to be left untouched")
	}
}
