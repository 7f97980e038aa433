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

package internal

// OutputResult is the data structure for the plan file output format.
type OutputResult struct {
	GoModule      string       `json:"go_module"`
	Files         []OutputFile `json:"files"`
	MutantsTotal  int          `json:"mutants_total"`
	MutantsEarly  int          `json:"mutants_early"`
	MutantsToRun  int          `json:"mutants_to_run"`
	StaticToRun   int          `json:"static_to_run"`
	RuntimeToRun  int          `json:"runtime_to_run"`
	ElapsedTime   float64      `json:"elapsed_time"`
	VerdictCounts VerdictTally `json:"verdict_counts"`
}

// OutputFile represents a single file's planned mutants in OutputResult.
type OutputFile struct {
	Filename string    `json:"file_name"`
	Plans    []Planned `json:"plans"`
}

// Planned represents a single planned mutant in OutputResult.
type Planned struct {
	Mutator          string `json:"mutator"`
	Line             int    `json:"line"`
	Column           int    `json:"column"`
	Verdict          string `json:"verdict,omitempty"`
	Static           bool   `json:"static"`
	MutantActivation string `json:"mutant_activation,omitempty"`
	TestCount        int    `json:"test_count"`
	TimeoutMs        int64  `json:"timeout_ms,omitempty"`
}

// VerdictTally counts the early, reused verdicts found in a plan.
type VerdictTally struct {
	Ignored    int `json:"ignored,omitempty"`
	NoCoverage int `json:"no_coverage,omitempty"`
	Survived   int `json:"survived,omitempty"`
	Killed     int `json:"killed,omitempty"`
	Timeout    int `json:"timeout,omitempty"`
	NotViable  int `json:"not_viable,omitempty"`
}
