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

// Package planerr defines the single typed failure mode the planner can
// propagate to its caller: malformed input that violates
// the schema contract. It never carries normal-variability outcomes —
// those are recovered locally and logged, not returned as errors.
package planerr

import "fmt"

// Reason enumerates why planning was refused.
type Reason int

// The reasons planning can fail.
const (
	// MissingLocation: a mutant has no location.
	MissingLocation Reason = iota
	// MissingRunField: a Run plan is missing a required field (an empty
	// sandbox file name, or a static Run without a hit limit).
	MissingRunField
)

func (r Reason) String() string {
	switch r {
	case MissingLocation:
		return "mutant has no location"
	case MissingRunField:
		return "run plan is missing a required field"
	default:
		return "unknown malformed-input error"
	}
}

// MalformedInputError is returned when planning cannot proceed because
// an input violates the schema contract. It is the only error type the
// planner defines; besides it, Plan returns only the context's error
// when ctx is cancelled. The reporter's OnMutationTestingPlanReady is
// never invoked when an error is returned.
type MalformedInputError struct {
	Reason   Reason
	MutantID string
}

func (e *MalformedInputError) Error() string {
	if e.MutantID != "" {
		return fmt.Sprintf("malformed input for mutant %q: %s", e.MutantID, e.Reason)
	}

	return fmt.Sprintf("malformed input: %s", e.Reason)
}
