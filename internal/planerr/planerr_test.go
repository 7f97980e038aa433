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

package planerr_test

import (
	"errors"
	"testing"

	"github.com/go-gremlins/mutplan/internal/planerr"
)

func TestMalformedInputError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *planerr.MalformedInputError
		want string
	}{
		{
			name: "with mutant id",
			err:  &planerr.MalformedInputError{Reason: planerr.MissingLocation, MutantID: "42"},
			want: `malformed input for mutant "42": mutant has no location`,
		},
		{
			name: "without mutant id",
			err:  &planerr.MalformedInputError{Reason: planerr.MissingRunField},
			want: "malformed input: run plan is missing a required field",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMalformedInputError_IsError(t *testing.T) {
	var err error = &planerr.MalformedInputError{Reason: planerr.MissingLocation, MutantID: "1"}

	var target *planerr.MalformedInputError
	if !errors.As(err, &target) {
		t.Fatal("errors.As() failed to unwrap MalformedInputError")
	}
}

func TestReason_String_Unknown(t *testing.T) {
	var r planerr.Reason = 99
	if got := r.String(); got != "unknown malformed-input error" {
		t.Errorf("String() = %q, want fallback string", got)
	}
}
