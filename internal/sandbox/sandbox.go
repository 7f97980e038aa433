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

// Package sandbox is the concrete Sandbox collaborator: it maps a
// source file name to its path inside the isolated working copy a
// test-runner pool executes mutants against, delegating the actual
// copy-on-demand bookkeeping to a workdir.Dealer.
package sandbox

import (
	"path/filepath"

	"github.com/go-gremlins/mutplan/internal/engine/workdir"
)

// DealerSandbox adapts a workdir.Dealer into the planner's Sandbox
// contract. Its working copy is created lazily, the first time
// SandboxFileFor is called, and identified by a fixed identifier since a
// single planning run always targets one working copy.
type DealerSandbox struct {
	dealer workdir.Dealer
	srcDir string
	wd     string
}

const dealerIdentifier = "plan"

// New builds a DealerSandbox backed by dealer, whose Get method resolves
// working copies of srcDir.
func New(dealer workdir.Dealer, srcDir string) *DealerSandbox {
	return &DealerSandbox{dealer: dealer, srcDir: srcDir}
}

// SandboxFileFor returns fileName's path inside the working copy. If the
// working copy cannot be created, it falls back to fileName itself so
// planning can still proceed; the runner will surface the real error
// when it tries to use the sandbox.
func (s *DealerSandbox) SandboxFileFor(fileName string) string {
	if s.wd == "" {
		wd, err := s.dealer.Get(dealerIdentifier)
		if err != nil {
			return fileName
		}
		s.wd = wd
	}

	rel, err := filepath.Rel(s.srcDir, fileName)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		rel = fileName
	}

	return filepath.Join(s.wd, rel)
}
