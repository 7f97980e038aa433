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

// Package project is the concrete Project collaborator the planning core
// depends on only through an interface: it resolves a source file's
// current text from the Go module on disk, and loads the previous run's
// incremental report from a JSON file beside it, if any.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gremlins/mutplan/internal/gomodule"
	"github.com/go-gremlins/mutplan/internal/mutant"
)

// ReportFileName is the default name of the persisted incremental report,
// written beside the Go module root.
const ReportFileName = ".mutplan-report.json"

// FSProject resolves sources from a Go module's file tree and caches
// each file's contents for the lifetime of a single planning run.
type FSProject struct {
	module gomodule.GoModule

	mu      sync.Mutex
	sources map[string]string

	reportPath string
}

// New builds an FSProject rooted at module. reportPath overrides the
// default location of the persisted incremental report; an empty value
// falls back to ReportFileName under module.Root.
func New(module gomodule.GoModule, reportPath string) *FSProject {
	if reportPath == "" {
		reportPath = filepath.Join(module.Root, ReportFileName)
	}

	return &FSProject{
		module:     module,
		sources:    map[string]string{},
		reportPath: reportPath,
	}
}

// SourceFor returns the current contents of path, relative to the
// module root, reading it from disk once and caching the result.
func (p *FSProject) SourceFor(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if src, ok := p.sources[path]; ok {
		return src, true
	}

	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(p.module.Root, path)
	}

	//nolint:gosec // full is derived from the module's own source tree, not user input
	b, err := os.ReadFile(full)
	if err != nil {
		return "", false
	}

	src := string(b)
	p.sources[path] = src

	return src, true
}

// IncrementalReport loads the previous run's report from disk. It
// returns ok=false if no report exists yet or it cannot be parsed.
func (p *FSProject) IncrementalReport() (*mutant.IncrementalReport, bool) {
	//nolint:gosec // reportPath is operator-configured, not user input
	b, err := os.ReadFile(p.reportPath)
	if err != nil {
		return nil, false
	}

	var report mutant.IncrementalReport
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, false
	}

	return &report, true
}

// WriteIncrementalReport persists report to the configured location, so
// the next run can reuse it.
func (p *FSProject) WriteIncrementalReport(report mutant.IncrementalReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}

	return os.WriteFile(p.reportPath, b, 0o600)
}
