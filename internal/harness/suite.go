package harness

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Skipped  int               `json:"skipped"` // filtered out by name
	Outcomes []ScenarioOutcome `json:"scenarios"`
	Failures []ScenarioOutcome `json:"failures,omitempty"`
}

// ScenarioOutcome is the result of one scenario of a suite.
type ScenarioOutcome struct {
	Scenario     string   `json:"scenario,omitempty"`
	ScenarioPath string   `json:"scenario_path"`
	Pass         bool     `json:"pass"`
	RunID        string   `json:"run_id,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// add records an outcome and updates the counters.
func (r *SuiteResult) add(o ScenarioOutcome) {
	r.Total++
	r.Outcomes = append(r.Outcomes, o)
	if o.Pass {
		r.Passed++
		return
	}
	r.Failed++
	r.Failures = append(r.Failures, o)
}

// DiscoverScenarios returns every .yaml and .yml file under dir, sorted.
// A file path is returned as is.
func DiscoverScenarios(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access scenarios: %w", err)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk scenarios: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario under dir whose name contains
// filter (all of them when filter is empty).
//
// For each scenario file:
// 1. Load the scenario
// 2. Skip it if its name doesn't match the filter
// 3. Run it via Harness.Run
// 4. Collect the outcome
//
// Load and execution failures count as failed scenarios; the returned
// error is reserved for an unreadable directory.
func (h *Harness) RunSuite(ctx context.Context, dir, filter string) (*SuiteResult, error) {
	paths, err := DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{Outcomes: []ScenarioOutcome{}}
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		if err != nil {
			result.add(ScenarioOutcome{
				ScenarioPath: path,
				Errors:       []string{fmt.Sprintf("failed to load scenario: %v", err)},
			})
			continue
		}

		if filter != "" && !strings.Contains(scenario.Name, filter) {
			result.Skipped++
			continue
		}

		runResult, err := h.Run(ctx, scenario)
		if err != nil {
			result.add(ScenarioOutcome{
				Scenario:     scenario.Name,
				ScenarioPath: path,
				Errors:       []string{fmt.Sprintf("scenario execution failed: %v", err)},
			})
			continue
		}

		result.add(ScenarioOutcome{
			Scenario:     scenario.Name,
			ScenarioPath: path,
			Pass:         runResult.Pass,
			RunID:        runResult.RunID,
			Errors:       runResult.Errors,
		})
	}

	return result, nil
}
