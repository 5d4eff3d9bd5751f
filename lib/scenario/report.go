// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"fmt"
	"io"
)

// Status is the verdict for one step.
type Status int

const (
	// Passed means every assertion in the step held.
	Passed Status = iota
	// Failed means an assertion failed or a call errored; the run
	// aborted here.
	Failed
	// Skipped means an environmental precondition was absent. Only
	// the cluster-formation sub-step may be skipped.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Skipped:
		return "SKIP"
	}
	return "?"
}

// StepResult is the recorded outcome of one step.
type StepResult struct {
	// Name identifies the step.
	Name string

	// Status is the verdict.
	Status Status

	// Detail is a one-line human-readable note: what was asserted,
	// or why the step was skipped.
	Detail string

	// Err is the failure, nil unless Status is Failed.
	Err error
}

// Skip signals that a step's environmental precondition is absent.
// It is not an error verdict: the runner records the step as skipped
// and continues.
type Skip struct {
	// Reason names the missing capability.
	Reason string
}

func (s *Skip) Error() string {
	return "skipped: " + s.Reason
}

// Report is the ordered record of a scenario run.
type Report struct {
	Steps []StepResult
}

// OK reports whether every executed step passed. Skipped steps count
// as passing; the scenario's exit contract is zero only when OK.
func (r *Report) OK() bool {
	for _, step := range r.Steps {
		if step.Status == Failed {
			return false
		}
	}
	return true
}

// Write renders the report, one line per step plus a summary.
func (r *Report) Write(w io.Writer) {
	passed, failed, skipped := 0, 0, 0
	for _, step := range r.Steps {
		switch step.Status {
		case Passed:
			passed++
			fmt.Fprintf(w, "%s  %s: %s\n", step.Status, step.Name, step.Detail)
		case Skipped:
			skipped++
			fmt.Fprintf(w, "%s  %s: %s\n", step.Status, step.Name, step.Detail)
		case Failed:
			failed++
			fmt.Fprintf(w, "%s  %s: %v\n", step.Status, step.Name, step.Err)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped\n", passed, failed, skipped)
}
