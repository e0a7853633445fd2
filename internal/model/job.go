// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "fmt"

// JobStep is a stage in the life of a background job.
type JobStep string

// Job steps, in execution order. JobStepFailed may follow any non-terminal step.
const (
	JobStepQueued     JobStep = "queued"
	JobStepValidating JobStep = "validating"
	JobStepFetching   JobStep = "fetching"
	JobStepExtracting JobStep = "extracting"
	JobStepMapping    JobStep = "mapping"
	JobStepAssembling JobStep = "assembling"
	JobStepDone       JobStep = "done"
	JobStepFailed     JobStep = "failed"
)

// jobStepRank orders the forward steps. Failed has no rank of its own.
var jobStepRank = map[JobStep]int{
	JobStepQueued:     0,
	JobStepValidating: 1,
	JobStepFetching:   2,
	JobStepExtracting: 3,
	JobStepMapping:    4,
	JobStepAssembling: 5,
	JobStepDone:       6,
	JobStepFailed:     -1,
}

// jobStepProgress is the progress written when a job enters each step.
var jobStepProgress = map[JobStep]int{
	JobStepQueued:     0,
	JobStepValidating: 5,
	JobStepFetching:   20,
	JobStepExtracting: 45,
	JobStepMapping:    70,
	JobStepAssembling: 90,
	JobStepDone:       100,
	JobStepFailed:     100,
}

// JobSteps returns the forward step sequence from queued to done.
func JobSteps() []JobStep {
	return []JobStep{
		JobStepQueued,
		JobStepValidating,
		JobStepFetching,
		JobStepExtracting,
		JobStepMapping,
		JobStepAssembling,
		JobStepDone,
	}
}

// ParseJobStep converts a stored value into a JobStep.
func ParseJobStep(s string) (JobStep, error) {
	st := JobStep(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown job step %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known step.
func (s JobStep) Valid() bool {
	_, ok := jobStepRank[s]
	return ok
}

// Terminal reports whether no further writes may follow s.
func (s JobStep) Terminal() bool {
	return s == JobStepDone || s == JobStepFailed
}

// CanAdvanceTo reports whether a job at step s may move to next.
// Steps only move forward; failed is reachable from any non-terminal step.
func (s JobStep) CanAdvanceTo(next JobStep) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == JobStepFailed {
		return true
	}
	return jobStepRank[next] >= jobStepRank[s]
}

// DefaultProgress returns the progress percentage associated with s.
func (s JobStep) DefaultProgress() int {
	return jobStepProgress[s]
}

func (s JobStep) String() string {
	return string(s)
}
