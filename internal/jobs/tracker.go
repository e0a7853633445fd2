// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package jobs tracks the progress and outcome of background jobs in a
// TTL key-value store.
//
// A job record is a JSON object. Every write reads the record, merges only
// the fields it changes and writes the result back inside Cacher.Update, so
// fields set by other writers are never lost.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/model"
)

// DefaultTTL is used when NewTracker gets a zero TTL.
const DefaultTTL = time.Hour

var (
	// ErrJobTerminal is returned for writes against a done or failed job.
	ErrJobTerminal = errors.New("job already finished")

	// ErrInvalidStep is returned when a step change would move a job backwards.
	ErrInvalidStep = errors.New("invalid job step")
)

// Job is the stored state of a job.
type Job struct {
	ID        string          `json:"job_id"`
	Kind      string          `json:"kind"`
	Step      model.JobStep   `json:"step"`
	Progress  int             `json:"progress"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Progress is the public progress view of a job.
type Progress struct {
	JobID    string        `json:"job_id"`
	Progress int           `json:"progress"`
	Step     model.JobStep `json:"step"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker stores job records under "<kind>:<uuid>" keys.
type Tracker struct {
	cache  cache.Cacher
	kind   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker for jobs of the given kind.
// The TTL is refreshed on every write.
func NewTracker(c cache.Cacher, kind string, ttl time.Duration, opts ...Option) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	t := &Tracker{
		cache:  c,
		kind:   kind,
		ttl:    ttl,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) key(id string) string {
	return t.kind + ":" + id
}

func (t *Tracker) clock() time.Time {
	return t.now().UTC()
}

// Create stores a new job at queued/0 and returns it.
func (t *Tracker) Create(ctx context.Context, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding job payload: %w", err)
	}

	now := t.clock()
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      t.kind,
		Step:      model.JobStepQueued,
		Progress:  model.JobStepQueued.DefaultProgress(),
		Payload:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encoding job: %w", err)
	}
	if err := t.cache.Set(ctx, t.key(job.ID), data, t.ttl); err != nil {
		return nil, fmt.Errorf("storing job: %w", err)
	}

	t.logger.Debug("job created", "category", model.EventCategoryImport, "job_id", job.ID, "kind", t.kind)
	return job, nil
}

// Get returns the stored job, or model.ErrNotFound for unknown or expired ids.
func (t *Tracker) Get(ctx context.Context, id string) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrNotFound
	}

	data, err := t.cache.Get(ctx, t.key(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &job, nil
}

// Progress returns the progress view of a job.
func (t *Tracker) Progress(ctx context.Context, id string) (*Progress, error) {
	job, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Progress{JobID: job.ID, Progress: job.Progress, Step: job.Step}, nil
}

// Result returns the result of a finished job. Unfinished jobs yield
// model.ErrNotReady and failed ones a *model.JobFailedError.
func (t *Tracker) Result(ctx context.Context, id string) (json.RawMessage, error) {
	job, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch job.Step {
	case model.JobStepDone:
		return job.Result, nil
	case model.JobStepFailed:
		return nil, &model.JobFailedError{JobID: job.ID, Message: job.Error}
	default:
		return nil, model.ErrNotReady
	}
}

// Advance moves a job to a later non-terminal step. Progress never goes
// down and is clamped to 0..100.
func (t *Tracker) Advance(ctx context.Context, id string, step model.JobStep, progress int) (*Job, error) {
	if step.Terminal() || !step.Valid() {
		return nil, fmt.Errorf("advancing job %s to %q: %w", id, step, ErrInvalidStep)
	}

	return t.update(ctx, id, func(cur *Job) (map[string]any, error) {
		if !cur.Step.CanAdvanceTo(step) {
			return nil, fmt.Errorf("advancing job %s from %s to %s: %w", id, cur.Step, step, ErrInvalidStep)
		}
		return map[string]any{
			"step":     step,
			"progress": max(cur.Progress, clamp(progress)),
		}, nil
	})
}

// Complete marks a job done with its result.
func (t *Tracker) Complete(ctx context.Context, id string, result any) (*Job, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding job result: %w", err)
	}

	job, err := t.update(ctx, id, func(*Job) (map[string]any, error) {
		return map[string]any{
			"step":     model.JobStepDone,
			"progress": model.JobStepDone.DefaultProgress(),
			"result":   json.RawMessage(raw),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("job finished", "category", model.EventCategoryImport, "job_id", id)
	return job, nil
}

// Fail marks a job failed with message.
func (t *Tracker) Fail(ctx context.Context, id, message string) (*Job, error) {
	job, err := t.update(ctx, id, func(*Job) (map[string]any, error) {
		return map[string]any{
			"step":     model.JobStepFailed,
			"progress": model.JobStepFailed.DefaultProgress(),
			"error":    message,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Warn("job failed", "category", model.EventCategoryImport, "job_id", id, "error", message)
	return job, nil
}

// update applies the fields returned by change to the stored record.
// Keys not named in the change are carried over untouched.
func (t *Tracker) update(ctx context.Context, id string, change func(cur *Job) (map[string]any, error)) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrNotFound
	}

	var job Job
	err := t.cache.Update(ctx, t.key(id), t.ttl, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, model.ErrNotFound
		}

		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(current, &fields); err != nil {
			return nil, fmt.Errorf("decoding job %s: %w", id, err)
		}
		var cur Job
		if err := json.Unmarshal(current, &cur); err != nil {
			return nil, fmt.Errorf("decoding job %s: %w", id, err)
		}
		if cur.Step.Terminal() {
			return nil, fmt.Errorf("job %s is %s: %w", id, cur.Step, ErrJobTerminal)
		}

		changes, err := change(&cur)
		if err != nil {
			return nil, err
		}
		changes["updated_at"] = t.clock()

		for name, value := range changes {
			raw, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encoding job field %s: %w", name, err)
			}
			fields[name] = raw
		}

		next, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encoding job %s: %w", id, err)
		}
		return next, json.Unmarshal(next, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func clamp(progress int) int {
	return min(max(progress, 0), 100)
}
