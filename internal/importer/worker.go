// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/ocms-builder/internal/jobs"
	"github.com/olegiv/ocms-builder/internal/model"
)

// failWriteTimeout bounds the final failure write once the run context is gone.
const failWriteTimeout = 5 * time.Second

// Worker converts one design into a component tree, reporting each step
// to the job tracker.
type Worker struct {
	tracker   *jobs.Tracker
	fetcher   Fetcher
	stepDelay time.Duration
	logger    *slog.Logger
}

// NewWorker creates a Worker. A nil fetcher selects PlaceholderFetcher.
// stepDelay pauses between steps so progress can be observed.
func NewWorker(tracker *jobs.Tracker, fetcher Fetcher, stepDelay time.Duration, logger *slog.Logger) *Worker {
	if fetcher == nil {
		fetcher = PlaceholderFetcher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{tracker: tracker, fetcher: fetcher, stepDelay: stepDelay, logger: logger}
}

// Run executes the import. It never returns an error or panics: every
// failure ends up on the job record as step=failed.
func (w *Worker) Run(ctx context.Context, jobID string, req Request) {
	defer func() {
		if r := recover(); r != nil {
			w.fail(ctx, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := w.run(ctx, jobID, req); err != nil {
		w.fail(ctx, jobID, err.Error())
	}
}

func (w *Worker) run(ctx context.Context, jobID string, req Request) error {
	if err := w.step(ctx, jobID, model.JobStepValidating); err != nil {
		return err
	}
	source := strings.TrimSpace(req.URL)
	if source == "" {
		return errors.New("design URL is empty")
	}

	if err := w.step(ctx, jobID, model.JobStepFetching); err != nil {
		return err
	}
	doc, err := w.fetcher.Fetch(ctx, source)
	if err != nil {
		return err
	}

	if err := w.step(ctx, jobID, model.JobStepExtracting); err != nil {
		return err
	}
	frames, err := extractFrames(doc)
	if err != nil {
		return err
	}

	if err := w.step(ctx, jobID, model.JobStepMapping); err != nil {
		return err
	}
	m := newMapper()
	children := m.mapFrames(frames)
	if len(children) == 0 {
		return errors.New("design has no supported frames")
	}

	if err := w.step(ctx, jobID, model.JobStepAssembling); err != nil {
		return err
	}
	result := m.assemble(children, req.URL)

	if _, err := w.tracker.Complete(ctx, jobID, result); err != nil {
		return fmt.Errorf("storing result: %w", err)
	}

	w.logger.Info("import completed",
		"category", model.EventCategoryImport,
		"job_id", jobID,
		"nodes", len(result.Tree.Nodes),
		"assets", len(result.Assets),
	)
	return nil
}

// step records progress for s and then waits out the configured delay.
func (w *Worker) step(ctx context.Context, jobID string, s model.JobStep) error {
	if _, err := w.tracker.Advance(ctx, jobID, s, s.DefaultProgress()); err != nil {
		return fmt.Errorf("recording step %s: %w", s, err)
	}
	if w.stepDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(w.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) fail(ctx context.Context, jobID, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()

	if _, err := w.tracker.Fail(ctx, jobID, message); err != nil {
		if errors.Is(err, jobs.ErrJobTerminal) || errors.Is(err, model.ErrNotFound) {
			w.logger.Debug("import failure not recorded", "category", model.EventCategoryImport, "job_id", jobID, "error", err)
			return
		}
		w.logger.Error("recording import failure", "category", model.EventCategoryImport, "job_id", jobID, "error", err)
	}
}
