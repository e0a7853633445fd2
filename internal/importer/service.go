// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package importer turns design documents into builder component trees in
// the background, tracking each run as a job.
package importer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/ocms-builder/internal/dispatch"
	"github.com/olegiv/ocms-builder/internal/jobs"
	"github.com/olegiv/ocms-builder/internal/model"
)

// JobKind is the tracker namespace for import jobs.
const JobKind = "import"

// dispatchFailedMessage is stored on jobs that never reached a worker.
const dispatchFailedMessage = "task dispatch failed"

// Enqueuer schedules background work without blocking.
type Enqueuer interface {
	Enqueue(name string, fn dispatch.TaskFunc) error
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	JobID    string `json:"job_id"`
	Accepted bool   `json:"accepted"`
}

// Service accepts import requests and answers progress queries.
type Service struct {
	tracker  *jobs.Tracker
	enqueuer Enqueuer
	worker   *Worker
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates an import Service.
func NewService(tracker *jobs.Tracker, enqueuer Enqueuer, worker *Worker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tracker:  tracker,
		enqueuer: enqueuer,
		worker:   worker,
		validate: NewValidator(),
		logger:   logger,
	}
}

// Submit records a queued job and hands it to a worker. When no worker can
// take it the job is marked failed and Accepted is false; the job id is
// still returned so the failure can be inspected.
func (s *Service) Submit(ctx context.Context, actor model.Actor, req Request) (*SubmitResult, error) {
	if actor.IsZero() {
		return nil, model.ErrPermissionDenied
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	job, err := s.tracker.Create(ctx, jobPayload{
		FigmaURL:   req.URL,
		PageID:     req.PageID,
		TemplateID: req.TemplateID,
		UserID:     actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	jobID := job.ID
	err = s.enqueuer.Enqueue(JobKind+":"+jobID, func(ctx context.Context) {
		s.worker.Run(ctx, jobID, req)
	})
	if err != nil {
		s.logger.Warn("import dispatch failed", "category", model.EventCategoryImport, "job_id", jobID, "error", err)
		if _, ferr := s.tracker.Fail(ctx, jobID, dispatchFailedMessage); ferr != nil {
			return nil, ferr
		}
		return &SubmitResult{JobID: jobID, Accepted: false}, nil
	}

	s.logger.Info("import submitted", "category", model.EventCategoryImport, "job_id", jobID, "actor", actor.UserID)
	return &SubmitResult{JobID: jobID, Accepted: true}, nil
}

// Progress returns the job's current step and percentage.
func (s *Service) Progress(ctx context.Context, jobID string) (*jobs.Progress, error) {
	return s.tracker.Progress(ctx, jobID)
}

// Result returns the finished tree. See jobs.Tracker.Result for the error cases.
func (s *Service) Result(ctx context.Context, jobID string) (json.RawMessage, error) {
	return s.tracker.Result(ctx, jobID)
}
