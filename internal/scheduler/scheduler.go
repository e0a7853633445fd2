// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping: deferred publishes, expired
// draft lock cleanup and event log retention.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-builder/internal/model"
)

// Job names and their schedules.
const (
	JobPublishDue  = "publish_due"
	JobPurgeLocks  = "purge_locks"
	JobPruneEvents = "prune_events"

	schedulePublishDue  = "* * * * *"
	schedulePurgeLocks  = "@hourly"
	schedulePruneEvents = "@daily"

	// jobTimeout bounds a single run of any job.
	jobTimeout = 5 * time.Minute
)

// Publisher publishes pages whose schedule has come due.
type Publisher interface {
	PublishDue(ctx context.Context) (int, error)
}

// LockPurger removes expired draft locks.
type LockPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// EventPruner deletes old event log rows.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"last_run,omitzero"`
	NextRun  time.Time `json:"next_run,omitzero"`
}

type registeredJob struct {
	name     string
	schedule string
	entryID  cron.EntryID
	run      func(ctx context.Context) error
}

// Scheduler owns the cron instance and the registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*registeredJob
}

// New creates a scheduler. events may be nil to disable retention, and a
// retention of zero does the same.
func New(publisher Publisher, locks LockPurger, events EventPruner, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*registeredJob),
	}

	if publisher != nil {
		s.register(JobPublishDue, schedulePublishDue, func(ctx context.Context) error {
			n, err := publisher.PublishDue(ctx)
			if n > 0 {
				s.logger.Info("scheduled pages published", "category", model.EventCategoryPublish, "count", n)
			}
			return err
		})
	}
	if locks != nil {
		s.register(JobPurgeLocks, schedulePurgeLocks, func(ctx context.Context) error {
			_, err := locks.PurgeExpired(ctx)
			return err
		})
	}
	if events != nil && retention > 0 {
		s.register(JobPruneEvents, schedulePruneEvents, func(ctx context.Context) error {
			n, err := events.DeleteOldEvents(ctx, retention)
			if n > 0 {
				s.logger.Info("old events deleted", "category", model.EventCategorySystem, "count", n)
			}
			return err
		})
	}
	return s
}

func (s *Scheduler) register(name, schedule string, run func(ctx context.Context) error) {
	s.jobs[name] = &registeredJob{name: name, schedule: schedule, run: run}
}

// Start adds every registered job to cron and starts it.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		job := job // per-iteration copy; go directive predates Go 1.22 loop semantics
		id, err := s.cron.AddFunc(job.schedule, func() { s.execute(job) })
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", job.name, err)
		}
		job.entryID = id
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs a job immediately, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q: %w", name, model.ErrNotFound)
	}
	return s.execute(job)
}

// Jobs lists the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		info := JobInfo{Name: job.name, Schedule: job.schedule}
		if job.entryID != 0 {
			entry := s.cron.Entry(job.entryID)
			info.LastRun = entry.Prev
			info.NextRun = entry.Next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) execute(job *registeredJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.run(ctx)
	if err != nil {
		s.logger.Error("scheduled job failed", "category", model.EventCategorySystem, "job", job.name, "error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "job", job.name, "duration", time.Since(start))
	return nil
}
