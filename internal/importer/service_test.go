// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/dispatch"
	"github.com/olegiv/ocms-builder/internal/jobs"
	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/testutil"
)

var alice = model.Actor{UserID: "alice"}

const figmaURL = "https://www.figma.com/file/abc123/Landing"

// inlineEnqueuer runs tasks synchronously so tests can inspect the final state.
type inlineEnqueuer struct{}

func (inlineEnqueuer) Enqueue(_ string, fn dispatch.TaskFunc) error {
	fn(context.Background())
	return nil
}

type refusingEnqueuer struct{}

func (refusingEnqueuer) Enqueue(string, dispatch.TaskFunc) error {
	return model.ErrUnavailable
}

// heldEnqueuer keeps tasks until release is called, like a busy worker pool.
type heldEnqueuer struct {
	tasks []dispatch.TaskFunc
}

func (h *heldEnqueuer) Enqueue(_ string, fn dispatch.TaskFunc) error {
	h.tasks = append(h.tasks, fn)
	return nil
}

func (h *heldEnqueuer) release() {
	for _, fn := range h.tasks {
		fn(context.Background())
	}
	h.tasks = nil
}

type fetcherFunc func(ctx context.Context, source string) (*Document, error)

func (f fetcherFunc) Fetch(ctx context.Context, source string) (*Document, error) {
	return f(ctx, source)
}

func newTestService(t *testing.T, enq Enqueuer, fetcher Fetcher) (*Service, *jobs.Tracker) {
	t.Helper()
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })

	logger := testutil.DiscardLogger()
	tracker := jobs.NewTracker(mem, JobKind, time.Hour, jobs.WithLogger(logger))
	worker := NewWorker(tracker, fetcher, 0, logger)
	return NewService(tracker, enq, worker, logger), tracker
}

func TestService_SubmitRunsToCompletion(t *testing.T) {
	svc, tracker := newTestService(t, inlineEnqueuer{}, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, alice, Request{URL: figmaURL, PageID: "p1"})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	progress, err := svc.Progress(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, &jobs.Progress{JobID: res.JobID, Progress: 100, Step: model.JobStepDone}, progress)

	raw, err := svc.Result(ctx, res.JobID)
	require.NoError(t, err)
	var result Result
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, TreeVersion, result.Tree.Version)
	assert.Equal(t, figmaURL, result.Meta.URL)
	assert.Contains(t, result.Tree.Nodes, "title")

	job, err := tracker.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"figma_url":"`+figmaURL+`","page_id":"p1","user_id":"alice"}`, string(job.Payload))
}

func TestService_AcceptsAnyDesignReference(t *testing.T) {
	svc, _ := newTestService(t, inlineEnqueuer{}, nil)
	ctx := context.Background()

	for _, ref := range []string{"x", "figma-file-key"} {
		res, err := svc.Submit(ctx, alice, Request{URL: ref})
		require.NoError(t, err, ref)
		require.True(t, res.Accepted)

		progress, err := svc.Progress(ctx, res.JobID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStepDone, progress.Step)
		assert.Equal(t, 100, progress.Progress)

		raw, err := svc.Result(ctx, res.JobID)
		require.NoError(t, err)
		var result Result
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.Equal(t, ref, result.Meta.URL)
		assert.Equal(t, ref, result.Tree.Nodes["desc"].Props["text"])
	}
}

func TestService_QueuedUntilPickedUp(t *testing.T) {
	enq := &heldEnqueuer{}
	svc, _ := newTestService(t, enq, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, alice, Request{URL: "x"})
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Len(t, enq.tasks, 1)

	progress, err := svc.Progress(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, &jobs.Progress{JobID: res.JobID, Progress: 0, Step: model.JobStepQueued}, progress)

	_, err = svc.Result(ctx, res.JobID)
	assert.ErrorIs(t, err, model.ErrNotReady)

	enq.release()

	progress, err = svc.Progress(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, &jobs.Progress{JobID: res.JobID, Progress: 100, Step: model.JobStepDone}, progress)

	raw, err := svc.Result(ctx, res.JobID)
	require.NoError(t, err)
	assert.NotEqual(t, "null", string(raw))
	var result Result
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.NotEmpty(t, result.Tree.Nodes)
}

func TestService_SubmitWithDispatcher(t *testing.T) {
	d := dispatch.NewDispatcher(testutil.DiscardLogger(), dispatch.Config{Workers: 1, QueueSize: 4})
	d.Start(context.Background())

	svc, _ := newTestService(t, d, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, alice, Request{URL: figmaURL})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	d.Stop()

	progress, err := svc.Progress(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStepDone, progress.Step)
}

func TestService_DispatchFailure(t *testing.T) {
	svc, _ := newTestService(t, refusingEnqueuer{}, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, alice, Request{URL: figmaURL})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.NotEmpty(t, res.JobID)

	progress, err := svc.Progress(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStepFailed, progress.Step)
	assert.Equal(t, 100, progress.Progress)

	_, err = svc.Result(ctx, res.JobID)
	var jobErr *model.JobFailedError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "task dispatch failed", jobErr.Message)
}

func TestService_SubmitValidation(t *testing.T) {
	svc, _ := newTestService(t, inlineEnqueuer{}, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing url", Request{}, "figma_url"},
		{"blank url", Request{URL: "   "}, "figma_url"},
		{"long url", Request{URL: "https://www.figma.com/" + strings.Repeat("a", 2048)}, "figma_url"},
		{"long page id", Request{URL: figmaURL, PageID: string(make([]byte, 65))}, "page_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, alice, tt.req)
			require.ErrorIs(t, err, model.ErrValidation)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.Submit(ctx, model.Actor{}, Request{URL: figmaURL})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestWorker_FailuresLandOnTheJob(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		fetcher Fetcher
		message string
	}{
		{
			name:    "private address",
			url:     "http://localhost/design",
			fetcher: NewHTTPFetcher(HTTPFetcherOptions{}),
			message: "invalid design URL: localhost URLs are not allowed",
		},
		{
			name:    "not fetchable",
			url:     "figma-file-key",
			fetcher: NewHTTPFetcher(HTTPFetcherOptions{}),
			message: "invalid design URL: URL must use http or https scheme",
		},
		{
			name: "fetch error",
			url:  figmaURL,
			fetcher: fetcherFunc(func(context.Context, string) (*Document, error) {
				return nil, errors.New("upstream unavailable")
			}),
			message: "upstream unavailable",
		},
		{
			name: "nothing usable",
			url:  figmaURL,
			fetcher: fetcherFunc(func(context.Context, string) (*Document, error) {
				return &Document{Frames: []Frame{{Type: "vector"}}}, nil
			}),
			message: "design has no supported frames",
		},
		{
			name: "panic",
			url:  figmaURL,
			fetcher: fetcherFunc(func(context.Context, string) (*Document, error) {
				panic("nil map")
			}),
			message: "internal error: nil map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, inlineEnqueuer{}, tt.fetcher)
			ctx := context.Background()

			res, err := svc.Submit(ctx, alice, Request{URL: tt.url})
			require.NoError(t, err)
			assert.True(t, res.Accepted)

			_, err = svc.Result(ctx, res.JobID)
			var jobErr *model.JobFailedError
			require.ErrorAs(t, err, &jobErr)
			assert.Equal(t, tt.message, jobErr.Message)
		})
	}
}

func TestWorker_ReportsEachStep(t *testing.T) {
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })
	tracker := jobs.NewTracker(mem, JobKind, time.Hour, jobs.WithLogger(testutil.DiscardLogger()))
	ctx := context.Background()

	job, err := tracker.Create(ctx, nil)
	require.NoError(t, err)

	var seen []int
	fetcher := fetcherFunc(func(ctx context.Context, source string) (*Document, error) {
		p, err := tracker.Progress(ctx, job.ID)
		require.NoError(t, err)
		seen = append(seen, p.Progress)
		assert.Equal(t, model.JobStepFetching, p.Step)
		return PlaceholderFetcher{}.Fetch(ctx, source)
	})

	NewWorker(tracker, fetcher, time.Millisecond, testutil.DiscardLogger()).Run(ctx, job.ID, Request{URL: figmaURL})

	assert.Equal(t, []int{20}, seen)
	p, err := tracker.Progress(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStepDone, p.Step)
}

func TestWorker_UnknownJobIsIgnored(t *testing.T) {
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })
	tracker := jobs.NewTracker(mem, JobKind, time.Hour, jobs.WithLogger(testutil.DiscardLogger()))

	assert.NotPanics(t, func() {
		NewWorker(tracker, nil, 0, testutil.DiscardLogger()).
			Run(context.Background(), "6f1c1d0e-8a9b-4c2d-9e3f-000000000000", Request{URL: figmaURL})
	})
}
