// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/taskgraph/internal/config"
)

type fakeJob struct {
	events chan string
	keep   chan int
}

func newFakeJob() *fakeJob {
	return &fakeJob{events: make(chan string, 64), keep: make(chan int, 64)}
}

func (f *fakeJob) CreateWeekly(ctx context.Context) (*Result, error) {
	select {
	case f.events <- "create":
	case <-ctx.Done():
	}
	return &Result{}, ctx.Err()
}

func (f *fakeJob) Prune(ctx context.Context, keepWeeks int) (int, error) {
	select {
	case f.events <- "prune":
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case f.keep <- keepWeeks:
	case <-ctx.Done():
	}
	return 0, ctx.Err()
}

func nextEvent(t *testing.T, f *fakeJob) string {
	t.Helper()
	select {
	case e := <-f.events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the snapshot job")
		return ""
	}
}

func TestSchedulerRunsCreateThenPrune(t *testing.T) {
	t.Parallel()

	job := newFakeJob()
	s := NewScheduler(job, config.SnapshotConfig{Interval: 10 * time.Millisecond, RetentionWeeks: 12})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for round := 0; round < 2; round++ {
		if e := nextEvent(t, job); e != "create" {
			t.Fatalf("round %d: first event = %q, want create", round, e)
		}
		if e := nextEvent(t, job); e != "prune" {
			t.Fatalf("round %d: second event = %q, want prune", round, e)
		}
		if keep := <-job.keep; keep != 12 {
			t.Errorf("Prune kept %d weeks, want 12", keep)
		}
	}

	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err == nil {
		t.Error("Stop on a stopped scheduler should fail")
	}
}

func TestSchedulerSkipsPruneWithoutRetention(t *testing.T) {
	t.Parallel()

	job := newFakeJob()
	s := NewScheduler(job, config.SnapshotConfig{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if e := nextEvent(t, job); e != "create" {
		t.Fatalf("event = %q, want create", e)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case e := <-job.events:
		t.Errorf("unexpected %q after the startup run", e)
	default:
	}
}
