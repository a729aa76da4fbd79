// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package wal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type testEvent struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

func openTestWAL(t *testing.T) *BadgerWAL {
	t.Helper()
	w, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWriteConfirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	ids := make([]string, 0, 3)
	for _, evt := range []string{"a", "b", "c"} {
		id, err := w.Write(ctx, testEvent{Provider: "clickup", EventID: evt})
		if err != nil {
			t.Fatalf("Write(%s): %v", evt, err)
		}
		ids = append(ids, id)
	}

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	for i, entry := range pending {
		var got testEvent
		if err := entry.UnmarshalPayload(&got); err != nil {
			t.Fatalf("UnmarshalPayload: %v", err)
		}
		if entry.ID != ids[i] || got.EventID != []string{"a", "b", "c"}[i] {
			t.Errorf("pending[%d] = %s/%s, want acceptance order", i, entry.ID, got.EventID)
		}
	}

	if err := w.Confirm(ctx, ids[1]); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := w.Confirm(ctx, ids[1]); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("second Confirm = %v, want ErrEntryNotFound", err)
	}
	if err := w.Confirm(ctx, ""); !errors.Is(err, ErrEmptyEntryID) {
		t.Errorf("Confirm(\"\") = %v", err)
	}

	pending, _ = w.GetPending(ctx)
	if len(pending) != 2 {
		t.Errorf("pending after confirm = %d, want 2", len(pending))
	}
	if s := w.Stats(); s.Writes != 3 || s.Confirms != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestWriteRejectsNilAndClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	if _, err := w.Write(ctx, nil); !errors.Is(err, ErrNilEvent) {
		t.Errorf("Write(nil) = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := w.Write(ctx, testEvent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v", err)
	}
	if _, err := w.GetPending(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("GetPending after Close = %v", err)
	}
}

func TestPendingSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := w.Write(ctx, testEvent{EventID: "kept"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w.Close()
	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Errorf("pending after reopen = %+v", pending)
	}

	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") succeeded")
	}
}

func TestRecoverPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	okID, _ := w.Write(ctx, testEvent{EventID: "ok"})
	failID, _ := w.Write(ctx, testEvent{EventID: "fail"})
	cutoff := time.Now().Add(time.Second)

	publishErr := errors.New("bus not ready")
	var replayed []string
	pub := PublisherFunc(func(_ context.Context, e *Entry) error {
		var evt testEvent
		if err := e.UnmarshalPayload(&evt); err != nil {
			return err
		}
		if evt.EventID == "fail" {
			return publishErr
		}
		replayed = append(replayed, e.ID)
		return nil
	})

	res, err := w.RecoverPending(ctx, pub, cutoff, 2)
	if err != nil {
		t.Fatalf("RecoverPending: %v", err)
	}
	if res.TotalPending != 2 || res.Replayed != 1 || res.Failed != 1 || res.Dropped != 0 {
		t.Errorf("first recovery = %+v", res)
	}
	if len(replayed) != 1 || replayed[0] != okID {
		t.Errorf("replayed = %v, want [%s]", replayed, okID)
	}

	pending, _ := w.GetPending(ctx)
	for _, e := range pending {
		if e.Attempts != 1 {
			t.Errorf("entry %s attempts = %d, want 1", e.ID, e.Attempts)
		}
		if e.ID == failID && e.LastError != publishErr.Error() {
			t.Errorf("last error = %q", e.LastError)
		}
	}

	// Second replay reaches the limit, third drops both.
	if _, err := w.RecoverPending(ctx, pub, cutoff, 2); err != nil {
		t.Fatalf("second RecoverPending: %v", err)
	}
	res, err = w.RecoverPending(ctx, pub, cutoff, 2)
	if err != nil {
		t.Fatalf("third RecoverPending: %v", err)
	}
	if res.Dropped != 2 {
		t.Errorf("third recovery = %+v, want both dropped", res)
	}
	if pending, _ := w.GetPending(ctx); len(pending) != 0 {
		t.Errorf("pending after drop = %d", len(pending))
	}
}

func TestRecoverPendingRespectsCutoff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := openTestWAL(t)

	cutoff := time.Now().Add(-time.Hour)
	if _, err := w.Write(ctx, testEvent{EventID: "new"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	calls := 0
	res, err := w.RecoverPending(ctx, PublisherFunc(func(context.Context, *Entry) error {
		calls++
		return nil
	}), cutoff, 3)
	if err != nil {
		t.Fatalf("RecoverPending: %v", err)
	}
	if calls != 0 || res.TotalPending != 0 {
		t.Errorf("entries newer than cutoff replayed: calls=%d result=%+v", calls, res)
	}

	if _, err := w.RecoverPending(ctx, nil, cutoff, 3); err == nil {
		t.Error("RecoverPending(nil publisher) succeeded")
	}
}
