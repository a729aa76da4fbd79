// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
	"github.com/tomtom215/taskgraph/internal/mirror"
)

var (
	// ErrSyncInProgress is returned when a sync is requested while one runs.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrGraphUnavailable means the graph failed its connectivity check.
	ErrGraphUnavailable = errors.New("graph store unavailable")

	ErrTeamNotFound  = errors.New("team not found")
	ErrSpaceNotFound = errors.New("space not found")
	ErrNoTargetLists = errors.New("no target lists found")
)

// Importer rebuilds the mirrored ClickUp scope in the graph.
type Importer struct {
	scope  config.ClickUpConfig
	cfg    config.SyncConfig
	source clickup.TaskSource
	store  graph.GraphStore
	writer *mirror.Writer
	state  StateStore

	mu      sync.RWMutex
	running bool
	last    *SyncStats
}

// New creates an importer. state may be nil.
func New(cfg *config.Config, source clickup.TaskSource, store graph.GraphStore, state StateStore) *Importer {
	if state == nil {
		state = NewMemoryStateStore()
	}
	return &Importer{
		scope:  cfg.ClickUp,
		cfg:    cfg.Sync,
		source: source,
		store:  store,
		writer: mirror.NewWriter(store),
		state:  state,
	}
}

// Running reports whether a sync is in progress.
func (i *Importer) Running() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}

// LastSync returns the stats of the last finished sync, reading the state
// store when this process has not synced yet. It returns nil when no sync
// ever finished.
func (i *Importer) LastSync(ctx context.Context) (*SyncStats, error) {
	i.mu.RLock()
	last := i.last
	i.mu.RUnlock()
	if last != nil {
		return last.clone(), nil
	}
	return i.state.Load(ctx)
}

// Sync runs one sync. A full sync clears the scope before rebuilding it.
// The returned stats are filled even when err is non-nil.
func (i *Importer) Sync(ctx context.Context, fullSync bool) (*SyncStats, error) {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	i.running = true
	i.mu.Unlock()

	stats := &SyncStats{FullSync: fullSync, StartTime: time.Now().UTC()}
	logging.Info().Bool("full_sync", fullSync).Msg("Starting sync")

	err := i.run(ctx, stats)
	stats.EndTime = time.Now().UTC()
	if err != nil {
		stats.Errors = append(stats.Errors, "sync failed: "+err.Error())
	}

	i.record(stats, err)

	i.mu.Lock()
	i.running = false
	i.last = stats.clone()
	i.mu.Unlock()

	// The caller's context may already be done; state is saved regardless.
	if saveErr := i.state.Save(context.WithoutCancel(ctx), stats); saveErr != nil {
		logging.Warn().Err(saveErr).Msg("Failed to save sync state")
	}

	return stats.clone(), err
}

func (i *Importer) record(stats *SyncStats, err error) {
	unreconciled := 0
	for _, m := range stats.ListCountMismatches {
		if !m.Reconciled {
			unreconciled++
		}
	}
	metrics.SyncListCountMismatches.Set(float64(unreconciled))
	metrics.RecordSyncRun(stats.FullSync, stats.Duration(), len(stats.Errors), err)
	metrics.RecordSyncEntities("list", stats.ListsSynced)
	metrics.RecordSyncEntities("task", stats.TasksSynced)
	metrics.RecordSyncEntities("user", stats.UsersSynced)

	if err != nil {
		logging.Error().Err(err).
			Bool("full_sync", stats.FullSync).
			Dur("duration", stats.Duration()).
			Msg("Sync failed")
		return
	}
	logging.Info().
		Bool("full_sync", stats.FullSync).
		Int("lists", stats.ListsSynced).
		Int("tasks", stats.TasksSynced).
		Int("users", stats.UsersSynced).
		Int("relationships", stats.RelationshipsCreated).
		Int("subtask_relationships", stats.SubtaskRelationshipsCreated).
		Int("mismatches", unreconciled).
		Int("errors", len(stats.Errors)).
		Dur("duration", stats.Duration()).
		Msg("Sync completed")
}

func (i *Importer) run(ctx context.Context, stats *SyncStats) error {
	if err := i.store.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrGraphUnavailable, err)
	}

	sc, err := i.discover(ctx)
	if err != nil {
		return err
	}

	if stats.FullSync {
		if err := i.clear(ctx, sc, stats); err != nil {
			return err
		}
	}

	i.writeHierarchy(ctx, sc, stats)
	if err := i.writeTasks(ctx, sc.tasks, stats); err != nil {
		return err
	}
	if err := i.linkSubtasks(ctx, sc.tasks, stats); err != nil {
		return err
	}
	return i.verifyCounts(ctx, sc, stats)
}

func (s *SyncStats) fail(op string, err error) {
	msg := op + ": " + err.Error()
	s.Errors = append(s.Errors, msg)
	logging.Warn().Err(err).Str("operation", op).Msg("Sync operation failed")
}

func (i *Importer) writeHierarchy(ctx context.Context, sc *scope, stats *SyncStats) {
	if _, err := i.store.Write(ctx, graph.MergeTeam, map[string]any{
		"id":    sc.team.ID,
		"name":  sc.team.Name,
		"color": sc.team.Color,
	}); err != nil {
		stats.fail("merge team "+sc.team.ID, err)
	} else {
		stats.TeamsSynced++
	}

	res, err := i.store.Write(ctx, graph.MergeSpace, map[string]any{
		"id":                 sc.space.ID,
		"name":               sc.space.Name,
		"private":            sc.space.Private,
		"multiple_assignees": sc.space.MultipleAssignees,
		"archived":           sc.space.Archived,
		"team_id":            sc.team.ID,
	})
	switch {
	case err != nil:
		stats.fail("merge space "+sc.space.ID, err)
	case len(res.Records) > 0:
		stats.SpacesSynced++
	}

	for _, l := range sc.lists {
		res, err := i.store.Write(ctx, graph.MergeList, map[string]any{
			"id":         l.ID,
			"name":       l.Name,
			"task_count": int64(l.TaskCount),
			"orderindex": l.OrderIndex.String(),
			"folder_id":  l.Folder.ID.String(),
			"space_id":   sc.space.ID,
		})
		switch {
		case err != nil:
			stats.fail("merge list "+l.ID, err)
		case len(res.Records) > 0:
			stats.ListsSynced++
		}
	}
}

// writeTasks writes each task with everything but SUBTASK_OF.
func (i *Importer) writeTasks(ctx context.Context, tasks []clickup.Task, stats *SyncStats) error {
	users := map[string]bool{}
	for n := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := &tasks[n]

		if err := i.writer.SeedReferences(ctx, t); err != nil {
			stats.fail("seed references of "+t.ID, err)
		}
		res, err := i.writer.SyncTask(ctx, t)
		if err != nil {
			stats.fail("sync task "+t.ID, err)
			continue
		}
		stats.TasksSynced++
		stats.RelationshipsCreated += res.Relationships
		for _, u := range res.Users {
			if !users[u] {
				users[u] = true
				stats.UsersSynced++
			}
		}
		if len(res.Unlinked) > 0 {
			logging.Debug().Str("task_id", t.ID).Strs("unlinked", res.Unlinked).Msg("Task references without a node")
		}
	}
	return nil
}

// linkSubtasks runs after every task exists so a subtask listed before its
// parent still gets linked.
func (i *Importer) linkSubtasks(ctx context.Context, tasks []clickup.Task, stats *SyncStats) error {
	for n := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := &tasks[n]
		parent := t.ParentID()
		if parent == "" {
			continue
		}
		ok, err := i.writer.LinkParent(ctx, t.ID, parent)
		switch {
		case err != nil:
			stats.fail("link subtask "+t.ID, err)
		case ok:
			stats.SubtaskRelationshipsCreated++
		default:
			logging.Debug().Str("task_id", t.ID).Str("parent_id", parent).Msg("Parent task not mirrored")
		}
	}
	return nil
}

func (i *Importer) countTasks(ctx context.Context, listID string) (int64, error) {
	records, err := i.store.Read(ctx, graph.CountListTasks, map[string]any{"list_id": listID})
	if err != nil {
		return 0, err
	}
	return graph.FirstInt(records, "task_count"), nil
}

// verifyCounts compares each list's stated task count with the graph.
func (i *Importer) verifyCounts(ctx context.Context, sc *scope, stats *SyncStats) error {
	for _, l := range sc.lists {
		if err := ctx.Err(); err != nil {
			return err
		}
		got, err := i.countTasks(ctx, l.ID)
		if err != nil {
			stats.fail("count tasks of list "+l.ID, err)
			continue
		}
		want := int64(l.TaskCount)
		if got == want {
			continue
		}

		m := ListCountMismatch{ListID: l.ID, ListName: l.Name, SourceCount: want, GraphCount: got}
		logging.Warn().
			Str("list_id", l.ID).
			Str("list", l.Name).
			Int64("source_count", want).
			Int64("graph_count", got).
			Msg("List task count mismatch")

		if i.cfg.ReconcileMismatch {
			m.GraphCount, m.Reconciled = i.reconcile(ctx, l, sc.space.ID, stats)
		}
		stats.ListCountMismatches = append(stats.ListCountMismatches, m)
	}
	return nil
}

// reconcile re-imports one list and recounts it.
func (i *Importer) reconcile(ctx context.Context, l clickup.List, spaceID string, stats *SyncStats) (int64, bool) {
	tasks, err := i.listTasks(ctx, l, spaceID)
	if err != nil {
		stats.fail("reconcile list "+l.ID, err)
		return 0, false
	}

	var pass SyncStats
	if err := i.writeTasks(ctx, tasks, &pass); err != nil {
		stats.fail("reconcile list "+l.ID, err)
		return 0, false
	}
	if err := i.linkSubtasks(ctx, tasks, &pass); err != nil {
		stats.fail("reconcile list "+l.ID, err)
		return 0, false
	}
	stats.Errors = append(stats.Errors, pass.Errors...)

	got, err := i.countTasks(ctx, l.ID)
	if err != nil {
		stats.fail("recount list "+l.ID, err)
		return 0, false
	}
	reconciled := got == int64(l.TaskCount)
	logging.Info().
		Str("list_id", l.ID).
		Int64("graph_count", got).
		Bool("reconciled", reconciled).
		Msg("Re-imported list after count mismatch")
	return got, reconciled
}
