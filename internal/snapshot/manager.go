// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

const pruneBatchSize = 500

// ErrListNotMirrored is returned for a list the graph does not hold.
var ErrListNotMirrored = errors.New("list not in graph")

// Snapshot is one stored ProgressSnapshot.
type Snapshot struct {
	ID                 string  `json:"id"`
	ListID             string  `json:"list_id"`
	ListName           string  `json:"list_name"`
	SnapshotDate       string  `json:"snapshot_date"`
	WeekEnding         string  `json:"week_ending"`
	TotalTasks         int64   `json:"total_tasks"`
	CompletedTasks     int64   `json:"completed_tasks"`
	InProgressTasks    int64   `json:"in_progress_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

func fromRecord(r graph.Record) Snapshot {
	return Snapshot{
		ID:                 graph.String(r, "id"),
		ListID:             graph.String(r, "list_id"),
		ListName:           graph.String(r, "list_name"),
		SnapshotDate:       graph.String(r, "snapshot_date"),
		WeekEnding:         graph.String(r, "week_ending"),
		TotalTasks:         graph.Int(r, "total_tasks"),
		CompletedTasks:     graph.Int(r, "completed_tasks"),
		InProgressTasks:    graph.Int(r, "in_progress_tasks"),
		ProgressPercentage: graph.Float(r, "progress_percentage"),
	}
}

// Result reports one CreateWeekly run.
type Result struct {
	WeekEnding string     `json:"week_ending"`
	Snapshots  []Snapshot `json:"snapshots"`

	// Created counts snapshots new this run; re-runs in the same week
	// return the existing ones without creating.
	Created int      `json:"snapshots_created"`
	Errors  []string `json:"errors,omitempty"`
}

// Manager creates and queries progress snapshots.
type Manager struct {
	store graph.GraphStore
	lists []string
	now   func() time.Time
}

// NewManager snapshots listIDs, or every mirrored list when listIDs is
// empty.
func NewManager(store graph.GraphStore, listIDs []string) *Manager {
	return &Manager{
		store: store,
		lists: append([]string(nil), listIDs...),
		now:   time.Now,
	}
}

func (m *Manager) today() time.Time {
	t := m.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (m *Manager) listIDs(ctx context.Context) ([]string, error) {
	if len(m.lists) > 0 {
		return m.lists, nil
	}
	records, err := m.store.Read(ctx, graph.MirroredListIDs, nil)
	if err != nil {
		return nil, fmt.Errorf("list mirrored lists: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, graph.String(r, "id"))
	}
	return ids, nil
}

// CreateWeekly writes this week's snapshot for every list. A list that
// fails is reported in Result.Errors and the others still get snapshots.
func (m *Manager) CreateWeekly(ctx context.Context) (*Result, error) {
	ids, err := m.listIDs(ctx)
	if err != nil {
		return nil, err
	}

	today := m.today()
	week := WeekEnding(today)
	res := &Result{WeekEnding: week.Format(dateLayout)}

	for _, id := range ids {
		snap, created, err := m.createForList(ctx, id, today, week)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("snapshot list %s: %v", id, err))
			logging.Warn().Err(err).Str("list_id", id).Msg("Failed to create progress snapshot")
			continue
		}
		res.Snapshots = append(res.Snapshots, snap)
		if created {
			res.Created++
		}
	}

	metrics.SnapshotsCreated.Add(float64(res.Created))
	logging.Info().
		Str("week_ending", res.WeekEnding).
		Int("lists", len(ids)).
		Int("created", res.Created).
		Int("errors", len(res.Errors)).
		Msg("Weekly progress snapshots done")
	return res, nil
}

func (m *Manager) createForList(ctx context.Context, listID string, today, week time.Time) (Snapshot, bool, error) {
	records, err := m.store.Read(ctx, graph.ListStatuses, map[string]any{"list_id": listID})
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(records) == 0 {
		return Snapshot{}, false, fmt.Errorf("%w: %s", ErrListNotMirrored, listID)
	}

	counts := Count(graph.Strings(records[0], "statuses"))
	s, err := m.store.Write(ctx, graph.MergeSnapshot, map[string]any{
		"id":                  ID(listID, week),
		"list_id":             listID,
		"snapshot_date":       today.Format(dateLayout),
		"week_ending":         week.Format(dateLayout),
		"total_tasks":         counts.Total,
		"completed_tasks":     counts.Completed,
		"in_progress_tasks":   counts.InProgress,
		"progress_percentage": round1(counts.Percentage()),
	})
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(s.Records) == 0 {
		return Snapshot{}, false, fmt.Errorf("%w: %s", ErrListNotMirrored, listID)
	}
	return fromRecord(s.Records[0]), s.NodesCreated > 0, nil
}

// History returns the snapshots of listID taken in the last weeksBack
// weeks, newest first.
func (m *Manager) History(ctx context.Context, listID string, weeksBack int) ([]Snapshot, error) {
	if weeksBack < 1 {
		weeksBack = 1
	}
	since := m.today().AddDate(0, 0, -7*weeksBack)
	records, err := m.store.Read(ctx, graph.SnapshotHistory, map[string]any{
		"list_id": listID,
		"since":   since.Format(dateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot history of %s: %w", listID, err)
	}
	out := make([]Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

// Prune deletes snapshots older than keepWeeks weeks and returns how many
// it removed.
func (m *Manager) Prune(ctx context.Context, keepWeeks int) (int, error) {
	if keepWeeks < 1 {
		return 0, fmt.Errorf("keep weeks must be at least 1, got %d", keepWeeks)
	}
	cutoff := m.today().AddDate(0, 0, -7*keepWeeks).Format(dateLayout)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		s, err := m.store.Write(ctx, graph.PruneSnapshots, map[string]any{
			"cutoff":     cutoff,
			"batch_size": pruneBatchSize,
		})
		if err != nil {
			return total, fmt.Errorf("prune snapshots: %w", err)
		}
		n := int(graph.FirstInt(s.Records, "deleted"))
		total += n
		if n == 0 {
			break
		}
	}

	metrics.SnapshotsPruned.Add(float64(total))
	if total > 0 {
		logging.Info().Int("deleted", total).Int("keep_weeks", keepWeeks).Msg("Pruned old progress snapshots")
	}
	return total, nil
}

// ProgressReport compares a list's current progress with the snapshot
// taken the week before.
type ProgressReport struct {
	ListID   string `json:"list_id"`
	ListName string `json:"list_name"`
	Counts

	CurrentProgress        float64 `json:"current_progress"`
	PreviousProgress       float64 `json:"previous_progress"`
	ProgressChange         float64 `json:"progress_change"`
	TasksCompletedThisWeek int64   `json:"tasks_completed_this_week"`
}

// Progress reports listID's progress against the latest snapshot taken
// between 14 and 7 days ago. Without one the previous values are zero.
func (m *Manager) Progress(ctx context.Context, listID string) (*ProgressReport, error) {
	records, err := m.store.Read(ctx, graph.ListStatuses, map[string]any{"list_id": listID})
	if err != nil {
		return nil, fmt.Errorf("progress of %s: %w", listID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrListNotMirrored, listID)
	}
	counts := Count(graph.Strings(records[0], "statuses"))

	history, err := m.History(ctx, listID, 2)
	if err != nil {
		return nil, err
	}
	today := m.today()
	from := today.AddDate(0, 0, -14).Format(dateLayout)
	until := today.AddDate(0, 0, -7).Format(dateLayout)

	var previous *Snapshot
	for n := range history {
		d := history[n].SnapshotDate
		if d >= from && d < until {
			previous = &history[n]
			break
		}
	}

	r := &ProgressReport{
		ListID:          listID,
		ListName:        graph.String(records[0], "list_name"),
		Counts:          counts,
		CurrentProgress: counts.Percentage(),
	}
	if previous != nil {
		r.PreviousProgress = previous.ProgressPercentage
		r.TasksCompletedThisWeek = counts.Completed - previous.CompletedTasks
	} else {
		r.TasksCompletedThisWeek = counts.Completed
	}
	r.ProgressChange = round1(r.CurrentProgress - r.PreviousProgress)
	r.CurrentProgress = round1(r.CurrentProgress)
	r.PreviousProgress = round1(r.PreviousProgress)
	return r, nil
}

// Velocity summarizes week-over-week task completions.
type Velocity struct {
	Average           float64 `json:"avg_velocity"`
	Max               int64   `json:"max_velocity"`
	Min               int64   `json:"min_velocity"`
	Weeks             int     `json:"total_weeks"`
	WeeklyCompletions []int64 `json:"weekly_completions"`

	// Trend is positive, stable or unknown when there is not enough history.
	Trend string `json:"velocity_trend"`
}

// Velocity computes completions between consecutive snapshots of the last
// weeks weeks. Drops in the completed count (reopened tasks) are skipped.
func (m *Manager) Velocity(ctx context.Context, listID string, weeks int) (*Velocity, error) {
	history, err := m.History(ctx, listID, weeks)
	if err != nil {
		return nil, err
	}
	sort.Slice(history, func(i, j int) bool { return history[i].SnapshotDate < history[j].SnapshotDate })

	v := &Velocity{WeeklyCompletions: []int64{}, Trend: "unknown"}
	var sum int64
	for n := 1; n < len(history); n++ {
		done := history[n].CompletedTasks - history[n-1].CompletedTasks
		if done < 0 {
			continue
		}
		if v.Weeks == 0 || done > v.Max {
			v.Max = done
		}
		if v.Weeks == 0 || done < v.Min {
			v.Min = done
		}
		v.WeeklyCompletions = append(v.WeeklyCompletions, done)
		v.Weeks++
		sum += done
	}
	if v.Weeks == 0 {
		return v, nil
	}

	v.Average = round1(float64(sum) / float64(v.Weeks))
	if sum > 0 {
		v.Trend = "positive"
	} else {
		v.Trend = "stable"
	}
	return v, nil
}
