// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package snapshot

import (
	"math"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var completedStatuses = map[string]bool{
	"complete": true,
	"closed":   true,
	"done":     true,
}

// IsCompleted reports whether status counts as done.
func IsCompleted(status string) bool {
	return completedStatuses[strings.ToLower(strings.TrimSpace(status))]
}

// CompletedStatuses returns the lower-case statuses counted as done.
func CompletedStatuses() []string {
	out := make([]string, 0, len(completedStatuses))
	for s := range completedStatuses {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsInProgress reports whether status counts as actively worked on.
func IsInProgress(status string) bool {
	s := strings.ToLower(status)
	return (strings.Contains(s, "dev") && !strings.Contains(s, "ready")) || strings.Contains(s, "review")
}

// Counts are the task totals of one list.
type Counts struct {
	Total      int64 `json:"total_tasks"`
	Completed  int64 `json:"completed_tasks"`
	InProgress int64 `json:"in_progress_tasks"`
}

// Count classifies statuses.
func Count(statuses []string) Counts {
	c := Counts{Total: int64(len(statuses))}
	for _, s := range statuses {
		if IsCompleted(s) {
			c.Completed++
		}
		if IsInProgress(s) {
			c.InProgress++
		}
	}
	return c
}

// Percentage is the completed share, 0 for an empty list.
func (c Counts) Percentage() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Completed) * 100 / float64(c.Total)
}

// WeekEnding returns the Sunday (UTC, midnight) closing the week of t.
// A Sunday is its own week ending.
func WeekEnding(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
}

// ID returns the snapshot id of listID for the week ending weekEnding.
func ID(listID string, weekEnding time.Time) string {
	return "snapshot_" + listID + "_" + weekEnding.Format(dateLayout)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
