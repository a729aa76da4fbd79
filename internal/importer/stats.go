// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package importer

import (
	"time"
)

// ListCountMismatch records a list whose stated task count differs from the
// number of tasks the graph holds for it after a sync.
type ListCountMismatch struct {
	ListID      string `json:"list_id"`
	ListName    string `json:"list_name"`
	SourceCount int64  `json:"source_count"`
	GraphCount  int64  `json:"graph_count"`

	// Reconciled is true when the list was re-imported and the counts agree.
	Reconciled bool `json:"reconciled"`
}

// SyncStats holds statistics about one sync.
type SyncStats struct {
	TeamsSynced                 int `json:"teams_synced"`
	SpacesSynced                int `json:"spaces_synced"`
	ListsSynced                 int `json:"lists_synced"`
	TasksSynced                 int `json:"tasks_synced"`
	UsersSynced                 int `json:"users_synced"`
	RelationshipsCreated        int `json:"relationships_created"`
	SubtaskRelationshipsCreated int `json:"subtask_relationships_created"`

	// NodesCleared counts nodes and edges removed by the full-sync clear.
	NodesCleared int `json:"nodes_cleared"`

	ListCountMismatches []ListCountMismatch `json:"list_count_mismatches,omitempty"`

	// Errors holds one entry per failed operation. A sync with errors still
	// finished; a sync that aborted also returns an error.
	Errors []string `json:"errors,omitempty"`

	FullSync  bool      `json:"full_sync"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration returns the duration of the sync.
func (s *SyncStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary is the JSON view served by the admin sync status endpoint.
type Summary struct {
	Running  bool       `json:"running"`
	LastSync *SyncStats `json:"last_sync,omitempty"`
}

func (s *SyncStats) clone() *SyncStats {
	out := *s
	out.ListCountMismatches = append([]ListCountMismatch(nil), s.ListCountMismatches...)
	out.Errors = append([]string(nil), s.Errors...)
	return &out
}
