// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package importer

import (
	"context"
	"fmt"

	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/logging"
)

const defaultBatchSize = 1000

type clearStep struct {
	name   string
	query  string
	params map[string]any
}

// clear removes the mirrored space in dependency order: assignments, tasks,
// lists, the space, its team once empty, and users left without tasks.
func (i *Importer) clear(ctx context.Context, sc *scope, stats *SyncStats) error {
	space := map[string]any{"space_id": sc.space.ID}
	steps := []clearStep{
		{"assignments", graph.ClearAssignments, space},
		{"tasks", graph.ClearTasks, space},
		{"lists", graph.ClearLists, space},
		{"space", graph.ClearSpace, space},
		{"team", graph.ClearTeam, map[string]any{"team_id": sc.team.ID}},
		{"orphan users", graph.ClearOrphanUsers, map[string]any{}},
	}

	for _, step := range steps {
		n, err := i.clearBatched(ctx, step)
		stats.NodesCleared += n
		if err != nil {
			return fmt.Errorf("clear %s: %w", step.name, err)
		}
		if n > 0 {
			logging.Debug().Str("step", step.name).Int("deleted", n).Msg("Cleared batch step")
		}
	}

	logging.Info().Str("space_id", sc.space.ID).Int("deleted", stats.NodesCleared).Msg("Cleared space before full sync")
	return nil
}

// clearBatched repeats step until a batch deletes nothing, checking ctx
// between batches.
func (i *Importer) clearBatched(ctx context.Context, step clearStep) (int, error) {
	size := i.cfg.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	params := make(map[string]any, len(step.params)+1)
	for k, v := range step.params {
		params[k] = v
	}
	params["batch_size"] = size

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := i.store.Write(ctx, step.query, params)
		if err != nil {
			return total, err
		}
		n := int(graph.FirstInt(res.Records, "deleted"))
		if n == 0 {
			return total, nil
		}
		total += n
	}
}
