// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/taskgraph/internal/logging"
)

// ReferenceKey normalizes a status or priority label to the key its
// reference node is stored under.
func ReferenceKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// EnsureSchema creates the uniqueness constraints and seeds the Status and
// Priority reference nodes. It is safe to run on every start.
func EnsureSchema(ctx context.Context, store GraphStore, statuses, priorities []string) error {
	for _, c := range Constraints {
		if _, err := store.Write(ctx, c.Cypher(), nil); err != nil {
			return fmt.Errorf("create constraint %s: %w", c.Name, err)
		}
	}

	seeded := 0
	for i, status := range statuses {
		key := ReferenceKey(status)
		if key == "" {
			continue
		}
		if _, err := store.Write(ctx, SeedStatus, map[string]any{"status": key, "order": i}); err != nil {
			return fmt.Errorf("seed status %q: %w", key, err)
		}
		seeded++
	}
	for i, priority := range priorities {
		key := ReferenceKey(priority)
		if key == "" {
			continue
		}
		if _, err := store.Write(ctx, SeedPriority, map[string]any{"priority": key, "order": i}); err != nil {
			return fmt.Errorf("seed priority %q: %w", key, err)
		}
		seeded++
	}

	logging.Info().
		Int("constraints", len(Constraints)).
		Int("reference_nodes", seeded).
		Msg("Graph schema ensured")
	return nil
}
