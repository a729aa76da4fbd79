// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/logging"
)

// scope is everything a sync writes, fetched up front.
type scope struct {
	team  clickup.Team
	space clickup.Space
	lists []clickup.List
	tasks []clickup.Task
}

// retryable reports whether a ClickUp failure deserves another attempt.
// Client errors and an open breaker do not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if clickup.IsCircuitOpen(err) {
		return false
	}
	var apiErr *clickup.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// fetch calls fn up to sync.retry_attempts times with exponential backoff
// starting at sync.retry_delay.
func fetch[T any](ctx context.Context, i *Importer, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := i.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if i.cfg.RetryDelay > 0 {
		b.InitialInterval = i.cfg.RetryDelay
	}
	b.MaxInterval = 30 * time.Second

	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn().Err(err).Str("operation", op).Dur("retry_in", next).Msg("ClickUp request failed, retrying")
		}),
	)
	if err != nil {
		return v, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (i *Importer) resolveTeam(ctx context.Context) (clickup.Team, error) {
	teams, err := fetch(ctx, i, "get teams", i.source.GetTeams)
	if err != nil {
		return clickup.Team{}, err
	}
	if want := i.scope.TeamID; want != "" {
		for _, t := range teams {
			if t.ID == want {
				return t, nil
			}
		}
		return clickup.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, want)
	}
	if len(teams) == 0 {
		return clickup.Team{}, fmt.Errorf("%w: token sees no workspaces", ErrTeamNotFound)
	}
	return teams[0], nil
}

func (i *Importer) resolveSpace(ctx context.Context, team clickup.Team) (clickup.Space, error) {
	if want := i.scope.SpaceID; want != "" {
		space, err := fetch(ctx, i, "get space "+want, func(ctx context.Context) (*clickup.Space, error) {
			return i.source.GetSpace(ctx, want)
		})
		if clickup.IsNotFound(err) {
			return clickup.Space{}, fmt.Errorf("%w: %s", ErrSpaceNotFound, want)
		}
		if err != nil {
			return clickup.Space{}, err
		}
		return *space, nil
	}

	spaces, err := fetch(ctx, i, "get spaces of "+team.ID, func(ctx context.Context) ([]clickup.Space, error) {
		return i.source.GetSpaces(ctx, team.ID)
	})
	if err != nil {
		return clickup.Space{}, err
	}
	if len(spaces) == 0 {
		return clickup.Space{}, fmt.Errorf("%w: team %s has no spaces", ErrSpaceNotFound, team.ID)
	}
	return spaces[0], nil
}

// discoverLists returns the space's folderless lists plus, unless every
// target list was already found, the lists inside its folders.
func (i *Importer) discoverLists(ctx context.Context, spaceID string) ([]clickup.List, error) {
	lists, err := fetch(ctx, i, "get lists of space "+spaceID, func(ctx context.Context) ([]clickup.List, error) {
		return i.source.GetSpaceLists(ctx, spaceID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logging.Warn().Err(err).Str("space_id", spaceID).Msg("Space list lookup failed, falling back to folders")
		lists = nil
	}

	if err == nil && i.allTargetsFound(lists) {
		return i.filterTargets(lists), nil
	}

	folders, err := fetch(ctx, i, "get folders of space "+spaceID, func(ctx context.Context) ([]clickup.Folder, error) {
		return i.source.GetFolders(ctx, spaceID)
	})
	if err != nil {
		return nil, err
	}
	for _, folder := range folders {
		folderLists, err := fetch(ctx, i, "get lists of folder "+folder.ID, func(ctx context.Context) ([]clickup.List, error) {
			return i.source.GetFolderLists(ctx, folder.ID)
		})
		if err != nil {
			return nil, err
		}
		for _, l := range folderLists {
			if l.Folder.ID == "" {
				l.Folder = clickup.Ref{ID: clickup.FlexString(folder.ID), Name: folder.Name}
			}
			lists = append(lists, l)
		}
	}
	return i.filterTargets(lists), nil
}

func (i *Importer) allTargetsFound(lists []clickup.List) bool {
	if len(i.scope.TargetListIDs) == 0 {
		return false
	}
	for _, id := range i.scope.TargetListIDs {
		if !slices.ContainsFunc(lists, func(l clickup.List) bool { return l.ID == id }) {
			return false
		}
	}
	return true
}

// filterTargets keeps the configured target lists, all lists when none are
// configured, and drops duplicates.
func (i *Importer) filterTargets(lists []clickup.List) []clickup.List {
	seen := make(map[string]bool, len(lists))
	out := make([]clickup.List, 0, len(lists))
	for _, l := range lists {
		if seen[l.ID] {
			continue
		}
		if len(i.scope.TargetListIDs) > 0 && !slices.Contains(i.scope.TargetListIDs, l.ID) {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}

// listTasks fetches every task of list, including closed tasks and
// subtasks. Tasks without a list or space reference get the ones they were
// listed under.
func (i *Importer) listTasks(ctx context.Context, list clickup.List, spaceID string) ([]clickup.Task, error) {
	query := clickup.TaskQuery{IncludeClosed: true, Subtasks: true, Limit: i.cfg.TaskPageLimit}
	tasks, err := fetch(ctx, i, "get tasks of list "+list.ID, func(ctx context.Context) ([]clickup.Task, error) {
		return i.source.GetTasks(ctx, list.ID, query)
	})
	if err != nil {
		return nil, err
	}
	for n := range tasks {
		if tasks[n].List.ID == "" {
			tasks[n].List = clickup.Ref{ID: clickup.FlexString(list.ID), Name: list.Name}
		}
		if tasks[n].Space.ID == "" {
			tasks[n].Space = clickup.Ref{ID: clickup.FlexString(spaceID)}
		}
	}
	return tasks, nil
}

// discover fetches the whole scope. Any failure aborts the sync before the
// graph is touched.
func (i *Importer) discover(ctx context.Context) (*scope, error) {
	team, err := i.resolveTeam(ctx)
	if err != nil {
		return nil, err
	}
	space, err := i.resolveSpace(ctx, team)
	if err != nil {
		return nil, err
	}
	lists, err := i.discoverLists(ctx, space.ID)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("%w in space %s", ErrNoTargetLists, space.ID)
	}

	logging.Info().
		Str("team", team.Name).
		Str("space", space.Name).
		Int("lists", len(lists)).
		Msg("Resolved sync scope")

	sc := &scope{team: team, space: space, lists: lists}
	seen := map[string]bool{}
	for _, l := range lists {
		tasks, err := i.listTasks(ctx, l, space.ID)
		if err != nil {
			return nil, err
		}
		logging.Debug().Str("list_id", l.ID).Str("list", l.Name).Int("tasks", len(tasks)).Msg("Fetched list tasks")
		for _, t := range tasks {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			sc.tasks = append(sc.tasks, t)
		}
	}
	return sc, nil
}
