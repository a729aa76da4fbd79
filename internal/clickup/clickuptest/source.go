// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package clickuptest provides an in-memory ClickUp TaskSource for tests.
package clickuptest

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/taskgraph/internal/clickup"
)

// Source serves a fixed ClickUp hierarchy. Tasks are keyed by id and
// assigned to lists through Task.List.ID.
type Source struct {
	mu sync.Mutex

	Teams   []clickup.Team
	Spaces  map[string][]clickup.Space  // team -> spaces
	Folders map[string][]clickup.Folder // space -> folders
	Lists   map[string][]clickup.List   // space -> folderless lists
	Tasks   map[string]clickup.Task

	// Fail, when set, is consulted on every call with the method name and
	// its id argument.
	Fail func(method, id string) error

	calls map[string]int
}

var _ clickup.TaskSource = (*Source)(nil)

// New returns an empty source.
func New() *Source {
	return &Source{
		Spaces:  map[string][]clickup.Space{},
		Folders: map[string][]clickup.Folder{},
		Lists:   map[string][]clickup.List{},
		Tasks:   map[string]clickup.Task{},
		calls:   map[string]int{},
	}
}

// PutTask adds or replaces a task.
func (s *Source) PutTask(t clickup.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tasks[t.ID] = t
}

// RemoveTask deletes a task, so GetTask answers 404.
func (s *Source) RemoveTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Tasks, id)
}

// Calls returns how many times method was called.
func (s *Source) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Source) enter(method, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	if s.Fail != nil {
		return s.Fail(method, id)
	}
	return nil
}

func notFound(endpoint string) error {
	return &clickup.APIError{StatusCode: http.StatusNotFound, Message: "not found", Endpoint: endpoint}
}

func (s *Source) GetTeams(ctx context.Context) ([]clickup.Team, error) {
	if err := s.enter("GetTeams", ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]clickup.Team(nil), s.Teams...), nil
}

func (s *Source) GetSpaces(ctx context.Context, teamID string) ([]clickup.Space, error) {
	if err := s.enter("GetSpaces", teamID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]clickup.Space(nil), s.Spaces[teamID]...), nil
}

func (s *Source) GetSpace(ctx context.Context, spaceID string) (*clickup.Space, error) {
	if err := s.enter("GetSpace", spaceID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, spaces := range s.Spaces {
		for _, sp := range spaces {
			if sp.ID == spaceID {
				out := sp
				return &out, nil
			}
		}
	}
	return nil, notFound("/space/{id}")
}

func (s *Source) GetFolders(ctx context.Context, spaceID string) ([]clickup.Folder, error) {
	if err := s.enter("GetFolders", spaceID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]clickup.Folder(nil), s.Folders[spaceID]...), nil
}

func (s *Source) GetFolderLists(ctx context.Context, folderID string) ([]clickup.List, error) {
	if err := s.enter("GetFolderLists", folderID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, folders := range s.Folders {
		for _, f := range folders {
			if f.ID == folderID {
				return append([]clickup.List(nil), f.Lists...), nil
			}
		}
	}
	return nil, notFound("/folder/{id}/list")
}

func (s *Source) GetSpaceLists(ctx context.Context, spaceID string) ([]clickup.List, error) {
	if err := s.enter("GetSpaceLists", spaceID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]clickup.List(nil), s.Lists[spaceID]...), nil
}

func (s *Source) GetList(ctx context.Context, listID string) (*clickup.List, error) {
	if err := s.enter("GetList", listID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lists := range s.Lists {
		for _, l := range lists {
			if l.ID == listID {
				out := l
				return &out, nil
			}
		}
	}
	for _, folders := range s.Folders {
		for _, f := range folders {
			for _, l := range f.Lists {
				if l.ID == listID {
					out := l
					return &out, nil
				}
			}
		}
	}
	return nil, notFound("/list/{id}")
}

func (s *Source) GetTask(ctx context.Context, taskID string) (*clickup.Task, error) {
	if err := s.enter("GetTask", taskID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Tasks[taskID]
	if !ok {
		return nil, notFound("/task/{id}")
	}
	return &t, nil
}

// GetTasks returns the tasks of listID in id order, honouring Limit and
// Subtasks.
func (s *Source) GetTasks(ctx context.Context, listID string, q clickup.TaskQuery) ([]clickup.Task, error) {
	if err := s.enter("GetTasks", listID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []clickup.Task
	for _, t := range s.sortedTasks() {
		if t.List.ID.String() != listID {
			continue
		}
		if !q.Subtasks && t.ParentID() != "" {
			continue
		}
		out = append(out, t)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *Source) SearchTasks(ctx context.Context, teamID, query string, limit int) ([]clickup.Task, error) {
	if err := s.enter("SearchTasks", teamID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []clickup.Task
	for _, t := range s.sortedTasks() {
		if query != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Source) sortedTasks() []clickup.Task {
	out := make([]clickup.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
