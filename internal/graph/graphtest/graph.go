// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package graphtest provides an in-memory GraphStore for tests.
//
// Graph understands the queries in the graph package catalogue and applies
// them to plain maps, so tests can assert on resulting graph shape without
// a Neo4j server. Any other query is recorded and answered with no rows.
package graphtest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/taskgraph/internal/graph"
)

// Call is one recorded query.
type Call struct {
	Query  string
	Params map[string]any
	Write  bool
}

// Graph is a map-backed graph.
type Graph struct {
	mu sync.Mutex

	Teams      map[string]map[string]any
	Spaces     map[string]map[string]any
	Lists      map[string]map[string]any
	Tasks      map[string]map[string]any
	Users      map[string]map[string]any
	Statuses   map[string]int
	Priorities map[string]int
	Snapshots  map[string]map[string]any

	HasSpace     map[string]string          // space -> team
	ContainsList map[string]string          // list -> space
	BelongsTo    map[string]string          // task -> list
	ContainsTask map[string]map[string]bool // list -> tasks
	AssignedTo   map[string]map[string]bool // task -> users
	HasStatus    map[string]string          // task -> status key
	HasPriority  map[string]string          // task -> priority key
	SubtaskOf    map[string]string          // task -> parent
	HadProgress  map[string]string          // snapshot -> list

	calls []Call

	// Fail, when set, is consulted before every query. A non-nil error is
	// returned instead of executing it.
	Fail func(query string, params map[string]any) error

	// Unreachable makes VerifyConnectivity fail.
	Unreachable error
}

var _ graph.GraphStore = (*Graph)(nil)

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Teams:        map[string]map[string]any{},
		Spaces:       map[string]map[string]any{},
		Lists:        map[string]map[string]any{},
		Tasks:        map[string]map[string]any{},
		Users:        map[string]map[string]any{},
		Statuses:     map[string]int{},
		Priorities:   map[string]int{},
		Snapshots:    map[string]map[string]any{},
		HasSpace:     map[string]string{},
		ContainsList: map[string]string{},
		BelongsTo:    map[string]string{},
		ContainsTask: map[string]map[string]bool{},
		AssignedTo:   map[string]map[string]bool{},
		HasStatus:    map[string]string{},
		HasPriority:  map[string]string{},
		SubtaskOf:    map[string]string{},
		HadProgress:  map[string]string{},
	}
}

// Seed adds Status and Priority reference nodes.
func (g *Graph) Seed(statuses, priorities []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, s := range statuses {
		g.Statuses[graph.ReferenceKey(s)] = i
	}
	for i, p := range priorities {
		g.Priorities[graph.ReferenceKey(p)] = i
	}
}

// Calls returns the recorded queries.
func (g *Graph) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CountCalls returns how many times query ran.
func (g *Graph) CountCalls(query string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Query == query {
			n++
		}
	}
	return n
}

// Lock exposes the mutex so tests can read maps while queries run.
func (g *Graph) Lock() { g.mu.Lock() }

// Unlock releases Lock.
func (g *Graph) Unlock() { g.mu.Unlock() }

// Assignees returns the sorted user ids assigned to task.
func (g *Graph) Assignees(task string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.AssignedTo[task])
}

// TasksInList returns the sorted task ids the list contains.
func (g *Graph) TasksInList(list string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.ContainsTask[list])
}

// TaskProp reads one task property.
func (g *Graph) TaskProp(task, prop string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	props, ok := g.Tasks[task]
	if !ok {
		return nil, false
	}
	v, ok := props[prop]
	return v, ok
}

// VerifyConnectivity implements graph.GraphStore.
func (g *Graph) VerifyConnectivity(context.Context) error {
	return g.Unreachable
}

// Read implements graph.GraphStore.
func (g *Graph) Read(ctx context.Context, query string, params map[string]any) ([]graph.Record, error) {
	s, err := g.exec(ctx, query, params, false)
	return s.Records, err
}

// Write implements graph.GraphStore.
func (g *Graph) Write(ctx context.Context, query string, params map[string]any) (graph.Summary, error) {
	return g.exec(ctx, query, params, true)
}

func (g *Graph) exec(ctx context.Context, query string, params map[string]any, write bool) (graph.Summary, error) {
	if err := ctx.Err(); err != nil {
		return graph.Summary{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Query: query, Params: params, Write: write})
	if g.Fail != nil {
		if err := g.Fail(query, params); err != nil {
			return graph.Summary{}, err
		}
	}

	p := paramReader(params)
	switch query {
	case graph.UpsertTask:
		return g.upsertTask(p), nil
	case graph.MergeUser:
		return g.merge(g.Users, p, "id"), nil
	case graph.ReplaceAssignees:
		return g.replaceAssignees(p), nil
	case graph.ReplaceListMembership:
		return g.replaceListMembership(p), nil
	case graph.SwapStatus:
		return g.swapReference(p, "status", g.Statuses, g.HasStatus), nil
	case graph.SwapPriority:
		return g.swapReference(p, "priority", g.Priorities, g.HasPriority), nil
	case graph.SetDueDate:
		return g.setDueDate(p), nil
	case graph.LinkSubtask:
		return g.linkSubtask(p), nil
	case graph.DeleteTask:
		return g.deleteTask(p.str("task_id")), nil
	case graph.MergeTeam:
		return g.merge(g.Teams, p, "id"), nil
	case graph.MergeSpace:
		return g.mergeSpace(p), nil
	case graph.MergeList:
		return g.mergeList(p), nil
	case graph.MirroredListIDs:
		ids := make([]string, 0, len(g.Lists))
		for id := range g.Lists {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([]graph.Record, 0, len(ids))
		for _, id := range ids {
			out = append(out, graph.Record{"id": id})
		}
		return graph.Summary{Records: out}, nil
	case graph.CountListTasks:
		return rows(graph.Record{"task_count": int64(len(g.ContainsTask[p.str("list_id")]))}), nil
	case graph.ClearAssignments:
		return g.clearAssignments(p), nil
	case graph.ClearTasks:
		return g.clearTasks(p), nil
	case graph.ClearLists:
		return g.clearLists(p), nil
	case graph.ClearSpace:
		return g.clearSpace(p), nil
	case graph.ClearTeam:
		return g.clearTeam(p), nil
	case graph.ClearOrphanUsers:
		return g.clearOrphanUsers(p), nil
	case graph.SeedStatus:
		g.Statuses[p.str("status")] = p.int("order")
		return rows(graph.Record{"status": p.str("status")}), nil
	case graph.SeedPriority:
		g.Priorities[p.str("priority")] = p.int("order")
		return rows(graph.Record{"priority": p.str("priority")}), nil
	case graph.ListStatuses:
		return g.listStatuses(p), nil
	case graph.MergeSnapshot:
		return g.mergeSnapshot(p), nil
	case graph.SnapshotHistory:
		return g.snapshotHistory(p), nil
	case graph.PruneSnapshots:
		return g.pruneSnapshots(p), nil
	case graph.UserTasks:
		return g.userTasks(p), nil
	case graph.UserTaskSummary:
		return g.userTaskSummary(p), nil
	case graph.UserByUsername:
		return g.userByUsername(p), nil
	case graph.OverdueTasks:
		return g.overdueTasks(p), nil
	default:
		return graph.Summary{}, nil
	}
}

type paramReader map[string]any

func (p paramReader) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p paramReader) int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p paramReader) strs(key string) []string {
	s, _ := p[key].([]string)
	return s
}

func rows(records ...graph.Record) graph.Summary {
	return graph.Summary{Records: records}
}

func copyProps(p paramReader) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) merge(nodes map[string]map[string]any, p paramReader, key string) graph.Summary {
	id := p.str(key)
	_, existed := nodes[id]
	nodes[id] = copyProps(p)
	s := rows(graph.Record{"id": id})
	if !existed {
		s.NodesCreated = 1
	}
	return s
}

func (g *Graph) upsertTask(p paramReader) graph.Summary {
	return g.merge(g.Tasks, p, "id")
}

func (g *Graph) replaceAssignees(p paramReader) graph.Summary {
	task := p.str("task_id")
	if _, ok := g.Tasks[task]; !ok {
		return rows(graph.Record{"assigned": int64(0)})
	}
	s := graph.Summary{RelationshipsDeleted: len(g.AssignedTo[task])}
	assigned := map[string]bool{}
	for _, uid := range p.strs("user_ids") {
		if _, ok := g.Users[uid]; ok {
			assigned[uid] = true
		}
	}
	g.AssignedTo[task] = assigned
	s.RelationshipsCreated = len(assigned)
	s.Records = []graph.Record{{"assigned": int64(len(assigned))}}
	return s
}

func (g *Graph) unlinkList(task string) {
	delete(g.BelongsTo, task)
	for _, members := range g.ContainsTask {
		delete(members, task)
	}
}

func (g *Graph) replaceListMembership(p paramReader) graph.Summary {
	task, list := p.str("task_id"), p.str("list_id")
	if _, ok := g.Tasks[task]; !ok {
		return graph.Summary{}
	}
	g.unlinkList(task)
	if _, ok := g.Lists[list]; !ok {
		return graph.Summary{}
	}
	g.BelongsTo[task] = list
	if g.ContainsTask[list] == nil {
		g.ContainsTask[list] = map[string]bool{}
	}
	g.ContainsTask[list][task] = true
	g.Tasks[task]["list_id"] = list
	return graph.Summary{Records: []graph.Record{{"list_id": list}}, RelationshipsCreated: 2}
}

func (g *Graph) swapReference(p paramReader, prop string, refs map[string]int, edges map[string]string) graph.Summary {
	task := p.str("task_id")
	if _, ok := g.Tasks[task]; !ok {
		return graph.Summary{}
	}
	g.Tasks[task][prop] = p[prop]
	delete(edges, task)

	key := p.str(prop + "_key")
	_, linked := refs[key]
	if linked && key != "" {
		edges[task] = key
	} else {
		linked = false
	}
	return rows(graph.Record{"task_id": task, "linked": linked})
}

func (g *Graph) setDueDate(p paramReader) graph.Summary {
	task := p.str("task_id")
	if _, ok := g.Tasks[task]; !ok {
		return graph.Summary{}
	}
	g.Tasks[task]["due_date"] = p["due_date"]
	return rows(graph.Record{"task_id": task})
}

func (g *Graph) linkSubtask(p paramReader) graph.Summary {
	task, parent := p.str("task_id"), p.str("parent_id")
	_, okTask := g.Tasks[task]
	_, okParent := g.Tasks[parent]
	if !okTask || !okParent {
		return graph.Summary{}
	}
	s := rows(graph.Record{"parent_id": parent})
	if g.SubtaskOf[task] != parent {
		s.RelationshipsCreated = 1
	}
	g.SubtaskOf[task] = parent
	return s
}

func (g *Graph) deleteTask(task string) graph.Summary {
	if _, ok := g.Tasks[task]; !ok {
		return rows(graph.Record{"deleted": int64(0)})
	}
	delete(g.Tasks, task)
	g.unlinkList(task)
	delete(g.AssignedTo, task)
	delete(g.HasStatus, task)
	delete(g.HasPriority, task)
	delete(g.SubtaskOf, task)
	for child, parent := range g.SubtaskOf {
		if parent == task {
			delete(g.SubtaskOf, child)
		}
	}
	return graph.Summary{Records: []graph.Record{{"deleted": int64(1)}}, NodesDeleted: 1}
}

func (g *Graph) mergeSpace(p paramReader) graph.Summary {
	team := p.str("team_id")
	if _, ok := g.Teams[team]; !ok {
		return graph.Summary{}
	}
	s := g.merge(g.Spaces, p, "id")
	g.HasSpace[p.str("id")] = team
	return s
}

func (g *Graph) mergeList(p paramReader) graph.Summary {
	space := p.str("space_id")
	if _, ok := g.Spaces[space]; !ok {
		return graph.Summary{}
	}
	s := g.merge(g.Lists, p, "id")
	g.ContainsList[p.str("id")] = space
	return s
}

func deleted(n int) graph.Summary {
	return rows(graph.Record{"deleted": int64(n)})
}

func (g *Graph) clearAssignments(p paramReader) graph.Summary {
	space, limit := p.str("space_id"), p.int("batch_size")
	n := 0
	for task, users := range g.AssignedTo {
		if g.Tasks[task]["space_id"] != space {
			continue
		}
		for uid := range users {
			if n >= limit {
				return deleted(n)
			}
			delete(users, uid)
			n++
		}
		if len(users) == 0 {
			delete(g.AssignedTo, task)
		}
	}
	return deleted(n)
}

func (g *Graph) clearTasks(p paramReader) graph.Summary {
	space, limit := p.str("space_id"), p.int("batch_size")
	n := 0
	for id, props := range g.Tasks {
		if n >= limit {
			break
		}
		if props["space_id"] == space {
			g.deleteTask(id)
			n++
		}
	}
	return deleted(n)
}

func (g *Graph) clearLists(p paramReader) graph.Summary {
	space, limit := p.str("space_id"), p.int("batch_size")
	n := 0
	for id, props := range g.Lists {
		if n >= limit {
			break
		}
		if props["space_id"] != space {
			continue
		}
		delete(g.Lists, id)
		delete(g.ContainsList, id)
		for task, list := range g.BelongsTo {
			if list == id {
				delete(g.BelongsTo, task)
			}
		}
		delete(g.ContainsTask, id)
		for snap, list := range g.HadProgress {
			if list == id {
				delete(g.HadProgress, snap)
			}
		}
		n++
	}
	return deleted(n)
}

func (g *Graph) clearSpace(p paramReader) graph.Summary {
	space := p.str("space_id")
	if _, ok := g.Spaces[space]; !ok {
		return deleted(0)
	}
	delete(g.Spaces, space)
	delete(g.HasSpace, space)
	for list, s := range g.ContainsList {
		if s == space {
			delete(g.ContainsList, list)
		}
	}
	return deleted(1)
}

func (g *Graph) clearTeam(p paramReader) graph.Summary {
	team := p.str("team_id")
	if _, ok := g.Teams[team]; !ok {
		return deleted(0)
	}
	for _, t := range g.HasSpace {
		if t == team {
			return deleted(0)
		}
	}
	delete(g.Teams, team)
	return deleted(1)
}

func (g *Graph) clearOrphanUsers(p paramReader) graph.Summary {
	limit := p.int("batch_size")
	assigned := map[string]bool{}
	for _, users := range g.AssignedTo {
		for uid := range users {
			assigned[uid] = true
		}
	}
	n := 0
	for uid := range g.Users {
		if n >= limit {
			break
		}
		if !assigned[uid] {
			delete(g.Users, uid)
			n++
		}
	}
	return deleted(n)
}

func (g *Graph) listStatuses(p paramReader) graph.Summary {
	list := p.str("list_id")
	props, ok := g.Lists[list]
	if !ok {
		return graph.Summary{}
	}
	statuses := make([]any, 0, len(g.ContainsTask[list]))
	for _, task := range sortedKeys(g.ContainsTask[list]) {
		if s, ok := g.Tasks[task]["status"].(string); ok {
			statuses = append(statuses, s)
		}
	}
	return rows(graph.Record{"list_name": props["name"], "statuses": statuses})
}

func (g *Graph) mergeSnapshot(p paramReader) graph.Summary {
	list := p.str("list_id")
	listProps, ok := g.Lists[list]
	if !ok {
		return graph.Summary{}
	}
	id := p.str("id")
	s := graph.Summary{}
	snap, exists := g.Snapshots[id]
	if !exists {
		snap = map[string]any{
			"id":                  id,
			"list_id":             list,
			"list_name":           listProps["name"],
			"snapshot_date":       p.str("snapshot_date"),
			"week_ending":         p.str("week_ending"),
			"total_tasks":         p["total_tasks"],
			"completed_tasks":     p["completed_tasks"],
			"in_progress_tasks":   p["in_progress_tasks"],
			"progress_percentage": p["progress_percentage"],
		}
		g.Snapshots[id] = snap
		g.HadProgress[id] = list
		s.NodesCreated = 1
		s.RelationshipsCreated = 1
	}
	s.Records = []graph.Record{copyProps(snap)}
	return s
}

func (g *Graph) snapshotHistory(p paramReader) graph.Summary {
	list, since := p.str("list_id"), p.str("since")
	var out []graph.Record
	for _, snap := range g.Snapshots {
		if snap["list_id"] != list {
			continue
		}
		if date, _ := snap["snapshot_date"].(string); strings.Compare(date, since) >= 0 {
			out = append(out, copyProps(snap))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return graph.String(out[i], "snapshot_date") > graph.String(out[j], "snapshot_date")
	})
	return graph.Summary{Records: out}
}

func (g *Graph) pruneSnapshots(p paramReader) graph.Summary {
	cutoff, limit := p.str("cutoff"), p.int("batch_size")
	n := 0
	for id, snap := range g.Snapshots {
		if n >= limit {
			break
		}
		if date, _ := snap["snapshot_date"].(string); date < cutoff {
			delete(g.Snapshots, id)
			delete(g.HadProgress, id)
			n++
		}
	}
	return deleted(n)
}
