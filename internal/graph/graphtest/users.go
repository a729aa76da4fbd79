// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graphtest

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/taskgraph/internal/graph"
)

func inLists(lists []string, list any) bool {
	if len(lists) == 0 {
		return true
	}
	id, _ := list.(string)
	for _, l := range lists {
		if l == id {
			return true
		}
	}
	return false
}

func dueDate(props map[string]any) (time.Time, bool) {
	t, ok := props["due_date"].(time.Time)
	return t, ok
}

func dueString(props map[string]any) any {
	if t, ok := dueDate(props); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return nil
}

func (g *Graph) assignedTasks(user string, lists []string) []string {
	var out []string
	for task, users := range g.AssignedTo {
		if users[user] && inLists(lists, g.Tasks[task]["list_id"]) {
			out = append(out, task)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) priorityOrder(task string) int {
	if key, ok := g.HasPriority[task]; ok {
		if order, ok := g.Priorities[key]; ok {
			return order
		}
	}
	return 999
}

func (g *Graph) userTasks(p paramReader) graph.Summary {
	tasks := g.assignedTasks(p.str("user_id"), p.strs("list_ids"))
	sort.SliceStable(tasks, func(i, j int) bool {
		di, iok := dueDate(g.Tasks[tasks[i]])
		dj, jok := dueDate(g.Tasks[tasks[j]])
		switch {
		case iok != jok:
			return iok
		case iok && !di.Equal(dj):
			return di.Before(dj)
		}
		return g.priorityOrder(tasks[i]) < g.priorityOrder(tasks[j])
	})

	out := make([]graph.Record, 0, len(tasks))
	for _, id := range tasks {
		t := g.Tasks[id]
		out = append(out, graph.Record{
			"task_id":     id,
			"task_name":   t["name"],
			"status":      t["status"],
			"priority":    t["priority"],
			"list_id":     t["list_id"],
			"due_date":    dueString(t),
			"description": t["description"],
			"url":         t["url"],
		})
	}
	return graph.Summary{Records: out}
}

func (g *Graph) userTaskSummary(p paramReader) graph.Summary {
	user := p.str("user_id")
	if _, ok := g.Users[user]; !ok {
		return graph.Summary{}
	}
	tasks := g.assignedTasks(user, p.strs("list_ids"))
	statuses := make([]any, 0, len(tasks))
	priorities := make([]any, 0, len(tasks))
	for _, id := range tasks {
		if s, ok := g.Tasks[id]["status"].(string); ok {
			statuses = append(statuses, s)
		}
		priority, ok := g.Tasks[id]["priority"].(string)
		if !ok {
			priority = "none"
		}
		priorities = append(priorities, priority)
	}
	return rows(graph.Record{
		"user_id":     user,
		"total_tasks": int64(len(tasks)),
		"statuses":    statuses,
		"priorities":  priorities,
	})
}

func (g *Graph) userByUsername(p paramReader) graph.Summary {
	want := strings.ToLower(p.str("username"))
	ids := make([]string, 0, len(g.Users))
	for id := range g.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		u := g.Users[id]
		if name, _ := u["username"].(string); strings.ToLower(name) == want {
			return rows(graph.Record{
				"user_id":  id,
				"username": u["username"],
				"email":    u["email"],
				"initials": u["initials"],
			})
		}
	}
	return graph.Summary{}
}

func (g *Graph) overdueTasks(p paramReader) graph.Summary {
	now, _ := p["now"].(time.Time)
	done := map[string]bool{}
	for _, s := range p.strs("done_statuses") {
		done[s] = true
	}
	user := p.str("user_id")

	var tasks []string
	for id, t := range g.Tasks {
		due, ok := dueDate(t)
		if !ok || !due.Before(now) {
			continue
		}
		status, _ := t["status"].(string)
		if done[strings.ToLower(status)] {
			continue
		}
		if user != "" && !g.AssignedTo[id][user] {
			continue
		}
		tasks = append(tasks, id)
	}
	sort.Slice(tasks, func(i, j int) bool {
		di, _ := dueDate(g.Tasks[tasks[i]])
		dj, _ := dueDate(g.Tasks[tasks[j]])
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return tasks[i] < tasks[j]
	})

	out := make([]graph.Record, 0, len(tasks))
	for _, id := range tasks {
		t := g.Tasks[id]
		assigned := make([]any, 0, len(g.AssignedTo[id]))
		for _, uid := range sortedKeys(g.AssignedTo[id]) {
			assigned = append(assigned, g.Users[uid]["username"])
		}
		out = append(out, graph.Record{
			"task_id":        id,
			"task_name":      t["name"],
			"status":         t["status"],
			"priority":       t["priority"],
			"list_id":        t["list_id"],
			"due_date":       dueString(t),
			"assigned_users": assigned,
		})
	}
	return graph.Summary{Records: out}
}
