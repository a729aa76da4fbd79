// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graph

// Task and relationship writes shared by the webhook processor and the importer.
const (
	// UpsertTask MERGEs a task by id and overwrites every mirrored property.
	// Date parameters are time.Time or nil.
	UpsertTask = `
MERGE (t:Task {id: $id})
SET t.name = $name,
    t.description = $description,
    t.text_content = $text_content,
    t.status = $status,
    t.priority = $priority,
    t.points = $points,
    t.due_date = $due_date,
    t.start_date = $start_date,
    t.date_created = $date_created,
    t.date_updated = $date_updated,
    t.date_closed = $date_closed,
    t.orderindex = $orderindex,
    t.url = $url,
    t.custom_id = $custom_id,
    t.time_estimate = $time_estimate,
    t.time_spent = $time_spent,
    t.archived = $archived,
    t.list_id = $list_id,
    t.space_id = $space_id,
    t.parent_id = $parent_id,
    t.updated_at = datetime()
RETURN t.id AS id`

	// MergeUser upserts an assignee as reference data.
	MergeUser = `
MERGE (u:User {id: $id})
SET u.username = $username,
    u.email = $email,
    u.color = $color,
    u.initials = $initials,
    u.profile_picture = $profile_picture,
    u.updated_at = datetime()
RETURN u.id AS id`

	// ReplaceAssignees drops every ASSIGNED_TO edge into the task and links
	// the users in $user_ids, which must already exist.
	ReplaceAssignees = `
MATCH (t:Task {id: $task_id})
OPTIONAL MATCH (:User)-[old:ASSIGNED_TO]->(t)
DELETE old
WITH DISTINCT t
UNWIND $user_ids AS user_id
MATCH (u:User {id: user_id})
MERGE (u)-[a:ASSIGNED_TO]->(t)
SET a.assigned_at = datetime()
RETURN count(a) AS assigned`

	// ReplaceListMembership moves a task to $list_id, keeping BELONGS_TO and
	// CONTAINS_TASK in step. Zero rows means the task or list is not mirrored.
	ReplaceListMembership = `
MATCH (t:Task {id: $task_id})
OPTIONAL MATCH (t)-[b:BELONGS_TO]->(:List)
DELETE b
WITH DISTINCT t
OPTIONAL MATCH (:List)-[c:CONTAINS_TASK]->(t)
DELETE c
WITH DISTINCT t
MATCH (l:List {id: $list_id})
MERGE (t)-[:BELONGS_TO]->(l)
MERGE (l)-[:CONTAINS_TASK]->(t)
SET t.list_id = l.id, t.updated_at = datetime()
RETURN l.id AS list_id`

	// SwapStatus sets the status property and relinks HAS_STATUS to an
	// existing Status node. Zero rows: task absent. linked=false: no such
	// Status reference node.
	SwapStatus = `
MATCH (t:Task {id: $task_id})
SET t.status = $status, t.updated_at = datetime()
WITH t
OPTIONAL MATCH (t)-[r:HAS_STATUS]->(:Status)
DELETE r
WITH DISTINCT t
OPTIONAL MATCH (s:Status {status: $status_key})
FOREACH (_ IN CASE WHEN s IS NULL THEN [] ELSE [1] END | MERGE (t)-[:HAS_STATUS]->(s))
RETURN t.id AS task_id, s IS NOT NULL AS linked`

	// SwapPriority is SwapStatus for HAS_PRIORITY. A null $priority clears
	// the property and the edge.
	SwapPriority = `
MATCH (t:Task {id: $task_id})
SET t.priority = $priority, t.updated_at = datetime()
WITH t
OPTIONAL MATCH (t)-[r:HAS_PRIORITY]->(:Priority)
DELETE r
WITH DISTINCT t
OPTIONAL MATCH (p:Priority {priority: $priority_key})
FOREACH (_ IN CASE WHEN p IS NULL THEN [] ELSE [1] END | MERGE (t)-[:HAS_PRIORITY]->(p))
RETURN t.id AS task_id, p IS NOT NULL AS linked`

	// SetDueDate writes or clears the due date.
	SetDueDate = `
MATCH (t:Task {id: $task_id})
SET t.due_date = $due_date, t.updated_at = datetime()
RETURN t.id AS task_id`

	// LinkSubtask replaces the single SUBTASK_OF edge of $task_id.
	// Zero rows means either task is not mirrored yet.
	LinkSubtask = `
MATCH (sub:Task {id: $task_id})
MATCH (parent:Task {id: $parent_id})
OPTIONAL MATCH (sub)-[old:SUBTASK_OF]->(other:Task)
WHERE other <> parent
DELETE old
WITH DISTINCT sub, parent
MERGE (sub)-[r:SUBTASK_OF]->(parent)
ON CREATE SET r.created_at = datetime()
RETURN parent.id AS parent_id`

	// DeleteTask is idempotent: an absent task yields deleted=0.
	DeleteTask = `
MATCH (t:Task {id: $task_id})
DETACH DELETE t
RETURN count(t) AS deleted`
)

// Hierarchy writes used by the importer.
const (
	MergeTeam = `
MERGE (team:Team {id: $id})
SET team.name = $name,
    team.color = $color,
    team.updated_at = datetime()
RETURN team.id AS id`

	MergeSpace = `
MATCH (team:Team {id: $team_id})
MERGE (space:Space {id: $id})
SET space.name = $name,
    space.private = $private,
    space.multiple_assignees = $multiple_assignees,
    space.archived = $archived,
    space.team_id = $team_id,
    space.updated_at = datetime()
MERGE (team)-[:HAS_SPACE]->(space)
RETURN space.id AS id`

	MergeList = `
MATCH (space:Space {id: $space_id})
MERGE (l:List {id: $id})
SET l.name = $name,
    l.task_count = $task_count,
    l.orderindex = $orderindex,
    l.folder_id = $folder_id,
    l.space_id = $space_id,
    l.updated_at = datetime()
MERGE (space)-[:CONTAINS_LIST]->(l)
RETURN l.id AS id`

	// MirroredListIDs returns every list in the graph.
	MirroredListIDs = `
MATCH (l:List)
RETURN l.id AS id
ORDER BY id`

	// CountListTasks counts tasks the graph holds for a list.
	CountListTasks = `
MATCH (l:List {id: $list_id})
OPTIONAL MATCH (l)-[:CONTAINS_TASK]->(t:Task)
RETURN count(t) AS task_count`
)

// Batched clear of one space. Each query deletes at most $batch_size items
// and reports how many it removed; callers loop until deleted is 0.
const (
	ClearAssignments = `
MATCH (:User)-[r:ASSIGNED_TO]->(t:Task {space_id: $space_id})
WITH r LIMIT $batch_size
DELETE r
RETURN count(r) AS deleted`

	ClearTasks = `
MATCH (t:Task {space_id: $space_id})
WITH t LIMIT $batch_size
DETACH DELETE t
RETURN count(t) AS deleted`

	ClearLists = `
MATCH (l:List {space_id: $space_id})
WITH l LIMIT $batch_size
DETACH DELETE l
RETURN count(l) AS deleted`

	ClearSpace = `
MATCH (s:Space {id: $space_id})
WITH s LIMIT $batch_size
DETACH DELETE s
RETURN count(s) AS deleted`

	// ClearTeam only removes the team once no space hangs off it.
	ClearTeam = `
MATCH (team:Team {id: $team_id})
WHERE NOT (team)-[:HAS_SPACE]->(:Space)
WITH team LIMIT $batch_size
DETACH DELETE team
RETURN count(team) AS deleted`

	ClearOrphanUsers = `
MATCH (u:User)
WHERE NOT (u)-[:ASSIGNED_TO]->(:Task)
WITH u LIMIT $batch_size
DETACH DELETE u
RETURN count(u) AS deleted`
)

// Reference data and progress snapshots.
const (
	SeedStatus = `
MERGE (s:Status {status: $status})
ON CREATE SET s.created_at = datetime()
SET s.order = $order
RETURN s.status AS status`

	SeedPriority = `
MERGE (p:Priority {priority: $priority})
ON CREATE SET p.created_at = datetime()
SET p.order = $order
RETURN p.priority AS priority`

	// ListStatuses returns the list name and the status of each task in it.
	// Zero rows means the list is not mirrored.
	ListStatuses = `
MATCH (l:List {id: $list_id})
OPTIONAL MATCH (l)-[:CONTAINS_TASK]->(t:Task)
RETURN l.name AS list_name, collect(t.status) AS statuses`

	// MergeSnapshot keeps the first values written for a given week.
	MergeSnapshot = `
MATCH (l:List {id: $list_id})
MERGE (ps:ProgressSnapshot {id: $id})
ON CREATE SET ps.list_id = l.id,
    ps.list_name = l.name,
    ps.snapshot_date = date($snapshot_date),
    ps.week_ending = date($week_ending),
    ps.total_tasks = $total_tasks,
    ps.completed_tasks = $completed_tasks,
    ps.in_progress_tasks = $in_progress_tasks,
    ps.progress_percentage = $progress_percentage,
    ps.snapshot_type = 'weekly',
    ps.created_at = datetime()
MERGE (l)-[h:HAD_PROGRESS_ON]->(ps)
ON CREATE SET h.date = date($snapshot_date),
    h.week_ending = date($week_ending),
    h.snapshot_type = 'weekly'
RETURN ps.id AS id,
    ps.list_id AS list_id,
    ps.list_name AS list_name,
    toString(ps.snapshot_date) AS snapshot_date,
    toString(ps.week_ending) AS week_ending,
    ps.total_tasks AS total_tasks,
    ps.completed_tasks AS completed_tasks,
    ps.in_progress_tasks AS in_progress_tasks,
    ps.progress_percentage AS progress_percentage`

	SnapshotHistory = `
MATCH (ps:ProgressSnapshot {list_id: $list_id})
WHERE ps.snapshot_date >= date($since)
RETURN ps.id AS id,
    ps.list_id AS list_id,
    ps.list_name AS list_name,
    toString(ps.snapshot_date) AS snapshot_date,
    toString(ps.week_ending) AS week_ending,
    ps.total_tasks AS total_tasks,
    ps.completed_tasks AS completed_tasks,
    ps.in_progress_tasks AS in_progress_tasks,
    ps.progress_percentage AS progress_percentage
ORDER BY ps.snapshot_date DESC`

	PruneSnapshots = `
MATCH (ps:ProgressSnapshot)
WHERE ps.snapshot_date < date($cutoff)
WITH ps LIMIT $batch_size
DETACH DELETE ps
RETURN count(ps) AS deleted`
)

// Per-user reads. An empty $list_ids matches every list.
const (
	// UserTasks orders by due date (undated last), then priority order.
	UserTasks = `
MATCH (u:User {id: $user_id})-[:ASSIGNED_TO]->(t:Task)
WHERE size($list_ids) = 0 OR t.list_id IN $list_ids
OPTIONAL MATCH (t)-[:HAS_PRIORITY]->(p:Priority)
RETURN t.id AS task_id,
    t.name AS task_name,
    t.status AS status,
    t.priority AS priority,
    t.list_id AS list_id,
    toString(t.due_date) AS due_date,
    t.description AS description,
    t.url AS url
ORDER BY t.due_date IS NULL, t.due_date ASC, coalesce(p.order, 999) ASC, t.id`

	// UserTaskSummary returns zero rows when the user is not mirrored.
	UserTaskSummary = `
MATCH (u:User {id: $user_id})
OPTIONAL MATCH (u)-[:ASSIGNED_TO]->(t:Task)
WHERE size($list_ids) = 0 OR t.list_id IN $list_ids
RETURN u.id AS user_id,
    count(t) AS total_tasks,
    collect(t.status) AS statuses,
    collect(coalesce(t.priority, 'none')) AS priorities`

	UserByUsername = `
MATCH (u:User)
WHERE toLower(u.username) = toLower($username)
RETURN u.id AS user_id,
    u.username AS username,
    u.email AS email,
    u.initials AS initials
ORDER BY u.id
LIMIT 1`

	// OverdueTasks lists open tasks due before $now. An empty $user_id
	// matches every assignee.
	OverdueTasks = `
MATCH (t:Task)
WHERE t.due_date IS NOT NULL
  AND t.due_date < $now
  AND NOT toLower(t.status) IN $done_statuses
  AND ($user_id = '' OR EXISTS { MATCH (t)<-[:ASSIGNED_TO]-(:User {id: $user_id}) })
OPTIONAL MATCH (u:User)-[:ASSIGNED_TO]->(t)
WITH t, collect(u.username) AS assigned_users
RETURN t.id AS task_id,
    t.name AS task_name,
    t.status AS status,
    t.priority AS priority,
    t.list_id AS list_id,
    toString(t.due_date) AS due_date,
    assigned_users
ORDER BY t.due_date ASC, t.id`
)

// Constraint is one uniqueness constraint created by EnsureSchema.
type Constraint struct {
	Name     string
	Label    string
	Property string
}

// Constraints lists the uniqueness constraints of the graph.
var Constraints = []Constraint{
	{"team_id", "Team", "id"},
	{"space_id", "Space", "id"},
	{"list_id", "List", "id"},
	{"task_id", "Task", "id"},
	{"user_id", "User", "id"},
	{"progress_snapshot_id", "ProgressSnapshot", "id"},
	{"status_status", "Status", "status"},
	{"priority_priority", "Priority", "priority"},
}

// Cypher renders the CREATE CONSTRAINT statement.
func (c Constraint) Cypher() string {
	return "CREATE CONSTRAINT " + c.Name + " IF NOT EXISTS FOR (n:" + c.Label + ") REQUIRE n." + c.Property + " IS UNIQUE"
}
