// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package clickup is the ClickUp webhook provider.

Parse turns a ClickUp delivery into a webhooks.NormalizedEvent with the
deterministic id clickup_{webhook_id}_{task_id}. Process applies it to the
graph:

	taskCreated, subtaskCreated    re-fetch, upsert, relink, SUBTASK_OF
	taskUpdated, subtaskUpdated    re-fetch, upsert, relink
	taskAssigneeUpdated            re-fetch, replace ASSIGNED_TO
	taskDeleted, subtaskDeleted    DETACH DELETE (absent is fine)
	taskStatusUpdated              history "status" -> HAS_STATUS swap
	taskPriorityUpdated            history "priority" -> HAS_PRIORITY swap
	taskDueDateUpdated             history "due_date" (epoch ms, null clears)
	taskMoved                      history "list_id"/"section", else re-fetch
	taskCommentPosted              logged only

Events for one task id are applied one at a time. Re-fetching handlers write
what ClickUp reports now, so redelivered and reordered events converge on the
source state. A task ClickUp answers 404 for is removed from the graph.
*/
package clickup
