// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package graph is the Neo4j access layer.

GraphStore is the narrow interface the processor, importer and snapshot jobs
write through. Store implements it over neo4j-go-driver/v5 managed
transactions, one session per call, bound to the configured database.

# Schema

	(:Team)-[:HAS_SPACE]->(:Space)-[:CONTAINS_LIST]->(:List)
	(:List)-[:CONTAINS_TASK]->(:Task)-[:BELONGS_TO]->(:List)
	(:User)-[:ASSIGNED_TO]->(:Task)
	(:Task)-[:HAS_STATUS]->(:Status)
	(:Task)-[:HAS_PRIORITY]->(:Priority)
	(:Task)-[:SUBTASK_OF]->(:Task)
	(:List)-[:HAD_PROGRESS_ON]->(:ProgressSnapshot)

Every node is MERGEd by id; Status and Priority by their label text.
EnsureSchema creates the uniqueness constraints and seeds the Status and
Priority reference nodes.

All queries live in cypher.go so the webhook path and the bulk importer
produce identical graph shapes.

# Retries

Transient failures (leader switch, deadlock, dropped connection) are retried
with exponential backoff up to neo4j.max_retry_attempts. Client errors such
as syntax or constraint violations are returned on the first attempt.
*/
package graph
