// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graph

import "fmt"

// Int reads an integer column. Neo4j returns int64; other numeric types
// are accepted so fakes can use plain ints.
func Int(r Record, key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float reads a float column.
func Float(r Record, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// String reads a string column. Non-string values are formatted.
func String(r Record, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool reads a boolean column.
func Bool(r Record, key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Strings reads a list column, skipping nulls.
func Strings(r Record, key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// FirstInt reads key from the first record, or 0 when there are none.
func FirstInt(records []Record, key string) int64 {
	if len(records) == 0 {
		return 0
	}
	return Int(records[0], key)
}
