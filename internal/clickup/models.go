// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"bytes"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// FlexString decodes a JSON string, number or null into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the raw value.
func (f FlexString) String() string { return string(f) }

// FlexInt decodes a JSON number, numeric string or null into an int64.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// Millis is an epoch-milliseconds timestamp as ClickUp sends them ("1700000000000").
type Millis = FlexString

// ParseMillis converts an epoch-milliseconds string. ok is false for empty
// or malformed input.
func ParseMillis(m Millis) (t time.Time, ok bool) {
	ms, err := strconv.ParseInt(string(m), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// User is a ClickUp member or assignee.
type User struct {
	ID             FlexString `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Color          string     `json:"color"`
	Initials       string     `json:"initials"`
	ProfilePicture string     `json:"profilePicture"`
}

// Status is a task's workflow status.
type Status struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Color      string     `json:"color"`
	Type       string     `json:"type"`
	OrderIndex FlexString `json:"orderindex"`
}

// Priority is a task's priority. ClickUp sends null for "no priority".
type Priority struct {
	ID         FlexString `json:"id"`
	Priority   string     `json:"priority"`
	Color      string     `json:"color"`
	OrderIndex FlexString `json:"orderindex"`
}

// Ref is the {"id","name"} stub embedded in tasks and lists.
type Ref struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
}

// Task is a ClickUp task as returned by GET /task/{id} and list task pages.
type Task struct {
	ID           string     `json:"id"`
	CustomID     string     `json:"custom_id"`
	Name         string     `json:"name"`
	TextContent  string     `json:"text_content"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	Priority     *Priority  `json:"priority"`
	OrderIndex   FlexString `json:"orderindex"`
	Assignees    []User     `json:"assignees"`
	Creator      *User      `json:"creator"`
	Parent       FlexString `json:"parent"`
	List         Ref        `json:"list"`
	Folder       Ref        `json:"folder"`
	Space        Ref        `json:"space"`
	Points       *float64   `json:"points"`
	TimeEstimate FlexInt    `json:"time_estimate"`
	TimeSpent    FlexInt    `json:"time_spent"`
	DueDate      Millis     `json:"due_date"`
	StartDate    Millis     `json:"start_date"`
	DateCreated  Millis     `json:"date_created"`
	DateUpdated  Millis     `json:"date_updated"`
	DateClosed   Millis     `json:"date_closed"`
	Archived     bool       `json:"archived"`
	URL          string     `json:"url"`
}

// PriorityName returns the priority label or "" when unset.
func (t *Task) PriorityName() string {
	if t.Priority == nil {
		return ""
	}
	return t.Priority.Priority
}

// ParentID returns the parent task id or "" for top-level tasks.
func (t *Task) ParentID() string { return t.Parent.String() }

// List is a ClickUp list.
type List struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Content    string     `json:"content"`
	OrderIndex FlexString `json:"orderindex"`
	TaskCount  FlexInt    `json:"task_count"`
	Archived   bool       `json:"archived"`
	DueDate    Millis     `json:"due_date"`
	StartDate  Millis     `json:"start_date"`
	Folder     Ref        `json:"folder"`
	Space      Ref        `json:"space"`
}

// Folder groups lists inside a space.
type Folder struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	OrderIndex       FlexString `json:"orderindex"`
	OverrideStatuses bool       `json:"override_statuses"`
	Hidden           bool       `json:"hidden"`
	TaskCount        FlexInt    `json:"task_count"`
	Lists            []List     `json:"lists"`
}

// Space is a ClickUp space.
type Space struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Private           bool   `json:"private"`
	Archived          bool   `json:"archived"`
	MultipleAssignees bool   `json:"multiple_assignees"`
}

// Team is a ClickUp workspace.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	Members []Member `json:"members"`
}

// Member wraps a user inside a team listing.
type Member struct {
	User User `json:"user"`
}

type teamsResponse struct {
	Teams []Team `json:"teams"`
}

type spacesResponse struct {
	Spaces []Space `json:"spaces"`
}

type foldersResponse struct {
	Folders []Folder `json:"folders"`
}

type listsResponse struct {
	Lists []List `json:"lists"`
}

type tasksResponse struct {
	Tasks    []Task `json:"tasks"`
	LastPage bool   `json:"last_page"`
}
