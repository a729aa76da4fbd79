// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tomtom215/taskgraph/internal/auth"
	"github.com/tomtom215/taskgraph/internal/clickup/clickuptest"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/graph/graphtest"
	"github.com/tomtom215/taskgraph/internal/importer"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "defaults", want: options{subject: "admin"}},
		{name: "issue token", args: []string{"--issue-token", "--subject", "ops"}, want: options{issueToken: true, subject: "ops"}},
		{name: "version", args: []string{"--version"}, want: options{subject: "admin", showVersion: true}},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: true},
		{name: "positional", args: []string{"serve"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseFlags(tt.args, io.Discard)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseFlags(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestIssueToken(t *testing.T) {
	t.Parallel()

	sec := &config.SecurityConfig{AuthMode: "jwt", JWTSecret: strings.Repeat("k", 32)}
	var out bytes.Buffer
	if err := issueToken(&out, sec, "ops"); err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	manager, err := auth.NewJWTManager(sec)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	claims, err := manager.ValidateToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	if err := issueToken(io.Discard, &config.SecurityConfig{}, "ops"); !errors.Is(err, auth.ErrEmptySecret) {
		t.Errorf("issueToken without secret = %v, want ErrEmptySecret", err)
	}
}

func TestSyncControl(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	imp := importer.New(cfg, clickuptest.New(), graphtest.New(), nil)
	ctl := syncControl{scheduler: importer.NewScheduler(imp, cfg.Sync), importer: imp}

	if err := ctl.TriggerSync(true); !errors.Is(err, importer.ErrSchedulerStopped) {
		t.Errorf("TriggerSync on stopped scheduler = %v", err)
	}
	if ctl.Running() {
		t.Error("Running() = true before any sync")
	}
	last, err := ctl.LastSync(context.Background())
	if err != nil || last != nil {
		t.Errorf("LastSync() = %v, %v; want nil, nil", last, err)
	}
}
