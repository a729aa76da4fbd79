// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*ScheduledService)(nil)
	_ suture.Service = (*RouterService)(nil)
	_ suture.Service = (*OneShotService)(nil)
)

func serveAsync(ctx context.Context, svc suture.Service) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// fakeHTTPServer blocks in ListenAndServe until Shutdown when block is set.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	block       bool

	listening chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	shutdowns atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{listening: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	select {
	case f.listening <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	if f.block {
		<-f.stop
		return http.ErrServerClosed
	}
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func TestNewHTTPServerServiceTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want time.Duration
	}{
		{in: 30 * time.Second, want: 30 * time.Second},
		{in: 0, want: defaultShutdownTimeout},
		{in: -time.Second, want: defaultShutdownTimeout},
	}
	for _, tt := range tests {
		svc := NewHTTPServerService(newFakeHTTPServer(), tt.in)
		if svc.shutdownTimeout != tt.want {
			t.Errorf("NewHTTPServerService(%v) timeout = %v, want %v", tt.in, svc.shutdownTimeout, tt.want)
		}
	}
	if got := NewHTTPServerService(newFakeHTTPServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerServiceServe(t *testing.T) {
	t.Parallel()

	t.Run("graceful shutdown", func(t *testing.T) {
		t.Parallel()
		server := newFakeHTTPServer()
		server.block = true
		ctx, cancel := context.WithCancel(context.Background())
		errCh := serveAsync(ctx, NewHTTPServerService(server, time.Second))

		waitSignal(t, server.listening, "listener")
		cancel()
		if err := waitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if n := server.shutdowns.Load(); n != 1 {
			t.Errorf("Shutdown called %d times", n)
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		t.Parallel()
		bindErr := errors.New("bind: address already in use")
		server := newFakeHTTPServer()
		server.listenErr = bindErr
		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, bindErr) {
			t.Errorf("Serve() = %v, want %v", err, bindErr)
		}
	})

	t.Run("unexpected close is an error", func(t *testing.T) {
		t.Parallel()
		err := NewHTTPServerService(newFakeHTTPServer(), time.Second).Serve(context.Background())
		if err == nil {
			t.Error("Serve() = nil after listener closed on its own")
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		t.Parallel()
		shutdownErr := errors.New("deadline exceeded draining")
		server := newFakeHTTPServer()
		server.block = true
		server.shutdownErr = shutdownErr
		ctx, cancel := context.WithCancel(context.Background())
		errCh := serveAsync(ctx, NewHTTPServerService(server, time.Second))

		waitSignal(t, server.listening, "listener")
		cancel()
		if err := waitErr(t, errCh); !errors.Is(err, shutdownErr) {
			t.Errorf("Serve() = %v, want %v", err, shutdownErr)
		}
	})
}

type fakeManager struct {
	startErr error
	stopErr  error
	started  chan struct{}
	starts   atomic.Int32
	stops    atomic.Int32
}

func (f *fakeManager) Start(context.Context) error {
	f.starts.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	return f.startErr
}

func (f *fakeManager) Stop() error {
	f.stops.Add(1)
	return f.stopErr
}

func TestScheduledService(t *testing.T) {
	t.Parallel()

	t.Run("start then stop on cancel", func(t *testing.T) {
		t.Parallel()
		mgr := &fakeManager{started: make(chan struct{}, 1)}
		svc := NewScheduledService("sync-scheduler", mgr)
		if svc.String() != "sync-scheduler" {
			t.Errorf("String() = %q", svc.String())
		}
		ctx, cancel := context.WithCancel(context.Background())
		errCh := serveAsync(ctx, svc)

		waitSignal(t, mgr.started, "manager start")
		if mgr.stops.Load() != 0 {
			t.Error("manager stopped before cancel")
		}
		cancel()
		if err := waitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
		if mgr.stops.Load() != 1 {
			t.Errorf("Stop called %d times", mgr.stops.Load())
		}
	})

	t.Run("start failure", func(t *testing.T) {
		t.Parallel()
		startErr := errors.New("already running")
		mgr := &fakeManager{startErr: startErr}
		err := NewScheduledService("snapshot-scheduler", mgr).Serve(context.Background())
		if !errors.Is(err, startErr) {
			t.Errorf("Serve() = %v, want %v", err, startErr)
		}
		if mgr.stops.Load() != 0 {
			t.Error("Stop called after failed Start")
		}
	})

	t.Run("stop failure", func(t *testing.T) {
		t.Parallel()
		stopErr := errors.New("not running")
		mgr := &fakeManager{stopErr: stopErr}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewScheduledService("sync-scheduler", mgr).Serve(ctx)
		if !errors.Is(err, stopErr) {
			t.Errorf("Serve() = %v, want %v", err, stopErr)
		}
	})
}

type fakeConsumer struct {
	runErr  error
	waitCtx bool
}

func (f *fakeConsumer) Run(ctx context.Context) error {
	if f.waitCtx {
		<-ctx.Done()
		return nil
	}
	return f.runErr
}

func TestRouterService(t *testing.T) {
	t.Parallel()

	routerErr := errors.New("subscriber closed")
	tests := []struct {
		name     string
		consumer *fakeConsumer
		cancel   bool
		want     error
		wantErr  bool
	}{
		{name: "canceled", consumer: &fakeConsumer{waitCtx: true}, cancel: true, want: context.Canceled, wantErr: true},
		{name: "router failure", consumer: &fakeConsumer{runErr: routerErr}, want: routerErr, wantErr: true},
		{name: "router returned early", consumer: &fakeConsumer{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			svc := NewRouterService(tt.consumer)
			errCh := serveAsync(ctx, svc)
			if tt.cancel {
				cancel()
			}
			err := waitErr(t, errCh)
			if tt.wantErr && err == nil {
				t.Fatal("Serve() = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Serve() = %v, want %v", err, tt.want)
			}
		})
	}
	if got := NewRouterService(&fakeConsumer{}).String(); got != "event-consumer" {
		t.Errorf("String() = %q", got)
	}
}

type fakeTask struct {
	runs      atomic.Int32
	failUntil int32
	done      chan struct{}
}

func (f *fakeTask) Run(context.Context) error {
	n := f.runs.Add(1)
	if n <= f.failUntil {
		return errors.New("graph unreachable")
	}
	close(f.done)
	return nil
}

func TestOneShotService(t *testing.T) {
	t.Parallel()

	t.Run("success is not restarted", func(t *testing.T) {
		t.Parallel()
		task := &fakeTask{done: make(chan struct{})}
		err := waitErr(t, serveAsync(context.Background(), NewOneShotService("schema-bootstrap", task)))
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() = %v, want ErrDoNotRestart", err)
		}
	})

	t.Run("failure is returned", func(t *testing.T) {
		t.Parallel()
		task := &fakeTask{failUntil: 1, done: make(chan struct{})}
		err := waitErr(t, serveAsync(context.Background(), NewOneShotService("schema-bootstrap", task)))
		if err == nil || errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() = %v, want the task error", err)
		}
	})

	t.Run("supervisor retries until done", func(t *testing.T) {
		t.Parallel()
		task := &fakeTask{failUntil: 2, done: make(chan struct{})}
		sup := suture.New("test", suture.Spec{FailureBackoff: 5 * time.Millisecond, FailureThreshold: 10})
		sup.Add(NewOneShotService("schema-bootstrap", task))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := sup.ServeBackground(ctx)
		waitSignal(t, task.done, "task success")

		time.Sleep(50 * time.Millisecond)
		if got := task.runs.Load(); got != 3 {
			t.Errorf("runs = %d, want 3", got)
		}
		cancel()
		<-done
	})

	if got := NewOneShotService("schema-bootstrap", &fakeTask{}).String(); got != "schema-bootstrap" {
		t.Errorf("String() = %q", got)
	}
}

func TestServicesUnderSupervisor(t *testing.T) {
	t.Parallel()

	server := newFakeHTTPServer()
	server.block = true
	mgr := &fakeManager{started: make(chan struct{}, 4)}

	sup := suture.New("test", suture.Spec{FailureBackoff: 10 * time.Millisecond, Timeout: 2 * time.Second})
	sup.Add(NewHTTPServerService(server, time.Second))
	sup.Add(NewScheduledService("sync-scheduler", mgr))
	sup.Add(NewRouterService(&fakeConsumer{waitCtx: true}))

	ctx, cancel := context.WithCancel(context.Background())
	done := sup.ServeBackground(ctx)
	waitSignal(t, server.listening, "listener")
	waitSignal(t, mgr.started, "manager start")

	cancel()
	<-done
	if server.shutdowns.Load() < 1 {
		t.Error("http server not shut down")
	}
	if mgr.stops.Load() < 1 {
		t.Error("scheduler not stopped")
	}
}
