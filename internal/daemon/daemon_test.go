package daemon

import (
	"context"
	"strings"
	"testing"

	"lectern/internal/testsupport"
)

func TestNewInitializesHistoryStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("daemon should not be running before Start")
	}
	if status.HistoryDBPath != cfg.HistoryDBPath() {
		t.Fatalf("history path = %q, want %q", status.HistoryDBPath, cfg.HistoryDBPath())
	}
	if !strings.HasSuffix(status.LockFilePath, "lecternd.lock") {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("daemon should report running after Start")
	}
	if status.APIAddress == "" {
		t.Fatal("expected a bound API address")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon should report stopped after Stop")
	}
}

func TestLockRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	defer first.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start second after first stopped: %v", err)
	}
	second.Stop()
}
