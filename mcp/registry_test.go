package mcp

import (
	"testing"
	"time"
)

func TestRegisterServer(t *testing.T) {
	r := NewRegistry()
	tools := []Tool{{Name: "editor_status"}}

	if err := r.RegisterServer("default", tools); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RegisterServer("default", tools); err != ErrServerAlreadyRegistered {
		t.Fatalf("expected already-registered, got %v", err)
	}
	if !r.IsServerRegistered("default") {
		t.Fatal("server must be registered")
	}

	got, err := r.GetServerTools("default")
	if err != nil || len(got) != 1 || got[0].Name != "editor_status" {
		t.Fatalf("unexpected tools %v, err %v", got, err)
	}
	if _, err := r.GetServerTools("missing"); err != ErrServerNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCleanupSparesPersistentServers(t *testing.T) {
	r := NewRegistry()
	_ = r.RegisterServer("persistent", nil)
	_ = r.RegisterServer("transient", nil)
	_ = r.SetPersistence("persistent", true)

	// Both servers were last seen "now"; an expired timeout only removes
	// the non-persistent one.
	time.Sleep(2 * time.Millisecond)
	r.Cleanup(time.Millisecond)

	if !r.IsServerRegistered("persistent") {
		t.Fatal("persistent server must survive cleanup")
	}
	if r.IsServerRegistered("transient") {
		t.Fatal("transient server must be removed")
	}
}

func TestUpdateLastSeen(t *testing.T) {
	r := NewRegistry()
	if err := r.UpdateLastSeen("missing"); err != ErrServerNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
	_ = r.RegisterServer("default", nil)
	if err := r.UpdateLastSeen("default"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
