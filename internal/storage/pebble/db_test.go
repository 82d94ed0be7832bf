package pebblestore

import (
	"errors"
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Set([]byte("device/id"), []byte("abc")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("device/id"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("value mismatch: %q", got)
	}

	if err := db.Delete([]byte("device/id")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("device/id")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Get([]byte("nope")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValuesPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Set([]byte("session/current"), []byte(`{"id":"s1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := Open(Options{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	got, err := db2.Get([]byte("session/current"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != `{"id":"s1"}` {
		t.Fatalf("value lost across reopen: %q", got)
	}
}

func TestOpenRequiresDataDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error for empty DataDir")
	}
}
