// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKV_SetGet(t *testing.T) {
	kv, err := OpenKV(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("OpenKV failed: %v", err)
	}

	if _, ok := kv.Get("session:a1"); ok {
		t.Error("empty store should have no keys")
	}

	if err := kv.Set("session:a1", "s42"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok := kv.Get("session:a1")
	if !ok || v != "s42" {
		t.Errorf("Get = %q, %v; want s42, true", v, ok)
	}
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	kv, err := OpenKV(path)
	if err != nil {
		t.Fatalf("OpenKV failed: %v", err)
	}
	if err := kv.Set("pref:streaming", "true"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	kv2, err := OpenKV(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	v, ok := kv2.Get("pref:streaming")
	if !ok || v != "true" {
		t.Errorf("Get after reopen = %q, %v", v, ok)
	}
}

func TestKV_Delete(t *testing.T) {
	kv, err := OpenKV(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("OpenKV failed: %v", err)
	}

	if err := kv.Delete("missing"); err != nil {
		t.Errorf("deleting absent key should be a no-op, got %v", err)
	}

	kv.Set("k", "v")
	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := kv.Get("k"); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestKV_CorruptFileIsReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	kv, err := OpenKV(path)
	if err != nil {
		t.Fatalf("OpenKV should tolerate corrupt file, got %v", err)
	}
	if len(kv.Keys()) != 0 {
		t.Errorf("corrupt store should start empty, got %v", kv.Keys())
	}

	// Writes work after reset.
	if err := kv.Set("k", "v"); err != nil {
		t.Fatalf("Set after reset failed: %v", err)
	}
}
