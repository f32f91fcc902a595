// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package runtime

import (
	"path/filepath"
	"testing"
)

func TestResolve_Conjunction(t *testing.T) {
	tests := []struct {
		name    string
		desktop bool
		probe   func() bool
		want    Kind
	}{
		{"both true is desktop", true, func() bool { return true }, Desktop},
		{"desktop build without bridge is web", true, func() bool { return false }, Web},
		{"bridge without desktop build is web", false, func() bool { return true }, Web},
		{"neither is web", false, func() bool { return false }, Web},
		{"nil probe is web", true, nil, Web},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(Options{DesktopBuild: tt.desktop, BridgeProbe: tt.probe})
			if got != tt.want {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_NoSideEffects(t *testing.T) {
	calls := 0
	probe := func() bool { calls++; return true }

	// Resolve is pure: same inputs, same output, probe called per resolve.
	for i := 0; i < 3; i++ {
		if got := Resolve(Options{DesktopBuild: true, BridgeProbe: probe}); got != Desktop {
			t.Fatalf("Resolve = %v, want Desktop", got)
		}
	}
	if calls != 3 {
		t.Errorf("probe calls = %d, want 3", calls)
	}
}

func TestDirBridgeProbe(t *testing.T) {
	dir := t.TempDir()

	if !DirBridgeProbe(dir)() {
		t.Error("probe should succeed for existing directory")
	}
	if DirBridgeProbe(filepath.Join(dir, "missing"))() {
		t.Error("probe should fail for missing directory")
	}
	if DirBridgeProbe("")() {
		t.Error("probe should fail for empty path")
	}
}

func TestKind_String(t *testing.T) {
	if Desktop.String() != "desktop" {
		t.Errorf("Desktop.String() = %q", Desktop.String())
	}
	if Web.String() != "web" {
		t.Errorf("Web.String() = %q", Web.String())
	}
	if !Desktop.HasLocalBridge() || Web.HasLocalBridge() {
		t.Error("HasLocalBridge mismatch")
	}
}
