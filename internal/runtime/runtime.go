// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package runtime

import "os"

// =============================================================================
// RUNTIME KIND
// =============================================================================

// Kind identifies the runtime environment of the client process.
// It is resolved once at startup and immutable for the process lifetime.
type Kind int

const (
	// Web is the default: no local bridge, remote service only.
	Web Kind = iota

	// Desktop has a local persistence bridge for agents and history.
	Desktop
)

// String returns the runtime kind name.
func (k Kind) String() string {
	if k == Desktop {
		return "desktop"
	}
	return "web"
}

// HasLocalBridge reports whether this runtime may use the local store.
func (k Kind) HasLocalBridge() bool {
	return k == Desktop
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Options configures runtime resolution.
type Options struct {
	// DesktopBuild is the build-time flag: this binary was built/configured
	// as a desktop install.
	DesktopBuild bool

	// BridgeProbe reports whether the local bridge is actually reachable
	// at runtime. A nil probe counts as "not reachable".
	BridgeProbe func() bool
}

// Resolve determines the runtime kind. Desktop requires BOTH the build flag
// and a successful bridge probe; everything else is Web. No side effects,
// no failure mode.
func Resolve(opts Options) Kind {
	if !opts.DesktopBuild {
		return Web
	}
	if opts.BridgeProbe == nil || !opts.BridgeProbe() {
		return Web
	}
	return Desktop
}

// DirBridgeProbe returns a probe that reports whether the bridge data
// directory exists. This is the default probe for desktop installs, where
// the installer creates the profile directory.
func DirBridgeProbe(dir string) func() bool {
	return func() bool {
		if dir == "" {
			return false
		}
		info, err := os.Stat(dir)
		return err == nil && info.IsDir()
	}
}
