// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runtime resolves which environment the Deeting client is running
// in: a desktop install with a local persistence bridge, or a plain web-style
// deployment that only has the remote service.
//
// The resolution is a pure conjunction: the build must target desktop AND
// the local bridge must actually be reachable. A desktop-flagged build
// started somewhere without the bridge (a dev checkout, a stripped
// container) degrades to Web so nothing ever calls an unavailable bridge.
//
// Resolve is side-effect free and total; call it once at startup and pass
// the Kind down. It never touches process globals that may be absent.
package runtime
