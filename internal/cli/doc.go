// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the deeting command line surface: argument
// parsing, the non-TUI chat REPL, and the agent / key / config
// subcommands.
//
// The REPL exists for dumb terminals, pipes, and CI. It drives the same
// resolver and reconciler pipeline as the TUI, just with line-based
// input and plain text output.
package cli
