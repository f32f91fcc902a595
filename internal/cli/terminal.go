// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin and stdout are both terminals.
// Pipes and CI get the plain REPL instead of the TUI.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the stdout width, or a conservative default.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// ReadPassword reads a passphrase without echo. Falls back to an error
// when stdin is not a terminal; passphrases are never read from pipes.
func ReadPassword(prompt string) (string, error) {
	os.Stdout.WriteString(prompt)
	defer os.Stdout.WriteString("\n")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
