// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestArgParser_Flags(t *testing.T) {
	p := NewArgParser([]string{"chat", "helper", "--session", "s42", "--plain", "--theme=light"})

	if p.Subcommand() != "chat" {
		t.Errorf("Subcommand = %q", p.Subcommand())
	}
	if p.Positional(1) != "helper" {
		t.Errorf("Positional(1) = %q", p.Positional(1))
	}
	if got := p.String("session", ""); got != "s42" {
		t.Errorf("session = %q", got)
	}
	if got := p.String("theme", ""); got != "light" {
		t.Errorf("theme = %q", got)
	}
	if !p.Bool("plain") {
		t.Error("plain should be true")
	}
	if p.Bool("json") {
		t.Error("json should be false")
	}
}

func TestArgParser_Defaults(t *testing.T) {
	p := NewArgParser(nil)

	if p.Subcommand() != "" {
		t.Errorf("Subcommand = %q", p.Subcommand())
	}
	if got := p.String("missing", "fallback"); got != "fallback" {
		t.Errorf("String = %q", got)
	}
	if got := p.Int("missing", 7); got != 7 {
		t.Errorf("Int = %d", got)
	}
	if got := p.Positional(3); got != "" {
		t.Errorf("Positional = %q", got)
	}
}

func TestArgParser_Int(t *testing.T) {
	p := NewArgParser([]string{"--limit", "25", "--bad", "NaN"})

	if got := p.Int("limit", 0); got != 25 {
		t.Errorf("limit = %d", got)
	}
	if got := p.Int("bad", 9); got != 9 {
		t.Errorf("bad = %d, want fallback", got)
	}
}

func TestArgParser_Require(t *testing.T) {
	p := NewArgParser([]string{"--name", "Bot"})

	if v, err := p.Require("name"); err != nil || v != "Bot" {
		t.Errorf("Require(name) = %q, %v", v, err)
	}
	if _, err := p.Require("id"); err == nil {
		t.Error("Require(id) should fail")
	}
}

func TestArgParser_TrailingValuelessFlag(t *testing.T) {
	p := NewArgParser([]string{"--verbose"})

	if !p.Bool("verbose") {
		t.Error("trailing flag without value should parse as boolean")
	}
}
