// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser provides unified argument parsing for the subcommands. It
// handles multiple flag formats consistently:
//   - Long flags: --flag value or --flag=value
//   - Boolean flags: --flag (no value needed)
//   - Positional arguments: arguments without flags
//   - Subcommands: first positional argument
type ArgParser struct {
	subcommand string
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// boolFlagNames are flags that never take a value. Anything else with a
// following non-flag token consumes it as its value.
var boolFlagNames = map[string]bool{
	"plain":     true,
	"desktop":   true,
	"json":      true,
	"no-stream": true,
	"help":      true,
	"version":   true,
}

// NewArgParser parses raw arguments.
func NewArgParser(args []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if name == "" {
			continue
		}

		if key, value, found := strings.Cut(name, "="); found {
			p.flags[key] = value
			continue
		}

		if boolFlagNames[name] {
			p.boolFlags[name] = true
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			p.flags[name] = args[i+1]
			i++
		} else {
			p.boolFlags[name] = true
		}
	}

	if len(p.positional) > 0 {
		p.subcommand = p.positional[0]
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// String returns a string flag value, or fallback when absent.
func (p *ArgParser) String(name, fallback string) string {
	if v, ok := p.flags[name]; ok {
		return v
	}
	return fallback
}

// Int returns an integer flag value, or fallback when absent or invalid.
func (p *ArgParser) Int(name string, fallback int) int {
	v, ok := p.flags[name]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Bool reports whether a boolean flag was given.
func (p *ArgParser) Bool(name string) bool {
	if p.boolFlags[name] {
		return true
	}
	v, ok := p.flags[name]
	return ok && (v == "1" || strings.EqualFold(v, "true"))
}

// Require returns the flag value or an error naming the flag.
func (p *ArgParser) Require(name string) (string, error) {
	if v, ok := p.flags[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("missing required flag --%s", name)
}
