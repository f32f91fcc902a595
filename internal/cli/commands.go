// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/config"
	"github.com/deeting/chatkit/internal/export"
	"github.com/deeting/chatkit/internal/history"
	"github.com/deeting/chatkit/internal/keys"
	"github.com/deeting/chatkit/internal/storage"
	"github.com/deeting/chatkit/internal/util"
)

// =============================================================================
// AGENTS COMMAND
// =============================================================================

// RunAgents handles `deeting agents <list|add|show|remove>` against the
// local store.
func RunAgents(args *ArgParser, store *storage.Store) error {
	switch args.Subcommand() {
	case "", "list":
		return listAgents(store)
	case "add":
		return addAgent(args, store)
	case "show":
		return showAgent(args, store)
	case "remove":
		return removeAgent(args, store)
	default:
		return fmt.Errorf("unknown agents subcommand %q (want list, add, show, remove)", args.Subcommand())
	}
}

func listAgents(store *storage.Store) error {
	agents, err := store.ListAgents()
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents yet. Create one with: deeting agents add --id <id> --name <name>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, a := range agents {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Name, util.TruncateRunes(a.Description, 60))
	}
	return w.Flush()
}

func addAgent(args *ArgParser, store *storage.Store) error {
	name, err := args.Require("name")
	if err != nil {
		return err
	}
	a := &storage.StoredAgent{
		ID:           args.String("id", ""),
		Name:         name,
		Description:  args.String("description", ""),
		SystemPrompt: args.String("prompt", ""),
		IconID:       args.String("icon", ""),
		Color:        args.String("color", ""),
	}
	if err := store.SaveAgent(a); err != nil {
		return err
	}
	fmt.Printf("Created agent %s (%s)\n", a.Name, a.ID)
	return nil
}

func showAgent(args *ArgParser, store *storage.Store) error {
	id := args.Positional(1)
	if id == "" {
		return errors.New("usage: deeting agents show <id>")
	}
	a, err := store.GetAgent(id)
	if err != nil {
		return err
	}
	fmt.Printf("ID:          %s\n", a.ID)
	fmt.Printf("Name:        %s\n", a.Name)
	fmt.Printf("Description: %s\n", a.Description)
	fmt.Printf("Prompt:      %s\n", util.TruncateRunes(a.SystemPrompt, 200))
	fmt.Printf("Created:     %s\n", a.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}

func removeAgent(args *ArgParser, store *storage.Store) error {
	id := args.Positional(1)
	if id == "" {
		return errors.New("usage: deeting agents remove <id>")
	}
	if err := store.DeleteAgent(id); err != nil {
		return err
	}
	fmt.Printf("Removed agent %s\n", id)
	return nil
}

// =============================================================================
// KEYS COMMAND
// =============================================================================

// RunKeys handles `deeting keys <list|set|get|remove>` against the
// encrypted vault. The passphrase is always read from the terminal.
func RunKeys(args *ArgParser) error {
	path, err := keys.DefaultPath()
	if err != nil {
		return err
	}
	passphrase, err := ReadPassword("Vault passphrase: ")
	if err != nil {
		return fmt.Errorf("could not read passphrase: %w", err)
	}
	vault, err := keys.Open(path, passphrase)
	if err != nil {
		return err
	}

	switch args.Subcommand() {
	case "", "list":
		names := vault.Names()
		if len(names) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil

	case "set":
		name := args.Positional(1)
		if name == "" {
			return errors.New("usage: deeting keys set <name>")
		}
		secret, err := ReadPassword(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			return err
		}
		if err := vault.Set(name, secret); err != nil {
			return err
		}
		fmt.Printf("Stored %s\n", name)
		return nil

	case "get":
		name := args.Positional(1)
		if name == "" {
			return errors.New("usage: deeting keys get <name>")
		}
		secret, err := vault.Get(name)
		if err != nil {
			return err
		}
		fmt.Println(secret)
		return nil

	case "remove":
		name := args.Positional(1)
		if name == "" {
			return errors.New("usage: deeting keys remove <name>")
		}
		if err := vault.Delete(name); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", name)
		return nil

	default:
		return fmt.Errorf("unknown keys subcommand %q (want list, set, get, remove)", args.Subcommand())
	}
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

// RunExport writes an agent's locally stored transcript to a file.
func RunExport(args *ArgParser, store *storage.Store) error {
	id := args.Positional(1)
	if id == "" {
		return errors.New("usage: deeting export <agent-id> [--format markdown|json] [--out <dir>]")
	}

	stored, err := store.GetAgent(id)
	if err != nil {
		return err
	}
	records, err := store.ListMessages(id)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no local history for agent %q", id)
	}

	msgs := make([]history.Message, 0, len(records))
	for _, rec := range records {
		role := history.RoleUser
		if rec.Role == string(history.RoleAssistant) {
			role = history.RoleAssistant
		}
		msgs = append(msgs, history.Message{
			ID:        rec.ID,
			Role:      role,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
		})
	}

	opts := &export.Options{
		OutputDir:         args.String("out", "."),
		IncludeTimestamps: true,
	}
	exporter, err := export.ByFormat(args.String("format", "markdown"), opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(&export.Transcript{
		Agent:      agent.FromStored(*stored),
		Messages:   msgs,
		ExportedAt: time.Now(),
	}, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// RunConfig handles `deeting config <show|path|init>`.
func RunConfig(args *ArgParser, cfg *config.Config) error {
	switch args.Subcommand() {
	case "", "show":
		fmt.Println(cfg.String())
		return nil

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "init":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (want show, path, init)", args.Subcommand())
	}
}
