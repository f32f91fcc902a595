// deeting - terminal client for the Deeting chat service.
//
// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deeting/chatkit/internal/agent"
	"github.com/deeting/chatkit/internal/cli"
	"github.com/deeting/chatkit/internal/config"
	"github.com/deeting/chatkit/internal/history"
	"github.com/deeting/chatkit/internal/keys"
	"github.com/deeting/chatkit/internal/remote"
	"github.com/deeting/chatkit/internal/runtime"
	"github.com/deeting/chatkit/internal/session"
	"github.com/deeting/chatkit/internal/storage"
	"github.com/deeting/chatkit/internal/ui/chat"
)

const version = "0.4.0"

const usage = `deeting - chat with your agents from the terminal

Usage:
  deeting [chat] <agent-id> [--session <id>] [--plain] [--no-stream]
  deeting agents <list|add|show|remove> [flags]
  deeting export <agent-id> [--format markdown|json] [--out <dir>]
  deeting keys <list|set|get|remove> [name]
  deeting config <show|path|init>

Flags:
  --session <id>   Resume a specific conversation
  --plain          Line-based REPL instead of the full-screen UI
  --no-stream      Wait for complete replies instead of streaming
  --version        Print version and exit
  --help           Show this help
`

func main() {
	args := cli.NewArgParser(os.Args[1:])

	if args.Bool("version") {
		fmt.Printf("deeting %s\n", version)
		return
	}
	if args.Bool("help") {
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		// A broken config file should not brick the binary.
		log.Printf("config load failed, using defaults: %v", err)
		cfg = config.Default()
	}
	config.SetGlobal(cfg)

	if err := run(args, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "deeting: %v\n", err)
		os.Exit(1)
	}
}

func run(args *cli.ArgParser, cfg *config.Config) error {
	switch args.Subcommand() {
	case "agents":
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		// Shift off the "agents" token so the handler sees its own verb.
		return cli.RunAgents(cli.NewArgParser(os.Args[2:]), store)

	case "export":
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return cli.RunExport(cli.NewArgParser(os.Args[1:]), store)

	case "keys":
		return cli.RunKeys(cli.NewArgParser(os.Args[2:]))

	case "config":
		return cli.RunConfig(cli.NewArgParser(os.Args[2:]), cfg)

	default:
		return runChat(args, cfg)
	}
}

// =============================================================================
// CHAT WIRING
// =============================================================================

func runChat(args *cli.ArgParser, cfg *config.Config) error {
	agentID := chatAgentID(args, cfg)
	if agentID == "" {
		fmt.Print(usage)
		return fmt.Errorf("no agent given and no default_agent configured")
	}

	kind := runtime.Resolve(runtime.Options{
		DesktopBuild: cfg.Runtime.DesktopBuild || args.Bool("desktop"),
		BridgeProbe:  runtime.DirBridgeProbe(bridgeDir(cfg)),
	})

	kvPath := cfg.Storage.KVPath
	if kvPath == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		kvPath = filepath.Join(dir, "profile.json")
	}
	kv, err := storage.OpenKV(kvPath)
	if err != nil {
		return err
	}
	tracker := session.NewTracker(kv)

	client := buildClient(cfg)

	var (
		store  *storage.Store
		source agent.Source
		bridge history.Bridge
	)
	if kind == runtime.Desktop {
		store, err = openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		source = agent.NewLocalSource(agent.NewRegistry(store))
		bridge = store
	} else {
		source = agent.NewRemoteSource(client)
	}
	resolver := agent.NewResolver(source)

	histStore := history.NewStore()
	reconciler := history.NewReconciler(histStore, tracker, kind)
	if bridge != nil {
		reconciler = reconciler.WithBridge(bridge)
	}
	if kind == runtime.Web {
		reconciler = reconciler.WithRemote(client)
	}

	redirect := agent.RedirectPolicy{
		Desktop: cfg.Runtime.RedirectOnMissingDesktop,
		Web:     cfg.Runtime.RedirectOnMissingWeb,
	}

	if args.Bool("no-stream") {
		tracker.SetStreaming(false)
	}

	// Live config reload keeps long-running sessions current.
	if path, err := config.ConfigPathTOML(); err == nil {
		if watcher, err := config.Watch(path, config.SetGlobal); err == nil {
			defer watcher.Close()
		}
	}

	sessionID := args.String("session", "")
	ctx := context.Background()

	if cli.IsInteractive() && !args.Bool("plain") {
		model := chat.New(chat.Options{
			AgentID:    agentID,
			SessionID:  sessionID,
			Kind:       kind,
			Resolver:   resolver,
			Reconciler: reconciler,
			Store:      histStore,
			Tracker:    tracker,
			Sender:     client,
			Bridge:     bridge,
			Redirect:   redirect,
			Markdown:   cfg.UI.Markdown,
		})
		_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	}

	return cli.RunRepl(ctx, cli.ReplOptions{
		AgentID:    agentID,
		SessionID:  sessionID,
		Kind:       kind,
		Resolver:   resolver,
		Reconciler: reconciler,
		Store:      histStore,
		Tracker:    tracker,
		Sender:     client,
		Bridge:     bridge,
		Streaming:  tracker.Streaming(),
	})
}

// chatAgentID picks the agent from the command line, falling back to the
// configured default.
func chatAgentID(args *cli.ArgParser, cfg *config.Config) string {
	if args.Subcommand() == "chat" {
		if id := args.Positional(1); id != "" {
			return id
		}
	} else if id := args.Positional(0); id != "" {
		return id
	}
	return cfg.DefaultAgent
}

// bridgeDir is where a desktop install keeps its local data. The installer
// creates it; a bare web build never has one.
func bridgeDir(cfg *config.Config) string {
	if cfg.Runtime.BridgeDir != "" {
		return cfg.Runtime.BridgeDir
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bridge")
}

// buildClient assembles the API client from config, pulling the key from
// the encrypted vault when the config and environment leave it unset.
func buildClient(cfg *config.Config) *remote.Client {
	apiKey := cfg.Remote.APIKey
	if apiKey == "" {
		apiKey = vaultAPIKey()
	}

	client := remote.NewClient(apiKey).
		WithMaxRetries(cfg.Remote.MaxRetries).
		WithTimeout(time.Duration(cfg.Remote.TimeoutSecs) * time.Second)
	if cfg.Remote.BaseURL != "" {
		client = client.WithBaseURL(cfg.Remote.BaseURL)
	}
	if cfg.Remote.RequestsPerSecond > 0 {
		client = client.WithRateLimit(cfg.Remote.RequestsPerSecond, int(cfg.Remote.RequestsPerSecond)+1)
	}
	return client
}

// vaultAPIKey tries the encrypted vault for an "api_key" entry. Only worth
// prompting for when the vault exists and we have a terminal to ask on.
func vaultAPIKey() string {
	path, err := keys.DefaultPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	if !cli.IsInteractive() {
		return ""
	}
	passphrase, err := cli.ReadPassword("Vault passphrase: ")
	if err != nil {
		return ""
	}
	vault, err := keys.Open(path, passphrase)
	if err != nil {
		log.Printf("vault open failed: %v", err)
		return ""
	}
	key, err := vault.Get("api_key")
	if err != nil {
		return ""
	}
	return key
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	path := cfg.Storage.DBPath
	if path == "" {
		var err error
		path, err = storage.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}
