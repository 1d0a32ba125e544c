/*
main.go - regctl, the one-shot operator CLI

PURPOSE:
  Runs any registered engine operation directly against a local document
  directory, without a running server. Useful for operators preparing or
  inspecting a data directory, scripting updates, and smoke-testing rule
  documents before deployment.

COMMANDS:
  regctl ops                          List registered operations
  regctl run <operation> [--input]    Dispatch any operation with a JSON body
  regctl status                       Per-regulation version report
  regctl search <query> [--top]       Ranked knowledge search
  regctl update <id> --file doc.json  Replace a rule document
  regctl rollback <id>                Restore the latest backup
  regctl seed                         Write canonical documents to an empty dir

OUTPUT:
  Human-readable by default; --json prints the raw response.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaalgrid/regulation-engine/config"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/store/sqlite"
	"github.com/vaalgrid/regulation-engine/tools"
)

var (
	flagConfig string
	flagData   string
	flagJSON   bool
	flagActor  string
)

// newRegistry loads the store from the configured data directory and
// wires the operations registry over it. The audit log is opened only
// when the config names one, so read-only commands work against a bare
// document directory.
func newRegistry(ctx context.Context, withAudit bool) (*tools.Registry, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagData != "" {
		cfg.DataDir = flagData
	}
	taxRate, err := cfg.TaxRate()
	if err != nil {
		return nil, nil, err
	}

	// Quiet by default; operators asked for a report, not a server log.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	opts := regstore.Options{
		DataDir:      cfg.DataDir,
		BackupDir:    cfg.BackupDir,
		HistoryDepth: cfg.HistoryDepth,
		Logger:       log,
	}

	cleanup := func() {}
	if withAudit && cfg.AuditDB != "" {
		audit, err := sqlite.Open(cfg.AuditDB)
		if err != nil {
			return nil, nil, err
		}
		opts.Audit = audit
		cleanup = func() { audit.Close() }
	}

	store, err := regstore.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := store.Load(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	engine := &tools.Engine{Store: store, TaxRate: taxRate}
	return tools.NewRegistry(engine), cleanup, nil
}

func dispatch(name string, req any, withAudit bool) error {
	ctx := context.Background()
	if flagActor != "" {
		ctx = regstore.WithActor(ctx, flagActor)
	}

	registry, cleanup, err := newRegistry(ctx, withAudit)
	if err != nil {
		return err
	}
	defer cleanup()

	var raw json.RawMessage
	if req != nil {
		raw, err = json.Marshal(req)
		if err != nil {
			return err
		}
	}

	resp, err := registry.Dispatch(ctx, name, raw)
	if err != nil {
		return err
	}
	return print(resp)
}

func print(resp any) error {
	if flagJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(tools.Render(resp))
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "regctl",
		Short: "operate on a regulation engine document directory",
		Long: `regctl runs engine operations directly against a local document
directory, without a running server.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file path")
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "regulation document directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print raw JSON responses")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "identity recorded in the audit log for updates")

	opsCmd := &cobra.Command{
		Use:   "ops",
		Short: "list registered operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, cleanup, err := newRegistry(context.Background(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			for _, op := range registry.Operations() {
				fmt.Printf("%-32s %s\n", op.Name, op.Description)
			}
			return nil
		},
	}

	var runInput string
	runCmd := &cobra.Command{
		Use:   "run <operation>",
		Short: "dispatch any operation with a JSON request body",
		Long: `Dispatches a registered operation. The request body comes from
--input, or from a file with --input @path, or defaults to empty.

Examples:
  regctl run regulation_status
  regctl run business_impact --input '{"sector":"retail","stage":4}'
  regctl run compute_learnership_allowance --input @learners.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if runInput != "" {
				if runInput[0] == '@' {
					data, err := os.ReadFile(runInput[1:])
					if err != nil {
						return err
					}
					raw = data
				} else {
					raw = []byte(runInput)
				}
			}

			ctx := context.Background()
			if flagActor != "" {
				ctx = regstore.WithActor(ctx, flagActor)
			}
			registry, cleanup, err := newRegistry(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := registry.Dispatch(ctx, args[0], raw)
			if err != nil {
				return err
			}
			return print(resp)
		},
	}
	runCmd.Flags().StringVar(&runInput, "input", "", "JSON request body, or @file")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "report status and version for every regulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch("regulation_status", nil, false)
		},
	}

	var searchTop int
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "search the regulation knowledge index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch("search_regulations", tools.SearchRequest{Query: args[0], TopN: searchTop}, false)
		},
	}
	searchCmd.Flags().IntVar(&searchTop, "top", 3, "number of results")

	var updateFile string
	updateCmd := &cobra.Command{
		Use:   "update <regulation-id>",
		Short: "replace a regulation's rule document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if updateFile == "" {
				return fmt.Errorf("--file is required")
			}
			doc, err := os.ReadFile(updateFile)
			if err != nil {
				return err
			}
			return dispatch("update_regulation", tools.UpdateRequest{
				RegulationID: args[0],
				Document:     doc,
			}, true)
		},
	}
	updateCmd.Flags().StringVar(&updateFile, "file", "", "replacement document (JSON)")

	rollbackCmd := &cobra.Command{
		Use:   "rollback <regulation-id>",
		Short: "restore a regulation's most recently backed-up version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch("rollback_regulation", tools.RollbackRequest{RegulationID: args[0]}, true)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "write the canonical documents into an empty data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if flagData != "" {
				cfg.DataDir = flagData
			}
			written, err := regstore.Seed(cfg.DataDir)
			if err != nil {
				return err
			}
			if written == 0 {
				fmt.Println("Data directory already holds documents; nothing written.")
				return nil
			}
			fmt.Printf("Seeded %d documents into %s\n", written, cfg.DataDir)
			return nil
		},
	}

	rootCmd.AddCommand(opsCmd, runCmd, statusCmd, searchCmd, updateCmd, rollbackCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "regctl: %s\n", err)
		os.Exit(1)
	}
}
