// Command ingest is the Scoracle Sync CLI.
//
// Usage:
//
//	scoracle-ingest sync all
//	scoracle-ingest sync all --dry-run --season 23614
//	scoracle-ingest sync teams --season 23614
//	scoracle-ingest sync fixtures --from 2025-08-01 --to 2025-08-31
//	scoracle-ingest sync leagues --id 8
//	scoracle-ingest batches list --name seed-teams
//	scoracle-ingest batches items --id 42
//	scoracle-ingest schema apply
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-sync/internal/app"
	"github.com/albapepper/scoracle-sync/internal/config"
	"github.com/albapepper/scoracle-sync/internal/db"
	"github.com/albapepper/scoracle-sync/internal/pipeline"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

var (
	memoryMode bool
	jsonOutput bool
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "scoracle-ingest",
		Short:         "Scoracle SportMonks sync CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&memoryMode, "memory", false, "Use the in-memory store instead of Postgres")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(syncCmd())
	root.AddCommand(batchesCmd())
	root.AddCommand(schemaCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

type syncFlags struct {
	dryRun bool
	season string
	from   string
	to     string
}

func (f *syncFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Reconcile without writing")
	cmd.Flags().StringVar(&f.season, "season", "", "Season provider ids, comma separated (teams, fixtures)")
	cmd.Flags().StringVar(&f.from, "from", "", "Fixture window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Fixture window end (YYYY-MM-DD)")
}

func (f *syncFlags) window() (*time.Time, *time.Time, error) {
	from, err := parseDate("from", f.from)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate("to", f.to)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, errors.New("--to must not be before --from")
	}
	return from, to, nil
}

func (f *syncFlags) trigger() store.Trigger {
	if f.dryRun {
		return store.TriggerDryRun
	}
	return store.TriggerManual
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync SportMonks entities into the database",
	}
	cmd.AddCommand(syncAllCmd())
	for _, kind := range store.Kinds {
		cmd.AddCommand(syncKindCmd(kind))
	}
	return cmd
}

func syncAllCmd() *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run the full pipeline: countries, leagues, seasons, teams, fixtures, bookmakers",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := flags.window()
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				params := pipeline.Params{
					DryRun:   flags.dryRun,
					From:     from,
					To:       to,
					SeasonID: flags.season,
					Trigger:  flags.trigger(),
				}
				start := time.Now()
				results := a.Pipeline.Run(ctx, params, func(r pipeline.Result) {
					a.Logger.Info("Step finished",
						"step", r.Step, "status", r.Status,
						"ok", r.OK, "fail", r.Fail, "total", r.Total,
						"duration", r.Duration.Round(time.Millisecond))
				})
				if jsonOutput {
					if err := printJSON(results); err != nil {
						return err
					}
				}
				a.Logger.Info("Pipeline finished", "duration", time.Since(start).Round(time.Second))
				if pipeline.WasAborted(results) {
					last := results[len(results)-1]
					return fmt.Errorf("pipeline aborted at %s: %s", last.Step, deref(last.Error))
				}
				if pipeline.Failed(results) {
					return errors.New("pipeline finished with failed steps")
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func syncKindCmd(kind store.Kind) *cobra.Command {
	var (
		flags      syncFlags
		externalID string
	)
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Sync %s (batch %s)", kind, kind.BatchName()),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := flags.window()
			if err != nil {
				return err
			}
			scope := syncer.Scope{ExternalID: strings.TrimSpace(externalID)}
			switch kind {
			case store.KindFixtures:
				scope.SeasonExternalIDs = splitList(flags.season)
				scope.From, scope.To = from, to
			case store.KindTeams:
				scope.SeasonExternalIDs = splitList(flags.season)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				out, err := a.Pipeline.SyncOne(ctx, kind, scope, syncer.Options{
					DryRun:  flags.dryRun,
					Trigger: flags.trigger(),
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					if err := printJSON(out); err != nil {
						return err
					}
				} else {
					for _, r := range out.Results {
						if r.Error != "" {
							a.Logger.Warn("Record failed", "external_id", r.ExternalID, "name", r.Name, "status", r.Status, "error", r.Error)
						}
					}
				}
				a.Logger.Info("Sync finished",
					"kind", kind, "batch_id", out.BatchID, "dry_run", out.DryRun,
					"ok", out.OK, "fail", out.Fail, "total", out.Total,
					"duration", out.Duration.Round(time.Millisecond))
				if out.Fail > 0 {
					return fmt.Errorf("%d of %d %s failed", out.Fail, out.Total, kind)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&externalID, "id", "", "Sync a single record by provider id")
	return cmd
}

// --------------------------------------------------------------------------
// batches command
// --------------------------------------------------------------------------

func batchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Inspect sync batch audit records",
	}
	cmd.AddCommand(batchesListCmd())
	cmd.AddCommand(batchesItemsCmd())
	return cmd
}

func batchesListCmd() *cobra.Command {
	var (
		name  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				batches, err := a.Store.ListBatches(ctx, name, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(batches)
				}
				for _, b := range batches {
					a.Logger.Info("Batch",
						"id", b.ID, "name", b.Name, "status", b.Status, "trigger", b.Trigger,
						"started_at", b.StartedAt.Format(time.RFC3339),
						"total", b.ItemsTotal, "success", b.ItemsSuccess, "failed", b.ItemsFailed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Filter by batch name, e.g. seed-teams")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to list")
	return cmd
}

func batchesItemsCmd() *cobra.Command {
	var (
		batchID int64
		page    int
		perPage int
		failed  bool
	)
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the items of one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchID <= 0 {
				return errors.New("--id is required")
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				items, total, err := a.Store.ListBatchItems(ctx, batchID, store.ListOptions{Page: page, PerPage: perPage})
				if err != nil {
					return err
				}
				if failed {
					kept := items[:0]
					for _, it := range items {
						if it.Status == store.ItemFailed {
							kept = append(kept, it)
						}
					}
					items = kept
				}
				if jsonOutput {
					return printJSON(items)
				}
				for _, it := range items {
					a.Logger.Info("Item", "key", it.ItemKey, "status", it.Status, "error", deref(it.ErrorMessage))
				}
				a.Logger.Info("Batch items", "batch_id", batchID, "shown", len(items), "total", total)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&batchID, "id", 0, "Batch id")
	cmd.Flags().IntVar(&page, "page", 1, "Page (1-based)")
	cmd.Flags().IntVar(&perPage, "per-page", 100, "Items per page")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only show failed items on the page")
	return cmd
}

// --------------------------------------------------------------------------
// schema command
// --------------------------------------------------------------------------

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Apply the embedded schema (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer conn.Close(context.Background())
			if err := db.ApplySchema(ctx, conn); err != nil {
				return err
			}
			cfg.NewLogger(os.Stdout).Info("Schema applied")
			return nil
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withApp handles config loading, wiring and context cancellation.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	a, err := app.Build(ctx, cfg, logger, app.Options{Memory: memoryMode})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDate(name, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("--%s must be YYYY-MM-DD or RFC 3339, got %q", name, v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
