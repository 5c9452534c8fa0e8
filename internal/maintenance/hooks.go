package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/store"
)

// Execer is the slice of *pgxpool.Pool the hooks need.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var analyzeTables = map[store.Kind]string{
	store.KindCountries:  "countries",
	store.KindLeagues:    "leagues",
	store.KindSeasons:    "seasons",
	store.KindTeams:      "teams",
	store.KindFixtures:   "fixtures",
	store.KindBookmakers: "bookmakers",
}

// AnalyzeHook refreshes planner statistics for every table a sync wrote to.
// Subscribe it to the events bus; dry runs and no-op syncs are ignored.
func AnalyzeHook(db Execer, logger *slog.Logger) events.Handler {
	return func(ctx context.Context, ev events.SyncCompleted) {
		_ = AnalyzeTables(ctx, db, ev.Changed(), logger)
	}
}

// AnalyzeTables runs ANALYZE on the tables backing kinds.
func AnalyzeTables(ctx context.Context, db Execer, kinds []store.Kind, logger *slog.Logger) error {
	for _, k := range kinds {
		table, ok := analyzeTables[k]
		if !ok {
			continue
		}
		start := time.Now()
		_, err := db.Exec(ctx, "ANALYZE "+table)
		dur := time.Since(start).Round(time.Millisecond)

		if err != nil {
			logger.Warn("Failed to analyze table",
				"table", table, "duration", dur, "error", err)
			return fmt.Errorf("analyze %s: %w", table, err)
		}
		logger.Debug("Analyzed table", "table", table, "duration", dur)
	}
	return nil
}
