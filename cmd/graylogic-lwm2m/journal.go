package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lwm2m/internal/journal"
	"github.com/nerrad567/gray-logic-lwm2m/migrations"
)

func newJournalCmd(configPath *string) *cobra.Command {
	var (
		filter journal.Filter
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent server operations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled {
				return fmt.Errorf("operation journal is disabled (database.enabled)")
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(cmd.Context(), migrations.FS, migrations.Dir); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			res, err := journal.NewSQLiteRepository(db.DB, cfg.Client.Endpoint).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			for _, e := range res.Entries {
				fmt.Fprintf(out, "%s  %-8s %-16s %-8s %s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Operation, e.Path, e.Outcome, e.Detail)
			}
			fmt.Fprintf(out, "%d of %d entries\n", len(res.Entries), res.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Operation, "op", "", "only this operation (write, execute, create, delete)")
	f.StringVar(&filter.Path, "path", "", `exact path, or a prefix ending in "/"`)
	f.StringVar(&filter.Outcome, "outcome", "", "only this outcome (ok, rejected, failed)")
	f.IntVar(&filter.Limit, "limit", 50, "maximum entries")
	f.IntVar(&filter.Offset, "offset", 0, "entries to skip")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
