package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	vacuumInto string
	skipVacuum bool
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Check, analyze and compact the catalog database",
	Long: `Runs PRAGMA integrity_check, refreshes query planner statistics and
compacts the database. With --vacuum-into the compacted copy is written to a
new file instead, which also works on a read-only database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Path == "" || cfg.Database.Path == ":memory:" {
			return fmt.Errorf("maintain needs a file-backed database (--db)")
		}
		store, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		out := cmd.OutOrStdout()

		results, err := store.IntegrityCheck()
		if err != nil {
			return err
		}
		if len(results) != 1 || results[0] != "ok" {
			return fmt.Errorf("integrity check failed: %s", strings.Join(results, "; "))
		}
		fmt.Fprintln(out, "integrity: ok")

		if !store.ReadOnly() {
			if err := store.Analyze(); err != nil {
				return err
			}
			logger.Debug("analyze finished")
		}
		if !skipVacuum && (vacuumInto != "" || !store.ReadOnly()) {
			if err := store.Vacuum(vacuumInto); err != nil {
				return err
			}
			logger.Info("vacuum finished", zap.String("into", vacuumInto))
		}

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s shows, %s people, %s scan runs, %s\n",
			humanize.Comma(int64(stats.Shows)),
			humanize.Comma(int64(stats.People)),
			humanize.Comma(int64(stats.ScanRuns)),
			humanize.IBytes(uint64(stats.SizeBytes)),
		)
		return nil
	},
}

func init() {
	maintainCmd.Flags().StringVar(&vacuumInto, "vacuum-into", "", "Write a compacted copy to this path instead of vacuuming in place")
	maintainCmd.Flags().BoolVar(&skipVacuum, "no-vacuum", false, "Skip compaction")
	rootCmd.AddCommand(maintainCmd)
}
