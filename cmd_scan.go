package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/treefix50/showroom/internal/catalog"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the library once and store the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		lib, err := openLibrary(cfg, store, logger)
		if err != nil {
			return err
		}
		result, scanErr := lib.Scan(cmd.Context())
		printScanResult(cmd.OutOrStdout(), lib.Root(), result)
		return scanErr
	},
}

func printScanResult(w io.Writer, root string, r catalog.ScanResult) {
	fmt.Fprintf(w, "scanned %s in %s\n", root, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s shows found, %s saved, %s removed\n",
		humanize.Comma(int64(r.Found)),
		humanize.Comma(int64(r.Saved)),
		humanize.Comma(int64(r.Removed)),
	)
}
