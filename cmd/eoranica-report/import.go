package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"eoranica/internal/config"
	"eoranica/internal/core"
	"eoranica/internal/ledgercsv"
)

type ledgerWriter interface {
	CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (int64, error)
}

func importLedgerCommand(logger *slog.Logger, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import-ledger <file.csv>",
		Short: "Imports ledger entries (amount,plot_id,description,date)",
		Long: "Imports ledger entries from a CSV file. A malformed file imports nothing.\n" +
			"Entries are stored one by one, so a failing write keeps the entries before it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, closeBackend, err := openBackend(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer closeBackend()

			n, err := importLedger(ctx, result.Farm, f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			logger.Info("Ledger imported", "file", args[0], "entries", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d ledger entries\n", n)
			return nil
		},
	}
}

// importLedger parses the whole file first, then stores entries in order.
// It returns how many entries were stored, also when a write fails midway.
func importLedger(ctx context.Context, store ledgerWriter, r io.Reader) (int, error) {
	entries, err := ledgercsv.Read(r)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if _, err := store.CreateLedgerEntry(ctx, e); err != nil {
			return i, fmt.Errorf("entry %d of %d (%d already imported): %w", i+1, len(entries), i, err)
		}
	}
	return len(entries), nil
}
