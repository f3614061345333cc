package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/store"
)

var (
	snapshotsSource string
	snapshotsLimit  int
	pruneDays       int
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect and prune stored snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snaps, err := st.ListSnapshots(ctx, store.SnapshotFilter{
			Source: snapshotsSource,
			Limit:  snapshotsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "snapshots: list")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tROWS\tFETCHED")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				s.ID, s.Source, s.RowCount, s.FetchedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots and expired cached results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cutoff := time.Now().AddDate(0, 0, -pruneDays)
		deleted, err := st.DeleteSnapshotsBefore(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "snapshots: prune")
		}

		expired, err := st.DeleteExpiredResults(ctx)
		if err != nil {
			return eris.Wrap(err, "snapshots: expire results")
		}

		zap.L().Info("prune complete",
			zap.Int("snapshots", deleted),
			zap.Int("cached_results", expired),
		)
		fmt.Printf("deleted %d snapshots, %d expired results\n", deleted, expired)
		return nil
	},
}

func init() {
	snapshotsListCmd.Flags().StringVar(&snapshotsSource, "source", "", "filter by source label")
	snapshotsListCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "maximum snapshots to list")
	snapshotsPruneCmd.Flags().IntVar(&pruneDays, "days", 30, "delete snapshots older than this many days")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
