package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gallerysync "gallery-backend/application/sync"

	"github.com/spf13/cobra"
)

// syncCmd runs one mirror reconciliation
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy new and changed templates into the mirror",
	Long: `Compares the templates document with the relational mirror and upserts
every record whose content changed. The API server runs the same job on
MIRROR_SYNC_SCHEDULE.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	if container.Reconciler == nil {
		return errors.New("no mirror configured; set MIRROR_DRIVER")
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	report, err := container.Reconciler.Reconcile(ctx)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func printReport(w io.Writer, r *gallerysync.Report) {
	fmt.Fprintf(w, "run %s: %d documents, %d upserted, %d unchanged, %d failed in %s\n",
		r.RunID, r.Documents, r.Upserted, r.Unchanged, r.Failed, r.Duration.Round(time.Millisecond))
	if len(r.FailedIDs) > 0 {
		fmt.Fprintf(w, "failed: %s\n", strings.Join(r.FailedIDs, ", "))
	}
}
