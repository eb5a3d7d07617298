package main

import (
	"encoding/json"
	"io"

	"gallery-backend/application/queries"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchEnhance bool

// fetchCmd prints the metadata the submit form would be prefilled with
var fetchCmd = &cobra.Command{
	Use:   "fetch [shared-scenario-url]",
	Short: "Fetch metadata for a shared Make.com scenario",
	Long: `Resolves a shared-scenario URL the same way POST /api/scrape does
and prints the result as JSON. No rate limit applies.

Example:
  galleryctl fetch https://eu2.make.com/public/shared-scenario/AbC123/sync-leads`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchEnhance, "enhance", false, "Also suggest a category")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(cmd)
	defer cancel()

	container.Logger.Debug("Fetching scenario", zap.String("url", args[0]))
	result, err := container.QueryBus.Ask(ctx, queries.FetchScenarioQuery{URL: args[0], Enhance: fetchEnhance})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
