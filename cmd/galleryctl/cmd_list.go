package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gallery-backend/application/queries"
	"gallery-backend/domain/template"
	"gallery-backend/pkg/common"

	"github.com/spf13/cobra"
)

var (
	listQuery      string
	listCategories []string
	listPage       int
	listPageSize   int
	listJSON       bool
)

// listCmd browses the published catalog
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published templates",
	Long: `Searches the catalog the same way GET /api/templates does.

Examples:
  galleryctl list --q slack
  galleryctl list --category Marketing --category Productivity`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listQuery, "q", "", "Search text")
	listCmd.Flags().StringSliceVar(&listCategories, "category", nil, "Only these categories")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 50, "Templates per page")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(cmd)
	defer cancel()

	result, err := container.QueryBus.Ask(ctx, queries.ListTemplatesQuery{
		Query:      listQuery,
		Categories: listCategories,
		Pagination: common.PaginationParams{Page: listPage, PageSize: listPageSize},
	})
	if err != nil {
		return err
	}

	page := result.(*queries.ListTemplatesResult)
	if listJSON {
		return writeJSON(cmd.OutOrStdout(), page)
	}
	return printTemplates(cmd.OutOrStdout(), page.Templates)
}

func printTemplates(w io.Writer, templates []template.Template) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tCATEGORY\tAPPS\tCREATED")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Slug, t.Category, strings.Join(t.MakeApps, ","), t.CreatedAt)
	}
	return tw.Flush()
}
