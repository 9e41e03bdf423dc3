package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/export"
	"github.com/sourcingdenis/devfinder/pkg/search"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		language  string
		locations []string
		hireable  bool
		sortBy    string
		order     string
		page      int
		perPage   int
		all       bool
		countOnly bool
		csvPath   string
		jsonPath  string
		noCache   bool
		saveName  string
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search GitHub for developers",
		Long: `Search GitHub users with filters and enriched results.

Each result is enriched with profile details, the user's most-used
language, and a contact email discovered from their profile or public
commit history. Guessed addresses are shown dimmed.

Examples:
  devfinder search jane --language rust --location berlin
  devfinder search --language go --hireable --sort followers
  devfinder search maintainer --all --csv results.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			sess, err := loadSession(ctx)
			if err != nil {
				return err
			}

			if perPage == 0 {
				perPage = cfg.Search.PerPage
			}
			filter := search.Filter{
				Text:      strings.Join(args, " "),
				Language:  language,
				Locations: locations,
				Hireable:  hireable,
				Sort:      sortBy,
				Order:     order,
				Page:      page,
				PerPage:   perPage,
			}
			if err := errors.ValidateQueryText(filter.Text); err != nil {
				return err
			}

			backends, err := openBackends(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer backends.close(ctx)

			if saveName != "" {
				if _, err := backends.lists.SaveSearch(ctx, sess.UserID(), saveName, filter); err != nil {
					return fmt.Errorf("save search: %w", err)
				}
				printSuccess("Saved search %q", saveName)
			}

			fetcher, err := c.newFetcher(cfg, sess, backends.emails, noCache)
			if err != nil {
				return fmt.Errorf("init fetcher: %w", err)
			}

			if countOnly {
				total, err := fetcher.FetchTotalCount(ctx, filter)
				if err != nil {
					return describeSearchError(err)
				}
				fmt.Println(total)
				return nil
			}

			prog := newProgress(c.Logger)
			spinner := newSpinnerWithContext(ctx, "Searching...")
			spinner.Start()

			var result *search.Page
			if all {
				result, err = fetcher.FetchAllPages(ctx, filter)
			} else {
				result, err = fetcher.FetchPage(ctx, filter)
			}
			if err != nil {
				spinner.StopWithError("Search failed")
				return describeSearchError(err)
			}
			spinner.Stop()
			prog.done(fmt.Sprintf("Fetched %d profiles", len(result.Records)))

			if csvPath != "" {
				if err := export.ExportCSV(result.Records, csvPath); err != nil {
					return fmt.Errorf("write csv: %w", err)
				}
				printSuccess("Exported %d profiles", len(result.Records))
				printFile(csvPath)
				return nil
			}
			if jsonPath != "" {
				if err := export.ExportJSON(result, jsonPath); err != nil {
					return fmt.Errorf("write json: %w", err)
				}
				printSuccess("Exported %d profiles", len(result.Records))
				printFile(jsonPath)
				return nil
			}

			printResultHeader()
			for _, rec := range result.Records {
				printRecord(rec)
			}
			printPageSummary(result, len(result.Records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "filter by repository language")
	cmd.Flags().StringSliceVar(&locations, "location", nil, "filter by location (repeatable)")
	cmd.Flags().BoolVar(&hireable, "hireable", false, "only users flagged as hireable")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort field (followers, repositories, joined)")
	cmd.Flags().StringVar(&order, "order", "", "sort order (asc, desc)")
	cmd.Flags().IntVar(&page, "page", 0, "result page (1-based)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "results per page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch all pages (up to the search result window)")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the total result count")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write results to a CSV file")
	cmd.Flags().StringVar(&jsonPath, "json", "", "write results to a JSON file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the page cache")
	cmd.Flags().StringVar(&saveName, "save", "", "save this search under a name for replay")

	return cmd
}

// describeSearchError turns coded search errors into friendlier CLI messages.
func describeSearchError(err error) error {
	if resetAt, ok := errors.IsRateLimited(err); ok {
		return fmt.Errorf("GitHub rate limit exhausted, retry after %s", resetAt.Format("15:04:05"))
	}
	if errors.IsAuthExpired(err) {
		return fmt.Errorf("session expired, run 'devfinder auth login' to sign in again")
	}
	return err
}
