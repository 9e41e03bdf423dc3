package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourcingdenis/devfinder/internal/config"
	"github.com/sourcingdenis/devfinder/pkg/session"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// savedCommand creates the saved searches command.
func (c *CLI) savedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved searches",
		Long: `List, replay, and delete searches saved with 'devfinder search --save'.

Replaying a saved search re-runs it with its stored filters, so results
reflect the current state of GitHub rather than a snapshot.`,
	}

	cmd.AddCommand(c.savedListCommand())
	cmd.AddCommand(c.savedRunCommand())
	cmd.AddCommand(c.savedDeleteCommand())

	return cmd
}

// savedListCommand creates the "saved list" subcommand.
func (c *CLI) savedListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			searches, err := backends.lists.SavedSearches(ctx, sess.UserID())
			if err != nil {
				return fmt.Errorf("load saved searches: %w", err)
			}
			if len(searches) == 0 {
				printInfo("No saved searches")
				printDetail("Save one with 'devfinder search ... --save NAME'")
				return nil
			}
			for _, rec := range searches {
				fmt.Println(StyleValue.Render(rec.Name) + "  " +
					StyleDim.Render(rec.ID) + "  " +
					StyleDim.Render(rec.CreatedAt.Format("Jan 2, 2006")))
			}
			return nil
		},
	}
}

// savedRunCommand creates the "saved run" subcommand.
func (c *CLI) savedRunCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "run <name|id>",
		Short: "Replay a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveSavedSearch(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}

			filter, err := backends.lists.ReplaySearch(ctx, sess.UserID(), rec.ID)
			if err != nil {
				return fmt.Errorf("replay search: %w", err)
			}
			if filter.PerPage == 0 {
				filter.PerPage = cfg.Search.PerPage
			}

			fetcher, err := c.newFetcher(cfg, sess, backends.emails, noCache)
			if err != nil {
				return fmt.Errorf("init fetcher: %w", err)
			}

			spinner := newSpinnerWithContext(ctx, "Searching...")
			spinner.Start()
			result, err := fetcher.FetchPage(ctx, filter)
			if err != nil {
				spinner.StopWithError("Search failed")
				return describeSearchError(err)
			}
			spinner.Stop()

			printInfo("Replaying %q", rec.Name)
			printResultHeader()
			for _, r := range result.Records {
				printRecord(r)
			}
			printPageSummary(result, len(result.Records))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the page cache")
	return cmd
}

// savedDeleteCommand creates the "saved delete" subcommand.
func (c *CLI) savedDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveSavedSearch(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}
			if err := backends.lists.DeleteSearch(ctx, sess.UserID(), rec.ID); err != nil {
				return fmt.Errorf("delete search: %w", err)
			}
			printSuccess("Deleted %q", rec.Name)
			return nil
		},
	}
}

// resolveSavedSearch finds a saved search by name or ID.
func resolveSavedSearch(ctx context.Context, b *backends, owner, nameOrID string) (*store.SavedSearchRecord, error) {
	searches, err := b.lists.SavedSearches(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load saved searches: %w", err)
	}
	for i := range searches {
		if searches[i].ID == nameOrID || searches[i].Name == nameOrID {
			return &searches[i], nil
		}
	}
	return nil, fmt.Errorf("no saved search named %q", nameOrID)
}

// setup loads config, session, and storage backends in one step. Used by
// commands that need all three.
func (c *CLI) setup(ctx context.Context) (*config.Config, *session.Session, *backends, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	sess, err := loadSession(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return cfg, sess, b, nil
}
