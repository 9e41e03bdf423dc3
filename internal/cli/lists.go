package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcingdenis/devfinder/internal/config"
	"github.com/sourcingdenis/devfinder/pkg/enrich"
	"github.com/sourcingdenis/devfinder/pkg/export"
	"github.com/sourcingdenis/devfinder/pkg/search"
	"github.com/sourcingdenis/devfinder/pkg/session"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

// listsCommand creates the lists command with subcommands.
func (c *CLI) listsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Manage saved profile lists",
		Long: `Organize developers into named lists.

Lists hold profile snapshots taken at save time, so exported data stays
stable even when the profile changes on GitHub. Saving a login that is
already in the list refreshes its snapshot.`,
	}

	cmd.AddCommand(c.listsCreateCommand())
	cmd.AddCommand(c.listsListCommand())
	cmd.AddCommand(c.listsShowCommand())
	cmd.AddCommand(c.listsRenameCommand())
	cmd.AddCommand(c.listsDeleteCommand())
	cmd.AddCommand(c.listsAddCommand())
	cmd.AddCommand(c.listsRemoveCommand())
	cmd.AddCommand(c.listsExportCommand())

	return cmd
}

// listsCreateCommand creates the "lists create" subcommand.
func (c *CLI) listsCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := backends.lists.CreateList(ctx, sess.UserID(), args[0])
			if err != nil {
				return fmt.Errorf("create list: %w", err)
			}
			printSuccess("Created list %q", rec.Name)
			printDetail("ID: %s", rec.ID)
			return nil
		},
	}
}

// listsListCommand creates the "lists list" subcommand.
func (c *CLI) listsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			records, err := backends.lists.Lists(ctx, sess.UserID())
			if err != nil {
				return fmt.Errorf("load lists: %w", err)
			}
			if len(records) == 0 {
				printInfo("No lists yet")
				printDetail("Create one with 'devfinder lists create NAME'")
				return nil
			}
			for _, rec := range records {
				fmt.Println(StyleValue.Render(rec.Name) + "  " +
					StyleNumber.Render(fmt.Sprintf("%d profiles", len(rec.Profiles))) + "  " +
					StyleDim.Render(rec.ID))
			}
			return nil
		},
	}
}

// listsShowCommand creates the "lists show" subcommand.
func (c *CLI) listsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show the profiles in a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveList(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(StyleTitle.Render(rec.Name))
			if len(rec.Profiles) == 0 {
				printDetail("Empty list")
				return nil
			}
			for _, p := range rec.Profiles {
				line := StyleValue.Render("@" + p.Login)
				if p.Email != "" {
					line += "  " + StyleLink.Render(p.Email)
				}
				if p.Location != "" {
					line += "  " + StyleDim.Render(p.Location)
				}
				line += "  " + StyleDim.Render("saved "+p.SavedAt.Format("Jan 2, 2006"))
				fmt.Println(line)
			}
			return nil
		},
	}
}

// listsRenameCommand creates the "lists rename" subcommand.
func (c *CLI) listsRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name|id> <new-name>",
		Short: "Rename a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveList(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}
			if err := backends.lists.RenameList(ctx, sess.UserID(), rec.ID, args[1]); err != nil {
				return fmt.Errorf("rename list: %w", err)
			}
			printSuccess("Renamed %q to %q", rec.Name, args[1])
			return nil
		},
	}
}

// listsDeleteCommand creates the "lists delete" subcommand.
func (c *CLI) listsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveList(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}
			if err := backends.lists.DeleteList(ctx, sess.UserID(), rec.ID); err != nil {
				return fmt.Errorf("delete list: %w", err)
			}
			printSuccess("Deleted %q", rec.Name)
			return nil
		},
	}
}

// listsAddCommand creates the "lists add" subcommand.
func (c *CLI) listsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name|id> <login>",
		Short: "Save a profile snapshot into a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveList(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Fetching profile...")
			spinner.Start()
			profile, err := c.fetchProfile(ctx, cfg, sess, backends, args[1])
			if err != nil {
				spinner.StopWithError("Fetch failed")
				return err
			}
			spinner.Stop()

			if err := backends.lists.SaveProfile(ctx, sess.UserID(), rec.ID, *profile); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}
			printSuccess("Saved @%s to %q", profile.Login, rec.Name)
			return nil
		},
	}
}

// listsRemoveCommand creates the "lists remove" subcommand.
func (c *CLI) listsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name|id> <login>",
		Short: "Remove a profile from a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveList(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}
			if err := backends.lists.RemoveProfile(ctx, sess.UserID(), rec.ID, args[1]); err != nil {
				return fmt.Errorf("remove profile: %w", err)
			}
			printSuccess("Removed @%s from %q", args[1], rec.Name)
			return nil
		},
	}
}

// listsExportCommand creates the "lists export" subcommand.
func (c *CLI) listsExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <name|id>",
		Short: "Export a list as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			rec, err := resolveList(ctx, backends, sess.UserID(), args[0])
			if err != nil {
				return err
			}

			if out == "" {
				return export.WriteListCSV(rec, os.Stdout)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
			defer f.Close()
			if err := export.WriteListCSV(rec, f); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			printSuccess("Exported %d profiles", len(rec.Profiles))
			printFile(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

// resolveList finds a list by name or ID.
func resolveList(ctx context.Context, b *backends, owner, nameOrID string) (*store.ListRecord, error) {
	records, err := b.lists.Lists(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	for i := range records {
		if records[i].ID == nameOrID || records[i].Name == nameOrID {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("no list named %q", nameOrID)
}

// fetchProfile loads a user's detail and best email and assembles the
// snapshot record saved into lists.
func (c *CLI) fetchProfile(ctx context.Context, cfg *config.Config, sess *session.Session, b *backends, login string) (*search.Record, error) {
	client := newGitHubClient(cfg, sess)
	detail, err := client.User(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	rec := &search.Record{
		Login:       detail.Login,
		ID:          detail.ID,
		AvatarURL:   detail.AvatarURL,
		HTMLURL:     detail.HTMLURL,
		Name:        detail.Name,
		Company:     detail.Company,
		Location:    detail.Location,
		Bio:         detail.Bio,
		Hireable:    detail.Hireable,
		Followers:   detail.Followers,
		PublicRepos: detail.PublicRepos,
	}

	enricher := enrich.New(client, b.emails, enrich.WithLogger(c.Logger))
	if email, err := enricher.BestEmail(ctx, login); err == nil {
		rec.Email = email.Email
		rec.EmailSource = email.Source
		rec.EmailConfidence = email.Confidence
	}
	return rec, nil
}
