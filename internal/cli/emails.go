package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourcingdenis/devfinder/pkg/enrich"
)

// emailsCommand creates the emails command with subcommands.
func (c *CLI) emailsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emails",
		Short: "Discover and manage contact emails",
		Long: `Find contact emails for GitHub users.

Discovery checks the public profile first, then the user's recent commit
history. When neither yields an address, a low-confidence guess is
generated from the username. Manually verified addresses can be stored
with 'emails set' and always win over discovered ones.`,
	}

	cmd.AddCommand(c.emailsFindCommand())
	cmd.AddCommand(c.emailsSetCommand())

	return cmd
}

// emailsFindCommand creates the "emails find" subcommand.
func (c *CLI) emailsFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <login>",
		Short: "Find the best known email for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			enricher := enrich.New(newGitHubClient(cfg, sess), backends.emails, enrich.WithLogger(c.Logger))

			spinner := newSpinnerWithContext(ctx, "Discovering email...")
			spinner.Start()
			rec, err := enricher.BestEmail(ctx, args[0])
			if err != nil {
				spinner.StopWithError("Discovery failed")
				return err
			}
			spinner.Stop()

			printKeyValue("Login", "@"+rec.Username)
			printKeyValue("Email", rec.Email)
			printKeyValue("Source", rec.Source)
			printKeyValue("Confidence", fmt.Sprintf("%.2f", rec.Confidence))
			if rec.Source == enrich.SourceGenerated {
				printWarning("Address is a guess, verify before contacting")
			}
			return nil
		},
	}
}

// emailsSetCommand creates the "emails set" subcommand.
func (c *CLI) emailsSetCommand() *cobra.Command {
	var (
		source     string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "set <login> <email>",
		Short: "Store a verified email for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, sess, backends, err := c.setup(ctx)
			if err != nil {
				return err
			}
			defer backends.close(ctx)

			enricher := enrich.New(newGitHubClient(cfg, sess), backends.emails, enrich.WithLogger(c.Logger))

			rec, err := enricher.StoreEmail(ctx, args[0], args[1], source, confidence, sess.UserID())
			if err != nil {
				return fmt.Errorf("store email: %w", err)
			}
			printSuccess("Stored %s for @%s (version %d)", rec.Email, rec.Username, rec.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", enrich.SourceManual, "email source label")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "confidence between 0 and 1")

	return cmd
}
