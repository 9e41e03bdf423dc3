package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Write a completion script for the given shell to stdout.

Completions cover every devfinder subcommand and flag, so tabbing
through "devfinder lists " or "devfinder search --" works once the
script is loaded.

Try it in the current shell:

  bash:       source <(devfinder completion bash)
  zsh:        source <(devfinder completion zsh)
  fish:       devfinder completion fish | source
  powershell: devfinder completion powershell | Out-String | Invoke-Expression

To keep completions across sessions, write the script where your shell
picks it up at startup:

  bash (Linux):  devfinder completion bash > /etc/bash_completion.d/devfinder
  bash (macOS):  devfinder completion bash > $(brew --prefix)/etc/bash_completion.d/devfinder
  zsh:           devfinder completion zsh > "${fpath[1]}/_devfinder"
  fish:          devfinder completion fish > ~/.config/fish/completions/devfinder.fish
  powershell:    devfinder completion powershell > devfinder.ps1
                 (then dot-source devfinder.ps1 from your profile)

Zsh needs compinit enabled; if it is not, run once:

  echo "autoload -U compinit; compinit" >> ~/.zshrc

and open a new shell.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
