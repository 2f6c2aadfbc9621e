package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/config"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for xwire.

Controller flags (--controller, --controllers) complete with the controller
names of the configured xLights show.

  $ source <(xwire completion bash)
  $ xwire completion zsh > "${fpath[1]}/_xwire"
  $ xwire completion fish > ~/.config/fish/completions/xwire.fish
  PS> xwire completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeControllers completes controller names for --controller and the
// comma separated --controllers list. Names come from the networks file
// (flag, first import argument or config) and fall back to the controllers
// the rgbeffects models are connected to.
func (c *CLI) completeControllers(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	done, partial := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done, partial = toComplete[:i+1], toComplete[i+1:]
	}

	var out []string
	for _, name := range controllerCandidates(cmd, args, cfg.Import) {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(partial)) {
			out = append(out, done+name)
		}
	}
	directive := cobra.ShellCompDirectiveNoFileComp
	if done != "" {
		directive |= cobra.ShellCompDirectiveNoSpace
	}
	return out, directive
}

func controllerCandidates(cmd *cobra.Command, args []string, defaults config.ImportConfig) []string {
	networks, rgbeffects := defaults.Networks, defaults.RGBEffects
	if v := flagValue(cmd, "networks"); v != "" {
		networks = v
	}
	if v := flagValue(cmd, "rgbeffects"); v != "" {
		rgbeffects = v
	}
	switch {
	case cmd.Name() == "import" && len(args) > 0:
		networks = args[0]
		if len(args) > 1 {
			rgbeffects = args[1]
		}
	case len(args) > 0:
		rgbeffects = args[0]
	}

	if networks != "" {
		if cs, err := xlights.ParseNetworksFile(networks); err == nil && len(cs) > 0 {
			names := make([]string, len(cs))
			for i, ctl := range cs {
				names[i] = ctl.Name
			}
			return names
		}
	}
	if rgbeffects != "" {
		if set, err := xlights.ParseRGBEffectsFile(rgbeffects); err == nil {
			return set.ControllerNames()
		}
	}
	return nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}
