package main

import (
	"os"

	"github.com/spf13/cobra"

	"media-catalog/internal/layout"
)

type commandContext struct {
	layoutPath string
}

// builder loads the layout rules named by --layout.
func (c *commandContext) builder() (*layout.Builder, error) {
	cfg, _, err := layout.LoadConfig(c.layoutPath)
	if err != nil {
		return nil, err
	}
	return layout.NewBuilder(cfg), nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "layoutctl",
		Short:         "Inspect the media catalog layout",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.layoutPath, "layout", os.Getenv("LAYOUT_CONFIG"), "Layout rule file (TOML)")

	rootCmd.AddCommand(newClassifyCommand(ctx))
	rootCmd.AddCommand(newPlaylistCommand(ctx))
	rootCmd.AddCommand(newStatsCommand())
	return rootCmd
}
