package main

import (
	"github.com/spf13/cobra"

	"github.com/deskline/ticket-sync/internal/tui"
)

func newBoardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive ticket board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			return tui.Run(cmd.Context(), c.app)
		},
	}
}
