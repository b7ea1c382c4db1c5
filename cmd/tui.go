package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aisentools/msfix/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [project]",
	Short: "Browse, search and repair findings interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args)
		if err != nil {
			return err
		}
		defer closeProject(p)

		applyScanFlags(cmd, p)
		roots, err := selectionRoots(p, scanOnly)
		if err != nil {
			return err
		}
		return tui.Run(p, tui.Options{
			Project: p.Root,
			Roots:   roots,
			Backup:  p.Config.Repair.Backup,
			Confirm: p.Config.Repair.Confirm,
		})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	addScanPassFlags(tuiCmd)
}
