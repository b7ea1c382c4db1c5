package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aisentools/msfix/internal/backup"
	"github.com/aisentools/msfix/internal/config"
	"github.com/aisentools/msfix/internal/project"
	"github.com/aisentools/msfix/utils"
)

var (
	backupsVerbose bool
	restoreYes     bool
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List and restore repair backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "List backup batches, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args)
		if err != nil {
			return err
		}

		batches, err := p.Backups.Batches()
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println(utils.MutedStyle.Render("No backups in " + p.Backups.Root()))
			return nil
		}

		fmt.Printf("💾 Backups in %s\n", p.Backups.Root())
		fmt.Println(strings.Repeat("═", 65))
		for _, b := range batches {
			fmt.Printf("%s  %s  %s  %s\n",
				utils.InfoStyle.Render(b.Stamp),
				utils.PadRight(utils.FormatAge(b.Time), 16),
				utils.PadRight(utils.Plural(len(b.Files), "file"), 10),
				utils.FormatBytes(b.Bytes))
			if backupsVerbose {
				for _, f := range b.Files {
					fmt.Printf("    %s\n", utils.MutedStyle.Render(f))
				}
			}
		}
		return nil
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:               "restore <stamp> [project]",
	Short:             "Copy a backup batch back over the original files",
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeStamps,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[1:])
		if err != nil {
			return err
		}

		stamp := args[0]
		if !restoreYes && !confirm(cmd.InOrStdin(), os.Stdout, fmt.Sprintf("Overwrite project files with backup %s?", stamp)) {
			fmt.Println("Aborted")
			return nil
		}

		restored, errs := p.Backups.Restore(stamp)
		for _, rel := range restored {
			fmt.Printf("✅ %s\n", rel)
		}
		failed := 0
		for _, err := range errs {
			var je *backup.JournalError
			if errors.As(err, &je) {
				fmt.Printf("%s %v\n", utils.WarningStyle.Render("⚠️"), err)
				continue
			}
			failed++
			fmt.Printf("%s %v\n", utils.CriticalStyle.Render("❌"), err)
		}
		fmt.Printf("Restored %s from %s\n", utils.Plural(len(restored), "file"), stamp)
		if failed > 0 {
			return fmt.Errorf("%d file(s) not restored", failed)
		}
		return nil
	},
}

func completeStamps(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	p, err := project.Open(config.Flags{ProjectRoot: projectRoot, ConfigPath: configPath})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	batches, err := p.Backups.Batches()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, b := range batches {
		if strings.HasPrefix(b.Stamp, toComplete) {
			completions = append(completions, fmt.Sprintf("%s\t%s", b.Stamp, utils.Plural(len(b.Files), "file")))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(backupsCmd)

	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)

	backupsListCmd.Flags().BoolVarP(&backupsVerbose, "verbose", "v", false, "List the files of each batch")
	backupsRestoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Do not ask for confirmation")
}
