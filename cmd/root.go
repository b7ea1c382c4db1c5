package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "msfix",
	Short: "Find and remove missing script references in scenes and prefabs",
	Long: `msfix scans a game project for components whose script can no longer be
resolved, reports where they are, and strips them with backups and a journal.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch cmd.Name() {
		case "install", "version", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return
		}
		autoInstallCompletions(cmd.Root())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project", "C", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <project>/msfix.yaml)")
}
