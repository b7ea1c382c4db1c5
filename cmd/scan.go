package cmd

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/aisentools/msfix/internal/html"
	"github.com/aisentools/msfix/internal/project"
	"github.com/aisentools/msfix/internal/report"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/store"
	"github.com/aisentools/msfix/internal/tui"
	"github.com/aisentools/msfix/utils"
)

var (
	outputFormat    string
	scanOnly        []string
	scanSearch      string
	scanCopy        bool
	scanOut         string
	scanOpenBrowser bool
)

var validFormats = []string{"cli", "json", "html", "tui"}

var scanCmd = &cobra.Command{
	Use:   "scan [project]",
	Short: "Find components whose script is missing",
	Long: `Scan walks prefabs, the open scenes and optionally every scene in the
project, and lists each object that carries a component with a missing script.

Examples:
  msfix scan                               # scan the current directory
  msfix scan --all-scenes -o html --open   # full report in the browser
  msfix scan --only Assets/Prefabs/Enemy.prefab --search gun
  msfix scan -o json > findings.json`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(validFormats, outputFormat) {
			return fmt.Errorf("invalid output format: %s. Valid options: %v", outputFormat, validFormats)
		}
		return nil
	},
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

		if outputFormat == "tui" {
			return tui.Run(p, tui.Options{
				Project: p.Root,
				Roots:   roots,
				Backup:  p.Config.Repair.Backup,
				Confirm: p.Config.Repair.Confirm,
			})
		}

		ctx, stop := interruptContext()
		defer stop()
		res, err := p.Scan(ctx, roots, nil)
		if err != nil {
			return err
		}

		now := time.Now()
		doc := report.NewDocument(p.Root, res, scanSearch, now)
		switch outputFormat {
		case "json":
			if err := report.WriteJSON(os.Stdout, doc); err != nil {
				return err
			}
		case "html":
			path, err := html.GenerateHTMLReport(doc, scanOut)
			if err != nil {
				return err
			}
			fmt.Printf("📄 Report written to %s\n", path)
			if scanOpenBrowser {
				if err := browser.OpenFile(path); err != nil {
					fmt.Println(utils.WarningStyle.Render(fmt.Sprintf("⚠️  could not open browser: %v", err)))
				}
			}
		default:
			report.PrintScan(os.Stdout, doc)
		}

		if scanCopy {
			if err := report.CopyLog(doc.Findings, now); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "📋 Copied %s to clipboard\n", utils.Plural(len(doc.Findings), "finding"))
		}
		return nil
	},
}

// applyScanFlags overrides the configured passes with explicitly set flags.
func applyScanFlags(cmd *cobra.Command, p *project.Project) {
	flags := cmd.Flags()
	set := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	set("open-scenes", &p.Config.Scan.OpenScenes)
	set("all-scenes", &p.Config.Scan.AllScenes)
	set("prefabs", &p.Config.Scan.Prefabs)
	set("include-inactive", &p.Config.Scan.IncludeInactive)
}

// selectionRoots maps --only paths to the directories a scan is restricted to.
func selectionRoots(p *project.Project, only []string) ([]string, error) {
	var rels []string
	for _, path := range only {
		rel, err := p.Rel(path)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return scan.SelectionRoots(rels, func(rel string) bool {
		info, err := os.Stat(p.Store.Abs(rel))
		return err == nil && info.IsDir()
	}), nil
}

func addScanPassFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("open-scenes", true, "Scan the open scenes")
	cmd.Flags().Bool("all-scenes", false, "Scan every scene in the project")
	cmd.Flags().Bool("prefabs", true, "Scan prefabs")
	cmd.Flags().Bool("include-inactive", false, "Descend into inactive objects")
	cmd.Flags().StringArrayVar(&scanOnly, "only", nil, "Restrict to this file's folder or this folder (repeatable)")
}

func init() {
	rootCmd.AddCommand(scanCmd)

	addScanPassFlags(scanCmd)
	scanCmd.Flags().StringVar(&scanSearch, "search", "", "Only show findings matching this text")
	scanCmd.Flags().StringVarP(&outputFormat, "output", "o", "cli", "Output format")
	scanCmd.Flags().BoolVar(&scanCopy, "copy", false, "Copy the findings log to the clipboard")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "HTML report path")
	scanCmd.Flags().BoolVar(&scanOpenBrowser, "open", false, "Open the HTML report in the browser")

	// When user types: msfix scan -o <TAB>
	scanCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return validFormats, cobra.ShellCompDirectiveNoFileComp
	})
	scanCmd.RegisterFlagCompletionFunc("only", utils.CompleteFilesByExtension(sourceExtensions(scene.Prefab, scene.Scene)))
}

// sourceExtensions lists the default file extensions of kinds, for shell
// completion.
func sourceExtensions(kinds ...scene.Kind) []string {
	opts := store.DefaultOptions()
	var exts []string
	for _, k := range kinds {
		if k == scene.Prefab {
			exts = append(exts, opts.PrefabExt)
		} else {
			exts = append(exts, opts.SceneExt)
		}
	}
	return exts
}
