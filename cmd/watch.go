package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/watch"
	"github.com/aisentools/msfix/utils"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [project]",
	Short: "Rescan whenever scenes, prefabs or script metadata change",
	Long: `Watch runs a scan, then rescans after every burst of file changes.
Unchanged sources are served from the finding cache. Changes to script
metadata refresh the script index and re-resolve the open scenes, and open
scenes changed on disk are reloaded unless they hold unsaved edits.

Examples:
  msfix watch
  msfix watch --all-scenes --debounce 1s`,
	Args: cobra.MaximumNArgs(1),
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
		if cmd.Flags().Changed("debounce") {
			p.Config.Watch.Debounce = watchDebounce
		}

		ctx, stop := interruptContext()
		defer stop()

		rescan := func(reason string) {
			res, err := p.Scan(ctx, roots, nil)
			if err != nil {
				fmt.Println(utils.ErrorStyle.Render(fmt.Sprintf("❌ scan failed: %v", err)))
				return
			}
			printWatchSummary(reason, res)
		}

		rescan("initial scan")
		fmt.Println(utils.MutedStyle.Render("👀 Watching " + p.Root + " (Ctrl+C to stop)"))

		w := watch.New(p.Root, watch.Classifier{
			Policy:     p.Policy,
			Extensions: []string{p.Config.Paths.PrefabExt, p.Config.Paths.SceneExt},
		}, p.Config.Watch.Debounce, func(b watch.Batch) {
			if err := p.Refresh(b.Paths, b.Scripts); err != nil {
				fmt.Println(utils.WarningStyle.Render(fmt.Sprintf("⚠️  refresh: %v", err)))
			}
			rescan(describeBatch(b))
		})
		w.OnError = func(err error) {
			fmt.Println(utils.WarningStyle.Render(fmt.Sprintf("⚠️  watch error: %v", err)))
		}
		return w.Run(ctx)
	},
}

func describeBatch(b watch.Batch) string {
	var parts []string
	if len(b.Paths) == 1 {
		parts = append(parts, b.Paths[0])
	} else if len(b.Paths) > 1 {
		parts = append(parts, utils.Plural(len(b.Paths), "file")+" changed")
	}
	if b.Scripts {
		parts = append(parts, "scripts changed")
	}
	return strings.Join(parts, ", ")
}

func printWatchSummary(reason string, res *scan.Result) {
	stamp := utils.MutedStyle.Render(time.Now().Format("15:04:05"))
	counts := fmt.Sprintf("%d missing (%d prefab, %d scene)",
		res.Set.Len(), res.Set.CountBy(scene.Prefab), res.Set.CountBy(scene.Scene))
	style := utils.GoodStyle
	if res.Set.Len() > 0 {
		style = utils.WarningStyle
	}
	fmt.Printf("%s %s  %s  %s\n", stamp, style.Render(counts),
		utils.MutedStyle.Render(fmt.Sprintf("%s, %d cached, %s", utils.Plural(res.Sources, "source"), res.CacheHits, utils.FormatDuration(res.Elapsed))),
		reason)
	for _, w := range res.Warnings {
		fmt.Printf("   %s\n", utils.WarningStyle.Render(w.Error()))
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addScanPassFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before a rescan")
}
