package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/aisentools/msfix/internal/repair"
	"github.com/aisentools/msfix/utils"
)

// PrintScan writes the scan summary and the shown findings.
func PrintScan(w io.Writer, doc Document) {
	fmt.Fprintf(w, "🔍 Missing Script Scan\n")
	fmt.Fprintf(w, "Project: %s  |  Sources: %d  |  Time: %s\n",
		doc.Project, doc.Sources, utils.FormatDuration(doc.Elapsed))
	fmt.Fprintln(w, strings.Repeat("═", 65))

	if doc.Cancelled {
		fmt.Fprintln(w, utils.WarningStyle.Render("⚠️  Scan cancelled, results are partial"))
	}

	counts := fmt.Sprintf("Total: %d  |  Shown: %d  |  Prefabs: %d  |  Scenes: %d",
		doc.Total, doc.Shown, doc.Prefabs, doc.Scenes)
	if doc.Query != "" {
		counts += fmt.Sprintf("  |  Search: %q", doc.Query)
	}
	fmt.Fprintln(w, counts)

	if doc.Total == 0 {
		fmt.Fprintf(w, "\n%s\n", utils.GoodStyle.Render("✅ No missing scripts found"))
		printWarnings(w, doc.Warnings)
		return
	}

	fmt.Fprintln(w, "\n📂 BY FOLDER")
	fmt.Fprintln(w, strings.Repeat("─", 35))
	top := 0
	for _, fc := range doc.Folders {
		top = max(top, fc.Count)
	}
	for _, fc := range doc.Folders {
		bar := utils.CreateProgressBar(float64(fc.Count)/float64(top), 20, utils.WarningColor)
		fmt.Fprintf(w, "%s %4d  %s\n", bar, fc.Count, fc.Folder)
	}

	fmt.Fprintln(w, "\n🧩 FINDINGS")
	fmt.Fprintln(w, strings.Repeat("─", 35))
	for _, f := range doc.Findings {
		fmt.Fprintf(w, "%s %s  %s\n",
			utils.KindStyle(f.Kind.String()).Render(fmt.Sprintf("%-6s", f.Kind)),
			f.SourcePath,
			utils.MutedStyle.Render(f.ObjectPath))
	}

	printWarnings(w, doc.Warnings)
}

// PrintRepair writes the per-source outcome of a repair run.
func PrintRepair(w io.Writer, rep *repair.Report) {
	title := "🔧 Repair"
	if rep.DryRun {
		title = "🔎 Repair preview (dry run)"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("═", 65))

	for _, res := range rep.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", utils.CriticalStyle.Render("❌"), res.Path, res.Err)
		case res.Repaired:
			line := fmt.Sprintf("✅ %s: removed %d", res.Path, res.Removed)
			if res.BackupPath != "" {
				line += utils.MutedStyle.Render("  (backup saved)")
			}
			fmt.Fprintln(w, line)
		case res.Removed > 0:
			fmt.Fprintf(w, "🔎 %s: would remove %d\n", res.Path, res.Removed)
		default:
			fmt.Fprintf(w, "%s\n", utils.MutedStyle.Render("·  "+res.Path+": clean"))
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", 35))
	if rep.DryRun {
		fmt.Fprintf(w, "Would remove %d component(s) from %d source(s)\n", rep.Removed(), countChanged(rep))
	} else {
		fmt.Fprintf(w, "Removed %d component(s), repaired %d source(s), %d failed\n",
			rep.Removed(), rep.Repaired(), len(rep.Failed()))
		if lo.SomeBy(rep.Results, func(r repair.SourceResult) bool { return r.BackupPath != "" }) {
			fmt.Fprintf(w, "%s\n", utils.MutedStyle.Render("Backup batch: "+rep.Stamp))
		}
	}
	if rep.Cancelled {
		fmt.Fprintln(w, utils.WarningStyle.Render("⚠️  Repair cancelled before all sources were processed"))
	}

	var warnings []string
	for _, err := range rep.Warnings {
		warnings = append(warnings, err.Error())
	}
	printWarnings(w, warnings)
}

func countChanged(rep *repair.Report) int {
	return lo.CountBy(rep.Results, func(r repair.SourceResult) bool { return r.Removed > 0 })
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", utils.WarningStyle.Render(fmt.Sprintf("⚠️  %d warning(s)", len(warnings))))
	for _, msg := range warnings {
		fmt.Fprintf(w, "   %s\n", msg)
	}
}
