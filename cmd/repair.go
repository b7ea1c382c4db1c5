package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aisentools/msfix/internal/project"
	"github.com/aisentools/msfix/internal/repair"
	"github.com/aisentools/msfix/internal/report"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/utils"
)

var (
	repairDryRun   bool
	repairNoBackup bool
	repairYes      bool
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Remove components whose script is missing",
}

var repairPrefabsCmd = &cobra.Command{
	Use:   "prefabs [project]",
	Short: "Strip missing scripts from every prefab with findings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepair(cmd, args, scene.Prefab)
	},
}

var repairScenesCmd = &cobra.Command{
	Use:   "scenes [project]",
	Short: "Strip missing scripts from the open scenes and save them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepair(cmd, args, scene.Scene)
	},
}

func runRepair(cmd *cobra.Command, args []string, kind scene.Kind) error {
	p, err := openProject(args)
	if err != nil {
		return err
	}
	defer closeProject(p)

	ctx, stop := interruptContext()
	defer stop()

	opts := p.RepairOptions(repairDryRun)
	if repairNoBackup {
		opts.MakeBackup = false
	}
	ask := p.Config.Repair.Confirm && !repairYes

	rep, err := repairProject(ctx, p, kind, opts, ask, cmd.InOrStdin(), os.Stdout)
	if err != nil || rep == nil {
		return err
	}
	if len(rep.Failed()) > 0 {
		return fmt.Errorf("%d source(s) failed to repair", len(rep.Failed()))
	}
	return nil
}

// repairProject scans for the sources to repair, asks when ask is set and
// the run writes, repairs, then rescans. A nil report means nothing was
// attempted.
func repairProject(ctx context.Context, p *project.Project, kind scene.Kind, opts repair.Options, ask bool, in io.Reader, out io.Writer) (*repair.Report, error) {
	scanOpts := repairScanOptions(kind)
	before, err := p.Scanner(nil).Scan(ctx, scanOpts)
	if err != nil {
		return nil, err
	}

	count := before.Set.CountBy(kind)
	if count == 0 {
		fmt.Fprintln(out, utils.GoodStyle.Render(fmt.Sprintf("✅ No missing scripts in %s", kindTarget(kind))))
		return nil, nil
	}

	if !opts.DryRun && ask {
		prompt := fmt.Sprintf("Remove missing scripts from %s (%s)?",
			utils.Plural(len(before.Set.SourcePaths(kind)), strings.ToLower(kind.String())),
			utils.Plural(count, "object"))
		if !opts.MakeBackup {
			prompt += " No backup will be made."
		}
		if !confirm(in, out, prompt) {
			fmt.Fprintln(out, "Aborted")
			return nil, nil
		}
	}

	rep := p.Repair(ctx, kind, before.Set, opts, nil)
	report.PrintRepair(out, rep)

	if !rep.DryRun && rep.Changed() {
		after, err := p.Scanner(nil).Scan(ctx, scanOpts)
		if err != nil {
			return rep, err
		}
		left := after.Set.CountBy(kind)
		if left == 0 {
			fmt.Fprintln(out, utils.GoodStyle.Render("✅ Rescan: no missing scripts left"))
		} else {
			fmt.Fprintln(out, utils.WarningStyle.Render(fmt.Sprintf("⚠️  Rescan: %s still reported", utils.Plural(left, "object"))))
		}
	}
	return rep, nil
}

// repairScanOptions limits the pre-repair scan to the pass that feeds the
// repair. Repair strips the whole tree, so the scan descends into inactive
// objects whatever the scan configuration says.
func repairScanOptions(kind scene.Kind) scan.Options {
	return scan.Options{
		IncludePrefabs:    kind == scene.Prefab,
		IncludeOpenScenes: kind == scene.Scene,
		IncludeInactive:   true,
	}
}

func kindTarget(kind scene.Kind) string {
	if kind == scene.Scene {
		return "the open scenes"
	}
	return "prefabs"
}

func init() {
	rootCmd.AddCommand(repairCmd)

	repairCmd.AddCommand(repairPrefabsCmd)
	repairCmd.AddCommand(repairScenesCmd)

	repairCmd.PersistentFlags().BoolVar(&repairDryRun, "dry-run", false, "Report what would be removed without writing")
	repairCmd.PersistentFlags().BoolVar(&repairNoBackup, "no-backup", false, "Skip the backup copy of each changed file")
	repairCmd.PersistentFlags().BoolVarP(&repairYes, "yes", "y", false, "Do not ask for confirmation")
}
