package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// completionTarget is where one shell looks for msfix completions.
type completionTarget struct {
	path     string
	generate func(root *cobra.Command, w io.Writer) error
	activate string
}

func completionTargetFor(shell, home string) (completionTarget, bool) {
	switch shell {
	case "bash":
		p := filepath.Join(home, ".local", "share", "bash-completion", "completions", "msfix")
		return completionTarget{
			path:     p,
			generate: (*cobra.Command).GenBashCompletion,
			activate: "source " + p,
		}, true
	case "zsh":
		dir := filepath.Join(home, ".zsh", "completions")
		return completionTarget{
			path:     filepath.Join(dir, "_msfix"),
			generate: (*cobra.Command).GenZshCompletion,
			activate: fmt.Sprintf("fpath=(%s $fpath) && autoload -U compinit && compinit", dir),
		}, true
	case "fish":
		return completionTarget{
			path: filepath.Join(home, ".config", "fish", "completions", "msfix.fish"),
			generate: func(root *cobra.Command, w io.Writer) error {
				return root.GenFishCompletion(w, true)
			},
			activate: "exec fish",
		}, true
	case "powershell":
		p := filepath.Join(home, "msfix_completion.ps1")
		return completionTarget{
			path:     p,
			generate: (*cobra.Command).GenPowerShellCompletionWithDesc,
			activate: ". " + p,
		}, true
	}
	return completionTarget{}, false
}

func currentShell() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return filepath.Base(sh)
	}
	return "bash"
}

func currentTarget() (completionTarget, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return completionTarget{}, err
	}
	shell := currentShell()
	t, ok := completionTargetFor(shell, home)
	if !ok {
		return completionTarget{}, fmt.Errorf("no completion support for %s (bash, zsh, fish, powershell)", shell)
	}
	return t, nil
}

func (t completionTarget) installed() bool {
	_, err := os.Stat(t.path)
	return err == nil
}

func (t completionTarget) install(root *cobra.Command) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(t.path)
	if err != nil {
		return err
	}
	if err := t.generate(root, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// autoInstallCompletions writes completions on the first run from a
// supported shell. Output goes to stderr so it never mixes with reports.
func autoInstallCompletions(root *cobra.Command) {
	t, err := currentTarget()
	if err != nil || t.installed() {
		return
	}
	if err := t.install(root); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Could not install shell completions (%v). Try 'msfix install'.\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "🔧 Installed shell completions to %s\n", t.path)
}

// onPath reports whether dir is one of the entries of a PATH value.
func onPath(dir, pathEnv string) bool {
	return slices.Contains(strings.Split(pathEnv, string(os.PathListSeparator)), dir)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install shell completions",
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		if dir := filepath.Dir(exe); !onPath(dir, os.Getenv("PATH")) {
			fmt.Printf("⚠️  %s is not on PATH; completions only work for commands found there.\n", dir)
			if runtime.GOOS != "windows" {
				fmt.Printf("   export PATH=\"%s:$PATH\"\n", dir)
			}
		}

		t, err := currentTarget()
		if err != nil {
			return err
		}
		if t.installed() {
			fmt.Printf("✅ Completions already installed at %s\n", t.path)
			return nil
		}
		if err := t.install(cmd.Root()); err != nil {
			return fmt.Errorf("install completions: %w", err)
		}
		fmt.Printf("✅ Installed completions to %s\n", t.path)
		fmt.Printf("   Activate now with: %s\n", t.activate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
