package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/aisentools/msfix/internal/config"
	"github.com/aisentools/msfix/internal/project"
	"github.com/aisentools/msfix/utils"
)

var (
	projectRoot string
	configPath  string
)

// openProject opens the project named by the optional positional argument,
// falling back to --project and then the working directory.
func openProject(args []string) (*project.Project, error) {
	root := projectRoot
	if len(args) > 0 && args[0] != "" {
		root = args[0]
	}
	p, err := project.Open(config.Flags{ProjectRoot: root, ConfigPath: configPath})
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings {
		fmt.Fprintln(os.Stderr, utils.WarningStyle.Render("⚠️  "+w))
	}
	return p, nil
}

func closeProject(p *project.Project) {
	if err := p.Close(); err != nil {
		fmt.Fprintln(os.Stderr, utils.WarningStyle.Render(fmt.Sprintf("⚠️  %v", err)))
	}
}

// interruptContext is cancelled on Ctrl+C so long runs stop at the next
// source boundary.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
