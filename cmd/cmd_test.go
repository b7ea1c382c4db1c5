package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisentools/msfix/internal/config"
	"github.com/aisentools/msfix/internal/project"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/watch"
)

const inactiveBranchScene = `roots:
  - name: A
    children:
      - name: B
        active: false
        children:
          - name: C
            components:
              - {}
`

func openTestProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	p, err := project.Open(config.Flags{ProjectRoot: root})
	require.NoError(t, err)
	require.Empty(t, p.Warnings)
	return p
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{" YES \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "Proceed?"), "%q", tt.input)
		assert.Equal(t, "Proceed? [y/N] ", out.String())
	}
}

func TestDescribeBatch(t *testing.T) {
	assert.Equal(t, "Assets/A.prefab", describeBatch(watch.Batch{Paths: []string{"Assets/A.prefab"}}))
	assert.Equal(t, "2 files changed, scripts changed",
		describeBatch(watch.Batch{Paths: []string{"a.prefab", "b.scene"}, Scripts: true}))
	assert.Equal(t, "scripts changed", describeBatch(watch.Batch{Scripts: true}))
}

func TestRepairProjectReachesInactiveSubtrees(t *testing.T) {
	p := openTestProject(t, map[string]string{
		"Assets/Main.scene":          inactiveBranchScene,
		"Library/msfix/session.yaml": "open: [Assets/Main.scene]\nactive: Assets/Main.scene\n",
	})
	require.False(t, p.Config.Scan.IncludeInactive)
	ctx := context.Background()

	var out bytes.Buffer
	rep, err := repairProject(ctx, p, scene.Scene, p.RepairOptions(false), true, strings.NewReader("n\n"), &out)
	require.NoError(t, err)
	assert.Nil(t, rep)
	assert.Contains(t, out.String(), "Remove missing scripts from 1 scene (1 object)?")
	assert.Contains(t, out.String(), "Aborted")

	out.Reset()
	rep, err = repairProject(ctx, p, scene.Scene, p.RepairOptions(false), false, nil, &out)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.Repaired())
	assert.Contains(t, out.String(), "no missing scripts left")

	data, err := os.ReadFile(filepath.Join(p.Root, "Assets", "Main.scene"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "{}")

	out.Reset()
	rep, err = repairProject(ctx, p, scene.Scene, p.RepairOptions(false), false, nil, &out)
	require.NoError(t, err)
	assert.Nil(t, rep)
	assert.Contains(t, out.String(), "No missing scripts in the open scenes")
}

func TestRepairProjectPrefabWithOnlyInactiveFindings(t *testing.T) {
	p := openTestProject(t, map[string]string{
		"Assets/Hidden.prefab": inactiveBranchScene,
	})

	var out bytes.Buffer
	rep, err := repairProject(context.Background(), p, scene.Prefab, p.RepairOptions(true), true, nil, &out)
	require.NoError(t, err)
	require.NotNil(t, rep)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "Assets/Hidden.prefab", rep.Results[0].Path)
	assert.Equal(t, 1, rep.Results[0].Removed)
	assert.NotContains(t, out.String(), "[y/N]", "dry runs do not ask")
}

func TestSourceExtensions(t *testing.T) {
	assert.Equal(t, []string{".prefab", ".scene"}, sourceExtensions(scene.Prefab, scene.Scene))
	assert.Equal(t, []string{".scene"}, sourceExtensions(scene.Scene))
}

func TestCompletionTargets(t *testing.T) {
	home := t.TempDir()
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		target, ok := completionTargetFor(shell, home)
		require.True(t, ok, shell)
		assert.False(t, target.installed(), shell)
		require.NoError(t, target.install(rootCmd), shell)
		assert.True(t, target.installed(), shell)

		data, err := os.ReadFile(target.path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "msfix", shell)
	}

	_, ok := completionTargetFor("tcsh", home)
	assert.False(t, ok)
}

func TestOnPath(t *testing.T) {
	sep := string(os.PathListSeparator)
	assert.True(t, onPath("/opt/bin", "/usr/bin"+sep+"/opt/bin"))
	assert.False(t, onPath("/opt", "/usr/bin"+sep+"/opt/bin"))
	assert.False(t, onPath("/opt/bin", ""))
}
