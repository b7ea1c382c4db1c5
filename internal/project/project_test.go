package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisentools/msfix/internal/config"
	"github.com/aisentools/msfix/internal/scene"
)

const brokenPrefab = `roots:
  - name: Enemy
    components:
      - type: Transform
      - script: 0000000000000000000000000000dead
`

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestOpenWiresProject(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Assets/Enemy.prefab", brokenPrefab)
	write(t, root, "Assets/Main.scene", "roots: []\n")
	write(t, root, "Library/msfix/session.yaml", "open: [Assets/Main.scene]\nactive: Assets/Main.scene\n")

	p, err := Open(config.Flags{ProjectRoot: root})
	require.NoError(t, err)

	assert.Empty(t, p.Warnings)
	require.NotNil(t, p.Store.ActiveScene())
	assert.Equal(t, "Assets/Main.scene", p.Store.ActiveScene().Path)
	assert.Equal(t, filepath.Join(root, "Missing Scripts Tool", "Backups"), p.Backups.Root())

	res, err := p.Scan(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Set.Len())

	rep := p.Repair(context.Background(), scene.Prefab, res.Set, p.RepairOptions(false), nil)
	assert.Equal(t, 1, rep.Repaired())
	batches, err := p.Backups.Batches()
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestOpenBadSessionIsWarning(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Library/msfix/session.yaml", "open: [Assets/Gone.scene]\n")

	p, err := Open(config.Flags{ProjectRoot: root})
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "session not restored")
}

func TestOpenRejectsFile(t *testing.T) {
	root := t.TempDir()
	write(t, root, "file.txt", "x")
	_, err := Open(config.Flags{ProjectRoot: filepath.Join(root, "file.txt")})
	assert.ErrorContains(t, err, "not a directory")
}

func TestRel(t *testing.T) {
	root := t.TempDir()
	p := &Project{Root: root}

	rel, err := p.Rel(filepath.Join(root, "Assets", "A.prefab"))
	require.NoError(t, err)
	assert.Equal(t, "Assets/A.prefab", rel)

	rel, err = p.Rel(`Assets\Scenes\Main.scene`)
	require.NoError(t, err)
	assert.Equal(t, "Assets/Scenes/Main.scene", rel)

	_, err = p.Rel(filepath.Dir(root))
	assert.Error(t, err)
}

func TestCloseSavesSession(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Assets/Main.scene", "roots: []\n")

	p, err := Open(config.Flags{ProjectRoot: root})
	require.NoError(t, err)
	_, err = p.Store.OpenScene("Assets/Main.scene", scene.Single)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	data, err := os.ReadFile(filepath.Join(root, "Library", "msfix", "session.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Assets/Main.scene")
}

func TestRefreshTracksScriptAndSceneChanges(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Assets/Main.scene", "roots:\n  - name: Player\n    components:\n      - script: 0000000000000000000000000000dead\n")
	write(t, root, "Library/msfix/session.yaml", "open: [Assets/Main.scene]\nactive: Assets/Main.scene\n")

	p, err := Open(config.Flags{ProjectRoot: root})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := p.Scan(ctx, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Set.CountBy(scene.Scene))

	write(t, root, "Assets/Scripts/Player.cs.meta", "fileFormatVersion: 2\nguid: 0000000000000000000000000000dead\n")
	require.NoError(t, p.Refresh(nil, true))
	res, err = p.Scan(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Set.CountBy(scene.Scene), "open scene re-resolved against the new script")

	write(t, root, "Assets/Main.scene", "roots:\n  - name: Player\n  - name: Ghost\n    components:\n      - {}\n")
	require.NoError(t, p.Refresh([]string{"Assets/Main.scene"}, false))
	res, err = p.Scan(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Set.CountBy(scene.Scene), "changed open scene reloaded from disk")
	assert.Equal(t, "Assets/Main.scene", p.Store.ActiveScene().Path)

	write(t, root, "Assets/Main.scene", "roots: [")
	assert.Error(t, p.Refresh([]string{"Assets/Main.scene"}, false))
}
