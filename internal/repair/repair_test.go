package repair

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisentools/msfix/internal/backup"
	"github.com/aisentools/msfix/internal/journal"
	"github.com/aisentools/msfix/internal/policy"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/store"
)

const brokenPrefab = `roots:
  - name: Enemy
    components:
      - type: Transform
      - script: 0000000000000000000000000000dead
      - {}
    children:
      - name: Body
        active: false
        components:
          - script: 0000000000000000000000000000dead
`

const brokenScene = `roots:
  - name: Player
    components:
      - type: Transform
      - script: 0000000000000000000000000000dead
`

var fixedClock = time.Date(2025, 3, 9, 14, 5, 7, 0, time.Local)

const stamp = "20250309-140507"

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

type project struct {
	root    string
	store   *store.FileStore
	backups *backup.Store
	engine  *Engine
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	write(t, root, "Assets/Prefabs/A.prefab", brokenPrefab)
	write(t, root, "Assets/Prefabs/B.prefab", brokenPrefab)
	write(t, root, "Assets/Prefabs/Clean.prefab", "roots:\n  - name: Ok\n")
	write(t, root, "Assets/Scenes/Main.scene", brokenScene)
	write(t, root, "Assets/Scenes/Side.scene", brokenScene)
	write(t, root, "Packages/vendor/Button.prefab", brokenPrefab)

	fs, err := store.Open(root, store.DefaultOptions())
	require.NoError(t, err)

	pol := policy.Default()
	backups := backup.New(root, pol, journal.New(filepath.Join(root, pol.LogRoot)))
	eng := New(pol, backups)
	eng.Now = func() time.Time { return fixedClock }
	return &project{root: root, store: fs, backups: backups, engine: eng}
}

func (p *project) backupPath(rel string) string {
	return filepath.Join(p.backups.Root(), stamp, filepath.FromSlash(rel))
}

func TestRepairPrefabsWithBackup(t *testing.T) {
	p := newProject(t)

	rep := p.engine.RepairPrefabs(context.Background(), p.store,
		[]string{"Assets/Prefabs/A.prefab", "Assets/Prefabs/Clean.prefab"},
		Options{MakeBackup: true})

	assert.Equal(t, stamp, rep.Stamp)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, 3, rep.Results[0].Removed)
	assert.True(t, rep.Results[0].Repaired)
	assert.Equal(t, p.backupPath("Assets/Prefabs/A.prefab"), rep.Results[0].BackupPath)
	assert.Equal(t, 0, rep.Results[1].Removed)
	assert.False(t, rep.Results[1].Repaired)
	assert.True(t, rep.Changed())
	assert.Empty(t, rep.Warnings)

	assert.Equal(t, brokenPrefab, read(t, p.root, "Missing Scripts Tool/Backups/"+stamp+"/Assets/Prefabs/A.prefab"))
	assert.NotContains(t, read(t, p.root, "Assets/Prefabs/A.prefab"), "dead")
	assert.NoFileExists(t, p.backupPath("Assets/Prefabs/Clean.prefab"), "unchanged sources are not backed up")
	assert.Equal(t, 0, p.store.Loaded())
}

func TestRepairBacksUpBeforeWriting(t *testing.T) {
	p := newProject(t)
	spy := &commitSpy{PrefabStore: p.store, check: func(src *scene.Source) {
		data, err := os.ReadFile(p.backupPath(src.Path))
		require.NoError(t, err, "backup must exist before commit")
		assert.Equal(t, brokenPrefab, string(data))
		assert.Equal(t, brokenPrefab, read(t, p.root, src.Path), "original untouched before commit")
	}}

	rep := p.engine.RepairPrefabs(context.Background(), spy, []string{"Assets/Prefabs/A.prefab"}, Options{MakeBackup: true})
	assert.Equal(t, 1, rep.Repaired())
	assert.Equal(t, 1, spy.commits)
}

func TestRepairDryRunIsNoop(t *testing.T) {
	p := newProject(t)

	rep := p.engine.RepairPrefabs(context.Background(), p.store, []string{"Assets/Prefabs/A.prefab"}, Options{DryRun: true, MakeBackup: true})

	assert.True(t, rep.DryRun)
	assert.Equal(t, 3, rep.Removed())
	assert.Equal(t, 0, rep.Repaired())
	assert.False(t, rep.Changed())
	assert.Equal(t, brokenPrefab, read(t, p.root, "Assets/Prefabs/A.prefab"))
	assert.NoDirExists(t, filepath.Join(p.root, "Missing Scripts Tool"))
	assert.Equal(t, 0, p.store.Loaded())
}

func TestRepairWithoutBackupCreatesNoBackupDir(t *testing.T) {
	p := newProject(t)

	rep := p.engine.RepairPrefabs(context.Background(), p.store, []string{"Assets/Prefabs/A.prefab"}, Options{})

	assert.Equal(t, 1, rep.Repaired())
	assert.Empty(t, rep.Results[0].BackupPath)
	assert.NoDirExists(t, p.backups.Root())
}

func TestRepairSkipsIneligiblePaths(t *testing.T) {
	p := newProject(t)

	rep := p.engine.RepairPrefabs(context.Background(), p.store,
		[]string{"Packages/vendor/Button.prefab", "", "Missing Scripts Tool/Backups/x.prefab"},
		Options{MakeBackup: true})

	assert.Empty(t, rep.Results)
	assert.Empty(t, rep.Warnings)
	assert.Equal(t, brokenPrefab, read(t, p.root, "Packages/vendor/Button.prefab"))
	assert.NoDirExists(t, p.backups.Root())
}

func TestRepairContinuesAfterCommitFailure(t *testing.T) {
	p := newProject(t)
	write(t, p.root, "Assets/Prefabs/C.prefab", brokenPrefab)
	spy := &commitSpy{PrefabStore: p.store, fail: map[string]bool{"Assets/Prefabs/B.prefab": true}}

	rep := p.engine.RepairPrefabs(context.Background(), spy,
		[]string{"Assets/Prefabs/A.prefab", "Assets/Prefabs/B.prefab", "Assets/Prefabs/C.prefab"},
		Options{MakeBackup: true})

	require.Len(t, rep.Results, 3)
	assert.True(t, rep.Results[0].Repaired)
	assert.False(t, rep.Results[1].Repaired)
	assert.True(t, rep.Results[2].Repaired)

	var ce *CommitError
	require.ErrorAs(t, rep.Results[1].Err, &ce)
	assert.Equal(t, "Assets/Prefabs/B.prefab", ce.Path)
	require.Len(t, rep.Failed(), 1)

	assert.Equal(t, brokenPrefab, read(t, p.root, "Assets/Prefabs/B.prefab"))
	assert.FileExists(t, p.backupPath("Assets/Prefabs/B.prefab"), "backup is taken before the failed commit")
	assert.Equal(t, 0, p.store.Loaded())
}

func TestRepairReportsLoadErrors(t *testing.T) {
	p := newProject(t)
	write(t, p.root, "Assets/Prefabs/Bad.prefab", "roots: [")

	rep := p.engine.RepairPrefabs(context.Background(), p.store,
		[]string{"Assets/Prefabs/Bad.prefab", "Assets/Prefabs/A.prefab"}, Options{})

	require.Len(t, rep.Warnings, 1)
	var le *store.LoadError
	assert.ErrorAs(t, rep.Warnings[0], &le)
	assert.Equal(t, 1, rep.Repaired())
}

func TestRepairBackupFailureStillCommits(t *testing.T) {
	p := newProject(t)
	p.engine.Backups = failingBackups{}

	rep := p.engine.RepairPrefabs(context.Background(), p.store, []string{"Assets/Prefabs/A.prefab"}, Options{MakeBackup: true})

	assert.Equal(t, 1, rep.Repaired())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0].Error(), "backup Assets/Prefabs/A.prefab")
}

func TestRepairCancellation(t *testing.T) {
	p := newProject(t)
	p.engine.Progress = scan.ProgressFunc(func(_, path string, _ float64) bool {
		return path == "Assets/Prefabs/B.prefab"
	})

	rep := p.engine.RepairPrefabs(context.Background(), p.store,
		[]string{"Assets/Prefabs/A.prefab", "Assets/Prefabs/B.prefab"}, Options{})

	assert.True(t, rep.Cancelled)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, brokenPrefab, read(t, p.root, "Assets/Prefabs/B.prefab"))
}

func TestRepairOpenScenes(t *testing.T) {
	p := newProject(t)
	main, err := p.store.OpenScene("Assets/Scenes/Main.scene", scene.Single)
	require.NoError(t, err)
	_, err = p.store.OpenScene("Assets/Scenes/Side.scene", scene.Additive)
	require.NoError(t, err)

	rep := p.engine.RepairOpenScenes(context.Background(), p.store, Options{MakeBackup: true})

	require.Len(t, rep.Results, 2)
	assert.Equal(t, 2, rep.Repaired())
	assert.False(t, main.Dirty, "saved scenes are clean again")
	assert.NotContains(t, read(t, p.root, "Assets/Scenes/Main.scene"), "dead")
	assert.Equal(t, brokenScene, read(t, p.root, "Missing Scripts Tool/Backups/"+stamp+"/Assets/Scenes/Side.scene"))
}

func TestRepairOpenScenesDryRunKeepsMemory(t *testing.T) {
	p := newProject(t)
	main, err := p.store.OpenScene("Assets/Scenes/Main.scene", scene.Single)
	require.NoError(t, err)

	rep := p.engine.RepairOpenScenes(context.Background(), p.store, Options{DryRun: true, MakeBackup: true})

	assert.Equal(t, 1, rep.Removed())
	assert.Len(t, main.Tree.Node(0).Slots, 2)
	assert.False(t, main.Dirty)
	assert.NoDirExists(t, p.backups.Root())
}

func TestRepairOpenScenesAttributesSaveFailures(t *testing.T) {
	ss := &sceneSpy{
		open: []*scene.Source{
			mustScene(t, "Assets/Scenes/Main.scene"),
			mustScene(t, "Assets/Scenes/Side.scene"),
		},
		saveErr: errors.Join(&store.SaveError{Path: "Assets/Scenes/Side.scene", Err: errors.New("locked")}),
	}
	eng := New(policy.Default(), nil)

	rep := eng.RepairOpenScenes(context.Background(), ss, Options{})

	assert.Equal(t, 1, ss.saves)
	require.Len(t, rep.Results, 2)
	assert.True(t, rep.Results[0].Repaired)
	assert.False(t, rep.Results[1].Repaired)
	var ce *CommitError
	require.ErrorAs(t, rep.Results[1].Err, &ce)
	assert.Equal(t, "locked", ce.Err.Error())
}

func TestRepairOpenScenesUnattributedSaveFailure(t *testing.T) {
	ss := &sceneSpy{
		open:    []*scene.Source{mustScene(t, "Assets/Scenes/Main.scene")},
		saveErr: errors.New("disk full"),
	}

	rep := New(policy.Default(), nil).RepairOpenScenes(context.Background(), ss, Options{})

	require.Len(t, rep.Failed(), 1)
	assert.ErrorContains(t, rep.Failed()[0].Err, "disk full")
}

type commitSpy struct {
	PrefabStore
	fail    map[string]bool
	check   func(*scene.Source)
	commits int
}

func (s *commitSpy) CommitPrefab(src *scene.Source) error {
	s.commits++
	if s.check != nil {
		s.check(src)
	}
	if s.fail[src.Path] {
		return errors.New("permission denied")
	}
	return s.PrefabStore.CommitPrefab(src)
}

type failingBackups struct{}

func (failingBackups) Backup(context.Context, string, string) (string, error) {
	return "", errors.New("disk full")
}

type sceneSpy struct {
	open    []*scene.Source
	saveErr error
	saves   int
}

func (s *sceneSpy) OpenScenes() []*scene.Source { return s.open }
func (s *sceneSpy) MarkDirty(src *scene.Source) { src.Dirty = true }

func (s *sceneSpy) SaveOpenScenes() error {
	s.saves++
	return s.saveErr
}

func mustScene(t *testing.T, path string) *scene.Source {
	t.Helper()
	tree, err := scene.Decode([]byte(brokenScene), nil)
	require.NoError(t, err)
	return &scene.Source{Path: path, Kind: scene.Scene, Tree: tree}
}

func TestRepairKeepsBackupPathWhenJournalFails(t *testing.T) {
	p := newProject(t)
	write(t, p.root, "Missing Scripts Tool/Logs", "not a directory")

	rep := p.engine.RepairPrefabs(context.Background(), p.store, []string{"Assets/Prefabs/A.prefab"}, Options{MakeBackup: true})

	require.Len(t, rep.Results, 1)
	assert.True(t, rep.Results[0].Repaired)
	assert.Equal(t, p.backupPath("Assets/Prefabs/A.prefab"), rep.Results[0].BackupPath)
	require.Len(t, rep.Warnings, 1)
	var je *backup.JournalError
	assert.ErrorAs(t, rep.Warnings[0], &je)
	assert.Equal(t, brokenPrefab, read(t, p.root, "Missing Scripts Tool/Backups/"+stamp+"/Assets/Prefabs/A.prefab"))
}

func TestRepairRunsInSameSecondUseSeparateBatches(t *testing.T) {
	p := newProject(t)

	first := p.engine.RepairPrefabs(context.Background(), p.store, []string{"Assets/Prefabs/A.prefab"}, Options{MakeBackup: true})
	write(t, p.root, "Assets/Prefabs/A.prefab", brokenScene)
	second := p.engine.RepairPrefabs(context.Background(), p.store, []string{"Assets/Prefabs/A.prefab"}, Options{MakeBackup: true})

	assert.Equal(t, stamp, first.Stamp)
	assert.Equal(t, stamp+"-1", second.Stamp)
	assert.Equal(t, brokenPrefab, read(t, p.root, "Missing Scripts Tool/Backups/"+stamp+"/Assets/Prefabs/A.prefab"))
	assert.Equal(t, brokenScene, read(t, p.root, "Missing Scripts Tool/Backups/"+stamp+"-1/Assets/Prefabs/A.prefab"))
}
