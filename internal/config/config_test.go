package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveDefaults(t *testing.T) {
	cfg, path, warnings, err := Resolve(Flags{ProjectRoot: t.TempDir()})
	require.NoError(t, err)

	assert.Empty(t, path)
	assert.Empty(t, warnings)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "Missing Scripts Tool/Backups", cfg.Policy().BackupRoot)
	assert.Equal(t, ".prefab", cfg.StoreOptions().PrefabExt)
}

func TestResolveProjectFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
paths:
  exclude: ["Assets/ThirdParty/**"]
  sceneExt: .unity
scan:
  allScenes: true
  prefabs: false
watch:
  debounce: 1s
`)

	cfg, path, _, err := Resolve(Flags{ProjectRoot: root})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, FileName), path)
	assert.Equal(t, []string{"Assets/ThirdParty/**"}, cfg.Policy().ExcludeGlobs)
	assert.Equal(t, ".unity", cfg.Paths.SceneExt)
	assert.Equal(t, ".prefab", cfg.Paths.PrefabExt)
	assert.True(t, cfg.Scan.AllScenes)
	assert.True(t, cfg.Scan.OpenScenes, "unset keys keep their default")
	assert.False(t, cfg.Scan.Prefabs)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "1", cfg.SchemaVersion)
}

func TestResolveExplicitMissingFile(t *testing.T) {
	_, _, _, err := Resolve(Flags{ProjectRoot: t.TempDir(), ConfigPath: "nope.yaml"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveRejectsBadFile(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, FileName), "scan: [")
	_, _, _, err := Resolve(Flags{ProjectRoot: root})
	assert.Error(t, err)

	writeFile(t, filepath.Join(root, FileName), "schemaVersion: \"2\"\n")
	_, _, _, err = Resolve(Flags{ProjectRoot: root})
	assert.ErrorContains(t, err, "unsupported schemaVersion")

	writeFile(t, filepath.Join(root, FileName), "paths:\n  backupRoot: ../elsewhere\n")
	_, _, _, err = Resolve(Flags{ProjectRoot: root})
	assert.ErrorContains(t, err, "inside the project")
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv("MSFIX_INCLUDE_INACTIVE", "true")
	t.Setenv("MSFIX_BACKUP", "nope")
	t.Setenv("MSFIX_WATCH_DEBOUNCE", "50ms")
	t.Setenv("MSFIX_MIRROR_ENDPOINT", "localhost:9000")

	cfg, _, warnings, err := Resolve(Flags{ProjectRoot: t.TempDir()})
	require.NoError(t, err)

	assert.True(t, cfg.Scan.IncludeInactive)
	assert.True(t, cfg.Repair.Backup, "invalid boolean is ignored")
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "localhost:9000", cfg.S3().Endpoint)
	assert.Contains(t, warnings, `ignoring MSFIX_BACKUP="nope": not a boolean`)
	assert.Contains(t, warnings, "mirror endpoint set but mirror is disabled")
}

func TestResolveDotEnv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "MSFIX_MIRROR_PREFIX=team-a\n")
	t.Cleanup(func() { _ = os.Unsetenv("MSFIX_MIRROR_PREFIX") })

	cfg, _, _, err := Resolve(Flags{ProjectRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "team-a", cfg.Mirror.Prefix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty backup root", func(c *Config) { c.Paths.BackupRoot = " " }, false},
		{"absolute log root", func(c *Config) { c.Paths.LogRoot = "/var/log" }, false},
		{"extension without dot", func(c *Config) { c.Paths.PrefabExt = "prefab" }, false},
		{"same extensions", func(c *Config) { c.Paths.SceneExt = ".PREFAB" }, false},
		{"negative cache", func(c *Config) { c.Scan.CacheSize = -1 }, false},
		{"mirror without endpoint", func(c *Config) { c.Mirror.Enabled = true }, false},
		{"mirror", func(c *Config) { c.Mirror.Enabled = true; c.Mirror.Endpoint = "s3.local" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
