package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aisentools/msfix/internal/backup"
	"github.com/aisentools/msfix/internal/policy"
	"github.com/aisentools/msfix/internal/store"
)

// FileName is the per-project config file looked up in the project root.
const FileName = "msfix.yaml"

// Config is the compiled-in configuration with optional overrides.
type Config struct {
	SchemaVersion string       `yaml:"schemaVersion"`
	Paths         PathsConfig  `yaml:"paths"`
	Scan          ScanConfig   `yaml:"scan"`
	Repair        RepairConfig `yaml:"repair"`
	Mirror        MirrorConfig `yaml:"mirror"`
	Watch         WatchConfig  `yaml:"watch"`
}

type PathsConfig struct {
	BackupRoot      string   `yaml:"backupRoot"`
	LogRoot         string   `yaml:"logRoot"`
	VendoredRoots   []string `yaml:"vendoredRoots"`
	PackageCacheDir string   `yaml:"packageCacheDir"`
	Exclude         []string `yaml:"exclude"`
	PrefabExt       string   `yaml:"prefabExt"`
	SceneExt        string   `yaml:"sceneExt"`
	SessionFile     string   `yaml:"sessionFile"`
}

type ScanConfig struct {
	OpenScenes      bool `yaml:"openScenes"`
	AllScenes       bool `yaml:"allScenes"`
	Prefabs         bool `yaml:"prefabs"`
	IncludeInactive bool `yaml:"includeInactive"`
	CacheSize       int  `yaml:"cacheSize"`
}

type RepairConfig struct {
	Backup  bool `yaml:"backup"`
	Confirm bool `yaml:"confirm"`
}

type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type Flags struct {
	ProjectRoot string
	ConfigPath  string
}

// Default returns the compiled-in defaults.
func Default() Config {
	pol := policy.Default()
	opts := store.DefaultOptions()
	return Config{
		SchemaVersion: "1",
		Paths: PathsConfig{
			BackupRoot:      pol.BackupRoot,
			LogRoot:         pol.LogRoot,
			VendoredRoots:   pol.VendoredRoots,
			PackageCacheDir: pol.PackageCacheDir,
			PrefabExt:       opts.PrefabExt,
			SceneExt:        opts.SceneExt,
			SessionFile:     opts.SessionFile,
		},
		Scan: ScanConfig{
			OpenScenes: true,
			Prefabs:    true,
			CacheSize:  1024,
		},
		Repair: RepairConfig{
			Backup:  true,
			Confirm: true,
		},
		Mirror: MirrorConfig{
			Region: "us-east-1",
			Bucket: "msfix-backups",
			UseSSL: true,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Load reads a YAML config file over base; keys absent from the file keep
// their base value.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve layers defaults, the project config file, the project .env and
// MSFIX_* environment variables, then validates. It returns the config, the
// file it was read from (if any) and non-fatal warnings.
func Resolve(flags Flags) (Config, string, []string, error) {
	defaults := Default()
	cfg := defaults
	var cfgPath string
	var warnings []string

	root := flags.ProjectRoot
	if root == "" {
		root = "."
	}

	path := flags.ConfigPath
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	loaded, err := Load(path, defaults)
	switch {
	case err == nil:
		mergeConfigDefaults(&loaded, &defaults)
		cfg = loaded
		cfgPath = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, "", nil, err
	}

	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("ignoring .env: %v", err))
	}
	warnings = append(warnings, applyEnv(&cfg, os.Getenv)...)

	if cfg.Mirror.Endpoint != "" && !cfg.Mirror.Enabled {
		warnings = append(warnings, "mirror endpoint set but mirror is disabled")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", nil, err
	}
	return cfg, cfgPath, warnings, nil
}

// Validate checks the resolved configuration for consistency.
func (c *Config) Validate() error {
	if c.SchemaVersion != "1" {
		return fmt.Errorf("unsupported schemaVersion: %s (expected 1)", c.SchemaVersion)
	}
	if strings.TrimSpace(c.Paths.BackupRoot) == "" || strings.TrimSpace(c.Paths.LogRoot) == "" {
		return fmt.Errorf("paths.backupRoot and paths.logRoot must be set")
	}
	for name, p := range map[string]string{"backupRoot": c.Paths.BackupRoot, "logRoot": c.Paths.LogRoot} {
		n := policy.Normalize(p)
		if filepath.IsAbs(p) || n == ".." || strings.HasPrefix(n, "../") {
			return fmt.Errorf("paths.%s must stay inside the project: %s", name, p)
		}
	}
	for name, ext := range map[string]string{"prefabExt": c.Paths.PrefabExt, "sceneExt": c.Paths.SceneExt} {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("paths.%s must start with '.': %q", name, ext)
		}
	}
	if strings.EqualFold(c.Paths.PrefabExt, c.Paths.SceneExt) {
		return fmt.Errorf("paths.prefabExt and paths.sceneExt must differ")
	}
	if c.Scan.CacheSize < 0 {
		return fmt.Errorf("scan.cacheSize must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Mirror.Enabled && (c.Mirror.Endpoint == "" || c.Mirror.Bucket == "") {
		return fmt.Errorf("mirror.endpoint and mirror.bucket are required when the mirror is enabled")
	}
	return nil
}

func mergeConfigDefaults(cfg *Config, defaults *Config) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = defaults.SchemaVersion
	}
	if cfg.Paths.BackupRoot == "" {
		cfg.Paths.BackupRoot = defaults.Paths.BackupRoot
	}
	if cfg.Paths.LogRoot == "" {
		cfg.Paths.LogRoot = defaults.Paths.LogRoot
	}
	if cfg.Paths.PackageCacheDir == "" {
		cfg.Paths.PackageCacheDir = defaults.Paths.PackageCacheDir
	}
	if cfg.Paths.PrefabExt == "" {
		cfg.Paths.PrefabExt = defaults.Paths.PrefabExt
	}
	if cfg.Paths.SceneExt == "" {
		cfg.Paths.SceneExt = defaults.Paths.SceneExt
	}
	if cfg.Scan.CacheSize == 0 {
		cfg.Scan.CacheSize = defaults.Scan.CacheSize
	}
	if cfg.Mirror.Region == "" {
		cfg.Mirror.Region = defaults.Mirror.Region
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = defaults.Watch.Debounce
	}
}

func applyEnv(cfg *Config, getenv func(string) string) []string {
	var warnings []string
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring %s=%q: not a boolean", key, v))
			return
		}
		*dst = b
	}

	str("MSFIX_BACKUP_ROOT", &cfg.Paths.BackupRoot)
	str("MSFIX_LOG_ROOT", &cfg.Paths.LogRoot)
	boolean("MSFIX_INCLUDE_INACTIVE", &cfg.Scan.IncludeInactive)
	boolean("MSFIX_BACKUP", &cfg.Repair.Backup)

	str("MSFIX_MIRROR_ENDPOINT", &cfg.Mirror.Endpoint)
	str("MSFIX_MIRROR_REGION", &cfg.Mirror.Region)
	str("MSFIX_MIRROR_BUCKET", &cfg.Mirror.Bucket)
	str("MSFIX_MIRROR_PREFIX", &cfg.Mirror.Prefix)
	str("MSFIX_MIRROR_ACCESS_KEY", &cfg.Mirror.AccessKey)
	str("MSFIX_MIRROR_SECRET_KEY", &cfg.Mirror.SecretKey)
	boolean("MSFIX_MIRROR_USE_SSL", &cfg.Mirror.UseSSL)
	boolean("MSFIX_MIRROR", &cfg.Mirror.Enabled)

	if v := strings.TrimSpace(getenv("MSFIX_WATCH_DEBOUNCE")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring MSFIX_WATCH_DEBOUNCE=%q: %v", v, err))
		} else {
			cfg.Watch.Debounce = d
		}
	}
	return warnings
}

// Policy builds the path policy shared by scan, repair and backup.
func (c *Config) Policy() *policy.Policy {
	return &policy.Policy{
		BackupRoot:      c.Paths.BackupRoot,
		LogRoot:         c.Paths.LogRoot,
		VendoredRoots:   c.Paths.VendoredRoots,
		PackageCacheDir: c.Paths.PackageCacheDir,
		ExcludeGlobs:    c.Paths.Exclude,
	}
}

func (c *Config) StoreOptions() store.Options {
	return store.Options{
		PrefabExt:   c.Paths.PrefabExt,
		SceneExt:    c.Paths.SceneExt,
		SessionFile: c.Paths.SessionFile,
	}
}

func (c *Config) S3() backup.S3Config {
	return backup.S3Config{
		Endpoint:  c.Mirror.Endpoint,
		Region:    c.Mirror.Region,
		AccessKey: c.Mirror.AccessKey,
		SecretKey: c.Mirror.SecretKey,
		Bucket:    c.Mirror.Bucket,
		Prefix:    c.Mirror.Prefix,
		UseSSL:    c.Mirror.UseSSL,
	}
}
