// Package project wires a resolved configuration into the stores and
// engines every command works with.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aisentools/msfix/internal/backup"
	"github.com/aisentools/msfix/internal/config"
	"github.com/aisentools/msfix/internal/detect"
	"github.com/aisentools/msfix/internal/journal"
	"github.com/aisentools/msfix/internal/policy"
	"github.com/aisentools/msfix/internal/repair"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/store"
)

type Project struct {
	Root       string
	Config     config.Config
	ConfigPath string

	// Warnings collects non-fatal problems found while opening.
	Warnings []string

	Policy  *policy.Policy
	Store   *store.FileStore
	Journal *journal.Journal
	Backups *backup.Store
	Cache   *scan.Cache
}

// Open resolves configuration for the project at flags.ProjectRoot and
// restores the persisted scene working set.
func Open(flags config.Flags) (*Project, error) {
	root := flags.ProjectRoot
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open project: %s is not a directory", root)
	}
	flags.ProjectRoot = root

	cfg, cfgPath, warnings, err := config.Resolve(flags)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Root:       root,
		Config:     cfg,
		ConfigPath: cfgPath,
		Warnings:   warnings,
		Policy:     cfg.Policy(),
	}

	p.Store, err = store.Open(root, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	if err := p.Store.RestoreSession(); err != nil {
		p.Warnings = append(p.Warnings, fmt.Sprintf("session not restored: %v", err))
	}

	p.Journal = journal.New(filepath.Join(root, filepath.FromSlash(cfg.Paths.LogRoot)))
	p.Backups = backup.New(root, p.Policy, p.Journal)
	if cfg.Mirror.Enabled {
		mirror, err := backup.NewS3Mirror(cfg.S3())
		if err != nil {
			return nil, fmt.Errorf("backup mirror: %w", err)
		}
		p.Backups.WithMirror(mirror)
	}

	p.Cache, err = scan.NewCache(cfg.Scan.CacheSize)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Scanner returns a scanner over the project store sharing the project cache.
func (p *Project) Scanner(progress scan.Progress) *scan.Scanner {
	s := scan.New(p.Store, p.Policy)
	s.Progress = progress
	s.Cache = p.Cache
	return s
}

func (p *Project) Engine(progress scan.Progress) *repair.Engine {
	e := repair.New(p.Policy, p.Backups)
	e.Progress = progress
	return e
}

// ScanOptions returns the configured scan passes.
func (p *Project) ScanOptions() scan.Options {
	return scan.Options{
		IncludeOpenScenes: p.Config.Scan.OpenScenes,
		IncludeAllScenes:  p.Config.Scan.AllScenes,
		IncludePrefabs:    p.Config.Scan.Prefabs,
		IncludeInactive:   p.Config.Scan.IncludeInactive,
	}
}

func (p *Project) RepairOptions(dryRun bool) repair.Options {
	return repair.Options{DryRun: dryRun, MakeBackup: p.Config.Repair.Backup}
}

// Scan runs the configured passes restricted to roots.
func (p *Project) Scan(ctx context.Context, roots []string, progress scan.Progress) (*scan.Result, error) {
	opts := p.ScanOptions()
	opts.Roots = roots
	return p.Scanner(progress).Scan(ctx, opts)
}

// Repair fixes one kind of source. Prefabs come from the prefab findings of
// set; scenes are the open scenes.
func (p *Project) Repair(ctx context.Context, kind scene.Kind, set *detect.ResultSet, opts repair.Options, progress scan.Progress) *repair.Report {
	engine := p.Engine(progress)
	if kind == scene.Scene {
		return engine.RepairOpenScenes(ctx, p.Store, opts)
	}
	var paths []string
	if set != nil {
		paths = set.SourcePaths(scene.Prefab)
	}
	return engine.RepairPrefabs(ctx, p.Store, paths, opts)
}

// Refresh brings in-memory state up to date with files changed on disk.
// A script change rebuilds the script index, re-resolves the open scenes
// and drops every cached finding. Changed open scenes without unsaved
// edits are reloaded. Errors are non-fatal: whatever could be refreshed
// was.
func (p *Project) Refresh(changed []string, scripts bool) error {
	var errs []error
	if scripts {
		if err := p.Store.RefreshScripts(); err != nil {
			errs = append(errs, err)
		} else {
			p.Store.ReresolveOpen()
		}
		p.Cache.Purge()
	}
	if _, err := p.Store.ReloadOpen(changed); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Rel converts an operator-supplied path to a project-relative one.
// Relative paths are taken relative to the current directory first and the
// project root second.
func (p *Project) Rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return policy.Normalize(path), nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		path = abs
	}
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return "", err
	}
	rel = policy.Normalize(filepath.ToSlash(rel))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the project", path)
	}
	return rel, nil
}

// Close persists the scene working set.
func (p *Project) Close() error {
	return p.Store.SaveSession()
}
