package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/aisentools/msfix/internal/backup"
	"github.com/aisentools/msfix/internal/policy"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
)

// CommitError means a repaired source could not be written back.
type CommitError struct {
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Path, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

type Options struct {
	DryRun     bool
	MakeBackup bool
}

// Backupper snapshots a source before it is overwritten. A non-empty
// destination returned with an error is a usable copy plus a warning.
type Backupper interface {
	Backup(ctx context.Context, sourcePath, stamp string) (string, error)
}

// PrefabStore loads prefabs in isolation and writes them back.
type PrefabStore interface {
	LoadPrefab(path string) (*scene.Source, error)
	UnloadPrefab(src *scene.Source)
	CommitPrefab(src *scene.Source) error
}

// SceneStore exposes the open scenes and persists them in one batch.
type SceneStore interface {
	OpenScenes() []*scene.Source
	MarkDirty(src *scene.Source)
	SaveOpenScenes() error
}

type SourceResult struct {
	Path       string
	Kind       scene.Kind
	Removed    int
	Repaired   bool
	BackupPath string
	Err        error
}

type Report struct {
	Stamp     string
	DryRun    bool
	Results   []SourceResult
	Warnings  []error
	Cancelled bool
}

// Removed is the number of dangling slots stripped, or that would be in a dry run.
func (r *Report) Removed() int {
	total := 0
	for _, res := range r.Results {
		total += res.Removed
	}
	return total
}

func (r *Report) Repaired() int {
	n := 0
	for _, res := range r.Results {
		if res.Repaired {
			n++
		}
	}
	return n
}

func (r *Report) Failed() []SourceResult {
	var out []SourceResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Changed reports whether anything was written, which is when the caller
// should rescan.
func (r *Report) Changed() bool {
	return r.Repaired() > 0
}

type Engine struct {
	Policy   *policy.Policy
	Backups  Backupper
	Progress scan.Progress
	Now      func() time.Time
}

func New(pol *policy.Policy, backups Backupper) *Engine {
	return &Engine{Policy: pol, Backups: backups, Now: time.Now}
}

// RepairPrefabs strips dangling slots from each prefab, loading and
// releasing them one at a time.
func (e *Engine) RepairPrefabs(ctx context.Context, st PrefabStore, paths []string, opts Options) *Report {
	return e.run(ctx, &prefabFlavor{store: st}, paths, opts)
}

// RepairOpenScenes strips dangling slots from the open scenes in place and
// saves the changed ones together at the end.
func (e *Engine) RepairOpenScenes(ctx context.Context, st SceneStore, opts Options) *Report {
	f := newSceneFlavor(st)
	return e.run(ctx, f, f.paths(), opts)
}

func (e *Engine) run(ctx context.Context, f flavor, paths []string, opts Options) *Report {
	pol := e.Policy
	if pol == nil {
		pol = policy.Default()
	}
	now := e.Now
	if now == nil {
		now = time.Now
	}
	rep := &Report{Stamp: e.stamp(now()), DryRun: opts.DryRun}

	for i, p := range paths {
		if e.cancelled(ctx, f.label(), p, i, len(paths)) {
			rep.Cancelled = true
			break
		}
		if !pol.IsEligible(p) {
			continue
		}
		rep.Results = append(rep.Results, e.one(ctx, f, p, rep, opts))
	}

	for path, err := range f.finish() {
		for i := range rep.Results {
			if rep.Results[i].Path == path && rep.Results[i].Repaired {
				rep.Results[i].Repaired = false
				rep.Results[i].Err = &CommitError{Path: path, Err: err}
			}
		}
	}
	return rep
}

func (e *Engine) one(ctx context.Context, f flavor, p string, rep *Report, opts Options) SourceResult {
	res := SourceResult{Path: p, Kind: f.kind()}

	src, err := f.load(p)
	if err != nil {
		res.Err = err
		rep.Warnings = append(rep.Warnings, err)
		return res
	}
	defer f.release(src)

	tree := src.Tree
	if opts.DryRun {
		tree = tree.Clone()
	}
	res.Removed = tree.RemoveAllDangling()
	if res.Removed == 0 || opts.DryRun {
		return res
	}

	if opts.MakeBackup && e.Backups != nil {
		dst, err := e.Backups.Backup(ctx, p, rep.Stamp)
		if dst != "" {
			res.BackupPath = dst
		}
		if err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Errorf("backup %s: %w", p, err))
		}
	}

	if err := f.commit(src); err != nil {
		res.Err = &CommitError{Path: p, Err: err}
		return res
	}
	res.Repaired = true
	return res
}

// stamp names the backup batch, avoiding a directory left by an earlier
// run in the same second when the backupper can tell.
func (e *Engine) stamp(t time.Time) string {
	if fs, ok := e.Backups.(interface{ FreeStamp(time.Time) string }); ok {
		return fs.FreeStamp(t)
	}
	return backup.NewStamp(t)
}

func (e *Engine) cancelled(ctx context.Context, label, path string, i, n int) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if e.Progress == nil {
		return false
	}
	frac := 0.0
	if n > 0 {
		frac = float64(i) / float64(n)
	}
	return e.Progress.Report(label, path, frac)
}
