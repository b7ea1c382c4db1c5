package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/aisentools/msfix/internal/detect"
	"github.com/aisentools/msfix/internal/policy"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/session"
)

// Progress receives one report per source before it is processed.
// Returning true asks the scan to stop at this source boundary.
type Progress interface {
	Report(label, path string, fraction float64) (cancel bool)
}

type ProgressFunc func(label, path string, fraction float64) bool

func (f ProgressFunc) Report(label, path string, fraction float64) bool {
	return f(label, path, fraction)
}

// Workspace is everything a scan needs from the project.
type Workspace interface {
	session.WorkingSet
	EnumerateAssets(kind scene.Kind, roots []string) ([]string, error)
	LoadPrefab(path string) (*scene.Source, error)
	UnloadPrefab(src *scene.Source)
}

// Fingerprinter is implemented by workspaces whose sources can be cached.
type Fingerprinter interface {
	Fingerprint(path string) (string, error)
}

type Options struct {
	IncludeOpenScenes bool
	IncludeAllScenes  bool
	IncludePrefabs    bool
	IncludeInactive   bool
	// Roots restricts prefab and project scene enumeration. Nil scans everything.
	Roots []string
}

type Result struct {
	Set       *detect.ResultSet
	Warnings  []error
	Cancelled bool
	Sources   int
	CacheHits int
	Elapsed   time.Duration
}

type Scanner struct {
	Workspace Workspace
	Policy    *policy.Policy
	Progress  Progress
	Cache     *Cache
}

func New(ws Workspace, pol *policy.Policy) *Scanner {
	return &Scanner{Workspace: ws, Policy: pol}
}

type run struct {
	*Scanner
	ctx    context.Context
	opts   Options
	result *Result
}

// Scan runs the selected passes in order: prefabs, open scenes, then every
// project scene. A cancelled scan keeps what it found so far.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	if s.Workspace == nil {
		return nil, fmt.Errorf("scan: no workspace")
	}
	if s.Policy == nil {
		s.Policy = policy.Default()
	}

	start := time.Now()
	r := &run{
		Scanner: s,
		ctx:     ctx,
		opts:    opts,
		result:  &Result{Set: detect.NewResultSet()},
	}

	passes := []struct {
		enabled bool
		fn      func() (bool, error)
	}{
		{opts.IncludePrefabs, r.prefabs},
		{opts.IncludeOpenScenes, r.openScenes},
		{opts.IncludeAllScenes, r.allScenes},
	}
	for _, pass := range passes {
		if !pass.enabled {
			continue
		}
		stop, err := pass.fn()
		if err != nil {
			r.result.Elapsed = time.Since(start)
			return r.result, err
		}
		if stop {
			r.result.Cancelled = true
			break
		}
	}

	r.result.Elapsed = time.Since(start)
	return r.result, nil
}

func (r *run) cancelled(label, path string, i, n int) bool {
	if r.ctx != nil && r.ctx.Err() != nil {
		return true
	}
	if r.Progress == nil {
		return false
	}
	frac := 0.0
	if n > 0 {
		frac = float64(i) / float64(n)
	}
	return r.Progress.Report(label, path, frac)
}

func (r *run) warn(err error) {
	r.result.Warnings = append(r.result.Warnings, err)
}

func (r *run) enumerate(kind scene.Kind) ([]string, error) {
	paths, err := r.Workspace.EnumerateAssets(kind, r.opts.Roots)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s sources: %w", kind, err)
	}
	return r.Policy.Filter(paths), nil
}

func (r *run) prefabs() (bool, error) {
	paths, err := r.enumerate(scene.Prefab)
	if err != nil {
		return false, err
	}
	for i, p := range paths {
		if r.cancelled("Scanning prefabs", p, i, len(paths)) {
			return true, nil
		}
		r.file(p, scene.Prefab, func() ([]detect.Finding, error) {
			src, err := r.Workspace.LoadPrefab(p)
			if err != nil {
				return nil, err
			}
			defer r.Workspace.UnloadPrefab(src)
			return detect.CollectDangling(src.Tree, p, scene.Prefab, r.opts.IncludeInactive), nil
		})
	}
	return false, nil
}

func (r *run) openScenes() (bool, error) {
	open := r.Workspace.OpenScenes()
	for i, src := range open {
		if r.cancelled("Scanning open scenes", src.Path, i, len(open)) {
			return true, nil
		}
		// unsaved scenes have no path and are still inspected
		if src.Path != "" && !r.Policy.IsEligible(src.Path) {
			continue
		}
		r.result.Sources++
		r.result.Set.AddAll(detect.CollectDangling(src.Tree, src.Path, scene.Scene, r.opts.IncludeInactive))
	}
	return false, nil
}

func (r *run) allScenes() (stop bool, err error) {
	paths, err := r.enumerate(scene.Scene)
	if err != nil {
		return false, err
	}
	if len(paths) == 0 {
		return false, nil
	}

	snap := session.Capture(r.Workspace)
	defer func() {
		if rerr := session.Restore(r.Workspace, snap); rerr != nil {
			r.warn(fmt.Errorf("restore open scenes: %w", rerr))
		}
	}()

	for i, p := range paths {
		if r.cancelled("Scanning project scenes", p, i, len(paths)) {
			return true, nil
		}
		r.file(p, scene.Scene, func() ([]detect.Finding, error) {
			src, err := r.Workspace.OpenScene(p, scene.Single)
			if err != nil {
				return nil, err
			}
			return detect.CollectDangling(src.Tree, p, scene.Scene, r.opts.IncludeInactive), nil
		})
	}
	return false, nil
}

// file scans one file-backed source, going through the cache when the
// workspace can fingerprint it. Load failures become warnings.
func (r *run) file(p string, kind scene.Kind, load func() ([]detect.Finding, error)) {
	var key cacheKey
	fp, canCache := r.fingerprint(p)
	if canCache {
		key = cacheKey{path: kind.String() + ":" + p, fingerprint: fp, includeInactive: r.opts.IncludeInactive}
		if findings, ok := r.Cache.get(key); ok {
			r.result.Sources++
			r.result.CacheHits++
			r.result.Set.AddAll(findings)
			return
		}
	}

	findings, err := load()
	if err != nil {
		r.warn(err)
		return
	}
	r.result.Sources++
	r.result.Set.AddAll(findings)
	if canCache {
		r.Cache.put(key, findings)
	}
}

func (r *run) fingerprint(p string) (string, bool) {
	if r.Cache == nil {
		return "", false
	}
	fpr, ok := r.Workspace.(Fingerprinter)
	if !ok {
		return "", false
	}
	fp, err := fpr.Fingerprint(p)
	if err != nil {
		return "", false
	}
	return fp, true
}
