package store

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aisentools/msfix/internal/fsutil"
	"github.com/aisentools/msfix/internal/policy"
	"github.com/aisentools/msfix/internal/scene"
)

// LoadError is returned when a source cannot be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SaveError is one failed write of an open scene.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// SaveErrors flattens the error returned by SaveOpenScenes into its per-path failures.
func SaveErrors(err error) []*SaveError {
	if err == nil {
		return nil
	}
	var out []*SaveError
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var se *SaveError
		if errors.As(err, &se) {
			out = append(out, se)
		}
	}
	walk(err)
	return out
}

type Options struct {
	PrefabExt string
	SceneExt  string
	// SessionFile is project-relative; empty disables persistence.
	SessionFile string
}

func DefaultOptions() Options {
	return Options{
		PrefabExt:   ".prefab",
		SceneExt:    ".scene",
		SessionFile: "Library/msfix/session.yaml",
	}
}

// FileStore serves prefab and scene sources from a project directory and
// keeps the in-memory set of open scenes.
type FileStore struct {
	root    string
	opts    Options
	scripts ScriptIndex

	loaded map[*scene.Source]struct{}
	open   []*scene.Source
	active int
}

// Open indexes scripts under root. Call RestoreSession to reopen the
// persisted working set.
func Open(root string, opts Options) (*FileStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open project: %s is not a directory", root)
	}
	def := DefaultOptions()
	if opts.PrefabExt == "" {
		opts.PrefabExt = def.PrefabExt
	}
	if opts.SceneExt == "" {
		opts.SceneExt = def.SceneExt
	}

	fs := &FileStore{
		root:   root,
		opts:   opts,
		loaded: make(map[*scene.Source]struct{}),
	}
	if err := fs.RefreshScripts(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) Root() string {
	return fs.root
}

// Abs maps a project-relative path to the filesystem.
func (fs *FileStore) Abs(rel string) string {
	return filepath.Join(fs.root, filepath.FromSlash(policy.Normalize(rel)))
}

// RefreshScripts rebuilds the script index from *.cs.meta files.
func (fs *FileStore) RefreshScripts() error {
	idx, err := BuildScriptIndex(os.DirFS(fs.root))
	if err != nil {
		return fmt.Errorf("index scripts: %w", err)
	}
	fs.scripts = idx
	return nil
}

func (fs *FileStore) Scripts() ScriptIndex {
	return fs.scripts
}

// Resolve is the slot resolver for sources from this project.
func (fs *FileStore) Resolve(s scene.Slot) bool {
	if s.Type != "" {
		return true
	}
	return s.Script != "" && fs.scripts.Has(s.Script)
}

func (fs *FileStore) ext(kind scene.Kind) string {
	if kind == scene.Prefab {
		return fs.opts.PrefabExt
	}
	return fs.opts.SceneExt
}

// KindOf infers the source kind from the file extension.
func (fs *FileStore) KindOf(p string) (scene.Kind, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case strings.ToLower(fs.opts.PrefabExt):
		return scene.Prefab, true
	case strings.ToLower(fs.opts.SceneExt):
		return scene.Scene, true
	}
	return 0, false
}

// EnumerateAssets lists project-relative paths of every asset of kind under
// roots, sorted and deduplicated. Nil roots means the whole project; roots
// that do not exist are ignored.
func (fs *FileStore) EnumerateAssets(kind scene.Kind, roots []string) ([]string, error) {
	pattern := "**/*" + fs.ext(kind)
	if len(roots) == 0 {
		roots = []string{""}
	}

	seen := make(map[string]struct{})
	var out []string
	fsys := os.DirFS(fs.root)
	for _, root := range roots {
		root = policy.Normalize(root)
		glob := pattern
		if root != "" {
			glob = escapeMeta(root) + "/" + pattern
		}
		matches, err := doublestar.Glob(fsys, glob, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("enumerate %s assets under %q: %w", kind, root, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fingerprint identifies the on-disk revision of a source.
func (fs *FileStore) Fingerprint(rel string) (string, error) {
	info, err := os.Stat(fs.Abs(rel))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d-%d", info.Size(), info.ModTime().UnixNano(), fs.scripts.Len()), nil
}

func (fs *FileStore) read(rel string, kind scene.Kind) (*scene.Source, error) {
	rel = policy.Normalize(rel)
	data, err := os.ReadFile(fs.Abs(rel))
	if err != nil {
		return nil, &LoadError{Path: rel, Err: err}
	}
	tree, err := scene.Decode(data, fs.Resolve)
	if err != nil {
		return nil, &LoadError{Path: rel, Err: err}
	}
	return &scene.Source{Path: rel, Kind: kind, Tree: tree}, nil
}

func (fs *FileStore) write(src *scene.Source) error {
	data, err := scene.Encode(src.Tree)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(fs.Abs(src.Path), data)
}

// LoadPrefab loads a prefab in isolation. Every successful load must be
// paired with UnloadPrefab.
func (fs *FileStore) LoadPrefab(rel string) (*scene.Source, error) {
	src, err := fs.read(rel, scene.Prefab)
	if err != nil {
		return nil, err
	}
	fs.loaded[src] = struct{}{}
	return src, nil
}

func (fs *FileStore) UnloadPrefab(src *scene.Source) {
	if src == nil {
		return
	}
	delete(fs.loaded, src)
	src.Tree = nil
}

func (fs *FileStore) CommitPrefab(src *scene.Source) error {
	if _, ok := fs.loaded[src]; !ok {
		return fmt.Errorf("commit %s: prefab is not loaded", src.Path)
	}
	if err := fs.write(src); err != nil {
		return fmt.Errorf("commit %s: %w", src.Path, err)
	}
	src.Dirty = false
	return nil
}

// Loaded reports how many prefabs are currently loaded.
func (fs *FileStore) Loaded() int {
	return len(fs.loaded)
}

func (fs *FileStore) OpenScenes() []*scene.Source {
	return slices.Clone(fs.open)
}

func (fs *FileStore) ActiveScene() *scene.Source {
	if len(fs.open) == 0 {
		return nil
	}
	return fs.open[fs.active]
}

// OpenScene loads a scene into the working set. Single discards every open
// scene, unsaved changes included. Opening an already open scene
// additively returns the open instance.
func (fs *FileStore) OpenScene(rel string, mode scene.OpenMode) (*scene.Source, error) {
	rel = policy.Normalize(rel)
	if mode == scene.Additive {
		if src := fs.openScene(rel); src != nil {
			return src, nil
		}
	}
	src, err := fs.read(rel, scene.Scene)
	if err != nil {
		return nil, err
	}
	if mode == scene.Single {
		fs.open = nil
		fs.active = 0
	}
	fs.open = append(fs.open, src)
	return src, nil
}

func (fs *FileStore) openScene(rel string) *scene.Source {
	for _, src := range fs.open {
		if src.Path == rel {
			return src
		}
	}
	return nil
}

func (fs *FileStore) SetActive(rel string) error {
	rel = policy.Normalize(rel)
	for i, src := range fs.open {
		if src.Path == rel {
			fs.active = i
			return nil
		}
	}
	return fmt.Errorf("scene %s is not open", rel)
}

// ReresolveOpen recomputes every slot of the open scenes against the
// current script index. Call it after RefreshScripts.
func (fs *FileStore) ReresolveOpen() {
	for _, src := range fs.open {
		if src.Tree == nil {
			continue
		}
		for i := range src.Tree.Nodes {
			slots := src.Tree.Nodes[i].Slots
			for j := range slots {
				slots[j].Resolved = fs.Resolve(slots[j])
			}
		}
	}
}

// ReloadOpen rereads the open scenes named in paths from disk, in place.
// Scenes with unsaved changes are kept as they are. Scenes that fail to
// load stay open with their previous contents and are reported as joined
// *LoadError values.
func (fs *FileStore) ReloadOpen(paths []string) ([]string, error) {
	var reloaded []string
	var errs []error
	for _, rel := range paths {
		rel = policy.Normalize(rel)
		i := slices.IndexFunc(fs.open, func(src *scene.Source) bool { return src.Path == rel })
		if i < 0 || fs.open[i].Dirty {
			continue
		}
		src, err := fs.read(rel, scene.Scene)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fs.open[i] = src
		reloaded = append(reloaded, rel)
	}
	return reloaded, errors.Join(errs...)
}

func (fs *FileStore) MarkDirty(src *scene.Source) {
	src.Dirty = true
}

// SaveOpenScenes writes every dirty open scene. Failures are joined
// *SaveError values; scenes that saved are marked clean.
func (fs *FileStore) SaveOpenScenes() error {
	var errs []error
	for _, src := range fs.open {
		if !src.Dirty {
			continue
		}
		if err := fs.write(src); err != nil {
			errs = append(errs, &SaveError{Path: src.Path, Err: err})
			continue
		}
		src.Dirty = false
	}
	return errors.Join(errs...)
}
