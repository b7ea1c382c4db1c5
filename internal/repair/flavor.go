package repair

import (
	"fmt"

	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/store"
)

// flavor is how one source kind is loaded, written and released.
type flavor interface {
	kind() scene.Kind
	label() string
	load(path string) (*scene.Source, error)
	commit(src *scene.Source) error
	release(src *scene.Source)
	// finish flushes deferred writes and returns failures by path.
	finish() map[string]error
}

type prefabFlavor struct {
	store PrefabStore
}

func (f *prefabFlavor) kind() scene.Kind { return scene.Prefab }
func (f *prefabFlavor) label() string    { return "Repairing prefabs" }

func (f *prefabFlavor) load(path string) (*scene.Source, error) {
	return f.store.LoadPrefab(path)
}

func (f *prefabFlavor) commit(src *scene.Source) error {
	return f.store.CommitPrefab(src)
}

func (f *prefabFlavor) release(src *scene.Source) {
	f.store.UnloadPrefab(src)
}

func (f *prefabFlavor) finish() map[string]error {
	return nil
}

// sceneFlavor works on scenes that are already open. Commit only marks a
// scene dirty; the write happens once in finish.
type sceneFlavor struct {
	store SceneStore
	open  map[string]*scene.Source
	order []string
	dirty int
}

func newSceneFlavor(st SceneStore) *sceneFlavor {
	f := &sceneFlavor{store: st, open: make(map[string]*scene.Source)}
	for _, src := range st.OpenScenes() {
		if _, dup := f.open[src.Path]; dup {
			continue
		}
		f.open[src.Path] = src
		f.order = append(f.order, src.Path)
	}
	return f
}

func (f *sceneFlavor) paths() []string { return f.order }

func (f *sceneFlavor) kind() scene.Kind { return scene.Scene }
func (f *sceneFlavor) label() string    { return "Repairing open scenes" }

func (f *sceneFlavor) load(path string) (*scene.Source, error) {
	src, ok := f.open[path]
	if !ok {
		return nil, fmt.Errorf("scene %s is not open", path)
	}
	return src, nil
}

func (f *sceneFlavor) commit(src *scene.Source) error {
	f.store.MarkDirty(src)
	f.dirty++
	return nil
}

func (f *sceneFlavor) release(*scene.Source) {}

func (f *sceneFlavor) finish() map[string]error {
	if f.dirty == 0 {
		return nil
	}
	err := f.store.SaveOpenScenes()
	if err == nil {
		return nil
	}
	failed := make(map[string]error)
	for _, se := range store.SaveErrors(err) {
		failed[se.Path] = se.Err
	}
	if len(failed) == 0 {
		// unattributed failure: every scene marked dirty in this run failed
		for _, p := range f.order {
			if f.open[p].Dirty {
				failed[p] = err
			}
		}
	}
	return failed
}
