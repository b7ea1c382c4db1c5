package session

import (
	"errors"
	"fmt"

	"github.com/aisentools/msfix/internal/scene"
)

// WorkingSet is the set of open scenes a scan may temporarily replace.
type WorkingSet interface {
	OpenScenes() []*scene.Source
	ActiveScene() *scene.Source
	OpenScene(path string, mode scene.OpenMode) (*scene.Source, error)
	SetActive(path string) error
}

// Snapshot is the ordered list of open scene paths plus the active one.
type Snapshot struct {
	Paths  []string `yaml:"open"`
	Active string   `yaml:"active,omitempty"`
}

func (s Snapshot) Empty() bool {
	return len(s.Paths) == 0
}

// Capture records the open scenes in order. Unsaved scenes with no path are
// left out since they cannot be reopened.
func Capture(ws WorkingSet) Snapshot {
	var snap Snapshot
	for _, src := range ws.OpenScenes() {
		if src.Path == "" {
			continue
		}
		snap.Paths = append(snap.Paths, src.Path)
	}
	if active := ws.ActiveScene(); active != nil {
		snap.Active = active.Path
	}
	return snap
}

// Restore replaces the open set with the snapshot: the first path opens
// Single, the rest Additive in order, then the captured active scene is
// re-selected. An empty snapshot is a no-op. A scene that fails to open is
// reported and the rest are still opened.
func Restore(ws WorkingSet, snap Snapshot) error {
	if snap.Empty() {
		return nil
	}

	var errs []error
	mode := scene.Single
	for _, p := range snap.Paths {
		if _, err := ws.OpenScene(p, mode); err != nil {
			errs = append(errs, fmt.Errorf("reopen %s: %w", p, err))
			continue
		}
		mode = scene.Additive
	}

	if snap.Active != "" && mode == scene.Additive {
		if err := ws.SetActive(snap.Active); err != nil {
			errs = append(errs, fmt.Errorf("reactivate %s: %w", snap.Active, err))
		}
	}
	return errors.Join(errs...)
}
