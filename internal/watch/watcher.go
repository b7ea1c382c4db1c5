// Package watch turns file system events under a project into debounced
// rescan batches.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"github.com/aisentools/msfix/internal/policy"
)

type Change int

const (
	Ignored Change = iota
	SourceChanged
	ScriptsChanged
)

// engineDirs are regenerated by the editor and never hold sources.
var engineDirs = []string{"Library", "Temp", "Logs", "obj"}

// Classifier decides which project-relative paths matter for a rescan.
type Classifier struct {
	Policy     *policy.Policy
	Extensions []string
}

func (c Classifier) Classify(rel string) Change {
	rel = policy.Normalize(rel)
	if rel == "" || !c.Policy.IsEligible(rel) {
		return Ignored
	}
	lower := strings.ToLower(rel)
	if strings.HasSuffix(lower, ".cs.meta") {
		return ScriptsChanged
	}
	if slices.ContainsFunc(c.Extensions, func(ext string) bool {
		return strings.HasSuffix(lower, strings.ToLower(ext))
	}) {
		return SourceChanged
	}
	return Ignored
}

// SkipDir reports whether a directory is left unwatched.
func (c Classifier) SkipDir(rel string) bool {
	rel = policy.Normalize(rel)
	if rel == "" {
		return false
	}
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if !strings.Contains(rel, "/") && slices.Contains(engineDirs, rel) {
		return true
	}
	return !c.Policy.IsEligible(rel)
}

// Batch is the set of changes collected during one quiet period.
type Batch struct {
	Paths   []string
	Scripts bool
}

type Watcher struct {
	Root       string
	Classifier Classifier
	Debounce   time.Duration
	OnBatch    func(Batch)
	OnError    func(error)

	mu      sync.Mutex
	pending map[string]struct{}
	scripts bool

	// runMu serializes OnBatch calls.
	runMu sync.Mutex
}

func New(root string, c Classifier, delay time.Duration, onBatch func(Batch)) *Watcher {
	return &Watcher{Root: root, Classifier: c, Debounce: delay, OnBatch: onBatch}
}

// Run watches the project until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.Root); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	delay := w.Debounce
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	debounced := debounce.New(delay)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fw, ev.Name); err != nil {
						w.report(err)
					}
				}
			}
			if w.record(ev.Name) {
				debounced(w.flush)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		}
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if w.Classifier.SkipDir(w.rel(path)) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

// record queues a changed path and reports whether it matters.
func (w *Watcher) record(path string) bool {
	rel := policy.Normalize(w.rel(path))
	change := w.Classifier.Classify(rel)
	if change == Ignored {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		w.pending = make(map[string]struct{})
	}
	if change == ScriptsChanged {
		w.scripts = true
	} else {
		w.pending[rel] = struct{}{}
	}
	return true
}

func (w *Watcher) take() Batch {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := Batch{Scripts: w.scripts}
	for p := range w.pending {
		b.Paths = append(b.Paths, p)
	}
	slices.Sort(b.Paths)
	w.pending = nil
	w.scripts = false
	return b
}

func (w *Watcher) flush() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	b := w.take()
	if len(b.Paths) == 0 && !b.Scripts {
		return
	}
	if w.OnBatch != nil {
		w.OnBatch(b)
	}
}

func (w *Watcher) report(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
