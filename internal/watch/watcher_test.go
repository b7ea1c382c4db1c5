package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisentools/msfix/internal/policy"
)

func classifier() Classifier {
	return Classifier{Policy: policy.Default(), Extensions: []string{".prefab", ".scene"}}
}

func TestClassify(t *testing.T) {
	c := classifier()
	tests := []struct {
		path string
		want Change
	}{
		{"Assets/Enemy.prefab", SourceChanged},
		{"Assets/Main.SCENE", SourceChanged},
		{"Assets/Scripts/Player.cs.meta", ScriptsChanged},
		{"Assets/Scripts/Player.cs", Ignored},
		{"Assets/Enemy.prefab.meta", Ignored},
		{"Packages/com.vendor/Button.prefab", Ignored},
		{"Missing Scripts Tool/Backups/20250101-000000/Assets/Enemy.prefab", Ignored},
		{"", Ignored},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.path), tt.path)
	}
}

func TestSkipDir(t *testing.T) {
	c := classifier()
	assert.False(t, c.SkipDir(""))
	assert.False(t, c.SkipDir("Assets/Prefabs"))
	assert.True(t, c.SkipDir("Library"))
	assert.False(t, c.SkipDir("Assets/Library"))
	assert.True(t, c.SkipDir(".git"))
	assert.True(t, c.SkipDir("Packages"))
	assert.True(t, c.SkipDir("Missing Scripts Tool/Logs"))
}

func TestRecordAndFlush(t *testing.T) {
	root := t.TempDir()
	var got []Batch
	w := New(root, classifier(), time.Millisecond, func(b Batch) { got = append(got, b) })

	assert.True(t, w.record(filepath.Join(root, "Assets", "B.prefab")))
	assert.True(t, w.record(filepath.Join(root, "Assets", "A.scene")))
	assert.True(t, w.record(filepath.Join(root, "Assets", "A.scene")))
	assert.True(t, w.record(filepath.Join(root, "Assets", "X.cs.meta")))
	assert.False(t, w.record(filepath.Join(root, "Assets", "notes.txt")))

	w.flush()
	w.flush()

	require.Len(t, got, 1, "an empty flush is not delivered")
	assert.Equal(t, Batch{Paths: []string{"Assets/A.scene", "Assets/B.prefab"}, Scripts: true}, got[0])
}

func TestRunDebouncesEvents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Assets"), 0o755))

	var mu sync.Mutex
	var batches []Batch
	w := New(root, classifier(), 50*time.Millisecond, func(b Batch) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, b)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Assets", "New"), 0o755))
	time.Sleep(100 * time.Millisecond)
	for range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "Assets", "New", "E.prefab"), []byte("roots: []\n"), 0o644))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"Assets/New/E.prefab"}, batches[0].Paths)
	mu.Unlock()

	cancel()
	assert.NoError(t, <-done)
}
