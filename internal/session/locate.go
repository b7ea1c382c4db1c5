package session

import (
	"github.com/sahilm/fuzzy"

	"github.com/aisentools/msfix/internal/scene"
)

// Locate finds a node by object path. When there is no exact match it
// returns up to limit node paths that fuzzily match objectPath, best first.
func Locate(t *scene.Tree, objectPath string, limit int) (int, []string) {
	if id, ok := t.Find(objectPath); ok {
		return id, nil
	}

	var paths []string
	t.WalkAll(true, func(id int) bool {
		paths = append(paths, t.Path(id))
		return true
	})

	matches := fuzzy.Find(objectPath, paths)
	var suggestions []string
	for _, m := range matches {
		if len(suggestions) == limit {
			break
		}
		suggestions = append(suggestions, m.Str)
	}
	return -1, suggestions
}
