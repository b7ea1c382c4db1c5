package detect

import (
	"github.com/aisentools/msfix/internal/scene"
)

// Finding records one node, in one source, carrying at least one dangling
// component slot. The whole struct is the dedup key.
type Finding struct {
	Kind       scene.Kind `json:"kind"`
	SourcePath string     `json:"sourcePath"`
	ObjectPath string     `json:"objectPath"`
}

// HasDanglingSlot reports whether any slot on the node is unresolved.
func HasDanglingSlot(t *scene.Tree, id int) bool {
	for _, s := range t.Node(id).Slots {
		if s.Dangling() {
			return true
		}
	}
	return false
}

// CollectDangling walks every root of the tree and emits one Finding per node
// with dangling slots, no matter how many of its slots are dangling.
func CollectDangling(t *scene.Tree, sourcePath string, kind scene.Kind, includeInactive bool) []Finding {
	var out []Finding
	t.WalkAll(includeInactive, func(id int) bool {
		if HasDanglingSlot(t, id) {
			out = append(out, Finding{
				Kind:       kind,
				SourcePath: sourcePath,
				ObjectPath: t.Path(id),
			})
		}
		return true
	})
	return out
}
