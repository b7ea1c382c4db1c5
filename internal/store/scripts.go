package store

import (
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ScriptIndex holds the GUIDs of every script the project defines.
type ScriptIndex struct {
	guids map[string]string // guid -> .cs.meta path
}

type metaDoc struct {
	GUID string `yaml:"guid"`
}

// BuildScriptIndex reads the guid of every *.cs.meta file in fsys.
// Unreadable or malformed meta files are skipped.
func BuildScriptIndex(fsys fs.FS) (ScriptIndex, error) {
	idx := ScriptIndex{guids: make(map[string]string)}
	matches, err := doublestar.Glob(fsys, "**/*.cs.meta", doublestar.WithFilesOnly())
	if err != nil {
		return idx, err
	}
	for _, m := range matches {
		data, err := fs.ReadFile(fsys, m)
		if err != nil {
			continue
		}
		var meta metaDoc
		if err := yaml.Unmarshal(data, &meta); err != nil {
			continue
		}
		if guid := strings.ToLower(strings.TrimSpace(meta.GUID)); guid != "" {
			idx.guids[guid] = m
		}
	}
	return idx, nil
}

func (idx ScriptIndex) Has(guid string) bool {
	_, ok := idx.guids[strings.ToLower(strings.TrimSpace(guid))]
	return ok
}

// Script returns the meta file that declares guid.
func (idx ScriptIndex) Script(guid string) (string, bool) {
	p, ok := idx.guids[strings.ToLower(strings.TrimSpace(guid))]
	return p, ok
}

func (idx ScriptIndex) Len() int {
	return len(idx.guids)
}
