package scan

import (
	"path"

	"github.com/aisentools/msfix/internal/policy"
)

// SelectionRoots turns a user selection into search roots: a directory
// stands for itself, a file for its directory. Duplicates are dropped. A nil
// result means the whole project, which is also what selecting the project
// root or nothing at all gives.
func SelectionRoots(selected []string, isDir func(string) bool) []string {
	seen := make(map[string]struct{})
	var roots []string
	for _, s := range selected {
		p := policy.Normalize(s)
		if p != "" && !isDir(p) {
			p = path.Dir(p)
			if p == "." {
				p = ""
			}
		}
		if p == "" {
			return nil
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		roots = append(roots, p)
	}
	return roots
}
