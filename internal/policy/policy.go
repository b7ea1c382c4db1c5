package policy

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy decides which project-relative paths may be scanned, backed up or
// rewritten. Scan and repair must share one Policy so that nothing excluded
// from scanning is ever written, and the backup store never backs itself up.
type Policy struct {
	BackupRoot      string   // e.g. "Missing Scripts Tool/Backups"
	LogRoot         string   // e.g. "Missing Scripts Tool/Logs"
	VendoredRoots   []string // read-only dependency trees, e.g. "Packages"
	PackageCacheDir string   // engine package cache segment, e.g. "PackageCache"
	ExcludeGlobs    []string // extra doublestar patterns
}

func Default() *Policy {
	return &Policy{
		BackupRoot:      "Missing Scripts Tool/Backups",
		LogRoot:         "Missing Scripts Tool/Logs",
		VendoredRoots:   []string{"Packages"},
		PackageCacheDir: "PackageCache",
	}
}

// Normalize converts separators to "/", cleans the path and drops a leading "./".
// Empty input stays empty.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// IsEligible reports whether p may be scanned or mutated. It has no side effects.
func (pol *Policy) IsEligible(p string) bool {
	p = Normalize(p)
	if p == "" {
		return false
	}
	if path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
		return false
	}

	for _, root := range pol.VendoredRoots {
		if under(p, Normalize(root)) {
			return false
		}
	}

	if cache := strings.Trim(pol.PackageCacheDir, "/"); cache != "" {
		if strings.HasPrefix(p, cache+"/") || strings.Contains(p, "/"+cache+"/") {
			return false
		}
	}

	if under(p, Normalize(pol.BackupRoot)) || under(p, Normalize(pol.LogRoot)) {
		return false
	}

	for _, pattern := range pol.ExcludeGlobs {
		if matched, err := doublestar.Match(Normalize(pattern), p); err == nil && matched {
			return false
		}
	}
	return true
}

// Filter keeps the eligible paths, preserving order.
func (pol *Policy) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if pol.IsEligible(p) {
			out = append(out, p)
		}
	}
	return out
}

func under(p, root string) bool {
	if root == "" {
		return false
	}
	return p == root || strings.HasPrefix(p, root+"/")
}
