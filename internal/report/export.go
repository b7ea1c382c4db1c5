package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/samber/lo"

	"github.com/aisentools/msfix/internal/detect"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
)

// Title heads every exported log.
const Title = "Missing Scripts Tool"

// LogText renders findings as the plain-text log: a title line with the
// time, then one "Kind;sourcePath;objectPath" line per finding.
func LogText(findings []detect.Finding, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", Title, now.Format("2006-01-02 15:04"))
	for _, f := range findings {
		fmt.Fprintf(&b, "%s;%s;%s\n", f.Kind, f.SourcePath, f.ObjectPath)
	}
	return b.String()
}

// CopyLog puts the log text on the system clipboard.
func CopyLog(findings []detect.Finding, now time.Time) error {
	if err := clipboard.WriteAll(LogText(findings, now)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// FolderCount is the number of findings under one top-level folder.
type FolderCount struct {
	Folder string `json:"folder"`
	Count  int    `json:"count"`
}

// Folder returns the first two segments of a source path, e.g. "Assets/Prefabs".
func Folder(sourcePath string) string {
	parts := strings.SplitN(sourcePath, "/", 3)
	switch len(parts) {
	case 1:
		return "."
	case 2:
		return parts[0]
	default:
		return parts[0] + "/" + parts[1]
	}
}

// ByFolder counts findings per folder, largest first.
func ByFolder(findings []detect.Finding) []FolderCount {
	counts := lo.CountValuesBy(findings, func(f detect.Finding) string {
		return Folder(f.SourcePath)
	})
	out := lo.MapToSlice(counts, func(folder string, n int) FolderCount {
		return FolderCount{Folder: folder, Count: n}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Folder < out[j].Folder
	})
	return out
}

// Document is the JSON and HTML view of one scan.
type Document struct {
	Title       string           `json:"title"`
	Project     string           `json:"project"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Query       string           `json:"query,omitempty"`
	Total       int              `json:"total"`
	Shown       int              `json:"shown"`
	Prefabs     int              `json:"prefabs"`
	Scenes      int              `json:"scenes"`
	Sources     int              `json:"sources"`
	Elapsed     time.Duration    `json:"elapsedNs"`
	Cancelled   bool             `json:"cancelled"`
	Findings    []detect.Finding `json:"findings"`
	Folders     []FolderCount    `json:"folders"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// NewDocument summarizes a scan. Findings are filtered by query; counters
// other than Shown cover the whole result.
func NewDocument(project string, res *scan.Result, query string, now time.Time) Document {
	shown := res.Set.Filter(query)
	doc := Document{
		Title:       Title,
		Project:     project,
		GeneratedAt: now,
		Query:       query,
		Total:       res.Set.Len(),
		Shown:       len(shown),
		Prefabs:     res.Set.CountBy(scene.Prefab),
		Scenes:      res.Set.CountBy(scene.Scene),
		Sources:     res.Sources,
		Elapsed:     res.Elapsed,
		Cancelled:   res.Cancelled,
		Findings:    shown,
		Folders:     ByFolder(shown),
	}
	if doc.Findings == nil {
		doc.Findings = []detect.Finding{}
	}
	for _, w := range res.Warnings {
		doc.Warnings = append(doc.Warnings, w.Error())
	}
	return doc
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
