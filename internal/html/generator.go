package html

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aisentools/msfix/internal/fsutil"
	"github.com/aisentools/msfix/internal/report"
	"github.com/aisentools/msfix/utils"
)

// Embed template files at compile time
//
//go:embed templates/template.html
var htmlTemplate string

//go:embed templates/styles.css
var cssContent string

//go:embed templates/app.js
var jsContent string

// ReportData is what the page script renders.
type ReportData struct {
	report.Document
	ElapsedText   string `json:"elapsedText"`
	GeneratedText string `json:"generatedText"`
}

// GenerateHTMLReport writes a single-file HTML report and returns its absolute path.
func GenerateHTMLReport(doc report.Document, outputPath string) (string, error) {
	data := ReportData{
		Document:      doc,
		ElapsedText:   utils.FormatDuration(doc.Elapsed),
		GeneratedText: doc.GeneratedAt.Format("2006-01-02 15:04"),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report data: %w", err)
	}

	absPath, err := GetOutputPath(outputPath, doc.GeneratedAt)
	if err != nil {
		return "", err
	}
	if err := fsutil.WriteFileAtomic(absPath, []byte(Render(string(jsonData), doc.Title))); err != nil {
		return "", fmt.Errorf("failed to write HTML file: %w", err)
	}
	return absPath, nil
}

// GetOutputPath returns an absolute .html path, defaulting to a stamped name.
func GetOutputPath(path string, now time.Time) (string, error) {
	if path == "" {
		path = fmt.Sprintf("missing-scripts-%s.html", now.Format("20060102-150405"))
	}
	if !strings.HasSuffix(strings.ToLower(path), ".html") {
		path += ".html"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	return absPath, nil
}

// Render fills the page template.
func Render(jsonData, title string) string {
	content := htmlTemplate
	content = strings.ReplaceAll(content, "{{TITLE}}", title)
	content = strings.ReplaceAll(content, "{{CSS_CONTENT}}", cssContent)
	content = strings.ReplaceAll(content, "{{JS_CONTENT}}", jsContent)
	content = strings.ReplaceAll(content, "{{JSON_DATA}}", jsonData)
	return content
}
