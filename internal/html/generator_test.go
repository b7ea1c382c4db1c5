package html

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisentools/msfix/internal/detect"
	"github.com/aisentools/msfix/internal/report"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
)

func TestGenerateHTMLReport(t *testing.T) {
	set := detect.NewResultSet()
	set.Add(detect.Finding{Kind: scene.Prefab, SourcePath: "Assets/<script>.prefab", ObjectPath: "Enemy"})
	now := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	doc := report.NewDocument("/proj", &scan.Result{Set: set}, "", now)

	out := filepath.Join(t.TempDir(), "reports", "scan")
	path, err := GenerateHTMLReport(doc, out)
	require.NoError(t, err)
	assert.Equal(t, out+".html", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, "<title>Missing Scripts Tool</title>")
	assert.Contains(t, page, `"sourcePath":"Assets/\u003cscript\u003e.prefab"`)
	assert.NotContains(t, page, "<script>.prefab", "source paths cannot close the script tag")
	assert.NotContains(t, page, "{{JSON_DATA}}")
	assert.NotContains(t, page, "{{JS_CONTENT}}")
}

func TestGetOutputPathDefault(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	path, err := GetOutputPath("", now)
	require.NoError(t, err)
	assert.Equal(t, "missing-scripts-20250309-140507.html", filepath.Base(path))
	assert.True(t, filepath.IsAbs(path))
}
