package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextFromTxt(t *testing.T) {
	path := writeFile(t, "policy.txt", "  Coverage details.\n")
	text, err := New().Text(path)
	require.NoError(t, err)
	assert.Equal(t, "Coverage details.", text)
}

func TestTextFromMarkdown(t *testing.T) {
	path := writeFile(t, "brochure.md", "# Term Life\n\nAffordable *coverage* for families.\n")
	text, err := New().Text(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Term Life")
	assert.Contains(t, text, "Affordable")
	assert.Contains(t, text, "coverage")
	assert.NotContains(t, text, "<")
}

func TestTextUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "image.png", "binary")
	_, err := New().Text(path)
	assert.Error(t, err)
}

func TestTextMissingFile(t *testing.T) {
	_, err := New().Text(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
