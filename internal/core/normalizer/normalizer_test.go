package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbase/ingesta/internal/core"
)

func TestNormalizePlainText(t *testing.T) {
	n := NewDocNormalizer()

	doc, err := n.Normalize([]byte("hello   world\n\n\n\nsecond  paragraph"), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, "hello world\n\nsecond paragraph", doc.Content)
	assert.Equal(t, "notes.txt", doc.Metadata.Filename)
	assert.Equal(t, "txt", doc.Metadata.Type)
	assert.Equal(t, 1, doc.Metadata.Pages)
}

func TestNormalizeMarkdown(t *testing.T) {
	md := "# Getting Started\n\n" +
		"Install the CLI and run it.\n\n" +
		"```go\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n```\n\n" +
		"See the [docs](https://example.com/docs) for more.\n"

	n := NewDocNormalizer()
	doc, err := n.Normalize([]byte(md), "guide.md")
	require.NoError(t, err)

	// Markup is gone, prose and heading text remain.
	assert.Contains(t, doc.Content, "Getting Started")
	assert.Contains(t, doc.Content, "Install the CLI and run it.")
	assert.NotContains(t, doc.Content, "# Getting")
	assert.NotContains(t, doc.Content, "](")

	// Code block content must survive the HTML strip.
	assert.Contains(t, doc.Content, "func main()")
}

func TestNormalizeUnsupportedFormat(t *testing.T) {
	n := NewDocNormalizer()

	for _, name := range []string{"image.png", "archive.zip", "noextension"} {
		_, err := n.Normalize([]byte("data"), name)
		assert.ErrorIs(t, err, core.ErrUnsupportedFormat, name)
	}
}

func TestNormalizeCorruptDocx(t *testing.T) {
	n := NewDocNormalizer()

	// Not a zip archive at all, so the docx reader must fail cleanly.
	_, err := n.Normalize([]byte("this is not a docx archive"), "report.docx")
	assert.ErrorIs(t, err, core.ErrDocumentCorrupt)
}

func TestNormalizeCleansAllPaths(t *testing.T) {
	// The cleaning contract is identical across formats: no control
	// characters, no whitespace runs.
	n := NewDocNormalizer()

	doc, err := n.Normalize([]byte("spaced\t\tout\x00 text"), "file.txt")
	require.NoError(t, err)
	assert.Equal(t, "spaced out text", doc.Content)
	assert.Equal(t, CleanText(doc.Content), doc.Content)
}
