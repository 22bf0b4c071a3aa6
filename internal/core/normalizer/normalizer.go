package normalizer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/quillbase/ingesta/internal/core"
)

var _ core.Normalizer = (*DocNormalizer)(nil)

// DocNormalizer converts PDF, DOCX, Markdown and plain-text bytes into one
// cleaned UTF-8 text stream. PDF and DOCX extraction go through docconv;
// markdown is rendered to HTML and stripped back to prose so headings, lists
// and code blocks all survive as text.
type DocNormalizer struct {
	md goldmark.Markdown
}

func NewDocNormalizer() *DocNormalizer {
	return &DocNormalizer{md: goldmark.New()}
}

// Normalize dispatches on the file extension and runs the shared cleaning step
// over whichever extractor produced the text.
func (n *DocNormalizer) Normalize(raw []byte, filename string) (*core.NormalizedDocument, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	var (
		text string
		err  error
	)
	switch ext {
	case "pdf":
		text, err = n.extractPDF(raw)
	case "docx":
		text, err = n.extractDocx(raw)
	case "md", "markdown":
		text, err = n.extractMarkdown(raw)
	case "txt", "text":
		text = string(raw)
	default:
		return nil, fmt.Errorf("%w: .%s (%s)", core.ErrUnsupportedFormat, ext, filename)
	}
	if err != nil {
		return nil, err
	}

	content := CleanText(text)

	return &core.NormalizedDocument{
		Content: content,
		Metadata: core.DocumentMetadata{
			Filename: filepath.Base(filename),
			Type:     ext,
			Size:     len(raw),
			Pages:    EstimatePages(content),
		},
	}, nil
}

func (n *DocNormalizer) extractPDF(raw []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(raw), "application/pdf", false)
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", core.ErrDocumentCorrupt, err)
	}
	return res.Body, nil
}

// extractDocx tolerates malformed archives: docconv panics on some truncated
// zips, so the recover keeps a single bad upload from taking the pipeline down.
func (n *DocNormalizer) extractDocx(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: docx: %v", core.ErrDocumentCorrupt, r)
		}
	}()

	res, cerr := docconv.Convert(bytes.NewReader(raw),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", false)
	if cerr != nil {
		return "", fmt.Errorf("%w: docx: %v", core.ErrDocumentCorrupt, cerr)
	}
	return res.Body, nil
}

// extractMarkdown renders markdown to HTML, then walks the node tree
// collecting text. Code block content comes through as text nodes inside
// <pre><code>, so it is preserved rather than dropped with the markup.
func (n *DocNormalizer) extractMarkdown(raw []byte) (string, error) {
	var htmlBuf bytes.Buffer
	if err := n.md.Convert(raw, &htmlBuf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return stripHTML(htmlBuf.String()), nil
}

// blockTags are elements whose boundaries become line breaks when stripping,
// so prose from adjacent blocks does not run together.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "ul": true, "ol": true,
}

func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
			if blockTags[node.Data] {
				b.WriteString("\n")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && blockTags[node.Data] {
			b.WriteString("\n")
		}
	}
	walk(doc)

	return b.String()
}
