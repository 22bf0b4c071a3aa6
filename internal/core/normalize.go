package core

// DocumentMetadata describes the provenance of a normalized document.
type DocumentMetadata struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Size     int    `json:"size"`
	Pages    int    `json:"pages,omitempty"` // display heuristic only
}

// NormalizedDocument is the Normalizer's output: one cleaned UTF-8 text stream
// plus provenance metadata.
type NormalizedDocument struct {
	Content  string
	Metadata DocumentMetadata
}

// Normalizer converts heterogeneous document bytes (PDF, DOCX, Markdown, plain
// text) into a single cleaned text stream. Dispatch is by file extension;
// unsupported extensions fail with ErrUnsupportedFormat.
type Normalizer interface {
	Normalize(raw []byte, filename string) (*NormalizedDocument, error)
}
