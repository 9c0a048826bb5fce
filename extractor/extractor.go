package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// SegmentSeparator joins segment texts into FullText.
const SegmentSeparator = "\n\n"

// minImageDim is the minimum width and height for an extracted image.
// Anything at or below this is presumed to be an icon or decoration.
const minImageDim = 50

// Metadata describes the source document.
type Metadata struct {
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"` // "PDF" or "PowerPoint"
	UnitLabel string `json:"unit_label"` // "pages" or "slides"
	Units     int    `json:"units"`
	FileSize  int64  `json:"file_size"`
}

// Segment is the text of one page or slide.
type Segment struct {
	Index int    `json:"index"` // 1-based page/slide number
	Text  string `json:"text"`
}

// Image is a raster image embedded in the document.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Result is what an extractor produces from a document file. Extraction
// failures are captured in the result rather than returned as errors:
// ExtractionOK is false and Error holds the detail, so failure is a
// checked value at every call site.
type Result struct {
	Metadata     Metadata  `json:"metadata"`
	Segments     []Segment `json:"segments"`
	FullText     string    `json:"full_text"`
	Images       []Image   `json:"images,omitempty"`
	ExtractionOK bool      `json:"extraction_success"`
	Error        string    `json:"error,omitempty"`
}

// Extractor can extract content from a specific document format.
type Extractor interface {
	Extract(ctx context.Context, path string) *Result
	SupportedFormats() []string
}

// Registry maps normalized file extensions to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a registry with the built-in extractors registered.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	for _, e := range []Extractor{&PDFExtractor{}, &PPTXExtractor{}} {
		for _, f := range e.SupportedFormats() {
			r.extractors[f] = e
		}
	}
	return r
}

// ForPath returns the extractor for a file path based on its extension.
func (r *Registry) ForPath(path string) (Extractor, error) {
	format := NormalizeExtension(path)
	e, ok := r.extractors[format]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %q (supported: PDF, PPT, PPTX)", filepath.Ext(path))
	}
	return e, nil
}

// Register adds or replaces the extractor for a format.
func (r *Registry) Register(format string, e Extractor) {
	r.extractors[format] = e
}

// NormalizeExtension returns the lowercase extension without the dot.
func NormalizeExtension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// joinSegments builds FullText from non-empty segment texts in order.
func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, SegmentSeparator)
}

// failed builds a closed-failure result carrying whatever metadata is known.
func failed(meta Metadata, err error) *Result {
	return &Result{
		Metadata:     meta,
		ExtractionOK: false,
		Error:        err.Error(),
	}
}

// keepImage reports whether an extracted image clears the icon filter.
func keepImage(w, h int) bool {
	return w > minImageDim && h > minImageDim
}
