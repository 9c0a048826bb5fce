package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts per-page text and embedded JPEG images from PDF
// documents.
type PDFExtractor struct{}

func (e *PDFExtractor) SupportedFormats() []string { return []string{"pdf"} }

func (e *PDFExtractor) Extract(ctx context.Context, path string) *Result {
	meta := Metadata{
		FileName:  filepath.Base(path),
		FileType:  "PDF",
		UnitLabel: "pages",
	}

	info, err := os.Stat(path)
	if err != nil {
		return failed(meta, fmt.Errorf("stat PDF: %w", err))
	}
	meta.FileSize = info.Size()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return failed(meta, fmt.Errorf("opening PDF: %w", err))
	}
	defer f.Close()

	totalPages := reader.NumPage()
	meta.Units = totalPages

	var segments []Segment
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return failed(meta, err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("extractor: could not extract text from page", "page", i, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		segments = append(segments, Segment{Index: i, Text: text})
	}

	images := extractPDFImages(path)

	return &Result{
		Metadata:     meta,
		Segments:     segments,
		FullText:     joinSegments(segments),
		Images:       images,
		ExtractionOK: true,
	}
}

var (
	dctDecodeMarker = []byte("/DCTDecode")
	streamMarker    = []byte("stream")
	endstreamMarker = []byte("endstream")
)

// extractPDFImages recovers embedded JPEG images by scanning the raw file
// for DCTDecode image streams. JPEG is the dominant raster codec in deck
// exports; images behind other filters are skipped. Any failure here
// degrades to "no images" — image recovery never fails the extraction.
func extractPDFImages(path string) []Image {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("extractor: could not read PDF for image scan", "error", err)
		return nil
	}

	var images []Image
	offset := 0
	for {
		idx := bytes.Index(data[offset:], dctDecodeMarker)
		if idx < 0 {
			break
		}
		pos := offset + idx + len(dctDecodeMarker)

		payload, next := readStreamAfter(data, pos)
		offset = next
		if payload == nil {
			continue
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			continue
		}
		if !keepImage(cfg.Width, cfg.Height) {
			continue
		}

		images = append(images, Image{
			Data:     payload,
			MIMEType: "image/jpeg",
			Width:    cfg.Width,
			Height:   cfg.Height,
		})
	}
	return images
}

// readStreamAfter returns the stream payload following pos and the offset
// to resume scanning from. Returns a nil payload if no well-formed
// stream ... endstream pair is found.
func readStreamAfter(data []byte, pos int) ([]byte, int) {
	idx := bytes.Index(data[pos:], streamMarker)
	if idx < 0 {
		return nil, len(data)
	}
	start := pos + idx + len(streamMarker)

	// The stream keyword is followed by CRLF or LF before the payload.
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	endIdx := bytes.Index(data[start:], endstreamMarker)
	if endIdx < 0 {
		return nil, len(data)
	}
	end := start + endIdx

	payload := bytes.TrimRight(data[start:end], "\r\n")
	if len(payload) == 0 {
		return nil, end + len(endstreamMarker)
	}

	// Copy so callers never alias the full file buffer.
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, end + len(endstreamMarker)
}
