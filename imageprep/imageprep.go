// Package imageprep turns extracted raster images into the transport
// format the LLM's multimodal input expects: bounded dimensions, JPEG
// encoded, base64 wrapped in a data URL.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"sort"

	xdraw "golang.org/x/image/draw"

	"github.com/pitchlens/pitchlens/extractor"
)

const (
	// maxDimension bounds both sides of a prepared image.
	maxDimension = 1024

	// jpegQuality for the lossy re-encode.
	jpegQuality = 85

	// DetailHigh is the detail hint sent with every prepared image.
	DetailHigh = "high"
)

// Prepared is a transport-ready representation of a source image.
type Prepared struct {
	EncodedPayload string `json:"encoded_payload"` // base64, no data: prefix
	MIMEType       string `json:"mime_type"`
	Detail         string `json:"detail_level"`
}

// DataURL wraps the payload in the data URL envelope the chat API expects.
func (p Prepared) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + p.EncodedPayload
}

// Selector chooses which images to keep when a budget caps the count.
// Pluggable so alternative heuristics can replace the area-based default
// without touching callers.
type Selector interface {
	Select(images []extractor.Image, budget int) []extractor.Image
}

// LargestArea keeps the budget-many images with the largest pixel area,
// on the assumption that larger images carry more visual information
// (charts, screenshots) than small ones (icons, logos). Ties keep the
// original order.
type LargestArea struct{}

func (LargestArea) Select(images []extractor.Image, budget int) []extractor.Image {
	if budget <= 0 || len(images) <= budget {
		return images
	}

	idx := make([]int, len(images))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		areaA := images[idx[a]].Width * images[idx[a]].Height
		areaB := images[idx[b]].Width * images[idx[b]].Height
		return areaA > areaB
	})

	kept := make([]extractor.Image, 0, budget)
	for _, i := range idx[:budget] {
		kept = append(kept, images[i])
	}
	return kept
}

// Preparer converts extracted images into Prepared payloads.
type Preparer struct {
	Selector Selector
}

// New returns a Preparer with the largest-area selection strategy.
func New() *Preparer {
	return &Preparer{Selector: LargestArea{}}
}

// Prepare selects up to maxImages (0 = all), downsizes each to fit the
// bounding box preserving aspect ratio, flattens transparency onto white,
// and encodes to base64 JPEG. A failure on one image logs and skips it;
// one bad image never aborts the batch. Source byte buffers are never
// mutated; only downsized copies are produced.
func (p *Preparer) Prepare(images []extractor.Image, maxImages int) []Prepared {
	selected := p.Selector.Select(images, maxImages)

	prepared := make([]Prepared, 0, len(selected))
	for i, img := range selected {
		enc, err := encodeOne(img.Data)
		if err != nil {
			slog.Warn("imageprep: failed to process image", "index", i, "error", err)
			continue
		}
		prepared = append(prepared, Prepared{
			EncodedPayload: enc,
			MIMEType:       "image/jpeg",
			Detail:         DetailHigh,
		})
	}
	return prepared
}

func encodeOne(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	resized := downscale(src)
	flattened := flattenOnWhite(resized)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flattened, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// downscale fits an image within maxDimension on both sides, preserving
// aspect ratio. Images already within bounds are returned as-is.
func downscale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDimension && h <= maxDimension {
		return src
	}

	scale := float64(maxDimension) / float64(w)
	if s := float64(maxDimension) / float64(h); s < scale {
		scale = s
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// flattenOnWhite composites the image over a white background so
// transparency survives the lossy JPEG encode.
func flattenOnWhite(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
