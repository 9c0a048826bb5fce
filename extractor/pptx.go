package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PPTXExtractor extracts per-slide text and embedded images from
// PowerPoint decks. It is registered for both pptx and the legacy ppt
// extension: a binary .ppt is not a ZIP archive, so it fails closed with
// the open error rather than being rejected up front.
type PPTXExtractor struct{}

func (e *PPTXExtractor) SupportedFormats() []string { return []string{"pptx", "ppt"} }

func (e *PPTXExtractor) Extract(ctx context.Context, path string) *Result {
	meta := Metadata{
		FileName:  filepath.Base(path),
		FileType:  "PowerPoint",
		UnitLabel: "slides",
	}

	info, err := os.Stat(path)
	if err != nil {
		return failed(meta, fmt.Errorf("stat PowerPoint: %w", err))
	}
	meta.FileSize = info.Size()

	r, err := zip.OpenReader(path)
	if err != nil {
		return failed(meta, fmt.Errorf("opening PowerPoint: %w", err))
	}
	defer r.Close()

	// Build file index for quick lookup
	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	// Collect slide files (ppt/slides/slide1.xml, slide2.xml, ...)
	slideFiles := make(map[int]*zip.File)
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			num := slideNumber(f.Name)
			if num > 0 {
				slideFiles[num] = f
			}
		}
	}

	nums := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	meta.Units = len(nums)

	var segments []Segment
	var allImages []Image
	for _, num := range nums {
		if err := ctx.Err(); err != nil {
			return failed(meta, err)
		}

		f := slideFiles[num]
		rc, err := f.Open()
		if err != nil {
			continue
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		if text := slideText(data); text != "" {
			segments = append(segments, Segment{Index: num, Text: text})
		}

		allImages = append(allImages, slideImages(data, num, fileIndex)...)
	}

	return &Result{
		Metadata:     meta,
		Segments:     segments,
		FullText:     joinSegments(segments),
		Images:       allImages,
		ExtractionOK: true,
	}
}

// slideImages extracts images referenced from a single slide's XML via
// blip relationships (a:blip r:embed="rIdN" -> ppt/media/...).
func slideImages(slideXML []byte, slideNum int, fileIndex map[string]*zip.File) []Image {
	relsPath := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)
	rels := parseRels(fileIndex, relsPath)
	if rels == nil {
		return nil
	}

	decoder := xml.NewDecoder(bytes.NewReader(slideXML))

	var images []Image
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "blip" {
			continue
		}

		var embedID string
		for _, attr := range se.Attr {
			if attr.Name.Local == "embed" {
				embedID = attr.Value
				break
			}
		}
		if embedID == "" {
			continue
		}

		target, ok := rels[embedID]
		if !ok {
			continue
		}

		// Targets are relative to ppt/slides/
		mediaPath := filepath.Clean("ppt/slides/" + target)
		mediaPath = strings.ReplaceAll(mediaPath, "\\", "/")

		zf := fileIndex[mediaPath]
		if zf == nil {
			slog.Debug("extractor: image file not found in ZIP", "path", mediaPath, "rId", embedID)
			continue
		}

		imgRC, err := zf.Open()
		if err != nil {
			slog.Debug("extractor: failed to open image file", "path", mediaPath, "error", err)
			continue
		}

		imgData, err := io.ReadAll(imgRC)
		imgRC.Close()
		if err != nil {
			slog.Debug("extractor: failed to read image file", "path", mediaPath, "error", err)
			continue
		}

		mimeType := mimeFromExt(filepath.Ext(zf.Name))
		if mimeType == "" {
			continue
		}

		w, h := imageSize(imgData)
		if !keepImage(w, h) {
			continue
		}

		images = append(images, Image{
			Data:     imgData,
			MIMEType: mimeType,
			Width:    w,
			Height:   h,
		})
	}

	return images
}

// parseRels reads an OOXML .rels file and returns an rId -> target map.
func parseRels(fileIndex map[string]*zip.File, relsPath string) map[string]string {
	relsFile := fileIndex[relsPath]
	if relsFile == nil {
		return nil
	}

	rc, err := relsFile.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}

	result := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		result[rel.ID] = rel.Target
	}
	return result
}

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// pptxSlide simplified XML structure
type pptxSlide struct {
	CSld struct {
		SpTree struct {
			SPs []pptxSP `xml:"sp"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

type pptxSP struct {
	TxBody *pptxTxBody `xml:"txBody"`
}

type pptxTxBody struct {
	Paras []pptxPara `xml:"p"`
}

type pptxPara struct {
	Runs []pptxRun `xml:"r"`
}

type pptxRun struct {
	Text string `xml:"t"`
}

// slideText collects the text of every shape on a slide, one line per
// non-empty paragraph.
func slideText(data []byte) string {
	var slide pptxSlide
	if err := xml.Unmarshal(data, &slide); err != nil {
		return ""
	}

	var parts []string
	for _, sp := range slide.CSld.SpTree.SPs {
		if sp.TxBody == nil {
			continue
		}
		for _, para := range sp.TxBody.Paras {
			var line strings.Builder
			for _, run := range para.Runs {
				line.WriteString(run.Text)
			}
			if t := strings.TrimSpace(line.String()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n")
}

func slideNumber(name string) int {
	// Extract number from "ppt/slides/slide1.xml"
	name = strings.TrimPrefix(name, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}

// mimeFromExt returns the MIME type for common image extensions.
func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return ""
	}
}

// imageSize returns the width and height of an image from its encoded bytes.
func imageSize(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
