package pitchlens

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const slideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree>%s</p:spTree></p:cSld>
</p:sld>`

func textShape(lines ...string) string {
	var b strings.Builder
	b.WriteString("<p:sp><p:txBody xmlns:a=\"http://schemas.openxmlformats.org/drawingml/2006/main\">")
	for _, l := range lines {
		b.WriteString("<a:p><a:r><a:t>" + l + "</a:t></a:r></a:p>")
	}
	b.WriteString("</p:txBody></p:sp>")
	return b.String()
}

func writeDeck(t *testing.T, name string, files map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for entry, data := range files {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func textDeck(t *testing.T) string {
	return writeDeck(t, "acme_deck.pptx", map[string][]byte{
		"ppt/slides/slide1.xml": []byte(fmt.Sprintf(slideXML,
			textShape("Acme Robotics", "Autonomous warehouse picking"))),
		"ppt/slides/slide2.xml": []byte(fmt.Sprintf(slideXML,
			textShape("Traction", "40 warehouses live"))),
	})
}

func imageOnlyDeck(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for x := 0; x < 120; x++ {
		for y := 0; y < 90; y++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 200, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}

	pic := `<p:pic><p:blipFill><a:blip xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:embed="rId2"/></p:blipFill></p:pic>`

	return writeDeck(t, "scan.pptx", map[string][]byte{
		"ppt/slides/slide1.xml": []byte(fmt.Sprintf(slideXML, pic)),
		"ppt/slides/_rels/slide1.xml.rels": []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
</Relationships>`),
		"ppt/media/image1.png": pngBuf.Bytes(),
	})
}

// pdfDeck builds a minimal one-page PDF with known text, computing the
// cross-reference offsets so strict parsers accept it.
func pdfDeck(t *testing.T, text string) string {
	t.Helper()

	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n",
		"4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
		fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		buf.WriteString(obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "acme_deck.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// stubLLM runs an OpenAI-compatible endpoint returning a fixed reply.
func stubLLM(t *testing.T, reply string) (*httptest.Server, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}, "finish_reason": "stop"}],
			"model": "stub-model", "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}}`, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.LLM = LLMConfig{Provider: "custom", BaseURL: baseURL, APIKey: "test-key"}
	cfg.Scrape.Delay = 0
	return cfg
}

func TestNewMissingAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	cfg := DefaultConfig()
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !strings.Contains(err.Error(), "API key is required") {
		t.Errorf("error = %v", err)
	}
}

func TestAnalyzeFileNotFound(t *testing.T) {
	srv, _ := stubLLM(t, "x")
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), Options{})
	if err == nil || !strings.Contains(err.Error(), "file not found") {
		t.Errorf("error = %v, want file not found", err)
	}
}

func TestAnalyzeUnsupportedFormat(t *testing.T) {
	srv, _ := stubLLM(t, "x")
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = a.Analyze(context.Background(), path, Options{})
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("error = %v, want unsupported file type", err)
	}
}

func TestAnalyzeExtractionFailureHaltsBeforeNetwork(t *testing.T) {
	srv, calls := stubLLM(t, "x")
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	// A pptx that is not a ZIP archive fails extraction.
	path := filepath.Join(t.TempDir(), "broken.pptx")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = a.Analyze(context.Background(), path, Options{})
	if err == nil || !strings.Contains(err.Error(), "extraction failed") {
		t.Errorf("error = %v, want extraction failure", err)
	}
	if *calls != 0 {
		t.Errorf("LLM calls = %d, want 0 (halt before network)", *calls)
	}
}

func TestAnalyzeRoundTrip(t *testing.T) {
	srv, calls := stubLLM(t, "## Company Overview\nAcme builds robots.")
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "report.md")
	res, err := a.Analyze(context.Background(), textDeck(t), Options{OutputPath: out, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.ReportPath != out {
		t.Errorf("ReportPath = %q", res.ReportPath)
	}
	if !res.Analysis.Success || res.Analysis.ModelUsed != "stub-model" {
		t.Errorf("analysis info = %+v", res.Analysis)
	}
	if res.Extraction.FileType != "PowerPoint" || res.Extraction.Units != 2 {
		t.Errorf("extraction info = %+v", res.Extraction)
	}
	if res.Extraction.ContentLength == 0 {
		t.Error("ContentLength = 0")
	}
	if *calls != 1 {
		t.Errorf("LLM calls = %d, want 1 (text deck, no vision fallback)", *calls)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "# Investment Analysis Report: Acme Robotics") {
		t.Errorf("report header missing company label:\n%s", content[:200])
	}
	if !strings.Contains(content, "Acme builds robots.") {
		t.Error("report missing analysis body")
	}
}

// TestAnalyzePDFRoundTrip is the end-to-end smoke test: a synthetic
// single-page PDF with known text, a stub endpoint with a canned reply,
// and a report carrying both the metadata and the reply verbatim.
func TestAnalyzePDFRoundTrip(t *testing.T) {
	canned := "This deck is a strong seed-stage opportunity."
	srv, _ := stubLLM(t, canned)
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "report.md")
	res, err := a.Analyze(context.Background(), pdfDeck(t, "Acme Robotics Series A"), Options{
		OutputPath:     out,
		SkipEnrichment: true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Extraction.FileType != "PDF" || res.Extraction.UnitLabel != "pages" || res.Extraction.Units != 1 {
		t.Errorf("extraction info = %+v", res.Extraction)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, canned) {
		t.Error("report missing the canned analysis text")
	}
	if !strings.Contains(content, "acme_deck.pdf") {
		t.Error("report missing the source file name")
	}
	if !strings.Contains(content, "Acme Robotics Series A") {
		t.Error("report header missing the company label from page text")
	}
}

func TestAnalyzeImageOnlyDeckUsesPlaceholder(t *testing.T) {
	srv, calls := stubLLM(t, "analysis of an image-only deck")
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "report.md")
	res, err := a.Analyze(context.Background(), imageOnlyDeck(t), Options{OutputPath: out, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("Analyze: %v (image-only decks must not fail)", err)
	}

	if res.Extraction.Images != 1 {
		t.Errorf("Images = %d, want 1", res.Extraction.Images)
	}
	// One vision call for link discovery, one for the analysis itself.
	if *calls != 2 {
		t.Errorf("LLM calls = %d, want 2", *calls)
	}
	if res.Extraction.ContentLength != len(imageOnlyPlaceholder) {
		t.Errorf("ContentLength = %d, want placeholder length %d",
			res.Extraction.ContentLength, len(imageOnlyPlaceholder))
	}
}

func TestAnalyzeLLMFailureStillWritesReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "report.md")
	res, err := a.Analyze(context.Background(), textDeck(t), Options{OutputPath: out, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("Analyze: %v (analysis failure must still render a report)", err)
	}

	if res.Analysis.Success {
		t.Error("Analysis.Success = true, want false")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Analysis Status: ❌ Failed") {
		t.Error("failure report missing failure section")
	}
	if !strings.Contains(string(data), "Acme Robotics") {
		t.Error("failure report missing extracted content preview")
	}
}

func TestAnalyzeReportWriteFailure(t *testing.T) {
	srv, _ := stubLLM(t, "ok")
	a, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "no", "such", "dir", "report.md")
	_, err = a.Analyze(context.Background(), textDeck(t), Options{OutputPath: out, SkipEnrichment: true})
	if err == nil || !strings.Contains(err.Error(), "writing report failed") {
		t.Errorf("error = %v, want report write failure", err)
	}
}
