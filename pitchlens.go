// Package pitchlens analyzes startup pitch decks: it extracts text and
// images from a PDF or PowerPoint file, discovers and researches the
// URLs the deck mentions, and runs one multimodal LLM exchange to
// produce a markdown investment-analysis report.
package pitchlens

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pitchlens/pitchlens/analysis"
	"github.com/pitchlens/pitchlens/enrich"
	"github.com/pitchlens/pitchlens/extractor"
	"github.com/pitchlens/pitchlens/imagelinks"
	"github.com/pitchlens/pitchlens/imageprep"
	"github.com/pitchlens/pitchlens/links"
	"github.com/pitchlens/pitchlens/llm"
	"github.com/pitchlens/pitchlens/report"
)

// imageOnlyPlaceholder stands in for extracted text when a deck has no
// text layer but does carry images. The pipeline must not fail on such
// decks; the slide images carry the content instead.
const imageOnlyPlaceholder = "This pitch deck contains no extractable text. " +
	"The deck consists of images only; the attached slide images carry the content."

// Options tune a single Analyze run.
type Options struct {
	// OutputPath overrides the auto-generated report filename.
	OutputPath string

	// SkipEnrichment disables web scraping of discovered URLs.
	SkipEnrichment bool
}

// ExtractionInfo summarizes what came out of the document.
type ExtractionInfo struct {
	FileType      string `json:"file_type"`
	ContentLength int    `json:"content_length"`
	UnitLabel     string `json:"unit_label"`
	Units         int    `json:"units"`
	Images        int    `json:"images"`
}

// AnalysisInfo summarizes the LLM exchange for the run summary.
type AnalysisInfo struct {
	ModelUsed string `json:"model_used"`
	Success   bool   `json:"success"`
}

// RunResult is what Analyze hands back to the caller on success.
type RunResult struct {
	ReportPath   string         `json:"report_path"`
	Extraction   ExtractionInfo `json:"extraction_info"`
	Analysis     AnalysisInfo   `json:"analysis_info"`
	LinksFound   int            `json:"links_found"`
	PagesScraped int            `json:"pages_scraped"`
}

// Analyzer is the pipeline driver. Construct with New, then call
// Analyze once per document; an Analyzer is safe to reuse.
type Analyzer struct {
	cfg      Config
	registry *extractor.Registry
	scraper  *enrich.Scraper
	preparer *imageprep.Preparer
	visual   *imagelinks.Extractor
	analyst  *analysis.Client
	reporter *report.Generator
}

// New builds an Analyzer from configuration. It fails before any
// network activity when no API credential resolves.
func New(cfg Config) (*Analyzer, error) {
	key, err := ResolveAPIKey(cfg.LLM.APIKey, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	cfg.LLM.APIKey = key

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = cfg.AnalysisModel
	}
	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		cfg:      cfg,
		registry: extractor.NewRegistry(),
		scraper:  enrich.New(cfg.Scrape.Timeout, cfg.Scrape.Delay),
		preparer: imageprep.New(),
		visual:   imagelinks.New(provider, cfg.VisionModel),
		analyst:  analysis.NewClient(provider, cfg.AnalysisModel, cfg.VisionModel),
		reporter: report.New(),
	}, nil
}

// Analyze runs the full pipeline over one document and writes the
// report. A failed LLM exchange still produces a report describing the
// failure; only missing input, failed extraction, and an unwritable
// report are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, path string, opts Options) (*RunResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	ext, err := a.registry.ForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	slog.Info("pitchlens: extracting content", "path", path)
	extraction := ext.Extract(ctx, path)
	if !extraction.ExtractionOK {
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, extraction.Error)
	}

	content := extraction.FullText
	imageOnly := content == ""
	if imageOnly {
		if len(extraction.Images) == 0 {
			return nil, fmt.Errorf("%w: document contains neither text nor images", ErrExtractionFailed)
		}
		slog.Info("pitchlens: no text layer, continuing with images only",
			"images", len(extraction.Images))
		content = imageOnlyPlaceholder
	}

	discovered := a.discoverLinks(ctx, extraction, imageOnly)
	emails := links.ExtractEmails(extraction.FullText)

	var research string
	scraped := 0
	if !opts.SkipEnrichment && discovered.Total() > 0 {
		order := discovered.All()
		results := a.scraper.ScrapeAll(ctx, order)
		research = enrich.FormatForPrompt(results, order)
		scraped = len(results)
	}

	prepared := a.preparer.Prepare(extraction.Images, a.cfg.MaxAnalysisImages)

	result := a.analyst.Analyze(ctx, analysis.Input{
		Content:      content,
		CompanyName:  report.CompanyLabel(extraction.FullText, extraction.Metadata.FileName),
		LinksSummary: links.FormatForResearch(discovered, emails),
		WebResearch:  research,
		Images:       prepared,
	})
	if !result.Success {
		slog.Warn("pitchlens: analysis failed, rendering failure report", "error", result.Error)
	}

	reportPath, err := a.reporter.Generate(result, extraction, opts.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportWrite, err)
	}

	return &RunResult{
		ReportPath: reportPath,
		Extraction: ExtractionInfo{
			FileType:      extraction.Metadata.FileType,
			ContentLength: len(content),
			UnitLabel:     extraction.Metadata.UnitLabel,
			Units:         extraction.Metadata.Units,
			Images:        len(extraction.Images),
		},
		Analysis: AnalysisInfo{
			ModelUsed: result.ModelUsed,
			Success:   result.Success,
		},
		LinksFound:   discovered.Total(),
		PagesScraped: scraped,
	}, nil
}

// discoverLinks finds URLs in the deck text; when the text yields none
// and the deck carries images, it falls back to asking the vision model
// to read links off the slides.
func (a *Analyzer) discoverLinks(ctx context.Context, extraction *extractor.Result, imageOnly bool) links.Categorized {
	discovered := links.Extract(extraction.FullText)
	if discovered.Total() > 0 {
		slog.Info("pitchlens: links found in text", "count", discovered.Total())
		return discovered
	}

	if len(extraction.Images) == 0 {
		return discovered
	}

	slog.Info("pitchlens: no links in text, trying image extraction",
		"image_only", imageOnly)
	fromImages := a.visual.Extract(ctx, extraction.Images)
	if len(fromImages) == 0 {
		return discovered
	}
	return links.Extract(strings.Join(fromImages, "\n"))
}
