// Package report renders the final markdown analysis report and writes
// it to disk. Analysis failure still produces a report; only the write
// itself can fail hard.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pitchlens/pitchlens/analysis"
	"github.com/pitchlens/pitchlens/extractor"
)

const rawPreviewLimit = 1000

// Generator renders and writes reports. The clock is injectable so
// tests get stable filenames and timestamps.
type Generator struct {
	now func() time.Time
}

// New returns a Generator using the wall clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// Generate renders the report for one analysis run and writes it to
// outputPath. An empty outputPath derives a timestamped filename from
// the company label. Returns the path actually written.
func (g *Generator) Generate(res analysis.Result, extraction *extractor.Result, outputPath string) (string, error) {
	company := CompanyLabel(extraction.FullText, extraction.Metadata.FileName)
	ts := g.now()

	if outputPath == "" {
		outputPath = fmt.Sprintf("analysis_%s_%s.md", safeName(company), ts.Format("2006-01-02_15-04-05"))
	}

	content := g.render(res, extraction, company, ts)

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	slog.Info("report: written", "path", outputPath, "bytes", len(content))
	return outputPath, nil
}

func (g *Generator) render(res analysis.Result, extraction *extractor.Result, company string, ts time.Time) string {
	var b strings.Builder
	md := extraction.Metadata

	fmt.Fprintf(&b, "# Investment Analysis Report: %s\n\n", company)
	fmt.Fprintf(&b, "**Generated:** %s  \n", ts.Format("January 2, 2006 at 3:04 PM"))
	b.WriteString("**Analyst:** AI-Powered Pitch Deck Analyzer  \n")
	fmt.Fprintf(&b, "**Document Type:** %s  \n", orNA(md.FileType))
	fmt.Fprintf(&b, "**Source File:** %s  \n\n", orNA(md.FileName))
	b.WriteString("---\n\n")

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "This report provides a comprehensive investment analysis of %s based on their pitch deck presentation. "+
		"The analysis covers business model evaluation, market assessment, team analysis, financial projections, "+
		"and investment recommendations tailored for early-stage startup evaluation.\n\n", company)
	b.WriteString("---\n\n")

	b.WriteString("## Document Information\n\n")
	fmt.Fprintf(&b, "- **File Name:** %s\n", orNA(md.FileName))
	fmt.Fprintf(&b, "- **File Type:** %s\n", orNA(md.FileType))
	fmt.Fprintf(&b, "- **File Size:** %s\n", FormatFileSize(md.FileSize))
	fmt.Fprintf(&b, "- **Pages/Slides:** %d\n", md.Units)
	fmt.Fprintf(&b, "- **Extraction Status:** %s\n\n", status(extraction.ExtractionOK))
	b.WriteString("---\n\n")

	if res.Success && res.Analysis != "" {
		b.WriteString(res.Analysis)
	} else {
		errMsg := res.Error
		if errMsg == "" {
			errMsg = "Unknown error occurred during analysis"
		}
		b.WriteString("## Analysis Status: ❌ Failed\n\n")
		fmt.Fprintf(&b, "**Error:** %s\n\n", errMsg)
		b.WriteString("The pitch deck content could not be analyzed due to the error above. " +
			"Please check your API key and try again.\n\n")
		b.WriteString("### Extracted Content Preview\n\n")
		b.WriteString("Below is the raw content that was extracted from the pitch deck:\n\n")
		fmt.Fprintf(&b, "```\n%s...\n```\n", rawPreview(extraction.FullText))
	}

	model := res.ModelUsed
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Report Metadata\n\n")
	fmt.Fprintf(&b, "- **Analysis Model:** %s\n", model)
	fmt.Fprintf(&b, "- **Generation Time:** %s\n", ts.Format("2006-01-02_15-04-05"))
	b.WriteString("- **Report Version:** 1.0\n")
	b.WriteString("- **Tool:** PitchLens\n\n")
	b.WriteString("---\n\n")
	b.WriteString("*This report was generated using AI analysis and should be used as a starting point " +
		"for investment evaluation. Always conduct additional due diligence and consult with domain " +
		"experts before making investment decisions.*\n")

	return b.String()
}

// CompanyLabel guesses the company name: the first of the ten leading
// non-empty content lines that is short enough to be a name and is not
// a generic deck heading; otherwise the file name, cleaned up and
// title-cased. Best-effort by design.
func CompanyLabel(fullText, fileName string) string {
	count := 0
	for _, line := range strings.Split(fullText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		count++
		if count > 10 {
			break
		}
		lower := strings.ToLower(line)
		if len(line) < 50 &&
			!strings.HasPrefix(lower, "pitch") &&
			!strings.HasPrefix(lower, "deck") &&
			!strings.HasPrefix(lower, "presentation") {
			return line
		}
	}

	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	if base == "" {
		return "Unknown Company"
	}
	return titleCase(base)
}

func rawPreview(fullText string) string {
	if fullText == "" {
		return "No content extracted"
	}
	if len(fullText) > rawPreviewLimit {
		return fullText[:rawPreviewLimit]
	}
	return fullText
}

// safeName keeps letters, digits, spaces, hyphens and underscores, then
// replaces spaces with underscores for the filename.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
}

// FormatFileSize renders a byte count in human-readable form.
func FormatFileSize(size int64) string {
	if size == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	f := float64(size)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", f, units[i])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func status(ok bool) string {
	if ok {
		return "✅ Successful"
	}
	return "❌ Failed"
}
