// Package imagelinks recovers URLs from deck images using a vision
// model, for decks whose text layer is missing or carries no links.
// This is the only component in the system that retries LLM calls.
package imagelinks

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/pitchlens/pitchlens/extractor"
	"github.com/pitchlens/pitchlens/imageprep"
	"github.com/pitchlens/pitchlens/llm"
)

const (
	// maxVisionImages caps how many deck images one extraction call sends.
	maxVisionImages = 8

	maxAttempts       = 3
	initialBackoff    = time.Second
	visionMaxTokens   = 1000
	visionTemperature = 0.1
)

const extractionPrompt = `Analyze these pitch deck images and extract any URLs, websites, ` +
	`social media links, or domain names that are visible in the images. ` +
	`Look for: website URLs (like company.com, www.example.org), social media handles and links ` +
	`(LinkedIn, Twitter, Facebook, Instagram, GitHub), email addresses, and any other web links. ` +
	`Return ONLY a JSON array of the URLs/links you find, like: ["https://example.com", "linkedin.com/company/example"]. ` +
	`If no URLs are visible, return an empty array: [].`

var urlFallbackPattern = regexp.MustCompile(
	`https?://[^\s"',\]\[]+|(?:www\.)?[a-zA-Z0-9][a-zA-Z0-9-]*\.(?:com|org|net|io|co|ai|tech|app)(?:/[^\s"',\]\[]*)?`)

// Extractor asks a vision model which URLs appear in deck images.
type Extractor struct {
	provider llm.VisionProvider
	model    string
	preparer *imageprep.Preparer
	sleep    func(time.Duration) // swapped out in tests
}

// New creates an Extractor using the given vision provider and model.
func New(provider llm.VisionProvider, model string) *Extractor {
	return &Extractor{
		provider: provider,
		model:    model,
		preparer: imageprep.New(),
		sleep:    time.Sleep,
	}
}

// Extract sends up to maxVisionImages of the largest deck images to the
// vision model and parses the URLs out of its reply. Transport failures
// are retried with exponential backoff; a model reply that contains no
// parseable URLs is a valid empty answer, not a retryable failure.
// All failure modes degrade to an empty list.
func (e *Extractor) Extract(ctx context.Context, images []extractor.Image) []string {
	if len(images) == 0 {
		return nil
	}

	prepared := e.preparer.Prepare(images, maxVisionImages)
	if len(prepared) == 0 {
		slog.Warn("imagelinks: no images survived preparation")
		return nil
	}

	parts := make([]llm.ContentPart, 0, len(prepared)+1)
	parts = append(parts, llm.TextPart(extractionPrompt))
	for _, p := range prepared {
		parts = append(parts, llm.ImagePart(p.DataURL(), p.Detail))
	}

	req := llm.VisionChatRequest{
		Model:       e.model,
		Messages:    []llm.VisionMessage{{Role: "user", Content: parts}},
		MaxTokens:   visionMaxTokens,
		Temperature: visionTemperature,
	}

	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := e.provider.ChatWithImages(ctx, req)
		if err == nil {
			urls := ParseURLs(resp.Content)
			slog.Info("imagelinks: extracted URLs from images",
				"images", len(prepared), "urls", len(urls))
			return urls
		}

		slog.Warn("imagelinks: vision call failed",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}
		e.sleep(backoff)
		backoff *= 2
	}
	return nil
}

// ParseURLs interprets a model reply as a URL list. It tries strict JSON
// first (with or without a markdown code fence), then falls back to
// scanning the text for URL-shaped substrings.
func ParseURLs(reply string) []string {
	text := stripCodeFence(strings.TrimSpace(reply))

	var parsed []string
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return cleanURLs(parsed)
	}

	return cleanURLs(urlFallbackPattern.FindAllString(text, -1))
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cleanURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(strings.Trim(u, `"',.`))
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
