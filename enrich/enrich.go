// Package enrich fetches web pages referenced in a pitch deck and
// extracts the facts an analyst would want in the prompt: title,
// description, main content, company and contact details, social links.
// Every URL is best-effort; a failure on one never aborts the batch.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	descriptionLimit = 200
	mainContentLimit = 1000
	aboutLimit       = 500
)

// Result is the per-URL scrape record. Records are independent: a
// failure in one never invalidates the others.
type Result struct {
	URL         string      `json:"url"`
	Status      string      `json:"status"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	MainContent string      `json:"main_content,omitempty"`
	Company     CompanyInfo `json:"company_info,omitempty"`
	Contact     ContactInfo `json:"contact_info,omitempty"`
	SocialLinks []string    `json:"social_links,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// CompanyInfo holds company-specific heuristics from a page.
type CompanyInfo struct {
	Name  string `json:"name,omitempty"`
	About string `json:"about,omitempty"`
}

// ContactInfo holds contact details found in page text.
type ContactInfo struct {
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
}

// Scraper fetches and parses pages with a bounded timeout and a fixed
// politeness delay between fetches.
type Scraper struct {
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Scraper. timeout bounds each fetch; delay is the
// politeness spacing between consecutive fetches.
func New(timeout, delay time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Scraper{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// ScrapeAll scrapes each URL sequentially and returns one record per
// attempted URL, keyed by the input URL string. Iteration order of the
// batch is the input order; partial failure never aborts the batch.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) map[string]Result {
	results := make(map[string]Result, len(urls))
	for _, u := range urls {
		results[u] = s.Scrape(ctx, u)
	}
	return results
}

// Scrape fetches and parses one URL. Network and parse failures are
// converted to a StatusError record rather than returned as errors.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) Result {
	target := rawURL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	slog.Info("enrich: scraping URL", "url", target)

	// The limiter enforces the politeness delay: the first fetch passes
	// immediately, each subsequent one waits out the configured spacing.
	if err := s.limiter.Wait(ctx); err != nil {
		return errorResult(rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return errorResult(rawURL, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("enrich: request failed", "url", target, "error", err)
		return errorResult(rawURL, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorResult(rawURL, fmt.Errorf("request failed: status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		slog.Warn("enrich: parse failed", "url", target, "error", err)
		return errorResult(rawURL, fmt.Errorf("parsing page: %w", err))
	}

	doc.Find("script, style").Remove()

	return Result{
		URL:         rawURL,
		Status:      StatusSuccess,
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		MainContent: extractMainContent(doc),
		Company:     extractCompanyInfo(doc),
		Contact:     extractContactInfo(doc),
		SocialLinks: extractSocialLinks(doc, target),
	}
}

func errorResult(url string, err error) Result {
	return Result{URL: url, Status: StatusError, Error: err.Error()}
}

// --- page extraction heuristics ---

func extractTitle(doc *goquery.Document) string {
	if t := clean(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := clean(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return "No title found"
}

func extractDescription(doc *goquery.Document) string {
	if c, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && clean(c) != "" {
		return clean(c)
	}
	if c, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && clean(c) != "" {
		return clean(c)
	}
	if t := clean(doc.Find("p").First().Text()); t != "" {
		return truncate(t, descriptionLimit)
	}
	return "No description found"
}

// mainContentSelectors is checked in priority order.
var mainContentSelectors = []string{
	"main", "article", ".content", "#content",
	".main-content", ".post-content", ".entry-content",
}

func extractMainContent(doc *goquery.Document) string {
	for _, sel := range mainContentSelectors {
		node := doc.Find(sel).First()
		if node.Length() > 0 {
			if t := clean(node.Text()); t != "" {
				return truncate(t, mainContentLimit)
			}
		}
	}

	// Fallback: first five paragraphs.
	var parts []string
	doc.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		if t := clean(p.Text()); t != "" {
			parts = append(parts, t)
		}
		return len(parts) < 5
	})
	if len(parts) > 0 {
		return truncate(strings.Join(parts, " "), mainContentLimit)
	}
	return "No main content found"
}

var (
	companyNameSelectors = []string{
		".company-name", ".brand-name", ".logo-text",
		"h1", ".site-title", ".navbar-brand",
	}
	aboutSelectors = []string{".about", "#about", ".company-info", ".about-us"}
)

func extractCompanyInfo(doc *goquery.Document) CompanyInfo {
	var info CompanyInfo
	for _, sel := range companyNameSelectors {
		if t := clean(doc.Find(sel).First().Text()); t != "" {
			info.Name = t
			break
		}
	}
	for _, sel := range aboutSelectors {
		if t := clean(doc.Find(sel).First().Text()); t != "" {
			info.About = truncate(t, aboutLimit)
			break
		}
	}
	return info
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ().-]{6,18}[0-9]`)
)

func extractContactInfo(doc *goquery.Document) ContactInfo {
	text := doc.Text()
	return ContactInfo{
		Emails: dedupe(emailPattern.FindAllString(text, -1)),
		Phones: dedupe(phonePattern.FindAllString(text, -1)),
	}
}

var socialDomains = []string{
	"facebook.com", "twitter.com", "x.com", "linkedin.com",
	"instagram.com", "youtube.com", "github.com", "tiktok.com",
}

func extractSocialLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var found []string
	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}

		host := strings.TrimPrefix(strings.ToLower(ref.Host), "www.")
		for _, d := range socialDomains {
			if host == d || strings.HasSuffix(host, "."+d) {
				found = append(found, ref.String())
				return
			}
		}
	})
	return dedupe(found)
}

// --- helpers ---

var whitespacePattern = regexp.MustCompile(`\s+`)

func clean(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// dedupe keeps first occurrences, preserving order.
func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
