// Package links discovers and categorizes URLs, bare-domain mentions and
// email addresses in pitch deck text. It is pure text-in/struct-out: no
// I/O, fully deterministic.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

// Categories, in the fixed priority order used for host matching.
const (
	CategorySocial       = "social_media"
	CategoryProfessional = "professional"
	CategoryRepositories = "repositories"
	CategoryWebsites     = "websites"
)

// Categorized maps a category name to unique URLs in discovery order.
// Categories with no members are omitted from the map.
type Categorized map[string][]string

var (
	urlPattern   = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*(),%/?#=~:;]+`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Bare-domain mention patterns for recognized platforms. Matched in
	// this order so reconstruction output is deterministic.
	platformPatterns = []struct {
		name    string
		re      *regexp.Regexp
		rebuild func(match string) string
	}{
		{"linkedin", regexp.MustCompile(`(?i)(?:www\.)?linkedin\.com/(?:in/|company/)([A-Za-z0-9-]+)`),
			func(m string) string { return "https://linkedin.com/company/" + m }},
		{"twitter", regexp.MustCompile(`(?i)(?:www\.)?(?:twitter\.com|x\.com)/([A-Za-z0-9_]+)`),
			func(m string) string { return "https://twitter.com/" + m }},
		{"facebook", regexp.MustCompile(`(?i)(?:www\.)?facebook\.com/([A-Za-z0-9.]+)`),
			func(m string) string { return "https://facebook.com/" + m }},
		{"instagram", regexp.MustCompile(`(?i)(?:www\.)?instagram\.com/([A-Za-z0-9_.]+)`),
			func(m string) string { return "https://instagram.com/" + m }},
		{"github", regexp.MustCompile(`(?i)(?:www\.)?github\.com/([A-Za-z0-9-]+)`),
			func(m string) string { return "https://github.com/" + m }},
		{"youtube", regexp.MustCompile(`(?i)(?:www\.)?youtube\.com/(?:c/|channel/|user/)?([A-Za-z0-9_-]+)`),
			func(m string) string { return "https://youtube.com/c/" + m }},
		{"crunchbase", regexp.MustCompile(`(?i)(?:www\.)?crunchbase\.com/organization/([A-Za-z0-9-]+)`),
			func(m string) string { return "https://crunchbase.com/organization/" + m }},
	}

	websitePattern = regexp.MustCompile(`(?i)(?:www\.)?([A-Za-z0-9-]+\.(?:com|org|net|io|co|ai|tech|app))\b`)
)

var (
	socialDomains       = []string{"twitter.com", "x.com", "facebook.com", "instagram.com", "youtube.com", "tiktok.com"}
	professionalDomains = []string{"linkedin.com", "crunchbase.com", "angellist.com", "pitchbook.com"}
	repositoryDomains   = []string{"github.com", "gitlab.com", "bitbucket.org"}
)

// Extract finds absolute URLs and bare-domain platform mentions in text,
// deduplicates them on a normalized form, and categorizes each by host.
// Order within a category is discovery order: absolute URLs in text order
// first, then platform reconstructions.
func Extract(text string) Categorized {
	if text == "" {
		return Categorized{}
	}

	var discovered []string
	discovered = append(discovered, urlPattern.FindAllString(text, -1)...)

	for _, p := range platformPatterns {
		for _, groups := range p.re.FindAllStringSubmatch(text, -1) {
			discovered = append(discovered, p.rebuild(groups[1]))
		}
	}
	for _, groups := range websitePattern.FindAllStringSubmatch(text, -1) {
		discovered = append(discovered, "https://"+strings.ToLower(groups[1]))
	}

	categorized := Categorized{}
	seen := make(map[string]bool)
	for _, u := range discovered {
		key := normalize(u)
		if seen[key] {
			continue
		}
		seen[key] = true

		cat := Categorize(u)
		categorized[cat] = append(categorized[cat], u)
	}
	return categorized
}

// ExtractEmails finds unique email addresses in text, in discovery order.
func ExtractEmails(text string) []string {
	if text == "" {
		return nil
	}
	var emails []string
	seen := make(map[string]bool)
	for _, e := range emailPattern.FindAllString(text, -1) {
		key := strings.ToLower(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		emails = append(emails, e)
	}
	return emails
}

// Categorize assigns exactly one category to a URL based on its host,
// checked in fixed priority order: social, professional, repositories,
// and websites for everything else. Deterministic and total.
func Categorize(rawURL string) string {
	host := hostOf(rawURL)
	switch {
	case matchesAny(host, socialDomains):
		return CategorySocial
	case matchesAny(host, professionalDomains):
		return CategoryProfessional
	case matchesAny(host, repositoryDomains):
		return CategoryRepositories
	default:
		return CategoryWebsites
	}
}

// normalize builds the dedupe key: lowercase host without www, plus the
// path with any trailing slash removed. A bare-domain reconstruction and
// a scheme-qualified mention of the same link collapse to one key.
func normalize(rawURL string) string {
	u, err := url.Parse(withScheme(rawURL))
	if err != nil {
		return strings.ToLower(rawURL)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.Path, "/")
	return host + path
}

func hostOf(rawURL string) string {
	u, err := url.Parse(withScheme(rawURL))
	if err != nil {
		return strings.ToLower(rawURL)
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func withScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + rawURL
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// All flattens the categorized map into one list, category by category in
// priority order, preserving discovery order within each.
func (c Categorized) All() []string {
	var all []string
	for _, cat := range []string{CategoryWebsites, CategorySocial, CategoryProfessional, CategoryRepositories} {
		all = append(all, c[cat]...)
	}
	return all
}

// Total returns the number of categorized URLs.
func (c Categorized) Total() int {
	n := 0
	for _, urls := range c {
		n += len(urls)
	}
	return n
}

// FormatForResearch renders the discovered links (and any deck emails)
// as a prompt-ready block. Returns "" when nothing was found.
func FormatForResearch(c Categorized, emails []string) string {
	if c.Total() == 0 && len(emails) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n**URLs and Links Found in Pitch Deck:**\n")

	for _, cat := range []string{CategoryWebsites, CategorySocial, CategoryProfessional, CategoryRepositories} {
		urls := c[cat]
		if len(urls) == 0 {
			continue
		}
		b.WriteString("\n" + titleCase(cat) + ":\n")
		for _, u := range urls {
			b.WriteString("- " + u + "\n")
		}
	}

	if len(emails) > 0 {
		b.WriteString("\nEmail Addresses:\n")
		for _, e := range emails {
			b.WriteString("- " + e + "\n")
		}
	}

	return b.String()
}

func titleCase(category string) string {
	words := strings.Split(category, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
