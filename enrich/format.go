package enrich

import (
	"fmt"
	"strings"
)

// FormatForPrompt renders scrape results as a text block suitable for
// inclusion in an analysis prompt. order fixes the rendering sequence
// (normally the discovery order of the URLs); failed scrapes are
// rendered explicitly so the model knows what could not be reached.
func FormatForPrompt(results map[string]Result, order []string) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== WEB RESEARCH RESULTS ===\n\n")

	for _, u := range order {
		r, ok := results[u]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "URL: %s\n", r.URL)
		if r.Status != StatusSuccess {
			fmt.Fprintf(&b, "Status: Failed to scrape (%s)\n\n", r.Error)
			continue
		}

		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
		if r.Company.Name != "" {
			fmt.Fprintf(&b, "Company Name: %s\n", r.Company.Name)
		}
		if r.Company.About != "" {
			fmt.Fprintf(&b, "About: %s\n", r.Company.About)
		}
		if len(r.Contact.Emails) > 0 {
			fmt.Fprintf(&b, "Contact Emails: %s\n", strings.Join(r.Contact.Emails, ", "))
		}
		if len(r.SocialLinks) > 0 {
			fmt.Fprintf(&b, "Social Links: %s\n", strings.Join(r.SocialLinks, ", "))
		}
		if r.MainContent != "" {
			fmt.Fprintf(&b, "Main Content: %s\n", r.MainContent)
		}
		b.WriteString("\n")
	}

	return b.String()
}
