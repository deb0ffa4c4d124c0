package enrichment

import (
	"net/url"
	"strings"
)

const (
	SourceDirect   = "Direct"
	SourceSearch   = "Search"
	SourceSocial   = "Social"
	SourceAI       = "AI"
	SourceReferral = "Referral"
)

// RefererClassifier classifies traffic sources from referer URLs.
type RefererClassifier struct {
	// Checked in order; the first matching category wins.
	categories []sourceCategory
}

type sourceCategory struct {
	source  string
	domains []string
}

// NewRefererClassifier creates a new RefererClassifier with predefined domain lists.
func NewRefererClassifier() *RefererClassifier {
	return &RefererClassifier{
		categories: []sourceCategory{
			{SourceAI, []string{
				"chatgpt.com",
				"claude.ai",
				"gemini.google.com",
				"perplexity.ai",
				"copilot.microsoft.com",
			}},
			{SourceSearch, []string{
				"google.com",
				"bing.com",
				"yahoo.com",
				"duckduckgo.com",
				"baidu.com",
				"yandex.ru",
				"ecosia.org",
			}},
			{SourceSocial, []string{
				"facebook.com",
				"twitter.com",
				"x.com",
				"t.co",
				"instagram.com",
				"linkedin.com",
				"pinterest.com",
				"reddit.com",
				"tiktok.com",
				"youtube.com",
				"threads.net",
				"mastodon.social",
			}},
		},
	}
}

// ClassifySource returns SourceDirect for a missing or unparseable referer, the
// matching category for known hosts, and SourceReferral otherwise.
func (r *RefererClassifier) ClassifySource(referer *string) string {
	if referer == nil || *referer == "" {
		return SourceDirect
	}

	parsed, err := url.Parse(*referer)
	if err != nil || parsed.Hostname() == "" {
		return SourceDirect
	}
	hostname := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	for _, c := range r.categories {
		for _, d := range c.domains {
			if hostname == d || strings.HasSuffix(hostname, "."+d) {
				return c.source
			}
		}
	}
	return SourceReferral
}
