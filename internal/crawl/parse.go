package crawl

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

const readingWordsPerMinute = 200

// dealURLKeywords marks a link as probably deal-related from its path
// alone, before spending a fetch on it.
var dealURLKeywords = []string{
	"deal", "merger", "acquisition", "buyout", "takeover",
	"m-a", "ipo", "spac", "private-equity", "leveraged-buyout",
	"consolidation", "joint-venture", "partnership",
}

var paywallIndicators = []string{
	"paywall",
	"subscription required",
	"subscribe to continue",
	"premium content",
	"subscriber exclusive",
}

// listingPage is what one listing fetch yields: article links plus at
// most one pagination link.
type listingPage struct {
	articleLinks []string
	nextPage     string
}

func parseListing(body []byte, base *url.URL, sel config.Selectors) (listingPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return listingPage{}, fmt.Errorf("parse listing html: %w", err)
	}
	var page listingPage
	doc.Find(sel.ArticleLinks).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs := resolveURL(base, href)
		if abs != "" {
			page.articleLinks = append(page.articleLinks, abs)
		}
	})
	if sel.NextPage != "" {
		if href, ok := doc.Find(sel.NextPage).First().Attr("href"); ok {
			page.nextPage = resolveURL(base, href)
		}
	}
	return page, nil
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

// relevant reports whether a link looks deal-related, from the URL path
// and the configured relevance keywords.
func relevant(link string, extraKeywords []string) bool {
	lower := strings.ToLower(link)
	for _, kw := range dealURLKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range extraKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func allowedDomain(link string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, d := range allowed {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func paywalled(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, indicator := range paywallIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// parseArticle builds a RawArticle from the page, trying the configured
// selectors first and falling back to readability extraction when they
// come up empty.
func parseArticle(body []byte, pageURL string, source string, sel config.Selectors) (*pipeline.RawArticle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse article html: %w", err)
	}

	article := &pipeline.RawArticle{URL: pageURL, Source: source}
	if sel.Title != "" {
		article.Title = cleanText(doc.Find(sel.Title).First().Text())
	}
	if sel.Body != "" {
		var parts []string
		doc.Find(sel.Body).Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		article.Body = strings.Join(parts, "\n")
	}
	if sel.Author != "" {
		article.Author = cleanText(doc.Find(sel.Author).First().Text())
	}
	if sel.Published != "" {
		raw := cleanText(doc.Find(sel.Published).First().Text())
		if raw == "" {
			raw, _ = doc.Find(sel.Published).First().Attr("datetime")
		}
		if raw != "" {
			if ts, perr := dateparse.ParseAny(raw); perr == nil {
				article.Published = ts
			}
		}
	}

	if article.Body == "" || article.Title == "" {
		fillFromReadability(article, body, pageURL)
	}

	article.WordCount = len(strings.Fields(article.Body))
	article.ReadingTime = readingMinutes(article.WordCount)
	return article, nil
}

func fillFromReadability(article *pipeline.RawArticle, body []byte, pageURL string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	result, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return
	}
	if article.Title == "" {
		article.Title = cleanText(result.Title)
	}
	if article.Body == "" {
		article.Body = cleanText(result.TextContent)
	}
	if article.Author == "" {
		article.Author = cleanText(result.Byline)
	}
}

func readingMinutes(words int) int {
	if words == 0 {
		return 0
	}
	minutes := (words + readingWordsPerMinute - 1) / readingWordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
