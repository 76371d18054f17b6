package detail

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"casefeed/lib/chain"
	"casefeed/lib/htmlutil"
	"casefeed/lib/recency"
	"casefeed/lib/textutil"
	"casefeed/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("casefeed.scrapers.orthobullets.detail")

const (
	DefaultMaxBodyChars     = 5000
	DefaultSectionMaxBlocks = 8
	DefaultSectionMaxChars  = 1500
	authorScanChars         = 2000
)

var DefaultSectionKeywords = []string{"treatment"}

type Options struct {
	SectionKeywords  []string
	SectionMaxBlocks int
	SectionMaxChars  int
	MaxBodyChars     int
}

func (o Options) withDefaults() Options {
	if len(o.SectionKeywords) == 0 {
		o.SectionKeywords = DefaultSectionKeywords
	}
	if o.SectionMaxBlocks <= 0 {
		o.SectionMaxBlocks = DefaultSectionMaxBlocks
	}
	if o.SectionMaxChars <= 0 {
		o.SectionMaxChars = DefaultSectionMaxChars
	}
	if o.MaxBodyChars <= 0 {
		o.MaxBodyChars = DefaultMaxBodyChars
	}
	return o
}

// Fields is everything that could be read off a case page. Missing
// values are empty, never errors.
type Fields struct {
	Title       string
	Author      string
	BodyText    string
	SectionText string
	Images      []string
	PublishedAt *time.Time
}

// page is what every strategy looks at.
type page struct {
	base *url.URL
	doc  *goquery.Document
	opts Options
}

func metaContent(selector string) func(page) string {
	return func(p page) string {
		return textutil.Collapse(p.doc.Find(selector).First().AttrOr("content", ""))
	}
}

func firstText(selector string) func(page) string {
	return func(p page) string {
		return htmlutil.VisibleText(p.doc.Find(selector).First())
	}
}

var titleStrategies = []chain.Strategy[page, string]{
	{Name: "og:title", Try: chain.NonEmpty(metaContent(`meta[property="og:title"]`))},
	{Name: "title", Try: chain.NonEmpty(func(p page) string {
		return textutil.Collapse(p.doc.Find("title").First().Text())
	})},
}

var authorByRegex = regexp.MustCompile(`(?i)\bBy\s+([^\n|•]+)`)

var authorStrategies = []chain.Strategy[page, string]{
	{Name: "class*=author", Try: chain.NonEmpty(firstText(`[class*="author"]`))},
	{Name: "class*=Author", Try: chain.NonEmpty(firstText(`[class*="Author"]`))},
	{Name: "dashboard-item__author", Try: chain.NonEmpty(firstText(`.dashboard-item__author`))},
	{Name: "case-author", Try: chain.NonEmpty(firstText(`.case-author`))},
	{Name: "by-line", Try: chain.NonEmpty(func(p page) string {
		snippet := textutil.Head(htmlutil.VisibleLines(p.doc.Find("body")), authorScanChars)
		match := authorByRegex.FindStringSubmatch(snippet)
		if len(match) < 2 {
			return ""
		}
		return textutil.Collapse(match[1])
	})},
}

func parsedMeta(selector, attr string) func(page) (time.Time, bool) {
	return func(p page) (time.Time, bool) {
		var found time.Time
		var ok bool
		p.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value, exists := s.Attr(attr)
			if !exists {
				return true
			}
			found, ok = recency.ParseTimestamp(value)
			return !ok
		})
		return found, ok
	}
}

var publishedStrategies = []chain.Strategy[page, time.Time]{
	{Name: "article:published_time", Try: parsedMeta(`meta[property="article:published_time"]`, "content")},
	{Name: "pubdate", Try: parsedMeta(`meta[name="pubdate"]`, "content")},
	{Name: "time[datetime]", Try: parsedMeta(`time[datetime]`, "datetime")},
	{Name: "og:updated_time", Try: parsedMeta(`meta[property="og:updated_time"]`, "content")},
}

func bodyOf(selector string) func(page) string {
	return func(p page) string {
		return textutil.Truncate(htmlutil.VisibleText(p.doc.Find(selector).First()), p.opts.MaxBodyChars)
	}
}

var bodyStrategies = []chain.Strategy[page, string]{
	{Name: "article", Try: chain.NonEmpty(bodyOf("article"))},
	{Name: "case-content", Try: chain.NonEmpty(bodyOf(".case-content"))},
	{Name: "content", Try: chain.NonEmpty(bodyOf("#content"))},
	{Name: "main", Try: chain.NonEmpty(bodyOf("main"))},
	{Name: "document", Try: chain.NonEmpty(func(p page) string {
		return textutil.Truncate(htmlutil.VisibleText(p.doc.Selection), p.opts.MaxBodyChars)
	})},
}

const headings = "h2, h3, h4"

func sectionText(p page) string {
	var heading *goquery.Selection
	p.doc.Find(headings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if textutil.MatchName(htmlutil.VisibleText(h), p.opts.SectionKeywords) {
			heading = h
			return false
		}
		return true
	})
	if heading == nil {
		return ""
	}

	var blocks []string
	for sibling := heading.Next(); sibling.Length() > 0; sibling = sibling.Next() {
		if sibling.Is(headings) || len(blocks) >= p.opts.SectionMaxBlocks {
			break
		}
		if text := htmlutil.VisibleText(sibling); text != "" {
			blocks = append(blocks, text)
		}
	}
	return textutil.Truncate(strings.Join(blocks, " "), p.opts.SectionMaxChars)
}

func images(p page) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
			return
		}
		resolved := htmlutil.Resolve(p.base, raw)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		out = append(out, resolved)
	}

	p.doc.Find(`meta[property="og:image"], img`).Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "meta" {
			add(sel.AttrOr("content", ""))
			return
		}
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			src = sel.AttrOr("data-src", "")
		}
		add(src)
	})
	return out
}

// Extract reads the case fields off doc, pageUrl is the address the
// case was listed under and the title of last resort.
func Extract(ctx context.Context, pageUrl string, doc *goquery.Document, opts Options) Fields {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	base := doc.Url
	if base == nil {
		base, _ = url.Parse(pageUrl)
	}
	p := page{base: base, doc: doc, opts: opts.withDefaults()}

	title := chain.First(p, titleStrategies)
	author := chain.First(p, authorStrategies)
	published := chain.First(p, publishedStrategies)
	body := chain.First(p, bodyStrategies)

	fields := Fields{
		Title:       title.Or(pageUrl),
		Author:      author.Or(""),
		BodyText:    body.Or(""),
		SectionText: sectionText(p),
		Images:      images(p),
	}
	if published.OK {
		fields.PublishedAt = timezone.NormalizePtr(&published.Value)
	}

	span.SetAttributes(
		attribute.String("url", pageUrl),
		attribute.String("title_strategy", title.Name),
		attribute.String("author_strategy", author.Name),
		attribute.String("published_strategy", published.Name),
		attribute.String("body_strategy", body.Name),
		attribute.Int("images", len(fields.Images)),
	)
	return fields
}
