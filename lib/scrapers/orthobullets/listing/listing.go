package listing

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"casefeed/lib/htmlutil"
	"casefeed/lib/recency"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("casefeed.scrapers.orthobullets.listing")

const (
	DefaultTileSelector   = `div[class*="dashboard-item--case"]`
	DefaultAnchorSelector = `a[href]`
	DefaultDetailPattern  = `/Site/Cases/View/`
	DefaultMaxItems       = 50
)

// Candidate is a case link found on the listing page along with the
// publication time hinted at by its tile, if any.
type Candidate struct {
	URL  string
	Hint *time.Time
}

type Options struct {
	TileSelector   string
	AnchorSelector string
	DetailPattern  *regexp.Regexp
	MaxItems       int
}

func (o Options) withDefaults() Options {
	if o.TileSelector == "" {
		o.TileSelector = DefaultTileSelector
	}
	if o.AnchorSelector == "" {
		o.AnchorSelector = DefaultAnchorSelector
	}
	if o.DetailPattern == nil {
		o.DetailPattern = regexp.MustCompile(regexp.QuoteMeta(DefaultDetailPattern))
	}
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	return o
}

type collector struct {
	base    *url.URL
	opts    Options
	seen    map[string]bool
	results []Candidate
}

func (c *collector) full() bool {
	return len(c.results) >= c.opts.MaxItems
}

func (c *collector) add(href string, hint *time.Time) {
	resolved := htmlutil.Resolve(c.base, href)
	if resolved == "" || !c.opts.DetailPattern.MatchString(resolved) || c.seen[resolved] {
		return
	}
	c.seen[resolved] = true
	c.results = append(c.results, Candidate{URL: resolved, Hint: hint})
}

// Collect extracts case candidates from a listing document in document
// order. Tiles are preferred; only when the page has none does it fall
// back to every anchor on the page.
func Collect(ctx context.Context, doc *goquery.Document, opts Options, now time.Time) []Candidate {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()

	opts = opts.withDefaults()
	c := &collector{
		base:    doc.Url,
		opts:    opts,
		seen:    map[string]bool{},
		results: []Candidate{},
	}

	tiles := doc.Find(opts.TileSelector)
	if tiles.Length() > 0 {
		tiles.EachWithBreak(func(_ int, tile *goquery.Selection) bool {
			link := tile.Find("a[href]").First()
			href, ok := link.Attr("href")
			if !ok {
				return true
			}
			hint := recency.ParseRelativePtr(htmlutil.VisibleText(tile), now)
			c.add(href, hint)
			return !c.full()
		})
		span.SetAttributes(
			attribute.String("strategy", "tiles"),
			attribute.Int("tiles", tiles.Length()),
		)
	} else {
		slog.DebugContext(ctx, "no case tiles found, falling back to anchors", "selector", opts.TileSelector)
		for _, anchor := range htmlutil.GetAnchors(ctx, c.base, doc.Find(opts.AnchorSelector)) {
			c.add(anchor.Href, nil)
			if c.full() {
				break
			}
		}
		span.SetAttributes(attribute.String("strategy", "anchors"))
	}

	span.SetAttributes(attribute.Int("candidates", len(c.results)))
	return c.results
}
