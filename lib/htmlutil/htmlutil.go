package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"casefeed/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tracer = otel.Tracer("casefeed.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// hidden elements never contribute to rendered text
var hidden = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Ul: true, atom.Ol: true, atom.Table: true,
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, visibleOnly bool) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if visibleOnly && node.Type == html.ElementNode {
		if hidden[node.DataAtom] {
			return
		}
		if block[node.DataAtom] {
			buffer.WriteByte('\n')
			defer buffer.WriteByte('\n')
		}
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, visibleOnly)
		child = child.NextSibling
	}
}

// VisibleText returns the whitespace-collapsed text of every node in the
// selection, skipping scripts, styles and other non-rendered elements.
func VisibleText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer, true)
		buffer.WriteByte(' ')
	}
	return textutil.Collapse(buffer.String())
}

// VisibleLines is VisibleText that keeps block boundaries as line breaks,
// empty lines are dropped.
func VisibleLines(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer, true)
		buffer.WriteByte('\n')
	}
	var lines []string
	for _, line := range strings.Split(buffer.String(), "\n") {
		line = textutil.Collapse(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Resolve makes href absolute against base, it returns "" for empty,
// fragment-only, javascript: and unparseable links.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		link = base.ResolveReference(link)
	}
	return link.String()
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors returns the text and absolute href of every node in sel that
// carries a resolvable href.
func GetAnchors(ctx context.Context, base *url.URL, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		resolved := Resolve(base, href)
		if resolved == "" {
			if href != "" {
				span.SetStatus(codes.Error, "got unresolvable href")
			}
			continue
		}

		name := textutil.Collapse(GetText(n))
		anchors = append(anchors, Anchor{
			Name: name,
			Href: resolved,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", resolved),
		))
	}

	return anchors
}
