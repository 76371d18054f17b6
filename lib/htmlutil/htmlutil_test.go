package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestVisibleText(t *testing.T) {
	doc := parse(t, `<html><head><title>T</title><style>.a{}</style></head>
<body><p>First<b>bold</b></p><script>var x = 1;</script><div>Second</div>
<noscript>enable js</noscript></body></html>`)

	require.Equal(t, "Firstbold Second", VisibleText(doc.Find("body")))
	require.Equal(t, "", VisibleText(doc.Find("nav")))
	require.Equal(t, "Firstbold\nSecond", VisibleLines(doc.Find("body")))
}

func TestResolve(t *testing.T) {
	base, err := url.Parse("https://www.orthobullets.com/Site/ElasticSearch/StandardSearchTiles?contentType=5")
	require.NoError(t, err)

	cases := []struct {
		href   string
		expect string
	}{
		{href: "/Site/Cases/View/1234", expect: "https://www.orthobullets.com/Site/Cases/View/1234"},
		{href: "https://cdn.example.com/a.jpg", expect: "https://cdn.example.com/a.jpg"},
		{href: "View/5", expect: "https://www.orthobullets.com/Site/ElasticSearch/View/5"},
		{href: "  ", expect: ""},
		{href: "#top", expect: ""},
		{href: "javascript:void(0)", expect: ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, Resolve(base, test.href), test.href)
	}
}

func TestGetAnchors(t *testing.T) {
	base, _ := url.Parse("https://example.com/list")
	doc := parse(t, `<div><a href="/a">  Case
 A </a><a>no href</a><a href="#x">frag</a><a href="https://other.com/b">B</a></div>`)

	anchors := GetAnchors(context.Background(), base, doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Case A", Href: "https://example.com/a"},
		{Name: "B", Href: "https://other.com/b"},
	}, anchors)
}
