package testutil

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"casefeed/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
)

// SetupTest prepares logging for a package's tests.
func SetupTest(t testing.TB, name string) {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", name))
	t.Cleanup(cleanup)
}

// ParseHTML parses src as if it had been served from pageUrl, pageUrl may
// be empty.
func ParseHTML(t testing.TB, src, pageUrl string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if pageUrl != "" {
		doc.Url, err = url.Parse(pageUrl)
		if err != nil {
			t.Fatal(err)
		}
	}
	return doc
}
