package casefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"casefeed/lib/identity"
	"casefeed/lib/scrapers/orthobullets/core"
	"casefeed/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

const listingPath = "/Site/ElasticSearch/StandardSearchTiles"

type fakeOrthobullets struct {
	tiles    map[string]string
	failing  map[string]bool
	listing  int
	loggedIn bool
}

func (f *fakeOrthobullets) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Site/Account/Login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err == nil && r.PostForm.Get("Password") == "secret" {
				http.SetCookie(w, &http.Cookie{Name: "auth", Value: "1", Path: "/"})
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, `<form method="post"><input name="Email"><input name="Password" type="password"><button type="submit">Log In</button></form>`)
	})
	mux.HandleFunc(listingPath, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("auth"); err != nil {
			http.Redirect(w, r, "/Site/Account/Login", http.StatusFound)
			return
		}
		f.loggedIn = true
		if f.listing != 0 {
			http.Error(w, "down", f.listing)
			return
		}
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, "<html><body>")
		for _, id := range []string{"1", "2", "3"} {
			ago, ok := f.tiles[id]
			if !ok {
				continue
			}
			fmt.Fprintf(w, `<div class="dashboard-item dashboard-item--case"><a href="/Site/Cases/View/%s">Case %s</a><div>%s</div></div>`, id, id, ago)
		}
		fmt.Fprint(w, "</body></html>")
	})
	mux.HandleFunc("/Site/Cases/View/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/Site/Cases/View/")
		if f.failing[id] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", "text/html")
		fmt.Fprintf(w, `<html><head>
			<meta property="og:title" content="Case number %s">
			<meta property="og:image" content="/img/%s.png">
		</head><body>
			<div class="case-author">Dr. %s</div>
			<article><p>History of case %s.</p><h3>Treatment</h3><p>Plate fixation.</p></article>
		</body></html>`, id, id, id, id)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, "<html><body>home</body></html>")
	})
	return mux
}

type harness struct {
	server  *httptest.Server
	config  Config
	service *Service
	store   identity.Store
}

func newHarness(t *testing.T, site *fakeOrthobullets, mutate func(*Config)) *harness {
	cleanup := telemetry.SetupForTesting("test:casefeed")
	t.Cleanup(cleanup)

	server := httptest.NewServer(site.handler())
	t.Cleanup(server.Close)

	dir := t.TempDir()
	config := Config{
		ListingUrl:              server.URL + listingPath,
		Credentials:             Credentials{Email: "doc@example.com", Password: "secret"},
		DisableCloudflareBypass: true,
		Output: OutputConfig{
			Feed:       filepath.Join(dir, "out", "cases.xml"),
			Structured: filepath.Join(dir, "out", "cases.json"),
		},
		State: StateConfig{File: filepath.Join(dir, "out", "seen.json")},
	}
	if mutate != nil {
		mutate(&config)
	}
	require.NoError(t, config.ApplyDefaults())

	client, err := core.NewClient(config.ClientOptions())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	store, err := OpenStore(config.State)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service, err := NewService(config, client, store)
	require.NoError(t, err)
	service.now = func() time.Time { return runStart }

	return &harness{server: server, config: config, service: service, store: store}
}

func (h *harness) readStructured(t *testing.T) []CaseRecord {
	records, err := ReadStructured(h.config.Output.Structured)
	require.NoError(t, err)
	return records
}

func (h *harness) readFeed(t *testing.T) *gofeed.Feed {
	contents, err := os.ReadFile(h.config.Output.Feed)
	require.NoError(t, err)
	feed, err := gofeed.NewParser().ParseString(string(contents))
	require.NoError(t, err)
	return feed
}

func TestRunEndToEnd(t *testing.T) {
	site := &fakeOrthobullets{tiles: map[string]string{
		"1": "Posted 1 hour ago",
		"2": "Posted 2 days ago",
		"3": "Posted 3 hours ago",
	}}
	h := newHarness(t, site, nil)

	report, err := h.service.Run(context.Background())
	require.NoError(t, err)
	require.True(t, site.loggedIn)
	require.Equal(t, 3, report.Candidates)
	require.Equal(t, 0, report.Failed)

	caseUrl := func(id string) string { return h.server.URL + "/Site/Cases/View/" + id }
	expected := []CaseRecord{
		{
			ID:          identity.Fingerprint(caseUrl("1")),
			URL:         caseUrl("1"),
			Title:       "Case number 1",
			Author:      "Dr. 1",
			BodyText:    "History of case 1. Treatment Plate fixation.",
			SectionText: "Plate fixation.",
			Images:      []string{h.server.URL + "/img/1.png"},
			EffectiveAt: runStart.Add(-time.Hour),
			New:         true,
		},
		{
			ID:          identity.Fingerprint(caseUrl("3")),
			URL:         caseUrl("3"),
			Title:       "Case number 3",
			Author:      "Dr. 3",
			BodyText:    "History of case 3. Treatment Plate fixation.",
			SectionText: "Plate fixation.",
			Images:      []string{h.server.URL + "/img/3.png"},
			EffectiveAt: runStart.Add(-3 * time.Hour),
			New:         true,
		},
	}
	if diff := cmp.Diff(expected, report.Records); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(expected, h.readStructured(t)); diff != "" {
		t.Fatal(diff)
	}

	feed := h.readFeed(t)
	require.Len(t, feed.Items, 2)
	require.Equal(t, "Case number 1", feed.Items[0].Title)
	require.Equal(t, expected[0].ID, feed.Items[0].GUID)
	require.Equal(t, "Author: Dr. 1 | Treatment: Plate fixation. | History of case 1. Treatment Plate fixation.", feed.Items[0].Description)
	require.Equal(t, "image/png", feed.Items[0].Enclosures[0].Type)
	require.Equal(t, "Case number 3", feed.Items[1].Title)

	seen := h.store.Load(context.Background())
	require.Equal(t, identity.NewSet(expected[0].ID, expected[1].ID).Sorted(), seen.Sorted())

	// a second run emits the same cases again, no longer marked new
	report, err = h.service.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Records, 2)
	require.False(t, report.Records[0].New)
	require.Empty(t, report.NewRecords())
}

func TestRunItemFailure(t *testing.T) {
	site := &fakeOrthobullets{
		tiles:   map[string]string{"1": "1 hour ago", "2": "2 hours ago"},
		failing: map[string]bool{"1": true},
	}
	h := newHarness(t, site, nil)

	report, err := h.service.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Len(t, report.Records, 1)
	require.Equal(t, "Case number 2", report.Records[0].Title)
}

func TestRunNothingRetained(t *testing.T) {
	site := &fakeOrthobullets{tiles: map[string]string{"1": "3 days ago", "2": "no date here"}}
	h := newHarness(t, site, nil)

	report, err := h.service.Run(context.Background())
	require.ErrorIs(t, err, ErrNothingRetained)
	require.Empty(t, report.Records)

	require.Empty(t, h.readStructured(t))
	require.Empty(t, h.readFeed(t).Items)
}

func TestRunIncludeUndated(t *testing.T) {
	site := &fakeOrthobullets{tiles: map[string]string{"1": "no date here", "2": "30 minutes ago"}}
	h := newHarness(t, site, func(c *Config) {
		c.IncludeUndated = true
	})

	report, err := h.service.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Records, 2)
	require.True(t, report.Records[0].EffectiveAt.Equal(runStart))
	require.Equal(t, "Case number 1", report.Records[0].Title)
	require.Nil(t, report.Records[0].PublishedAt)
}

func TestRunListingFailureStillWritesOutputs(t *testing.T) {
	site := &fakeOrthobullets{listing: http.StatusBadGateway}
	h := newHarness(t, site, nil)

	_, err := h.service.Run(context.Background())
	var fetchErr *core.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusBadGateway, fetchErr.Status)

	require.Empty(t, h.readStructured(t))
	require.Empty(t, h.readFeed(t).Items)
	_, statErr := os.Stat(h.config.State.File)
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunNoCandidates(t *testing.T) {
	site := &fakeOrthobullets{tiles: map[string]string{}}
	h := newHarness(t, site, nil)

	_, err := h.service.Run(context.Background())
	require.ErrorIs(t, err, ErrNoCandidates)
	require.Empty(t, h.readStructured(t))
}

func TestRunSQLStore(t *testing.T) {
	site := &fakeOrthobullets{tiles: map[string]string{"1": "1 hour ago"}}
	h := newHarness(t, site, func(c *Config) {
		c.State.Database = filepath.Join(filepath.Dir(c.State.File), "seen.db")
	})
	_, ok := h.store.(*identity.SQLStore)
	require.True(t, ok)

	report, err := h.service.Run(context.Background())
	require.NoError(t, err)
	require.True(t, h.store.Load(context.Background()).Has(report.Records[0].ID))
}
