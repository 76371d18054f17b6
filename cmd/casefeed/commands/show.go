package commands

import (
	"fmt"
	"os"
	"time"

	"casefeed/lib/textutil"
	"casefeed/services/casefeed"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mmcdole/gofeed"
	"github.com/spf13/cobra"
)

var (
	showStructured string
	showFeed       string
)

func init() {
	showCmd.Flags().StringVar(&showStructured, "structured", casefeed.DefaultJsonPath, "The structured document to read.")
	showCmd.Flags().StringVar(&showFeed, "feed", "", "Read this RSS feed instead of the structured document.")
	rootCmd.AddCommand(showCmd)
}

type shownCase struct {
	When   time.Time
	Title  string
	Author string
	New    string
	Link   string
}

func casesFromStructured(path string) ([]shownCase, error) {
	records, err := casefeed.ReadStructured(path)
	if err != nil {
		return nil, err
	}
	out := make([]shownCase, len(records))
	for i, rec := range records {
		isNew := ""
		if rec.New {
			isNew = "yes"
		}
		out[i] = shownCase{
			When:   rec.EffectiveAt,
			Title:  rec.Title,
			Author: rec.Author,
			New:    isNew,
			Link:   rec.URL,
		}
	}
	return out, nil
}

func casesFromFeed(path string) ([]shownCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	feed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]shownCase, len(feed.Items))
	for i, item := range feed.Items {
		shown := shownCase{Title: item.Title, Author: item.Description, Link: item.Link}
		if item.PublishedParsed != nil {
			shown.When = *item.PublishedParsed
		}
		out[i] = shown
	}
	return out, nil
}

var showCmd = &cobra.Command{
	Use:   "show [--structured <path>] [--feed <path>]",
	Short: "Prints the cases emitted by the last run.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cases []shownCase
		var err error
		if showFeed != "" {
			cases, err = casesFromFeed(showFeed)
		} else {
			cases, err = casesFromStructured(showStructured)
		}
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		if showFeed != "" {
			t.AppendHeader(table.Row{"Published", "Title", "Description", "Link"})
		} else {
			t.AppendHeader(table.Row{"Published", "Title", "Author", "New", "Link"})
		}
		for _, c := range cases {
			when := ""
			if !c.When.IsZero() {
				when = c.When.Format(time.DateTime)
			}
			if showFeed != "" {
				t.AppendRow(table.Row{when, c.Title, textutil.Truncate(c.Author, 60), c.Link})
				continue
			}
			t.AppendRow(table.Row{when, c.Title, c.Author, c.New, c.Link})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d cases", len(cases))})
		t.Render()
		return nil
	},
}
