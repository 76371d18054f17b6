package casefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"casefeed/lib/feedgen"
	"casefeed/lib/identity"
)

func (s *Service) feedItems(records []CaseRecord) []feedgen.Item {
	items := make([]feedgen.Item, len(records))
	for i, rec := range records {
		item := feedgen.Item{
			Title: rec.Title,
			Link:  rec.URL,
			GUID:  rec.ID,
			Description: feedgen.Describe(
				feedgen.DescriptionPart{Label: "Author", Text: rec.Author},
				feedgen.DescriptionPart{Label: s.config.Section.Label, Text: rec.SectionText},
				feedgen.DescriptionPart{Text: feedgen.Excerpt(rec.BodyText, feedgen.DefaultExcerptChars)},
			),
			PubDate: rec.EffectiveAt,
		}
		if len(rec.Images) > 0 {
			item.Image = rec.Images[0]
		}
		items[i] = item
	}
	return items
}

// BuildFeed renders records, already in emission order, as RSS.
func (s *Service) BuildFeed(now time.Time, records []CaseRecord) ([]byte, error) {
	return feedgen.BuildRSS(feedgen.Channel{
		Title:         s.config.Feed.Title,
		Link:          s.config.Feed.Link,
		Description:   s.config.Feed.Description,
		LastBuildDate: now,
	}, s.feedItems(records))
}

// BuildStructured renders records as an indented JSON array.
func BuildStructured(records []CaseRecord) ([]byte, error) {
	if records == nil {
		records = []CaseRecord{}
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

// writeFile replaces path through a temporary file in the same directory
// so readers never observe a partial document.
func writeFile(path string, contents []byte) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	err = os.Chmod(tmp.Name(), 0o644)
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Service) writeOutputs(ctx context.Context, now time.Time, records []CaseRecord) error {
	var errs []error

	feed, err := s.BuildFeed(now, records)
	if err == nil {
		err = writeFile(s.config.Output.Feed, feed)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("write feed: %w", err))
	}

	structured, err := BuildStructured(records)
	if err == nil {
		err = writeFile(s.config.Output.Structured, structured)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("write structured document: %w", err))
	}

	if len(errs) == 0 {
		slog.InfoContext(
			ctx, "wrote outputs",
			"feed", s.config.Output.Feed,
			"structured", s.config.Output.Structured,
			"items", len(records),
		)
	}
	return errors.Join(errs...)
}

// OpenStore opens the identity store selected by the state config.
func OpenStore(config StateConfig) (identity.Store, error) {
	if config.Database != "" {
		return identity.OpenSQLStore(config.Database)
	}
	path := config.File
	if path == "" {
		path = DefaultStatePath
	}
	return identity.NewFileStore(path), nil
}

// ReadStructured loads a structured document written by an earlier run.
func ReadStructured(path string) ([]CaseRecord, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []CaseRecord
	err = json.Unmarshal(contents, &records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
