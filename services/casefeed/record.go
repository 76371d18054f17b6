package casefeed

import (
	"time"

	"casefeed/lib/scrapers/orthobullets/listing"
)

// CaseRecord is one emitted case. Every field is always present in the
// structured document, PublishedAt is null when the page had no date.
type CaseRecord struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	BodyText    string     `json:"bodyText"`
	SectionText string     `json:"sectionText"`
	Images      []string   `json:"images"`
	PublishedAt *time.Time `json:"publishedAt"`
	// EffectiveAt is the timestamp the record was filtered and ordered by.
	EffectiveAt time.Time `json:"effectiveAt"`
	// New is set when the id was not emitted by any earlier run.
	New bool `json:"new"`
}

// ItemResult is the outcome of processing one candidate, exactly one of
// Record and Err is meaningful.
type ItemResult struct {
	Candidate listing.Candidate
	Record    CaseRecord
	Err       error
}
