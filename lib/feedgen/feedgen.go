// Package feedgen renders RSS 2.0 documents with Media RSS image
// attachments.
package feedgen

import (
	"encoding/xml"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"casefeed/lib/textutil"
)

const (
	MediaNamespace      = "http://search.yahoo.com/mrss/"
	DefaultImageType    = "image/jpeg"
	DefaultExcerptChars = 300
	partSeparator       = " | "
)

type Channel struct {
	Title         string
	Link          string
	Description   string
	LastBuildDate time.Time
}

type Item struct {
	Title       string
	Link        string
	GUID        string
	Description string
	PubDate     time.Time
	// Image becomes the enclosure when set.
	Image string
}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Media   string     `xml:"xmlns:media,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssGuid struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

type mediaContent struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr"`
	Type   string `xml:"type,attr,omitempty"`
}

type rssItem struct {
	Title        string        `xml:"title"`
	Link         string        `xml:"link"`
	GUID         rssGuid       `xml:"guid"`
	PubDate      string        `xml:"pubDate"`
	Description  string        `xml:"description,omitempty"`
	Enclosure    *rssEnclosure `xml:"enclosure"`
	MediaContent *mediaContent `xml:"media:content"`
}

// ImageType guesses the mime type of an image from its url path.
func ImageType(rawUrl string) string {
	p := rawUrl
	if u, err := url.Parse(rawUrl); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case "":
		return DefaultImageType
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	return DefaultImageType
}

// DescriptionPart is one labeled piece of an item description.
type DescriptionPart struct {
	Label string
	Text  string
}

// Describe joins the non-empty parts as "Label: text" (or just the text
// when unlabeled) separated by " | ".
func Describe(parts ...DescriptionPart) string {
	var out []string
	for _, p := range parts {
		text := textutil.Collapse(p.Text)
		if text == "" {
			continue
		}
		if p.Label != "" {
			text = p.Label + ": " + text
		}
		out = append(out, text)
	}
	return strings.Join(out, partSeparator)
}

// Excerpt shortens body for use in a description.
func Excerpt(body string, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptChars
	}
	collapsed := textutil.Collapse(body)
	excerpt := textutil.Truncate(collapsed, limit)
	if excerpt != collapsed {
		excerpt += "…"
	}
	return excerpt
}

// BuildRSS renders the channel and items in the order given.
func BuildRSS(channel Channel, items []Item) ([]byte, error) {
	doc := rss{
		Version: "2.0",
		Media:   MediaNamespace,
		Channel: rssChannel{
			Title:         channel.Title,
			Link:          channel.Link,
			Description:   channel.Description,
			LastBuildDate: channel.LastBuildDate.Format(time.RFC1123Z),
			Items:         make([]rssItem, 0, len(items)),
		},
	}

	for _, item := range items {
		out := rssItem{
			Title:       item.Title,
			Link:        item.Link,
			GUID:        rssGuid{Value: item.GUID, IsPermaLink: "false"},
			PubDate:     item.PubDate.Format(time.RFC1123Z),
			Description: item.Description,
		}
		if item.Image != "" {
			imageType := ImageType(item.Image)
			out.Enclosure = &rssEnclosure{URL: item.Image, Type: imageType, Length: "0"}
			out.MediaContent = &mediaContent{URL: item.Image, Medium: "image", Type: imageType}
		}
		doc.Channel.Items = append(doc.Channel.Items, out)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
