package feeds

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Item is one entry of a feed, before normalization.
type Item struct {
	Title       string
	Description string
	Link        string
	// Published is naive; HasDate is false when the feed gave no usable date.
	Published time.Time
	HasDate   bool
	Enclosure Enclosure
}

type Enclosure struct {
	URL  string
	Type string
}

// IsPDF reports whether the enclosure points at a PDF document.
func (e Enclosure) IsPDF() bool {
	return e.URL != "" && strings.HasPrefix(strings.ToLower(e.Type), "application/pdf")
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Enclosure   struct {
		URL  string `xml:"url,attr"`
		Type string `xml:"type,attr"`
	} `xml:"enclosure"`
}

// Parse extracts every <item> element, at any depth, from an RSS document.
// Items without a title are skipped. Descriptions are reduced to plain
// text. Documents using other element names yield no items; malformed XML
// is an error.
func Parse(body []byte) ([]Item, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var items []Item
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing feed: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "item" {
			continue
		}

		var ri rssItem
		if err := dec.DecodeElement(&ri, &start); err != nil {
			return nil, fmt.Errorf("parsing feed item: %w", err)
		}
		title := strings.TrimSpace(ri.Title)
		if title == "" {
			continue
		}
		it := Item{
			Title:       title,
			Description: StripHTML(ri.Description),
			Link:        strings.TrimSpace(ri.Link),
			Enclosure:   Enclosure{URL: strings.TrimSpace(ri.Enclosure.URL), Type: ri.Enclosure.Type},
		}
		if ri.PubDate != "" {
			it.Published, it.HasDate = ParseDate(ri.PubDate)
		}
		items = append(items, it)
	}
	return items, nil
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate reads an RSS date and drops its zone, keeping the wall clock as
// written in the feed.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(s); err == nil {
		return naive(t), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), true
		}
	}
	return time.Time{}, false
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
