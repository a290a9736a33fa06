// Package sink forwards stored news documents to downstream systems.
package sink

import (
	"context"
	"errors"
	"io"

	"github.com/kalambet/newsdesk/internal/storage"
)

// Event is the wire form of a document published to sinks.
type Event struct {
	DocID       string   `json:"doc_id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	PublishedAt string   `json:"published_at"`
	IngestedAt  string   `json:"ingested_at"`
}

// NewEvent converts a stored document into an Event.
func NewEvent(doc storage.Document) Event {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	return Event{
		DocID:       doc.DocID,
		Title:       doc.Title,
		Content:     doc.Content,
		Source:      doc.Source,
		URL:         doc.URL,
		Category:    doc.Category,
		Tags:        tags,
		PublishedAt: doc.PublishedAt.Format(storage.ISOLayout),
		IngestedAt:  doc.IngestedAt.Format(storage.ISOLayout),
	}
}

// Publisher accepts documents.
type Publisher interface {
	Publish(ctx context.Context, doc storage.Document) error
}

// Multi fans a document out to every publisher. All publishers are tried;
// their errors are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, doc storage.Document) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
