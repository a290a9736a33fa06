// Package ingest turns the configured news feeds into stored documents.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/newsdesk/internal/feeds"
	"github.com/kalambet/newsdesk/internal/storage"
)

const (
	DefaultConcurrency  = 4
	DefaultMaxAgeDays   = 14
	DefaultMaxDocuments = 100
)

// FeedSource downloads feed bodies and PDF enclosures.
type FeedSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FillFromEnclosures(ctx context.Context, items []feeds.Item) int
}

// DocumentWriter stores documents and reads back the stored row.
type DocumentWriter interface {
	UpsertDocument(ctx context.Context, doc storage.Document) error
	GetDocument(ctx context.Context, docID string) (storage.Document, error)
}

// Sink receives every document as stored, so a re-ingested document keeps
// its first published_at.
type Sink interface {
	Publish(ctx context.Context, doc storage.Document) error
}

// Options tunes a Pipeline. Zero values take the package defaults.
type Options struct {
	Concurrency  int
	MaxAgeDays   int
	MaxDocuments int
	SeedOnEmpty  bool
}

// Pipeline runs ingestion cycles over a feed catalog.
type Pipeline struct {
	source  FeedSource
	catalog feeds.Catalog
	store   DocumentWriter
	sink    Sink
	opts    Options
	now     func() time.Time
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline. sink may be nil.
func NewPipeline(source FeedSource, catalog feeds.Catalog, store DocumentWriter, sink Sink, opts Options, logger *slog.Logger) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = DefaultMaxAgeDays
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = DefaultMaxDocuments
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:  source,
		catalog: catalog,
		store:   store,
		sink:    sink,
		opts:    opts,
		now:     storage.Now,
		logger:  logger,
	}
}

// RunCycle fetches every feed, normalizes and filters the articles, and
// upserts them. It returns the number of documents written. Feed and parse
// failures are logged and skipped; an error is returned only when every
// write failed.
func (p *Pipeline) RunCycle(ctx context.Context) (int, error) {
	now := p.now()
	fetched := p.collect(ctx, now)

	docs := Dedupe(fetched)
	docs = Recent(docs, now, p.opts.MaxAgeDays)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].PublishedAt.After(docs[j].PublishedAt)
	})
	if len(docs) > p.opts.MaxDocuments {
		docs = docs[:p.opts.MaxDocuments]
	}
	p.logger.Info("feeds collected", "articles", len(fetched), "kept", len(docs))

	if len(docs) == 0 {
		if p.opts.SeedOnEmpty {
			p.logger.Info("no articles fetched, writing sample documents")
			return p.Seed(ctx)
		}
		return 0, nil
	}
	return p.write(ctx, docs)
}

// collect fetches and parses all feeds. Results keep catalog order so
// deduplication is deterministic.
func (p *Pipeline) collect(ctx context.Context, now time.Time) []storage.Document {
	urls := p.catalog.URLs()
	perFeed := make([][]storage.Document, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			perFeed[i] = p.fetchFeed(ctx, u, now)
			return nil
		})
	}
	_ = g.Wait()

	var out []storage.Document
	for _, docs := range perFeed {
		out = append(out, docs...)
	}
	return out
}

func (p *Pipeline) fetchFeed(ctx context.Context, feedURL string, now time.Time) []storage.Document {
	body, err := p.source.Fetch(ctx, feedURL)
	if err != nil {
		p.logger.Warn("feed fetch failed", "url", feedURL, "error", err)
		return nil
	}
	items, err := feeds.Parse(body)
	if err != nil {
		p.logger.Warn("feed parse failed", "url", feedURL, "error", err)
		return nil
	}
	if n := p.source.FillFromEnclosures(ctx, items); n > 0 {
		p.logger.Debug("descriptions filled from pdf enclosures", "url", feedURL, "count", n)
	}

	source := p.catalog.SourceName(feedURL)
	docs := make([]storage.Document, 0, len(items))
	for _, it := range items {
		docs = append(docs, Normalize(it, source, now))
	}
	return docs
}

// Normalize converts a feed item into a document. Items without a usable
// date are stamped with now.
func Normalize(it feeds.Item, source string, now time.Time) storage.Document {
	published := now
	if it.HasDate {
		published = it.Published
	}
	return storage.Document{
		DocID:       DocID(it.Link, it.Title),
		Title:       it.Title,
		Content:     it.Description,
		Source:      source,
		URL:         it.Link,
		Category:    Categorize(it.Title),
		Tags:        Tags(it.Title),
		PublishedAt: published,
	}
}

// DocID derives a stable id from the article URL, or from the title when
// the item has no link.
func DocID(link, title string) string {
	key := strings.TrimSpace(link)
	if key == "" {
		key = strings.TrimSpace(title)
	}
	return "news_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Dedupe drops documents whose lowercased title was already seen.
func Dedupe(docs []storage.Document) []storage.Document {
	seen := make(map[string]bool, len(docs))
	out := make([]storage.Document, 0, len(docs))
	for _, d := range docs {
		key := strings.ToLower(d.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// Recent keeps documents at most maxAgeDays whole days older than now.
func Recent(docs []storage.Document, now time.Time, maxAgeDays int) []storage.Document {
	out := make([]storage.Document, 0, len(docs))
	for _, d := range docs {
		if d.PublishedAt.IsZero() {
			d.PublishedAt = now
		}
		days := int(now.Sub(d.PublishedAt) / (24 * time.Hour))
		if days <= maxAgeDays {
			out = append(out, d)
		}
	}
	return out
}

func (p *Pipeline) write(ctx context.Context, docs []storage.Document) (int, error) {
	ingestedAt := p.now()
	written := 0
	var lastErr error
	for _, d := range docs {
		d.IngestedAt = ingestedAt
		if err := p.store.UpsertDocument(ctx, d); err != nil {
			p.logger.Error("storing document failed", "doc_id", d.DocID, "error", err)
			lastErr = err
			continue
		}
		written++
		if p.sink != nil {
			p.publish(ctx, d.DocID)
		}
	}
	if written == 0 && lastErr != nil {
		return 0, fmt.Errorf("storing documents: %w", lastErr)
	}
	p.logger.Info("ingest cycle complete", "written", written, "failed", len(docs)-written)
	return written, nil
}

func (p *Pipeline) publish(ctx context.Context, docID string) {
	stored, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		p.logger.Warn("reading stored document for sink failed", "doc_id", docID, "error", err)
		return
	}
	if err := p.sink.Publish(ctx, stored); err != nil {
		p.logger.Warn("sink publish failed", "doc_id", docID, "error", err)
	}
}
