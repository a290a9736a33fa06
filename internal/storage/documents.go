package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const documentColumns = `doc_id, title, content, source, url, category, tags, published_at, ingested_at`

// UpsertDocument inserts doc, or refreshes title, content and ingested_at
// when doc_id already exists. published_at of an existing row is kept.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) error {
	ingested := doc.IngestedAt
	if ingested.IsZero() {
		ingested = Now()
	}
	published := doc.PublishedAt
	if published.IsZero() {
		published = ingested
	}
	category := doc.Category
	if category == "" {
		category = "general_market"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news_documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			ingested_at = excluded.ingested_at`,
		doc.DocID, doc.Title, doc.Content, doc.Source, doc.URL, category,
		encodeList(doc.Tags), formatTime(published), formatTime(ingested),
	)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.DocID, err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, docID string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM news_documents WHERE doc_id = ?`, docID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// CandidatePool returns up to limit documents, most recently published first.
// An empty categories slice means no category filter.
func (s *Store) CandidatePool(ctx context.Context, categories []string, limit int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM news_documents`
	args := make([]any, 0, len(categories)+1)
	if len(categories) > 0 {
		query += ` WHERE category IN (?` + strings.Repeat(", ?", len(categories)-1) + `)`
		for _, c := range categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY published_at DESC, doc_id ASC LIMIT ?`
	args = append(args, limit)
	return s.queryDocuments(ctx, query, args...)
}

// ListDocuments pages through documents, most recently published first.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM news_documents
		ORDER BY published_at DESC, doc_id ASC LIMIT ? OFFSET ?`, limit, offset)
}

func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// DocumentStats counts documents published at or after since.
func (s *Store) DocumentStats(ctx context.Context, since time.Time) (DocumentStats, error) {
	var st DocumentStats
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT source), MAX(published_at)
		FROM news_documents WHERE published_at >= ?`, formatTime(since),
	).Scan(&st.Total, &st.ActiveSources, &latest)
	if err != nil {
		return DocumentStats{}, fmt.Errorf("document stats: %w", err)
	}
	if latest.Valid {
		t, err := parseTime(latest.String)
		if err != nil {
			return DocumentStats{}, err
		}
		st.LatestPublish = t
	}
	return st, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var d Document
	var tags, published, ingested string
	if err := r.Scan(&d.DocID, &d.Title, &d.Content, &d.Source, &d.URL, &d.Category, &tags, &published, &ingested); err != nil {
		return Document{}, err
	}
	var err error
	if d.PublishedAt, err = parseTime(published); err != nil {
		return Document{}, err
	}
	if d.IngestedAt, err = parseTime(ingested); err != nil {
		return Document{}, err
	}
	d.Tags = decodeList(tags)
	return d, nil
}
