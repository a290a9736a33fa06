package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveAnalysis inserts a and the metrics returned by metricsFor in a single
// transaction. metricsFor receives the assigned sequence so notes can name
// the analysis. The stored record is returned with Seq and CreatedAt set.
func (s *Store) SaveAnalysis(ctx context.Context, a AnalysisRecord, metricsFor func(AnalysisRecord) []Metric) (AnalysisRecord, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("beginning analysis transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (query, sector, llm_response, confidence, reasoning, analysis_type, relevant_doc_ids, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Query, a.Sector, a.Response, a.Confidence, a.Reasoning, a.AnalysisType,
		encodeList(a.DocIDs), a.ResponseTimeMs, formatTime(a.CreatedAt),
	)
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("inserting analysis: %w", err)
	}
	if a.Seq, err = res.LastInsertId(); err != nil {
		return AnalysisRecord{}, fmt.Errorf("reading analysis id: %w", err)
	}

	if metricsFor != nil {
		for _, m := range metricsFor(a) {
			if m.MeasuredAt.IsZero() {
				m.MeasuredAt = a.CreatedAt
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO performance_metrics (metric_name, metric_value, metric_unit, measured_at, notes)
				VALUES (?, ?, ?, ?, ?)`,
				m.Name, m.Value, m.Unit, formatTime(m.MeasuredAt), m.Notes,
			); err != nil {
				return AnalysisRecord{}, fmt.Errorf("inserting metric %s: %w", m.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return AnalysisRecord{}, fmt.Errorf("committing analysis: %w", err)
	}
	return a, nil
}

// RecordMetric appends a single metric outside of any analysis.
func (s *Store) RecordMetric(ctx context.Context, m Metric) error {
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_metrics (metric_name, metric_value, metric_unit, measured_at, notes)
		VALUES (?, ?, ?, ?, ?)`,
		m.Name, m.Value, m.Unit, formatTime(m.MeasuredAt), m.Notes,
	)
	if err != nil {
		return fmt.Errorf("inserting metric %s: %w", m.Name, err)
	}
	return nil
}

// ListAnalyses returns up to limit analyses created at or after since, newest first.
func (s *Store) ListAnalyses(ctx context.Context, since time.Time, limit int) ([]AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, sector, llm_response, confidence, reasoning, analysis_type, relevant_doc_ids, response_time_ms, created_at
		FROM analyses WHERE created_at >= ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var a AnalysisRecord
		var docIDs, created string
		if err := rows.Scan(&a.Seq, &a.Query, &a.Sector, &a.Response, &a.Confidence, &a.Reasoning,
			&a.AnalysisType, &docIDs, &a.ResponseTimeMs, &created); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		a.DocIDs = decodeList(docIDs)
		out = append(out, a)
	}
	return out, rows.Err()
}

// MetricsForAnalysis returns the metrics whose note ends with "analysis <id>".
// The suffix is compared literally; ids contain "_", a LIKE wildcard.
func (s *Store) MetricsForAnalysis(ctx context.Context, analysisID string) ([]Metric, error) {
	suffix := "analysis " + analysisID
	return s.queryMetrics(ctx, `
		SELECT metric_name, metric_value, metric_unit, measured_at, notes
		FROM performance_metrics WHERE substr(notes, -length(?)) = ? ORDER BY id ASC`, suffix, suffix)
}

// RecentMetrics returns metrics measured at or after since, newest first.
func (s *Store) RecentMetrics(ctx context.Context, since time.Time) ([]Metric, error) {
	return s.queryMetrics(ctx, `
		SELECT metric_name, metric_value, metric_unit, measured_at, notes
		FROM performance_metrics WHERE measured_at >= ?
		ORDER BY measured_at DESC, id DESC`, formatTime(since))
}

func (s *Store) queryMetrics(ctx context.Context, query string, args ...any) ([]Metric, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		var measured string
		if err := rows.Scan(&m.Name, &m.Value, &m.Unit, &measured, &m.Notes); err != nil {
			return nil, err
		}
		if m.MeasuredAt, err = parseTime(measured); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AnalysisStats aggregates analyses created at or after since.
func (s *Store) AnalysisStats(ctx context.Context, since time.Time) (AnalysisStats, error) {
	var st AnalysisStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(confidence), 0), COALESCE(MIN(confidence), 0), COALESCE(MAX(confidence), 0),
			COALESCE(AVG(response_time_ms), 0),
			COUNT(DISTINCT date(created_at))
		FROM analyses WHERE created_at >= ?`, formatTime(since),
	).Scan(&st.Total, &st.AvgConfidence, &st.MinConfidence, &st.MaxConfidence, &st.AvgResponseMs, &st.ActiveDays)
	if err != nil {
		return AnalysisStats{}, fmt.Errorf("analysis stats: %w", err)
	}
	return st, nil
}

// QueryPatterns returns the most frequent query strings since the cutoff.
func (s *Store) QueryPatterns(ctx context.Context, since time.Time, limit int) ([]QueryPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS frequency, AVG(confidence)
		FROM analyses WHERE created_at >= ?
		GROUP BY query ORDER BY frequency DESC, query ASC LIMIT ?`, formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var out []QueryPattern
	for rows.Next() {
		var p QueryPattern
		if err := rows.Scan(&p.Query, &p.Frequency, &p.AvgConfidence); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ConfidenceTrends returns per-day mean confidence, newest day first.
func (s *Store) ConfidenceTrends(ctx context.Context, since time.Time) ([]DailyTrend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at) AS day, AVG(confidence), COUNT(*)
		FROM analyses WHERE created_at >= ?
		GROUP BY day ORDER BY day DESC`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("confidence trends: %w", err)
	}
	defer rows.Close()

	var out []DailyTrend
	for rows.Next() {
		var d DailyTrend
		if err := rows.Scan(&d.Date, &d.AvgConfidence, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MetricSummaries returns avg/max/min per metric name since the cutoff.
func (s *Store) MetricSummaries(ctx context.Context, since time.Time) ([]MetricStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric_name, AVG(metric_value), MAX(metric_value), MIN(metric_value)
		FROM performance_metrics WHERE measured_at >= ?
		GROUP BY metric_name ORDER BY metric_name ASC`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("metric summaries: %w", err)
	}
	defer rows.Close()

	var out []MetricStats
	for rows.Next() {
		var m MetricStats
		if err := rows.Scan(&m.Name, &m.Avg, &m.Max, &m.Min); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MetricAverage returns the mean of one metric since the cutoff. ok is false
// when no samples exist.
func (s *Store) MetricAverage(ctx context.Context, name string, since time.Time) (avg float64, ok bool, err error) {
	var v sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(metric_value) FROM performance_metrics
		WHERE metric_name = ? AND measured_at >= ?`, name, formatTime(since),
	).Scan(&v)
	if err != nil {
		return 0, false, fmt.Errorf("metric average %s: %w", name, err)
	}
	return v.Float64, v.Valid, nil
}
