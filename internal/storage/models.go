package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TimeLayout is the on-disk form of every timestamp. Values carry no zone:
// the wall clock is stored as observed and compared naively.
const TimeLayout = "2006-01-02 15:04:05"

// ISOLayout renders naive timestamps for API consumers.
const ISOLayout = "2006-01-02T15:04:05"

// Naive drops the zone from t while keeping its wall clock fields.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Now returns the current local wall clock as a naive time.
func Now() time.Time {
	return Naive(time.Now())
}

// Document is one normalized news article.
type Document struct {
	DocID       string
	Title       string
	Content     string
	Source      string
	URL         string
	Category    string
	Tags        []string
	PublishedAt time.Time
	IngestedAt  time.Time
}

// AnalysisRecord is one persisted analysis. Seq is assigned on insert.
type AnalysisRecord struct {
	Seq            int64
	Query          string
	Sector         string
	Response       string
	Confidence     float64
	Reasoning      string
	AnalysisType   string
	DocIDs         []string
	ResponseTimeMs int64
	CreatedAt      time.Time
}

// ID is the public identity of the analysis.
func (a AnalysisRecord) ID() string {
	return AnalysisID(a.Seq, a.CreatedAt)
}

// AnalysisID formats an analysis identity as analysis_<seq>_<YYYYMMDD_HHMMSS>.
func AnalysisID(seq int64, createdAt time.Time) string {
	return fmt.Sprintf("analysis_%d_%s", seq, createdAt.Format("20060102_150405"))
}

type Metric struct {
	Name       string
	Value      float64
	Unit       string
	MeasuredAt time.Time
	Notes      string
}

// AnalysisStats summarizes analyses in a window.
type AnalysisStats struct {
	Total         int
	AvgConfidence float64
	MinConfidence float64
	MaxConfidence float64
	AvgResponseMs float64
	ActiveDays    int
}

type QueryPattern struct {
	Query         string
	Frequency     int
	AvgConfidence float64
}

type DailyTrend struct {
	Date          string
	AvgConfidence float64
	Count         int
}

type MetricStats struct {
	Name string
	Avg  float64
	Max  float64
	Min  float64
}

// DocumentStats summarizes documents published in a window.
type DocumentStats struct {
	Total         int
	ActiveSources int
	LatestPublish time.Time
}
