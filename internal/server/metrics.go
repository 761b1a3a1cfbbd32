package server

import (
	"sync/atomic"
	"time"
)

// Metrics tracks request counters for the health endpoint.
type Metrics struct {
	started       time.Time
	reviews       atomic.Int64
	reviewsFailed atomic.Int64
	checks        atomic.Int64
	analyses      atomic.Int64
	rejected      atomic.Int64
}

// NewMetrics creates a collector whose uptime starts now.
func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

// Stats is a point-in-time copy of the counters.
type Stats struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Reviews       int64   `json:"reviews"`
	ReviewsFailed int64   `json:"reviewsFailed"`
	Checks        int64   `json:"checks"`
	Analyses      int64   `json:"analyses"`
	Rejected      int64   `json:"rejected"`
	InFlight      int     `json:"inFlight"`
}

// RecordReview counts a served review.
func (m *Metrics) RecordReview(success bool) {
	m.reviews.Add(1)
	if !success {
		m.reviewsFailed.Add(1)
	}
}

// RecordCheck counts a served static check.
func (m *Metrics) RecordCheck() { m.checks.Add(1) }

// RecordAnalysis counts a served analysis.
func (m *Metrics) RecordAnalysis() { m.analyses.Add(1) }

// RecordRejected counts a request refused because its key was in flight.
func (m *Metrics) RecordRejected() { m.rejected.Add(1) }

// GetStats returns the current statistics.
func (m *Metrics) GetStats() Stats {
	return Stats{
		Status:        "ok",
		UptimeSeconds: time.Since(m.started).Seconds(),
		Reviews:       m.reviews.Load(),
		ReviewsFailed: m.reviewsFailed.Load(),
		Checks:        m.checks.Load(),
		Analyses:      m.analyses.Load(),
		Rejected:      m.rejected.Load(),
	}
}
