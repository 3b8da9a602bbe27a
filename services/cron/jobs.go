package cron

import (
	"context"
	"fmt"
	"time"
)

const (
	jobSweepSessions     = "sweep_idle_sessions"
	jobReportUnconfirmed = "report_unconfirmed_enrollments"

	// unconfirmedGrace is how long a submission may wait for a booking before it is reported
	unconfirmedGrace = 24 * time.Hour
)

// SweepIdleSessions evicts expired enrollment sessions from the in-memory store
// Runs every minute
func (m *CronManager) SweepIdleSessions() {
	removed := m.sessions.Sweep(m.now())
	m.logJobComplete(jobSweepSessions, fmt.Sprintf("Removed %d idle sessions", removed))
}

// ReportUnconfirmedEnrollments counts submissions older than a day that never got a booking
// Runs every hour
func (m *CronManager) ReportUnconfirmedEnrollments() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := m.counter.CountUnconfirmedEnrollments(ctx, m.now().Add(-unconfirmedGrace))
	if err != nil {
		m.logJobError(jobReportUnconfirmed, fmt.Errorf("failed to count unconfirmed enrollments: %w", err))
		return
	}

	m.logJobComplete(jobReportUnconfirmed, fmt.Sprintf("%d enrollments submitted over %s ago without a confirmed appointment", count, unconfirmedGrace))
}
