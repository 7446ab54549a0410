package cron

import (
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// computeNextRunAtMS derives state.nextRunAtMs for a job at write time.
// Disabled jobs have no next run.
func computeNextRunAtMS(job Job, now int64) *int64 {
	if !job.Enabled {
		return nil
	}

	resolved, err := ResolveSchedule(job.Schedule)
	if err != nil {
		slog.Warn("cron: cannot compute next run for infeasible schedule", "job", job.ID, "error", err)
		return nil
	}

	nowTime := time.UnixMilli(now)
	nextTime, err := gronx.NextTickAfter(resolved.Expr, nowTime, false)
	if err != nil {
		slog.Error("cron: failed to compute next run", "job", job.ID, "expr", resolved.Expr, "error", err)
		return nil
	}
	next := nextTime.UnixMilli()
	return &next
}

// isJobDue evaluates a job's schedule against the current instant.
// Disabled jobs are never due.
func isJobDue(job Job, now time.Time) bool {
	if !job.Enabled {
		return false
	}

	resolved, err := ResolveSchedule(job.Schedule)
	if err != nil {
		return false
	}

	gx := gronx.New()
	due, err := gx.IsDue(resolved.Expr, now)
	if err != nil {
		return false
	}
	return due
}
