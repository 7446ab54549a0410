package cron

import "time"

// shouldRunJob decides whether job fires now under mode. "force" always
// fires (this is how cron(8)'s own invocation of the run-command behaves);
// "due" defers to the schedule.
func shouldRunJob(job Job, mode RunMode, now time.Time) bool {
	if mode == ModeForce {
		return true
	}
	return isJobDue(job, now)
}
