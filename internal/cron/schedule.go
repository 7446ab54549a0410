package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// ResolvedSchedule is the Schedule Resolver's success shape: the five-field
// crontab expression a Schedule compiles to, plus an optional timezone.
type ResolvedSchedule struct {
	Expr string
	TZ   string
}

// ResolveSchedule validates sched and translates it to a five-field crontab
// expression, or returns a user-facing error with the exact rejection
// reason. crontab(1) is the only clock in this system, so every accepted
// schedule must be representable as one of its expressions.
func ResolveSchedule(sched Schedule) (ResolvedSchedule, error) {
	switch sched.Kind {
	case ScheduleCron:
		return resolveCron(sched)
	case ScheduleEvery:
		return resolveEvery(sched)
	case ScheduleAt:
		return resolveAt(sched)
	default:
		return ResolvedSchedule{}, fmt.Errorf("unknown schedule kind %q", sched.Kind)
	}
}

func resolveCron(sched Schedule) (ResolvedSchedule, error) {
	expr := strings.TrimSpace(sched.Expr)
	fields := strings.Fields(expr)
	switch {
	case len(fields) == 6:
		return ResolvedSchedule{}, fmt.Errorf("cron schedule rejected: no seconds support (6-field expressions are not accepted)")
	case len(fields) != 5:
		return ResolvedSchedule{}, fmt.Errorf("cron schedule rejected: expected a 5-field expression, got %d fields", len(fields))
	}
	if sched.TZ != "" {
		return ResolvedSchedule{}, fmt.Errorf("cron schedule rejected: per-job timezones are not representable in crontab")
	}
	if sched.StaggerMS > 0 {
		return ResolvedSchedule{}, fmt.Errorf("cron schedule rejected: stagger is not representable in crontab")
	}
	gx := gronx.New()
	if !gx.IsValid(expr) {
		return ResolvedSchedule{}, fmt.Errorf("cron schedule rejected: invalid expression %q", expr)
	}
	return ResolvedSchedule{Expr: expr}, nil
}

const oneMinuteMS = 60_000

func resolveEvery(sched Schedule) (ResolvedSchedule, error) {
	if sched.EveryMS <= 0 {
		return ResolvedSchedule{}, fmt.Errorf("every schedule rejected: everyMs must be positive")
	}
	if sched.AnchorMS != 0 {
		return ResolvedSchedule{}, fmt.Errorf("every schedule rejected: anchored intervals are not representable in crontab")
	}
	if sched.EveryMS%oneMinuteMS != 0 {
		return ResolvedSchedule{}, fmt.Errorf("every schedule interval is not representable in crontab: not a multiple of one minute")
	}

	minutes := sched.EveryMS / oneMinuteMS

	// 1. minutes in (0, 60), 60 mod minutes == 0.
	if minutes > 0 && minutes < 60 && 60%minutes == 0 {
		if minutes == 1 {
			return ResolvedSchedule{Expr: "* * * * *"}, nil
		}
		return ResolvedSchedule{Expr: fmt.Sprintf("*/%d * * * *", minutes)}, nil
	}

	// 2. hours integer, 24 mod hours == 0.
	if minutes%60 == 0 {
		hours := minutes / 60
		if hours > 0 && hours < 24 && 24%hours == 0 {
			if hours == 1 {
				return ResolvedSchedule{Expr: "0 * * * *"}, nil
			}
			return ResolvedSchedule{Expr: fmt.Sprintf("0 */%d * * *", hours)}, nil
		}
		if hours == 24 {
			return ResolvedSchedule{Expr: "0 0 * * *"}, nil
		}

		// 3. days integer, 1 <= days <= 31.
		if hours%24 == 0 {
			days := hours / 24
			if days >= 1 && days <= 31 {
				return ResolvedSchedule{Expr: fmt.Sprintf("0 0 */%d * *", days)}, nil
			}
		}
	}

	return ResolvedSchedule{}, fmt.Errorf("every schedule interval is not representable in crontab")
}

func resolveAt(sched Schedule) (ResolvedSchedule, error) {
	t, err := time.Parse(time.RFC3339Nano, sched.At)
	if err != nil {
		return ResolvedSchedule{}, fmt.Errorf("at schedule rejected: invalid ISO-8601 instant %q", sched.At)
	}

	// Round up to the next whole minute in the instant's own wall-clock
	// fields — no timezone conversion; crontab has no notion of the
	// offset the instant was written in, only the fields themselves.
	rounded := t
	if t.Second() != 0 || t.Nanosecond() != 0 {
		rounded = t.Truncate(time.Minute).Add(time.Minute)
	}

	expr := fmt.Sprintf("%d %d %d %d *", rounded.Minute(), rounded.Hour(), rounded.Day(), int(rounded.Month()))
	return ResolvedSchedule{Expr: expr}, nil
}
