package cron

import (
	"testing"
	"time"
)

func TestResolveSchedule_Cron_Valid(t *testing.T) {
	resolved, err := ResolveSchedule(Schedule{Kind: ScheduleCron, Expr: "*/5 * * * *"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Expr != "*/5 * * * *" {
		t.Errorf("expected expression preserved, got %q", resolved.Expr)
	}
}

func TestResolveSchedule_Cron_RejectsSixFields(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleCron, Expr: "0 * * * * *"})
	if err == nil {
		t.Fatal("expected rejection of a 6-field expression")
	}
}

func TestResolveSchedule_Cron_RejectsTimezone(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleCron, Expr: "0 9 * * *", TZ: "America/New_York"})
	if err == nil {
		t.Fatal("expected rejection of a per-job timezone")
	}
}

func TestResolveSchedule_Cron_RejectsStagger(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleCron, Expr: "0 9 * * *", StaggerMS: 1000})
	if err == nil {
		t.Fatal("expected rejection of a stagger window")
	}
}

func TestResolveSchedule_Cron_RejectsInvalidExpression(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleCron, Expr: "99 * * * *"})
	if err == nil {
		t.Fatal("expected rejection of an invalid expression")
	}
}

func TestResolveSchedule_Every_MinuteDivisorsOf60(t *testing.T) {
	cases := map[int64]string{
		1 * oneMinuteMS:  "* * * * *",
		5 * oneMinuteMS:  "*/5 * * * *",
		15 * oneMinuteMS: "*/15 * * * *",
	}
	for everyMS, want := range cases {
		resolved, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: everyMS})
		if err != nil {
			t.Fatalf("everyMs=%d: unexpected error: %v", everyMS, err)
		}
		if resolved.Expr != want {
			t.Errorf("everyMs=%d: expected %q, got %q", everyMS, want, resolved.Expr)
		}
	}
}

func TestResolveSchedule_Every_HourDivisorsOf24(t *testing.T) {
	resolved, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 4 * 60 * oneMinuteMS})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Expr != "0 */4 * * *" {
		t.Errorf("expected \"0 */4 * * *\", got %q", resolved.Expr)
	}
}

func TestResolveSchedule_Every_ExactlyOneDay(t *testing.T) {
	resolved, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 24 * 60 * oneMinuteMS})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Expr != "0 0 * * *" {
		t.Errorf("expected \"0 0 * * *\", got %q", resolved.Expr)
	}
}

func TestResolveSchedule_Every_MultiDay(t *testing.T) {
	resolved, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 3 * 24 * 60 * oneMinuteMS})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Expr != "0 0 */3 * *" {
		t.Errorf("expected \"0 0 */3 * *\", got %q", resolved.Expr)
	}
}

func TestResolveSchedule_Every_RejectsNonMultipleOfMinute(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 90_000 - 1})
	if err == nil {
		t.Fatal("expected rejection of a non-minute-aligned interval")
	}
}

func TestResolveSchedule_Every_RejectsAnchor(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 5 * oneMinuteMS, AnchorMS: 12345})
	if err == nil {
		t.Fatal("expected rejection of an anchored interval")
	}
}

func TestResolveSchedule_Every_RejectsUnrepresentableInterval(t *testing.T) {
	// 7 minutes: not a divisor of 60, not a multiple of 60.
	_, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 7 * oneMinuteMS})
	if err == nil {
		t.Fatal("expected rejection of a non-representable interval")
	}
}

func TestResolveSchedule_Every_RejectsZeroOrNegative(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleEvery, EveryMS: 0})
	if err == nil {
		t.Fatal("expected rejection of a zero interval")
	}
}

func TestResolveSchedule_At_RoundsUpToWholeMinute(t *testing.T) {
	resolved, err := ResolveSchedule(Schedule{Kind: ScheduleAt, At: "2026-03-01T09:30:15Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Expr != "31 9 1 3 *" {
		t.Errorf("expected rounded-up minute field, got %q", resolved.Expr)
	}
}

func TestResolveSchedule_At_ExactMinuteNotRounded(t *testing.T) {
	resolved, err := ResolveSchedule(Schedule{Kind: ScheduleAt, At: "2026-03-01T09:30:00Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Expr != "30 9 1 3 *" {
		t.Errorf("expected exact minute preserved, got %q", resolved.Expr)
	}
}

func TestResolveSchedule_At_RejectsInvalidInstant(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: ScheduleAt, At: "not-a-date"})
	if err == nil {
		t.Fatal("expected rejection of an unparseable instant")
	}
}

func TestResolveSchedule_UnknownKind(t *testing.T) {
	_, err := ResolveSchedule(Schedule{Kind: "bogus"})
	if err == nil {
		t.Fatal("expected rejection of an unknown schedule kind")
	}
}

func TestIsJobDue_DisabledNeverDue(t *testing.T) {
	job := Job{Enabled: false, Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * *"}}
	if isJobDue(job, time.Now()) {
		t.Error("a disabled job must never be due")
	}
}

func TestIsJobDue_EnabledEveryMinute(t *testing.T) {
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * *"}}
	if !isJobDue(job, time.Now()) {
		t.Error("an every-minute job should always be due")
	}
}

func TestComputeNextRunAtMS_DisabledHasNoNextRun(t *testing.T) {
	job := Job{Enabled: false, Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * *"}}
	if next := computeNextRunAtMS(job, nowMS()); next != nil {
		t.Errorf("expected nil next-run for a disabled job, got %v", *next)
	}
}

func TestComputeNextRunAtMS_EnabledHasNextRun(t *testing.T) {
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * *"}}
	next := computeNextRunAtMS(job, nowMS())
	if next == nil {
		t.Fatal("expected a computed next-run time")
	}
}
