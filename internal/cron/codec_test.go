package cron

import "testing"

func sampleJob(id string) Job {
	return Job{
		ID:            id,
		Name:          "daily digest",
		Description:   "sends the morning digest",
		Enabled:       true,
		AgentID:       "agent-1",
		SessionKey:    "sess-1",
		CreatedAtMS:   1000,
		UpdatedAtMS:   2000,
		Schedule:      Schedule{Kind: ScheduleCron, Expr: "0 9 * * *"},
		SessionTarget: SessionMain,
		WakeMode:      WakeNow,
		Payload:       Payload{Kind: PayloadSystemEvent, Text: "digest time"},
		Delivery:      &Delivery{Mode: DeliveryWebhook, To: "https://example.com/hook", BestEffort: true},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	job := sampleJob("11111111-1111-1111-1111-111111111111")
	content, err := EncodeJobs([]Job{job}, "")
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	snap := DecodeSnapshot(content)
	if len(snap.Errors) != 0 {
		t.Fatalf("unexpected decode errors: %v", snap.Errors)
	}
	if len(snap.Jobs) != 1 {
		t.Fatalf("expected 1 decoded job, got %d", len(snap.Jobs))
	}

	got := snap.Jobs[0]
	if got.ID != job.ID || got.Name != job.Name || got.Description != job.Description {
		t.Errorf("identity fields not preserved: %+v", got)
	}
	if got.Enabled != job.Enabled {
		t.Errorf("enabled not preserved: got %v", got.Enabled)
	}
	if got.Schedule.Kind != ScheduleCron || got.Schedule.Expr != "0 9 * * *" {
		t.Errorf("schedule not preserved: %+v", got.Schedule)
	}
	if got.Payload.Kind != PayloadSystemEvent || got.Payload.Text != "digest time" {
		t.Errorf("payload not preserved: %+v", got.Payload)
	}
	if got.Delivery == nil || got.Delivery.Mode != DeliveryWebhook || got.Delivery.To != job.Delivery.To || !got.Delivery.BestEffort {
		t.Errorf("delivery not preserved: %+v", got.Delivery)
	}
}

func TestEncodeDecode_PreservesUnmanagedLines(t *testing.T) {
	existing := "# a user comment\n0 0 * * * /usr/bin/some-other-job\n"
	content, err := EncodeJobs(nil, existing)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !containsLine(content, "# a user comment") || !containsLine(content, "0 0 * * * /usr/bin/some-other-job") {
		t.Errorf("expected unmanaged lines preserved verbatim, got:\n%s", content)
	}
}

func TestEncodeDecode_DisabledJobCommentedButRetained(t *testing.T) {
	job := sampleJob("22222222-2222-2222-2222-222222222222")
	job.Enabled = false

	content, err := EncodeJobs([]Job{job}, "")
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	snap := DecodeSnapshot(content)
	if len(snap.Jobs) != 1 {
		t.Fatalf("expected the disabled job to still round-trip, got %d jobs", len(snap.Jobs))
	}
	if snap.Jobs[0].Enabled {
		t.Error("expected the decoded job to remain disabled")
	}
}

func TestEncodeDecode_DisableIsIdempotent(t *testing.T) {
	job := sampleJob("33333333-3333-3333-3333-333333333333")
	job.Enabled = false

	first, err := EncodeJobs([]Job{job}, "")
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	snap := DecodeSnapshot(first)
	second, err := EncodeJobs(snap.Jobs, "")
	if err != nil {
		t.Fatalf("unexpected re-encode error: %v", err)
	}
	if first != second {
		t.Errorf("re-encoding a disabled job should be a fixed point:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestEncodeJobs_RejectsUnsafeID(t *testing.T) {
	job := sampleJob("not safe; rm -rf /")
	if _, err := EncodeJobs([]Job{job}, ""); err == nil {
		t.Fatal("expected rejection of an unsafe job id")
	}
}

func TestEncodeJobs_RejectsInfeasibleSchedule(t *testing.T) {
	job := sampleJob("44444444-4444-4444-4444-444444444444")
	job.Schedule = Schedule{Kind: ScheduleEvery, EveryMS: 7 * oneMinuteMS}
	if _, err := EncodeJobs([]Job{job}, ""); err == nil {
		t.Fatal("expected rejection of a non-representable every-schedule")
	}
}

func TestDecodeSnapshot_MultipleJobsAreIndependent(t *testing.T) {
	jobA := sampleJob("55555555-5555-5555-5555-555555555555")
	jobB := sampleJob("66666666-6666-6666-6666-666666666666")
	jobB.Name = "second job"
	jobB.Delivery = nil

	content, err := EncodeJobs([]Job{jobA, jobB}, "")
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	snap := DecodeSnapshot(content)
	if len(snap.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(snap.Jobs))
	}

	byID := map[string]Job{}
	for _, j := range snap.Jobs {
		byID[j.ID] = j
	}
	if byID[jobB.ID].Delivery != nil {
		t.Errorf("expected job B to have no delivery block, got %+v", byID[jobB.ID].Delivery)
	}
	if byID[jobA.ID].Delivery == nil {
		t.Errorf("expected job A to retain its delivery block")
	}
}

func containsLine(content, line string) bool {
	for _, l := range splitLines(content) {
		if l == line {
			return true
		}
	}
	return false
}
