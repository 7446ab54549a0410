package cron

import "testing"

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestApplyPatch_UpdatesScalarFields(t *testing.T) {
	job := Job{Name: "old", Enabled: false, Payload: Payload{Kind: PayloadSystemEvent}, SessionTarget: SessionMain}
	patch := JobPatch{Name: strp("new"), Enabled: boolp(true)}

	got, err := applyPatch(job, patch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "new" || !got.Enabled {
		t.Errorf("expected patched fields applied, got %+v", got)
	}
}

func TestApplyPatch_RejectsPayloadKindMismatch(t *testing.T) {
	job := Job{Payload: Payload{Kind: PayloadSystemEvent}, SessionTarget: SessionMain}
	kind := PayloadAgentTurn
	patch := JobPatch{Payload: &PayloadPatch{Kind: &kind}}

	if _, err := applyPatch(job, patch); err == nil {
		t.Fatal("expected rejection of a payload patch whose kind disagrees with the job's current kind")
	}
}

func TestApplyPatch_RejectsDeliveryModeMismatch(t *testing.T) {
	job := Job{
		Payload:       Payload{Kind: PayloadSystemEvent},
		SessionTarget: SessionMain,
		Delivery:      &Delivery{Mode: DeliveryWebhook, To: "https://example.com"},
	}
	mode := DeliveryAnnounce
	patch := JobPatch{Delivery: &DeliveryPatch{Mode: &mode}}

	if _, err := applyPatch(job, patch); err == nil {
		t.Fatal("expected rejection of a delivery patch whose mode disagrees with the job's current mode")
	}
}

func TestApplyPatch_DeliveryPatchMergesOntoNilDelivery(t *testing.T) {
	job := Job{Payload: Payload{Kind: PayloadSystemEvent}, SessionTarget: SessionMain}
	mode := DeliveryWebhook
	patch := JobPatch{Delivery: &DeliveryPatch{Mode: &mode, To: strp("https://example.com/hook")}}

	got, err := applyPatch(job, patch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Delivery == nil || got.Delivery.Mode != DeliveryWebhook || got.Delivery.To != "https://example.com/hook" {
		t.Errorf("expected a new delivery block created from the patch, got %+v", got.Delivery)
	}
}

func TestApplyPatch_RejectsMainSessionWithAgentTurnPayload(t *testing.T) {
	job := Job{Payload: Payload{Kind: PayloadSystemEvent}, SessionTarget: SessionMain}
	target := SessionMain
	kind := PayloadAgentTurn
	patch := JobPatch{SessionTarget: &target, Payload: &PayloadPatch{Kind: &kind}}

	if _, err := applyPatch(job, patch); err == nil {
		t.Fatal("expected rejection: main session requires systemEvent, patch kind disagrees anyway")
	}
}

func TestFilterJobs_KeepsOnlyMatching(t *testing.T) {
	jobs := []Job{{Name: "a", Enabled: true}, {Name: "b", Enabled: false}}
	enabled := filterJobs(jobs, func(j Job) bool { return j.Enabled })
	if len(enabled) != 1 || enabled[0].Name != "a" {
		t.Errorf("expected only the enabled job, got %+v", enabled)
	}
}

func TestSortJobs_ByNameAscDesc(t *testing.T) {
	jobs := []Job{{Name: "bravo"}, {Name: "alpha"}, {Name: "charlie"}}

	sortJobs(jobs, "name", "asc")
	if jobs[0].Name != "alpha" || jobs[2].Name != "charlie" {
		t.Errorf("expected ascending name order, got %v", names(jobs))
	}

	sortJobs(jobs, "name", "desc")
	if jobs[0].Name != "charlie" || jobs[2].Name != "alpha" {
		t.Errorf("expected descending name order, got %v", names(jobs))
	}
}

func TestSortJobs_NextRunAtMS_NilSortsLast(t *testing.T) {
	t1 := int64(100)
	jobs := []Job{
		{Name: "no-next-run"},
		{Name: "has-next-run", State: JobState{NextRunAtMS: &t1}},
	}
	sortJobs(jobs, "nextRunAtMs", "asc")
	if jobs[0].Name != "has-next-run" {
		t.Errorf("expected the job with a next-run time to sort first, got %v", names(jobs))
	}
}

func names(jobs []Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Name
	}
	return out
}
