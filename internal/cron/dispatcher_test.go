package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

type fakeEventSink struct {
	err      error
	agentID  string
	session  string
	text     string
	calls    int
}

func (f *fakeEventSink) PostSystemEvent(_ context.Context, agentID, sessionKey, text string) error {
	f.calls++
	f.agentID, f.session, f.text = agentID, sessionKey, text
	return f.err
}

type fakeHeartbeat struct {
	reason string
	calls  int
}

func (f *fakeHeartbeat) SignalWake(reason string) {
	f.calls++
	f.reason = reason
}

type fakeIsolated struct {
	result IsolatedTurnResult
	err    error
}

func (f *fakeIsolated) RunIsolatedTurn(_ context.Context, _ Job) (IsolatedTurnResult, error) {
	return f.result, f.err
}

type fakeAnnouncer struct {
	err  error
	sent bus.OutboundMessage
}

func (f *fakeAnnouncer) Send(msg bus.OutboundMessage) error {
	f.sent = msg
	return f.err
}

func baseDueJob() Job {
	return Job{
		ID:            "77777777-7777-7777-7777-777777777777",
		Name:          "test job",
		Enabled:       true,
		Schedule:      Schedule{Kind: ScheduleCron, Expr: "* * * * *"},
		SessionTarget: SessionMain,
		AgentID:       "agent-1",
		Payload:       Payload{Kind: PayloadSystemEvent, Text: "hello"},
	}
}

func TestDispatch_NotDueUnlessForced(t *testing.T) {
	job := baseDueJob()
	job.Enabled = false

	result := Dispatch(context.Background(), job, ModeDue, Deps{})
	if result.Ran {
		t.Fatal("a disabled job must not run under mode=due")
	}
	if result.Reason != "not-due" {
		t.Errorf("expected reason \"not-due\", got %q", result.Reason)
	}
}

func TestDispatch_ForceAlwaysRuns(t *testing.T) {
	job := baseDueJob()
	job.Enabled = false
	sink := &fakeEventSink{}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: sink})
	if !result.Ran {
		t.Fatal("mode=force must dispatch regardless of schedule/enabled state")
	}
}

func TestDispatch_MainSession_PostsSystemEvent(t *testing.T) {
	job := baseDueJob()
	sink := &fakeEventSink{}
	hb := &fakeHeartbeat{}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: sink, Heartbeat: hb, DefaultAgentID: "fallback"})
	if !result.Ran || result.Outcome == nil {
		t.Fatalf("expected a run outcome, got %+v", result)
	}
	if result.Outcome.Status != RunOK {
		t.Errorf("expected ok status, got %q (%s)", result.Outcome.Status, result.Outcome.Error)
	}
	if sink.calls != 1 || sink.agentID != "agent-1" || sink.text != "hello" {
		t.Errorf("event sink not invoked as expected: %+v", sink)
	}
	if hb.calls != 1 {
		t.Error("expected the heartbeat to be signaled for wakeMode=now (default zero value)")
	}
}

func TestDispatch_MainSession_RejectsWrongPayloadKind(t *testing.T) {
	job := baseDueJob()
	job.Payload = Payload{Kind: PayloadAgentTurn, Message: "hi"}

	result := Dispatch(context.Background(), job, ModeForce, Deps{})
	if result.Ran {
		t.Fatal("a main-session job with an agentTurn payload must be rejected, not dispatched")
	}
	if result.OK {
		t.Error("expected OK=false for a payload-kind mismatch")
	}
}

func TestDispatch_MainSession_EventSinkErrorSurfacesAsDispatchError(t *testing.T) {
	job := baseDueJob()
	sink := &fakeEventSink{err: errors.New("agent session unavailable")}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: sink})
	if result.Outcome == nil || result.Outcome.Status != RunError {
		t.Fatalf("expected an error outcome, got %+v", result.Outcome)
	}
	if result.Outcome.ErrorKind != "dispatch" {
		t.Errorf("expected errorKind \"dispatch\", got %q", result.Outcome.ErrorKind)
	}
}

func TestDispatch_Isolated_RunsAgentTurn(t *testing.T) {
	job := baseDueJob()
	job.SessionTarget = SessionIsolated
	job.Payload = Payload{Kind: PayloadAgentTurn, Message: "do the thing"}
	runner := &fakeIsolated{result: IsolatedTurnResult{Status: "ok", Summary: "done"}}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Isolated: runner})
	if result.Outcome == nil || result.Outcome.Status != RunOK || result.Outcome.Summary != "done" {
		t.Fatalf("unexpected outcome: %+v", result.Outcome)
	}
}

func TestDispatch_Isolated_MissingRunnerErrors(t *testing.T) {
	job := baseDueJob()
	job.SessionTarget = SessionIsolated
	job.Payload = Payload{Kind: PayloadAgentTurn, Message: "do the thing"}

	result := Dispatch(context.Background(), job, ModeForce, Deps{})
	if result.OK {
		t.Error("expected OK=false when no isolated runner is configured")
	}
}

func TestDispatch_Isolated_RejectsWrongPayloadKind(t *testing.T) {
	job := baseDueJob()
	job.SessionTarget = SessionIsolated
	job.Payload = Payload{Kind: PayloadSystemEvent, Text: "hi"}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Isolated: &fakeIsolated{}})
	if result.Ran {
		t.Fatal("an isolated job with a systemEvent payload must be rejected")
	}
}

func TestDispatch_Announce_SendsSummaryThroughAnnouncer(t *testing.T) {
	job := baseDueJob()
	job.Delivery = &Delivery{Mode: DeliveryAnnounce, Channel: "slack", To: "C123"}
	announcer := &fakeAnnouncer{}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: &fakeEventSink{}, Announcer: announcer})
	if result.Outcome.Status != RunOK {
		t.Fatalf("expected ok outcome, got %+v", result.Outcome)
	}
	if announcer.sent.Channel != "slack" || announcer.sent.ChatID != "C123" {
		t.Errorf("expected the announcer to receive the job's delivery target, got %+v", announcer.sent)
	}
}

func TestDispatch_Announce_FailureFoldsIntoErrorUnlessBestEffort(t *testing.T) {
	job := baseDueJob()
	job.Delivery = &Delivery{Mode: DeliveryAnnounce, Channel: "slack", To: "C123"}
	announcer := &fakeAnnouncer{err: errors.New("channel not registered")}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: &fakeEventSink{}, Announcer: announcer})
	if result.Outcome.Status != RunError {
		t.Fatalf("expected announce failure to fold into the outcome, got %+v", result.Outcome)
	}
}

func TestDispatch_Announce_BestEffortSwallowsFailure(t *testing.T) {
	job := baseDueJob()
	job.Delivery = &Delivery{Mode: DeliveryAnnounce, Channel: "slack", To: "C123", BestEffort: true}
	announcer := &fakeAnnouncer{err: errors.New("channel not registered")}

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: &fakeEventSink{}, Announcer: announcer})
	if result.Outcome.Status != RunOK {
		t.Fatalf("expected best-effort announce failure not to flip the outcome, got %+v", result.Outcome)
	}
}

func TestDispatch_UnknownSessionTarget(t *testing.T) {
	job := baseDueJob()
	job.SessionTarget = "bogus"

	result := Dispatch(context.Background(), job, ModeForce, Deps{})
	if result.OK {
		t.Error("expected OK=false for an unrecognized session target")
	}
}

func TestDispatch_NextRunOmittedWhenDisabled(t *testing.T) {
	job := baseDueJob()
	job.Enabled = false

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: &fakeEventSink{}})
	if result.NextRunAtMS != nil {
		t.Errorf("expected no next-run time for a disabled job, got %v", *result.NextRunAtMS)
	}
}

func TestDispatch_NextRunComputedWhenEnabled(t *testing.T) {
	job := baseDueJob()

	result := Dispatch(context.Background(), job, ModeForce, Deps{Events: &fakeEventSink{}})
	if result.NextRunAtMS == nil {
		t.Fatal("expected a computed next-run time for an enabled every-minute job")
	}
}
