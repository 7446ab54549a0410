package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// EventSink enqueues a system event into a long-lived agent session. It is
// the narrow interface onto the out-of-scope interactive agent runtime.
type EventSink interface {
	PostSystemEvent(ctx context.Context, agentID, sessionKey, text string) error
}

// HeartbeatSignaler wakes the heartbeat loop outside its normal interval.
type HeartbeatSignaler interface {
	SignalWake(reason string)
}

// IsolatedTurnResult mirrors the external isolated-agent-turn runner's
// return shape. A missing Status is treated as "ok".
type IsolatedTurnResult struct {
	Status     string
	Error      string
	Summary    string
	SessionID  string
	SessionKey string
}

// IsolatedRunner spawns a bounded subprocess running a single, fresh-session
// agent turn. The runner owns its own cancellation; the dispatcher forwards
// no abort signal (§5).
type IsolatedRunner interface {
	RunIsolatedTurn(ctx context.Context, job Job) (IsolatedTurnResult, error)
}

// Announcer delivers a run outcome summary through a chat channel backend,
// backing delivery.mode="announce".
type Announcer interface {
	Send(msg bus.OutboundMessage) error
}

// Deps bundles the Dispatcher's external collaborators and per-deployment
// defaults.
type Deps struct {
	Events         EventSink
	Heartbeat      HeartbeatSignaler
	Isolated       IsolatedRunner
	Announcer      Announcer
	WebhookToken   string
	DefaultAgentID string
}

// mainSessionKey derives the default session key for a main-target job that
// did not set one explicitly.
func mainSessionKey(agentID string) string {
	return fmt.Sprintf("agent:%s:main", agentID)
}

// Dispatch executes job under mode, following §4.E exactly: gate, then one
// of the two session-target branches, then webhook or announce delivery, then
// recomputation of the next scheduled run.
func Dispatch(ctx context.Context, job Job, mode RunMode, deps Deps) RunResult {
	ctx, span := startDispatchSpan(ctx, job, mode)
	defer span.End()

	now := time.Now()
	if !shouldRunJob(job, mode, now) {
		return RunResult{OK: true, Ran: false, Reason: "not-due"}
	}

	var outcome RunOutcome

	switch job.SessionTarget {
	case SessionMain:
		if job.Payload.Kind != PayloadSystemEvent {
			return RunResult{OK: false, Error: "main session jobs require systemEvent payload"}
		}

		agentID := job.AgentID
		if agentID == "" {
			agentID = deps.DefaultAgentID
		}
		sessionKey := job.SessionKey
		if sessionKey == "" {
			sessionKey = mainSessionKey(agentID)
		}

		outcome = RunOutcome{Status: RunOK, SessionKey: sessionKey}

		if deps.Events != nil {
			if err := deps.Events.PostSystemEvent(ctx, agentID, sessionKey, job.Payload.Text); err != nil {
				// Open question in the design notes: the reference behavior
				// never surfaces this failure. We propagate it, per the
				// recommendation, as a dispatch-kind error.
				outcome = RunOutcome{Status: RunError, Error: err.Error(), ErrorKind: "dispatch", SessionKey: sessionKey}
			}
		}

		if job.WakeMode == "" || job.WakeMode == WakeNow || job.WakeMode == WakeNextHeartbeat {
			if deps.Heartbeat != nil {
				deps.Heartbeat.SignalWake("cron")
			}
		}

	case SessionIsolated:
		if job.Payload.Kind != PayloadAgentTurn {
			return RunResult{OK: false, Error: "isolated session jobs require agentTurn payload"}
		}
		if deps.Isolated == nil {
			return RunResult{OK: false, Error: "no isolated turn runner configured"}
		}

		result, err := deps.Isolated.RunIsolatedTurn(ctx, job)
		if err != nil {
			outcome = RunOutcome{Status: RunError, Error: err.Error(), ErrorKind: "dispatch"}
		} else {
			status := RunStatus(result.Status)
			if status == "" {
				status = RunOK
			}
			outcome = RunOutcome{
				Status:     status,
				Summary:    result.Summary,
				Error:      result.Error,
				SessionID:  result.SessionID,
				SessionKey: result.SessionKey,
			}
		}

	default:
		return RunResult{OK: false, Error: fmt.Sprintf("unknown sessionTarget %q", job.SessionTarget)}
	}

	if job.Delivery != nil && job.Delivery.Mode == DeliveryWebhook {
		delivery := deliverWebhook(ctx, job, outcome, deps.WebhookToken)
		if !delivery.Delivered && !job.Delivery.BestEffort {
			outcome = RunOutcome{Status: RunError, Error: delivery.Error, ErrorKind: "delivery-target"}
		}
	}

	if job.Delivery != nil && job.Delivery.Mode == DeliveryAnnounce && deps.Announcer != nil {
		text := outcome.Summary
		if text == "" {
			text = fmt.Sprintf("%s: %s", job.Name, outcome.Status)
		}
		err := deps.Announcer.Send(bus.OutboundMessage{
			Channel: job.Delivery.Channel,
			ChatID:  job.Delivery.To,
			Content: text,
		})
		if err != nil && !job.Delivery.BestEffort {
			outcome = RunOutcome{Status: RunError, Error: err.Error(), ErrorKind: "delivery-target"}
		}
	}

	var next *int64
	if job.Enabled {
		next = computeNextRunAtMS(job, now.UnixMilli())
	}

	return RunResult{OK: true, Ran: true, Outcome: &outcome, NextRunAtMS: next}
}
