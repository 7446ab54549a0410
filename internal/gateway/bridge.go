package gateway

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/goclaw/internal/cron"
)

// LoggingEventSink implements cron.EventSink by logging the system event it
// would have posted. A deployment with a live interactive agent session
// manager replaces this with one that actually enqueues into that session;
// that runtime is out of scope here.
type LoggingEventSink struct{}

func (LoggingEventSink) PostSystemEvent(ctx context.Context, agentID, sessionKey, text string) error {
	slog.Info("cron system event", "agent", agentID, "session", sessionKey, "text", text)
	return nil
}

// LoggingIsolatedRunner implements cron.IsolatedRunner by logging the turn
// it would have run and reporting it as skipped, rather than silently
// claiming success for work that never happened.
type LoggingIsolatedRunner struct{}

func (LoggingIsolatedRunner) RunIsolatedTurn(ctx context.Context, job cron.Job) (cron.IsolatedTurnResult, error) {
	slog.Info("cron isolated turn requested", "job", job.ID, "message", job.Payload.Message)
	return cron.IsolatedTurnResult{
		Status:  string(cron.RunError),
		Error:   "no isolated agent runner configured",
		Summary: "isolated turn skipped: no runner configured",
	}, nil
}
