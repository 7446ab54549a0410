package cron

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer is scoped narrowly to the two spans this package emits — dispatch
// and webhook delivery — unlike the full agent-turn tracing pipeline,
// which has nothing to do with crontab scheduling.
var tracer = otel.Tracer("openclaw/cron")

// startDispatchSpan opens a span around one job dispatch.
func startDispatchSpan(ctx context.Context, job Job, mode RunMode) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cron.dispatch",
		trace.WithAttributes(
			attribute.String("cron.job_id", job.ID),
			attribute.String("cron.session_target", string(job.SessionTarget)),
			attribute.String("cron.mode", string(mode)),
		),
	)
}

// startWebhookSpan opens a span around a single webhook delivery attempt.
func startWebhookSpan(ctx context.Context, job Job) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cron.webhook",
		trace.WithAttributes(attribute.String("cron.job_id", job.ID)),
	)
}
