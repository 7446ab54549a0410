// Package cron implements a crontab(1)-backed job scheduler: it encodes
// jobs as tagged crontab lines, decodes them back, and dispatches runs
// that cron(8) itself triggers. The process never ticks a clock for
// scheduling purposes — cron(8) does that — it only reacts to
// "openclaw cron run <id>" invocations and to RPC calls that read or
// rewrite the crontab.
package cron

import "time"

// ScheduleKind is the discriminant of the Schedule tagged union.
type ScheduleKind string

const (
	ScheduleCron  ScheduleKind = "cron"
	ScheduleEvery ScheduleKind = "every"
	ScheduleAt    ScheduleKind = "at"
)

// Schedule is a tagged union over the three schedule kinds a job can carry.
// Only the fields relevant to Kind are populated.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	// kind == "cron"
	Expr      string `json:"expr,omitempty"`
	TZ        string `json:"tz,omitempty"`
	StaggerMS int64  `json:"staggerMs,omitempty"`

	// kind == "every"
	EveryMS  int64 `json:"everyMs,omitempty"`
	AnchorMS int64 `json:"anchorMs,omitempty"`

	// kind == "at"
	At string `json:"at,omitempty"` // ISO-8601 instant
}

// SessionTarget selects which dispatch branch a run takes.
type SessionTarget string

const (
	SessionMain     SessionTarget = "main"
	SessionIsolated SessionTarget = "isolated"
)

// WakeMode controls whether a main-session dispatch also pokes the
// heartbeat loop.
type WakeMode string

const (
	WakeNow           WakeMode = "now"
	WakeNextHeartbeat WakeMode = "next-heartbeat"
)

// PayloadKind is the discriminant of the Payload tagged union.
type PayloadKind string

const (
	PayloadSystemEvent PayloadKind = "systemEvent"
	PayloadAgentTurn   PayloadKind = "agentTurn"
)

// Payload describes what a job does once dispatched.
type Payload struct {
	Kind PayloadKind `json:"kind"`

	// kind == "systemEvent"
	Text string `json:"text,omitempty"`

	// kind == "agentTurn"
	Message                    string `json:"message,omitempty"`
	Model                      string `json:"model,omitempty"`
	Thinking                   string `json:"thinking,omitempty"`
	TimeoutSeconds             int    `json:"timeoutSeconds,omitempty"`
	AllowUnsafeExternalContent bool   `json:"allowUnsafeExternalContent,omitempty"`
	Deliver                    bool   `json:"deliver,omitempty"`
	Channel                    string `json:"channel,omitempty"`
	To                         string `json:"to,omitempty"`
	BestEffortDeliver          bool   `json:"bestEffortDeliver,omitempty"`
}

// DeliveryMode selects how a run's outcome is announced.
type DeliveryMode string

const (
	DeliveryNone     DeliveryMode = "none"
	DeliveryAnnounce DeliveryMode = "announce"
	DeliveryWebhook  DeliveryMode = "webhook"
)

// Delivery describes where to send a run's outcome.
type Delivery struct {
	Mode       DeliveryMode `json:"mode"`
	Channel    string       `json:"channel,omitempty"`
	To         string       `json:"to,omitempty"`
	BestEffort bool         `json:"bestEffort,omitempty"`
}

// JobState carries derived, recomputed-on-write runtime state.
type JobState struct {
	NextRunAtMS *int64 `json:"nextRunAtMs,omitempty"`
}

// Job is the primary scheduling entity, round-tripped to/from crontab lines.
type Job struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Enabled        bool          `json:"enabled"`
	AgentID        string        `json:"agentId,omitempty"`
	SessionKey     string        `json:"sessionKey,omitempty"`
	DeleteAfterRun bool          `json:"deleteAfterRun,omitempty"`
	CreatedAtMS    int64         `json:"createdAtMs"`
	UpdatedAtMS    int64         `json:"updatedAtMs"`
	Schedule       Schedule      `json:"schedule"`
	SessionTarget  SessionTarget `json:"sessionTarget"`
	WakeMode       WakeMode      `json:"wakeMode"`
	Payload        Payload       `json:"payload"`
	Delivery       *Delivery     `json:"delivery,omitempty"`
	State          JobState      `json:"state"`
}

// JobCreate is the cron.add request shape: every Job field minus id,
// createdAtMs, updatedAtMs, and state.
type JobCreate struct {
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Enabled        bool          `json:"enabled"`
	AgentID        string        `json:"agentId,omitempty"`
	SessionKey     string        `json:"sessionKey,omitempty"`
	DeleteAfterRun bool          `json:"deleteAfterRun,omitempty"`
	Schedule       Schedule      `json:"schedule"`
	SessionTarget  SessionTarget `json:"sessionTarget"`
	WakeMode       WakeMode      `json:"wakeMode,omitempty"`
	Payload        Payload       `json:"payload"`
	Delivery       *Delivery     `json:"delivery,omitempty"`
}

// JobPatch is a partial update. Payload and Delivery merge shallowly onto
// the existing job's branch, and are rejected if their Kind/Mode disagrees
// with the target's current branch (see design note on tagged-union merges).
type JobPatch struct {
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Enabled        *bool          `json:"enabled,omitempty"`
	AgentID        *string        `json:"agentId,omitempty"`
	SessionKey     *string        `json:"sessionKey,omitempty"`
	DeleteAfterRun *bool          `json:"deleteAfterRun,omitempty"`
	Schedule       *Schedule      `json:"schedule,omitempty"`
	SessionTarget  *SessionTarget `json:"sessionTarget,omitempty"`
	WakeMode       *WakeMode      `json:"wakeMode,omitempty"`
	Payload        *PayloadPatch  `json:"payload,omitempty"`
	Delivery       *DeliveryPatch `json:"delivery,omitempty"`
}

// PayloadPatch carries only the fields present in an update request; Kind,
// if set, must equal the target job's current payload kind.
type PayloadPatch struct {
	Kind                       *PayloadKind `json:"kind,omitempty"`
	Text                       *string      `json:"text,omitempty"`
	Message                    *string      `json:"message,omitempty"`
	Model                      *string      `json:"model,omitempty"`
	Thinking                   *string      `json:"thinking,omitempty"`
	TimeoutSeconds             *int         `json:"timeoutSeconds,omitempty"`
	AllowUnsafeExternalContent *bool        `json:"allowUnsafeExternalContent,omitempty"`
	Deliver                    *bool        `json:"deliver,omitempty"`
	Channel                    *string      `json:"channel,omitempty"`
	To                         *string      `json:"to,omitempty"`
	BestEffortDeliver          *bool        `json:"bestEffortDeliver,omitempty"`
}

// DeliveryPatch carries only the fields present in an update request; Mode,
// if set, must equal the target job's current delivery mode.
type DeliveryPatch struct {
	Mode       *DeliveryMode `json:"mode,omitempty"`
	Channel    *string       `json:"channel,omitempty"`
	To         *string       `json:"to,omitempty"`
	BestEffort *bool         `json:"bestEffort,omitempty"`
}

// RunStatus is the discriminant of a RunOutcome / RunLogEntry.
type RunStatus string

const (
	RunOK    RunStatus = "ok"
	RunError RunStatus = "error"
)

// RunOutcome is the result of dispatching a single job run.
type RunOutcome struct {
	Status     RunStatus `json:"status"`
	Summary    string    `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	SessionKey string    `json:"sessionKey,omitempty"`
}

// RunLogEntry is one reconstructed history row for a job, sourced from the
// system log rather than from any store this process owns.
type RunLogEntry struct {
	TS     int64     `json:"ts"`
	JobID  string    `json:"jobId"`
	Status RunStatus `json:"status"`
}

// RunResult is the outcome of a cron.run dispatch, mirroring §4.E's
// three-way result shape.
type RunResult struct {
	OK          bool        `json:"ok"`
	Ran         bool        `json:"ran"`
	Reason      string      `json:"reason,omitempty"`
	Outcome     *RunOutcome `json:"outcome,omitempty"`
	NextRunAtMS *int64      `json:"nextRunAtMs,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// RunMode selects Gate behavior: "due" asks whether the schedule says to
// run now, "force" always runs.
type RunMode string

const (
	ModeDue   RunMode = "due"
	ModeForce RunMode = "force"
)

func nowMS() int64 { return time.Now().UnixMilli() }
