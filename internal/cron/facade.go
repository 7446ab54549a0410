package cron

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// Facade is the RPC-facing entry point (component H): it validates
// parameters and routes list/status/add/update/remove/run/runs through the
// codec, gate, and dispatcher.
type Facade struct {
	lock    WriteLock
	deps    Deps
	history *CachedHistoryReader
	dueRuns *bus.DedupeCache
}

// NewFacade constructs a Facade. lock may be nil, in which case a
// process-local lock (NewLocalLock) is used.
func NewFacade(lock WriteLock, deps Deps) *Facade {
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Facade{
		lock:    lock,
		deps:    deps,
		history: NewCachedHistoryReader(256),
		dueRuns: bus.NewDedupeCache(90*time.Second, 512),
	}
}

// ListParams is the cron.list request shape.
type ListParams struct {
	IncludeDisabled bool
	Enabled         string // "all" | "enabled" | "disabled"
	Query           string
	SortBy          string // "nextRunAtMs" | "updatedAtMs" | "name"
	SortDir         string // "asc" | "desc"
	Limit           int
	Offset          int
}

// ListResult is the cron.list response shape.
type ListResult struct {
	Jobs []Job `json:"jobs"`
	Meta struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"meta"`
}

func (f *Facade) readSnapshot() (Snapshot, error) {
	content, err := ReadCrontab()
	if err != nil {
		return Snapshot{}, fmt.Errorf("internal_error: %w", err)
	}
	return DecodeSnapshot(content), nil
}

func (f *Facade) writeJobs(ctx context.Context, jobs []Job) error {
	unlock, err := f.lock.Lock(ctx)
	if err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	defer unlock()

	content, err := ReadCrontab()
	if err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	encoded, err := EncodeJobs(jobs, content)
	if err != nil {
		return fmt.Errorf("invalid_request: %w", err)
	}
	if err := WriteCrontab(encoded); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	return nil
}

// List implements cron.list.
func (f *Facade) List(params ListParams) (ListResult, error) {
	snap, err := f.readSnapshot()
	if err != nil {
		return ListResult{}, err
	}

	jobs := snap.Jobs
	switch params.Enabled {
	case "enabled":
		jobs = filterJobs(jobs, func(j Job) bool { return j.Enabled })
	case "disabled":
		jobs = filterJobs(jobs, func(j Job) bool { return !j.Enabled })
	default:
		if !params.IncludeDisabled {
			jobs = filterJobs(jobs, func(j Job) bool { return j.Enabled })
		}
	}
	if q := strings.ToLower(strings.TrimSpace(params.Query)); q != "" {
		jobs = filterJobs(jobs, func(j Job) bool { return strings.Contains(strings.ToLower(j.Name), q) })
	}

	sortJobs(jobs, params.SortBy, params.SortDir)

	total := len(jobs)
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	result := ListResult{Jobs: jobs[offset:end]}
	result.Meta.Total = total
	result.Meta.Limit = limit
	result.Meta.Offset = offset
	return result, nil
}

func filterJobs(jobs []Job, keep func(Job) bool) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	return out
}

func sortJobs(jobs []Job, sortBy, sortDir string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "updatedAtMs":
			return jobs[i].UpdatedAtMS < jobs[j].UpdatedAtMS
		case "name":
			return jobs[i].Name < jobs[j].Name
		default: // "nextRunAtMs"
			a, b := jobs[i].State.NextRunAtMS, jobs[j].State.NextRunAtMS
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			return *a < *b
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if sortDir == "desc" {
			return less(j, i)
		}
		return less(i, j)
	})
}

// Status implements cron.status.
func (f *Facade) Status() (bool, int, error) {
	snap, err := f.readSnapshot()
	if err != nil {
		return false, 0, err
	}
	return len(snap.Jobs) > 0, len(snap.Jobs), nil
}

// Add implements cron.add.
func (f *Facade) Add(ctx context.Context, create JobCreate) (Job, error) {
	if _, err := ResolveSchedule(create.Schedule); err != nil {
		return Job{}, fmt.Errorf("invalid_request: %w", err)
	}
	if create.SessionTarget == SessionMain && create.Payload.Kind != PayloadSystemEvent {
		return Job{}, fmt.Errorf("invalid_request: main session jobs require systemEvent payload")
	}
	if create.SessionTarget == SessionIsolated && create.Payload.Kind != PayloadAgentTurn {
		return Job{}, fmt.Errorf("invalid_request: isolated session jobs require agentTurn payload")
	}

	now := nowMS()
	job := Job{
		ID:             uuid.NewString(),
		Name:           create.Name,
		Description:    create.Description,
		Enabled:        create.Enabled,
		AgentID:        create.AgentID,
		SessionKey:     create.SessionKey,
		DeleteAfterRun: create.DeleteAfterRun,
		CreatedAtMS:    now,
		UpdatedAtMS:    now,
		Schedule:       create.Schedule,
		SessionTarget:  create.SessionTarget,
		WakeMode:       create.WakeMode,
		Payload:        create.Payload,
		Delivery:       create.Delivery,
	}
	job.State.NextRunAtMS = computeNextRunAtMS(job, now)

	snap, err := f.readSnapshot()
	if err != nil {
		return Job{}, err
	}
	jobs := append(snap.Jobs, job)
	if err := f.writeJobs(ctx, jobs); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Update implements cron.update.
func (f *Facade) Update(ctx context.Context, id string, patch JobPatch) (Job, error) {
	snap, err := f.readSnapshot()
	if err != nil {
		return Job{}, err
	}

	idx := -1
	for i, j := range snap.Jobs {
		if j.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Job{}, fmt.Errorf("invalid_request: job %s not found", id)
	}

	job, err := applyPatch(snap.Jobs[idx], patch)
	if err != nil {
		return Job{}, fmt.Errorf("invalid_request: %w", err)
	}
	if _, err := ResolveSchedule(job.Schedule); err != nil {
		return Job{}, fmt.Errorf("invalid_request: %w", err)
	}
	job.UpdatedAtMS = nowMS()
	if patch.Schedule != nil {
		job.State.NextRunAtMS = computeNextRunAtMS(job, nowMS())
	}

	snap.Jobs[idx] = job
	if err := f.writeJobs(ctx, snap.Jobs); err != nil {
		return Job{}, err
	}
	return job, nil
}

func applyPatch(job Job, patch JobPatch) (Job, error) {
	if patch.Name != nil {
		job.Name = *patch.Name
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Enabled != nil {
		job.Enabled = *patch.Enabled
	}
	if patch.AgentID != nil {
		job.AgentID = *patch.AgentID
	}
	if patch.SessionKey != nil {
		job.SessionKey = *patch.SessionKey
	}
	if patch.DeleteAfterRun != nil {
		job.DeleteAfterRun = *patch.DeleteAfterRun
	}
	if patch.Schedule != nil {
		job.Schedule = *patch.Schedule
	}
	if patch.SessionTarget != nil {
		job.SessionTarget = *patch.SessionTarget
	}
	if patch.WakeMode != nil {
		job.WakeMode = *patch.WakeMode
	}
	if patch.Payload != nil {
		if patch.Payload.Kind != nil && *patch.Payload.Kind != job.Payload.Kind {
			return Job{}, fmt.Errorf("payload patch kind %q differs from job's current kind %q", *patch.Payload.Kind, job.Payload.Kind)
		}
		p := &job.Payload
		if patch.Payload.Text != nil {
			p.Text = *patch.Payload.Text
		}
		if patch.Payload.Message != nil {
			p.Message = *patch.Payload.Message
		}
		if patch.Payload.Model != nil {
			p.Model = *patch.Payload.Model
		}
		if patch.Payload.Thinking != nil {
			p.Thinking = *patch.Payload.Thinking
		}
		if patch.Payload.TimeoutSeconds != nil {
			p.TimeoutSeconds = *patch.Payload.TimeoutSeconds
		}
		if patch.Payload.AllowUnsafeExternalContent != nil {
			p.AllowUnsafeExternalContent = *patch.Payload.AllowUnsafeExternalContent
		}
		if patch.Payload.Deliver != nil {
			p.Deliver = *patch.Payload.Deliver
		}
		if patch.Payload.Channel != nil {
			p.Channel = *patch.Payload.Channel
		}
		if patch.Payload.To != nil {
			p.To = *patch.Payload.To
		}
		if patch.Payload.BestEffortDeliver != nil {
			p.BestEffortDeliver = *patch.Payload.BestEffortDeliver
		}
	}
	if patch.Delivery != nil {
		if job.Delivery != nil && patch.Delivery.Mode != nil && *patch.Delivery.Mode != job.Delivery.Mode {
			return Job{}, fmt.Errorf("delivery patch mode %q differs from job's current mode %q", *patch.Delivery.Mode, job.Delivery.Mode)
		}
		if job.Delivery == nil {
			job.Delivery = &Delivery{}
		}
		if patch.Delivery.Mode != nil {
			job.Delivery.Mode = *patch.Delivery.Mode
		}
		if patch.Delivery.Channel != nil {
			job.Delivery.Channel = *patch.Delivery.Channel
		}
		if patch.Delivery.To != nil {
			job.Delivery.To = *patch.Delivery.To
		}
		if patch.Delivery.BestEffort != nil {
			job.Delivery.BestEffort = *patch.Delivery.BestEffort
		}
	}

	if job.SessionTarget == SessionMain && job.Payload.Kind != PayloadSystemEvent {
		return Job{}, fmt.Errorf("main session jobs require systemEvent payload")
	}
	if job.SessionTarget == SessionIsolated && job.Payload.Kind != PayloadAgentTurn {
		return Job{}, fmt.Errorf("isolated session jobs require agentTurn payload")
	}

	return job, nil
}

// Remove implements cron.remove.
func (f *Facade) Remove(ctx context.Context, id string) (bool, error) {
	snap, err := f.readSnapshot()
	if err != nil {
		return false, err
	}

	found := false
	remaining := make([]Job, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		if j.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, j)
	}
	if !found {
		return false, nil
	}
	if err := f.writeJobs(ctx, remaining); err != nil {
		return false, err
	}
	return true, nil
}

// Run implements cron.run.
func (f *Facade) Run(ctx context.Context, id string, mode RunMode) (RunResult, error) {
	snap, err := f.readSnapshot()
	if err != nil {
		return RunResult{}, err
	}

	idx := -1
	for i, j := range snap.Jobs {
		if j.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return RunResult{}, fmt.Errorf("invalid_request: job %s not found", id)
	}

	job := snap.Jobs[idx]

	// cron(8) re-invokes "run --force" within the same minute after a missed
	// heartbeat or service restart; collapse those into a single dispatch.
	if mode == ModeForce && f.dueRuns.IsDuplicate("force:"+job.ID) {
		return RunResult{OK: true, Ran: false, Reason: "duplicate-invocation"}, nil
	}

	result := Dispatch(ctx, job, mode, f.deps)
	if !result.OK {
		return result, nil
	}
	if !result.Ran {
		return result, nil
	}

	if job.Schedule.Kind == ScheduleAt && job.DeleteAfterRun {
		remaining := make([]Job, 0, len(snap.Jobs)-1)
		for _, j := range snap.Jobs {
			if j.ID != id {
				remaining = append(remaining, j)
			}
		}
		if err := f.writeJobs(ctx, remaining); err != nil {
			return result, err
		}
		return result, nil
	}

	return result, nil
}

// RunsResult is the cron.runs response shape.
type RunsResult struct {
	Entries    []RunLogEntry `json:"entries"`
	Total      int           `json:"total"`
	HasMore    bool          `json:"hasMore"`
	NextOffset *int          `json:"nextOffset,omitempty"`
}

// Runs implements cron.runs.
func (f *Facade) Runs(id string, limit int) RunsResult {
	if limit <= 0 {
		limit = 50
	}
	entries := f.history.Read(id, limit)
	return RunsResult{Entries: entries, Total: len(entries), HasMore: false}
}

// SchedulerStatusResult is the scheduler.status response shape: each block
// is either the subprocess's stdout or an error string.
type SchedulerStatusResult struct {
	Crontab string `json:"crontab"`
	Timers  string `json:"timers"`
	Units   string `json:"units"`
}

// SchedulerStatus implements scheduler.status, capturing the three
// diagnostic subprocess outputs independently so one failing command does
// not hide the others.
func SchedulerStatus(ctx context.Context) SchedulerStatusResult {
	run := func(name string, args ...string) string {
		cmd := exec.CommandContext(ctx, name, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(out)
	}

	return SchedulerStatusResult{
		Crontab: run("crontab", "-l"),
		Timers:  run("systemctl", "--user", "list-timers", "--all"),
		Units:   run("systemctl", "--user", "list-units", "--type=service"),
	}
}
