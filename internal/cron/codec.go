package cron

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tag is the literal marker that identifies a crontab line as owned by
// this system. Any line containing it is "managed"; everything else is
// passed through untouched on every write.
const Tag = "# openclaw:cron"

// RunMarker identifies the execution line among managed lines.
const RunMarker = "openclaw cron run"

// idRe constrains job IDs to characters safe to place verbatim on a
// crontab execution line — UUID-like characters only, to rule out shell
// metacharacter injection via a forged id.
var idRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidJobID reports whether id is safe to embed in a crontab line.
func ValidJobID(id string) bool {
	return id != "" && idRe.MatchString(id)
}

// Snapshot is the result of decoding a crontab's current content.
type Snapshot struct {
	Jobs           []Job
	UnmanagedLines []string
	Errors         []string
}

// percentEncode escapes whitespace, '#', '=', and control characters so a
// metadata value can never corrupt key=value parsing or comment handling.
// It intentionally is not url.QueryEscape, which encodes space as '+'
// rather than '%20' and would be lossy for values containing a literal '+'.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c <= 0x20 || c == 0x7f || c == '#' || c == '=' || c == '%':
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// percentDecode reverses percentEncode. Malformed escapes are passed
// through as literal text rather than erroring — decoding is best-effort
// per the design notes.
func percentDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func encodeKV(kv []string) string {
	return Tag + " " + strings.Join(kv, " ")
}

func kv(key, value string) string {
	return key + "=" + percentEncode(value)
}

func kvBool(key string, value bool) string {
	return key + "=" + strconv.FormatBool(value)
}

func kvInt(key string, value int64) string {
	return key + "=" + strconv.FormatInt(value, 10)
}

// EncodeJobs rewrites crontab content: unmanaged lines from existingContent
// are preserved verbatim, every tagged line is dropped, and fresh managed
// lines are appended for each job in jobs.
func EncodeJobs(jobs []Job, existingContent string) (string, error) {
	var unmanaged []string
	for _, line := range strings.Split(existingContent, "\n") {
		if !strings.Contains(line, Tag) {
			unmanaged = append(unmanaged, line)
		}
	}

	var out strings.Builder
	residue := strings.TrimRight(strings.Join(unmanaged, "\n"), "\n")
	if strings.TrimSpace(residue) != "" {
		out.WriteString(residue)
		out.WriteString("\n\n")
	}

	for _, job := range jobs {
		lines, err := encodeJob(job)
		if err != nil {
			return "", err
		}
		for _, l := range lines {
			out.WriteString(l)
			out.WriteString("\n")
		}
	}

	return collapseBlankRuns(out.String()), nil
}

func collapseBlankRuns(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

func encodeJob(job Job) ([]string, error) {
	if !ValidJobID(job.ID) {
		return nil, fmt.Errorf("refusing to encode job with unsafe id %q", job.ID)
	}

	resolved, err := ResolveSchedule(job.Schedule)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	var lines []string

	base := []string{
		kv("id", job.ID),
		kv("name", job.Name),
		kvBool("enabled", job.Enabled),
		kv("session_target", string(job.SessionTarget)),
		kv("wake_mode", string(job.WakeMode)),
		kvInt("created_at_ms", job.CreatedAtMS),
		kvInt("updated_at_ms", job.UpdatedAtMS),
	}
	if job.Description != "" {
		base = append(base, kv("description", job.Description))
	}
	if job.AgentID != "" {
		base = append(base, kv("agent_id", job.AgentID))
	}
	if job.SessionKey != "" {
		base = append(base, kv("session_key", job.SessionKey))
	}
	if job.DeleteAfterRun {
		base = append(base, kvBool("delete_after_run", true))
	}
	lines = append(lines, encodeKV(base))

	payload := []string{kv("id", job.ID), kv("payload_kind", string(job.Payload.Kind))}
	switch job.Payload.Kind {
	case PayloadSystemEvent:
		payload = append(payload, kv("payload_text", job.Payload.Text))
	case PayloadAgentTurn:
		payload = append(payload, kv("payload_message", job.Payload.Message))
		if job.Payload.Model != "" {
			payload = append(payload, kv("payload_model", job.Payload.Model))
		}
		if job.Payload.Thinking != "" {
			payload = append(payload, kv("payload_thinking", job.Payload.Thinking))
		}
		if job.Payload.TimeoutSeconds != 0 {
			payload = append(payload, kvInt("payload_timeout_seconds", int64(job.Payload.TimeoutSeconds)))
		}
		if job.Payload.AllowUnsafeExternalContent {
			payload = append(payload, kvBool("payload_allow_unsafe_external_content", true))
		}
		if job.Payload.Deliver {
			payload = append(payload, kvBool("payload_deliver", true))
		}
		if job.Payload.Channel != "" {
			payload = append(payload, kv("payload_channel", job.Payload.Channel))
		}
		if job.Payload.To != "" {
			payload = append(payload, kv("payload_to", job.Payload.To))
		}
		if job.Payload.BestEffortDeliver {
			payload = append(payload, kvBool("payload_best_effort_deliver", true))
		}
	}
	lines = append(lines, encodeKV(payload))

	if job.Delivery != nil && job.Delivery.Mode != DeliveryNone {
		delivery := []string{kv("id", job.ID), kv("delivery_mode", string(job.Delivery.Mode))}
		if job.Delivery.Channel != "" {
			delivery = append(delivery, kv("delivery_channel", job.Delivery.Channel))
		}
		if job.Delivery.To != "" {
			delivery = append(delivery, kv("delivery_to", job.Delivery.To))
		}
		if job.Delivery.BestEffort {
			delivery = append(delivery, kvBool("delivery_best_effort", true))
		}
		lines = append(lines, encodeKV(delivery))
	}

	schedule := []string{kv("id", job.ID), kv("schedule_kind", string(job.Schedule.Kind))}
	switch job.Schedule.Kind {
	case ScheduleCron:
		schedule = append(schedule, kv("schedule_expr", job.Schedule.Expr))
	case ScheduleEvery:
		schedule = append(schedule, kvInt("schedule_every_ms", job.Schedule.EveryMS))
	case ScheduleAt:
		schedule = append(schedule, kv("schedule_at", job.Schedule.At))
	}
	lines = append(lines, encodeKV(schedule))

	execPrefix := ""
	if !job.Enabled {
		execPrefix = "# "
	}
	execLine := fmt.Sprintf("%s%s openclaw cron run %s --force %s", execPrefix, resolved.Expr, job.ID, encodeKV([]string{kv("id", job.ID)}))
	lines = append(lines, execLine)

	return lines, nil
}

// DecodeSnapshot parses crontab content into a Snapshot.
func DecodeSnapshot(content string) Snapshot {
	lines := strings.Split(content, "\n")

	type jobFields map[string]string
	fieldsByID := map[string]jobFields{}
	execByID := map[string]struct {
		expr    string
		enabled bool
	}{}

	var unmanaged []string

	for _, raw := range lines {
		line := raw
		if !strings.Contains(line, Tag) {
			unmanaged = append(unmanaged, raw)
			continue
		}

		disabled := strings.HasPrefix(strings.TrimLeft(line, " \t"), "# ") && strings.Contains(line, RunMarker)
		content := line
		if disabled {
			content = strings.TrimPrefix(strings.TrimLeft(line, " \t"), "# ")
		}

		tagIdx := strings.Index(content, Tag)
		if tagIdx < 0 {
			continue
		}
		before := strings.TrimSpace(content[:tagIdx])
		kvPart := strings.TrimSpace(content[tagIdx+len(Tag):])
		fields := parseKV(kvPart)

		id := fields["id"]
		if id == "" {
			continue
		}

		if strings.Contains(before, RunMarker) {
			toks := strings.Fields(before)
			if len(toks) < 5 {
				continue
			}
			expr := strings.Join(toks[:5], " ")
			execByID[id] = struct {
				expr    string
				enabled bool
			}{expr: expr, enabled: !disabled}
			if fb, ok := fieldsByID[id]; ok {
				for k, v := range fields {
					fb[k] = v
				}
			} else {
				fieldsByID[id] = fields
			}
			continue
		}

		if fieldsByID[id] == nil {
			fieldsByID[id] = jobFields{}
		}
		for k, v := range fields {
			fieldsByID[id][k] = v
		}
	}

	var jobs []Job
	var errs []string
	for id, f := range fieldsByID {
		job, err := buildJob(id, f, execByID[id].expr, execByID[id].enabled)
		if err != nil {
			errs = append(errs, fmt.Sprintf("job %s: %v", id, err))
			continue
		}
		jobs = append(jobs, job)
	}

	return Snapshot{Jobs: jobs, UnmanagedLines: unmanaged, Errors: errs}
}

func parseKV(s string) map[string]string {
	out := map[string]string{}
	for _, tok := range strings.Fields(s) {
		eq := strings.Index(tok, "=")
		if eq < 0 {
			continue
		}
		key := tok[:eq]
		val := percentDecode(tok[eq+1:])
		out[key] = val
	}
	return out
}

func buildJob(id string, f map[string]string, execExpr string, enabled bool) (Job, error) {
	job := Job{
		ID:            id,
		Name:          f["name"],
		Description:   f["description"],
		Enabled:       enabled,
		AgentID:       f["agent_id"],
		SessionKey:    f["session_key"],
		SessionTarget: SessionMain,
		WakeMode:      WakeNow,
	}
	if st, ok := f["session_target"]; ok && st != "" {
		job.SessionTarget = SessionTarget(st)
	}
	if wm, ok := f["wake_mode"]; ok && wm != "" {
		job.WakeMode = WakeMode(wm)
	}
	if v, ok := f["created_at_ms"]; ok {
		job.CreatedAtMS, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := f["updated_at_ms"]; ok {
		job.UpdatedAtMS, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := f["delete_after_run"]; ok {
		job.DeleteAfterRun = v == "true"
	}

	job.Payload.Kind = PayloadSystemEvent
	if pk, ok := f["payload_kind"]; ok && pk != "" {
		job.Payload.Kind = PayloadKind(pk)
	}
	switch job.Payload.Kind {
	case PayloadSystemEvent:
		job.Payload.Text = f["payload_text"]
	case PayloadAgentTurn:
		job.Payload.Message = f["payload_message"]
		job.Payload.Model = f["payload_model"]
		job.Payload.Thinking = f["payload_thinking"]
		if v, ok := f["payload_timeout_seconds"]; ok {
			n, _ := strconv.Atoi(v)
			job.Payload.TimeoutSeconds = n
		}
		job.Payload.AllowUnsafeExternalContent = f["payload_allow_unsafe_external_content"] == "true"
		job.Payload.Deliver = f["payload_deliver"] == "true"
		job.Payload.Channel = f["payload_channel"]
		job.Payload.To = f["payload_to"]
		job.Payload.BestEffortDeliver = f["payload_best_effort_deliver"] == "true"
	}

	if dm, ok := f["delivery_mode"]; ok && dm != "" {
		job.Delivery = &Delivery{
			Mode:       DeliveryMode(dm),
			Channel:    f["delivery_channel"],
			To:         f["delivery_to"],
			BestEffort: f["delivery_best_effort"] == "true",
		}
	}

	kind, ok := f["schedule_kind"]
	if !ok || kind == "" {
		if execExpr == "" {
			return Job{}, fmt.Errorf("missing schedule metadata and no execution line")
		}
		job.Schedule = Schedule{Kind: ScheduleCron, Expr: execExpr}
	} else {
		job.Schedule.Kind = ScheduleKind(kind)
		switch job.Schedule.Kind {
		case ScheduleCron:
			job.Schedule.Expr = f["schedule_expr"]
			if job.Schedule.Expr == "" {
				job.Schedule.Expr = execExpr
			}
			job.Schedule.TZ = f["schedule_tz"]
		case ScheduleEvery:
			v, ok := f["schedule_every_ms"]
			if !ok {
				return Job{}, fmt.Errorf("every schedule missing schedule_every_ms")
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Job{}, fmt.Errorf("every schedule has invalid schedule_every_ms")
			}
			job.Schedule.EveryMS = n
		case ScheduleAt:
			job.Schedule.At = f["schedule_at"]
			if job.Schedule.At == "" {
				return Job{}, fmt.Errorf("at schedule missing schedule_at")
			}
		}
	}

	job.State.NextRunAtMS = computeNextRunAtMS(job, nowMS())
	return job, nil
}
