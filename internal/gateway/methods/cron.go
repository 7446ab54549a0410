package methods

import (
	"context"
	"encoding/json"

	"github.com/nextlevelbuilder/goclaw/internal/cron"
	"github.com/nextlevelbuilder/goclaw/internal/gateway"
	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// EventBroadcaster pushes a named event to every connected client.
type EventBroadcaster interface {
	BroadcastEvent(event string, payload interface{})
}

// CronMethods handles cron.list, cron.add, cron.update, cron.remove,
// cron.run, cron.runs, cron.status, and scheduler.status. It talks directly
// to the crontab-backed Facade — there is no intervening store layer.
type CronMethods struct {
	facade      *cron.Facade
	broadcaster EventBroadcaster
}

func NewCronMethods(facade *cron.Facade, broadcaster EventBroadcaster) *CronMethods {
	return &CronMethods{facade: facade, broadcaster: broadcaster}
}

func (m *CronMethods) announce(kind string, jobID string) {
	if m.broadcaster == nil {
		return
	}
	m.broadcaster.BroadcastEvent(protocol.EventCron, map[string]interface{}{
		"kind":  kind,
		"jobId": jobID,
	})
}

func (m *CronMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodCronList, m.handleList)
	router.Register(protocol.MethodCronAdd, m.handleAdd)
	router.Register(protocol.MethodCronUpdate, m.handleUpdate)
	router.Register(protocol.MethodCronRemove, m.handleRemove)
	router.Register(protocol.MethodCronRun, m.handleRun)
	router.Register(protocol.MethodCronRuns, m.handleRuns)
	router.Register(protocol.MethodCronStatus, m.handleStatus)
	router.Register(protocol.MethodSchedulerStatus, m.handleSchedulerStatus)
}

func (m *CronMethods) handleList(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params cron.ListParams
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}

	result, err := m.facade.List(params)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, result))
}

func (m *CronMethods) handleAdd(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var create cron.JobCreate
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &create); err != nil {
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "malformed params: "+err.Error()))
			return
		}
	}
	if create.Name == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "name is required"))
		return
	}

	job, err := m.facade.Add(ctx, create)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error()))
		return
	}
	m.announce("added", job.ID)
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"job": job}))
}

func (m *CronMethods) handleUpdate(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		JobID string        `json:"jobId"`
		ID    string        `json:"id"`
		Patch cron.JobPatch `json:"patch"`
	}
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "malformed params: "+err.Error()))
			return
		}
	}
	jobID := params.JobID
	if jobID == "" {
		jobID = params.ID
	}
	if jobID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "jobId is required"))
		return
	}

	job, err := m.facade.Update(ctx, jobID, params.Patch)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error()))
		return
	}
	m.announce("updated", job.ID)
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"job": job}))
}

func (m *CronMethods) handleRemove(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		JobID string `json:"jobId"`
		ID    string `json:"id"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	jobID := params.JobID
	if jobID == "" {
		jobID = params.ID
	}
	if jobID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "jobId is required"))
		return
	}

	removed, err := m.facade.Remove(ctx, jobID)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}
	if !removed {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, "job not found"))
		return
	}
	m.announce("removed", jobID)
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"removed": true}))
}

func (m *CronMethods) handleRun(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		JobID string `json:"jobId"`
		ID    string `json:"id"`
		Mode  string `json:"mode"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	jobID := params.JobID
	if jobID == "" {
		jobID = params.ID
	}
	if jobID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "jobId is required"))
		return
	}

	mode := cron.ModeDue
	if params.Mode == "force" {
		mode = cron.ModeForce
	}

	result, err := m.facade.Run(ctx, jobID, mode)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error()))
		return
	}
	if result.Ran {
		m.announce("ran", jobID)
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, result))
}

func (m *CronMethods) handleRuns(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		JobID string `json:"jobId"`
		ID    string `json:"id"`
		Limit int    `json:"limit"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	jobID := params.JobID
	if jobID == "" {
		jobID = params.ID
	}

	result := m.facade.Runs(jobID, params.Limit)
	client.SendResponse(protocol.NewOKResponse(req.ID, result))
}

func (m *CronMethods) handleStatus(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	hasJobs, count, err := m.facade.Status()
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"hasJobs": hasJobs,
		"count":   count,
	}))
}

func (m *CronMethods) handleSchedulerStatus(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	result := cron.SchedulerStatus(ctx)
	client.SendResponse(protocol.NewOKResponse(req.ID, result))
}
