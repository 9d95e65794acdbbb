// Package fulfillment implements the Google Smart Home SYNC/QUERY/EXECUTE/
// DISCONNECT intent router described in spec.md §4.G, generalizing the
// teacher library's single-device-set Provider interface into one backed
// directly by internal/devicerepo and internal/capability, and owning the
// debounced RequestSync / ReportState push paths.
package fulfillment

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/faltung/homed-google-bridge/internal/capability"
	"github.com/faltung/homed-google-bridge/internal/debounce"
	"github.com/faltung/homed-google-bridge/internal/devicerepo"
	"github.com/faltung/homed-google-bridge/internal/googlemodel"
	"github.com/faltung/homed-google-bridge/internal/gwerr"
	"github.com/faltung/homed-google-bridge/internal/traits"
	"github.com/faltung/homed-google-bridge/internal/wire"
)

// HomeGraph is the outbound port to Google's Home Graph API, implemented
// by internal/homegraph.Client.
type HomeGraph interface {
	RequestSync(ctx context.Context, agentUserID string) error
	ReportState(ctx context.Context, agentUserID string, states map[string]googlemodel.State) error
}

// Router dispatches fulfillment intents against a device repository, and
// drives the reactive RequestSync/ReportState pushes off the repository's
// event streams, per spec.md §4.G.
type Router struct {
	repo      *devicerepo.Repository
	homegraph HomeGraph
	logger    *zap.Logger

	syncDebounce *debounce.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Router and starts its background pumps. syncDebounce is
// the trailing-debounce window applied per userId to devicesUpdated
// events (spec.md §6's "SYNC debounce", default 300ms). Call Close to
// stop the pumps.
func New(repo *devicerepo.Repository, homegraph HomeGraph, syncDebounce time.Duration, logger *zap.Logger) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		repo:      repo,
		homegraph: homegraph,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	r.syncDebounce = debounce.New(syncDebounce, r.fireRequestSync)

	go r.pumpDevicesUpdated()
	go r.pumpStateChanges()
	return r
}

// Close stops the Router's background pumps.
func (r *Router) Close() {
	r.cancel()
}

func (r *Router) pumpDevicesUpdated() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case userID := <-r.repo.Updates():
			r.syncDebounce.Trigger(userID)
		}
	}
}

func (r *Router) fireRequestSync(userID string) {
	if err := r.homegraph.RequestSync(r.ctx, userID); err != nil {
		r.logger.Info("request sync failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (r *Router) pumpStateChanges() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case change := <-r.repo.StateChanges():
			r.reportStateChange(change)
		}
	}
}

func (r *Router) reportStateChange(change devicerepo.StateChange) {
	updates := capability.GetStateUpdates(change.Device, change.ClientID, change.PrevState, change.NewState)
	if len(updates) == 0 {
		return
	}
	if err := r.homegraph.ReportState(r.ctx, change.UserID, updates); err != nil {
		r.logger.Info("report state failed", zap.String("user_id", change.UserID), zap.Error(err))
	}
}

// Handle dispatches one fulfillment request for userID, per spec.md
// §4.G. Exactly one input is expected, matching the teacher library's
// "unsupported number of inputs" validation.
func (r *Router) Handle(ctx context.Context, userID string, req wire.FulfillmentRequest) (interface{}, error) {
	if len(req.Inputs) != 1 {
		return nil, gwerr.Newf(gwerr.InvalidFulfillmentRequest, "expected exactly one input, got %d", len(req.Inputs))
	}
	input := req.Inputs[0]

	switch input.Intent {
	case wire.IntentSync:
		resp := r.handleSync(userID)
		resp.RequestID = req.RequestID
		return resp, nil

	case wire.IntentQuery:
		if input.Query == nil {
			return nil, gwerr.Newf(gwerr.InvalidFulfillmentRequest, "QUERY intent missing payload")
		}
		resp := r.handleQuery(userID, input.Query)
		resp.RequestID = req.RequestID
		return resp, nil

	case wire.IntentExecute:
		if input.Execute == nil {
			return nil, gwerr.Newf(gwerr.InvalidFulfillmentRequest, "EXECUTE intent missing payload")
		}
		resp := r.handleExecute(userID, input.Execute)
		resp.RequestID = req.RequestID
		return resp, nil

	case wire.IntentDisconnect:
		r.repo.RemoveUser(userID)
		return wire.DisconnectResponse{}, nil

	default:
		return nil, gwerr.Newf(gwerr.InvalidFulfillmentRequest, "unsupported intent %q", input.Intent)
	}
}

// handleSync builds the SYNC payload from every device reported for
// userID, restricted to devices with at least one endpoint and to
// projected devices whose inferred trait set is non-empty.
func (r *Router) handleSync(userID string) wire.SyncResponse {
	entries := r.repo.GetDevicesWithState(userID)

	devices := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Device.Endpoints) == 0 {
			continue
		}
		for _, gd := range capability.MapToGoogleDevices(entry.Device, entry.ClientID) {
			if len(gd.Traits) == 0 {
				continue
			}
			m, err := deviceToMap(gd)
			if err != nil {
				r.logger.Info("failed to serialize device for sync",
					zap.String("google_device_id", gd.ID), zap.Error(err))
				continue
			}
			devices = append(devices, m)
		}
	}

	resp := wire.SyncResponse{}
	resp.Payload.AgentUserID = userID
	resp.Payload.Devices = devices
	return resp
}

// handleQuery resolves only the requested GoogleDeviceIds, mapping each
// requested device's full state set via capability.MapToGoogleStates and
// retaining only the keys the caller asked for.
func (r *Router) handleQuery(userID string, payload *wire.QueryPayload) wire.QueryResponse {
	requested := make(map[string]bool, len(payload.Devices))
	for _, d := range payload.Devices {
		requested[d.ID] = true
	}

	resolved := make(map[string]googlemodel.State, len(requested))
	visited := make(map[string]bool, len(payload.Devices))
	for _, d := range payload.Devices {
		parsed, err := googlemodel.FromGoogleDeviceID(d.ID)
		if err != nil {
			continue
		}
		deviceKey := parsed.ClientID + "/" + parsed.DeviceKey
		if visited[deviceKey] {
			continue
		}
		visited[deviceKey] = true

		device, state, ok := r.repo.GetDeviceWithState(userID, parsed.ClientID, parsed.DeviceKey)
		if !ok {
			continue
		}
		for id, s := range capability.MapToGoogleStates(device, parsed.ClientID, state) {
			if requested[id] {
				resolved[id] = s
			}
		}
	}

	resp := wire.QueryResponse{}
	resp.Payload.Devices = make(map[string]map[string]interface{}, len(resolved))
	for id, s := range resolved {
		resp.Payload.Devices[id] = s
	}
	return resp
}

// handleExecute plans and dispatches every (devices, execution) group via
// capability.MapExecutionRequest, recording a per-GoogleDeviceId
// SUCCESS/OFFLINE status for each planned command. A device offline
// during EXECUTE is a per-command status, never a request failure.
func (r *Router) handleExecute(userID string, payload *wire.ExecutePayload) wire.ExecuteResponse {
	allDevices := r.repo.GetDevices(userID)

	resp := wire.ExecuteResponse{}
	for _, group := range payload.Commands {
		ids := make([]string, 0, len(group.Devices))
		for _, d := range group.Devices {
			ids = append(ids, d.ID)
		}

		commands := make([]traits.Command, 0, len(group.Execution))
		for _, raw := range group.Execution {
			cmd, err := raw.Decode()
			if err != nil {
				r.logger.Info("unsupported execute command", zap.String("command", raw.Command), zap.Error(err))
				continue
			}
			commands = append(commands, cmd)
		}

		plans := capability.MapExecutionRequest(capability.ExecuteRequest{
			UserID:          userID,
			GoogleDeviceIDs: ids,
			Commands:        commands,
		}, allDevices)

		for _, plan := range plans {
			ok := r.repo.ExecuteCommand(userID, plan.ClientID, plan.DeviceKey, plan.EndpointID, plan.Message)
			result := wire.ExecuteCommandResult{IDs: plan.GoogleDeviceIDs, Status: "SUCCESS"}
			if !ok {
				result.Status = "OFFLINE"
				result.ErrorCode = "deviceOffline"
			}
			resp.Payload.Commands = append(resp.Payload.Commands, result)
		}
	}
	return resp
}

func deviceToMap(d googlemodel.Device) (map[string]interface{}, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
