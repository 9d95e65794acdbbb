// Package homegraph wraps the Google HomeGraph API's RequestSync and
// ReportState calls, adapted from the teacher library's Service methods
// of the same name to this bridge's clientId/deviceKey/endpointId device
// model.
package homegraph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	homegraphapi "google.golang.org/api/homegraph/v1"

	"github.com/faltung/homed-google-bridge/internal/googlemodel"
)

// ErrSyncFailed is returned when a RequestSync call completes without a
// transport error but HomeGraph reports a non-200 status.
var ErrSyncFailed = errors.New("homegraph: request sync failed")

// ErrReportStateFailed is the ReportState equivalent of ErrSyncFailed.
var ErrReportStateFailed = errors.New("homegraph: report state failed")

// Client issues RequestSync and ReportState calls against one HomeGraph
// project. Failures here are the caller's to treat as recoverable — per
// spec.md §4.G, a HomeGraph push failure never fails the triggering
// EXECUTE/QUERY request, it is only logged.
type Client struct {
	logger  *zap.Logger
	devices *homegraphapi.DevicesService
}

// New builds a Client from an authenticated *homegraphapi.Service, as
// produced by google.golang.org/api/homegraph/v1.NewService with the
// bridge's service-account credentials.
func New(logger *zap.Logger, service *homegraphapi.Service) *Client {
	return &Client{
		logger:  logger,
		devices: homegraphapi.NewDevicesService(service),
	}
}

// RequestSync asks HomeGraph to re-pull the agent user's device list via
// a fresh SYNC intent, per spec.md §4.G's debounced-trigger requirement.
// Callers debounce calls to this method (internal/debounce); it does not
// debounce internally.
func (c *Client) RequestSync(ctx context.Context, agentUserID string) error {
	call := c.devices.RequestSync(&homegraphapi.RequestSyncDevicesRequest{
		AgentUserId: agentUserID,
	})
	call.Context(ctx)
	resp, err := call.Do()
	if err != nil {
		c.logger.Info("homegraph request sync failed", zap.String("agent_user_id", agentUserID), zap.Error(err))
		return err
	}
	if resp.ServerResponse.HTTPStatusCode != http.StatusOK {
		c.logger.Info("homegraph request sync rejected",
			zap.String("agent_user_id", agentUserID),
			zap.Int("status_code", resp.ServerResponse.HTTPStatusCode))
		return ErrSyncFailed
	}
	return nil
}

// ReportState pushes a complete state snapshot for the given
// GoogleDeviceId -> State map to HomeGraph, per spec.md §4.G's proactive
// push requirement.
func (c *Client) ReportState(ctx context.Context, agentUserID string, states map[string]googlemodel.State) error {
	jsonState, err := json.Marshal(states)
	if err != nil {
		return err
	}

	call := c.devices.ReportStateAndNotification(&homegraphapi.ReportStateAndNotificationRequest{
		AgentUserId: agentUserID,
		RequestId:   uuid.New().String(),
		Payload: &homegraphapi.StateAndNotificationPayload{
			Devices: &homegraphapi.ReportStateAndNotificationDevice{
				States: jsonState,
			},
		},
	})
	call.Context(ctx)
	resp, err := call.Do()
	if err != nil {
		c.logger.Info("homegraph report state failed", zap.String("agent_user_id", agentUserID), zap.Error(err))
		return err
	}
	if resp.ServerResponse.HTTPStatusCode != http.StatusOK {
		c.logger.Info("homegraph report state rejected",
			zap.String("agent_user_id", agentUserID),
			zap.Int("status_code", resp.ServerResponse.HTTPStatusCode))
		return ErrReportStateFailed
	}
	return nil
}
