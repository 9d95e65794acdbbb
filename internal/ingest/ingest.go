// Package ingest owns the per-connection goroutine that drives a
// gateway.Connection's typed event channels into internal/devicerepo
// mutations, translating the wire-level status/expose/device/fd payloads
// into the gateway-facing device model, per spec.md §4.D and §6.
package ingest

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/faltung/homed-google-bridge/internal/devicerepo"
	"github.com/faltung/homed-google-bridge/internal/gateway"
	"github.com/faltung/homed-google-bridge/internal/gwmodel"
)

// Authenticator resolves a gateway's advertised (uniqueId, token) pair to
// the owning userId, standing in for the persistent user/client token
// storage spec.md §1 calls out as an external UserRepository port.
type Authenticator interface {
	Authenticate(ctx context.Context, uniqueID, token string) (userID string, ok bool)
}

// Session owns one gateway connection's lifetime: it authenticates the
// connection against Authenticator, registers/unregisters it with the
// device repository, and folds every inbound event into the repository.
type Session struct {
	repo   *devicerepo.Repository
	auth   Authenticator
	conn   *gateway.Connection
	logger *zap.Logger

	userID   string
	clientID string
}

// NewSession builds a Session for a freshly-constructed connection. Run
// must be called to drive it.
func NewSession(repo *devicerepo.Repository, auth Authenticator, conn *gateway.Connection, logger *zap.Logger) *Session {
	return &Session{repo: repo, auth: auth, conn: conn, logger: logger}
}

// Run drains conn's event channels until the connection terminates or ctx
// is cancelled. It calls Authorize on the connection; Feed is left to
// whatever goroutine reads the transport.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case tok := <-s.conn.Token:
			s.handleToken(ctx, tok)

		case ev := <-s.conn.Status:
			s.handleStatus(ev)

		case ev := <-s.conn.Expose:
			s.handleExpose(ev)

		case ev := <-s.conn.Device:
			s.handleDevice(ev)

		case ev := <-s.conn.Reading:
			s.handleReading(ev)

		case ev := <-s.conn.Error:
			s.logger.Info("recoverable gateway protocol error", zap.Error(ev.Err))

		case ev := <-s.conn.Terminated:
			if s.clientID != "" {
				s.repo.UnregisterConnection(s.userID, s.clientID)
			}
			s.logger.Info("gateway connection terminated", zap.String("reason", ev.Reason))
			return
		}
	}
}

func (s *Session) handleToken(ctx context.Context, tok gateway.TokenEvent) {
	userID, ok := s.auth.Authenticate(ctx, tok.UniqueID, tok.Token)
	if !ok {
		s.logger.Info("gateway authentication rejected", zap.String("unique_id", tok.UniqueID))
		return
	}
	s.userID = userID
	s.clientID = tok.UniqueID
	s.repo.RegisterConnection(s.userID, s.clientID, s.conn)
	s.conn.Authorize()
}

// handleStatus merges status/<clientId> device metadata into the
// repository, creating a device record if this is the first time
// deviceKey has been seen (expose/* may not have arrived yet).
func (s *Session) handleStatus(ev gateway.StatusEvent) {
	if s.clientID == "" {
		return
	}
	for _, info := range ev.Payload.Devices {
		if info.IEEEAddress == "" {
			continue
		}
		s.repo.UpsertDeviceInfo(s.userID, s.clientID, info.IEEEAddress, devicerepo.DeviceInfoUpdate{
			Name:         info.Name,
			Description:  info.Description,
			Manufacturer: info.ManufacturerName,
			Model:        info.ModelName,
			Version:      info.Version,
			Firmware:     info.Firmware,
		})
	}
}

// handleExpose replaces deviceKey's endpoint set, preserving whatever
// static metadata status/* has already contributed.
func (s *Session) handleExpose(ev gateway.ExposeEvent) {
	if s.clientID == "" {
		return
	}
	device, _, _ := s.repo.GetDeviceWithState(s.userID, s.clientID, ev.DeviceKey)
	device.Key = ev.DeviceKey

	endpoints := make([]gwmodel.Endpoint, 0, len(ev.Payload))
	for idStr, entry := range ev.Payload {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			id = 0
		}
		endpoints = append(endpoints, gwmodel.Endpoint{
			ID:      id,
			Exposes: entry.Items,
			Options: entry.Options.ToOptionsMap(),
		})
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].ID < endpoints[j].ID })
	device.Endpoints = endpoints

	s.repo.UpsertDevice(s.userID, s.clientID, device)
}

// handleDevice records deviceKey's reported online/offline status.
func (s *Session) handleDevice(ev gateway.DeviceEvent) {
	if s.clientID == "" {
		return
	}
	online := strings.EqualFold(ev.Payload.Status, "online")
	s.repo.SetDeviceOnline(s.userID, s.clientID, ev.DeviceKey, online)
}

// handleReading merges a fd/<device> reading into deviceKey's last known
// state, rather than replacing it outright, since a single reading
// message typically reports only a subset of a device's exposes.
func (s *Session) handleReading(ev gateway.ReadingEvent) {
	if s.clientID == "" {
		return
	}
	prev, _ := s.repo.GetDeviceState(s.userID, s.clientID, ev.DeviceKey)
	next := prev.Clone()
	if next == nil {
		next = gwmodel.State{}
	}
	for k, v := range ev.Payload {
		next[k] = v
	}
	s.repo.UpdateState(s.userID, s.clientID, ev.DeviceKey, next)
}
