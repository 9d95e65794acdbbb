// Package devicerepo is the in-memory store of record for devices
// reported by client gateways: the single shared mutable resource the
// rest of the system reads and writes, per spec.md §4.D.
package devicerepo

import (
	"strconv"
	"sync"

	"github.com/faltung/homed-google-bridge/internal/gwmodel"
)

// GatewayConnection is the subset of a client gateway connection the
// repository needs in order to forward an outbound command: an
// authorization check and the command send operation itself. internal/gateway
// implements this.
type GatewayConnection interface {
	Authorized() bool
	Command(action interface{}, deviceID string) error
}

// DeviceEntry pairs a device with the client gateway that reported it.
type DeviceEntry struct {
	Device   gwmodel.Device
	ClientID string
}

// DeviceWithState additionally carries the device's last observed state.
type DeviceWithState struct {
	Device   gwmodel.Device
	ClientID string
	State    gwmodel.State
}

// StateChange is published on the deviceStateChanged stream whenever a
// device's recorded state is replaced.
type StateChange struct {
	UserID    string
	ClientID  string
	Device    gwmodel.Device
	PrevState gwmodel.State
	NewState  gwmodel.State
}

type deviceRecord struct {
	device gwmodel.Device
	state  gwmodel.State
}

type userBucket struct {
	mu      sync.RWMutex
	clients map[string]map[string]*deviceRecord
	conns   map[string]GatewayConnection
}

// Repository is the sole owner of the canonical (userId, clientId,
// deviceKey) device set. All methods are safe for concurrent use.
type Repository struct {
	mu      sync.RWMutex
	buckets map[string]*userBucket

	devicesUpdated     chan string
	deviceStateChanged chan StateChange
}

// New returns an empty Repository. devicesUpdated and deviceStateChanged
// events are delivered on buffered channels consumers must drain with
// Updates/StateChanges; a slow consumer does not block writers beyond the
// buffer, but the buffer is not unbounded and exists only to decouple a
// single writer goroutine from event delivery.
func New() *Repository {
	return &Repository{
		buckets:            make(map[string]*userBucket),
		devicesUpdated:     make(chan string, 64),
		deviceStateChanged: make(chan StateChange, 256),
	}
}

// Updates returns the devicesUpdated(userId) event stream.
func (r *Repository) Updates() <-chan string { return r.devicesUpdated }

// StateChanges returns the deviceStateChanged event stream.
func (r *Repository) StateChanges() <-chan StateChange { return r.deviceStateChanged }

func (r *Repository) bucket(userID string) *userBucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[userID]
	if !ok {
		b = &userBucket{
			clients: make(map[string]map[string]*deviceRecord),
			conns:   make(map[string]GatewayConnection),
		}
		r.buckets[userID] = b
	}
	return b
}

// RegisterConnection associates a clientId with the live gateway
// connection executeCommand should forward to. Call with a nil conn, or
// UnregisterConnection, when the gateway disconnects.
func (r *Repository) RegisterConnection(userID, clientID string, conn GatewayConnection) {
	b := r.bucket(userID)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[clientID] = conn
}

// UnregisterConnection removes clientId's connection, leaving its
// last-known devices and state in place.
func (r *Repository) UnregisterConnection(userID, clientID string) {
	b := r.bucket(userID)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, clientID)
}

// UpsertDevice records or replaces a device's static description (name,
// endpoints, ...) reported by a client's status/expose messages, leaving
// its last-known state untouched. Fires devicesUpdated(userId).
func (r *Repository) UpsertDevice(userID, clientID string, device gwmodel.Device) {
	b := r.bucket(userID)
	b.mu.Lock()
	clientDevices, ok := b.clients[clientID]
	if !ok {
		clientDevices = make(map[string]*deviceRecord)
		b.clients[clientID] = clientDevices
	}
	rec, ok := clientDevices[device.Key]
	if !ok {
		rec = &deviceRecord{}
		clientDevices[device.Key] = rec
	}
	rec.device = device
	b.mu.Unlock()

	r.publishUpdated(userID)
}

// UpdateState replaces a device's last-known state and fires
// deviceStateChanged with the previous and new snapshots. No-op (and no
// event) if the device is unknown.
func (r *Repository) UpdateState(userID, clientID, deviceKey string, newState gwmodel.State) {
	b := r.bucket(userID)
	b.mu.Lock()
	clientDevices, ok := b.clients[clientID]
	if !ok {
		b.mu.Unlock()
		return
	}
	rec, ok := clientDevices[deviceKey]
	if !ok {
		b.mu.Unlock()
		return
	}
	prev := rec.state.Clone()
	rec.state = newState
	device := rec.device
	b.mu.Unlock()

	r.deviceStateChanged <- StateChange{
		UserID:    userID,
		ClientID:  clientID,
		Device:    device,
		PrevState: prev,
		NewState:  newState.Clone(),
	}
}

// SetDeviceOnline updates a device's availability and merges it into the
// device-level state, firing deviceStateChanged, per SPEC_FULL.md's
// supplemented device/* online-status handling.
func (r *Repository) SetDeviceOnline(userID, clientID, deviceKey string, online bool) {
	b := r.bucket(userID)
	b.mu.Lock()
	clientDevices, ok := b.clients[clientID]
	if !ok {
		b.mu.Unlock()
		return
	}
	rec, ok := clientDevices[deviceKey]
	if !ok {
		b.mu.Unlock()
		return
	}
	prev := rec.state.Clone()
	next := rec.state.Clone()
	if next == nil {
		next = gwmodel.State{}
	}
	next["available"] = online
	rec.state = next
	rec.device.Available = &online
	device := rec.device
	b.mu.Unlock()

	r.deviceStateChanged <- StateChange{
		UserID:    userID,
		ClientID:  clientID,
		Device:    device,
		PrevState: prev,
		NewState:  next.Clone(),
	}
}

// UpsertDeviceInfo merges gateway-reported status/* metadata (name,
// description, manufacturer, model, version, firmware) into a device's
// static fields without disturbing its endpoints or state. Creates the
// device record if it doesn't exist yet, so status/* may arrive before
// expose/* does.
func (r *Repository) UpsertDeviceInfo(userID, clientID, deviceKey string, info DeviceInfoUpdate) {
	b := r.bucket(userID)
	b.mu.Lock()
	clientDevices, ok := b.clients[clientID]
	if !ok {
		clientDevices = make(map[string]*deviceRecord)
		b.clients[clientID] = clientDevices
	}
	rec, ok := clientDevices[deviceKey]
	if !ok {
		rec = &deviceRecord{device: gwmodel.Device{Key: deviceKey}}
		clientDevices[deviceKey] = rec
	}
	if info.Name != "" {
		rec.device.Name = info.Name
	}
	if info.Description != "" {
		rec.device.Description = info.Description
	}
	if info.Manufacturer != "" {
		rec.device.Manufacturer = info.Manufacturer
	}
	if info.Model != "" {
		rec.device.Model = info.Model
	}
	if info.Version != "" {
		rec.device.Version = info.Version
	}
	if info.Firmware != "" {
		rec.device.Firmware = info.Firmware
	}
	b.mu.Unlock()

	r.publishUpdated(userID)
}

// DeviceInfoUpdate is the set of status/*-reported fields UpsertDeviceInfo
// merges into a device's static description.
type DeviceInfoUpdate struct {
	Name         string
	Description  string
	Manufacturer string
	Model        string
	Version      string
	Firmware     string
}

func (r *Repository) publishUpdated(userID string) {
	select {
	case r.devicesUpdated <- userID:
	default:
	}
}

// GetDevices returns every device known for userID across all its client
// gateways.
func (r *Repository) GetDevices(userID string) []DeviceEntry {
	b := r.bucket(userID)
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []DeviceEntry
	for clientID, devices := range b.clients {
		for _, rec := range devices {
			out = append(out, DeviceEntry{Device: rec.device, ClientID: clientID})
		}
	}
	return out
}

// GetDevicesWithState returns every device known for userID together with
// its last observed state.
func (r *Repository) GetDevicesWithState(userID string) []DeviceWithState {
	b := r.bucket(userID)
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []DeviceWithState
	for clientID, devices := range b.clients {
		for _, rec := range devices {
			out = append(out, DeviceWithState{
				Device:   rec.device,
				ClientID: clientID,
				State:    rec.state.Clone(),
			})
		}
	}
	return out
}

// GetDeviceState returns a single device's last observed state by
// clientId and deviceKey, and whether it is known.
func (r *Repository) GetDeviceState(userID, clientID, deviceKey string) (gwmodel.State, bool) {
	b := r.bucket(userID)
	b.mu.RLock()
	defer b.mu.RUnlock()

	devices, ok := b.clients[clientID]
	if !ok {
		return nil, false
	}
	rec, ok := devices[deviceKey]
	if !ok {
		return nil, false
	}
	return rec.state.Clone(), true
}

// GetDeviceWithState returns a single device's static description
// together with its last observed state, for QUERY intent resolution.
func (r *Repository) GetDeviceWithState(userID, clientID, deviceKey string) (gwmodel.Device, gwmodel.State, bool) {
	b := r.bucket(userID)
	b.mu.RLock()
	defer b.mu.RUnlock()

	devices, ok := b.clients[clientID]
	if !ok {
		return gwmodel.Device{}, nil, false
	}
	rec, ok := devices[deviceKey]
	if !ok {
		return gwmodel.Device{}, nil, false
	}
	return rec.device, rec.state.Clone(), true
}

// ExecuteCommand forwards message to the clientId gateway for deviceKey
// (optionally scoped to endpointID), returning true if the gateway is
// currently authorized and reachable, false if offline.
func (r *Repository) ExecuteCommand(userID, clientID, deviceKey string, endpointID *int, message interface{}) bool {
	b := r.bucket(userID)
	b.mu.RLock()
	conn, ok := b.conns[clientID]
	b.mu.RUnlock()
	if !ok || conn == nil || !conn.Authorized() {
		return false
	}

	deviceID := deviceKey
	if endpointID != nil {
		deviceID = deviceKeyWithEndpoint(deviceKey, *endpointID)
	}
	return conn.Command(message, deviceID) == nil
}

func deviceKeyWithEndpoint(deviceKey string, endpointID int) string {
	return deviceKey + "#" + strconv.Itoa(endpointID)
}

// RemoveClientDevices deletes every device and connection known for
// clientID under userID, for use by the DISCONNECT intent.
func (r *Repository) RemoveClientDevices(userID, clientID string) {
	b := r.bucket(userID)
	b.mu.Lock()
	delete(b.clients, clientID)
	delete(b.conns, clientID)
	b.mu.Unlock()

	r.publishUpdated(userID)
}

// RemoveUser deletes every client and device known for userID, for use by
// the DISCONNECT intent's user-level teardown.
func (r *Repository) RemoveUser(userID string) {
	r.mu.Lock()
	delete(r.buckets, userID)
	r.mu.Unlock()
}
