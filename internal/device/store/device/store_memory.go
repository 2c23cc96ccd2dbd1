package device

import (
	"context"
	"fmt"
	"sync"

	"turnstile/internal/device/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested device does not exist
// - Return ErrConflict when the device name is already taken
// - Return nil for successful operations
type InMemoryDeviceStore struct {
	mu     sync.RWMutex
	byID   map[id.DeviceID]models.Device
	byName map[string]id.DeviceID
}

// New constructs an empty in-memory device store.
func New() *InMemoryDeviceStore {
	return &InMemoryDeviceStore{
		byID:   make(map[id.DeviceID]models.Device),
		byName: make(map[string]id.DeviceID),
	}
}

func (s *InMemoryDeviceStore) Create(_ context.Context, device *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[device.Name]; exists {
		return fmt.Errorf("device name already taken: %w", sentinel.ErrConflict)
	}
	s.byID[device.ID] = *device
	s.byName[device.Name] = device.ID
	return nil
}

func (s *InMemoryDeviceStore) FindByID(_ context.Context, deviceID id.DeviceID) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.byID[deviceID]
	if !ok {
		return nil, fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	cp := device
	return &cp, nil
}

// FindByIDs batch-loads devices; unknown IDs are silently absent from the
// result.
func (s *InMemoryDeviceStore) FindByIDs(_ context.Context, ids []id.DeviceID) (map[id.DeviceID]*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.DeviceID]*models.Device, len(ids))
	for _, deviceID := range ids {
		if device, ok := s.byID[deviceID]; ok {
			cp := device
			out[deviceID] = &cp
		}
	}
	return out, nil
}

// SetCurrentJTI records the latest issued token for a device.
func (s *InMemoryDeviceStore) SetCurrentJTI(_ context.Context, deviceID id.DeviceID, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.byID[deviceID]
	if !ok {
		return fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	device.CurrentJTI = jti
	s.byID[deviceID] = device
	return nil
}

// Revoke marks the device revoked and returns its current token's jti so the
// caller can revoke that too. Revoking twice is a no-op.
func (s *InMemoryDeviceStore) Revoke(_ context.Context, deviceID id.DeviceID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.byID[deviceID]
	if !ok {
		return "", fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	jti := device.CurrentJTI
	device.Revoked = true
	device.CurrentJTI = ""
	s.byID[deviceID] = device
	return jti, nil
}
