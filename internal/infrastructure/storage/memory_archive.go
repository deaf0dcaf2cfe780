package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/storefront/backend/internal/domain/payment"
)

var _ payment.PayloadArchive = (*MemoryPayloadArchive)(nil)

// MemoryPayloadArchive keeps payloads in memory. Used for local runs without object storage.
type MemoryPayloadArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryPayloadArchive creates an empty archive
func NewMemoryPayloadArchive() *MemoryPayloadArchive {
	return &MemoryPayloadArchive{objects: make(map[string][]byte)}
}

// Archive stores a copy of body under key
func (a *MemoryPayloadArchive) Archive(_ context.Context, key string, body []byte) error {
	if key == "" {
		return errors.New("archive key is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = append([]byte(nil), body...)
	return nil
}

// Get returns the payload stored under key
func (a *MemoryPayloadArchive) Get(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	body, ok := a.objects[key]
	return body, ok
}

// Keys returns every stored key
func (a *MemoryPayloadArchive) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	return keys
}
