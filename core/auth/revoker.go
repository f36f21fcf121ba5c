package auth

import (
	"context"
	"sync"
	"time"
)

// Revoker stores, per user, the instant before which all their tokens are rejected.
type Revoker interface {
	Revoke(ctx context.Context, userID int64, at time.Time) error
	// RevokedBefore returns the zero time when the user never logged out.
	RevokedBefore(ctx context.Context, userID int64) (time.Time, error)
}

// MemoryRevoker is a process-local Revoker, used when no redis is configured.
type MemoryRevoker struct {
	mu      sync.RWMutex
	revoked map[int64]time.Time
}

var _ Revoker = (*MemoryRevoker)(nil)

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[int64]time.Time)}
}

func (r *MemoryRevoker) Revoke(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at.After(r.revoked[userID]) {
		r.revoked[userID] = at
	}
	return nil
}

func (r *MemoryRevoker) RevokedBefore(_ context.Context, userID int64) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revoked[userID], nil
}
