package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glowdesk/glowdesk/pkg/cache"
)

// Claimer hands out exclusive, expiring claims on individual recipients.
// Every send path must claim before delivering, so two processes working
// the same campaign can never double-send one recipient.
type Claimer interface {
	// Claim returns true when the caller won the recipient. The claim
	// expires on its own; winners do not release it, so a crashed sender
	// only blocks the recipient for the TTL.
	Claim(ctx context.Context, recipientID int) (bool, error)
	// Release frees a claim early, used when a claimed recipient turns out
	// to need no send (e.g. consent was revoked after seeding).
	Release(ctx context.Context, recipientID int) error
}

// RedisClaimer implements Claimer with SET NX against Redis, which makes
// claims visible to every replica sharing the instance.
type RedisClaimer struct {
	cache *cache.Client
	ttl   time.Duration
}

var _ Claimer = (*RedisClaimer)(nil)

// NewRedisClaimer creates a Redis-backed claimer.
func NewRedisClaimer(c *cache.Client, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{cache: c, ttl: ttl}
}

func claimKey(recipientID int) string {
	return fmt.Sprintf("campaign:recipient:claim:%d", recipientID)
}

// Claim attempts to win the recipient.
func (r *RedisClaimer) Claim(ctx context.Context, recipientID int) (bool, error) {
	ok, err := r.cache.SetNX(ctx, claimKey(recipientID), 1, r.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to claim recipient %d: %w", recipientID, err)
	}
	return ok, nil
}

// Release frees the claim.
func (r *RedisClaimer) Release(ctx context.Context, recipientID int) error {
	return r.cache.Delete(ctx, claimKey(recipientID))
}

// MemoryClaimer is an in-process Claimer for tests and single-instance
// deployments without Redis. TTL expiry is checked lazily on Claim.
type MemoryClaimer struct {
	mu     sync.Mutex
	claims map[int]time.Time
	ttl    time.Duration
	now    func() time.Time
}

var _ Claimer = (*MemoryClaimer)(nil)

// NewMemoryClaimer creates an in-process claimer. A nil now function uses
// the wall clock.
func NewMemoryClaimer(ttl time.Duration, now func() time.Time) *MemoryClaimer {
	if now == nil {
		now = time.Now
	}
	return &MemoryClaimer{claims: make(map[int]time.Time), ttl: ttl, now: now}
}

// Claim attempts to win the recipient.
func (m *MemoryClaimer) Claim(ctx context.Context, recipientID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.claims[recipientID]; ok && m.now().Before(expiry) {
		return false, nil
	}
	m.claims[recipientID] = m.now().Add(m.ttl)
	return true, nil
}

// Release frees the claim.
func (m *MemoryClaimer) Release(ctx context.Context, recipientID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, recipientID)
	return nil
}
