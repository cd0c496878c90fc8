package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupRepository remembers which (payment, status) notifications already
// triggered side effects.
type DedupRepository interface {
	// MarkProcessed reports true the first time a pair is seen within the TTL.
	MarkProcessed(ctx context.Context, paymentID, status string) (bool, error)
	// Release forgets a pair so the next notification is processed again.
	Release(ctx context.Context, paymentID, status string) error
}

type redisDedupRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupRepo stores markers as keys with a TTL, shared by every
// replica that talks to the same Redis.
func NewRedisDedupRepo(client *redis.Client, ttl time.Duration) DedupRepository {
	return &redisDedupRepo{client: client, ttl: ttl}
}

func (r *redisDedupRepo) getKey(paymentID, status string) string {
	return fmt.Sprintf("webhook:payment:%s:%s", paymentID, status)
}

func (r *redisDedupRepo) MarkProcessed(ctx context.Context, paymentID, status string) (bool, error) {
	return r.client.SetNX(ctx, r.getKey(paymentID, status), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
}

func (r *redisDedupRepo) Release(ctx context.Context, paymentID, status string) error {
	return r.client.Del(ctx, r.getKey(paymentID, status)).Err()
}

// memorySweepInterval caps how often expired markers are scanned for.
const memorySweepInterval = time.Minute

type memoryDedupRepo struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryDedupRepo is the single-process fallback used when no Redis is
// configured.
func NewMemoryDedupRepo(ttl time.Duration) DedupRepository {
	return newMemoryDedupRepo(ttl, time.Now)
}

func newMemoryDedupRepo(ttl time.Duration, now func() time.Time) *memoryDedupRepo {
	return &memoryDedupRepo{seen: make(map[string]time.Time), ttl: ttl, now: now}
}

func memoryKey(paymentID, status string) string {
	return paymentID + ":" + status
}

func (r *memoryDedupRepo) MarkProcessed(_ context.Context, paymentID, status string) (bool, error) {
	key := memoryKey(paymentID, status)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if exp, ok := r.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	r.seen[key] = now.Add(r.ttl)

	if now.Sub(r.lastSweep) >= memorySweepInterval {
		r.sweep(now)
	}
	return true, nil
}

func (r *memoryDedupRepo) Release(_ context.Context, paymentID, status string) error {
	r.mu.Lock()
	delete(r.seen, memoryKey(paymentID, status))
	r.mu.Unlock()
	return nil
}

// sweep drops expired markers. Callers hold r.mu.
func (r *memoryDedupRepo) sweep(now time.Time) {
	for k, exp := range r.seen {
		if !now.Before(exp) {
			delete(r.seen, k)
		}
	}
	r.lastSweep = now
}
