// Package domain contains the core business entities and value objects.
package domain

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoCredentials is returned when the caller sent no key and no fallback key is usable.
var ErrNoCredentials = errors.New("no upstream credential available")

// CredentialPool hands out process-wide fallback credentials in round-robin order.
// It is consulted only when the caller did not supply its own key.
//
// A credential the provider rejects can be suspended; it returns to rotation
// once the cooldown has passed.
type CredentialPool struct {
	// keys holds the credentials currently in rotation.
	keys []string

	// suspended maps a credential to the time it was taken out of rotation.
	suspended map[string]time.Time

	// index is the atomic round-robin counter.
	index int64

	mu          sync.RWMutex
	suspendedMu sync.RWMutex

	// cooldown is how long a suspended credential stays out. 0 disables auto-revival.
	cooldown time.Duration

	// known is the initial credential set; only these can be suspended or revived.
	known map[string]struct{}
}

// NewCredentialPool creates a pool from the given credentials.
// Empty strings and duplicates are skipped.
func NewCredentialPool(keys []string, cooldown time.Duration) *CredentialPool {
	p := &CredentialPool{
		keys:      make([]string, 0, len(keys)),
		suspended: make(map[string]time.Time),
		cooldown:  cooldown,
		known:     make(map[string]struct{}),
	}

	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, exists := p.known[key]; exists {
			continue
		}
		p.known[key] = struct{}{}
		p.keys = append(p.keys, key)
	}

	return p
}

// Resolve picks the credential for one upstream call.
// The caller's key wins; otherwise the next pooled credential is used and
// fromPool reports true.
func (p *CredentialPool) Resolve(callerKey string) (key string, fromPool bool, err error) {
	if callerKey != "" {
		return callerKey, false, nil
	}
	key, err = p.Next()
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

// Next returns the next credential in rotation. Safe for concurrent use.
func (p *CredentialPool) Next() (string, error) {
	p.reviveExpired()

	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.keys)
	if n == 0 {
		return "", ErrNoCredentials
	}

	idx := atomic.AddInt64(&p.index, 1) - 1
	return p.keys[int(idx%int64(n))], nil
}

// Suspend takes a credential out of rotation. Unknown credentials are ignored,
// so a caller-supplied key never ends up tracked here.
func (p *CredentialPool) Suspend(key string) {
	if _, ok := p.known[key]; !ok {
		return
	}

	p.suspendedMu.Lock()
	p.suspended[key] = time.Now()
	p.suspendedMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	p.keys = kept
}

// Revive puts a suspended credential back into rotation.
func (p *CredentialPool) Revive(key string) {
	if _, ok := p.known[key]; !ok {
		return
	}

	p.suspendedMu.Lock()
	_, was := p.suspended[key]
	delete(p.suspended, key)
	p.suspendedMu.Unlock()

	if !was {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, k := range p.keys {
		if k == key {
			return
		}
	}
	p.keys = append(p.keys, key)
}

func (p *CredentialPool) reviveExpired() {
	if p.cooldown == 0 {
		return
	}

	now := time.Now()
	var due []string

	p.suspendedMu.RLock()
	for key, at := range p.suspended {
		if now.Sub(at) >= p.cooldown {
			due = append(due, key)
		}
	}
	p.suspendedMu.RUnlock()

	for _, key := range due {
		p.Revive(key)
	}
}

// ActiveCount returns the number of credentials in rotation.
func (p *CredentialPool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// SuspendedCount returns the number of suspended credentials.
func (p *CredentialPool) SuspendedCount() int {
	p.suspendedMu.RLock()
	defer p.suspendedMu.RUnlock()
	return len(p.suspended)
}

// TotalCount returns the number of managed credentials.
func (p *CredentialPool) TotalCount() int {
	return len(p.known)
}

// IsSuspended reports whether the credential is out of rotation.
func (p *CredentialPool) IsSuspended(key string) bool {
	p.suspendedMu.RLock()
	defer p.suspendedMu.RUnlock()
	_, ok := p.suspended[key]
	return ok
}
