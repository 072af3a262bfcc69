package otpstore

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/openmca/auth-api/internal/domain"
)

type memoryItem struct {
	otp     domain.OTP
	expires time.Time
}

// Memory is an in-process OTP store. It is only safe for single-process
// deployments; use the Redis backend when more than one instance serves
// traffic.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem)}
}

func (m *Memory) Set(ctx context.Context, phone string, otp domain.OTP, ttl time.Duration) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[phone] = memoryItem{otp: otp, expires: time.Now().Add(ttl)}
	return nil
}

func (m *Memory) Get(ctx context.Context, phone string) (*domain.OTP, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[phone]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(it.expires) {
		delete(m.items, phone)
		return nil, false, nil
	}
	otp := it.otp
	return &otp, true, nil
}

// CompareAndDelete matches and consumes under a single mutex hold, so only
// one of any number of concurrent redeem attempts can win.
func (m *Memory) CompareAndDelete(ctx context.Context, phone, code string) (*domain.OTP, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[phone]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(it.expires) {
		delete(m.items, phone)
		return nil, false, nil
	}
	if subtle.ConstantTimeCompare([]byte(it.otp.Code), []byte(code)) != 1 {
		return nil, false, nil
	}
	delete(m.items, phone)
	otp := it.otp
	return &otp, true, nil
}

func (m *Memory) Delete(ctx context.Context, phone string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, phone)
	return nil
}
