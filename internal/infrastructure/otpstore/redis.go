package otpstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openmca/auth-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// Redis is an OTP store backed by a shared Redis instance. Redis expires
// the keys itself, so a crashed instance leaves nothing behind.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Set(ctx context.Context, phone string, otp domain.OTP, ttl time.Duration) error {
	b, err := json.Marshal(otp)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, keyPrefix+phone, b, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, phone string) (*domain.OTP, bool, error) {
	b, err := r.rdb.Get(ctx, keyPrefix+phone).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var otp domain.OTP
	if err := json.Unmarshal(b, &otp); err != nil {
		return nil, false, err
	}
	return &otp, true, nil
}

// compareDelete matches the stored code and deletes the key in one script
// invocation, which Redis executes atomically. Returns the raw entry on a
// match, an empty string on a mismatch, and nil when the key is absent.
var compareDelete = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return false
end
local otp = cjson.decode(v)
if otp.code == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return v
end
return ''
`)

func (r *Redis) CompareAndDelete(ctx context.Context, phone, code string) (*domain.OTP, bool, error) {
	res, err := compareDelete.Run(ctx, r.rdb, []string{keyPrefix + phone}, code).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	raw, _ := res.(string)
	if raw == "" {
		return nil, false, nil
	}
	var otp domain.OTP
	if err := json.Unmarshal([]byte(raw), &otp); err != nil {
		return nil, false, err
	}
	return &otp, true, nil
}

func (r *Redis) Delete(ctx context.Context, phone string) error {
	return r.rdb.Del(ctx, keyPrefix+phone).Err()
}
