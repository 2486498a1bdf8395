// Package otp issues and checks one-time login codes for customers. Codes
// live in Redis, hashed, under a per-tenant per-phone key.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salonbook/salonbook/libs/apperr"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultCooldown    = 60 * time.Second
	DefaultMaxAttempts = 5
	codeDigits         = 6
)

var (
	ErrCooldown        = apperr.New(apperr.KindConflict, "otp_cooldown", "a code was sent recently, try again shortly")
	ErrInvalidCode     = apperr.Unauthorized("invalid or expired code")
	ErrTooManyAttempts = apperr.New(apperr.KindForbidden, "otp_locked", "too many attempts, request a new code")
)

type Config struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

type Store struct {
	rdb      *redis.Client
	cfg      Config
	generate func() (string, error)
}

func NewStore(rdb *redis.Client, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Store{rdb: rdb, cfg: cfg, generate: randomCode}
}

// Issue creates a fresh code for phone and returns it for delivery. Only one
// code per cooldown window is issued; call Release when delivery fails so the
// caller can retry at once.
func (s *Store) Issue(ctx context.Context, tenantID, phone string) (string, error) {
	ok, err := s.rdb.SetNX(ctx, cooldownKey(tenantID, phone), 1, s.cfg.Cooldown).Result()
	if err != nil {
		return "", apperr.Unexpected(fmt.Errorf("otp cooldown: %w", err))
	}
	if !ok {
		return "", ErrCooldown
	}

	code, err := s.generate()
	if err != nil {
		return "", apperr.Unexpected(err)
	}
	key := codeKey(tenantID, phone)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "hash", hashCode(tenantID, phone, code), "attempts", 0)
		p.Expire(ctx, key, s.cfg.TTL)
		return nil
	})
	if err != nil {
		_ = s.rdb.Del(ctx, cooldownKey(tenantID, phone)).Err()
		return "", apperr.Unexpected(fmt.Errorf("otp store: %w", err))
	}
	return code, nil
}

// Release drops an issued code and its cooldown. Used when the code never
// reached the customer.
func (s *Store) Release(ctx context.Context, tenantID, phone string) error {
	if err := s.rdb.Del(ctx, codeKey(tenantID, phone), cooldownKey(tenantID, phone)).Err(); err != nil {
		return apperr.Unexpected(fmt.Errorf("otp release: %w", err))
	}
	return nil
}

// incrAttempts counts a failed try without recreating a code that expired or
// was consumed since it was read. Returns -1 when the code is gone.
var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// Verify consumes the code on success. Each failed try counts against
// MaxAttempts; once spent, the code is deleted.
func (s *Store) Verify(ctx context.Context, tenantID, phone, code string) error {
	key := codeKey(tenantID, phone)
	vals, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return apperr.Unexpected(fmt.Errorf("otp load: %w", err))
	}
	stored, ok := vals["hash"]
	if !ok {
		return ErrInvalidCode
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashCode(tenantID, phone, code))) == 1 {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return apperr.Unexpected(fmt.Errorf("otp consume: %w", err))
		}
		return nil
	}

	attempts, err := incrAttempts.Run(ctx, s.rdb, []string{key}).Int64()
	if err != nil {
		return apperr.Unexpected(fmt.Errorf("otp attempts: %w", err))
	}
	if attempts < 0 {
		return ErrInvalidCode
	}
	if attempts >= int64(s.cfg.MaxAttempts) {
		_ = s.rdb.Del(ctx, key).Err()
		return ErrTooManyAttempts
	}
	return ErrInvalidCode
}

func codeKey(tenantID, phone string) string     { return "otp:code:" + tenantID + ":" + phone }
func cooldownKey(tenantID, phone string) string { return "otp:cooldown:" + tenantID + ":" + phone }

func hashCode(tenantID, phone, code string) string {
	sum := sha256.Sum256([]byte(tenantID + "|" + phone + "|" + code))
	return hex.EncodeToString(sum[:])
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
