package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the pairing-store connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

// pairing key: chatter:pairing:<nonce>
// TTL bounds the pairing token's validity; GETDEL makes it single-use.
func pairingKey(nonce string) string { return "chatter:pairing:" + nonce }

// PairingStore tracks single-use QR pairing nonces with an expiry. A nonce
// is issued when the gateway mints a pairing token and burned when the
// token is exchanged for a session.
type PairingStore struct {
	rdb *redis.Client
}

func NewPairingStore(rdb *redis.Client) *PairingStore {
	return &PairingStore{rdb: rdb}
}

func (p *PairingStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	if nonce == "" {
		return errors.New("empty pairing nonce")
	}
	return p.rdb.Set(ctx, pairingKey(nonce), "1", ttl).Err()
}

// Consume burns the nonce. Returns false when it never existed, expired,
// or was already used.
func (p *PairingStore) Consume(ctx context.Context, nonce string) (bool, error) {
	if nonce == "" {
		return false, nil
	}
	_, err := p.rdb.GetDel(ctx, pairingKey(nonce)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
