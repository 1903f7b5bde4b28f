// gatekeeper/db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
)

var (
	RedisClient *redis.Client

	// identityAEAD seals replicated identities; nil until SetEncryptionKey.
	identityAEAD cipher.AEAD
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if viper.GetBool("redis.identityReplica") {
		if err := SetEncryptionKey(viper.GetString("redis.encryptionKey")); err != nil {
			return err
		}
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

// SetEncryptionKey installs the AES-256 key used for cached identities.
func SetEncryptionKey(key string) error {
	if len(key) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	identityAEAD = aead
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// seal prefixes the ciphertext with its random nonce.
func seal(plaintext []byte) ([]byte, error) {
	if identityAEAD == nil {
		return nil, errors.New("identity encryption key not set")
	}
	nonce := make([]byte, identityAEAD.NonceSize(), identityAEAD.NonceSize()+len(plaintext)+identityAEAD.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return identityAEAD.Seal(nonce, nonce, plaintext, nil), nil
}

func open(sealed []byte) ([]byte, error) {
	if identityAEAD == nil {
		return nil, errors.New("identity encryption key not set")
	}
	n := identityAEAD.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("sealed identity too short")
	}
	return identityAEAD.Open(nil, sealed[:n], sealed[n:], nil)
}

// identityKey never embeds the bearer token itself.
func identityKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity:" + hex.EncodeToString(sum[:])
}

func CacheIdentity(ctx context.Context, token string, identity *model.Identity, ttl time.Duration) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	sealed, err := seal(raw)
	if err != nil {
		return fmt.Errorf("failed to encrypt identity: %w", err)
	}

	if err := RedisClient.Set(ctx, identityKey(token), base64.StdEncoding.EncodeToString(sealed), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache identity: %w", err)
	}

	logger.Debug("Identity cached successfully", zap.String("subject", identity.Subject), zap.Duration("ttl", ttl))
	return nil
}

// GetCachedIdentity returns the identity stored under token and its remaining
// lifetime, or a nil identity when there is none.
func GetCachedIdentity(ctx context.Context, token string) (*model.Identity, time.Duration, error) {
	key := identityKey(token)

	pipe := RedisClient.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("failed to get identity from cache: %w", err)
	}

	encoded, err := getCmd.Result()
	switch {
	case errors.Is(err, redis.Nil):
		logger.Debug("Identity not found in cache", logger.Token(token))
		return nil, 0, nil
	case err != nil:
		return nil, 0, fmt.Errorf("failed to get identity from cache: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode identity: %w", err)
	}
	raw, err := open(sealed)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decrypt identity: %w", err)
	}

	var identity model.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal identity: %w", err)
	}

	ttl := ttlCmd.Val()
	logger.Debug("Identity retrieved from cache", zap.String("subject", identity.Subject), zap.Duration("ttl", ttl))
	return &identity, ttl, nil
}

func DeleteCachedIdentity(ctx context.Context, token string) error {
	if err := RedisClient.Del(ctx, identityKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete identity from cache: %w", err)
	}
	logger.Debug("Identity deleted from cache", logger.Token(token))
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
