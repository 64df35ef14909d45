package store

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	coreerrors "instrumentor/internal/core/errors"
	corelog "instrumentor/internal/core/log"
)

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr         string        `yaml:"addr" json:"addr"` // host:port, e.g. "localhost:6379"
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// MaxAttempts bounds the adapter-level retry loop around every network
	// call. Zero means the default of 3.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// RetryBackoff is the initial backoff between attempts, doubled each
	// retry with jitter. Zero means the default of 100ms.
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

const (
	defaultPoolSize     = 10
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 100 * time.Millisecond
)

// RedisStore implements Store on a Redis hash per namespace.
type RedisStore struct {
	client      *redis.Client
	log         corelog.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg *RedisConfig, logger corelog.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, coreerrors.New(coreerrors.CodeConfigError, "redis config is required")
	}
	if logger == nil {
		logger = corelog.Default()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, coreerrors.Wrapf(err, coreerrors.CodeTransportError, "failed to connect to redis at %s", cfg.Addr)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	logger.Infof("RedisStore: connected to redis at %s, db %d", cfg.Addr, cfg.DB)
	return &RedisStore{
		client:      client,
		log:         logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}, nil
}

// NewRedisStoreFromClient wraps an existing client, e.g. one pointed at an
// embedded test server.
func NewRedisStoreFromClient(client *redis.Client, logger corelog.Logger) *RedisStore {
	if logger == nil {
		logger = corelog.Default()
	}
	return &RedisStore{
		client:      client,
		log:         logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultRetryBackoff,
	}
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// withRetry runs fn with bounded retry and exponential backoff with jitter.
func (s *RedisStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	backoff := s.backoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}
		s.log.WithError(err).Warnf("RedisStore.%s: attempt %d/%d failed, retrying in %v", op, attempt, s.maxAttempts, backoff)
		sleep := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return coreerrors.Wrapf(ctx.Err(), coreerrors.CodeTransportError, "%s cancelled", op)
		}
		backoff *= 2
	}
	return coreerrors.Wrapf(err, coreerrors.CodeTransportError, "%s failed after %d attempts", op, s.maxAttempts)
}

// GetAll returns the full contents of the namespace hash.
func (s *RedisStore) GetAll(ctx context.Context, namespace string) (map[string]string, error) {
	var result map[string]string
	err := s.withRetry(ctx, "GetAll", func() error {
		var err error
		result, err = s.client.HGetAll(ctx, namespace).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IncrBy atomically adds delta to a hash field.
func (s *RedisStore) IncrBy(ctx context.Context, namespace, key string, delta float64) (float64, error) {
	var result float64
	err := s.withRetry(ctx, "IncrBy", func() error {
		var err error
		result, err = s.client.HIncrByFloat(ctx, namespace, key, delta).Result()
		return err
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Set overwrites a hash field.
func (s *RedisStore) Set(ctx context.Context, namespace, key, value string) error {
	return s.withRetry(ctx, "Set", func() error {
		return s.client.HSet(ctx, namespace, key, value).Err()
	})
}

// Pipeline submits all operations in one round trip.
func (s *RedisStore) Pipeline(ctx context.Context, namespace string, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	return s.withRetry(ctx, "Pipeline", func() error {
		_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range ops {
				switch op.Kind {
				case OpSet:
					pipe.HSet(ctx, namespace, op.Key, op.Value)
				default:
					pipe.HIncrByFloat(ctx, namespace, op.Key, op.Delta)
				}
			}
			return nil
		})
		return err
	})
}
