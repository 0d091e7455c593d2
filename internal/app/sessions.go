package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/attendance"
	"github.com/shrimpsizemoose/klassbok/internal/metrics"
)

// SessionCache holds open attendance sessions between requests. Load returns
// attendance.ErrNoSession when nothing is open for the date.
type SessionCache interface {
	Load(ctx context.Context, classID, date string) (*attendance.Session, error)
	Save(ctx context.Context, sess *attendance.Session) error
	// Update loads the session, applies fn and stores the result as one step
	// per key. Nothing is stored when fn fails.
	Update(ctx context.Context, classID, date string, fn func(*attendance.Session) error) (*attendance.Session, error)
	Delete(ctx context.Context, classID, date string) error
	Close() error
}

func NewSessionCache(config *Config) (SessionCache, error) {
	switch config.Sessions.Backend {
	case SessionBackendMemory:
		return NewMemorySessionCache(), nil
	case SessionBackendRedis:
		opt, err := redis.ParseURL(config.Sessions.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisSessionCache(client, config.Sessions.KeyTemplate, config.SessionTTL()), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", config.Sessions.Backend)
	}
}

// MemorySessionCache keeps encoded sessions so callers never share state with the cache.
type MemorySessionCache struct {
	mutex    sync.Mutex
	sessions map[string][]byte
	// one lock per session key, held across Update
	locks map[string]*sync.Mutex
}

func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{
		sessions: make(map[string][]byte),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (c *MemorySessionCache) keyLock(key string) *sync.Mutex {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

func memoryKey(classID, date string) string {
	return classID + "/" + date
}

func (c *MemorySessionCache) Load(ctx context.Context, classID, date string) (*attendance.Session, error) {
	c.mutex.Lock()
	data, ok := c.sessions[memoryKey(classID, date)]
	c.mutex.Unlock()
	if !ok {
		return nil, attendance.ErrNoSession
	}
	return decodeSession(data)
}

func (c *MemorySessionCache) Save(ctx context.Context, sess *attendance.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessions[sess.Key()] = data
	metrics.OpenSessions.Set(float64(len(c.sessions)))
	return nil
}

func (c *MemorySessionCache) Update(ctx context.Context, classID, date string, fn func(*attendance.Session) error) (*attendance.Session, error) {
	lock := c.keyLock(memoryKey(classID, date))
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.Load(ctx, classID, date)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return sess, err
	}
	if err := c.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *MemorySessionCache) Delete(ctx context.Context, classID, date string) error {
	// wait for a running Update so it cannot store the session again afterwards
	lock := c.keyLock(memoryKey(classID, date))
	lock.Lock()
	defer lock.Unlock()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.sessions, memoryKey(classID, date))
	metrics.OpenSessions.Set(float64(len(c.sessions)))
	return nil
}

func (c *MemorySessionCache) Close() error {
	return nil
}

// maxUpdateAttempts bounds the optimistic retries of RedisSessionCache.Update.
const maxUpdateAttempts = 32

// RedisSessionCache shares open sessions between server instances. It does
// not feed metrics.OpenSessions: keys expire on their own, so a process-local
// count would drift.
type RedisSessionCache struct {
	redis       *redis.Client
	keyTemplate string
	ttl         time.Duration
}

func NewRedisSessionCache(client *redis.Client, keyTemplate string, ttl time.Duration) *RedisSessionCache {
	if keyTemplate == "" {
		keyTemplate = defaultSessionKeyTemplate
	}
	return &RedisSessionCache{redis: client, keyTemplate: keyTemplate, ttl: ttl}
}

func (c *RedisSessionCache) key(classID, date string) string {
	return strings.NewReplacer(
		"{class}", classID,
		"{date}", date,
	).Replace(c.keyTemplate)
}

func (c *RedisSessionCache) Load(ctx context.Context, classID, date string) (*attendance.Session, error) {
	data, err := c.redis.Get(ctx, c.key(classID, date)).Bytes()
	if err == redis.Nil {
		return nil, attendance.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return decodeSession(data)
}

func (c *RedisSessionCache) Save(ctx context.Context, sess *attendance.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(sess.ClassID, sess.Date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Update runs fn inside WATCH on the session key. When another writer touches
// the key first, the transaction fails and fn runs again on the fresh session.
func (c *RedisSessionCache) Update(ctx context.Context, classID, date string, fn func(*attendance.Session) error) (*attendance.Session, error) {
	key := c.key(classID, date)

	var sess *attendance.Session
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return attendance.ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		sess, err = decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}

		encoded, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		sess = nil
		err := c.redis.Watch(ctx, txf, key)
		if err == nil {
			return sess, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logger.Debug.Printf("Session %s changed concurrently, retry %d", key, attempt)
			continue
		}
		return sess, err
	}
	return nil, fmt.Errorf("session %s kept changing after %d attempts", key, maxUpdateAttempts)
}

func (c *RedisSessionCache) Delete(ctx context.Context, classID, date string) error {
	return c.redis.Del(ctx, c.key(classID, date)).Err()
}

func (c *RedisSessionCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func decodeSession(data []byte) (*attendance.Session, error) {
	var sess attendance.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session: %w", err)
	}
	return &sess, nil
}
