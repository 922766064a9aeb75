package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cospa/internal/db"
)

var (
	_ db.DocumentWriter = (*Store)(nil)
	_ db.Cache          = (*Store)(nil)
	_ db.IndexManager   = (*Store)(nil)
	_ db.Searcher       = (*Store)(nil)
)

const (
	defaultClientName  = "cospa"
	defaultDialTimeout = 5 * time.Second
	readyPollInterval  = 200 * time.Millisecond
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	ClientName  string
	DialTimeout time.Duration
}

// Store is the rueidis-backed venue index and embedding cache. Needs Redis 8+ for FT.*.
type Store struct {
	client rueidis.Client
}

// NewStore creates a Redis store. The connection is lazy; use WaitForReady before serving.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis addrs is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		Dialer:       net.Dialer{Timeout: dial},
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH reply parsing expects the RESP2 flat array
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until Redis answers or timeout expires.
// On timeout the last ping error is included.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	var last error
	for {
		if last = s.Ping(ctx); last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w", timeout, errors.Join(ctx.Err(), last))
		case <-ticker.C:
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a Redis server error mentioning substr.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
