package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danmuck/renderd/internal/collective"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
	"github.com/danmuck/renderd/internal/transport"
)

var (
	ErrInvalidRank      = errors.New("worker: invalid rank")
	ErrInvalidTransport = errors.New("worker: invalid transport")
	ErrRedisRequired    = errors.New("worker: redis_url required")
	ErrSessionRequired  = errors.New("worker: session required for redis transport")
)

// TransportKind selects how a standalone rank receives commands.
type TransportKind string

const (
	TransportTCP   TransportKind = "tcp"
	TransportRedis TransportKind = "redis"
)

// ServiceConfig configures one rank running as its own process.
type ServiceConfig struct {
	Rank               int
	Size               int
	Transport          TransportKind
	MasterAddress      string
	RedisURL           string
	Session            string
	RegionScratchBytes int
	MaxStringBytes     uint32
	StatusAddr         string
	CORSOrigins        []string
	Modules            []string
	ConnectMaxAttempts int
	Backoff            transport.BackoffConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Rank:               0,
		Size:               1,
		Transport:          TransportTCP,
		MasterAddress:      "127.0.0.1:7450",
		RegionScratchBytes: DefaultRegionScratchBytes,
		MaxStringBytes:     protocol.DefaultLimits().MaxStringBytes,
		Backoff:            transport.DefaultBackoffConfig(),
	}
}

func (c ServiceConfig) Validate() error {
	if c.Size <= 0 || c.Rank < 0 || c.Rank >= c.Size {
		return fmt.Errorf("%w: rank %d of %d", ErrInvalidRank, c.Rank, c.Size)
	}
	switch c.Transport {
	case TransportTCP:
		if strings.TrimSpace(c.MasterAddress) == "" {
			return transport.ErrAddressRequired
		}
	case TransportRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return ErrRedisRequired
		}
		if strings.TrimSpace(c.Session) == "" {
			return ErrSessionRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}
	if c.Size > 1 && strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("%w: a group of %d ranks coordinates collectives through redis", ErrRedisRequired, c.Size)
	}
	if c.Size > 1 && strings.TrimSpace(c.Session) == "" {
		return fmt.Errorf("%w: a group of %d ranks", ErrSessionRequired, c.Size)
	}
	return nil
}

// Service runs one rank: connect, interpret until finalize, exit.
type Service struct {
	cfg   ServiceConfig
	runID string
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{cfg: cfg, runID: uuid.NewString()}
}

func (s *Service) RunID() string {
	return s.runID
}

// Run returns the process exit status.
func (s *Service) Run(ctx context.Context) (int, error) {
	if err := s.cfg.Validate(); err != nil {
		return 1, err
	}
	s.banner()

	var redisClient *redis.Client
	if strings.TrimSpace(s.cfg.RedisURL) != "" {
		opts, err := redis.ParseURL(s.cfg.RedisURL)
		if err != nil {
			return 1, fmt.Errorf("worker: parse redis_url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return 1, fmt.Errorf("worker: connect redis: %w", err)
		}
	}

	in, responder, closeIn, err := s.connect(ctx, redisClient)
	if err != nil {
		return 1, err
	}
	defer closeIn()

	group, err := s.group(redisClient)
	if err != nil {
		return 1, err
	}
	defer group.Close()

	registry := scene.DefaultRegistry()
	for _, name := range s.cfg.Modules {
		if err := registry.LoadModule(name); err != nil {
			return 1, fmt.Errorf("worker: preload module: %w", err)
		}
	}

	limits := protocol.DefaultLimits()
	if s.cfg.MaxStringBytes > 0 {
		limits.MaxStringBytes = s.cfg.MaxStringBytes
	}
	interp, err := New(Config{
		RegionScratchBytes: s.cfg.RegionScratchBytes,
		Limits:             limits,
		Registry:           registry,
	}, in, group, responder)
	if err != nil {
		return 1, err
	}
	defer interp.Close()

	statusCtx, stopStatus := context.WithCancel(ctx)
	defer stopStatus()
	if addr := strings.TrimSpace(s.cfg.StatusAddr); addr != "" {
		status := NewStatusServer(s.runID, s.cfg.CORSOrigins, interp)
		go func() {
			if err := status.Serve(statusCtx, addr); err != nil {
				logs.Warnf("worker.Service.Run status server stopped err=%v", err)
			}
		}()
	}

	return interp.Run(ctx)
}

func (s *Service) banner() {
	host, _ := os.Hostname()
	logs.Infof(
		"worker.Service.start rank=%d size=%d pid=%d host=%q transport=%s run_id=%s",
		s.cfg.Rank,
		s.cfg.Size,
		os.Getpid(),
		host,
		s.cfg.Transport,
		s.runID,
	)
}

func (s *Service) connect(ctx context.Context, client *redis.Client) (io.Reader, transport.Responder, func(), error) {
	switch s.cfg.Transport {
	case TransportRedis:
		stream := transport.NewRedisStream(ctx, client, s.cfg.Session)
		return stream, transport.NewRedisResponder(client, s.cfg.Session), func() {}, nil
	default:
		conn, err := transport.Dial(ctx, transport.DialConfig{
			Address:            s.cfg.MasterAddress,
			Rank:               s.cfg.Rank,
			Size:               s.cfg.Size,
			ConnectTimeout:     5 * time.Second,
			MaxConnectAttempts: s.cfg.ConnectMaxAttempts,
			Backoff:            s.cfg.Backoff,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return conn, transport.NewStreamResponder(conn), func() { _ = conn.Close() }, nil
	}
}

func (s *Service) group(client *redis.Client) (collective.Group, error) {
	if s.cfg.Size == 1 {
		return collective.Solo{}, nil
	}
	return collective.NewRedisGroup(client, collective.RedisConfig{
		Session: s.cfg.Session,
		Rank:    s.cfg.Rank,
		Size:    s.cfg.Size,
	})
}
