package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"time"

	logs "github.com/danmuck/renderd/internal/logging"
)

var (
	ErrAddressRequired = errors.New("transport: master address required")
	ErrHelloMismatch   = errors.New("transport: hello mismatch")
)

// helloMagic opens every worker connection.
const helloMagic uint32 = 0x524e4452 // "RNDR"

// Hello identifies a rank to the master right after connecting.
type Hello struct {
	Rank uint32
	Size uint32
}

func WriteHello(w io.Writer, h Hello) error {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], helloMagic)
	binary.BigEndian.PutUint32(buf[4:8], h.Rank)
	binary.BigEndian.PutUint32(buf[8:12], h.Size)
	_, err := w.Write(buf[:])
	return err
}

func ReadHello(r io.Reader) (Hello, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Hello{}, fmt.Errorf("transport: read hello: %w", err)
	}
	if binary.BigEndian.Uint32(buf[0:4]) != helloMagic {
		return Hello{}, fmt.Errorf("%w: bad magic", ErrHelloMismatch)
	}
	h := Hello{
		Rank: binary.BigEndian.Uint32(buf[4:8]),
		Size: binary.BigEndian.Uint32(buf[8:12]),
	}
	if h.Size == 0 || h.Rank >= h.Size {
		return Hello{}, fmt.Errorf("%w: rank %d of %d", ErrHelloMismatch, h.Rank, h.Size)
	}
	return h, nil
}

// DialConfig configures the worker side of a TCP master connection.
type DialConfig struct {
	Address            string
	Rank               int
	Size               int
	ConnectTimeout     time.Duration
	MaxConnectAttempts int
	Backoff            BackoffConfig
}

// Dial connects to the master, retrying with backoff, and announces rank.
// The returned connection carries commands in and, for rank 0, responses out.
func Dial(ctx context.Context, cfg DialConfig) (net.Conn, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}

	var attempt int
	for {
		attempt++
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err == nil {
			if err := WriteHello(conn, Hello{Rank: uint32(cfg.Rank), Size: uint32(cfg.Size)}); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("transport: send hello: %w", err)
			}
			logs.Infof("transport.Dial connected addr=%q rank=%d attempt=%d", cfg.Address, cfg.Rank, attempt)
			return conn, nil
		}
		logs.Warnf("transport.Dial attempt=%d addr=%q err=%v", attempt, cfg.Address, err)
		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, err
		}
		if err := sleepBackoff(ctx, cfg.Backoff, attempt, rng); err != nil {
			return nil, err
		}
	}
}
