// Package netx provides the connectivity probe used to gate durable jobs on
// network availability.
package netx

import (
	"context"
	"net"
	"time"
)

// Prober reports whether the network is currently usable.
type Prober interface {
	Online(ctx context.Context) bool
}

// DialProber checks connectivity by opening a TCP connection to Addr.
type DialProber struct {
	Addr    string
	Timeout time.Duration
}

func NewDialProber(addr string, timeout time.Duration) *DialProber {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DialProber{Addr: addr, Timeout: timeout}
}

func (p *DialProber) Online(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Always is a Prober with a fixed answer. Used in tests and as a default
// when no probe address is configured.
type Always bool

func (a Always) Online(context.Context) bool { return bool(a) }
