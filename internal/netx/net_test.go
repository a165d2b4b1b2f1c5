package netx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDialProber_Online(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewDialProber(ln.Addr().String(), time.Second)
	require.True(t, p.Online(context.Background()))
}

func TestDialProber_Offline(t *testing.T) {
	// Closed listener: nothing accepts on this port anymore.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := NewDialProber(addr, 500*time.Millisecond)
	require.False(t, p.Online(context.Background()))
}

func TestAlways(t *testing.T) {
	require.True(t, Always(true).Online(context.Background()))
	require.False(t, Always(false).Online(context.Background()))
}
