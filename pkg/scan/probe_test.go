/*
 * Copyright 2025 Farwatch Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package scan

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farwatch/netrecon/pkg/logger"
	"github.com/farwatch/netrecon/pkg/models"
)

// listenTCP starts a loopback listener and returns its port plus a stop
// function. handler runs once per accepted connection.
func listenTCP(t *testing.T, handler func(net.Conn)) (port int, stop func()) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}

			go handler(conn)
		}
	}()

	_, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)

	return port, func() { _ = l.Close() }
}

// closedPort returns a loopback port with no listener on it.
func closedPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	_, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	require.NoError(t, l.Close())

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return port
}

func TestProbeOpenPort(t *testing.T) {
	port, stop := listenTCP(t, func(conn net.Conn) {
		_ = conn.Close()
	})
	defer stop()

	p := NewProber(logger.NewTestLogger())

	result := p.Probe(context.Background(), "127.0.0.1", port, time.Second, models.ProtoTCP)

	assert.Equal(t, models.StateOpen, result.State)
	assert.Equal(t, port, result.Port)
	assert.Equal(t, "127.0.0.1", result.Host)
	assert.Positive(t, result.Latency)
	assert.False(t, result.Timestamp.IsZero())
}

func TestProbeClosedPort(t *testing.T) {
	p := NewProber(logger.NewTestLogger())

	result := p.Probe(context.Background(), "127.0.0.1", closedPort(t), time.Second, models.ProtoTCP)

	assert.Equal(t, models.StateClosed, result.State)
	assert.Empty(t, result.Banner)
}

func TestProbeOpenButSilent(t *testing.T) {
	// Accepts and holds the connection without writing: the probe must
	// classify OPEN with an empty banner, not FILTERED, since the
	// connection itself succeeded.
	port, stop := listenTCP(t, func(conn net.Conn) {
		time.Sleep(2 * time.Second)
		_ = conn.Close()
	})
	defer stop()

	p := NewProber(logger.NewTestLogger())
	p.bannerWait = 200 * time.Millisecond

	start := time.Now()
	result := p.Probe(context.Background(), "127.0.0.1", port, 500*time.Millisecond, models.ProtoTCP)

	assert.Equal(t, models.StateOpen, result.State)
	assert.Empty(t, result.Banner)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProbeCapturesBanner(t *testing.T) {
	banner := "SSH-2.0-OpenSSH_9.6\r\n"

	port, stop := listenTCP(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte(banner))
		_ = conn.Close()
	})
	defer stop()

	p := NewProber(logger.NewTestLogger())

	result := p.Probe(context.Background(), "127.0.0.1", port, time.Second, models.ProtoTCP)

	require.Equal(t, models.StateOpen, result.State)
	assert.Equal(t, banner, string(result.Banner))
}

func TestProbeSendsHTTPRequest(t *testing.T) {
	received := make(chan []byte, 1)

	port, stop := listenTCP(t, func(conn net.Conn) {
		buf := make([]byte, 1024)

		n, err := conn.Read(buf)
		if err == nil {
			received <- buf[:n]
		}

		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nServer: testd\r\n\r\n"))
		_ = conn.Close()
	})
	defer stop()

	p := NewProber(logger.NewTestLogger())

	// The listener port is ephemeral, so force the HTTP probe path by
	// registering it temporarily.
	httpProbePorts[port] = true
	defer delete(httpProbePorts, port)

	result := p.Probe(context.Background(), "127.0.0.1", port, time.Second, models.ProtoTCP)

	require.Equal(t, models.StateOpen, result.State)

	select {
	case req := <-received:
		assert.Contains(t, string(req), "HEAD / HTTP/1.1")
	case <-time.After(time.Second):
		t.Fatal("listener never received the HTTP probe request")
	}

	assert.Contains(t, string(result.Banner), "HTTP/1.1 200 OK")
}

func TestProbeDNSFailure(t *testing.T) {
	p := NewProber(logger.NewTestLogger())

	result := p.Probe(context.Background(), "host.invalid", 80, time.Second, models.ProtoTCP)

	assert.Equal(t, models.StateClosed, result.State)
}

func TestProbeTimeoutFiltered(t *testing.T) {
	p := NewProber(logger.NewTestLogger())

	// RFC 5737 TEST-NET-1 address: packets are dropped, the dial times out.
	start := time.Now()
	result := p.Probe(context.Background(), "192.0.2.1", 80, 300*time.Millisecond, models.ProtoTCP)

	assert.Equal(t, models.StateFiltered, result.State)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbeUDPNoListener(t *testing.T) {
	p := NewProber(logger.NewTestLogger())

	// A UDP probe against a loopback port with no listener surfaces an
	// ICMP port-unreachable as ECONNREFUSED on the read.
	result := p.Probe(context.Background(), "127.0.0.1", closedPort(t), 500*time.Millisecond, models.ProtoUDP)

	assert.Contains(t, []models.PortState{models.StateClosed, models.StateFiltered}, result.State)
}

func TestProbeUDPResponds(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	go func() {
		buf := make([]byte, 64)

		_, addr, rerr := pc.ReadFrom(buf)
		if rerr != nil {
			return
		}

		_, _ = pc.WriteTo([]byte("pong"), addr)
	}()

	_, portStr, err := net.SplitHostPort(pc.LocalAddr().String())
	require.NoError(t, err)

	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	p := NewProber(logger.NewTestLogger())

	result := p.Probe(context.Background(), "127.0.0.1", port, time.Second, models.ProtoUDP)

	assert.Equal(t, models.StateOpen, result.State)
	assert.Equal(t, "pong", string(result.Banner))
}
