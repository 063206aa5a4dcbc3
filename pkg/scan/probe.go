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

// Package scan performs single-port network probes and the address and
// retry plumbing around them.
package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/farwatch/netrecon/pkg/logger"
	"github.com/farwatch/netrecon/pkg/models"
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultBannerWait   = 1 * time.Second
	bannerBufferSize    = 2048
)

// httpProbePorts are ports that expect a client-initiated request; the
// prober sends a minimal HEAD request before the banner read on these.
var httpProbePorts = map[int]bool{
	80:   true,
	3000: true,
	8000: true,
	8080: true,
	8081: true,
}

const httpProbeRequest = "HEAD / HTTP/1.1\r\nHost: netrecon\r\nConnection: close\r\n\r\n"

// Prober performs single TCP/UDP port checks. It owns no shared mutable
// state and is safe to call from many goroutines concurrently; rate
// limiting is applied by the caller before invoking Probe.
type Prober struct {
	bannerWait time.Duration
	logger     logger.Logger
}

func NewProber(log logger.Logger) *Prober {
	return &Prober{
		bannerWait: defaultBannerWait,
		logger:     log,
	}
}

// Probe attempts a connection to host:port bounded by timeout and
// classifies the port state. On an established TCP connection it attempts
// a short banner read before returning. The connection is closed on every
// exit path.
func (p *Prober) Probe(ctx context.Context, host string, port int, timeout time.Duration, proto models.Protocol) models.ScanResult {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	result := models.ScanResult{
		Host:      host,
		Port:      port,
		Protocol:  proto,
		Timestamp: time.Now(),
	}

	start := time.Now()

	switch proto {
	case models.ProtoUDP:
		result.State, result.Banner = p.probeUDP(ctx, host, port, timeout)
	default:
		result.State, result.Banner = p.probeTCP(ctx, host, port, timeout)
	}

	result.Latency = time.Since(start)

	return result
}

func (p *Prober) probeTCP(ctx context.Context, host string, port int, timeout time.Duration) (models.PortState, []byte) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return p.classifyDialError(host, port, err), nil
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			p.logger.Debug().Err(cerr).Str("host", host).Int("port", port).Msg("failed to close probe connection")
		}
	}()

	return models.StateOpen, p.grabBanner(conn, port)
}

// probeUDP writes a small datagram and waits for any response within the
// timeout. Data back means open; an ICMP-unreachable surfacing as a read
// error means closed; silence is filtered. UDP cannot distinguish a quiet
// open port from a dropped packet.
func (p *Prober) probeUDP(ctx context.Context, host string, port int, timeout time.Duration) (models.PortState, []byte) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(dialCtx, "udp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return p.classifyDialError(host, port, err), nil
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			p.logger.Debug().Err(cerr).Str("host", host).Int("port", port).Msg("failed to close probe connection")
		}
	}()

	if _, err := conn.Write(udpProbePayload(port)); err != nil {
		return models.StateFiltered, nil
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	buf := make([]byte, bannerBufferSize)

	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return models.StateClosed, nil
		}

		return models.StateFiltered, nil
	}

	return models.StateOpen, buf[:n]
}

// classifyDialError maps expected network outcomes onto port states
// instead of surfacing them as errors. Refusal and resolution failures
// are closed, timeouts are filtered, and anything unexpected defaults to
// filtered conservatively.
func (p *Prober) classifyDialError(host string, port int, err error) models.PortState {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return models.StateClosed
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.StateClosed
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.StateFiltered
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.StateFiltered
	}

	p.logger.Debug().Err(err).Str("host", host).Int("port", port).Msg("unexpected probe error, classifying as filtered")

	return models.StateFiltered
}

// grabBanner opportunistically reads whatever the service sends within a
// short window. Ports known to expect a client request get a minimal HEAD
// request first. Absence of data is not an error; the banner stays empty.
func (p *Prober) grabBanner(conn net.Conn, port int) []byte {
	deadline := time.Now().Add(p.bannerWait)

	if httpProbePorts[port] {
		_ = conn.SetWriteDeadline(deadline)

		if _, err := conn.Write([]byte(httpProbeRequest)); err != nil {
			return nil
		}
	}

	_ = conn.SetReadDeadline(deadline)

	buf := make([]byte, bannerBufferSize)

	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return nil
	}

	return buf[:n]
}

// udpProbePayload returns a protocol-appropriate datagram for ports with
// known request formats, falling back to a bare newline.
func udpProbePayload(port int) []byte {
	switch port {
	case 53:
		// Minimal DNS query for the root NS record.
		return []byte{
			0xaa, 0xbb, // transaction ID
			0x01, 0x00, // standard query
			0x00, 0x01, // one question
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x00,       // root name
			0x00, 0x02, // type NS
			0x00, 0x01, // class IN
		}
	case 123:
		// NTP v3 client request.
		payload := make([]byte, 48)
		payload[0] = 0x1b

		return payload
	default:
		return []byte("\r\n")
	}
}
