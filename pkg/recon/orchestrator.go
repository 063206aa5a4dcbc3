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

// Package recon composes probing, rate limiting, bounded execution, and
// service classification into host-level and network-level sweeps.
package recon

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/farwatch/netrecon/pkg/cache"
	"github.com/farwatch/netrecon/pkg/executor"
	"github.com/farwatch/netrecon/pkg/logger"
	"github.com/farwatch/netrecon/pkg/models"
	"github.com/farwatch/netrecon/pkg/ratelimit"
	"github.com/farwatch/netrecon/pkg/scan"
	"github.com/farwatch/netrecon/pkg/service"
)

// Orchestrator exposes the public scan API. The rate limiter and caches
// are created once per orchestrator and shared by all concurrent scan
// calls; per-call state (targets, result slices) is discarded after each
// call.
type Orchestrator struct {
	config   *Config
	limiter  *ratelimit.Bucket
	prober   *scan.Prober
	svcCache *cache.Cache[string, models.Service]
	dnsCache *cache.Cache[string, string]
	store    Store
	reporter Reporter
	auditor  Auditor
	progress func(completed int)
	logger   logger.Logger
}

type Option func(*Orchestrator)

// WithStore records every batch into the given history store.
func WithStore(store Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithReporter replaces the default no-op rendering sink.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithAuditor attaches an external audit sink. Audit failures never
// affect scan results.
func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) { o.auditor = a }
}

// WithProgress attaches a per-batch progress callback. Counts are
// monotonically increasing.
func WithProgress(fn func(completed int)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// New validates config and builds an orchestrator. Configuration errors
// (such as a non-positive rate limit) are fatal here, not deferred to the
// first probe.
func New(cfg *Config, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}

	limiter, err := ratelimit.NewBucket(cfg.RateLimit, cfg.RateBurst)
	if err != nil {
		return nil, fmt.Errorf("configure rate limiter: %w", err)
	}

	o := &Orchestrator{
		config:   cfg,
		limiter:  limiter,
		prober:   scan.NewProber(log),
		svcCache: cache.New[string, models.Service](cfg.CacheTTL, cfg.CacheSize),
		dnsCache: cache.New[string, string](cfg.CacheTTL, cfg.CacheSize),
		reporter: NopReporter{},
		logger:   log,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Scan probes every port of the target and returns one result per port,
// in port-list order, regardless of completion order. A failing port
// never aborts the batch; it is reported as CLOSED, FILTERED, or UNKNOWN.
func (o *Orchestrator) Scan(ctx context.Context, target models.Target) []models.ScanResult {
	batchID := uuid.NewString()

	proto := target.Protocol
	if proto == "" {
		proto = models.ProtoTCP
	}

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = o.config.Timeout
	}

	o.logger.Debug().
		Str("host", target.Host).
		Int("ports", len(target.Ports)).
		Str("protocol", string(proto)).
		Str("batchID", batchID).
		Msg("Starting scan")

	addr, err := o.resolve(ctx, target.Host)
	if err != nil {
		// Resolution failure classifies every port as closed, matching
		// the per-probe DNS failure behavior.
		o.logger.Debug().Err(err).Str("host", target.Host).Msg("Host resolution failed")

		results := make([]models.ScanResult, len(target.Ports))
		now := time.Now()

		for i, port := range target.Ports {
			results[i] = models.ScanResult{
				BatchID:   batchID,
				Host:      target.Host,
				Port:      port,
				Protocol:  proto,
				State:     models.StateClosed,
				Timestamp: now,
			}
		}

		o.finish(ctx, "scan", target.Host, results)

		return results
	}

	concurrency := o.config.Concurrency
	if o.config.Sequential {
		concurrency = 1
	}

	results := executor.Run(ctx, target.Ports, concurrency, func(ctx context.Context, port int) models.ScanResult {
		return o.probeOne(ctx, batchID, target.Host, addr, port, timeout, proto)
	}, &executor.Options{
		Progress: o.progress,
		OnPanic: func(index int, cause any) {
			o.logger.Error().
				Interface("cause", cause).
				Int("port", target.Ports[index]).
				Str("host", target.Host).
				Msg("Probe panicked")
		},
	})

	o.fillUnknown(results, batchID, target.Host, target.Ports, proto)
	o.finish(ctx, "scan", target.Host, results)

	return results
}

// QuickScan probes the fixed top-N common-ports list.
func (o *Orchestrator) QuickScan(ctx context.Context, host string) []models.ScanResult {
	return o.Scan(ctx, models.Target{Host: host, Ports: TopPorts, Protocol: models.ProtoTCP})
}

// FullScan probes the entire 1-65535 range. Live connection state is
// bounded by the executor pool, not the port count.
func (o *Orchestrator) FullScan(ctx context.Context, host string) []models.ScanResult {
	ports := make([]int, 65535)
	for i := range ports {
		ports[i] = i + 1
	}

	return o.Scan(ctx, models.Target{Host: host, Ports: ports, Protocol: models.ProtoTCP})
}

// StealthScan probes strictly sequentially with a randomized delay before
// each probe. It bypasses the bounded-concurrency path on purpose,
// trading throughput for a lower detection footprint.
func (o *Orchestrator) StealthScan(ctx context.Context, host string, ports []int) []models.ScanResult {
	batchID := uuid.NewString()
	timeout := o.config.Timeout

	o.logger.Debug().
		Str("host", host).
		Int("ports", len(ports)).
		Str("batchID", batchID).
		Msg("Starting stealth scan")

	addr, err := o.resolve(ctx, host)
	if err != nil {
		addr = host // let the dialer surface the failure per port
	}

	results := make([]models.ScanResult, len(ports))

	for i, port := range ports {
		if ctx.Err() != nil {
			break
		}

		delay := o.config.StealthMinDelay
		if span := o.config.StealthMaxDelay - o.config.StealthMinDelay; span > 0 {
			delay += time.Duration(rand.Int63n(int64(span)))
		}

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}

		if ctx.Err() != nil {
			break
		}

		results[i] = o.probeOne(ctx, batchID, host, addr, port, timeout, models.ProtoTCP)
	}

	o.fillUnknown(results, batchID, host, ports, models.ProtoTCP)
	o.finish(ctx, "stealth_scan", host, results)

	return results
}

// NetworkSweep probes a small port set against every candidate host in
// the CIDR and returns only hosts with at least one open port.
func (o *Orchestrator) NetworkSweep(ctx context.Context, cidr string, ports []int) (map[string][]int, error) {
	hosts, err := scan.ExpandCIDR(cidr, o.config.MaxSweepHosts)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	timeout := o.config.Timeout

	o.logger.Info().
		Str("cidr", cidr).
		Int("hosts", len(hosts)).
		Int("ports", len(ports)).
		Msg("Starting network sweep")

	concurrency := o.config.Concurrency
	if o.config.Sequential {
		concurrency = 1
	}

	type hostOutcome struct {
		open    []int
		results []models.ScanResult
	}

	outcomes := executor.Run(ctx, hosts, concurrency, func(ctx context.Context, host string) hostOutcome {
		var out hostOutcome

		for _, port := range ports {
			res := o.probeOne(ctx, batchID, host, host, port, timeout, models.ProtoTCP)
			out.results = append(out.results, res)

			if res.State == models.StateOpen {
				out.open = append(out.open, port)
			}
		}

		return out
	}, &executor.Options{
		Progress: o.progress,
		OnPanic: func(index int, cause any) {
			o.logger.Error().
				Interface("cause", cause).
				Str("host", hosts[index]).
				Msg("Sweep probe panicked")
		},
	})

	up := make(map[string][]int)

	var all []models.ScanResult

	for i, outcome := range outcomes {
		all = append(all, outcome.results...)

		if len(outcome.open) > 0 {
			up[hosts[i]] = outcome.open
		}
	}

	o.finish(ctx, "network_sweep", cidr, all)

	o.logger.Info().
		Str("cidr", cidr).
		Int("hostsUp", len(up)).
		Msg("Network sweep complete")

	return up, nil
}

// DetectService probes a single port and classifies the service behind
// it. Outcomes are memoized per host:port for the configured cache TTL.
func (o *Orchestrator) DetectService(ctx context.Context, host string, port int) (models.Service, error) {
	key := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	return o.svcCache.Cached(key, func() (models.Service, error) {
		if err := o.limiter.Acquire(ctx, 1); err != nil {
			return models.Service{}, err
		}

		res := o.prober.Probe(ctx, host, port, o.config.Timeout, models.ProtoTCP)

		svc := models.Service{
			Protocol: models.ProtoTCP,
			Port:     port,
			Banner:   res.Banner,
		}

		if res.State == models.StateOpen {
			if name, ok := service.Classify(port, res.Banner); ok {
				svc.Name = name
			}
		}

		return svc, nil
	})
}

// probeOne routes a single probe through the rate limiter, performs the
// I/O, and classifies the detected service. It never returns an error;
// failure modes are encoded in the result state.
func (o *Orchestrator) probeOne(ctx context.Context, batchID, host, addr string, port int, timeout time.Duration, proto models.Protocol) models.ScanResult {
	if err := o.limiter.Acquire(ctx, 1); err != nil {
		return models.ScanResult{
			BatchID:   batchID,
			Host:      host,
			Port:      port,
			Protocol:  proto,
			State:     models.StateUnknown,
			Timestamp: time.Now(),
		}
	}

	res := o.prober.Probe(ctx, addr, port, timeout, proto)
	res.BatchID = batchID
	res.Host = host // report the caller's host, not the resolved address

	if res.State == models.StateOpen {
		if name, ok := service.Classify(port, res.Banner); ok {
			res.Service = name
		}
	}

	return res
}

// resolve returns a dialable address for host, memoizing successful DNS
// lookups. Lookups are wrapped in the retry helper; port probes are not.
func (o *Orchestrator) resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	return o.dnsCache.Cached(host, func() (string, error) {
		var addr string

		err := scan.Retry(ctx, dnsRetryAttempts, dnsRetryBase, func() error {
			addrs, lerr := net.DefaultResolver.LookupHost(ctx, host)
			if lerr != nil {
				return lerr
			}

			addr = addrs[0]

			return nil
		})
		if err != nil {
			return "", err
		}

		return addr, nil
	})
}

// fillUnknown replaces zero-value slots (panicked or never-dispatched
// items) with explicit UNKNOWN markers so every requested port has a
// result.
func (o *Orchestrator) fillUnknown(results []models.ScanResult, batchID, host string, ports []int, proto models.Protocol) {
	now := time.Now()

	for i := range results {
		if results[i].State == "" {
			results[i] = models.ScanResult{
				BatchID:   batchID,
				Host:      host,
				Port:      ports[i],
				Protocol:  proto,
				State:     models.StateUnknown,
				Timestamp: now,
			}
		}
	}
}

// finish records, renders, and audits a completed batch. Store and audit
// failures are logged and swallowed; they never affect scan results.
func (o *Orchestrator) finish(ctx context.Context, operation, target string, results []models.ScanResult) {
	if o.store != nil {
		if err := o.store.SaveResults(ctx, results); err != nil {
			o.logger.Error().Err(err).Str("operation", operation).Msg("Failed to record scan history")
		}
	}

	o.reporter.Render(results)

	if o.auditor != nil {
		if err := o.auditor.LogEvent(operation, target, results); err != nil {
			o.logger.Debug().Err(err).Str("operation", operation).Msg("Audit sink failed")
		}
	}
}
