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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/farwatch/netrecon/pkg/logger"
	"github.com/farwatch/netrecon/pkg/models"
	"github.com/farwatch/netrecon/pkg/recon"
	"github.com/farwatch/netrecon/pkg/scan"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	mode := flag.String("mode", "scan", "Operation: scan, quick, full, stealth, sweep, detect")
	host := flag.String("host", "", "Target host or IP (scan, quick, full, stealth, detect)")
	cidr := flag.String("cidr", "", "Target network in CIDR notation (sweep)")
	portSpec := flag.String("ports", "1-1024", "Port list (22,80,8000-8100), or the keywords common, all")
	proto := flag.String("proto", "tcp", "Probe protocol: tcp or udp")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-probe connection timeout")
	concurrency := flag.Int("concurrency", 100, "Maximum concurrent probes")
	rate := flag.Float64("rate", 200, "Probe rate limit in probes per second")
	sequential := flag.Bool("sequential", false, "Disable parallel probing")
	openOnly := flag.Bool("open", false, "Report open ports only")
	jsonOut := flag.Bool("json", false, "Emit results as JSON instead of a table")
	historyPath := flag.String("history", "", "SQLite file for scan history (optional)")
	configPath := flag.String("config", "", "Path to JSON config file (overrides tuning flags)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, err := logger.New(logger.DefaultConfig())
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	cfg := &recon.Config{
		Timeout:     *timeout,
		Concurrency: *concurrency,
		RateLimit:   *rate,
		Sequential:  *sequential,
	}

	if *configPath != "" {
		data, rerr := os.ReadFile(*configPath)
		if rerr != nil {
			return fmt.Errorf("read config %s: %w", *configPath, rerr)
		}

		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return fmt.Errorf("parse config %s: %w", *configPath, jerr)
		}
	}

	var reporter recon.Reporter = &recon.TableReporter{W: os.Stdout, OpenOnly: *openOnly}
	if *jsonOut {
		reporter = &recon.JSONReporter{W: os.Stdout, OpenOnly: *openOnly}
	}

	opts := []recon.Option{recon.WithReporter(reporter)}

	if *historyPath != "" {
		store, serr := recon.NewSQLiteStore(*historyPath)
		if serr != nil {
			return fmt.Errorf("open history store: %w", serr)
		}

		defer func() { _ = store.Close() }()

		opts = append(opts, recon.WithStore(store))
	}

	engine, err := recon.New(cfg, lg, opts...)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}

	ports, err := resolvePorts(*portSpec)
	if err != nil {
		return fmt.Errorf("parse ports %q: %w", *portSpec, err)
	}

	switch *mode {
	case "scan":
		if *host == "" {
			return fmt.Errorf("mode scan requires -host")
		}

		target := models.Target{Host: *host, Ports: ports, Protocol: models.Protocol(*proto)}
		engine.Scan(ctx, target)
	case "quick":
		if *host == "" {
			return fmt.Errorf("mode quick requires -host")
		}

		engine.QuickScan(ctx, *host)
	case "full":
		if *host == "" {
			return fmt.Errorf("mode full requires -host")
		}

		engine.FullScan(ctx, *host)
	case "stealth":
		if *host == "" {
			return fmt.Errorf("mode stealth requires -host")
		}

		engine.StealthScan(ctx, *host, ports)
	case "sweep":
		if *cidr == "" {
			return fmt.Errorf("mode sweep requires -cidr")
		}

		up, serr := engine.NetworkSweep(ctx, *cidr, ports)
		if serr != nil {
			return fmt.Errorf("network sweep: %w", serr)
		}

		printSweep(up)
	case "detect":
		if *host == "" || len(ports) != 1 {
			return fmt.Errorf("mode detect requires -host and a single -ports value")
		}

		svc, derr := engine.DetectService(ctx, *host, ports[0])
		if derr != nil {
			return fmt.Errorf("detect service: %w", derr)
		}

		name := svc.Name
		if name == "" {
			name = "unknown"
		}

		fmt.Printf("%s:%d %s\n", *host, ports[0], name)
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	return nil
}

// resolvePorts expands the keywords "common" and "all" before falling
// back to numeric port-range parsing.
func resolvePorts(spec string) ([]int, error) {
	switch spec {
	case "common":
		ports := make([]int, len(recon.TopPorts))
		copy(ports, recon.TopPorts)
		sort.Ints(ports)

		return ports, nil
	case "all":
		ports := make([]int, 65535)
		for i := range ports {
			ports[i] = i + 1
		}

		return ports, nil
	default:
		return scan.ParsePortRange(spec)
	}
}

func printSweep(up map[string][]int) {
	hosts := make([]string, 0, len(up))
	for host := range up {
		hosts = append(hosts, host)
	}

	sort.Strings(hosts)

	for _, host := range hosts {
		fmt.Printf("%s %v\n", host, up[host])
	}
}
