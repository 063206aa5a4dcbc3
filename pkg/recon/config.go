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

package recon

import (
	"encoding/json"
	"time"
)

const (
	defaultTimeout         = 5 * time.Second
	defaultConcurrency     = 100
	defaultRateLimit       = 200.0 // probes per second
	defaultRateBurst       = 50.0
	defaultStealthMinDelay = 100 * time.Millisecond
	defaultStealthMaxDelay = 500 * time.Millisecond
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheSize       = 4096
	dnsRetryAttempts       = 3
	dnsRetryBase           = 100 * time.Millisecond
)

// Default port lists. Values only; the engine never reads ambient state
// inside its algorithms.
var (
	// TopPorts is the fixed top-N list used by QuickScan.
	TopPorts = []int{
		21, 22, 23, 25, 53, 80, 110, 111, 135, 139,
		143, 161, 389, 443, 445, 465, 514, 587, 993, 995,
		1080, 1433, 1521, 1723, 2049, 3306, 3389, 5060, 5432, 5900,
		6379, 8000, 8080, 8443, 9200, 27017,
	}

	WebPorts = []int{80, 443, 3000, 8000, 8080, 8081, 8443, 8888}

	DBPorts = []int{1433, 1521, 3306, 5432, 6379, 9200, 11211, 27017}

	AdminPorts = []int{22, 23, 3389, 5900, 5985, 5986}
)

// Config carries the engine's tunables. All values are supplied by the
// caller; constructors fill zero fields with defaults.
type Config struct {
	Timeout     time.Duration `json:"timeout"`
	Concurrency int           `json:"concurrency"`

	// RateLimit is the token refill rate in probes per second shared by
	// every in-flight probe; RateBurst is the bucket capacity.
	RateLimit float64 `json:"rate_limit"`
	RateBurst float64 `json:"rate_burst"`

	// Sequential disables the parallel execution path globally. Result
	// semantics are identical; only wall-clock time differs.
	Sequential bool `json:"sequential"`

	StealthMinDelay time.Duration `json:"stealth_min_delay"`
	StealthMaxDelay time.Duration `json:"stealth_max_delay"`

	// MaxSweepHosts caps CIDR expansion in NetworkSweep.
	MaxSweepHosts int `json:"max_sweep_hosts"`

	CacheTTL  time.Duration `json:"cache_ttl"`
	CacheSize int           `json:"cache_size"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}

	if c.RateLimit == 0 {
		c.RateLimit = defaultRateLimit
	}

	if c.RateBurst == 0 {
		c.RateBurst = defaultRateBurst
	}

	if c.StealthMinDelay <= 0 {
		c.StealthMinDelay = defaultStealthMinDelay
	}

	if c.StealthMaxDelay < c.StealthMinDelay {
		c.StealthMaxDelay = c.StealthMinDelay + defaultStealthMaxDelay - defaultStealthMinDelay
	}

	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}

	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
}

// durationWrapper unmarshals human-readable duration strings ("500ms",
// "2s") as well as bare nanosecond numbers.
type durationWrapper time.Duration

func (d *durationWrapper) UnmarshalJSON(b []byte) error {
	var s string

	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			*d = 0
			return nil
		}

		dur, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}

		*d = durationWrapper(dur)

		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	*d = durationWrapper(n)

	return nil
}

// unmarshalConfig mirrors Config with wrapped duration fields.
type unmarshalConfig struct {
	Timeout         durationWrapper `json:"timeout"`
	Concurrency     int             `json:"concurrency"`
	RateLimit       float64         `json:"rate_limit"`
	RateBurst       float64         `json:"rate_burst"`
	Sequential      bool            `json:"sequential"`
	StealthMinDelay durationWrapper `json:"stealth_min_delay"`
	StealthMaxDelay durationWrapper `json:"stealth_max_delay"`
	MaxSweepHosts   int             `json:"max_sweep_hosts"`
	CacheTTL        durationWrapper `json:"cache_ttl"`
	CacheSize       int             `json:"cache_size"`
}

func (c *Config) UnmarshalJSON(b []byte) error {
	var temp unmarshalConfig
	if err := json.Unmarshal(b, &temp); err != nil {
		return err
	}

	*c = Config{
		Timeout:         time.Duration(temp.Timeout),
		Concurrency:     temp.Concurrency,
		RateLimit:       temp.RateLimit,
		RateBurst:       temp.RateBurst,
		Sequential:      temp.Sequential,
		StealthMinDelay: time.Duration(temp.StealthMinDelay),
		StealthMaxDelay: time.Duration(temp.StealthMaxDelay),
		MaxSweepHosts:   temp.MaxSweepHosts,
		CacheTTL:        time.Duration(temp.CacheTTL),
		CacheSize:       temp.CacheSize,
	}

	return nil
}
