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
	"context"
	"sync"

	"github.com/farwatch/netrecon/pkg/models"
)

// resultKey uniquely identifies the latest result for a probed endpoint.
type resultKey struct {
	host  string
	port  int
	proto models.Protocol
}

// InMemoryStore keeps the latest result per (host, port, protocol).
type InMemoryStore struct {
	mu      sync.RWMutex
	results []models.ScanResult
	index   map[resultKey]int
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		index: make(map[resultKey]int),
	}
}

func (s *InMemoryStore) SaveResults(_ context.Context, results []models.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range results {
		r := results[i]
		key := resultKey{host: r.Host, port: r.Port, proto: r.Protocol}

		if idx, ok := s.index[key]; ok {
			s.results[idx] = r
			continue
		}

		s.index[key] = len(s.results)
		s.results = append(s.results, r)
	}

	return nil
}

func (s *InMemoryStore) GetResults(_ context.Context, filter *ResultFilter) ([]models.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScanResult

	for i := range s.results {
		if filter.matches(&s.results[i]) {
			out = append(out, s.results[i])
		}
	}

	return out, nil
}

func (s *InMemoryStore) Summary(_ context.Context) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{TotalResults: len(s.results)}

	hosts := make(map[string]bool)
	hostsUp := make(map[string]bool)

	for i := range s.results {
		r := &s.results[i]
		hosts[r.Host] = true

		if r.State == models.StateOpen {
			summary.OpenPorts++
			hostsUp[r.Host] = true
		}

		if r.Timestamp.After(summary.LastScan) {
			summary.LastScan = r.Timestamp
		}
	}

	summary.Hosts = len(hosts)
	summary.HostsUp = len(hostsUp)

	return summary, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
