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
	"time"

	"github.com/farwatch/netrecon/pkg/models"
)

// Store persists scan history. Implementations must be safe for
// concurrent use by multiple scan calls.
type Store interface {
	SaveResults(ctx context.Context, results []models.ScanResult) error
	GetResults(ctx context.Context, filter *ResultFilter) ([]models.ScanResult, error)
	Summary(ctx context.Context) (*Summary, error)
	Close() error
}

// ResultFilter selects stored results. Zero fields match everything.
type ResultFilter struct {
	Host  string
	Port  int
	State models.PortState
	Since time.Time
}

func (f *ResultFilter) matches(r *models.ScanResult) bool {
	if f == nil {
		return true
	}

	if f.Host != "" && r.Host != f.Host {
		return false
	}

	if f.Port != 0 && r.Port != f.Port {
		return false
	}

	if f.State != "" && r.State != f.State {
		return false
	}

	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}

	return true
}

// Summary aggregates stored scan history.
type Summary struct {
	TotalResults int       `json:"total_results"`
	OpenPorts    int       `json:"open_ports"`
	Hosts        int       `json:"hosts"`
	HostsUp      int       `json:"hosts_up"`
	LastScan     time.Time `json:"last_scan"`
}
