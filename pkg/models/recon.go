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

// Package models provides data models for the reconnaissance engine.
package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Protocol selects the transport used by a probe.
type Protocol string

const (
	ProtoTCP Protocol = "tcp"
	ProtoUDP Protocol = "udp"
)

// PortState classifies the outcome of a single port probe.
//
// Open means the connection was established. Closed means it was actively
// refused (or the host could not be resolved). Filtered means the probe
// timed out or failed without a definitive refusal. Unknown means the probe
// was never attempted.
type PortState string

const (
	StateOpen     PortState = "open"
	StateClosed   PortState = "closed"
	StateFiltered PortState = "filtered"
	StateUnknown  PortState = "unknown"
)

// Target represents a host and the ports to be probed against it.
// Immutable once constructed.
type Target struct {
	Host     string        `json:"host"`
	Ports    []int         `json:"ports"`
	Protocol Protocol      `json:"protocol"`
	Timeout  time.Duration `json:"timeout"`
}

// ScanResult is the write-once outcome of probing a single port.
type ScanResult struct {
	BatchID   string        `json:"batch_id,omitempty"`
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Protocol  Protocol      `json:"protocol"`
	State     PortState     `json:"state"`
	Service   string        `json:"service,omitempty"`
	Banner    []byte        `json:"banner,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency"`
}

// BannerText decodes the raw banner for display. Banners may carry
// arbitrary bytes; invalid UTF-8 sequences are replaced and control
// characters other than tab/newline are stripped.
func (r *ScanResult) BannerText() string {
	if len(r.Banner) == 0 {
		return ""
	}

	s := string(r.Banner)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}

	return strings.Map(func(c rune) rune {
		if c == '\n' || c == '\t' || c >= 0x20 {
			return c
		}

		return -1
	}, s)
}

// Service describes a detected network service. Derived from probe data,
// not authoritative.
type Service struct {
	Name            string   `json:"name,omitempty"`
	Version         string   `json:"version,omitempty"`
	Protocol        Protocol `json:"protocol"`
	Port            int      `json:"port"`
	Banner          []byte   `json:"banner,omitempty"`
	Vulnerabilities []string `json:"vulnerabilities,omitempty"`
}
