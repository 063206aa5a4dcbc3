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

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		banner  string
		want    string
		wantHit bool
	}{
		{
			name:    "ssh banner",
			port:    2222,
			banner:  "SSH-2.0-OpenSSH_9.6",
			want:    "ssh",
			wantHit: true,
		},
		{
			name:    "banner beats port table",
			port:    80,
			banner:  "SSH-2.0-dropbear",
			want:    "ssh",
			wantHit: true,
		},
		{
			name:    "nginx over generic http",
			port:    8080,
			banner:  "HTTP/1.1 200 OK\r\nServer: nginx/1.24.0",
			want:    "http/nginx",
			wantHit: true,
		},
		{
			name:    "generic http response",
			port:    9999,
			banner:  "HTTP/1.1 404 Not Found",
			want:    "http",
			wantHit: true,
		},
		{
			name:    "smtp greeting",
			port:    25,
			banner:  "220 mail.example.com ESMTP Postfix",
			want:    "smtp",
			wantHit: true,
		},
		{
			name:    "unmatched banner falls back to port",
			port:    3306,
			banner:  "garbage bytes",
			want:    "mysql",
			wantHit: true,
		},
		{
			name:    "no banner, known port",
			port:    443,
			want:    "https",
			wantHit: true,
		},
		{
			name:    "no banner, unknown port",
			port:    61337,
			wantHit: false,
		},
		{
			name:    "unmatched banner, unknown port",
			port:    61337,
			banner:  "???",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.port, []byte(tt.banner))

			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyBannerDeterministicOrder(t *testing.T) {
	// A banner matching both the nginx and generic HTTP patterns must
	// always resolve to the earlier table entry.
	banner := []byte("HTTP/1.1 200 OK\r\nServer: nginx")

	for i := 0; i < 100; i++ {
		got, ok := ClassifyBanner(banner)
		assert.True(t, ok)
		assert.Equal(t, "http/nginx", got)
	}
}
