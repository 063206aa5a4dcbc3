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
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/farwatch/netrecon/pkg/models"
)

// Reporter is the rendering sink for scan results. It has no return value
// and no side effect on scan state; the engine functions identically with
// a no-op implementation.
type Reporter interface {
	Render(results []models.ScanResult)
}

// Auditor receives scan events for an external audit trail. Failures are
// swallowed by the engine and never affect scan results.
type Auditor interface {
	LogEvent(operation, target string, results []models.ScanResult) error
}

// NopReporter discards all output.
type NopReporter struct{}

func (NopReporter) Render([]models.ScanResult) {}

// TableReporter writes an aligned text table to w.
type TableReporter struct {
	W io.Writer

	// OpenOnly suppresses closed/filtered/unknown rows.
	OpenOnly bool
}

func (r *TableReporter) Render(results []models.ScanResult) {
	tw := tabwriter.NewWriter(r.W, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "HOST\tPORT\tPROTO\tSTATE\tSERVICE\tLATENCY")

	for i := range results {
		res := &results[i]

		if r.OpenOnly && res.State != models.StateOpen {
			continue
		}

		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			res.Host, res.Port, res.Protocol, res.State, res.Service, res.Latency.Round(time.Microsecond))
	}

	_ = tw.Flush()
}

// JSONReporter writes results as a JSON array to w, one render per batch.
type JSONReporter struct {
	W io.Writer

	OpenOnly bool
}

func (r *JSONReporter) Render(results []models.ScanResult) {
	if r.OpenOnly {
		filtered := make([]models.ScanResult, 0, len(results))

		for i := range results {
			if results[i].State == models.StateOpen {
				filtered = append(filtered, results[i])
			}
		}

		results = filtered
	}

	enc := json.NewEncoder(r.W)
	enc.SetIndent("", "  ")
	_ = enc.Encode(results)
}
