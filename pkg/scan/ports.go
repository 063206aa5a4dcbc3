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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const maxPort = 65535

// ParsePortRange parses a comma-separated port specification such as
// "22,80,8000-8100" into a sorted, deduplicated port list. The keywords
// "all" (1-65535) and an empty string (caller default) are not handled
// here; callers decide their own defaults.
func ParsePortRange(spec string) ([]int, error) {
	var ports []int

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, err := parsePortPart(part)
		if err != nil {
			return nil, err
		}

		for p := lo; p <= hi; p++ {
			ports = append(ports, p)
		}
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPortRange, spec)
	}

	return dedupeSorted(ports), nil
}

func parsePortPart(part string) (lo, hi int, err error) {
	if strings.Contains(part, "-") {
		bounds := strings.SplitN(part, "-", 2)

		lo, err = parsePort(bounds[0])
		if err != nil {
			return 0, 0, err
		}

		hi, err = parsePort(bounds[1])
		if err != nil {
			return 0, 0, err
		}

		if lo > hi {
			return 0, 0, fmt.Errorf("%w: %q start exceeds end", ErrInvalidPortRange, part)
		}

		return lo, hi, nil
	}

	lo, err = parsePort(part)

	return lo, lo, err
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > maxPort {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPortRange, s)
	}

	return p, nil
}

func dedupeSorted(ports []int) []int {
	sort.Ints(ports)

	out := ports[:1]

	for _, p := range ports[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}

	return out
}
