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
	"net"
)

// DefaultMaxSweepHosts bounds CIDR expansion so a mistyped prefix cannot
// exhaust memory before any probe runs.
const DefaultMaxSweepHosts = 1 << 16

// ExpandCIDR expands a CIDR notation into a slice of candidate host
// addresses, skipping network and broadcast addresses for IPv4 networks
// narrower than /31. Expansion fails with ErrTooManyHosts once maxHosts is
// exceeded; maxHosts <= 0 selects DefaultMaxSweepHosts.
func ExpandCIDR(cidr string, maxHosts int) ([]string, error) {
	if maxHosts <= 0 {
		maxHosts = DefaultMaxSweepHosts
	}

	baseIP, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
	}

	ones, _ := ipnet.Mask.Size()
	skipEdges := baseIP.To4() != nil && ones < 31

	var hosts []string

	for ip := baseIP.Mask(ipnet.Mask); ipnet.Contains(ip); incIP(ip) {
		if skipEdges && (ip.Equal(ipnet.IP) || isBroadcast(ip, ipnet)) {
			continue
		}

		if len(hosts) >= maxHosts {
			return nil, fmt.Errorf("%w: %q exceeds %d hosts", ErrTooManyHosts, cidr, maxHosts)
		}

		hosts = append(hosts, ip.String())
	}

	return hosts, nil
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

// isBroadcast checks if an IP is the broadcast address of a network.
func isBroadcast(ip net.IP, ipnet *net.IPNet) bool {
	broadcast := make(net.IP, len(ip))
	for i := range ip {
		broadcast[i] = ipnet.IP[i] | ^ipnet.Mask[i]
	}

	return ip.Equal(broadcast)
}
