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

// Package service maps banners and port numbers to service names.
package service

// Classify resolves a service name from a banner and port. A present
// banner is tested against the pattern table first, in fixed order; if no
// pattern matches, the static port table is consulted. A false return is
// a legitimate outcome, not an error.
func Classify(port int, banner []byte) (string, bool) {
	if len(banner) > 0 {
		if name, ok := ClassifyBanner(banner); ok {
			return name, ok
		}
	}

	return ClassifyPort(port)
}

// ClassifyBanner tests the banner against the signature table in
// deterministic order and returns the first match.
func ClassifyBanner(banner []byte) (string, bool) {
	for _, sig := range bannerSignatures {
		if sig.pattern.Match(banner) {
			return sig.service, true
		}
	}

	return "", false
}

// ClassifyPort looks up the static port-to-service table.
func ClassifyPort(port int) (string, bool) {
	name, ok := portServices[port]
	return name, ok
}
