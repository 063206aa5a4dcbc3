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

import "regexp"

type signature struct {
	pattern *regexp.Regexp
	service string
}

// bannerSignatures is evaluated in order; more specific patterns come
// before generic ones. Read-only after init, safe for concurrent use.
var bannerSignatures = []signature{
	{regexp.MustCompile(`(?i)^SSH-`), "ssh"},
	{regexp.MustCompile(`(?i)nginx`), "http/nginx"},
	{regexp.MustCompile(`(?i)apache`), "http/apache"},
	{regexp.MustCompile(`(?i)^HTTP/`), "http"},
	{regexp.MustCompile(`(?i)^220[ -].*ftp`), "ftp"},
	{regexp.MustCompile(`(?i)^220[ -].*(smtp|esmtp|postfix|exim|sendmail)`), "smtp"},
	{regexp.MustCompile(`(?i)^220[ -]`), "smtp"},
	{regexp.MustCompile(`(?i)^\+OK`), "pop3"},
	{regexp.MustCompile(`(?i)^\* OK.*imap`), "imap"},
	{regexp.MustCompile(`(?i)mysql`), "mysql"},
	{regexp.MustCompile(`(?i)-ERR wrong number|redis`), "redis"},
	{regexp.MustCompile(`(?i)mongodb`), "mongodb"},
	{regexp.MustCompile(`(?i)^RFB `), "vnc"},
	{regexp.MustCompile(`(?i)telnet`), "telnet"},
}

// portServices is the static fallback used when no banner pattern
// matched. Read-only, shared without locking.
var portServices = map[int]string{
	20:    "ftp-data",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	67:    "dhcp",
	68:    "dhcp",
	69:    "tftp",
	80:    "http",
	110:   "pop3",
	111:   "rpcbind",
	123:   "ntp",
	135:   "msrpc",
	137:   "netbios-ns",
	139:   "netbios-ssn",
	143:   "imap",
	161:   "snmp",
	162:   "snmptrap",
	389:   "ldap",
	443:   "https",
	445:   "microsoft-ds",
	465:   "smtps",
	514:   "syslog",
	587:   "submission",
	636:   "ldaps",
	993:   "imaps",
	995:   "pop3s",
	1080:  "socks",
	1433:  "mssql",
	1521:  "oracle",
	1723:  "pptp",
	2049:  "nfs",
	3000:  "http-alt",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5060:  "sip",
	5222:  "xmpp-client",
	5432:  "postgresql",
	5900:  "vnc",
	5985:  "winrm",
	6379:  "redis",
	8000:  "http-alt",
	8080:  "http-proxy",
	8443:  "https-alt",
	9200:  "elasticsearch",
	11211: "memcached",
	27017: "mongodb",
}
