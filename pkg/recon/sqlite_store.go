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
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/farwatch/netrecon/pkg/models"
)

// SQLiteStore persists scan history to a local database file. Unlike the
// in-memory store it is append-only: every probe outcome is kept.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT,
	host TEXT NOT NULL,
	port INTEGER NOT NULL,
	protocol TEXT NOT NULL,
	state TEXT NOT NULL,
	service TEXT,
	banner BLOB,
	timestamp_ns INTEGER NOT NULL,
	latency_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_results_host ON scan_results(host);
CREATE INDEX IF NOT EXISTS idx_scan_results_timestamp ON scan_results(timestamp_ns);
`

// NewSQLiteStore opens (creating if needed) the database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open scan history database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize scan history schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveResults(ctx context.Context, results []models.ScanResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_results (batch_id, host, port, protocol, state, service, banner, timestamp_ns, latency_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}

	defer stmt.Close()

	for i := range results {
		r := &results[i]

		if _, err := stmt.ExecContext(ctx,
			r.BatchID, r.Host, r.Port, string(r.Protocol), string(r.State),
			r.Service, r.Banner, r.Timestamp.UnixNano(), int64(r.Latency)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert result %s:%d: %w", r.Host, r.Port, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetResults(ctx context.Context, filter *ResultFilter) ([]models.ScanResult, error) {
	query := `SELECT batch_id, host, port, protocol, state, service, banner, timestamp_ns, latency_ns FROM scan_results`

	var (
		clauses []string
		args    []any
	)

	if filter != nil {
		if filter.Host != "" {
			clauses = append(clauses, "host = ?")
			args = append(args, filter.Host)
		}

		if filter.Port != 0 {
			clauses = append(clauses, "port = ?")
			args = append(args, filter.Port)
		}

		if filter.State != "" {
			clauses = append(clauses, "state = ?")
			args = append(args, string(filter.State))
		}

		if !filter.Since.IsZero() {
			clauses = append(clauses, "timestamp_ns >= ?")
			args = append(args, filter.Since.UnixNano())
		}
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scan history: %w", err)
	}

	defer rows.Close()

	var out []models.ScanResult

	for rows.Next() {
		var (
			r       models.ScanResult
			proto   string
			state   string
			service sql.NullString
			batchID sql.NullString
			tsNs    int64
			latNs   int64
		)

		if err := rows.Scan(&batchID, &r.Host, &r.Port, &proto, &state, &service, &r.Banner, &tsNs, &latNs); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		r.BatchID = batchID.String
		r.Protocol = models.Protocol(proto)
		r.State = models.PortState(state)
		r.Service = service.String
		r.Timestamp = time.Unix(0, tsNs)
		r.Latency = time.Duration(latNs)

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	var last sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN state = 'open' THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT host),
		       COUNT(DISTINCT CASE WHEN state = 'open' THEN host END),
		       MAX(timestamp_ns)
		FROM scan_results`).
		Scan(&summary.TotalResults, &summary.OpenPorts, &summary.Hosts, &summary.HostsUp, &last)
	if err != nil {
		return nil, fmt.Errorf("aggregate scan history: %w", err)
	}

	if last.Valid {
		summary.LastScan = time.Unix(0, last.Int64)
	}

	return summary, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
