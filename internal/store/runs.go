package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tracecheck/tracecheck/internal/validate"
)

// Run is one recorded validation or digest run.
type Run struct {
	ID         int64                `json:"id"`
	Scenario   string               `json:"scenario"`
	Verdict    string               `json:"verdict"`
	Digest     string               `json:"digest,omitempty"`
	Violations []validate.Violation `json:"violations,omitempty"`
	SpanCount  int                  `json:"span_count"`
	CreatedAt  string               `json:"created_at"`
}

// RecordRun inserts one run row and returns its ID.
// Violations are serialized as JSON for later display.
func (s *Store) RecordRun(ctx context.Context, scenario, verdict, digest string, violations []validate.Violation, spanCount int) (int64, error) {
	if violations == nil {
		violations = []validate.Violation{}
	}
	violationsJSON, err := json.Marshal(violations)
	if err != nil {
		return 0, fmt.Errorf("record run: failed to marshal violations: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (scenario, verdict, digest, violations, span_count)
		VALUES (?, ?, ?, ?, ?)
	`, scenario, verdict, digest, string(violationsJSON), spanCount)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// ListRuns returns all runs for a scenario, oldest first.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, verdict, digest, violations, span_count, created_at
		FROM runs WHERE scenario = ? ORDER BY id
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var violationsJSON string
		if err := rows.Scan(&r.ID, &r.Scenario, &r.Verdict, &r.Digest, &violationsJSON, &r.SpanCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if err := json.Unmarshal([]byte(violationsJSON), &r.Violations); err != nil {
			return nil, fmt.Errorf("list runs: corrupt violations for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LastDigest returns the most recently recorded non-empty digest for a
// scenario, or ("", false) when none exists.
func (s *Store) LastDigest(ctx context.Context, scenario string) (string, bool, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `
		SELECT digest FROM runs
		WHERE scenario = ? AND digest != ''
		ORDER BY id DESC LIMIT 1
	`, scenario).Scan(&digest)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("last digest: %w", err)
	}
	return digest, true, nil
}
