package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	passRunColumns = `id, seq, started_at, package_name, input_hash, output_hash, opt_level, changed, iterations`
	simRunColumns  = `id, seq, started_at, package_hash, mode, top, backend, cycles, last_output_cycle, status, message, details`

	// History listings follow command order, not wall time.
	historyOrder = ` ORDER BY seq ASC, id COLLATE BINARY ASC`
)

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// collect runs query and scans every row with scan. what names the rows in
// errors. The result is never nil.
func collect[T any](ctx context.Context, db *sql.DB, what string, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}

// ReadPassRuns lists the optimizer history in seq order, each run with the
// per-rule rewrite counts it recorded.
func (s *Store) ReadPassRuns(ctx context.Context) ([]PassRun, error) {
	runs, err := collect(ctx, s.db, "pass runs", scanPassRun,
		`SELECT `+passRunColumns+` FROM pass_runs`+historyOrder)
	if err != nil {
		return nil, err
	}
	// Rewrites are fetched after the run cursor closes; the store holds a
	// single connection.
	for i := range runs {
		if runs[i].Rewrites, err = s.readRewrites(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

type rewriteCount struct {
	rule  string
	count int
}

func (s *Store) readRewrites(ctx context.Context, runID string) (map[string]int, error) {
	counts, err := collect(ctx, s.db, "rewrites", func(row scanner) (rewriteCount, error) {
		var rc rewriteCount
		if err := row.Scan(&rc.rule, &rc.count); err != nil {
			return rc, fmt.Errorf("scan rewrite: %w", err)
		}
		return rc, nil
	}, `SELECT rule, count FROM pass_rewrites WHERE run_id = ? ORDER BY rule COLLATE BINARY ASC`, runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts))
	for _, rc := range counts {
		out[rc.rule] = rc.count
	}
	return out, nil
}

// ReadSimRuns lists simulation verdicts in seq order. With failedOnly, runs
// whose status is OK are left out.
func (s *Store) ReadSimRuns(ctx context.Context, failedOnly bool) ([]SimRun, error) {
	query := `SELECT ` + simRunColumns + ` FROM sim_runs`
	var args []any
	if failedOnly {
		query += ` WHERE status != ?`
		args = append(args, StatusOK)
	}
	return collect(ctx, s.db, "sim runs", scanSimRun, query+historyOrder, args...)
}

// ReadSimRun looks up one simulation verdict. A missing ID reports false
// with a nil error.
func (s *Store) ReadSimRun(ctx context.Context, id string) (SimRun, bool, error) {
	run, err := scanSimRun(s.db.QueryRowContext(ctx,
		`SELECT `+simRunColumns+` FROM sim_runs WHERE id = ?`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return SimRun{}, false, nil
	case err != nil:
		return SimRun{}, false, err
	}
	return run, true, nil
}

func scanPassRun(row scanner) (PassRun, error) {
	var (
		run       PassRun
		startedAt string
		changed   int
	)
	if err := row.Scan(&run.ID, &run.Seq, &startedAt, &run.PackageName,
		&run.InputHash, &run.OutputHash, &run.OptLevel, &changed, &run.Iterations); err != nil {
		return PassRun{}, fmt.Errorf("scan pass run: %w", err)
	}
	run.Changed = changed != 0
	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return PassRun{}, err
	}
	return run, nil
}

func scanSimRun(row scanner) (SimRun, error) {
	var (
		run                  SimRun
		startedAt, detailsJS string
	)
	err := row.Scan(&run.ID, &run.Seq, &startedAt, &run.PackageHash, &run.Mode, &run.Top,
		&run.Backend, &run.Cycles, &run.LastOutputCycle, &run.Status, &run.Message, &detailsJS)
	if err != nil {
		return SimRun{}, fmt.Errorf("scan sim run: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return SimRun{}, err
	}
	if run.Details, err = unmarshalDetails(detailsJS); err != nil {
		return SimRun{}, err
	}
	return run, nil
}
