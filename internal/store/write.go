package store

import (
	"context"
	"fmt"
	"sort"
)

// NextSeq returns the seq for the next recorded command. Pass and sim runs
// share one sequence so a mixed history interleaves in command order.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM pass_runs UNION ALL SELECT seq FROM sim_runs
		)`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return last + 1, nil
}

// WritePassRun records one optimizer run and its per-rule rewrite counts
// atomically. Re-recording a known run ID leaves the stored run untouched.
func (s *Store) WritePassRun(ctx context.Context, run PassRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write pass run %s: %w", run.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO pass_runs (`+passRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		run.ID, run.Seq, formatTime(run.StartedAt), run.PackageName,
		run.InputHash, run.OutputHash, run.OptLevel, boolToInt(run.Changed), run.Iterations)
	if err != nil {
		return fmt.Errorf("write pass run %s: %w", run.ID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write pass run %s: %w", run.ID, err)
	}
	if inserted == 0 {
		return nil
	}

	rules := make([]string, 0, len(run.Rewrites))
	for rule := range run.Rewrites {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pass_rewrites (run_id, rule, count) VALUES (?, ?, ?)`,
			run.ID, rule, run.Rewrites[rule]); err != nil {
			return fmt.Errorf("write rewrite count %s for %s: %w", rule, run.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write pass run %s: %w", run.ID, err)
	}
	return nil
}

// WriteSimRun records one simulation verdict. Re-recording a known run ID
// is a no-op.
func (s *Store) WriteSimRun(ctx context.Context, run SimRun) error {
	details, err := marshalDetails(run.Details)
	if err != nil {
		return fmt.Errorf("write sim run %s: %w", run.ID, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sim_runs (`+simRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		run.ID, run.Seq, formatTime(run.StartedAt), run.PackageHash, run.Mode, run.Top,
		run.Backend, run.Cycles, run.LastOutputCycle, run.Status, run.Message, details); err != nil {
		return fmt.Errorf("write sim run %s: %w", run.ID, err)
	}
	return nil
}
