package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/queryir"
	"github.com/roach88/simkernel/internal/querysql"
)

const runColumns = `id, model, spec_digest, kernel_version, ir_version, steps_requested, start_seq, steps_run, stop_reason, final_digest`

// ReadRun retrieves a run header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the most recently started run.
// Returns sql.ErrNoRows if the journal is empty.
func (s *Store) LatestRun(ctx context.Context) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns all runs in the order they were started.
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the step summaries of a run ordered by step.
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]ir.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step, seq, evaluated, executed, applied, dropped, entities, relations, digest
		FROM steps
		WHERE run_id = ?
		ORDER BY step ASC, seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []ir.StepRecord{}
	for rows.Next() {
		var st ir.StepRecord
		if err := rows.Scan(
			&st.RunID, &st.Step, &st.Seq,
			&st.Evaluated, &st.Executed, &st.Applied, &st.Dropped,
			&st.Entities, &st.Relations, &st.Digest,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ReadCommands returns every command journalled for a run, in seq order.
func (s *Store) ReadCommands(ctx context.Context, runID string) ([]ir.CommandRecord, error) {
	return s.QueryJournal(ctx, queryir.JournalQuery{RunID: runID})
}

// QueryJournal runs a journal query compiled by querysql.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryJournal(ctx context.Context, q queryir.JournalQuery) ([]ir.CommandRecord, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	commands := []ir.CommandRecord{}
	for rows.Next() {
		var c ir.CommandRecord
		if err := rows.Scan(
			&c.RunID, &c.Step, &c.Seq, &c.Kind, &c.Target, &c.Origin, &c.Process,
			&c.Outcome, &c.ErrorCode, &c.Error, &c.Created, &c.Payload,
		); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		commands = append(commands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return commands, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.Run, error) {
	var run ir.Run
	err := row.Scan(
		&run.ID, &run.Model, &run.SpecDigest, &run.KernelVersion, &run.IRVersion,
		&run.StepsRequested, &run.StartSeq, &run.StepsRun, &run.StopReason, &run.FinalDigest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, err
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
