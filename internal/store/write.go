package store

import (
	"context"
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
)

// BeginRun inserts a run header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) BeginRun(ctx context.Context, run ir.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, model, spec_digest, kernel_version, ir_version, steps_requested, start_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Model,
		run.SpecDigest,
		run.KernelVersion,
		run.IRVersion,
		run.StepsRequested,
		run.StartSeq,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteStep records a step summary and its commands in one transaction.
// The run must exist (foreign key constraint). Re-writing the same step is
// a no-op.
func (s *Store) WriteStep(ctx context.Context, step ir.StepRecord, commands []ir.CommandRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write step: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, step, seq, evaluated, executed, applied, dropped, entities, relations, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`,
		step.RunID,
		step.Step,
		step.Seq,
		step.Evaluated,
		step.Executed,
		step.Applied,
		step.Dropped,
		step.Entities,
		step.Relations,
		step.Digest,
	)
	if err != nil {
		return fmt.Errorf("write step %d: %w", step.Step, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commands
		(run_id, step, seq, kind, target, origin, process, outcome, error_code, error, created, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write step %d: prepare: %w", step.Step, err)
	}
	defer stmt.Close()

	for _, c := range commands {
		_, err := stmt.ExecContext(ctx,
			c.RunID,
			c.Step,
			c.Seq,
			c.Kind,
			c.Target,
			c.Origin,
			c.Process,
			c.Outcome,
			c.ErrorCode,
			c.Error,
			c.Created,
			c.Payload,
		)
		if err != nil {
			return fmt.Errorf("write step %d: command seq %d: %w", step.Step, c.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write step %d: commit: %w", step.Step, err)
	}
	return nil
}

// FinishRun fills the finish columns of a run header.
func (s *Store) FinishRun(ctx context.Context, run ir.Run) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET steps_run = ?, stop_reason = ?, final_digest = ?
		WHERE id = ?
	`,
		run.StepsRun,
		run.StopReason,
		run.FinalDigest,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", run.ID)
	}
	return nil
}
