package integrity

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// step is one single-document operation of a saga. undo is the compensating action for the
// effect of do; it runs only when a later step fails.
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
	// bestEffort marks undo actions whose failure leaves no document inconsistency (blob cleanup)
	bestEffort bool
	// fails is the kind reported when this step fails and nothing needed compensating
	fails Kind
}

type saga struct {
	op    string
	steps []step
	log   zerolog.Logger
}

// run executes the steps strictly in order. On the first failure every completed step with an
// undo is compensated exactly once, newest first.
func (s *saga) run(ctx context.Context) error {
	for i, st := range s.steps {
		err := st.do(ctx)
		if err == nil {
			continue
		}
		return s.compensate(ctx, i, err)
	}
	return nil
}

func (s *saga) compensate(ctx context.Context, failed int, cause error) error {
	// The caller may be gone already, compensation must still reach the store
	ctx = context.WithoutCancel(ctx)
	failedStep := s.steps[failed]
	compensated, orphaned := false, false
	for j := failed - 1; j >= 0; j-- {
		prev := s.steps[j]
		if prev.undo == nil {
			continue
		}
		if orphaned && prev.bestEffort {
			// The orphaned document may still reference what this undo would remove
			s.log.Warn().Str("op", s.op).Str("skipped", prev.name).Msg("compensation skipped after orphan")
			continue
		}
		err := prev.undo(ctx)
		switch {
		case err == nil:
			if !prev.bestEffort {
				compensated = true
			}
			s.log.Warn().Err(cause).Str("op", s.op).Str("failed_step", failedStep.name).Str("undone", prev.name).Msg("compensated")
		case prev.bestEffort:
			s.log.Warn().Err(err).Str("op", s.op).Str("undo", prev.name).Msg("best-effort compensation failed")
		default:
			orphaned = true
			s.log.Error().Err(err).AnErr("cause", cause).Str("op", s.op).Str("failed_step", failedStep.name).Str("undo", prev.name).
				Msg("ORPHAN: compensation failed, store is left inconsistent")
		}
	}
	switch {
	case orphaned:
		return &Error{Op: s.op, Kind: OrphanDetected, Err: cause}
	case compensated:
		return &Error{Op: s.op, Kind: UpdateFailed, Err: cause}
	}
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	return &Error{Op: s.op, Kind: failedStep.fails, Err: cause}
}
