// Package policy enforces the rules under which documents are created,
// accepted and removed. Every state-changing operation runs through the same
// three-phase scope - setup, apply, clean - so validation cannot be bypassed
// by any mutation path.
package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/portfolio"
)

// operation phases. clean always executes on leaving applying, success or not,
// so a reused scope cannot leak state between invocations.
type phase int

const (
	phaseIdle phase = iota
	phaseApplying
	phaseDone
	phaseFailed
)

// scope is the guarded three-phase state machine one operation runs in.
type scope struct {
	op     string
	phase  phase
	failed Reason
}

// run executes apply inside the scope. Parameters are bound by the caller
// before run (setup); release is the clean phase and is guaranteed to execute.
func (s *scope) run(apply func() error, release func()) error {
	if s.phase != phaseIdle {
		return fmt.Errorf("policy %s: scope reused before clean", s.op)
	}
	s.phase = phaseApplying
	defer func() {
		if release != nil {
			release()
		}
	}()

	if err := apply(); err != nil {
		s.phase = phaseFailed
		var pe *Error
		if errors.As(err, &pe) {
			s.failed = pe.Reason
		}
		return err
	}
	s.phase = phaseDone
	return nil
}

// Service runs policy operations. It owns no portfolio state; portfolios are
// passed per call and serialized through their own mutation scope.
type Service struct {
	log *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger used for audit lines.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New constructs the policy service.
func New(opts ...Option) *Service {
	s := &Service{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// audit records the outcome of one operation with its failing reason, if any.
func (s *Service) audit(ctx context.Context, sc *scope, err error, attrs ...any) {
	if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
		attrs = append(attrs, "trace_id", span.SpanContext().TraceID().String())
	}
	if err == nil {
		s.log.InfoContext(ctx, "policy applied", append([]any{"op", sc.op}, attrs...)...)
		observeOperation(sc.op, "applied", "")
		return
	}
	s.log.WarnContext(ctx, "policy rejected",
		append([]any{"op", sc.op, "reason", string(sc.failed), "error", err}, attrs...)...)
	observeOperation(sc.op, "rejected", string(sc.failed))
}

// notExpired is the shared expiry gate used by accept paths.
func notExpired(doc document.Document) bool {
	return !doc.Head().Expired(time.Now())
}

// verified wraps the crypto capability so every operation shares one
// verification path.
func verified(doc document.Document, issuer *portfolio.Portfolio) bool {
	return crypto.VerifyDocument(doc, issuer)
}
