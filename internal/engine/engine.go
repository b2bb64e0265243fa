package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/herald/internal/adapter"
	"github.com/roach88/herald/internal/differential"
	"github.com/roach88/herald/internal/ir"
	"github.com/roach88/herald/internal/store"
)

// DefaultSystemActorPHID is the actor background cycles rehydrate as when
// none is configured.
const DefaultSystemActorPHID ir.PHID = "PHID-USER-herald"

// Event identifies a revision update to evaluate: the revision and the
// diff that was just attached to it.
type Event struct {
	RevisionID int64 `json:"revision_id"`
	DiffID     int64 `json:"diff_id"`
}

// EffectSource produces the effects of rule matching for one cycle.
//
// Rule matching itself lives outside herald. The source receives the
// rehydrated adapter so it can evaluate conditions against the revision,
// its changesets and its affected packages.
type EffectSource interface {
	Effects(ctx context.Context, a *differential.RevisionAdapter) ([]ir.Effect, error)
}

// EffectSourceFunc adapts a function to EffectSource.
type EffectSourceFunc func(ctx context.Context, a *differential.RevisionAdapter) ([]ir.Effect, error)

// Effects calls f(ctx, a).
func (f EffectSourceFunc) Effects(ctx context.Context, a *differential.RevisionAdapter) ([]ir.Effect, error) {
	return f(ctx, a)
}

// StaticEffects is an EffectSource that ignores the adapter and always
// returns the same effects, e.g. effects compiled from a file.
type StaticEffects []ir.Effect

// Effects implements EffectSource.
func (s StaticEffects) Effects(context.Context, *differential.RevisionAdapter) ([]ir.Effect, error) {
	return s, nil
}

// CycleResult is the outcome of one evaluation cycle.
type CycleResult struct {
	CycleToken  string                  `json:"cycle_token"`
	Event       Event                   `json:"event"`
	Transcripts []ir.Transcript         `json:"transcripts"`
	BuildPlans  []ir.Value              `json:"build_plans"`
	Revision    *ir.Revision            `json:"revision"`
	Standard    adapter.StandardApplier `json:"-"`
}

// Engine runs evaluation cycles against a store.
//
// RunCycle evaluates one event synchronously. Enqueue and Run provide a
// single-writer background worker over the same path: jobs are evaluated
// one at a time in FIFO order.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - RunCycle(): callers must not run cycles concurrently with Run
type Engine struct {
	store       *store.Store
	clock       *Clock
	tokens      CycleTokenGenerator
	actor       ir.Actor
	newStandard func() adapter.StandardApplier
	queue       *jobQueue
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the logical clock. Use NewClockAt(store.LastSeq) to
// continue the sequence of an existing audit log.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSystemActor sets the actor cycles rehydrate revisions as.
// The actor is forced to be a system actor.
func WithSystemActor(phid ir.PHID) Option {
	return func(e *Engine) {
		e.actor = ir.NewSystemActor(phid)
	}
}

// WithStandardApplier sets the factory for the per-cycle standard applier.
// The default is adapter.NewStandard.
func WithStandardApplier(factory func() adapter.StandardApplier) Option {
	return func(e *Engine) {
		e.newStandard = factory
	}
}

// New creates an Engine over s, stamping cycles with tokens from tokens.
func New(s *store.Store, tokens CycleTokenGenerator, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		clock:       NewClock(),
		tokens:      tokens,
		actor:       ir.NewSystemActor(DefaultSystemActorPHID),
		newStandard: defaultStandard,
		queue:       newJobQueue(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func defaultStandard() adapter.StandardApplier {
	return adapter.NewStandard()
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// RunCycle evaluates ev: it rehydrates the revision, asks src for effects,
// applies them, and persists the cycle, its transcripts, the queued build
// plans and the revision's updated reviewer and CC edges in one
// transaction.
//
// Failures before effects are applied return a *CycleError and write
// nothing. A storage failure after application is returned wrapped and
// also leaves nothing written.
func (e *Engine) RunCycle(ctx context.Context, ev Event, src EffectSource) (*CycleResult, error) {
	if src == nil {
		src = StaticEffects(nil)
	}
	token := e.tokens.Generate()
	log := slog.With("cycle", token, "revision", ev.RevisionID, "diff", ev.DiffID)
	log.Debug("cycle starting")

	diff, err := e.store.LoadDiff(ctx, ev.DiffID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newCycleError(ErrCodeDiffNotFound, token, ev, nil, "diff %d not found", ev.DiffID)
	}
	if err != nil {
		return nil, fmt.Errorf("cycle %s: load diff: %w", token, err)
	}
	if diff.RevisionID != ev.RevisionID {
		return nil, newCycleError(ErrCodeDiffMismatch, token, ev, nil,
			"diff %d belongs to revision %d", diff.ID, diff.RevisionID)
	}

	standard := e.newStandard()
	a, err := differential.NewLegacyAdapter(ctx, e.store.Sources(standard), e.actor, ev.RevisionID, diff)
	switch {
	case errors.Is(err, differential.ErrRevisionNotFound):
		return nil, newCycleError(ErrCodeRevisionNotFound, token, ev, err, "revision %d not found", ev.RevisionID)
	case errors.Is(err, differential.ErrRevisionAmbiguous):
		return nil, newCycleError(ErrCodeRevisionAmbiguous, token, ev, err, "revision %d is ambiguous", ev.RevisionID)
	case err != nil:
		return nil, fmt.Errorf("cycle %s: %w", token, err)
	}

	effects, err := src.Effects(ctx, a)
	if err != nil {
		return nil, newCycleError(ErrCodeEffectSourceFailed, token, ev, err, "effect source failed")
	}

	transcripts := a.ApplyEffects(effects)
	for i := range transcripts {
		transcripts[i].Seq = e.clock.Next()
		if err := transcripts[i].Seal(token); err != nil {
			return nil, fmt.Errorf("cycle %s: seal transcript %d: %w", token, i, err)
		}
	}

	rev := a.Revision()
	plans := a.BuildPlans()
	if plans == nil {
		plans = []ir.Value{}
	}
	err = e.store.WriteCycle(ctx, store.CycleRecord{
		CycleToken:  token,
		Revision:    *rev,
		DiffID:      diff.ID,
		Transcripts: transcripts,
		BuildPlans:  plans,
	})
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", token, err)
	}

	applied := 0
	for _, tr := range transcripts {
		if tr.Applied {
			applied++
		}
	}
	log.Info("cycle complete",
		"effects", len(effects),
		"applied", applied,
		"build_plans", len(plans),
	)

	return &CycleResult{
		CycleToken:  token,
		Event:       ev,
		Transcripts: transcripts,
		BuildPlans:  plans,
		Revision:    rev,
		Standard:    standard,
	}, nil
}

// RunBatch runs jobs in order. A failed job is logged and skipped; its
// slot in the result is nil. The returned error joins every failure.
func (e *Engine) RunBatch(ctx context.Context, jobs []Job) ([]*CycleResult, error) {
	results := make([]*CycleResult, len(jobs))
	var errs []error

	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			return results, errors.Join(append(errs, err)...)
		}
		res, err := e.RunCycle(ctx, j.Event, j.Effects)
		if err != nil {
			logCycleError(j.Event, err)
			errs = append(errs, err)
			continue
		}
		results[i] = res
	}

	return results, errors.Join(errs...)
}

// Enqueue submits a job for the Run loop.
// Safe from any goroutine. Returns false once the engine is stopped.
func (e *Engine) Enqueue(j Job) bool {
	return e.queue.Enqueue(j)
}

// Run evaluates queued jobs until ctx is cancelled or Stop is called and
// the queue has drained.
//
// A failed cycle is logged with its event and processing continues; the
// failure is already recorded by the absence of transcripts for it.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "actor", e.actor.PHID)

	for {
		if j, ok := e.queue.TryDequeue(); ok {
			if _, err := e.RunCycle(ctx, j.Event, j.Effects); err != nil {
				logCycleError(j.Event, err)
			}
			continue
		}

		if e.queue.Drained() {
			slog.Info("engine stopping: queue closed")
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
		}
	}
}

// Stop stops accepting jobs. Run returns once queued jobs are done.
func (e *Engine) Stop() {
	e.queue.Close()
}

func logCycleError(ev Event, err error) {
	var ce *CycleError
	if errors.As(err, &ce) {
		slog.Error("cycle failed",
			"code", ce.Code,
			"cycle", ce.CycleToken,
			"revision", ev.RevisionID,
			"diff", ev.DiffID,
			"error", err,
		)
		return
	}
	slog.Error("cycle failed",
		"revision", ev.RevisionID,
		"diff", ev.DiffID,
		"error", err,
	)
}
