package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/beentity/internal/entities"
	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/schema"
	"github.com/roach88/beentity/internal/steps"
	"github.com/roach88/beentity/internal/store"
	"github.com/roach88/beentity/internal/testutil"
)

// Harness holds the per-run state of one scenario.
type Harness struct {
	store  *store.Store
	steps  *steps.Context
	logger *slog.Logger
}

type runConfig struct {
	database string
	logger   *slog.Logger
	defs     []schema.EntityDef
	mode     string
}

// Option configures Run.
type Option func(*runConfig)

// WithDatabase runs the scenario against a database file instead of a
// throwaway in-memory one. The file is reused as is; leftover rows affect
// the scenario.
func WithDatabase(path string) Option {
	return func(c *runConfig) {
		c.database = path
	}
}

// WithLogger sets the logger passed to the fixture context.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithDefinitions registers declared entity types in addition to the
// scenario's own schema files.
func WithDefinitions(defs ...schema.EntityDef) Option {
	return func(c *runConfig) {
		c.defs = append(c.defs, defs...)
	}
}

// WithCommitMode sets the commit mode for scenarios that don't choose one.
func WithCommitMode(mode steps.CommitMode) Option {
	return func(c *runConfig) {
		c.mode = mode.String()
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential keys, so
// the trace is identical on every run.
//
// Execution flow:
// 1. Compile the scenario's schema files
// 2. Open the store and build a fixture context with the built-in and declared types
// 3. Run each step, comparing its outcome to the step's fails clause
// 4. Check counts of committed entities
//
// A step failing unexpectedly is recorded in Result.Errors and the run
// continues. Run itself only returns an error when the scenario cannot start.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		database: ":memory:",
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	own, err := schema.LoadFiles(scenario.Schema...)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	defs := append(append([]schema.EntityDef(nil), cfg.defs...), own...)

	modeName := scenario.CommitMode
	if modeName == "" {
		modeName = cfg.mode
	}
	mode, err := steps.ParseCommitMode(modeName)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.database, store.WithKeyGenerator(testutil.NewSequentialKeys("")))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		steps: steps.New(st,
			steps.WithRegistrar(entities.Registrar(defs...)),
			steps.WithCommitMode(mode),
			steps.WithLogger(cfg.logger),
		),
		logger: cfg.logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i+1, step, result)
	}
	h.checkCounts(ctx, scenario.Counts, result)

	return result, nil
}

// executeStep runs one step and records its trace event. A failed step leaves
// no staged changes behind for the next one.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) {
	ev, err := h.dispatch(ctx, step)
	ev.Step = n

	kind := ""
	if err != nil {
		kind = fixture.Kind(err)
		ev.Outcome = kind
		if kind == "" {
			ev.Outcome = OutcomeError
		}
		ev.Error = err.Error()
		h.store.Clear()
	} else {
		ev.Outcome = OutcomeOK
	}
	result.AddTrace(ev)

	label := describe(step)
	failure := Failure{Step: n, Row: rowOf(err), Kind: kind, Expected: step.Fails}
	switch {
	case step.Fails == "" && err != nil:
		failure.Message = fmt.Sprintf("step %d (%s): %v", n, label, err)
	case step.Fails != "" && err == nil:
		failure.Message = fmt.Sprintf("step %d (%s): expected %s error, got none", n, label, step.Fails)
	case step.Fails != "" && kind != step.Fails:
		failure.Message = fmt.Sprintf("step %d (%s): expected %s error, got %s: %v", n, label, step.Fails, ev.Outcome, err)
	}
	if failure.Message != "" {
		result.AddFailure(failure)
	}

	h.logger.Debug("step executed", "step", n, "op", ev.Op, "outcome", ev.Outcome)
}

func (h *Harness) dispatch(ctx context.Context, step Step) (TraceEvent, error) {
	if step.Entity != nil {
		ev := TraceEvent{
			Op:         string(steps.OpEnsureEntity),
			Type:       step.Entity.Type,
			Identifier: step.Entity.Identifier,
		}
		fields, err := fixture.FieldSetFromMap(step.Entity.Fields)
		if err != nil {
			return ev, err
		}
		_, err = h.steps.EnsureEntity(ctx, step.Entity.Type, step.Entity.Identifier, fields)
		return ev, err
	}

	var table *steps.Table
	if len(step.Table) > 0 {
		t, err := steps.TableFromRows(step.Table)
		if err != nil {
			return TraceEvent{}, err
		}
		table = t
	}

	call, err := steps.Dispatch(ctx, h.steps, step.Text, table)
	ev := TraceEvent{
		Op:         string(call.Op),
		Type:       call.Type,
		Identifier: call.Identifier,
	}
	if call.Table != nil {
		ev.Rows = call.Table.Len()
	}
	return ev, err
}

// checkCounts compares committed entity counts per type.
func (h *Harness) checkCounts(ctx context.Context, counts []Count, result *Result) {
	for _, c := range counts {
		kind, err := h.kindOf(ctx, c.Type)
		if err != nil {
			result.AddError(fmt.Sprintf("count %s: %v", c.Type, err))
			continue
		}
		got, err := h.store.Count(ctx, kind)
		if err != nil {
			result.AddError(fmt.Sprintf("count %s: %v", c.Type, err))
			continue
		}
		result.Counts[c.Type] = got
		if got != c.Count {
			result.AddError(fmt.Sprintf("count %s: expected %d, got %d", c.Type, c.Count, got))
		}
	}
}

// kindOf maps a type name to its stored kind through a throwaway entity.
// The entity is never persisted.
func (h *Harness) kindOf(ctx context.Context, typeName string) (string, error) {
	f, err := h.steps.Factory(typeName)
	if err != nil {
		return "", err
	}
	e, err := f.New(ctx, "")
	if err != nil {
		return "", err
	}
	return e.Kind(), nil
}

// rowOf returns the table row err names, or 0.
func rowOf(err error) int {
	var expectation *fixture.ExpectationError
	if errors.As(err, &expectation) {
		return expectation.Row
	}
	var rowErr *steps.RowError
	if errors.As(err, &rowErr) {
		return rowErr.Row
	}
	return 0
}

func describe(step Step) string {
	if step.Entity != nil {
		return fmt.Sprintf("entity %s %q", step.Entity.Type, step.Entity.Identifier)
	}
	return step.Text
}
