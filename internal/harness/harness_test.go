package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/schema"
	"github.com/roach88/beentity/internal/steps"
)

func TestRun_EntityBlockAndCounts(t *testing.T) {
	scenario := &Scenario{
		Name:        "entity_block",
		Description: "Provision one user with typed fields",
		Steps: []Step{
			{Entity: &EntityStep{
				Type:       "User",
				Identifier: "ann@example.com",
				Fields:     map[string]any{"logins": 3, "active": false},
			}},
			{Text: `Then the following User entities should exist`, Table: [][]string{
				{"email", "logins", "active"},
				{"ann@example.com", "3", "no"},
			}},
		},
		Counts: []Count{{Type: "User", Count: 1}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, TraceEvent{
		Step:       1,
		Op:         string(steps.OpEnsureEntity),
		Type:       "User",
		Identifier: "ann@example.com",
		Outcome:    OutcomeOK,
	}, result.Trace[0])
	assert.Equal(t, 1, result.Trace[1].Rows)
	assert.Equal(t, map[string]int{"User": 1}, result.Counts)
}

func TestRun_UnexpectedFailureIsRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected_failure",
		Description: "Assert a user that was never provisioned",
		Steps: []Step{
			{Text: `Then the following User entities should exist`, Table: [][]string{
				{"email"},
				{"ghost@example.com"},
			}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 1")
	assert.Contains(t, result.Errors[0], `expected a "User" entity for "ghost@example.com" but none exists`)
	assert.Equal(t, "expectation", result.Trace[0].Outcome)
	assert.Equal(t, []Failure{{
		Step:    1,
		Row:     1,
		Kind:    fixture.KindExpectation,
		Message: result.Errors[0],
	}}, result.Failures)
}

func TestRun_DeclaredFailureThatSucceeds(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_failure",
		Description: "A fails clause on a step that succeeds",
		Steps: []Step{
			{Text: `no User entity "ghost@example.com"`, Fails: "unexpected_entity"},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected unexpected_entity error, got none")
	assert.Equal(t, OutcomeOK, result.Trace[0].Outcome)
}

func TestRun_WrongFailureKind(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_kind",
		Description: "A step failing with a different kind than declared",
		Steps: []Step{
			{Text: `a Comment entity "x"`, Fails: "missing_entity"},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected missing_entity error, got missing_factory")
	require.Len(t, result.Failures, 1)
	assert.Equal(t, fixture.KindMissingFactory, result.Failures[0].Kind)
	assert.Equal(t, fixture.KindMissingEntity, result.Failures[0].Expected)
}

func TestRun_UnmatchedStepText(t *testing.T) {
	scenario := &Scenario{
		Name:        "unmatched",
		Description: "A sentence no binding recognizes",
		Steps:       []Step{{Text: "the moon is made of cheese"}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, OutcomeError, result.Trace[0].Outcome)
	assert.Empty(t, result.Trace[0].Op)
	assert.Contains(t, result.Trace[0].Error, "no step matches")
}

func TestRun_FailedBatchLeavesNothingStaged(t *testing.T) {
	scenario := &Scenario{
		Name:        "failed_batch",
		Description: "A batch with a bad row is discarded before the next step",
		Steps: []Step{
			{Text: `the following User entities`, Table: [][]string{
				{"email", "logins"},
				{"a@example.com", "1"},
				{"b@example.com", "lots"},
			}},
			{Text: `a User entity "c@example.com"`},
		},
		Counts: []Count{{Type: "User", Count: 1}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, OutcomeError, result.Trace[0].Outcome)
	assert.Contains(t, result.Trace[0].Error, "row 2")
	assert.Equal(t, OutcomeOK, result.Trace[1].Outcome)
	assert.Equal(t, 1, result.Counts["User"])
	assert.Len(t, result.Errors, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Step)
	assert.Equal(t, 2, result.Failures[0].Row)
	assert.Empty(t, result.Failures[0].Kind)
}

func TestRun_RowCommitKeepsEarlierRows(t *testing.T) {
	scenario := &Scenario{
		Name:        "row_commit",
		Description: "Per-row commit keeps rows before the failure",
		CommitMode:  "row",
		Steps: []Step{
			{Text: `the following User entities`, Table: [][]string{
				{"email", "logins"},
				{"a@example.com", "1"},
				{"b@example.com", "lots"},
			}},
		},
		Counts: []Count{{Type: "User", Count: 1}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	// Only the bad row is an error; the count matches.
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Counts["User"])
}

func TestRun_CountMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "count_mismatch",
		Description: "Count check failing",
		Steps:       []Step{{Text: `a User entity "a@example.com"`}},
		Counts: []Count{
			{Type: "User", Count: 2},
			{Type: "Comment", Count: 0},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "count User: expected 2, got 1", result.Errors[0])
	assert.Contains(t, result.Errors[1], "count Comment")
	assert.Zero(t, result.Failures[0].Step, "count checks are not tied to a step")
}

func TestRun_SchemaError(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_schema",
		Description: "Missing schema file",
		Schema:      []string{filepath.Join(t.TempDir(), "missing.cue")},
		Steps:       []Step{{Text: `a User entity "a@example.com"`}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")
}

func TestRun_WithDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.db")
	scenario := &Scenario{
		Name:        "file_db",
		Description: "Run against a database file",
		Steps:       []Step{{Text: `a User entity "a@example.com"`}},
		Counts:      []Count{{Type: "User", Count: 1}},
	}

	result, err := Run(context.Background(), scenario, WithDatabase(path))
	require.NoError(t, err)
	assert.True(t, result.Pass)

	// The file keeps the entity, so a second run sees it without creating another.
	result, err = Run(context.Background(), scenario, WithDatabase(path))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_WithDefinitionsAndCommitMode(t *testing.T) {
	def := schema.EntityDef{
		Name:       "Tag",
		Kind:       "tag",
		Identifier: "label",
		Fields:     []schema.FieldDef{{Name: "label", Type: "string"}},
	}
	scenario := &Scenario{
		Name:        "declared",
		Description: "Types from options",
		Steps: []Step{
			{Text: `the following Tag entities`, Table: [][]string{{"label"}, {"go"}, {"sql"}}},
		},
		Counts: []Count{{Type: "Tag", Count: 2}},
	}

	result, err := Run(context.Background(), scenario,
		WithDefinitions(def),
		WithCommitMode(steps.CommitPerRow),
	)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
