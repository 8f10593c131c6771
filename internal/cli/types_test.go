package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesCommand_BuiltIns(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "Article")
	assert.Contains(t, out, "User")
	assert.Contains(t, out, "active, email, logins, name, password")
}

func TestTypesCommand_WithSchemaJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tag.cue", tagSchema)

	out, err := execute(t, "types", "--schema", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []TypeInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)
	// Sorted by type name.
	assert.Equal(t, "Article", resp.Data[0].Name)
	assert.Equal(t, TypeInfo{Name: "Tag", Kind: "tag", Fields: []string{"label", "uses"}}, resp.Data[1])
	assert.Equal(t, "user", resp.Data[2].Kind)
}

func TestTypesCommand_BadSchema(t *testing.T) {
	_, err := execute(t, "types", "--schema", "/nonexistent/schema")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
