package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const tagSchema = `package schema

entity: Tag: {
	identifier: "label"
	fields: {
		label: string
		uses:  int | *0
	}
}
`

const passingScenario = `name: users_pass
description: "Provision and assert one user"
steps:
  - step: Given a User entity "ann@example.com" with name "Ann"
  - step: Then the following User entities should exist
    table:
      - [email, name]
      - [ann@example.com, Ann]
counts:
  - {type: User, count: 1}
`

const failingScenario = `name: users_fail
description: "Assert a user that does not exist"
steps:
  - step: Then the following User entities should exist
    table:
      - [email]
      - [ghost@example.com]
`
