package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const peopleProfile = `package test

profile: people: {
	fields: {
		age:    "integer"
		status: "string"
	}
	rules: {
		adult: {field: "age", greaterThanOrEqualTo: 18}
		active: {field: "status", inSet: ["active"]}
	}
}
`

const cityProfile = `package test

profile: cities: {
	fields: city: "string"
	rules: known: {field: "city", inSet: ["Leeds", "York"]}
}
`

// writeProfiles writes each CUE source to its own file in a temp directory.
func writeProfiles(t *testing.T, sources ...string) string {
	t.Helper()
	dir := t.TempDir()
	for i, src := range sources {
		name := filepath.Join(dir, "profile"+string(rune('a'+i))+".cue")
		require.NoError(t, os.WriteFile(name, []byte(src), 0o644))
	}
	return dir
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
