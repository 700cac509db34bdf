package integration_tests

import (
	"context"
	"testing"

	"github.com/specialistvlad/launchgrid/internal/app"
	"github.com/specialistvlad/launchgrid/internal/session"
	"github.com/specialistvlad/launchgrid/internal/subst"
	"github.com/stretchr/testify/require"
)

// Test for: problems found while loading or resolving stop the run before
// any process starts.
func TestErrorHandling_SessionErrors(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name: "syntax error",
			files: map[string]string{"main.hcl": `
process "talker" {
  cmd = ["echo"
`},
			check: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "failed to parse")
			},
		},
		{
			name: "unknown function",
			files: map[string]string{"main.hcl": `
process "talker" {
  cmd = [upper("echo")]
}
`},
			check: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "Call to unknown function")
			},
		},
		{
			name: "missing required argument",
			files: map[string]string{"main.hcl": `
argument "map" {}

process "map_server" {
  cmd = ["echo", var.map]
}
`},
			check: func(t *testing.T, err error) {
				var uv *subst.UnresolvedVariableError
				require.ErrorAs(t, err, &uv)
				require.Equal(t, "map", uv.Name)
			},
		},
		{
			name: "include cycle",
			files: map[string]string{
				"main.hcl": `include "a" { path = "a.hcl" }`,
				"a.hcl":    `include "b" { path = "b.hcl" }`,
				"b.hcl":    `include "a" { path = "a.hcl" }`,
			},
			check: func(t *testing.T, err error) {
				var cycle *session.IncludeCycleError
				require.ErrorAs(t, err, &cycle)
			},
		},
		{
			name:  "missing include",
			files: map[string]string{"main.hcl": `include "rviz" { path = "rviz.hcl" }`},
			check: func(t *testing.T, err error) {
				var nf *session.SessionNotFoundError
				require.ErrorAs(t, err, &nf)
			},
		},
		{
			name: "non-boolean condition",
			files: map[string]string{"main.hcl": `
process "rviz" {
  condition = "maybe"
  cmd       = ["echo", "rviz"]
}
`},
			check: func(t *testing.T, err error) {
				var ig *subst.InvalidGuardError
				require.ErrorAs(t, err, &ig)
			},
		},
		{
			name: "failing command substitution",
			files: map[string]string{"main.hcl": `
process "robot_state_publisher" {
  cmd = ["echo", command("sh", "-c", "exit 5")]
}
`},
			check: func(t *testing.T, err error) {
				var ce *subst.ExternalCommandError
				require.ErrorAs(t, err, &ce)
				require.Equal(t, 5, ce.ExitCode)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			res := app.RunSession(context.Background(), t, tc.files, "main.hcl", nil)

			// --- Assert ---
			require.Error(t, res.Err)
			require.Equal(t, session.ExitFailure, res.Status)
			require.Empty(t, res.Output, "no process should have started")
			tc.check(t, res.Err)
		})
	}
}
