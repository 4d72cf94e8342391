package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadut/Finite-State-Machine/internal/cli"
	"github.com/muhammadut/Finite-State-Machine/internal/config"
	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/registry"
)

const testdata = "../../pkg/definition/testdata"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FSM_SESSION_DIR", dir)
	t.Setenv("FSM_LOG_LEVEL", "error")
	t.Setenv("FSM_LOG_FORMAT", "text")
	t.Setenv("FSM_REDIS_ADDR", "")
	t.Setenv("FSM_DEFINITIONS_DIR", "")
	t.Setenv("FSM_SESSION_KEY", "")
	t.Setenv("FSM_SESSION_FALLBACK_KEYS", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Regexp(t, `^fsm version \d+\.\d+\.\d+\n$`, out)
}

func TestDemo(t *testing.T) {
	setupEnv(t)

	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Examples from Assignment ===")
	assert.Contains(t, out, "State Transitions:")
	assert.Contains(t, out, "Run with --interactive (-i)")

	out, err = execute(t, "-e")
	require.NoError(t, err)
	assert.Contains(t, out, "Binary: 1111 | Decimal: 15 | Remainder mod 3: 0")
	assert.NotContains(t, out, "State Transitions:")
}

func TestDemo_Binary(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "-b", "1110")
	require.NoError(t, err)
	assert.Contains(t, out, "Binary: 1110 | Decimal: 14 | Remainder mod 3: 2")
	assert.NotContains(t, out, "Examples from Assignment")

	out, err = execute(t, "--binary", "12")
	require.Error(t, err)
	var rep *reportedError
	assert.True(t, errors.As(err, &rep))
	assert.Contains(t, out, "Error: input must contain only '0's and '1's")
}

func TestDemo_FailedExampleIsPrinted(t *testing.T) {
	setupEnv(t)
	saved := cli.Examples
	t.Cleanup(func() { cli.Examples = saved })
	cli.Examples = []cli.Example{{Binary: "11", Expected: 2}}

	out, err := execute(t, "-e")
	require.Error(t, err)
	var rep *reportedError
	assert.True(t, errors.As(err, &rep))
	assert.Contains(t, out, "Error: example 11: expected 2, got 0")
}

func TestDemo_InvalidLogFormat(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "--log-format", "xml", "-e")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "run", "mod-three", "-s", "1101")
	require.NoError(t, err)
	assert.Contains(t, out, "current:   S1\n")
	assert.Contains(t, out, "accepting: true\n")
	assert.Contains(t, out, "history:   S0 -> S1 -> S0 -> S0 -> S1\n")

	out, err = execute(t, "run", filepath.Join(testdata, "even-ones.yaml"), "1", "1", "0", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "machine:   even-ones\n")
	assert.Contains(t, out, "current:   odd\n")
	assert.Contains(t, out, "accepting: false\n")
}

func TestRun_Errors(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "run", "mod-three", "1", "2")
	assert.ErrorIs(t, err, automaton.ErrUnknownSymbol)
	assert.Contains(t, out, "current:   S1\n")
	assert.Contains(t, out, "Error: unknown_symbol: unknown symbol \"2\" at position 1")

	_, err = execute(t, "run", "nope", "1")
	assert.ErrorIs(t, err, registry.ErrDefinitionNotFound)

	_, err = execute(t, "run")
	assert.Error(t, err)
}

func TestRun_DefinitionsDir(t *testing.T) {
	setupEnv(t)
	t.Setenv("FSM_DEFINITIONS_DIR", testdata)

	out, err := execute(t, "run", "turnstile", "coin", "push")
	require.NoError(t, err)
	assert.Contains(t, out, "machine:   turnstile\n")
}

func TestValidate(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "validate", filepath.Join(testdata, "even-ones.yaml"), filepath.Join(testdata, "turnstile.json"))
	require.NoError(t, err)
	assert.Contains(t, out, `definition "even-ones" is valid`)
	assert.Contains(t, out, `definition "turnstile" is valid`)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`name: bad
states: [a]
alphabet: [x]
initial: b
finals: []
transitions: []
`), 0o644))

	out, err = execute(t, "validate", bad)
	require.Error(t, err)
	assert.True(t, automaton.IsConstructionError(err, automaton.ReasonInitialStateUnknown))
	assert.Contains(t, out, "bad.yaml: invalid:")
}

func TestSessionCommands(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "session", "new", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Session 's1' (mod-three) at S0, accepting, 0 symbols\n", out)
	assert.FileExists(t, filepath.Join(dir, "s1.json"))

	_, err = execute(t, "session", "new", "s1")
	assert.ErrorIs(t, err, domain.ErrSessionExists)

	out, err = execute(t, "session", "feed", "s1", "-s", "110")
	require.NoError(t, err)
	assert.Contains(t, out, "at S0, accepting, 3 symbols")

	out, err = execute(t, "session", "feed", "s1", "1", "x")
	assert.ErrorIs(t, err, automaton.ErrUnknownSymbol)
	assert.Contains(t, out, "at S1, accepting, 4 symbols")
	assert.Contains(t, out, "Error: unknown_symbol:")

	out, err = execute(t, "session", "inspect", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, `"current": "S1"`)

	out, err = execute(t, "session", "reset", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "at S0, accepting, 0 symbols")

	out, err = execute(t, "session", "ls")
	require.NoError(t, err)
	assert.Equal(t, "Active Sessions:\n- s1\n", out)

	out, err = execute(t, "session", "rm", "s1", "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Contains(t, out, "Removed session 's1'")
	assert.Contains(t, out, "Error removing 'ghost'")

	out, err = execute(t, "session", "ls")
	require.NoError(t, err)
	assert.Equal(t, "No active sessions found.\n", out)

	_, err = execute(t, "session", "feed", "ghost", "1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionCommands_GeneratedID(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "session", "new", "--machine", "mod-three")
	require.NoError(t, err)
	assert.Regexp(t, `^Session '[0-9a-f-]{36}' \(mod-three\) at S0`, out)
}

func TestSessionCommands_RedisRequiresAddress(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "session", "ls", "--store", "redis")
	assert.ErrorContains(t, err, "FSM_REDIS_ADDR")

	_, err = execute(t, "session", "ls", "--store", "tape")
	assert.ErrorContains(t, err, "unknown store")
}

func TestServe_ListenError(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "serve", "--addr", "127.0.0.1:-1")
	assert.ErrorContains(t, err, "server error")
}

func TestMCP_UnknownTransport(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "mcp", "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport")
}

func TestSessionCommands_Encrypted(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("FSM_SESSION_KEY", strings.Repeat("ab", 32))

	_, err := execute(t, "session", "new", "s1")
	require.NoError(t, err)
	out, err := execute(t, "session", "feed", "s1", "-s", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "at S2, accepting, 2 symbols")

	raw, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sealed"`)
	assert.NotContains(t, string(raw), `"S2"`)

	t.Setenv("FSM_SESSION_KEY", strings.Repeat("cd", 32))
	_, err = execute(t, "session", "inspect", "s1")
	assert.Error(t, err)

	// Without a key the envelope is opaque and cannot be fed.
	t.Setenv("FSM_SESSION_KEY", "")
	_, err = execute(t, "session", "feed", "s1", "1")
	assert.Error(t, err)
}
