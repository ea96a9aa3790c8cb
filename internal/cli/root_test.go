package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args in an isolated working and
// config directory. Returns stdout, stderr and the command error.
func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--db", filepath.Join(dir, "sieve.db")}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// workspace isolates config lookup and returns an empty directory.
func workspace(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sieve", cmd.Use)
	assert.Contains(t, cmd.Long, "query-filter grammar")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"operators"}, {"compile"}, {"translate"}, {"eval"},
		{"url", "encode"}, {"url", "decode"},
		{"view", "save"}, {"view", "show"}, {"view", "list"}, {"view", "delete"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.NotNil(t, compileCmd.Flags().Lookup("text"))
}

func TestInvalidFormat(t *testing.T) {
	dir := workspace(t)

	_, stderr, err := execute(t, dir, "--format", "xml", "view", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, `invalid format "xml"`)
}

func TestConfigFileSetsDefaults(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sieve.yaml"),
		[]byte("output:\n  format: json\nstore:\n  collection: devices\n"), 0o644))

	out, _, err := execute(t, dir, "view", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "ok", "data": []}`, out)

	out, _, err = execute(t, dir, "--format", "text", "view", "list")
	require.NoError(t, err)
	assert.Equal(t, "No views in devices\n", out)
}

func TestMissingExplicitConfig(t *testing.T) {
	dir := workspace(t)

	_, stderr, err := execute(t, dir, "--config", filepath.Join(dir, "nope.yaml"), "view", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, ErrCodeLoadFailed)
}
