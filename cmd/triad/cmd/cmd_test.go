package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/core"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default, since cobra keeps parsed
// values and the Changed mark between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2026-01-15")
	defer SetVersion("", "", "")

	out, err := run(t, nil, "version", "--config", writeConfig(t, "log:\n  level: error\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "triad v1.2.3")
	assert.Contains(t, out, "commit: abc123def")
	assert.Contains(t, out, "built:  2026-01-15")
	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "chat", "serve", "sessions", "init", "doctor", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, nil, "version", "--config", writeConfig(t, "log:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLogLevelFlagOverridesConfig(t *testing.T) {
	_, err := run(t, nil, "version", "--config", writeConfig(t, "log:\n  level: error\n"), "--log-level", "debug")
	require.NoError(t, err)
	require.NotNil(t, appConfig)
	assert.Equal(t, "debug", appConfig.Log.Level)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldDir)

	out, err := run(t, nil, "init")
	require.NoError(t, err)
	path := config.ProjectConfigPath(dir)
	assert.Contains(t, out, "Wrote")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigYAML, string(data))

	out, err = run(t, nil, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = run(t, nil, "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
}

func TestServerConfig(t *testing.T) {
	appConfig = &config.Config{Server: config.ServerConfig{
		Host:        "0.0.0.0",
		Port:        9000,
		CORSOrigins: []string{"https://app.example"},
	}}
	defer func() { appConfig = nil }()

	serveHost, servePort, serveNoCORS = "", 0, false
	cfg := serverConfig()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.EnableCORS)

	serveHost, servePort, serveNoCORS = "localhost", 3000, true
	defer func() { serveHost, servePort, serveNoCORS = "", 0, false }()
	cfg = serverConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.EnableCORS)
}

func TestReadQuestion(t *testing.T) {
	q, err := readQuestion([]string{"which", "path?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "which path?", q)

	q, err = readQuestion(nil, strings.NewReader("  from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", q)
}

func TestAsk_Validation(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\nsession:\n  backend: none\n")

	_, err := run(t, nil, "ask", "--config", cfg, "--format", "xml", "hi")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, nil, "ask", "--config", cfg, "--session", "../x", "hi")
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))

	_, err = run(t, nil, "ask", "--config", cfg, strings.Repeat("a", core.MaxInputLength+1))
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestSessions_Disabled(t *testing.T) {
	_, err := run(t, nil, "sessions", "list", "--config", writeConfig(t, "session:\n  backend: none\n"))
	assert.ErrorIs(t, err, errSessionsDisabled)
}

func TestDoctor_ReportsInvalidConfig(t *testing.T) {
	out, err := run(t, nil, "doctor", "--config", writeConfig(t, "log:\n  level: loud\nsession:\n  backend: none\n"))
	require.ErrorIs(t, err, errDoctorFailed)
	assert.Contains(t, out, "✗ config")
	assert.Contains(t, out, "log.level")
	assert.Contains(t, out, "sessions  disabled")
	assert.Contains(t, out, "Host:")
}
