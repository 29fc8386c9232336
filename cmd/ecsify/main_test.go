package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apacheLine = `127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET /x HTTP/1.1" 200 512 "-" "curl/8.0"`

func inputDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(viper.New())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommandWritesFile(t *testing.T) {
	dir := inputDir(t, map[string]string{"access.log": apacheLine + "\n"})
	out := filepath.Join(t.TempDir(), "records.ndjson")

	_, err := execute(t, "run", "--in", dir, "--out", out, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"@timestamp":"2023-10-10T20:55:36+00:00"`)
}

func TestRunCommandStdout(t *testing.T) {
	dir := inputDir(t, map[string]string{"access.log": apacheLine + "\n"})

	stdout, err := execute(t, "run", "--in", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"user_agent":{"original":"curl/8.0"}`)
}

func TestRunCommandBadReferenceTime(t *testing.T) {
	dir := inputDir(t, nil)
	_, err := execute(t, "run", "--in", dir, "--reference-time", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference-time")
}

func TestDetectCommand(t *testing.T) {
	dir := inputDir(t, map[string]string{
		"access.log": apacheLine + "\n",
		"notes.txt":  "hello\n",
	})

	stdout, err := execute(t, "detect", "--in", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "access.log")
	assert.Contains(t, lines[0], "apache_access")
	assert.Contains(t, lines[1], "unknown")
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ecsify version dev\n", stdout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ECSIFY_IN", "/srv/logs")
	t.Setenv("ECSIFY_WORKERS", "3")
	t.Setenv("ECSIFY_METRICS_FILE", "/tmp/ecsify.prom")

	v := viper.New()
	newRootCommand(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/srv/logs", cfg.Input.Dir)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "/tmp/ecsify.prom", cfg.MetricsFile)
	assert.Equal(t, "-", cfg.Output.Path)
}

func TestLoadConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecsify.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers = 2

[input]
dir = "/from/file"

[[detectors]]
name = "sshd"
pattern = 'sshd\['
type = "syslog"
`), 0o644))

	v := viper.New()
	root := newRootCommand(v)
	require.NoError(t, root.PersistentFlags().Parse([]string{"--config", path, "--in", "/from/flag"}))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Input.Dir)
	assert.Equal(t, 2, cfg.Workers)
	require.Len(t, cfg.Detectors, 1)
	assert.Equal(t, "sshd", cfg.Detectors[0].Name)
}

func TestLoadConfigRejectsBadOverride(t *testing.T) {
	t.Setenv("ECSIFY_LOG_LEVEL", "chatty")

	v := viper.New()
	newRootCommand(v)

	_, err := loadConfig(v)
	assert.Error(t, err)
}
