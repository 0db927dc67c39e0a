package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/ledger"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "store:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "worklog.db") + "\n" +
		"audit:\n  history: sql\n" +
		"logging:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_LedgerFlow(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")

	out, err = run(t, cfg, "vehicle", "add", "Van", "--plate", "06 AB 1")
	require.NoError(t, err)
	assert.Equal(t, "vehicle 1 Van (06 AB 1)\n", out)

	out, err = run(t, cfg, "user", "add", "zeynep")
	require.NoError(t, err)
	assert.Equal(t, "user 1 zeynep\n", out)

	out, err = run(t, cfg, "log", "--vehicle", "1", "--date", "2025-03-10", "--active", "5", "--maintenance", "1", "--actor", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "total 6.00")

	_, err = run(t, cfg, "log", "--vehicle", "1", "--date", "2025-03-10", "--active", "19", "--actor", "1")
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	_, err = run(t, cfg, "log", "--vehicle", "2", "--date", "2025-03-10", "--active", "1", "--actor", "1")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	out, err = run(t, cfg, "report", "weekly", "--week", "2025-03-12")
	require.NoError(t, err)
	assert.Contains(t, out, "week 2025-03-10 .. 2025-03-16")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"1", "Van", "5.00", "1.00", "162.00", "2.98", "0.60", "96.43"}, strings.Fields(lines[2]))

	out, err = run(t, cfg, "report", "weekly", "--week", "2025-03-12", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-03-10,1,Van,06 AB 1,5.00,1.00,162.00,2.98,0.60,96.43")

	out, err = run(t, cfg, "report", "backfill", "--from", "2025-03-01", "--to", "2025-03-12")
	require.NoError(t, err)
	assert.Equal(t, "exported 3 weeks\n", out)

	out, err = run(t, cfg, "vehicle", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "06 AB 1")
}

func TestCLI_LogRequiresFlags(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := run(t, cfg, "log", "--active", "1")
	assert.ErrorContains(t, err, "required flag")

	_, err = run(t, cfg, "log", "--vehicle", "1", "--actor", "1", "--date", "10/03/2025")
	assert.ErrorContains(t, err, "--date")
}

func TestCLI_Token(t *testing.T) {
	_, err := run(t, writeConfig(t, ""), "token", "--actor", "7")
	assert.ErrorContains(t, err, "jwt_secret")

	out, err := run(t, writeConfig(t, "auth:\n  jwt_secret: 0123456789abcdef0123\n"), "token", "--actor", "7")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}
