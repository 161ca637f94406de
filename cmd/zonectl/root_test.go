package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zonectl/internal/protocol"
	"zonectl/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = `# opcode | name | zone
0x10 | OPEN_VALVE | 1
0x11 | CLOSE_VALVE | 1
0x20 | BROKEN
`

// writeTestConfig creates a config that drives a fault-free simulated relay.
func writeTestConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	tablePath := filepath.Join(dir, "commands.csv")
	dbPath = filepath.Join(dir, "zonectl.db")
	require.NoError(t, os.WriteFile(tablePath, []byte(testTable), 0o644))

	cfg := strings.Join([]string{
		"log:",
		"  level: error",
		"db:",
		"  path: " + dbPath,
		"table:",
		"  path: " + tablePath,
		"transport:",
		"  mode: serial",
		"serial:",
		"  timeout: 200ms",
		"simulator:",
		"  error_probability: 0",
		"  drop_probability: 0",
		"  latency: 0s",
		"protocol:",
		"  settle_delay: 0s",
		"auth:",
		"  signing_key: test",
	}, "\n")
	cfgPath = filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, dbPath
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeResults(t *testing.T, stdout string) []protocol.Result {
	t.Helper()
	var results []protocol.Result
	dec := json.NewDecoder(strings.NewReader(stdout))
	for dec.More() {
		var r protocol.Result
		require.NoError(t, dec.Decode(&r))
		results = append(results, r)
	}
	return results
}

func TestExec_PrintsOneResultPerName(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	stdout, stderr, err := runCLI(t, "--config", cfgPath, "--simulated", "exec", "OPEN_VALVE", "NOPE")
	require.ErrorIs(t, err, errCommandsFailed)

	results := decodeResults(t, stdout)
	require.Len(t, results, 2)

	assert.Equal(t, "OPEN_VALVE", results[0].Command)
	assert.True(t, results[0].OK())
	assert.Equal(t, uint8(1), results[0].Zone)
	assert.Equal(t, uint8(0x10), results[0].Opcode)

	assert.Equal(t, "NOPE", results[1].Command)
	assert.Equal(t, protocol.KindCommandNotFound, results[1].Kind)
	assert.Equal(t, protocol.CodeErrCmd, results[1].StatusCode)

	assert.Contains(t, stderr, "OPEN_VALVE zone=1 opcode=0x10: OK")
	assert.Contains(t, stderr, "Failed | command not found")
}

func TestExec_NonStrictExitsZero(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	_, _, err := runCLI(t, "--config", cfgPath, "--simulated", "exec", "--strict=false", "NOPE")
	require.NoError(t, err)
}

func TestExec_JournalRecordsCLISource(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)

	_, _, err := runCLI(t, "--config", cfgPath, "--simulated", "exec", "--journal", "CLOSE_VALVE")
	require.NoError(t, err)

	db, err := repository.InitDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	repos := repository.NewRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := repos.Executions.List(ctx, time.Time{}, time.Time{}, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CLOSE_VALVE", rows[0].Command)
	assert.Equal(t, "cli", rows[0].Source)

	zones, err := repos.Zones.List(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, uint8(1), zones[0].Zone)
}

func TestSend_RawFrames(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	stdout, _, err := runCLI(t, "--config", cfgPath, "--simulated", "send", "3", "0x10", "--name", "MANUAL")
	require.NoError(t, err)
	results := decodeResults(t, stdout)
	require.Len(t, results, 1)
	assert.Equal(t, "MANUAL", results[0].Command)
	assert.Equal(t, uint8(3), results[0].Zone)
	assert.True(t, results[0].OK())

	// the relay rejects zones outside 1..9
	stdout, _, err = runCLI(t, "--config", cfgPath, "--simulated", "send", "12", "1")
	require.ErrorIs(t, err, errCommandsFailed)
	results = decodeResults(t, stdout)
	require.Len(t, results, 1)
	assert.Equal(t, protocol.CodeErrAddr, results[0].StatusCode)
	assert.Equal(t, protocol.ReasonInvalidAddress, results[0].Reason)
}

func TestSend_RejectsNonByteArguments(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	for _, args := range [][]string{{"300", "1"}, {"1", "-1"}, {"x", "1"}} {
		_, _, err := runCLI(t, append([]string{"--config", cfgPath, "--simulated", "send"}, args...)...)
		require.Error(t, err, "args %v", args)
		assert.NotErrorIs(t, err, errCommandsFailed)
	}
}

func TestTable_PrintsDefinitionsAndAnomalies(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	stdout, stderr, err := runCLI(t, "--config", cfgPath, "table")
	require.NoError(t, err)
	assert.Contains(t, stdout, "OPEN_VALVE")
	assert.Contains(t, stdout, "0x11")
	assert.Contains(t, stderr, "line 4 skipped")
}

func TestParseByte(t *testing.T) {
	cases := map[string]uint8{"0": 0, "255": 255, "0x1F": 0x1f, "0XFF": 0xff}
	for in, want := range cases {
		got, err := parseByte("zone", in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseByte("zone", "256")
	assert.Error(t, err)
}

func TestServe_RefusesPlaceholderSigningKey(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	withPlaceholder := strings.Replace(string(raw), "signing_key: test", "signing_key: change-me", 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(withPlaceholder), 0o644))

	_, _, err = runCLI(t, "--config", cfgPath, "--simulated", "serve", "--port", "0")
	require.ErrorIs(t, err, errPlaceholderKey)

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "database must not be created")
}
