package importer

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	levels   []string
	messages []string
}

func (c *captureSink) Log(level, message string) {
	c.levels = append(c.levels, level)
	c.messages = append(c.messages, message)
}

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"info line", "INFO - connected to nautobot", "INFO", "connected to nautobot"},
		{"error line", "ERROR - device lab-sw01 unreachable", "ERROR", "device lab-sw01 unreachable"},
		{"warning line", "WARNING - skipping interface Gi0/3", "WARNING", "skipping interface Gi0/3"},
		{"no level", "calculating diff for lab01", "INFO", "calculating diff for lab01"},
		{"unknown level", "TRACE - something", "INFO", "TRACE - something"},
		{"dash in message", "INFO - vlan 10 - mgmt", "INFO", "vlan 10 - mgmt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, msg := ParseLogLine(tt.line)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestCLIExecutor_StreamsLines(t *testing.T) {
	// Stand in for the network-importer binary with a shell script.
	script := writeScript(t, `#!/bin/sh
echo "INFO - connected"
echo "INFO - no diff"
`)
	sink := &captureSink{}
	res, err := NewCLIExecutor(script).Execute(context.Background(),
		"lab01", models.ModeCheck, &settings.Resolved{}, sink)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"INFO", "INFO"}, sink.levels)
	assert.Equal(t, []string{"connected", "no diff"}, sink.messages)
}

func TestCLIExecutor_NonZeroExit(t *testing.T) {
	script := writeScript(t, `#!/bin/sh
echo "ERROR - device unreachable"
exit 3
`)
	sink := &captureSink{}
	_, err := NewCLIExecutor(script).Execute(context.Background(),
		"lab01", models.ModeApply, &settings.Resolved{}, sink)
	require.Error(t, err)

	// Lines emitted before the failure were still streamed.
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "ERROR", sink.levels[0])
}

func TestCLIExecutor_OversizedLineKillsChild(t *testing.T) {
	// A line over the scanner cap stops the read loop; the still-chatty
	// child must be killed so Execute returns instead of blocking on Wait.
	script := writeScript(t, `#!/bin/sh
head -c 2097152 /dev/zero | tr '\0' 'x'
echo
while true; do echo "INFO - still going"; sleep 0.01; done
`)
	sink := &captureSink{}
	done := make(chan error, 1)
	go func() {
		_, err := NewCLIExecutor(script).Execute(context.Background(),
			"lab01", models.ModeCheck, &settings.Resolved{}, sink)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, bufio.ErrTooLong)
	case <-time.After(10 * time.Second):
		t.Fatal("Execute did not return after the scanner gave up")
	}
}

func TestCLIExecutor_MissingBinary(t *testing.T) {
	sink := &captureSink{}
	_, err := NewCLIExecutor("/does/not/exist").Execute(context.Background(),
		"lab01", models.ModeCheck, &settings.Resolved{}, sink)
	require.Error(t, err)
	assert.Empty(t, sink.messages)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-importer.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}
