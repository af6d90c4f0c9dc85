package importer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/pkg/models"
)

// CLIExecutor runs the network-importer command line tool as a subprocess,
// parsing its log output line by line into the sink. Credentials are passed
// through the child environment, never on the command line.
type CLIExecutor struct {
	binary string
}

func NewCLIExecutor(binary string) *CLIExecutor {
	return &CLIExecutor{binary: binary}
}

func (e *CLIExecutor) Execute(ctx context.Context, site string, mode models.Mode, resolved *settings.Resolved, sink LogSink) (*Result, error) {
	args := []string{"--site", site}
	if mode == models.ModeCheck {
		args = append(args, "--check")
	} else {
		args = append(args, "--apply")
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Env = append(os.Environ(),
		"NI_INVENTORY_ADDRESS="+resolved.InventoryAddress,
		"NI_INVENTORY_TOKEN="+resolved.InventoryToken,
		"NI_NET_LOGIN="+resolved.NetworkLogin,
		"NI_NET_PASSWORD="+resolved.NetworkPassword,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.binary, err)
	}

	var changes bool
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		level, message := ParseLogLine(scanner.Text())
		if strings.Contains(message, "diff") && !strings.Contains(message, "no diff") {
			changes = true
		}
		sink.Log(level, message)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// The read loop stopped but the child may still be streaming into
		// a pipe nobody drains; kill it or Wait could block forever.
		_ = cmd.Process.Kill()
	}

	waitErr := cmd.Wait()
	if scanErr != nil {
		return nil, fmt.Errorf("read %s output: %w", e.binary, scanErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("%s exited: %w", e.binary, waitErr)
	}

	return &Result{
		Success:         true,
		ChangesDetected: changes,
		Summary:         fmt.Sprintf("%s completed for site %s", mode, site),
	}, nil
}

// ParseLogLine splits a "LEVEL - message" line as emitted by the import
// tooling. Lines without a recognizable level are treated as INFO.
func ParseLogLine(line string) (level, message string) {
	before, after, found := strings.Cut(line, " - ")
	if found {
		switch strings.TrimSpace(before) {
		case models.LogLevelDebug, models.LogLevelInfo, models.LogLevelWarning,
			models.LogLevelError, models.LogLevelCritical:
			return strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}
	return models.LogLevelInfo, strings.TrimSpace(line)
}
