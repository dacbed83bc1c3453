package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrStart marks a command that never ran.
var ErrStart = errors.New("process did not start")

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	waitDelay time.Duration
}

// NewExecRunner runs commands with os/exec. After ctx is done the child is
// killed and its pipes are abandoned once waitDelay elapses.
func NewExecRunner(waitDelay time.Duration) Runner {
	return execRunner{waitDelay: waitDelay}
}

func (r execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	logger.Debug("ocr.exec.start", "cmd", name, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.waitDelay
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	if err := cmd.Start(); err != nil {
		logger.Error("ocr.exec.spawn_failed", "cmd", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrStart, err)
	}

	err := cmd.Wait()
	dur := time.Since(start)

	if err != nil {
		logger.Error("ocr.exec.failed",
			"cmd", name,
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		logger.Debug("ocr.exec.ok",
			"cmd", name,
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
			"stderr_bytes", errb.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
