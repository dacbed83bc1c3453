// Package ocr runs the external OCR tool against staged uploads.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/nikhilbhutani/docextract/internal/apperr"
	"github.com/nikhilbhutani/docextract/internal/config"
	"github.com/nikhilbhutani/docextract/internal/staging"
)

const defaultWaitDelay = 5 * time.Second

// TextExtractor turns a staged file into raw text. Implementations own the
// file once called and must remove it before returning.
type TextExtractor interface {
	Extract(ctx context.Context, f *staging.File) (string, error)
}

// Extractor invokes `<command> <args...> <absolute path> <image|pdf>` and
// reads the text from stdout.
type Extractor struct {
	command string
	args    []string
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger
}

func NewExtractor(cfg config.OCRConfig, runner Runner, logger *slog.Logger) *Extractor {
	if runner == nil {
		runner = NewExecRunner(defaultWaitDelay)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		command: cfg.Command,
		args:    slices.Clone(cfg.Args),
		timeout: cfg.Timeout,
		runner:  runner,
		logger:  logger,
	}
}

func (e *Extractor) Extract(ctx context.Context, f *staging.File) (string, error) {
	defer func() {
		if err := f.Remove(); err != nil {
			e.logger.Warn("ocr.cleanup_failed", "path", f.Path, "error", err)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := append(slices.Clone(e.args), f.Path, f.DeclaredType.String())
	stdout, stderr, err := e.runner.Run(ctx, e.command, e.logger, args...)
	if err != nil {
		return "", e.classify(ctx, err, stderr)
	}

	return strings.TrimSpace(strings.ToValidUTF8(string(stdout), "\uFFFD")), nil
}

func (e *Extractor) classify(ctx context.Context, err error, stderr []byte) error {
	if errors.Is(err, ErrStart) {
		return apperr.New(apperr.KindProcessSpawn, "Failed to start OCR process", err)
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return apperr.New(apperr.KindOCR, fmt.Sprintf("OCR timed out after %s", e.timeout), err)
	case context.Canceled:
		return apperr.New(apperr.KindOCR, "OCR cancelled", err)
	}
	detail := strings.TrimSpace(string(stderr))
	if detail == "" {
		detail = err.Error()
	}
	return apperr.New(apperr.KindOCR, "OCR failed: "+detail, nil)
}

// Ready reports whether the configured command resolves.
func (e *Extractor) Ready() error {
	if _, err := exec.LookPath(e.command); err != nil {
		return fmt.Errorf("ocr command %q: %w", e.command, err)
	}
	return nil
}
