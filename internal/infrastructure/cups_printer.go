package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"telefax/internal/config"
	"telefax/internal/interfaces"
)

// ErrPrintTimeout is returned when lp does not finish within the timeout.
var ErrPrintTimeout = errors.New("print command timed out")

// PrintError describes a failed lp invocation.
type PrintError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *PrintError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return e.Err.Error()
}

func (e *PrintError) Unwrap() error { return e.Err }

// CUPSPrinter submits jobs with the CUPS lp command.
type CUPSPrinter struct {
	Command    string
	ServerHost string
	Timeout    time.Duration
	TempDir    string
	logger     *slog.Logger
}

func NewCUPSPrinter(serverHost string, timeout time.Duration, logger *slog.Logger) *CUPSPrinter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CUPSPrinter{
		Command:    "lp",
		ServerHost: serverHost,
		Timeout:    timeout,
		logger:     logger,
	}
}

// MediaOption renders the custom media size, e.g. "media=Custom.4x6in".
func MediaOption(widthInches, heightInches float64) string {
	return fmt.Sprintf("media=Custom.%sx%sin", config.FormatInches(widthInches), config.FormatInches(heightInches))
}

// Args returns the lp arguments for job printing the file at path.
func (p *CUPSPrinter) Args(job interfaces.PrintJob, path string) []string {
	var args []string
	if p.ServerHost != "" {
		args = append(args, "-h", p.ServerHost)
	}
	args = append(args,
		"-d", job.Printer,
		"-n", strconv.Itoa(job.Copies),
		"-o", MediaOption(job.WidthInches, job.HeightInches),
		"-o", "fit-to-page",
		path,
	)
	return args
}

// Submit writes the image to a temporary file and runs lp on it. The
// returned string is lp's standard output.
func (p *CUPSPrinter) Submit(ctx context.Context, job interfaces.PrintJob) (string, error) {
	tmp, err := os.CreateTemp(p.TempDir, "telefax-*."+job.Format)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(job.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := p.Args(job, tmp.Name())
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Info("executing CUPS command", slog.String("command", p.Command+" "+strings.Join(args, " ")))
	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		p.logger.Error("CUPS command timed out", slog.Duration("timeout", p.Timeout))
		return "", &PrintError{ExitCode: -1, Stderr: stderr.String(), Err: ErrPrintTimeout}
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		p.logger.Error("CUPS printing failed",
			slog.Int("exit_code", exitCode),
			slog.String("stdout", stdout.String()),
			slog.String("stderr", stderr.String()),
			slog.String("error", err.Error()))
		return "", &PrintError{ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}

	p.logger.Info("CUPS output", slog.String("stdout", stdout.String()), slog.String("stderr", stderr.String()))
	return stdout.String(), nil
}
