package adapters

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	domainErrors "multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"
	"multinic-bond/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// RealCommandExecutor is a CommandExecutor implementation that executes actual system commands
type RealCommandExecutor struct {
	logger *logrus.Logger
}

// NewRealCommandExecutor creates a new RealCommandExecutor
func NewRealCommandExecutor(logger *logrus.Logger) interfaces.CommandExecutor {
	return &RealCommandExecutor{logger: logger}
}

// Execute executes a command and returns its stdout.
// A non-zero exit is reported as a COMMAND_FAILED error carrying the raw stdout/stderr.
func (e *RealCommandExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	e.logger.WithFields(logrus.Fields{
		"command": command,
		"args":    args,
	}).Debug("Command issued")

	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Seconds()

	if err != nil {
		cmdErr := &domainErrors.CommandError{
			Command:  command,
			Args:     args,
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		} else if cmdErr.Stderr == "" {
			cmdErr.Stderr = err.Error()
		}

		if ctx.Err() == context.DeadlineExceeded {
			metrics.RecordCommand(command, "timeout", elapsed)
			e.logger.WithField("command", cmdErr.CommandLine()).Error("Command timed out")
			return nil, domainErrors.NewCommandTimeoutError(cmdErr)
		}

		metrics.RecordCommand(command, "failed", elapsed)
		e.logger.WithFields(logrus.Fields{
			"command":   cmdErr.CommandLine(),
			"exit_code": cmdErr.ExitCode,
			"stderr":    cmdErr.Stderr,
		}).Error("Command failed")
		return nil, domainErrors.NewCommandFailedError(cmdErr)
	}

	metrics.RecordCommand(command, "success", elapsed)
	e.logger.WithFields(logrus.Fields{
		"command": command,
		"stdout":  stdout.String(),
	}).Debug("Command result")

	return stdout.Bytes(), nil
}

// ExecuteWithTimeout executes a command with timeout.
// Timeouts are fatal to the caller and are never retried here.
func (e *RealCommandExecutor) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, command string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return e.Execute(ctx, command, args...)
}
