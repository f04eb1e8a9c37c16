package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// ExitWithCode logs err with the foundry exit code metadata and exits. A nil logger
// falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if envelope, ok := asEnvelope(err); ok {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok {
			err = original
		}
	}

	logger.Error(msg, append(fields, zap.Error(err))...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr is used for failures before the logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	fmt.Fprintln(os.Stderr, exitMessage(msg, err))

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		os.Exit(int(exitCode))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}

// exitMessage formats the one-line FATAL message printed on stderr.
func exitMessage(msg string, err error) string {
	if err == nil {
		return "FATAL: " + msg
	}
	if envelope, ok := asEnvelope(err); ok {
		line := fmt.Sprintf("FATAL: %s [%s]: %s", msg, envelope.Code, envelope.Message)
		if envelope.CorrelationID != "" {
			line += " (correlation: " + envelope.CorrelationID + ")"
		}
		if original, ok := envelope.Original.(error); ok {
			line += "\nUnderlying error: " + original.Error()
		}
		return line
	}
	return fmt.Sprintf("FATAL: %s: %v", msg, err)
}

func asEnvelope(err error) (*errors.ErrorEnvelope, bool) {
	var envelope *errors.ErrorEnvelope
	if err == nil || !stderrors.As(err, &envelope) || envelope == nil {
		return nil, false
	}
	return envelope, true
}
