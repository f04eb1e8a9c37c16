package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scoutline/scoutline/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

// addOutputFlags registers --format and --out on a command that renders a result.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", string(output.FormatTable), "output format: table, json, markdown")
	cmd.Flags().String("out", "", "write output to a file instead of stdout")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed) // #nosec G304 -- output path is operator-provided
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// writeRendered sends rendered output to the sink selected by --out.
func writeRendered(cmd *cobra.Command, rendered string) error {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	if _, err := io.WriteString(sink.writer, rendered); err != nil {
		_ = sink.close()
		return err
	}
	return sink.close()
}
