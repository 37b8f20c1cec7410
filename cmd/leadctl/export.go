package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

type exportOptions struct {
	format string
	output string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the operator's leads as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "csv", "Export format: csv or xlsx")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		// An output name like leads.xlsx picks the format unless --format was given.
		if !cmd.Flags().Changed("format") && opts.output != "" {
			if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.output)), "."); ext != "" {
				opts.format = ext
			}
		}
		_, err := core.ParseExportFormat(opts.format)
		return err
	}
	return cmd
}

func runExport(cmd *cobra.Command, root *rootOptions, opts exportOptions) error {
	ctx := cmd.Context()
	op, err := root.operator()
	if err != nil {
		return err
	}
	format, err := core.ParseExportFormat(opts.format)
	if err != nil {
		return err
	}

	svc, cleanup, err := root.openService(ctx, root.logger(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	// Buffer so a failed export never leaves a truncated file behind.
	var buf bytes.Buffer
	if err := svc.Export(ctx, op, format, &buf); err != nil {
		return err
	}

	if opts.output == "" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	return os.WriteFile(opts.output, buf.Bytes(), 0o644)
}
