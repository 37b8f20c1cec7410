package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/store/memory"
)

type importOptions struct {
	path   string
	dryRun bool
	asJSON bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import leads from a .csv, .xlsx or .xls file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runImport(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Parse and validate into an in-memory store without touching the database")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the import result as JSON")
	return cmd
}

func runImport(cmd *cobra.Command, root *rootOptions, opts importOptions) error {
	ctx := cmd.Context()
	op, err := root.operator()
	if err != nil {
		return err
	}
	logger := root.logger(cmd)

	var svc *core.Service
	if opts.dryRun {
		cfg, err := serviceConfig()
		if err != nil {
			return err
		}
		svc = core.NewService(memory.New(), cfg, nil, nil)
	} else {
		s, cleanup, err := root.openService(ctx, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		svc = s
	}

	f, err := os.Open(opts.path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := svc.Import(ctx, op, filepath.Base(opts.path), f)
	if err != nil {
		logger.Error("import failed", "file", opts.path, "error", err)
		return err
	}
	logger.Info("import finished", "file", opts.path, "inserted", res.Inserted, "dry_run", opts.dryRun)

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printImportResult(out, res, opts.dryRun)
}

func printImportResult(w io.Writer, res *core.ImportResult, dryRun bool) error {
	verb := "inserted"
	if dryRun {
		verb = "would insert"
	}
	if _, err := fmt.Fprintf(w, "%s (%s): %d rows read, %s %d, rejected %d\n",
		res.FileName, res.Format, res.TotalRows, verb, res.Inserted, len(res.Rejected)); err != nil {
		return err
	}
	for _, r := range res.Rejected {
		if _, err := fmt.Fprintf(w, "  line %d: %s\n", r.Line, r.Reason); err != nil {
			return err
		}
	}
	return nil
}
