// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Workers int
}

// JobStatus is the outcome of one batch job.
type JobStatus struct {
	Name    string   `json:"name"`
	Written []string `json:"written,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (s JobStatus) String() string {
	if s.Error != "" {
		return fmt.Sprintf("FAIL %s: %s", s.Name, s.Error)
	}
	return fmt.Sprintf("ok   %s (%d files)", s.Name, len(s.Written))
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Transform many modules concurrently",
		Long: `Run every job of a manifest on a worker pool. A job is a vertex and
fragment pair or a single module; outputs and a <name>.corrections.yaml
file go to the job's output directory. Paths are relative to the
manifest.

The command fails with exit code 1 if any job failed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}
	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "concurrent jobs (default from the manifest)")
	return cmd
}

func runBatch(opts *BatchOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading manifest", err)
	}
	defer f.Close()
	m, err := spvpatch.LoadManifest(f, filepath.Dir(path))
	if err != nil {
		return WrapExitError(ExitCommandError, path, err)
	}
	if opts.Workers > 0 {
		m.Options.Workers = opts.Workers
	}
	m.Options.Logger = opts.logger(cmd.ErrOrStderr())

	results := spvpatch.Batch(cmd.Context(), m.Jobs, m.Options, writeAtomic)
	statuses := make([]JobStatus, len(results))
	failed := 0
	for i, r := range results {
		statuses[i] = JobStatus{Name: r.Job.Name, Written: r.Written}
		if r.Err != nil {
			statuses[i].Error = r.Err.Error()
			failed++
		}
	}
	if err := formatter.Success(joinLines(statuses), statuses); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d jobs failed", failed, len(results)))
	}
	return nil
}
