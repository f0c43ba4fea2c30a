// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch"
)

// MirrorOptions holds flags for the mirror command.
type MirrorOptions struct {
	*RootOptions
	OutDir string
}

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MirrorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mirror <left.spv> <right.spv>",
		Short: "Reconcile the corrections of two transformed stages",
		Long: `Add to each module the sampler bindings the other stage's passes
introduced, so both agree on one pipeline layout. Each module's
corrections are read from and written back to its corrections file.

Without --out-dir both modules are updated in place.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(opts, args[0], args[1], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "output directory (default: update in place)")
	return cmd
}

func runMirror(opts *MirrorOptions, left, right string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	popts, err := opts.pipelineOptions(cmd)
	if err != nil {
		return err
	}
	lw, err := readWords(left)
	if err != nil {
		return err
	}
	rw, err := readWords(right)
	if err != nil {
		return err
	}
	lm, err := loadCorrections(sidecarPath(left))
	if err != nil {
		return err
	}
	rm, err := loadCorrections(sidecarPath(right))
	if err != nil {
		return err
	}

	lOut, rOut, err := spvpatch.MirrorWords(lw, lm, rw, rm, popts)
	if err != nil {
		return transformError(left+", "+right, err)
	}

	dest := func(in string) string {
		if opts.OutDir == "" {
			return in
		}
		return filepath.Join(opts.OutDir, filepath.Base(in))
	}
	lres, err := writeResult(left, dest(left), lw, lOut, lm)
	if err != nil {
		return err
	}
	rres, err := writeResult(right, dest(right), rw, rOut, rm)
	if err != nil {
		return err
	}
	results := []ModuleResult{lres, rres}
	return formatter.Success(joinLines(results), results)
}
