// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch"
)

// PassOptions holds flags for the pass subcommands.
type PassOptions struct {
	*RootOptions
	Output string
}

// NewPassCommand creates the pass command with one subcommand per pass.
func NewPassCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pass",
		Short: "Run a single pass",
		Long: `Run one pass over a module. Corrections stored next to the input are
loaded first and the pass appends to them.`,
	}
	for _, p := range spvpatch.Passes() {
		cmd.AddCommand(newSinglePassCommand(rootOpts, p))
	}
	return cmd
}

func newSinglePassCommand(rootOpts *RootOptions, p spvpatch.Pass) *cobra.Command {
	opts := &PassOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           p.Name + " <module.spv>",
		Short:         "Run " + p.Name,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(opts, p, args[0], cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output module (default <input>.webgpu.spv)")
	return cmd
}

func runPass(opts *PassOptions, p spvpatch.Pass, in string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	words, err := readWords(in)
	if err != nil {
		return err
	}
	cm, err := loadCorrections(sidecarPath(in))
	if err != nil {
		return err
	}
	out, err := p.Run(words, cm)
	if err != nil {
		return transformError(in, err)
	}
	res, err := writeResult(in, outputPath(in, opts.Output, ""), words, out, cm)
	if err != nil {
		return err
	}
	return formatter.Success(res.String(), res)
}
