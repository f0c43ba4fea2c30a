// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch/spirv"
)

// NewDisCommand creates the dis command.
func NewDisCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dis <module.spv>",
		Short:         "Disassemble a module",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := spirv.Disassemble(&buf, words); err != nil {
				return WrapExitError(ExitFailure, args[0], err)
			}
			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).Success("", map[string]string{"text": buf.String()})
			}
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}
