// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvpatch/layout"
)

// LayoutOptions holds flags for the layout command.
type LayoutOptions struct {
	*RootOptions
	Corrections string
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LayoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "layout <layout.yaml> [layout.yaml]",
		Short: "Re-align bind group layouts with transformed modules",
		Long: `Apply a corrections file to bind group layouts authored for the
untransformed shader and print the layouts the transformed module
expects. Given two layouts, typically one per stage, both are corrected
and merged into one pipeline layout.

A layout file is a list of groups:

  - group: 0
    entries:
      - {binding: 0, kind: texture, stages: [fragment]}
      - {binding: 1, kind: comparison-sampler, stages: [fragment]}`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Corrections, "corrections", "", "corrections file or transformed module (required)")
	_ = cmd.MarkFlagRequired("corrections")
	return cmd
}

func readLayout(path string) (map[uint32]wgpu.BindGroupLayoutDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading layout", err)
	}
	var groups []layout.Group
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, WrapExitError(ExitCommandError, path, err)
	}
	decoded, err := layout.Decode(groups)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, path, err)
	}
	return decoded, nil
}

func runLayout(opts *LayoutOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.Corrections
	if filepath.Ext(path) == ".spv" {
		path = sidecarPath(path)
	}
	cm, err := loadCorrections(path)
	if err != nil {
		return err
	}

	var merged map[uint32]wgpu.BindGroupLayoutDescriptor
	for _, arg := range args {
		groups, err := readLayout(arg)
		if err != nil {
			return err
		}
		applied, err := layout.ApplyAll(groups, cm)
		if err != nil {
			return WrapExitError(ExitFailure, arg, err)
		}
		if merged == nil {
			merged = applied
		} else {
			merged = layout.MergeStages(merged, applied)
		}
	}

	out := layout.Encode(merged)
	text, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return formatter.Success(strings.TrimSuffix(string(text), "\n"), out)
}
