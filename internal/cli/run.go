// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch"
	"github.com/gogpu/spvpatch/spirv"
	"github.com/gogpu/spvpatch/transform"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Output   string   // output module, single module only
	OutDir   string   // output directory
	Passes   []string // overrides the options file
	NoMirror bool
}

// ModuleResult describes one written module.
type ModuleResult struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Corrections string `json:"corrections"`
	Bound       uint32 `json:"bound"`
	Changed     bool   `json:"changed"`
}

func (r ModuleResult) String() string {
	state := "unchanged"
	if r.Changed {
		state = fmt.Sprintf("bound %d", r.Bound)
	}
	return fmt.Sprintf("%s -> %s (%s)", r.Input, r.Output, state)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <module.spv> | run <vertex.spv> <fragment.spv>",
		Short: "Run the pass pipeline",
		Long: `Run the pass pipeline over one module, or over a vertex and fragment
pair followed by the mirror pass so both stages share one layout.

Corrections recorded next to an input (<input>.corrections.yaml) are
loaded first, so runs stack. The updated corrections are written next
to each output.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 && opts.Output != "" {
				return NewExitError(ExitCommandError, "--output applies to a single module, use --out-dir")
			}
			return runRun(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output module (default <input>.webgpu.spv)")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "output directory (default: next to the input)")
	cmd.Flags().StringSliceVar(&opts.Passes, "passes", nil, "passes to run, in order (known: "+strings.Join(spvpatch.PassNames(), ", ")+")")
	cmd.Flags().BoolVar(&opts.NoMirror, "no-mirror", false, "skip the mirror pass for a pair")

	return cmd
}

// outputPath returns where the transformed input is written.
func outputPath(input, explicit, outDir string) string {
	if explicit != "" {
		return explicit
	}
	dir := filepath.Dir(input)
	if outDir != "" {
		dir = outDir
	}
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".webgpu.spv")
}

func runRun(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	popts, err := opts.pipelineOptions(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("passes") {
		popts.Passes = opts.Passes
	}
	if opts.NoMirror {
		popts.Mirror = false
	}
	if err := popts.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	inputs := make([][]uint32, len(args))
	maps := make([]*transform.CorrectionMap, len(args))
	for i, path := range args {
		if inputs[i], err = readWords(path); err != nil {
			return err
		}
		if maps[i], err = loadCorrections(sidecarPath(path)); err != nil {
			return err
		}
	}

	outputs := make([][]uint32, len(args))
	for i := range args {
		outputs[i], err = spvpatch.TransformWords(inputs[i], maps[i], popts)
		if err != nil {
			return transformError(args[i], err)
		}
	}
	if len(args) == 2 && popts.Mirror {
		outputs[0], outputs[1], err = spvpatch.MirrorWords(outputs[0], maps[0], outputs[1], maps[1], popts)
		if err != nil {
			return transformError(args[0]+", "+args[1], err)
		}
	}

	results := make([]ModuleResult, len(args))
	for i, in := range args {
		out := outputPath(in, opts.Output, opts.OutDir)
		res, err := writeResult(in, out, inputs[i], outputs[i], maps[i])
		if err != nil {
			return err
		}
		results[i] = res
	}
	return formatter.Success(joinLines(results), results)
}

func writeResult(in, out string, before, after []uint32, cm *transform.CorrectionMap) (ModuleResult, error) {
	res := ModuleResult{
		Input:       in,
		Output:      out,
		Corrections: sidecarPath(out),
		Bound:       after[spirv.HeaderBound],
		Changed:     !slices.Equal(before, after),
	}
	if err := writeWords(out, after); err != nil {
		return res, err
	}
	if err := saveCorrections(res.Corrections, cm); err != nil {
		return res, err
	}
	return res, nil
}

func joinLines[T fmt.Stringer](items []T) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}
