// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package cli implements the spvpatch command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // options file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "spvpatch",
		Short: "Rewrite SPIR-V for WebGPU",
		Long: `Rewrite Vulkan-flavoured SPIR-V so WebGPU shader translators accept it.

Every run records which descriptor bindings moved or were added in a
corrections file next to its output, so hosts can re-align their bind
group layouts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every pass to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "YAML options file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPassCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))
	cmd.AddCommand(NewCorrectionsCommand(opts))
	cmd.AddCommand(NewDisCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewLayoutCommand(opts))

	return cmd
}

// Execute runs the command tree with os.Args and reports a failure on
// stderr in the selected format. It returns the process exit code.
// Errors raised by cobra itself, such as an unknown flag, are command
// errors.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		err = WrapExitError(ExitCommandError, cmd.Name(), err)
	}
	format, _ := cmd.PersistentFlags().GetString("format")
	if !slices.Contains(ValidFormats, format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: cmd.ErrOrStderr()}
	_ = f.Error(err)
	return GetExitCode(err)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// pipelineOptions loads the options file, if any, and attaches the logger.
func (o *RootOptions) pipelineOptions(cmd *cobra.Command) (spvpatch.Options, error) {
	opts := spvpatch.DefaultOptions()
	if o.Config != "" {
		f, err := os.Open(o.Config)
		if err != nil {
			return opts, WrapExitError(ExitCommandError, "reading options", err)
		}
		defer f.Close()
		opts, err = spvpatch.LoadOptions(f)
		if err != nil {
			return opts, WrapExitError(ExitCommandError, o.Config, err)
		}
	}
	opts.Logger = o.logger(cmd.ErrOrStderr())
	return opts, nil
}
