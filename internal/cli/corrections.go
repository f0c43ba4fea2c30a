// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvpatch/transform"
)

// CorrectionsOptions holds flags for the corrections command.
type CorrectionsOptions struct {
	*RootOptions
	Set     uint32
	Binding uint32
	Reverse bool
}

// CorrectionEntry is one corrected binding as reported by the corrections
// command.
type CorrectionEntry struct {
	Set         uint32   `json:"set"`
	Binding     uint32   `json:"binding"`
	Current     uint32   `json:"current"`
	Corrections []string `json:"corrections"`
}

func (e CorrectionEntry) String() string {
	if len(e.Corrections) == 0 {
		return fmt.Sprintf("set %d binding %d: none", e.Set, e.Binding)
	}
	return fmt.Sprintf("set %d binding %d (now %d): %s", e.Set, e.Binding, e.Current, strings.Join(e.Corrections, ", "))
}

// OriginEntry maps a binding of a transformed module back to its origin.
type OriginEntry struct {
	Set     uint32 `json:"set"`
	Current uint32 `json:"current"`
	Binding uint32 `json:"binding"`
	Slot    int    `json:"slot"`
}

func (e OriginEntry) String() string {
	if e.Slot == 0 {
		return fmt.Sprintf("set %d binding %d was authored at binding %d", e.Set, e.Current, e.Binding)
	}
	return fmt.Sprintf("set %d binding %d is sibling %d of authored binding %d", e.Set, e.Current, e.Slot, e.Binding)
}

// NewCorrectionsCommand creates the corrections command.
func NewCorrectionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CorrectionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "corrections <file.corrections.yaml | module.spv>",
		Short: "Query a corrections file",
		Long: `List the corrected bindings of a corrections file, or query one binding
with --set and --binding. Given a module, its corrections file is used.

With --reverse, --binding names a binding of the transformed module and
the command reports which authored binding it belongs to.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrections(opts, args[0], cmd)
		},
	}
	cmd.Flags().Uint32Var(&opts.Set, "set", 0, "descriptor set")
	cmd.Flags().Uint32Var(&opts.Binding, "binding", 0, "binding to query")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "treat --binding as a transformed binding")
	return cmd
}

func runCorrections(opts *CorrectionsOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if filepath.Ext(path) == ".spv" {
		path = sidecarPath(path)
	}
	cm, err := loadCorrections(path)
	if err != nil {
		return err
	}

	switch {
	case opts.Reverse:
		key, slot := cm.OriginalBinding(opts.Set, opts.Binding)
		e := OriginEntry{Set: opts.Set, Current: opts.Binding, Binding: key, Slot: slot}
		return formatter.Success(e.String(), e)
	case cmd.Flags().Changed("binding"):
		e := entry(cm, opts.Set, opts.Binding)
		return formatter.Success(e.String(), e)
	}

	entries := []CorrectionEntry{}
	for _, set := range cm.SetIndices() {
		for _, binding := range cm.Bindings(set) {
			entries = append(entries, entry(cm, set, binding))
		}
	}
	text := joinLines(entries)
	if len(entries) == 0 {
		text = "no corrections"
	}
	return formatter.Success(text, entries)
}

func entry(cm *transform.CorrectionMap, set, binding uint32) CorrectionEntry {
	e := CorrectionEntry{
		Set:         set,
		Binding:     binding,
		Current:     cm.CurrentBinding(set, binding),
		Corrections: []string{},
	}
	list, _ := cm.Lookup(set, binding)
	for _, c := range list {
		e.Corrections = append(e.Corrections, c.String())
	}
	return e
}
