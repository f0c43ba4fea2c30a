// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spvpatch rewrites Vulkan-flavoured SPIR-V so WebGPU shader
// translators accept it.
//
// The rewriting itself lives in package transform; this package strings
// the passes into a pipeline, reconciles vertex and fragment stages, and
// runs many jobs concurrently.
//
// Example usage:
//
//	var cm transform.CorrectionMap
//	out, err := spvpatch.Transform(spv, &cm, spvpatch.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	entries, err := layout.Apply(0, authored, &cm)
//
// For a vertex and fragment pair, TransformPair also runs the mirror pass
// so both stages agree on one pipeline layout:
//
//	vert, frag, err := spvpatch.TransformPair(vs, fs, &vm, &fm, opts)
package spvpatch

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvpatch/spirv"
	"github.com/gogpu/spvpatch/transform"
)

// Pass is one named rewrite.
type Pass struct {
	Name string
	Run  func(spv []uint32, cm *transform.CorrectionMap) ([]uint32, error)
}

// Pass names.
const (
	PassCombImgSampSplitter = "combimgsampsplitter"
	PassDrefSplitter        = "drefsplitter"
	PassStorageCubePatch    = "storagecubepatch"
	PassIsNanIsInfPatch     = "isnanisinfpatch"
)

// passes lists every pass in the order the pipeline runs them by default.
// Combined samplers are split before mixed comparison use is examined.
var passes = []Pass{
	{Name: PassCombImgSampSplitter, Run: transform.CombImgSampSplitter},
	{Name: PassDrefSplitter, Run: transform.DrefSplitter},
	{Name: PassStorageCubePatch, Run: transform.StorageCubePatch},
	{Name: PassIsNanIsInfPatch, Run: func(spv []uint32, _ *transform.CorrectionMap) ([]uint32, error) {
		return transform.IsNanIsInfPatch(spv)
	}},
}

// Passes returns every pass in default pipeline order.
func Passes() []Pass {
	return append([]Pass(nil), passes...)
}

// LookupPass returns the pass with the given name.
func LookupPass(name string) (Pass, bool) {
	for _, p := range passes {
		if p.Name == name {
			return p, true
		}
	}
	return Pass{}, false
}

// PassNames returns the names of every pass in default pipeline order.
func PassNames() []string {
	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = p.Name
	}
	return names
}

// Options configures the pipeline.
type Options struct {
	// Passes names the passes to run, in order. Empty means every pass in
	// default order.
	Passes []string `yaml:"passes,omitempty"`

	// Mirror runs the mirror pass after transforming a vertex and
	// fragment pair.
	Mirror bool `yaml:"mirror"`

	// Workers bounds the number of jobs Batch runs at once.
	Workers int `yaml:"workers"`

	// Logger receives debug records for every pass. Nil discards them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Mirror:  true,
		Workers: 4,
	}
}

// LoadOptions decodes YAML options on top of DefaultOptions.
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && err != io.EOF {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate reports unknown pass names and nonsensical worker counts.
func (o Options) Validate() error {
	for _, name := range o.Passes {
		if _, ok := LookupPass(name); !ok {
			return fmt.Errorf("unknown pass %q (known: %s)", name, strings.Join(PassNames(), ", "))
		}
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o Options) pipeline() ([]Pass, error) {
	if len(o.Passes) == 0 {
		return Passes(), nil
	}
	out := make([]Pass, 0, len(o.Passes))
	for _, name := range o.Passes {
		p, ok := LookupPass(name)
		if !ok {
			return nil, fmt.Errorf("unknown pass %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

// TransformWords runs the configured passes over a module. Every pass
// records its corrections in cm.
func TransformWords(spv []uint32, cm *transform.CorrectionMap, opts Options) ([]uint32, error) {
	pipeline, err := opts.pipeline()
	if err != nil {
		return nil, err
	}
	log := opts.logger()
	for _, p := range pipeline {
		out, err := p.Run(spv, cm)
		if err != nil {
			return nil, err
		}
		log.Debug("pass finished",
			"pass", p.Name,
			"words_in", len(spv),
			"words_out", len(out),
			"bound", out[spirv.HeaderBound],
		)
		spv = out
	}
	return spv, nil
}

// Transform runs the configured passes over a SPIR-V binary.
func Transform(spv []byte, cm *transform.CorrectionMap, opts Options) ([]byte, error) {
	words, err := spirv.WordsFromBytes(spv)
	if err != nil {
		return nil, err
	}
	out, err := TransformWords(words, cm, opts)
	if err != nil {
		return nil, err
	}
	return spirv.BytesFromWords(out), nil
}

// TransformPair transforms a vertex and a fragment module and, when
// opts.Mirror is set, mirrors their corrections so vm and fm end equal.
func TransformPair(vertex, fragment []byte, vm, fm *transform.CorrectionMap, opts Options) ([]byte, []byte, error) {
	vw, err := spirv.WordsFromBytes(vertex)
	if err != nil {
		return nil, nil, fmt.Errorf("vertex: %w", err)
	}
	fw, err := spirv.WordsFromBytes(fragment)
	if err != nil {
		return nil, nil, fmt.Errorf("fragment: %w", err)
	}
	vw, err = TransformWords(vw, vm, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("vertex: %w", err)
	}
	fw, err = TransformWords(fw, fm, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("fragment: %w", err)
	}
	if opts.Mirror {
		vw, fw, err = MirrorWords(vw, vm, fw, fm, opts)
		if err != nil {
			return nil, nil, err
		}
	}
	return spirv.BytesFromWords(vw), spirv.BytesFromWords(fw), nil
}

// MirrorWords runs the mirror pass and keeps the input of a side the pass
// left unchanged.
func MirrorWords(left []uint32, lm *transform.CorrectionMap, right []uint32, rm *transform.CorrectionMap, opts Options) ([]uint32, []uint32, error) {
	l, r, err := transform.MirrorPatch(left, lm, right, rm)
	if err != nil {
		return nil, nil, err
	}
	opts.logger().Debug("mirror finished",
		"left_patched", l != nil,
		"right_patched", r != nil,
	)
	if l == nil {
		l = left
	}
	if r == nil {
		r = right
	}
	return l, r, nil
}
