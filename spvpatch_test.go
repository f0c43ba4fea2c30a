// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvpatch_test

import (
	"bytes"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gogpu/spvpatch"
	"github.com/gogpu/spvpatch/spirv"
	"github.com/gogpu/spvpatch/transform"
)

var _ = Describe("Pipeline", func() {
	var (
		opts spvpatch.Options
		cm   *transform.CorrectionMap
	)

	BeforeEach(func() {
		opts = spvpatch.DefaultOptions()
		cm = &transform.CorrectionMap{}
	})

	It("lists the passes in default order", func() {
		Expect(spvpatch.PassNames()).To(Equal([]string{
			spvpatch.PassCombImgSampSplitter,
			spvpatch.PassDrefSplitter,
			spvpatch.PassStorageCubePatch,
			spvpatch.PassIsNanIsInfPatch,
		}))
		_, ok := spvpatch.LookupPass("nope")
		Expect(ok).To(BeFalse())
	})

	It("splits a combined image-sampler", func() {
		in := stage(spirv.ExecutionModelFragment, true)
		out, err := spvpatch.TransformWords(in, cm, opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(bindings(out)).To(Equal(map[uint32]spirv.OpCode{
			0: spirv.OpTypeImage,
			1: spirv.OpTypeSampler,
		}))
		got, ok := cm.Lookup(0, 0)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal([]transform.CorrectionType{transform.SplitCombined}))
	})

	It("round-trips bytes", func() {
		in := spirv.BytesFromWords(stage(spirv.ExecutionModelVertex, false))
		out, err := spvpatch.Transform(in, cm, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(in))
		Expect(cm.Empty()).To(BeTrue())
	})

	It("runs only the selected passes", func() {
		opts.Passes = []string{spvpatch.PassIsNanIsInfPatch}
		in := stage(spirv.ExecutionModelFragment, true)
		out, err := spvpatch.TransformWords(in, cm, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(in))
		Expect(cm.Empty()).To(BeTrue())
	})

	It("rejects unknown passes", func() {
		opts.Passes = []string{"bogus"}
		_, err := spvpatch.TransformWords(stage(spirv.ExecutionModelFragment, true), cm, opts)
		Expect(err).To(MatchError(ContainSubstring(`unknown pass "bogus"`)))
	})

	It("reports malformed input with its kind", func() {
		_, err := spvpatch.Transform([]byte{1, 2, 3}, cm, opts)
		Expect(err).To(HaveOccurred())

		words := stage(spirv.ExecutionModelFragment, true)
		words[0] = 0xdeadbeef
		_, err = spvpatch.TransformWords(words, cm, opts)
		Expect(transform.IsKind(err, transform.ErrInvalidModule)).To(BeTrue())
	})

	It("logs every pass", func() {
		var buf bytes.Buffer
		opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		_, err := spvpatch.TransformWords(stage(spirv.ExecutionModelFragment, true), cm, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(buf.String(), "pass finished")).To(Equal(4))
		Expect(buf.String()).To(ContainSubstring("pass=combimgsampsplitter"))
	})
})

var _ = Describe("Options", func() {
	It("decodes YAML over the defaults", func() {
		opts, err := spvpatch.LoadOptions(strings.NewReader("passes: [drefsplitter]\nworkers: 2\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.Passes).To(Equal([]string{"drefsplitter"}))
		Expect(opts.Workers).To(Equal(2))
		Expect(opts.Mirror).To(BeTrue())
	})

	It("accepts an empty document", func() {
		opts, err := spvpatch.LoadOptions(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts).To(Equal(spvpatch.DefaultOptions()))
	})

	It("rejects unknown fields and bad values", func() {
		_, err := spvpatch.LoadOptions(strings.NewReader("colour: red\n"))
		Expect(err).To(HaveOccurred())
		_, err = spvpatch.LoadOptions(strings.NewReader("workers: -1\n"))
		Expect(err).To(MatchError(ContainSubstring("workers")))
		_, err = spvpatch.LoadOptions(strings.NewReader("passes: [bogus]\n"))
		Expect(err).To(MatchError(ContainSubstring("known: combimgsampsplitter")))
	})
})

var _ = Describe("TransformPair", func() {
	var vm, fm *transform.CorrectionMap

	BeforeEach(func() {
		vm, fm = &transform.CorrectionMap{}, &transform.CorrectionMap{}
	})

	It("mirrors a fragment split onto the vertex stage", func() {
		vs := spirv.BytesFromWords(stage(spirv.ExecutionModelVertex, false))
		fs := spirv.BytesFromWords(stage(spirv.ExecutionModelFragment, true))
		vOut, fOut, err := spvpatch.TransformPair(vs, fs, vm, fm, spvpatch.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(vm.Equal(fm)).To(BeTrue())

		vw, err := spirv.WordsFromBytes(vOut)
		Expect(err).NotTo(HaveOccurred())
		fw, err := spirv.WordsFromBytes(fOut)
		Expect(err).NotTo(HaveOccurred())
		Expect(bindings(vw)).To(Equal(bindings(fw)))
		Expect(bindings(vw)).To(HaveKeyWithValue(uint32(1), spirv.OpTypeSampler))
	})

	It("leaves the stages apart without mirroring", func() {
		opts := spvpatch.DefaultOptions()
		opts.Mirror = false
		vs := spirv.BytesFromWords(stage(spirv.ExecutionModelVertex, false))
		fs := spirv.BytesFromWords(stage(spirv.ExecutionModelFragment, true))
		vOut, _, err := spvpatch.TransformPair(vs, fs, vm, fm, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(vOut).To(Equal(vs))
		Expect(vm.Empty()).To(BeTrue())
		Expect(fm.Empty()).To(BeFalse())
	})

	It("names the failing stage", func() {
		fs := spirv.BytesFromWords(stage(spirv.ExecutionModelFragment, true))
		_, _, err := spvpatch.TransformPair([]byte{0, 0, 0, 0}, fs, vm, fm, spvpatch.DefaultOptions())
		Expect(err).To(MatchError(HavePrefix("vertex: ")))
	})

	It("keeps both inputs when nothing needs mirroring", func() {
		in := stage(spirv.ExecutionModelVertex, false)
		l, r, err := spvpatch.MirrorWords(in, vm, in, fm, spvpatch.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(l).To(Equal(in))
		Expect(r).To(Equal(in))
	})
})
