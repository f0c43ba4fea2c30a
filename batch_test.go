// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvpatch_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvpatch"
	"github.com/gogpu/spvpatch/spirv"
	"github.com/gogpu/spvpatch/transform"
)

var _ = Describe("Batch", func() {
	var dir string

	write := func(name string, words []uint32) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, spirv.BytesFromWords(words), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("runs every job and reports failures per job", func() {
		jobs := []spvpatch.Job{
			{
				Name:     "lit",
				Vertex:   write("lit.vert.spv", stage(spirv.ExecutionModelVertex, false)),
				Fragment: write("lit.frag.spv", stage(spirv.ExecutionModelFragment, true)),
				Output:   filepath.Join(dir, "out"),
			},
			{Name: "missing", Module: filepath.Join(dir, "missing.spv"), Output: filepath.Join(dir, "out")},
			{
				Name:   "single",
				Module: write("single.spv", stage(spirv.ExecutionModelFragment, true)),
				Output: filepath.Join(dir, "single"),
			},
		}

		results := spvpatch.Batch(context.Background(), jobs, spvpatch.DefaultOptions(), nil)
		Expect(results).To(HaveLen(3))

		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(results[0].Job.Name).To(Equal("lit"))
		Expect(results[0].Written).To(ConsistOf(
			filepath.Join(dir, "out", "lit.vert.spv"),
			filepath.Join(dir, "out", "lit.frag.spv"),
			filepath.Join(dir, "out", "lit.corrections.yaml"),
		))

		Expect(results[1].Err).To(MatchError(os.ErrNotExist))
		Expect(results[1].Written).To(BeEmpty())

		Expect(results[2].Err).NotTo(HaveOccurred())
		Expect(results[2].Written).To(HaveLen(2))

		data, err := os.ReadFile(filepath.Join(dir, "out", "lit.corrections.yaml"))
		Expect(err).NotTo(HaveOccurred())
		var cm transform.CorrectionMap
		Expect(yaml.Unmarshal(data, &cm)).To(Succeed())
		Expect(cm.Equal(results[0].Corrections)).To(BeTrue())
		got, _ := cm.Lookup(0, 0)
		Expect(got).To(Equal([]transform.CorrectionType{transform.SplitCombined}))
	})

	It("passes outputs to the write function", func() {
		jobs := []spvpatch.Job{{
			Name:   "a",
			Module: write("a.spv", stage(spirv.ExecutionModelVertex, false)),
			Output: filepath.Join(dir, "out"),
		}}
		var paths []string
		results := spvpatch.Batch(context.Background(), jobs, spvpatch.DefaultOptions(), func(path string, _ []byte) error {
			paths = append(paths, path)
			return nil
		})
		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(paths).To(Equal([]string{
			filepath.Join(dir, "out", "a.spv"),
			filepath.Join(dir, "out", "a.corrections.yaml"),
		}))
	})

	It("skips work once the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		jobs := []spvpatch.Job{
			{Name: "a", Module: write("a.spv", stage(spirv.ExecutionModelVertex, false)), Output: dir},
			{Name: "b", Module: write("b.spv", stage(spirv.ExecutionModelVertex, false)), Output: dir},
		}
		for _, r := range spvpatch.Batch(ctx, jobs, spvpatch.DefaultOptions(), nil) {
			Expect(r.Err).To(MatchError(context.Canceled))
		}
	})

	It("stops its workers before returning", func() {
		jobs := []spvpatch.Job{
			{Name: "a", Module: write("a.spv", stage(spirv.ExecutionModelVertex, false)), Output: filepath.Join(dir, "a")},
			{Name: "b", Module: write("b.spv", stage(spirv.ExecutionModelFragment, true)), Output: filepath.Join(dir, "b")},
		}
		opts := spvpatch.DefaultOptions()
		opts.Workers = 8

		before := runtime.NumGoroutine()
		for range 10 {
			for _, r := range spvpatch.Batch(context.Background(), jobs, opts, nil) {
				Expect(r.Err).NotTo(HaveOccurred())
			}
		}
		Eventually(runtime.NumGoroutine).WithTimeout(5 * time.Second).Should(BeNumerically("<=", before))
	})
})

var _ = Describe("LoadManifest", func() {
	It("resolves relative paths", func() {
		src := `
options:
  workers: 8
jobs:
  - name: lit
    vertex: shaders/lit.vert.spv
    fragment: /abs/lit.frag.spv
    output: out
`
		m, err := spvpatch.LoadManifest(strings.NewReader(src), "/work")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Options.Workers).To(Equal(8))
		Expect(m.Options.Mirror).To(BeTrue())
		Expect(m.Jobs).To(Equal([]spvpatch.Job{{
			Name:     "lit",
			Vertex:   "/work/shaders/lit.vert.spv",
			Fragment: "/abs/lit.frag.spv",
			Output:   "/work/out",
		}}))
	})

	DescribeTable("rejects bad jobs",
		func(src, want string) {
			_, err := spvpatch.LoadManifest(strings.NewReader(src), "")
			Expect(err).To(MatchError(ContainSubstring(want)))
		},
		Entry("missing name", "jobs: [{module: a.spv, output: out}]", "missing name"),
		Entry("missing output", "jobs: [{name: a, module: a.spv}]", "missing output"),
		Entry("half a pair", "jobs: [{name: a, vertex: a.spv, output: out}]", "needs both"),
		Entry("module and pair", "jobs: [{name: a, module: a.spv, vertex: v.spv, fragment: f.spv, output: out}]", "cannot be combined"),
		Entry("duplicate names", "jobs: [{name: a, module: a.spv, output: o}, {name: a, module: b.spv, output: o}]", "duplicate name"),
		Entry("unknown pass", "options: {passes: [bogus]}\njobs: []", "unknown pass"),
	)
})
