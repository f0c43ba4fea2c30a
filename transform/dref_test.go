// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvpatch/spirv"
)

// samplerOf returns the variable the sampler of a sampling instruction is
// loaded from.
func samplerOf(t *testing.T, m parsed, inst spirv.Inst) uint32 {
	t.Helper()
	ptr, combined, ok := resolveSampler(m.s, inst.Operand(2))
	require.True(t, ok)
	require.False(t, combined)
	return ptr
}

func TestDrefSplitterMixedSampler(t *testing.T) {
	in := samplerStage(spirv.ExecutionModelFragment, true)
	var cm CorrectionMap
	out, err := DrefSplitter(in, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, in, out)

	got, ok := cm.Lookup(0, 1)
	require.True(t, ok)
	assert.Equal(t, []CorrectionType{SplitDrefComparison}, got)

	regular := m.varAt(t, 0, 1).ResultID()
	cmp := m.varAt(t, 0, 2).ResultID()
	assert.Equal(t, spirv.OpTypeSampler, m.pointeeOp(t, m.varAt(t, 0, 2)))
	assert.Equal(t, spirv.OpTypeImage, m.pointeeOp(t, m.varAt(t, 0, 3)), "the later texture moves up")

	samples := m.s.Find(spirv.OpImageSampleExplicitLod)
	require.Len(t, samples, 1)
	assert.Equal(t, regular, samplerOf(t, m, samples[0]))
	drefs := m.s.Find(spirv.OpImageSampleDrefExplicitLod)
	require.Len(t, drefs, 1)
	assert.Equal(t, cmp, samplerOf(t, m, drefs[0]))
}

func TestDrefSplitterLeavesUnmixedSamplers(t *testing.T) {
	in := samplerStage(spirv.ExecutionModelFragment, false)
	var cm CorrectionMap
	out, err := DrefSplitter(in, &cm)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, cm.Empty())
}

// mixedCombinedStage samples one combined image-sampler at set 0 binding 0
// both with and without depth comparison. A texture follows at binding 1.
func mixedCombinedStage() []uint32 {
	m := newShaderModule(spirv.Version1_0)
	b := m.b
	img := b.AddTypeImage(m.f32, spirv.Dim2D, 1, 0, 0, 1)
	si := b.AddTypeSampledImage(img)
	ptrSI := b.AddTypePointer(spirv.StorageClassUniformConstant, si)
	ptrImg := b.AddTypePointer(spirv.StorageClassUniformConstant, img)
	half := b.AddConstantFloat32(m.f32, 0.5)
	uv := b.AddConstantComposite(m.v2, half, half)
	shadow := b.AddVariable(ptrSI, spirv.StorageClassUniformConstant)
	other := b.AddVariable(ptrImg, spirv.StorageClassUniformConstant)
	b.AddBinding(shadow, 0, 0)
	b.AddBinding(other, 0, 1)

	m.begin()
	a := b.AddLoad(si, shadow)
	b.AddOp(spirv.OpImageSampleImplicitLod, m.v4, a, uv)
	c := b.AddLoad(si, shadow)
	b.AddOp(spirv.OpImageSampleDrefImplicitLod, m.f32, c, uv, half)
	return m.end(spirv.ExecutionModelFragment)
}

func TestDrefSplitterMixedCombined(t *testing.T) {
	in := mixedCombinedStage()
	var cm CorrectionMap
	out, err := DrefSplitter(in, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, in, out)

	got, ok := cm.Lookup(0, 0)
	require.True(t, ok)
	assert.Equal(t, []CorrectionType{SplitDrefRegular, SplitDrefComparison}, got)

	assert.Equal(t, spirv.OpTypeImage, m.pointeeOp(t, m.varAt(t, 0, 0)))
	regular := m.varAt(t, 0, 1)
	cmp := m.varAt(t, 0, 2)
	assert.Equal(t, spirv.OpTypeSampler, m.pointeeOp(t, regular))
	assert.Equal(t, spirv.OpTypeSampler, m.pointeeOp(t, cmp))
	assert.Equal(t, spirv.OpTypeImage, m.pointeeOp(t, m.varAt(t, 0, 3)))

	samples := m.s.Find(spirv.OpImageSampleImplicitLod)
	require.Len(t, samples, 1)
	assert.Equal(t, regular.ResultID(), samplerOf(t, m, samples[0]))
	drefs := m.s.Find(spirv.OpImageSampleDrefImplicitLod)
	require.Len(t, drefs, 1)
	assert.Equal(t, cmp.ResultID(), samplerOf(t, m, drefs[0]))

	// Both lookups read the same image.
	img := func(inst spirv.Inst) uint32 {
		si, _ := m.s.Def(inst.Operand(2))
		load, _ := m.s.Def(si.Operand(2))
		return load.Operand(2)
	}
	assert.Equal(t, m.varAt(t, 0, 0).ResultID(), img(samples[0]))
	assert.Equal(t, m.varAt(t, 0, 0).ResultID(), img(drefs[0]))
}

func TestDrefSplitterThenCombinedSplitter(t *testing.T) {
	in := mixedCombinedStage()
	var cm CorrectionMap
	out, err := DrefSplitter(in, &cm)
	require.NoError(t, err)
	again, err := CombImgSampSplitter(out, &cm)
	require.NoError(t, err)
	assert.Equal(t, out, again, "nothing combined is left")

	got, _ := cm.Lookup(0, 0)
	assert.Len(t, got, 2)
}
