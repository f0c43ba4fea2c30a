// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvpatch/spirv"
)

type combinedFixture struct {
	words []uint32
	tex   uint32 // combined image-sampler at set 0 binding 0
	other uint32 // plain texture at set 0 binding 1
	load  uint32 // result of loading tex in main
}

// combinedStage samples a combined image-sampler. With helper set, the
// sampling happens in a function that takes the combined pointer.
func combinedStage(version spirv.Version, helper bool) combinedFixture {
	m := newShaderModule(version)
	b := m.b
	img := b.AddTypeImage(m.f32, spirv.Dim2D, 0, 0, 0, 1)
	si := b.AddTypeSampledImage(img)
	ptrSI := b.AddTypePointer(spirv.StorageClassUniformConstant, si)
	ptrImg := b.AddTypePointer(spirv.StorageClassUniformConstant, img)
	sampleFnTy := b.AddTypeFunction(m.v4, ptrSI)
	half := b.AddConstantFloat32(m.f32, 0.5)
	uv := b.AddConstantComposite(m.v2, half, half)
	tex := b.AddVariable(ptrSI, spirv.StorageClassUniformConstant)
	other := b.AddVariable(ptrImg, spirv.StorageClassUniformConstant)
	b.AddBinding(tex, 0, 0)
	b.AddBinding(other, 0, 1)
	if version.AtLeast(spirv.Version1_4) {
		m.iface = []uint32{tex, other}
	}

	f := combinedFixture{tex: tex, other: other}
	var sample uint32
	if helper {
		sample = b.AddFunction(sampleFnTy, m.v4, spirv.FunctionControlNone)
		param := b.AddFunctionParameter(ptrSI)
		b.AddLabel()
		f.load = b.AddLoad(si, param)
		b.AddReturnValue(b.AddOp(spirv.OpImageSampleImplicitLod, m.v4, f.load, uv))
		b.AddFunctionEnd()
	}
	m.begin()
	if helper {
		b.AddFunctionCall(m.v4, sample, tex)
	} else {
		f.load = b.AddLoad(si, tex)
		b.AddOp(spirv.OpImageSampleImplicitLod, m.v4, f.load, uv)
	}
	f.words = m.end(spirv.ExecutionModelFragment)
	return f
}

func TestCombImgSampSplitterSplits(t *testing.T) {
	fx := combinedStage(spirv.Version1_0, false)
	var cm CorrectionMap
	out, err := CombImgSampSplitter(fx.words, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, fx.words, out)

	got, ok := cm.Lookup(0, 0)
	require.True(t, ok)
	assert.Equal(t, []CorrectionType{SplitCombined}, got)

	tex := m.varAt(t, 0, 0)
	assert.Equal(t, fx.tex, tex.ResultID())
	assert.Equal(t, spirv.OpTypeImage, m.pointeeOp(t, tex))
	assert.Equal(t, spirv.OpTypeSampler, m.pointeeOp(t, m.varAt(t, 0, 1)))
	assert.Equal(t, fx.other, m.varAt(t, 0, 2).ResultID(), "later bindings shift up")

	// The original load result is now produced by OpSampledImage.
	def, ok := m.s.Def(fx.load)
	require.True(t, ok)
	assert.Equal(t, spirv.OpSampledImage, def.Opcode())
	imgLoad, _ := m.s.Def(def.Operand(2))
	smpLoad, _ := m.s.Def(def.Operand(3))
	assert.Equal(t, fx.tex, imgLoad.Operand(2))
	assert.Equal(t, m.varAt(t, 0, 1).ResultID(), smpLoad.Operand(2))
}

func TestCombImgSampSplitterExtendsInterface(t *testing.T) {
	fx := combinedStage(spirv.Version1_4, false)
	var cm CorrectionMap
	out, err := CombImgSampSplitter(fx.words, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, fx.words, out)

	ep := m.s.Find(spirv.OpEntryPoint)
	require.Len(t, ep, 1)
	sampler := m.varAt(t, 0, 1).ResultID()
	assert.True(t, listsInterface(ep[0], sampler))
	assert.True(t, listsInterface(ep[0], fx.tex))
}

func TestCombImgSampSplitterFunctionParameter(t *testing.T) {
	fx := combinedStage(spirv.Version1_0, true)
	var cm CorrectionMap
	out, err := CombImgSampSplitter(fx.words, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, fx.words, out)
	sampler := m.varAt(t, 0, 1).ResultID()

	fns := m.s.Find(spirv.OpFunction)
	require.Len(t, fns, 2)
	params := m.s.Params(fns[0].Offset)
	require.Len(t, params, 2)
	assert.Equal(t, spirv.OpTypeImage, mustPointee(t, m, params[0].ResultType()))
	assert.Equal(t, spirv.OpTypeSampler, mustPointee(t, m, params[1].ResultType()))

	fnTy, ok := m.s.Def(fns[0].Operand(3))
	require.True(t, ok)
	assert.Equal(t, []uint32{params[0].ResultType(), params[1].ResultType()}, fnTy.Operands()[2:])

	calls := m.s.Find(spirv.OpFunctionCall)
	require.Len(t, calls, 1)
	assert.Equal(t, []uint32{fx.tex, sampler}, calls[0].Operands()[3:])

	def, _ := m.s.Def(fx.load)
	smpLoad, _ := m.s.Def(def.Operand(3))
	assert.Equal(t, params[1].ResultID(), smpLoad.Operand(2))
}

func mustPointee(t *testing.T, m parsed, ptrType uint32) spirv.OpCode {
	t.Helper()
	_, ty, ok := pointee(m.s, ptrType)
	require.True(t, ok)
	return ty.Opcode()
}

func TestCombImgSampSplitterNoop(t *testing.T) {
	in := samplerStage(spirv.ExecutionModelFragment, false)
	var cm CorrectionMap
	out, err := CombImgSampSplitter(in, &cm)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, cm.Empty())
}

func TestCombImgSampSplitterRejectsArrays(t *testing.T) {
	m := newShaderModule(spirv.Version1_0)
	b := m.b
	img := b.AddTypeImage(m.f32, spirv.Dim2D, 0, 0, 0, 1)
	si := b.AddTypeSampledImage(img)
	u32 := b.AddTypeInt(32, false)
	four := b.AddConstant(u32, 4)
	arr := b.AddTypeArray(si, four)
	ptrSI := b.AddTypePointer(spirv.StorageClassUniformConstant, si)
	ptrArr := b.AddTypePointer(spirv.StorageClassUniformConstant, arr)
	_ = ptrSI
	v := b.AddVariable(ptrArr, spirv.StorageClassUniformConstant)
	b.AddBinding(v, 0, 0)
	m.begin()
	words := m.end(spirv.ExecutionModelFragment)

	var cm CorrectionMap
	_, err := CombImgSampSplitter(words, &cm)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnsupported))
	assert.Contains(t, err.Error(), "combimgsampsplitter")
}

func TestCombImgSampSplitterBadMagic(t *testing.T) {
	fx := combinedStage(spirv.Version1_0, false)
	fx.words[0] = 0xdeadbeef
	_, err := CombImgSampSplitter(fx.words, &CorrectionMap{})
	assert.True(t, IsKind(err, ErrInvalidModule))
}
