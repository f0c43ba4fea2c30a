// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvpatch/spirv"
)

type cubeFixture struct {
	words []uint32
	image uint32 // the storage image type
	size  uint32 // OpImageQuerySize result
	read  uint32 // OpImageRead result
}

func storageCubeStage(arrayed uint32) cubeFixture {
	m := newShaderModule(spirv.Version1_0)
	b := m.b
	i32 := b.AddTypeInt(32, true)
	ivec2 := b.AddTypeVector(i32, 2)
	ivec3 := b.AddTypeVector(i32, 3)
	img := b.AddTypeStorageImage(m.f32, spirv.DimCube, arrayed, spirv.ImageFormatRgba8)
	ptrImg := b.AddTypePointer(spirv.StorageClassUniformConstant, img)
	one := b.AddConstant(i32, 1)
	coord := b.AddConstantComposite(ivec3, one, one, one)
	cube := b.AddVariable(ptrImg, spirv.StorageClassUniformConstant)
	b.AddBinding(cube, 0, 0)

	m.begin()
	fx := cubeFixture{image: img}
	loaded := b.AddLoad(img, cube)
	fx.read = b.AddOp(spirv.OpImageRead, m.v4, loaded, coord)
	b.AddStatement(spirv.OpImageWrite, loaded, coord, fx.read)
	fx.size = b.AddOp(spirv.OpImageQuerySize, ivec2, loaded)
	fx.words = m.end(spirv.ExecutionModelFragment)
	return fx
}

func TestStorageCubePatchRewritesType(t *testing.T) {
	fx := storageCubeStage(0)
	var cm CorrectionMap
	out, err := StorageCubePatch(fx.words, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, fx.words, out)

	img, ok := m.s.Def(fx.image)
	require.True(t, ok)
	assert.Equal(t, uint32(spirv.Dim2D), img.Words[imageWordDim])
	assert.Equal(t, uint32(1), img.Words[imageWordArrayed])
	assert.Equal(t, uint32(spirv.ImageSampledStorage), img.Words[imageWordSampled])

	got, ok := cm.Lookup(0, 0)
	require.True(t, ok)
	assert.Equal(t, []CorrectionType{ConvertStorageCube}, got)
	// The marker does not move bindings.
	assert.Equal(t, uint32(1), cm.CurrentBinding(0, 1))
	assert.Equal(t, fx.image, mustPointeeID(t, m, m.varAt(t, 0, 0)))
}

func mustPointeeID(t *testing.T, m parsed, v spirv.Inst) uint32 {
	t.Helper()
	_, ty, ok := pointee(m.s, v.ResultType())
	require.True(t, ok)
	return ty.ResultID()
}

func TestStorageCubePatchReroutesAccess(t *testing.T) {
	fx := storageCubeStage(0)
	var cm CorrectionMap
	out, err := StorageCubePatch(fx.words, &cm)
	require.NoError(t, err)
	m := requireWellFormed(t, fx.words, out)

	calls := m.s.Find(spirv.OpFunctionCall)
	require.Len(t, calls, 2, "one helper call per read and write")
	helper := calls[0].Operand(2)
	assert.Equal(t, helper, calls[1].Operand(2))
	assert.Equal(t, 2, m.count(spirv.OpFunction))

	read, ok := m.s.Def(fx.read)
	require.True(t, ok)
	assert.Equal(t, calls[0].ResultID(), read.Operand(3))
	writes := m.s.Find(spirv.OpImageWrite)
	require.Len(t, writes, 1)
	assert.Equal(t, calls[1].ResultID(), writes[0].Operand(1))
}

func TestStorageCubePatchQuerySize(t *testing.T) {
	fx := storageCubeStage(0)
	out, err := StorageCubePatch(fx.words, &CorrectionMap{})
	require.NoError(t, err)
	m := requireWellFormed(t, fx.words, out)

	shuffle, ok := m.s.Def(fx.size)
	require.True(t, ok)
	require.Equal(t, spirv.OpVectorShuffle, shuffle.Opcode())
	assert.Equal(t, []uint32{0, 1}, shuffle.Operands()[4:])

	query, ok := m.s.Def(shuffle.Operand(2))
	require.True(t, ok)
	require.Equal(t, spirv.OpImageQuerySize, query.Opcode())
	shape, ok := shapeOf(m.s, query.ResultType())
	require.True(t, ok)
	assert.Equal(t, uint32(3), shape.count)
}

func TestStorageCubeHelperFaces(t *testing.T) {
	fx := storageCubeStage(0)
	out, err := StorageCubePatch(fx.words, &CorrectionMap{})
	require.NoError(t, err)
	m := parse(t, out)
	helper := m.s.Find(spirv.OpFunctionCall)[0].Operand(2)
	ev := newEvaluator(t, out)

	i := func(v ...int32) []uint32 {
		out := make([]uint32, len(v))
		for k := range v {
			out[k] = uint32(v[k])
		}
		return out
	}
	tests := []struct {
		name string
		dir  []uint32
		want []uint32 // s, t, face
	}{
		{"+x", i(5, 1, 2), i(-2, -1, 0)},
		{"-x", i(-5, 1, 2), i(2, -1, 1)},
		{"+y", i(1, 5, 2), i(1, 2, 2)},
		{"-y", i(1, -5, 2), i(1, -2, 3)},
		{"+z", i(1, 2, 5), i(1, -2, 4)},
		{"-z", i(1, 2, -5), i(-1, -2, 5)},
		{"x wins ties", i(3, 3, 1), i(-1, -3, 0)},
		{"y beats z on ties", i(1, -4, 4), i(1, -4, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.call(helper, tt.dir))
		})
	}
}

func TestStorageCubePatchRejectsCubeArray(t *testing.T) {
	fx := storageCubeStage(1)
	var cm CorrectionMap
	_, err := StorageCubePatch(fx.words, &cm)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnsupportedCubeArray))
	assert.True(t, cm.Empty())
}

func TestStorageCubePatchIgnoresSampledCubes(t *testing.T) {
	m := newShaderModule(spirv.Version1_0)
	img := m.b.AddTypeImage(m.f32, spirv.DimCube, 0, 0, 0, 1)
	ptr := m.b.AddTypePointer(spirv.StorageClassUniformConstant, img)
	v := m.b.AddVariable(ptr, spirv.StorageClassUniformConstant)
	m.b.AddBinding(v, 0, 0)
	m.begin()
	in := m.end(spirv.ExecutionModelFragment)

	var cm CorrectionMap
	out, err := StorageCubePatch(in, &cm)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, cm.Empty())
}
