// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import "github.com/gogpu/spvpatch/spirv"

// OpTypeImage operand positions, counted from the head word.
const (
	imageWordDim     = 3
	imageWordArrayed = 5
	imageWordSampled = 7
)

// StorageCubePatch rewrites storage cube images as 2D array images with
// six layers. Every read and write addresses the array through a helper
// that maps the cube coordinate to (s, t, face); OpImageQuerySize results
// are narrowed back to two components. Converted descriptor variables are
// marked with ConvertStorageCube. Arrayed cubes are rejected.
func StorageCubePatch(spv []uint32, cm *CorrectionMap) ([]uint32, error) {
	if err := checkMap(cm, "correction map"); err != nil {
		return nil, named("storagecubepatch", err)
	}
	out, err := storageCubePatch(spv, cm)
	return out, named("storagecubepatch", err)
}

func storageCubePatch(spv []uint32, cm *CorrectionMap) ([]uint32, error) {
	p, err := newPass(spv)
	if err != nil {
		return nil, err
	}

	converted := make(map[uint32]bool)
	for _, img := range p.s.Find(spirv.OpTypeImage) {
		if img.WordCount() <= imageWordSampled ||
			spirv.Dim(img.Words[imageWordDim]) != spirv.DimCube ||
			img.Words[imageWordSampled] != spirv.ImageSampledStorage {
			continue
		}
		if img.Words[imageWordArrayed] != 0 {
			return nil, newError(ErrUnsupportedCubeArray, img.Offset, "storage cube array image %%%d", img.ResultID())
		}
		p.edits.Overwrite(img.Offset+imageWordDim, uint32(spirv.Dim2D))
		p.edits.Overwrite(img.Offset+imageWordArrayed, 1)
		converted[img.ResultID()] = true
	}
	if len(converted) == 0 {
		return spv, nil
	}

	var helper uint32
	cubeHelper := func() uint32 {
		if helper == 0 {
			helper = p.cubeToLayer()
		}
		return helper
	}
	for _, inst := range p.s.Insts() {
		var coordWord int
		switch inst.Opcode() {
		case spirv.OpImageRead, spirv.OpImageFetch:
			coordWord = 4
		case spirv.OpImageWrite:
			coordWord = 2
		case spirv.OpImageQuerySize:
			if p.convertedImage(inst.Operand(2), converted) {
				if err := p.fixQuerySize(inst); err != nil {
					return nil, err
				}
			}
			continue
		default:
			continue
		}
		if !p.convertedImage(inst.Words[coordWord-1], converted) {
			continue
		}
		if err := p.rerouteCoordinate(inst, coordWord, cubeHelper()); err != nil {
			return nil, err
		}
	}

	for _, v := range p.s.Find(spirv.OpVariable) {
		_, t, ok := pointee(p.s, v.ResultType())
		if !ok || !converted[t.ResultID()] {
			continue
		}
		if d, ok := p.table.byID[v.ResultID()]; ok {
			key, _ := cm.OriginalBinding(d.set, d.binding)
			cm.Append(d.set, key, ConvertStorageCube)
		}
	}
	return p.finish(), nil
}

// convertedImage reports whether the image operand id is a value of a
// converted image type.
func (p *pass) convertedImage(id uint32, converted map[uint32]bool) bool {
	def, ok := p.s.Def(id)
	return ok && converted[def.ResultType()]
}

// rerouteCoordinate passes the coordinate operand of an image access
// through the cube helper.
func (p *pass) rerouteCoordinate(inst spirv.Inst, coordWord int, helper uint32) error {
	intT := p.types.Int(32, true)
	ivec3 := p.types.Vector(intT, 3)
	coord := inst.Words[coordWord]
	tmp, err := p.temp(inst.Offset, p.types.Pointer(spirv.StorageClassFunction, ivec3))
	if err != nil {
		return err
	}

	b := newEmitter(p.alloc)
	src, ok := p.s.Def(coord)
	if !ok {
		src, ok = traceIntermediate(p.s, coord, inst.Offset)
	}
	if !ok {
		return newError(ErrUntraceableOperand, inst.Offset, "cube coordinate %%%d has no producer", coord)
	}
	if src.ResultType() != ivec3 {
		shape, ok := shapeOf(p.s, src.ResultType())
		if !ok || shape.count != 3 || shape.scalar.Opcode() != spirv.OpTypeInt {
			return newError(ErrUnsupported, inst.Offset, "cube coordinate %%%d is not a 3-component integer vector", coord)
		}
		coord = b.op(spirv.OpBitcast, ivec3, coord)
	}
	b.stmt(spirv.OpStore, tmp, coord)
	layered := b.op(spirv.OpFunctionCall, ivec3, helper, tmp)

	words := inst.Clone()
	words[coordWord] = layered
	b.words = append(b.words, words...)
	p.edits.Replace(inst.Offset, b.take()...)
	return nil
}

// fixQuerySize retypes OpImageQuerySize on an arrayed image to its
// three-component result and shuffles the layer count away.
func (p *pass) fixQuerySize(inst spirv.Inst) error {
	resultType, result := inst.Operand(0), inst.Operand(1)
	shape, ok := shapeOf(p.s, resultType)
	if !ok || shape.count != 2 {
		return nil
	}
	wide := p.types.Vector(shape.scalar.ResultID(), 3)
	b := newEmitter(p.alloc)
	size := b.op(spirv.OpImageQuerySize, wide, inst.Operands()[2:]...)
	b.opTo(result, spirv.OpVectorShuffle, resultType, size, size, 0, 1)
	p.edits.Replace(inst.Offset, b.take()...)
	return nil
}

// cubeToLayer synthesizes ivec3 f(ptr Function ivec3) mapping a cube
// coordinate onto (s, t, face) of the layered image. The major axis is the
// one with the largest magnitude, ties going to x and then y; faces are
// ordered +X, -X, +Y, -Y, +Z, -Z.
func (p *pass) cubeToLayer() uint32 {
	glsl := p.types.ExtInstImport(spirv.GLSLstd450Name)
	boolT := p.types.Bool()
	intT := p.types.Int(32, true)
	ivec3 := p.types.Vector(intT, 3)
	ptrT := p.types.Pointer(spirv.StorageClassFunction, ivec3)
	fnT := p.types.Function(ivec3, ptrT)
	var face [6]uint32
	for i := range face {
		face[i] = p.types.Sint(int32(i))
	}
	zero := face[0]

	b := newEmitter(p.alloc)
	fn, params := b.function(ivec3, fnT, ptrT)
	v := b.op(spirv.OpLoad, ivec3, params[0])
	x := b.op(spirv.OpCompositeExtract, intT, v, 0)
	y := b.op(spirv.OpCompositeExtract, intT, v, 1)
	z := b.op(spirv.OpCompositeExtract, intT, v, 2)
	ax := b.op(spirv.OpExtInst, intT, glsl, spirv.GLSLstd450SAbs, x)
	ay := b.op(spirv.OpExtInst, intT, glsl, spirv.GLSLstd450SAbs, y)
	az := b.op(spirv.OpExtInst, intT, glsl, spirv.GLSLstd450SAbs, z)

	xmaj := b.op(spirv.OpLogicalAnd, boolT,
		b.op(spirv.OpSGreaterThanEqual, boolT, ax, ay),
		b.op(spirv.OpSGreaterThanEqual, boolT, ax, az))
	ymaj := b.op(spirv.OpLogicalAnd, boolT,
		b.op(spirv.OpSGreaterThan, boolT, ay, ax),
		b.op(spirv.OpSGreaterThanEqual, boolT, ay, az))
	xpos := b.op(spirv.OpSGreaterThan, boolT, x, zero)
	ypos := b.op(spirv.OpSGreaterThan, boolT, y, zero)
	zpos := b.op(spirv.OpSGreaterThan, boolT, z, zero)
	nx := b.op(spirv.OpSNegate, intT, x)
	ny := b.op(spirv.OpSNegate, intT, y)
	nz := b.op(spirv.OpSNegate, intT, z)

	pick := func(cond, a, c uint32) uint32 {
		return b.op(spirv.OpSelect, intT, cond, a, c)
	}
	f := pick(xmaj, pick(xpos, face[0], face[1]),
		pick(ymaj, pick(ypos, face[2], face[3]), pick(zpos, face[4], face[5])))
	s := pick(xmaj, pick(xpos, nz, z), pick(ymaj, x, pick(zpos, x, nx)))
	t := pick(xmaj, ny, pick(ymaj, pick(ypos, z, nz), ny))
	b.ret(b.op(spirv.OpCompositeConstruct, ivec3, s, t, f))
	p.funcs = append(p.funcs, b.take()...)
	return fn
}
