// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import "github.com/gogpu/spvpatch/spirv"

// IEEE-754 binary32 layout.
const (
	f32MantissaBits = 23
	f32ExponentMask = 0xFF
	f32FractionMask = 0x7FFFFF
)

// IsNanIsInfPatch replaces every OpIsNan and OpIsInf with a call to a
// synthesized helper that classifies the float by its bit pattern. Vector
// operands are classified per component. Only 32-bit floats are supported.
func IsNanIsInfPatch(spv []uint32) ([]uint32, error) {
	out, err := isNanIsInfPatch(spv)
	return out, named("isnanisinfpatch", err)
}

type classifyKey struct {
	op    spirv.OpCode
	float uint32
}

func isNanIsInfPatch(spv []uint32) ([]uint32, error) {
	p, err := newPass(spv)
	if err != nil {
		return nil, err
	}
	sites := append(p.s.Find(spirv.OpIsNan), p.s.Find(spirv.OpIsInf)...)
	if len(sites) == 0 {
		return spv, nil
	}

	helpers := make(map[classifyKey]uint32)
	for _, site := range sites {
		operand := site.Operand(2)
		src, ok := traceIntermediate(p.s, operand, site.Offset)
		if !ok {
			return nil, newError(ErrUntraceableOperand, site.Offset, "no instruction before %s produces %%%d", site.Opcode(), operand)
		}
		shape, ok := shapeOf(p.s, src.ResultType())
		if !ok || shape.scalar.Opcode() != spirv.OpTypeFloat {
			return nil, newError(ErrUntraceableOperand, site.Offset, "operand %%%d of %s is not a float", operand, site.Opcode())
		}
		if width := shape.scalar.Operand(1); width != 32 {
			return nil, newError(ErrUnsupportedFloatWidth, site.Offset, "%s on a %d-bit float", site.Opcode(), width)
		}

		floatID := shape.scalar.ResultID()
		key := classifyKey{op: site.Opcode(), float: floatID}
		helper, ok := helpers[key]
		if !ok {
			helper = p.classifier(site.Opcode(), floatID)
			helpers[key] = helper
		}
		if err := p.replaceClassify(site, helper, floatID, shape); err != nil {
			return nil, err
		}
	}
	return p.finish(), nil
}

// classifier synthesizes bool f(ptr Function float) testing the exponent
// for all ones and the fraction for zero (OpIsInf) or non-zero (OpIsNan).
func (p *pass) classifier(op spirv.OpCode, floatID uint32) uint32 {
	boolT := p.types.Bool()
	uintT := p.types.Int(32, false)
	ptrT := p.types.Pointer(spirv.StorageClassFunction, floatID)
	fnT := p.types.Function(boolT, ptrT)
	shift := p.types.Uint(f32MantissaBits)
	expMask := p.types.Uint(f32ExponentMask)
	fracMask := p.types.Uint(f32FractionMask)
	zero := p.types.Uint(0)

	fracTest := spirv.OpINotEqual
	if op == spirv.OpIsInf {
		fracTest = spirv.OpIEqual
	}

	b := newEmitter(p.alloc)
	fn, params := b.function(boolT, fnT, ptrT)
	v := b.op(spirv.OpLoad, floatID, params[0])
	bits := b.op(spirv.OpBitcast, uintT, v)
	shifted := b.op(spirv.OpShiftRightLogical, uintT, bits, shift)
	exp := b.op(spirv.OpBitwiseAnd, uintT, shifted, expMask)
	frac := b.op(spirv.OpBitwiseAnd, uintT, bits, fracMask)
	allOnes := b.op(spirv.OpIEqual, boolT, exp, expMask)
	fracOK := b.op(fracTest, boolT, frac, zero)
	b.ret(b.op(spirv.OpLogicalAnd, boolT, allOnes, fracOK))
	p.funcs = append(p.funcs, b.take()...)
	return fn
}

// replaceClassify rewrites one OpIsNan/OpIsInf into helper calls that
// define the original result ID.
func (p *pass) replaceClassify(site spirv.Inst, helper, floatID uint32, shape scalarShape) error {
	resultType, result, operand := site.Operand(0), site.Operand(1), site.Operand(2)
	ptrFloat := p.types.Pointer(spirv.StorageClassFunction, floatID)
	tmp, err := p.temp(site.Offset, ptrFloat)
	if err != nil {
		return err
	}

	b := newEmitter(p.alloc)
	if shape.vector == 0 {
		b.stmt(spirv.OpStore, tmp, operand)
		b.opTo(result, spirv.OpFunctionCall, resultType, helper, tmp)
		p.edits.Replace(site.Offset, b.take()...)
		return nil
	}

	vecTmp, err := p.temp(site.Offset, p.types.Pointer(spirv.StorageClassFunction, shape.vector))
	if err != nil {
		return err
	}
	boolT := p.types.Bool()
	b.stmt(spirv.OpStore, vecTmp, operand)
	parts := make([]uint32, shape.count)
	for i := range parts {
		elem := b.op(spirv.OpAccessChain, ptrFloat, vecTmp, p.types.Uint(uint32(i)))
		v := b.op(spirv.OpLoad, floatID, elem)
		b.stmt(spirv.OpStore, tmp, v)
		parts[i] = b.op(spirv.OpFunctionCall, boolT, helper, tmp)
	}
	b.opTo(result, spirv.OpCompositeConstruct, resultType, parts...)
	p.edits.Replace(site.Offset, b.take()...)
	return nil
}
