// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import "github.com/gogpu/spvpatch/spirv"

// traceIntermediate finds the most recent instruction before offset that
// produced id with a declared result type. Intermediate values such as the
// operand of OpIsNan may have no load to trace a type through.
func traceIntermediate(s *spirv.Stream, id uint32, offset int) (spirv.Inst, bool) {
	idx, ok := s.IndexOf(offset)
	if !ok {
		return spirv.Inst{}, false
	}
	for i := idx - 1; i >= 0; i-- {
		inst := s.Inst(i)
		if inst.Opcode().HasResultType() && inst.Operand(1) == id {
			return inst, true
		}
	}
	return spirv.Inst{}, false
}

// scalarShape describes a numeric type as a component type and count;
// count is 1 for scalars.
type scalarShape struct {
	scalar spirv.Inst // OpTypeFloat or OpTypeInt
	vector uint32     // the vector type, 0 for scalars
	count  uint32
}

// shapeOf unwraps one level of vector from typeID.
func shapeOf(s *spirv.Stream, typeID uint32) (scalarShape, bool) {
	t, ok := s.Def(typeID)
	if !ok {
		return scalarShape{}, false
	}
	if t.Opcode() == spirv.OpTypeVector {
		c, ok := s.Def(t.Operand(1))
		if !ok {
			return scalarShape{}, false
		}
		return scalarShape{scalar: c, vector: typeID, count: t.Operand(2)}, true
	}
	return scalarShape{scalar: t, count: 1}, true
}

// pointee returns the type a pointer type points to.
func pointee(s *spirv.Stream, ptrType uint32) (spirv.StorageClass, spirv.Inst, bool) {
	p, ok := s.Def(ptrType)
	if !ok || p.Opcode() != spirv.OpTypePointer {
		return 0, spirv.Inst{}, false
	}
	t, ok := s.Def(p.Operand(2))
	return spirv.StorageClass(p.Operand(1)), t, ok
}
