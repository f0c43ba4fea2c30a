// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvpatch/spirv"
)

// evaluator interprets the straight-line helper functions the passes
// synthesize. Values are component slices; booleans are 0 or 1.
type evaluator struct {
	t      *testing.T
	s      *spirv.Stream
	values map[uint32][]uint32
}

func newEvaluator(t *testing.T, words []uint32) *evaluator {
	t.Helper()
	m := parse(t, words)
	ev := &evaluator{t: t, s: m.s, values: make(map[uint32][]uint32)}
	for _, inst := range m.s.Insts() {
		switch inst.Opcode() {
		case spirv.OpConstant:
			ev.values[inst.ResultID()] = []uint32{inst.Operand(2)}
		case spirv.OpConstantComposite:
			var v []uint32
			for _, c := range inst.Operands()[2:] {
				v = append(v, ev.values[c]...)
			}
			ev.values[inst.ResultID()] = v
		}
	}
	return ev
}

// call runs the function fn with its single pointer parameter holding arg.
func (ev *evaluator) call(fn uint32, arg []uint32) []uint32 {
	ev.t.Helper()
	def, ok := ev.s.Def(fn)
	require.True(ev.t, ok, "function %%%d not found", fn)
	require.Equal(ev.t, spirv.OpFunction, def.Opcode())
	idx, _ := ev.s.IndexOf(def.Offset)

	memory := make(map[uint32][]uint32)
	vals := make(map[uint32][]uint32)
	get := func(id uint32) []uint32 {
		if v, ok := vals[id]; ok {
			return v
		}
		v, ok := ev.values[id]
		require.True(ev.t, ok, "value %%%d undefined", id)
		return v
	}
	binary := func(inst spirv.Inst, f func(a, b uint32) uint32) {
		a, b := get(inst.Operand(2)), get(inst.Operand(3))
		out := make([]uint32, len(a))
		for i := range a {
			out[i] = f(a[i], b[i])
		}
		vals[inst.ResultID()] = out
	}

	for _, inst := range ev.s.Insts()[idx+1:] {
		switch op := inst.Opcode(); op {
		case spirv.OpFunctionParameter:
			memory[inst.ResultID()] = arg
		case spirv.OpLabel:
		case spirv.OpLoad:
			vals[inst.ResultID()] = memory[inst.Operand(2)]
		case spirv.OpBitcast:
			vals[inst.ResultID()] = get(inst.Operand(2))
		case spirv.OpShiftRightLogical:
			binary(inst, func(a, b uint32) uint32 { return a >> b })
		case spirv.OpBitwiseAnd:
			binary(inst, func(a, b uint32) uint32 { return a & b })
		case spirv.OpIEqual:
			binary(inst, func(a, b uint32) uint32 { return b2u(a == b) })
		case spirv.OpINotEqual:
			binary(inst, func(a, b uint32) uint32 { return b2u(a != b) })
		case spirv.OpLogicalAnd:
			binary(inst, func(a, b uint32) uint32 { return a & b })
		case spirv.OpSGreaterThan:
			binary(inst, func(a, b uint32) uint32 { return b2u(int32(a) > int32(b)) })
		case spirv.OpSGreaterThanEqual:
			binary(inst, func(a, b uint32) uint32 { return b2u(int32(a) >= int32(b)) })
		case spirv.OpSNegate:
			vals[inst.ResultID()] = []uint32{uint32(-int32(get(inst.Operand(2))[0]))}
		case spirv.OpCompositeExtract:
			vals[inst.ResultID()] = []uint32{get(inst.Operand(2))[inst.Operand(3)]}
		case spirv.OpCompositeConstruct:
			var v []uint32
			for _, c := range inst.Operands()[2:] {
				v = append(v, get(c)...)
			}
			vals[inst.ResultID()] = v
		case spirv.OpSelect:
			if get(inst.Operand(2))[0] != 0 {
				vals[inst.ResultID()] = get(inst.Operand(3))
			} else {
				vals[inst.ResultID()] = get(inst.Operand(4))
			}
		case spirv.OpExtInst:
			require.Equal(ev.t, uint32(spirv.GLSLstd450SAbs), inst.Operand(3))
			v := int32(get(inst.Operand(4))[0])
			if v < 0 {
				v = -v
			}
			vals[inst.ResultID()] = []uint32{uint32(v)}
		case spirv.OpReturnValue:
			return get(inst.Operand(0))
		default:
			require.Failf(ev.t, "unsupported instruction", "%s in helper", op)
		}
	}
	require.Fail(ev.t, "helper did not return")
	return nil
}

// runEntry interprets the straight-line body of the entry point and
// returns every value it defines. Helper calls go through call.
func (ev *evaluator) runEntry() map[uint32][]uint32 {
	ev.t.Helper()
	eps := ev.s.Find(spirv.OpEntryPoint)
	require.NotEmpty(ev.t, eps)
	def, ok := ev.s.Def(eps[0].Operand(1))
	require.True(ev.t, ok)
	idx, _ := ev.s.IndexOf(def.Offset)

	type element struct{ base, index uint32 }
	memory := make(map[uint32][]uint32)
	chains := make(map[uint32]element)
	vals := make(map[uint32][]uint32)
	get := func(id uint32) []uint32 {
		if v, ok := vals[id]; ok {
			return v
		}
		v, ok := ev.values[id]
		require.True(ev.t, ok, "value %%%d undefined", id)
		return v
	}
	load := func(ptr uint32) []uint32 {
		if e, ok := chains[ptr]; ok {
			return []uint32{memory[e.base][e.index]}
		}
		v, ok := memory[ptr]
		require.True(ev.t, ok, "load of unwritten %%%d", ptr)
		return v
	}

	for _, inst := range ev.s.Insts()[idx+1:] {
		switch op := inst.Opcode(); op {
		case spirv.OpLabel, spirv.OpVariable:
		case spirv.OpStore:
			ptr, v := inst.Operand(0), get(inst.Operand(1))
			if e, ok := chains[ptr]; ok {
				memory[e.base][e.index] = v[0]
			} else {
				memory[ptr] = slices.Clone(v)
			}
		case spirv.OpLoad:
			vals[inst.ResultID()] = load(inst.Operand(2))
		case spirv.OpAccessChain:
			chains[inst.ResultID()] = element{base: inst.Operand(2), index: get(inst.Operand(3))[0]}
		case spirv.OpFunctionCall:
			vals[inst.ResultID()] = ev.call(inst.Operand(2), load(inst.Operand(3)))
		case spirv.OpCompositeConstruct:
			var v []uint32
			for _, c := range inst.Operands()[2:] {
				v = append(v, get(c)...)
			}
			vals[inst.ResultID()] = v
		case spirv.OpReturn:
			return vals
		default:
			require.Failf(ev.t, "unsupported instruction", "%s in entry point", op)
		}
	}
	require.Fail(ev.t, "entry point did not return")
	return nil
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
