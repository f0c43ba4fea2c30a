// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvpatch/spirv"
)

// parsed is a decoded module for assertions.
type parsed struct {
	hdr spirv.Header
	s   *spirv.Stream
}

func parse(t *testing.T, words []uint32) parsed {
	t.Helper()
	hdr, body, err := spirv.ParseHeader(words)
	require.NoError(t, err)
	s, err := spirv.Scan(body)
	require.NoError(t, err)
	return parsed{hdr: hdr, s: s}
}

// bindingOf returns the (set, binding) decorations of id.
func (m parsed) bindingOf(id uint32) (set, binding uint32, ok bool) {
	var hasSet, hasBinding bool
	for _, d := range m.s.Find(spirv.OpDecorate) {
		if d.Operand(0) != id {
			continue
		}
		switch spirv.Decoration(d.Operand(1)) {
		case spirv.DecorationDescriptorSet:
			set, hasSet = d.Operand(2), true
		case spirv.DecorationBinding:
			binding, hasBinding = d.Operand(2), true
		}
	}
	return set, binding, hasSet && hasBinding
}

// varAt returns the variable bound at (set, binding).
func (m parsed) varAt(t *testing.T, set, binding uint32) spirv.Inst {
	t.Helper()
	for _, v := range m.s.Find(spirv.OpVariable) {
		if s, b, ok := m.bindingOf(v.ResultID()); ok && s == set && b == binding {
			return v
		}
	}
	require.Failf(t, "missing variable", "no variable at set %d binding %d", set, binding)
	return spirv.Inst{}
}

// pointeeOp returns the opcode of the type a variable points to.
func (m parsed) pointeeOp(t *testing.T, v spirv.Inst) spirv.OpCode {
	t.Helper()
	_, ty, ok := pointee(m.s, v.ResultType())
	require.True(t, ok, "variable %%%d has no pointer type", v.ResultID())
	return ty.Opcode()
}

func (m parsed) count(op spirv.OpCode) int {
	return len(m.s.Find(op))
}

// requireWellFormed checks that result IDs are unique, below the bound and
// that the bound did not shrink.
func requireWellFormed(t *testing.T, in, out []uint32) parsed {
	t.Helper()
	before := parse(t, in)
	m := parse(t, out)
	require.GreaterOrEqual(t, m.hdr.Bound, before.hdr.Bound)
	seen := make(map[uint32]bool)
	for _, inst := range m.s.Insts() {
		require.NotEqual(t, spirv.OpNop, inst.Opcode(), "nop left at word %d", inst.Offset)
		id := inst.ResultID()
		if id == 0 {
			continue
		}
		require.Less(t, id, m.hdr.Bound, "%s defines %%%d", inst.Opcode(), id)
		require.False(t, seen[id], "%%%d defined twice", id)
		seen[id] = true
		if rt := inst.ResultType(); rt != 0 {
			require.Less(t, rt, m.hdr.Bound)
		}
	}
	return m
}

// shaderModule starts a fragment-shader module with the declarations
// every fixture shares.
type shaderModule struct {
	b     *spirv.ModuleBuilder
	void  uint32
	fnTy  uint32
	f32   uint32
	v2    uint32
	v4    uint32
	main  uint32
	iface []uint32
}

func newShaderModule(version spirv.Version) *shaderModule {
	b := spirv.NewModuleBuilder(version)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	m := &shaderModule{b: b}
	m.void = b.AddTypeVoid()
	m.fnTy = b.AddTypeFunction(m.void)
	m.f32 = b.AddTypeFloat(32)
	m.v2 = b.AddTypeVector(m.f32, 2)
	m.v4 = b.AddTypeVector(m.f32, 4)
	return m
}

// begin opens the entry point function.
func (m *shaderModule) begin() {
	m.main = m.b.AddFunction(m.fnTy, m.void, spirv.FunctionControlNone)
	m.b.AddLabel()
}

// end closes the entry point function and returns the module words.
func (m *shaderModule) end(model spirv.ExecutionModel) []uint32 {
	m.b.AddReturn()
	m.b.AddFunctionEnd()
	m.b.AddEntryPoint(model, m.main, "main", m.iface)
	if model == spirv.ExecutionModelFragment {
		m.b.AddExecutionMode(m.main, spirv.ExecutionModeOriginUpperLeft)
	}
	return m.b.Words()
}
