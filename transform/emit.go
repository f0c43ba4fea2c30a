// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import "github.com/gogpu/spvpatch/spirv"

// emitter accumulates instruction words, allocating result IDs as it goes.
type emitter struct {
	alloc *Allocator
	words []uint32
}

func newEmitter(alloc *Allocator) *emitter {
	return &emitter{alloc: alloc}
}

// op emits an instruction with a result type and a fresh result ID.
func (b *emitter) op(op spirv.OpCode, resultType uint32, operands ...uint32) uint32 {
	id := b.alloc.Next()
	b.opTo(id, op, resultType, operands...)
	return id
}

// opTo emits an instruction producing the given result ID.
func (b *emitter) opTo(id uint32, op spirv.OpCode, resultType uint32, operands ...uint32) {
	b.words = append(b.words, spirv.Encode(op, append([]uint32{resultType, id}, operands...)...)...)
}

// stmt emits an instruction without a result.
func (b *emitter) stmt(op spirv.OpCode, operands ...uint32) {
	b.words = append(b.words, spirv.Encode(op, operands...)...)
}

// label emits OpLabel.
func (b *emitter) label() uint32 {
	id := b.alloc.Next()
	b.stmt(spirv.OpLabel, id)
	return id
}

// function opens a function definition with one parameter per entry of
// paramTypes and its entry block, returning the function and parameter IDs.
func (b *emitter) function(retType, fnType uint32, paramTypes ...uint32) (uint32, []uint32) {
	fn := b.op(spirv.OpFunction, retType, uint32(spirv.FunctionControlNone), fnType)
	params := make([]uint32, len(paramTypes))
	for i, t := range paramTypes {
		params[i] = b.op(spirv.OpFunctionParameter, t)
	}
	b.label()
	return fn, params
}

// ret closes a function returning value.
func (b *emitter) ret(value uint32) {
	b.stmt(spirv.OpReturnValue, value)
	b.stmt(spirv.OpFunctionEnd)
}

// take returns the accumulated words and resets the emitter.
func (b *emitter) take() []uint32 {
	w := b.words
	b.words = nil
	return w
}
