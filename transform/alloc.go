// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"encoding/binary"

	"github.com/gogpu/spvpatch/spirv"
)

// Allocator hands out fresh result IDs. It starts at a module's bound and
// belongs to a single pass invocation.
type Allocator struct {
	bound uint32
}

// NewAllocator creates an allocator whose first ID is bound.
func NewAllocator(bound uint32) *Allocator {
	return &Allocator{bound: bound}
}

// Next returns a fresh ID and advances the bound.
func (a *Allocator) Next() uint32 {
	id := a.bound
	a.bound++
	return id
}

// Bound returns one past the largest ID handed out so far.
func (a *Allocator) Bound() uint32 {
	return a.bound
}

// declKey is the canonical structural descriptor of a declaration: its
// opcode plus every operand except the result ID.
type declKey struct {
	op       spirv.OpCode
	operands string
}

func keyOf(op spirv.OpCode, operands []uint32) declKey {
	buf := make([]byte, 4*len(operands))
	for i, w := range operands {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return declKey{op: op, operands: string(buf)}
}

// Interner deduplicates the types, constants and extended instruction
// imports a pass needs. Lookups return an existing declaration when one is
// structurally identical; otherwise a declaration is staged for insertion
// and remembered, so asking twice yields the same ID.
type Interner struct {
	alloc   *Allocator
	known   map[declKey]uint32
	imports map[string]uint32

	decls   []uint32 // staged types and constants, in allocation order
	imps    []uint32 // staged OpExtInstImport instructions
	staged  map[uint32][]uint32
	created int
}

// NewInterner indexes the declarations of a scanned module.
func NewInterner(s *spirv.Stream, alloc *Allocator) *Interner {
	in := &Interner{
		alloc:   alloc,
		known:   make(map[declKey]uint32),
		imports: make(map[string]uint32),
		staged:  make(map[uint32][]uint32),
	}
	for _, inst := range s.Insts() {
		op := inst.Opcode()
		ops := inst.Operands()
		switch {
		case op == spirv.OpExtInstImport:
			name, _ := spirv.DecodeString(ops[1:])
			if _, ok := in.imports[name]; !ok {
				in.imports[name] = ops[0]
			}
		case op == spirv.OpTypeStruct, op == spirv.OpTypeOpaque, op == spirv.OpTypeForwardPointer:
			// Aggregates are nominal; two identical structs are distinct types.
		case op.IsType():
			in.remember(keyOf(op, ops[1:]), ops[0])
		case op >= spirv.OpConstantTrue && op <= spirv.OpConstantNull && len(ops) >= 2:
			in.remember(keyOf(op, append([]uint32{ops[0]}, ops[2:]...)), ops[1])
		}
	}
	return in
}

func (in *Interner) remember(key declKey, id uint32) {
	if _, ok := in.known[key]; !ok {
		in.known[key] = id
	}
}

// declare returns the ID of a type declaration, staging it if needed.
func (in *Interner) declare(op spirv.OpCode, operands ...uint32) uint32 {
	key := keyOf(op, operands)
	if id, ok := in.known[key]; ok {
		return id
	}
	id := in.alloc.Next()
	words := spirv.Encode(op, append([]uint32{id}, operands...)...)
	in.decls = append(in.decls, words...)
	in.staged[id] = words
	in.known[key] = id
	in.created++
	return id
}

// Void interns OpTypeVoid.
func (in *Interner) Void() uint32 {
	return in.declare(spirv.OpTypeVoid)
}

// Bool interns OpTypeBool.
func (in *Interner) Bool() uint32 {
	return in.declare(spirv.OpTypeBool)
}

// Int interns OpTypeInt with the given width and signedness.
func (in *Interner) Int(width uint32, signed bool) uint32 {
	var s uint32
	if signed {
		s = 1
	}
	return in.declare(spirv.OpTypeInt, width, s)
}

// Float interns OpTypeFloat.
func (in *Interner) Float(width uint32) uint32 {
	return in.declare(spirv.OpTypeFloat, width)
}

// Vector interns OpTypeVector.
func (in *Interner) Vector(component uint32, count uint32) uint32 {
	return in.declare(spirv.OpTypeVector, component, count)
}

// Pointer interns OpTypePointer.
func (in *Interner) Pointer(storage spirv.StorageClass, pointee uint32) uint32 {
	return in.declare(spirv.OpTypePointer, uint32(storage), pointee)
}

// Sampler interns OpTypeSampler.
func (in *Interner) Sampler() uint32 {
	return in.declare(spirv.OpTypeSampler)
}

// Function interns OpTypeFunction.
func (in *Interner) Function(ret uint32, params ...uint32) uint32 {
	return in.declare(spirv.OpTypeFunction, append([]uint32{ret}, params...)...)
}

// Constant interns a scalar OpConstant of the given type.
func (in *Interner) Constant(typ uint32, value ...uint32) uint32 {
	key := keyOf(spirv.OpConstant, append([]uint32{typ}, value...))
	if id, ok := in.known[key]; ok {
		return id
	}
	id := in.alloc.Next()
	words := spirv.Encode(spirv.OpConstant, append([]uint32{typ, id}, value...)...)
	in.decls = append(in.decls, words...)
	in.staged[id] = words
	in.known[key] = id
	in.created++
	return id
}

// Uint interns a 32-bit unsigned integer constant.
func (in *Interner) Uint(v uint32) uint32 {
	return in.Constant(in.Int(32, false), v)
}

// Sint interns a 32-bit signed integer constant.
func (in *Interner) Sint(v int32) uint32 {
	return in.Constant(in.Int(32, true), uint32(v))
}

// ExtInstImport interns an extended instruction set import by name.
func (in *Interner) ExtInstImport(name string) uint32 {
	if id, ok := in.imports[name]; ok {
		return id
	}
	id := in.alloc.Next()
	words := spirv.Encode(spirv.OpExtInstImport, append([]uint32{id}, spirv.EncodeString(name)...)...)
	in.imps = append(in.imps, words...)
	in.imports[name] = id
	in.created++
	return id
}

// Staged returns the staged declaration words of id, if the interner
// created it.
func (in *Interner) Staged(id uint32) ([]uint32, bool) {
	words, ok := in.staged[id]
	return words, ok
}

// Created returns how many declarations were staged.
func (in *Interner) Created() int {
	return in.created
}

// Pending returns the staged import and declaration words.
func (in *Interner) Pending() (imports, decls []uint32) {
	return in.imps, in.decls
}
