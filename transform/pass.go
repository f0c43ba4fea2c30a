// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"slices"

	"github.com/gogpu/spvpatch/spirv"
)

// pass is the state of one pass invocation over one module.
type pass struct {
	header []uint32
	s      *spirv.Stream
	alloc  *Allocator
	types  *Interner
	edits  *Edits
	table  *descriptorTable

	globals []uint32 // module-scope variables, emitted after staged declarations
	funcs   []uint32 // helper functions, appended to the module
	remap   map[uint32]uint32

	// function-local temporaries, one per (function, pointer type)
	temps map[[2]uint32]uint32
}

func newPass(spv []uint32) (*pass, error) {
	hdr, body, err := spirv.ParseHeader(spv)
	if err != nil {
		return nil, wrapError(ErrInvalidModule, err, "bad header")
	}
	s, err := spirv.Scan(body)
	if err != nil {
		return nil, wrapError(ErrInvalidModule, err, "bad instruction stream")
	}
	if s.Len() == 0 {
		return nil, newError(ErrInvalidModule, -1, "module has no instructions")
	}
	alloc := NewAllocator(hdr.Bound)
	return &pass{
		header: slices.Clone(spv[:spirv.HeaderWords]),
		s:      s,
		alloc:  alloc,
		types:  NewInterner(s, alloc),
		edits:  NewEdits(),
		table:  scanDescriptors(s),
		temps:  make(map[[2]uint32]uint32),
	}, nil
}

// global queues a module-scope instruction after the staged declarations.
func (p *pass) global(words []uint32) {
	p.globals = append(p.globals, words...)
}

// temp returns a function-local variable of ptrType in the function
// enclosing the instruction at offset, declaring it at the top of the
// entry block on first use.
func (p *pass) temp(offset int, ptrType uint32) (uint32, error) {
	fn, ok := p.s.Function(offset)
	if !ok {
		return 0, newError(ErrInvalidModule, offset, "instruction outside a function")
	}
	key := [2]uint32{uint32(fn.Offset), ptrType}
	if id, ok := p.temps[key]; ok {
		return id, nil
	}
	label, ok := p.s.EntryBlock(fn.Offset)
	if !ok {
		return 0, newError(ErrInvalidModule, fn.Offset, "function has no entry block")
	}
	id := p.alloc.Next()
	p.edits.InsertAfter(label.Offset, spirv.Encode(spirv.OpVariable, ptrType, id, uint32(spirv.StorageClassFunction))...)
	p.temps[key] = id
	return id, nil
}

// addSiblings runs the decoration synchronizer and keeps its binding remap
// for the final rewrite.
func (p *pass) addSiblings(cm *CorrectionMap, sibs []sibling) error {
	remap, err := decorate(p.s, p.edits, cm, p.table, sibs)
	if err != nil {
		return err
	}
	if p.remap == nil {
		p.remap = remap
		return nil
	}
	for id, b := range remap {
		p.remap[id] = b
	}
	return nil
}

// finish places the staged declarations, applies the batch and produces
// the new module.
func (p *pass) finish() []uint32 {
	imports, decls := p.types.Pending()
	if len(imports) > 0 {
		anchor, ok := p.s.ImportsEnd()
		if !ok {
			panic("transform: module declares no capability to anchor imports")
		}
		p.edits.InsertAfter(anchor, imports...)
	}
	if tail := append(slices.Clip(decls), p.globals...); len(tail) > 0 {
		p.edits.InsertAfter(p.s.GlobalsEnd(), tail...)
	}
	if len(p.funcs) > 0 {
		p.edits.InsertAfter(p.s.Last().Offset, p.funcs...)
	}
	body := p.edits.Apply(p.s)
	correctDecorate(body, p.remap)
	body = PruneNops(body)
	return Fuse(p.header, body, p.alloc.Bound())
}
